package annotate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/llm"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/model"
)

const maxEntityRunes = 500

type rawEntity struct {
	Type      string          `json:"type"`
	Value     string          `json:"value"`
	Relevance json.RawMessage `json:"relevance"`
}

// Parse 解析并校验 LLM 输出。缺少必填字段视为失败，非法枚举和置信度置空
func Parse(raw string) (*Result, error) {
	text, ok := llm.ExtractJSON(raw)
	if !ok {
		return nil, fmt.Errorf("%w: no json object in response", ErrAnnotationFailed)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		if err2 := json.Unmarshal([]byte(llm.StripTrailingCommas(text)), &obj); err2 != nil {
			return nil, fmt.Errorf("%w: json unmarshal: %v", ErrAnnotationFailed, err)
		}
	}
	for _, key := range []string{"political_bias", "tone", "summary"} {
		if _, ok := obj[key]; !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrAnnotationFailed, key)
		}
	}

	res := &Result{
		BiasConfidence: confidence(obj["bias_confidence"]),
		ToneConfidence: confidence(obj["tone_confidence"]),
		Summary:        strings.TrimSpace(stringOf(obj["summary"])),
	}
	if b, ok := model.ParseBias(stringOf(obj["political_bias"])); ok {
		res.PoliticalBias = &b
	}
	if t, ok := model.ParseTone(stringOf(obj["tone"])); ok {
		res.Tone = &t
	}

	var entities []rawEntity
	if rawList, ok := obj["entities"]; ok {
		// entities 格式错误时忽略，不影响其他字段
		_ = json.Unmarshal(rawList, &entities)
	}
	seen := make(map[string]bool)
	for _, e := range entities {
		et, ok := model.ParseEntityType(e.Type)
		value := strings.TrimSpace(e.Value)
		if !ok || value == "" {
			continue
		}
		if utf8.RuneCountInString(value) > maxEntityRunes {
			value = string([]rune(value)[:maxEntityRunes])
		}
		key := string(et) + "|" + strings.ToLower(value)
		if seen[key] {
			continue
		}
		seen[key] = true

		rel := 1.0
		if r := confidence(e.Relevance); r != nil {
			rel = *r
		}
		res.Entities = append(res.Entities, EntityResult{Type: et, Value: value, Relevance: rel})
	}
	return res, nil
}

func stringOf(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// confidence 接受 [0,1] 内的数字或数字字符串，其他情况返回 nil
func confidence(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		s := stringOf(raw)
		if s == "" {
			return nil
		}
		if f, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return nil
		}
	}
	if f < 0 || f > 1 {
		return nil
	}
	return &f
}
