package service

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/errors"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/model"
)

const reasonValidation = "VALIDATION_FAILED"

func badRequest(format string, args ...any) error {
	return errors.BadRequest(reasonValidation, fmt.Sprintf(format, args...))
}

// intParam 解析整数参数，缺省时返回 def，超出 [min, max] 时报错
func intParam(q url.Values, name string, def, min, max int) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("%s must be an integer", name)
	}
	if n < min || n > max {
		if max == math.MaxInt32 {
			return 0, badRequest("%s must be >= %d", name, min)
		}
		return 0, badRequest("%s must be between %d and %d", name, min, max)
	}
	return n, nil
}

func boolParam(q url.Values, name string, def bool) (bool, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, badRequest("%s must be a boolean", name)
	}
	return b, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func biasesParam(q url.Values, name string) ([]model.Bias, error) {
	var out []model.Bias
	for _, v := range splitCSV(q.Get(name)) {
		b, ok := model.ParseBias(v)
		if !ok {
			return nil, badRequest("unknown %s %q", name, v)
		}
		out = append(out, b)
	}
	return out, nil
}

func tonesParam(q url.Values, name string) ([]model.Tone, error) {
	var out []model.Tone
	for _, v := range splitCSV(q.Get(name)) {
		t, ok := model.ParseTone(v)
		if !ok {
			return nil, badRequest("unknown %s %q", name, v)
		}
		out = append(out, t)
	}
	return out, nil
}

func entityTypesParam(q url.Values, name string) ([]model.EntityType, error) {
	var out []model.EntityType
	for _, v := range splitCSV(q.Get(name)) {
		et, ok := model.ParseEntityType(v)
		if !ok {
			return nil, badRequest("unknown %s %q", name, v)
		}
		out = append(out, et)
	}
	return out, nil
}

// entityTypeParam 单个实体类型，缺省为空
func entityTypeParam(q url.Values, name string) (model.EntityType, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return "", nil
	}
	et, ok := model.ParseEntityType(raw)
	if !ok {
		return "", badRequest("unknown %s %q", name, raw)
	}
	return et, nil
}

// timeParam 接受 RFC3339 或 YYYY-MM-DD。endOfDay 为 true 时日期取当天最后一刻，作为闭区间上界
func timeParam(q url.Values, name string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, badRequest("%s must be RFC3339 or YYYY-MM-DD", name)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Microsecond)
	}
	return &t, nil
}
