package unify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/llm"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/logger"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/model"
)

const (
	minCount      = 2
	maxPerType    = 100
	minGroupCount = 2
)

// Store 实体合并需要的存储能力
type Store interface {
	FrequentEntities(ctx context.Context, et model.EntityType, minCount, limit int) ([]model.EntityCount, error)
	CountEntityValue(ctx context.Context, et model.EntityType, value string) (int, error)
	RenameEntity(ctx context.Context, et model.EntityType, from, to string) (int64, error)
}

// Group 指向同一实体的不同写法
type Group struct {
	Canonical string           `json:"canonical"`
	Type      model.EntityType `json:"type"`
	Variants  []string         `json:"variants"`
}

// Analysis 重复实体分析结果
type Analysis struct {
	Groups      []Group `json:"groups"`
	TotalGroups int     `json:"total_groups"`
}

// Update 一次改名
type Update struct {
	Type  model.EntityType `json:"type"`
	From  string           `json:"from"`
	To    string           `json:"to"`
	Count int              `json:"count"`
}

// Result 合并结果
type Result struct {
	DryRun       bool     `json:"dry_run"`
	Updates      []Update `json:"updates"`
	TotalUpdates int      `json:"total_updates"`
}

// Unifier 用 LLM 识别同一实体的不同写法并统一为规范名
type Unifier struct {
	store  Store
	client llm.Client
}

// NewUnifier 创建实体合并器，client 为 nil 时不可用
func NewUnifier(store Store, client llm.Client) *Unifier {
	return &Unifier{store: store, client: client}
}

// AnalyzeDuplicates 按类型分析重复实体，et 为空时分析全部类型。单个类型失败只记录日志
func (u *Unifier) AnalyzeDuplicates(ctx context.Context, et model.EntityType) (*Analysis, error) {
	if u.client == nil {
		return nil, llm.ErrNotConfigured
	}
	types := model.EntityTypes
	if et != "" {
		types = []model.EntityType{et}
	}

	res := &Analysis{Groups: []Group{}}
	for _, t := range types {
		if t == model.EntityDate && et == "" {
			continue
		}
		values, err := u.store.FrequentEntities(ctx, t, minCount, maxPerType)
		if err != nil {
			return nil, fmt.Errorf("load %s entities: %w", t, err)
		}
		if len(values) < 2 {
			continue
		}
		groups, err := u.groupsFor(ctx, t, values)
		if err != nil {
			logger.Log.WithField("entity_type", t).Errorf("分析重复实体失败: %v", err)
			continue
		}
		res.Groups = append(res.Groups, groups...)
	}
	res.TotalGroups = len(res.Groups)
	return res, nil
}

func (u *Unifier) groupsFor(ctx context.Context, t model.EntityType, values []model.EntityCount) ([]Group, error) {
	var sb strings.Builder
	for _, v := range values {
		fmt.Fprintf(&sb, "- %s (tipo: %s, apariciones: %d)\n", v.Value, t, v.Count)
	}
	raw, err := u.client.Complete(ctx, "Responde solo con JSON válido.", fmt.Sprintf(unifyPrompt, sb.String()))
	if err != nil {
		return nil, err
	}
	text, ok := llm.ExtractJSON(raw)
	if !ok {
		return nil, fmt.Errorf("no json object in response")
	}
	var out struct {
		Groups []Group `json:"groups"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		if err2 := json.Unmarshal([]byte(llm.StripTrailingCommas(text)), &out); err2 != nil {
			return nil, fmt.Errorf("json unmarshal: %w", err)
		}
	}

	var groups []Group
	for _, g := range out.Groups {
		g.Canonical = strings.TrimSpace(g.Canonical)
		// 只在同一类型内合并，忽略模型返回的类型
		g.Type = t
		var variants []string
		for _, v := range g.Variants {
			if v = strings.TrimSpace(v); v != "" && v != g.Canonical {
				variants = append(variants, v)
			}
		}
		g.Variants = variants
		if g.Canonical == "" || len(g.Variants)+1 < minGroupCount {
			continue
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// Unify 分析并合并重复实体。dryRun 时只返回将要进行的修改
func (u *Unifier) Unify(ctx context.Context, dryRun bool) (*Result, error) {
	analysis, err := u.AnalyzeDuplicates(ctx, "")
	if err != nil {
		return nil, err
	}

	res := &Result{DryRun: dryRun, Updates: []Update{}}
	for _, g := range analysis.Groups {
		for _, v := range g.Variants {
			n, err := u.store.CountEntityValue(ctx, g.Type, v)
			if err != nil {
				return nil, err
			}
			if n == 0 {
				continue
			}
			if !dryRun {
				if _, err := u.store.RenameEntity(ctx, g.Type, v, g.Canonical); err != nil {
					return nil, fmt.Errorf("rename %s → %s: %w", v, g.Canonical, err)
				}
			}
			res.Updates = append(res.Updates, Update{Type: g.Type, From: v, To: g.Canonical, Count: n})
			res.TotalUpdates += n
		}
	}
	if !dryRun {
		logger.Log.Infof("已合并 %d 个实体写法，共 %d 处", len(res.Updates), res.TotalUpdates)
	}
	return res, nil
}

const unifyPrompt = `Analiza esta lista de entidades extraídas de noticias y agrúpalas por entidad real.
Muchas son la misma entidad escrita de distintas formas (ej: "Trump", "Donald Trump", "Donald J. Trump").

ENTIDADES:
%s
INSTRUCCIONES:
1. Agrupa solo las entidades que se refieren a la misma persona, lugar u organización.
2. Para cada grupo elige como canonical el nombre más completo y formal.
3. No incluyas entidades sin duplicados.

Responde SOLO con JSON válido (sin markdown):
{
    "groups": [
        {"canonical": "Nombre canónico", "type": "person", "variants": ["variante1", "variante2"]}
    ]
}

Ejemplos: "Maduro", "Nicolás Maduro" → "Nicolás Maduro"; "EEUU", "EE.UU.", "Estados Unidos" → "Estados Unidos".`
