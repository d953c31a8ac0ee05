package annotate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/llm"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/model"
)

// ErrAnnotationFailed LLM 调用失败、超时或返回无法解析
var ErrAnnotationFailed = errors.New("annotation failed")

const maxContentRunes = 4000

// Input 待标注的文章
type Input struct {
	Title       string
	Source      string
	Description string
	Content     string
}

// InputFromArticle 从入库文章构造输入
func InputFromArticle(a *model.Article) Input {
	return Input{Title: a.Title, Source: a.SourceName, Description: a.Description, Content: a.Content}
}

// Body 正文为空时依次退回摘要和标题，超长截断
func (in Input) Body() string {
	body := strings.TrimSpace(in.Content)
	if body == "" {
		body = strings.TrimSpace(in.Description)
	}
	if body == "" {
		body = in.Title
	}
	if utf8.RuneCountInString(body) > maxContentRunes {
		body = string([]rune(body)[:maxContentRunes]) + "..."
	}
	return body
}

// Result 校验后的标注结果，非法枚举值为 nil
type Result struct {
	PoliticalBias  *model.Bias
	BiasConfidence *float64
	Tone           *model.Tone
	ToneConfidence *float64
	Summary        string
	Entities       []EntityResult
}

// EntityResult 标注出的实体
type EntityResult struct {
	Type      model.EntityType
	Value     string
	Relevance float64
}

// Annotator 文章标注接口
type Annotator interface {
	Analyze(ctx context.Context, in Input) (*Result, error)
}

// LLMAnnotator 基于 LLM 的标注实现
type LLMAnnotator struct {
	client llm.Client
}

// NewLLMAnnotator 创建 LLM 标注器
func NewLLMAnnotator(c llm.Client) *LLMAnnotator {
	return &LLMAnnotator{client: c}
}

// Analyze implements Annotator
func (a *LLMAnnotator) Analyze(ctx context.Context, in Input) (*Result, error) {
	raw, err := a.client.Complete(ctx, systemPrompt, BuildPrompt(in))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnnotationFailed, err)
	}
	return Parse(raw)
}

const systemPrompt = "Eres un analista de medios. Responde solo con JSON válido."

// BuildPrompt 生成西语分析提示词
func BuildPrompt(in Input) string {
	source := in.Source
	if source == "" {
		source = "Desconocida"
	}
	return fmt.Sprintf(analysisPrompt, in.Title, source, in.Body())
}

const analysisPrompt = `Analiza este artículo de noticias en español y devuelve un análisis estructurado.

ARTÍCULO:
Título: %s
Fuente: %s
Contenido: %s

Devuelve SOLO un objeto JSON (sin markdown) con esta estructura:
{
    "political_bias": "left|center-left|center|center-right|right",
    "bias_confidence": 0.0-1.0,
    "tone": "positive|neutral|negative|alarming",
    "tone_confidence": 0.0-1.0,
    "summary": "Resumen de 2-3 oraciones en español",
    "entities": [
        {"type": "person|place|organization|date|country|city", "value": "nombre", "relevance": 0.0-1.0}
    ]
}

Criterios:
1. political_bias: orientación del MEDIO que publica, no del hecho narrado.
   left (TeleSUR, Página 12), center-left (El País), center (Reuters, BBC),
   center-right (La Nación), right (PanamPost).
2. tone: positive (optimista), neutral (factual), negative (crítico), alarming (sensacionalista).
3. entities: todas las personas, países, ciudades, otros lugares, organizaciones y fechas mencionadas.
4. summary: 2-3 oraciones en español con lo esencial.`
