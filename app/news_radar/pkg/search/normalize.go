package search

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/model"
)

var (
	errMissingTitle = errors.New("missing title")
	errInvalidURL   = errors.New("invalid url")
)

// 各新闻源出现过的日期格式
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC822,
	time.RFC822Z,
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	time.DateOnly,
}

// ParseDate 解析新闻源日期并统一为 UTC，无法解析时返回 nil
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// MaxURLLength 超长链接视为非法
const MaxURLLength = 2048

var trackingParams = map[string]bool{
	"fbclid": true,
	"gclid":  true,
}

// CanonicalURL 规范化 URL：小写 scheme/host，去掉 fragment 和跟踪参数
func CanonicalURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", errInvalidURL
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", errInvalidURL
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	if u.RawQuery != "" {
		q := u.Query()
		for k := range q {
			if strings.HasPrefix(strings.ToLower(k), "utm_") || trackingParams[strings.ToLower(k)] {
				q.Del(k)
			}
		}
		u.RawQuery = q.Encode()
	}
	out := u.String()
	if len(out) > MaxURLLength {
		return "", errInvalidURL
	}
	return out, nil
}

// Normalize 将原始结果转为标准文章，缺少标题或 URL 非法时返回错误
func Normalize(r Result, language string) (model.CanonicalArticle, error) {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return model.CanonicalArticle{}, errMissingTitle
	}
	link, err := CanonicalURL(r.URL)
	if err != nil {
		return model.CanonicalArticle{}, err
	}

	lang := strings.TrimSpace(r.Language)
	if lang == "" {
		lang = language
	}
	if lang == "" {
		lang = "es"
	}

	art := model.CanonicalArticle{
		ExternalID:  strings.TrimSpace(r.ExternalID),
		Title:       title,
		Description: strings.TrimSpace(r.Description),
		Content:     strings.TrimSpace(r.Content),
		URL:         link,
		SourceName:  strings.TrimSpace(r.Source),
		Language:    lang,
		Country:     strings.TrimSpace(r.Country),
		PublishedAt: ParseDate(r.PublishedDate),
	}
	// 图片链接无效时只丢弃图片
	if img, err := CanonicalURL(r.ImageURL); err == nil {
		art.ImageURL = img
	}
	return art, nil
}
