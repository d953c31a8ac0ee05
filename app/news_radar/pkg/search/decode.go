package search

import "encoding/json"

// DecodeItems 逐条解码新闻源返回的条目，格式不合法的条目只计数，不影响其余条目
func DecodeItems[T any](raw []json.RawMessage) ([]T, int) {
	items := make([]T, 0, len(raw))
	skipped := 0
	for _, r := range raw {
		var item T
		if err := json.Unmarshal(r, &item); err != nil {
			skipped++
			continue
		}
		items = append(items, item)
	}
	return items, skipped
}
