package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/okian/cadis/internal/domain/model"
)

var (
	idFields        = []string{"id", "uuid"}
	timestampFields = []string{"timestamp", "created_at", "createdAt", "date", "ts"}
	tenantFields    = []string{"tenant", "tenantId", "tenant_id"}

	textFields = map[string][]string{
		model.SourceConversation: {"title", "summary", "content", "messages", "outcomes"},
		model.SourceJournal:      {"title", "content", "reflection", "insights"},
		model.SourceEcosystem:    {"name", "description", "notes", "status"},
		model.SourceModule:       {"name", "description", "notes", "status"},
	}
	allTextFields = []string{
		"title", "name", "summary", "description", "content", "messages",
		"reflection", "insights", "outcomes", "notes", "status",
	}

	metricFields = []string{
		"efficiency", "satisfaction", "tenantCount",
		"dreamStateEffectiveness", "baselineEfficiency",
	}

	timeLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
)

func fieldsFor(source string) []string {
	if f, ok := textFields[source]; ok {
		return f
	}
	return allTextFields
}

func stringField(fields map[string]any, keys []string) string {
	for _, k := range keys {
		switch v := fields[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func timestampField(fields map[string]any) (time.Time, bool) {
	for _, k := range timestampFields {
		if ts, ok := parseTime(fields[k]); ok {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs > 0 {
			return time.Unix(secs, 0), true
		}
	default:
		if f, ok := number(v); ok && f > 0 {
			sec, frac := math.Modf(f)
			return time.Unix(int64(sec), int64(frac*1e9)), true
		}
	}
	return time.Time{}, false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// texts flattens strings, string slices and slices of {content|text}
// objects into a list of non-empty fragments.
func texts(v any) []string {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	case []string:
		var out []string
		for _, s := range t {
			out = append(out, texts(s)...)
		}
		return out
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, texts(item)...)
		}
		return out
	case map[string]any:
		for _, k := range []string{"content", "text"} {
			if s, ok := t[k].(string); ok {
				return texts(s)
			}
		}
	}
	return nil
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return compact(t)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return compact(out)
	case string:
		return compact(strings.Split(t, ","))
	}
	return nil
}

func compact(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
