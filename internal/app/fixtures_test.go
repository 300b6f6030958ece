package service_test

import (
	"fmt"
	"time"

	"github.com/okian/cadis/internal/domain/model"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func stamp(ago time.Duration) string {
	return fixedNow.Add(-ago).Format(time.RFC3339)
}

// multiTenantRecords aggregate to two tenants with a mean dream-state
// effectiveness of 65.
func multiTenantRecords() []model.RawRecord {
	return []model.RawRecord{
		{Source: model.SourceJournal, Fields: map[string]any{
			"id":                      "j-1",
			"timestamp":               stamp(20 * time.Hour),
			"tenant":                  "acme",
			"dreamStateEffectiveness": 60.0,
			"content":                 "Set the roadmap and strategy with the team.",
		}},
		{Source: model.SourceJournal, Fields: map[string]any{
			"id":                      "j-2",
			"timestamp":               stamp(9 * 24 * time.Hour),
			"tenant":                  "globex",
			"dreamStateEffectiveness": 70.0,
			"content":                 "Learned lessons from the deployment issues.",
		}},
	}
}

// rapidDevelopmentRecords carry six recent module updates and a journal
// entry with twelve signals.
func rapidDevelopmentRecords() []model.RawRecord {
	var recs []model.RawRecord
	for i := 0; i < 6; i++ {
		recs = append(recs, model.RawRecord{Source: model.SourceModule, Fields: map[string]any{
			"id":          fmt.Sprintf("m-%d", i),
			"timestamp":   stamp(time.Duration(i+1) * time.Hour),
			"name":        fmt.Sprintf("module-%d", i),
			"description": "Implemented the api and deployed it",
		}})
	}
	recs = append(recs, model.RawRecord{Source: model.SourceJournal, Fields: map[string]any{
		"id":        "j-1",
		"timestamp": stamp(3 * time.Hour),
		"content":   "strategy vision roadmap goals team feedback review learned insights lessons prototype experiment",
	}})
	return recs
}

func invalidRecords() []model.RawRecord {
	return []model.RawRecord{
		{Source: model.SourceConversation},
		{Source: model.SourceConversation, Fields: map[string]any{"participants": []any{"ana"}}},
	}
}
