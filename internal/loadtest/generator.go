package loadtest

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/okian/cadis/internal/domain/model"
	"github.com/okian/cadis/pkg/logger"
)

// phrases feed record text; each line hits at least one default category.
var phrases = []string{
	"Reviewed the strategic roadmap and the long-term vision.",
	"Implemented the deploy pipeline and refactored the auth module.",
	"Built a prototype for an experimental search approach.",
	"Paired with the team and collected review feedback.",
	"Learned a lot today; reflection on the last sprint.",
	"Debugging the TypeScript compilation errors took all morning.",
	"API authentication issues blocked the release.",
	"Planned the architecture for tenant isolation.",
}

var challenges = []string{
	"TypeScript compilation errors",
	"API authentication issues",
	"slow deployment pipeline",
	"database migration drift",
	"flaky integration tests",
}

var sources = []string{
	model.SourceJournal,
	model.SourceConversation,
	model.SourceModule,
	model.SourceEcosystem,
}

// generator builds run requests from a seeded source so a test run can be
// replayed.
type generator struct {
	rng *rand.Rand
	now time.Time
}

func newGenerator(seed uint64, now time.Time) *generator {
	return &generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), now: now}
}

// generateRuns creates config.NumRuns run requests.
func generateRuns(ctx context.Context, config *Config, stats *Stats) ([]model.RunRequest, error) {
	logger.Get().Info(ctx, "generating runs",
		logger.Int("runs", config.NumRuns),
		logger.Int("recordsPerRun", config.RecordsPerRun))

	g := newGenerator(config.Seed, time.Now().UTC())
	runs := make([]model.RunRequest, config.NumRuns)
	for i := range runs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during run generation: %w", err)
		}
		runs[i] = g.run(i, config.RecordsPerRun, config.MaxInsights)
	}

	stats.RunsGenerated = len(runs)
	logger.Get().Info(ctx, "generated runs successfully", logger.Int("count", len(runs)))
	return runs, nil
}

// run creates one request. Run ids carry the seed-independent index so a
// replay against the same service is reported as duplicates.
func (g *generator) run(index, records, maxInsights int) model.RunRequest {
	out := model.RunRequest{
		ID:          fmt.Sprintf("load-%06d-%08x", index, g.rng.Uint32()),
		Records:     make([]model.RawRecord, records),
		MaxInsights: maxInsights,
	}
	tenants := 1 + g.rng.IntN(3)
	for i := range out.Records {
		out.Records[i] = g.record(index, i, tenants)
	}
	return out
}

func (g *generator) record(run, index, tenants int) model.RawRecord {
	src := sources[g.rng.IntN(len(sources))]
	ts := g.now.Add(-time.Duration(g.rng.IntN(14*24)) * time.Hour)

	fields := map[string]any{
		"id":        fmt.Sprintf("r-%d-%d", run, index),
		"timestamp": ts.Format(time.RFC3339),
		"tenant":    fmt.Sprintf("tenant-%d", g.rng.IntN(tenants)),
	}
	text := phrases[g.rng.IntN(len(phrases))] + " " + phrases[g.rng.IntN(len(phrases))]
	switch src {
	case model.SourceModule, model.SourceEcosystem:
		fields["name"] = fmt.Sprintf("module-%d", g.rng.IntN(8))
		fields["description"] = text
	case model.SourceConversation:
		fields["title"] = "Session " + fields["id"].(string)
		fields["summary"] = text
		fields["dreamStateEffectiveness"] = 50 + g.rng.IntN(50)
		fields["challenges"] = []any{challenges[g.rng.IntN(len(challenges))]}
	default:
		fields["content"] = text
	}
	return model.RawRecord{Source: src, Fields: fields}
}
