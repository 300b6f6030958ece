package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/cadis/internal/adapters/repository"
	app "github.com/okian/cadis/internal/app"
	"github.com/okian/cadis/internal/config"
	"github.com/okian/cadis/internal/domain/model"
	"github.com/okian/cadis/pkg/logger"
)

const journalRecords = `[
  {"id": "j1", "title": "Tenant rollout", "content": "Reviewed the strategic roadmap and planned the architecture for the next quarter."},
  {"id": "j2", "title": "Build day", "content": "Implemented the deploy pipeline and fixed a bug in the test suite."},
  {"id": "j3", "title": "Ideas", "content": "Prototype of an experimental approach to innovation in the search module."}
]`

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, config.EnvPrefix) {
			t.Setenv(name, "")
			_ = os.Unsetenv(name)
		}
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func execute(args ...string) (string, error) {
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	convey.Convey("Given the root command", t, func() {
		root := newRootCmd()

		convey.Convey("Then every subcommand is registered", func() {
			names := make([]string, 0, len(root.Commands()))
			for _, c := range root.Commands() {
				names = append(names, c.Name())
			}
			convey.So(names, convey.ShouldContain, "serve")
			convey.So(names, convey.ShouldContain, "analyze")
			convey.So(names, convey.ShouldContain, "simulate")
			convey.So(names, convey.ShouldContain, "scenarios")
			convey.So(names, convey.ShouldContain, "loadtest")
			convey.So(root.Version, convey.ShouldEqual, version)
		})

		convey.Convey("Then an invalid config is reported before any command runs", func() {
			clearEnv(t)
			t.Setenv("CADIS_PHASE_COUNT", "0")
			_, err := execute("scenarios")
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "phase_count")
		})
	})
}

func TestAnalyzeCommand(t *testing.T) {
	convey.Convey("Given a records file", t, func() {
		clearEnv(t)
		dir := t.TempDir()
		path := writeFile(t, dir, "journal.json", journalRecords)

		convey.Convey("When analyzing the file", func() {
			out, err := execute("analyze", "--records", "journal="+path, "--id", "cli-run", "--max-insights", "2")

			convey.Convey("Then the run result is printed as JSON", func() {
				convey.So(err, convey.ShouldBeNil)
				var res model.RunResult
				convey.So(json.Unmarshal([]byte(out), &res), convey.ShouldBeNil)
				convey.So(res.Report.RunID, convey.ShouldEqual, "cli-run")
				convey.So(res.Report.State, convey.ShouldEqual, model.StateComplete)
				convey.So(res.Report.Diagnostics.Seen, convey.ShouldEqual, 3)
				convey.So(res.FeatureVector.ObservationCount, convey.ShouldEqual, 3)
				convey.So(len(res.Insights), convey.ShouldBeLessThanOrEqualTo, 2)
				convey.So(res.Scenario.ID, convey.ShouldNotBeEmpty)
			})
		})

		convey.Convey("When analyzing through the directory source", func() {
			out, err := execute("analyze", "--dir", dir, "--source", "journal")

			convey.Convey("Then the same records are read", func() {
				convey.So(err, convey.ShouldBeNil)
				var res model.RunResult
				convey.So(json.Unmarshal([]byte(out), &res), convey.ShouldBeNil)
				convey.So(res.FeatureVector.ObservationCount, convey.ShouldEqual, 3)
				convey.So(res.Report.SourceIssues, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When the records flag is malformed", func() {
			_, err := execute("analyze", "--records", path)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "<source>=<path>")
		})

		convey.Convey("When neither records nor sources are given", func() {
			_, err := execute("analyze")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When every record is unusable", func() {
			empty := writeFile(t, dir, "empty.json", `[{"id": "x"}]`)
			_, err := execute("analyze", "--records", "journal="+empty)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "no usable observations")
		})
	})
}

func TestSimulateCommand(t *testing.T) {
	convey.Convey("Given the simulate command", t, func() {
		clearEnv(t)

		convey.Convey("When a baseline and two known challenges are given", func() {
			out, err := execute("simulate", "--baseline", "87.3",
				"--challenge", "TypeScript compilation errors",
				"--challenge", "API authentication issues")

			convey.Convey("Then both heuristics apply", func() {
				convey.So(err, convey.ShouldBeNil)
				var res model.SimulationResult
				convey.So(json.Unmarshal([]byte(out), &res), convey.ShouldBeNil)
				convey.So(res.ObservationID, convey.ShouldEqual, "cli")
				convey.So(res.ProjectedEfficiency, convey.ShouldEqual, 99.3)
				convey.So(res.MatchedHeuristics, convey.ShouldHaveLength, 2)
			})
		})

		convey.Convey("When a record file is given", func() {
			path := writeFile(t, t.TempDir(), "obs.json",
				`{"id": "obs-9", "title": "Release prep", "baselineEfficiency": 50, "challenges": ["slow deployment pipeline"]}`)
			out, err := execute("simulate", "--record", path)

			convey.Convey("Then the record is simulated", func() {
				convey.So(err, convey.ShouldBeNil)
				var res model.SimulationResult
				convey.So(json.Unmarshal([]byte(out), &res), convey.ShouldBeNil)
				convey.So(res.ObservationID, convey.ShouldEqual, "obs-9")
				convey.So(res.MatchedHeuristics, convey.ShouldResemble, []string{"deployment"})
			})
		})

		convey.Convey("When the baseline is out of range", func() {
			_, err := execute("simulate", "--baseline", "140")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When nothing is given", func() {
			_, err := execute("simulate")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestScenariosCommand(t *testing.T) {
	convey.Convey("Given the scenarios command", t, func() {
		clearEnv(t)

		convey.Convey("Then the tables print as text", func() {
			out, err := execute("scenarios")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "multi-tenant-optimization")
			convey.So(out, convey.ShouldContainSubstring, "CATEGORY")
			convey.So(out, convey.ShouldContainSubstring, "typescript")
		})

		convey.Convey("Then the tables print as JSON", func() {
			out, err := execute("scenarios", "--json")
			convey.So(err, convey.ShouldBeNil)
			var body map[string]json.RawMessage
			convey.So(json.Unmarshal([]byte(out), &body), convey.ShouldBeNil)
			convey.So(body, convey.ShouldContainKey, "rules")
			convey.So(body, convey.ShouldContainKey, "templates")
		})
	})
}

func TestBackends(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		ctx := context.Background()
		cfg := config.New()

		convey.Convey("Then runs are kept in memory and no source is configured", func() {
			b, err := openBackends(ctx, cfg, logger.Nop())
			convey.So(err, convey.ShouldBeNil)
			defer b.Close()
			_, ok := b.store.(*repository.MemoryStore)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(listerOf(b.sources), convey.ShouldBeNil)
		})

		convey.Convey("When a Redis address is configured", func() {
			mr := miniredis.RunT(t)
			cfg.RedisAddr = mr.Addr()
			cfg.RecordsDir = t.TempDir()

			b, err := openBackends(ctx, cfg, logger.Nop())
			convey.So(err, convey.ShouldBeNil)
			defer b.Close()

			convey.Convey("Then the store is wrapped by the cache", func() {
				_, ok := b.store.(*repository.Cache)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(b.sources, convey.ShouldHaveLength, 1)
			})
		})

		convey.Convey("When a table file is broken", func() {
			cfg.ScenariosFile = writeFile(t, t.TempDir(), "scenarios.yaml", "scenarios: [")
			_, err := newEngine(cfg, nil, logger.Nop())
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestHTTPServer(t *testing.T) {
	convey.Convey("Given the HTTP server wiring", t, func() {
		ctx := context.Background()
		engine, err := app.New(app.WithLogger(logger.Nop()))
		convey.So(err, convey.ShouldBeNil)
		svc := app.NewService(engine, repository.NewMemoryStore(), app.WithServiceLogger(logger.Nop()))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		srv := newHTTPServer(ctx, ":0", svc)
		convey.So(srv.WriteTimeout, convey.ShouldEqual, writeTimeout)

		for _, path := range []string{"/healthz", "/stats", "/scenarios", "/openapi.yaml", "/api-docs"} {
			req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
			rec := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rec, req)
			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
		}

		convey.Convey("Then a posted analysis is stored and readable", func() {
			body := `{"id": "http-1", "records": [{"source": "journal", "fields": {"content": "planned the architecture roadmap"}}]}`
			req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body))
			rec := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rec, req)
			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)

			req = httptest.NewRequest(http.MethodGet, "/runs/http-1", http.NoBody)
			rec = httptest.NewRecorder()
			srv.Handler.ServeHTTP(rec, req)
			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
		})
	})
}

func TestLoadTestCommand(t *testing.T) {
	convey.Convey("Given a running server", t, func() {
		clearEnv(t)
		engine, err := app.New(app.WithLogger(logger.Nop()))
		convey.So(err, convey.ShouldBeNil)
		svc := app.NewService(engine, repository.NewMemoryStore(), app.WithServiceLogger(logger.Nop()))
		convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
		defer svc.Stop()
		srv := httptest.NewServer(newHTTPServer(context.Background(), ":0", svc).Handler)
		defer srv.Close()

		convey.Convey("Then the load test passes against it", func() {
			_, err := execute("loadtest", "--url", srv.URL, "--runs", "4", "--records", "3",
				"--workers", "2", "--poll", "10ms", "--wait", "10s", "--seed", "1")
			convey.So(err, convey.ShouldBeNil)
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		engine, err := app.New(app.WithLogger(logger.Nop()))
		convey.So(err, convey.ShouldBeNil)
		svc := app.NewService(engine, repository.NewMemoryStore(), app.WithServiceLogger(logger.Nop()))

		convey.So(func() { updateSystemMetrics() }, convey.ShouldNotPanic)
		convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		convey.So(func() { startServiceMetricsUpdater(ctx, svc) }, convey.ShouldNotPanic)
	})
}
