package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/okian/cadis/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigNew(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have the engine defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.MaxInsights, convey.ShouldEqual, 0)
			convey.So(cfg.ConcurrencyLimit, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.PhaseCount, convey.ShouldEqual, 3)
			convey.So(cfg.SourceTimeoutMS, convey.ShouldEqual, 5000)
			convey.So(cfg.ExampleCap, convey.ShouldEqual, 3)
			convey.So(cfg.RecentWindow().Hours(), convey.ShouldEqual, 48)
			convey.So(cfg.BucketWidth().Hours(), convey.ShouldEqual, 30*24)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		convey.Convey("When loading with defaults only", func() {
			clearConfigEnvVars(t)

			cfg, err := config.Load()

			convey.Convey("Then it should load the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.SourceTimeout().Milliseconds(), convey.ShouldEqual, 5000)
			})
		})

		convey.Convey("When environment variables are set", func() {
			clearConfigEnvVars(t)
			t.Setenv("CADIS_ADDR", ":8080")
			t.Setenv("CADIS_MAX_INSIGHTS", "5")
			t.Setenv("CADIS_CONCURRENCY_LIMIT", "2")
			t.Setenv("CADIS_SOURCE_TIMEOUT_MS", "250")
			t.Setenv("CADIS_REDIS_ADDR", "localhost:6379")

			cfg, err := config.Load()

			convey.Convey("Then they override the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.MaxInsights, convey.ShouldEqual, 5)
				convey.So(cfg.ConcurrencyLimit, convey.ShouldEqual, 2)
				convey.So(cfg.SourceTimeoutMS, convey.ShouldEqual, 250)
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "localhost:6379")
			})
		})

		convey.Convey("When a YAML file is given", func() {
			clearConfigEnvVars(t)
			path := writeConfig(t, "addr: \":9090\"\nphase_count: 4\nexample_cap: 1\nlog_format: json\n")
			t.Setenv("CADIS_CONFIG", path)
			t.Setenv("CADIS_PHASE_COUNT", "5")

			cfg, err := config.Load()

			convey.Convey("Then the file applies and env still wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.ExampleCap, convey.ShouldEqual, 1)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.PhaseCount, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When the file does not exist", func() {
			clearConfigEnvVars(t)
			t.Setenv("CADIS_CONFIG", "/non/existent/cadis.yaml")

			_, err := config.Load()

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the path is passed explicitly", func() {
			clearConfigEnvVars(t)
			path := writeConfig(t, "max_insights: 7\nredis_ttl_seconds: 60\n")

			cfg, err := config.LoadFrom(path)

			convey.Convey("Then the file applies without CADIS_CONFIG", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MaxInsights, convey.ShouldEqual, 7)
				convey.So(cfg.RedisTTL().Seconds(), convey.ShouldEqual, 60)
			})
		})

		convey.Convey("When values are out of range", func() {
			clearConfigEnvVars(t)
			t.Setenv("CADIS_PHASE_COUNT", "0")

			_, err := config.Load()

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func TestConfigValidate(t *testing.T) {
	convey.Convey("Given invalid configs", t, func() {
		mutations := []func(*config.Config){
			func(c *config.Config) { c.Addr = "" },
			func(c *config.Config) { c.MaxInsights = -1 },
			func(c *config.Config) { c.ConcurrencyLimit = 0 },
			func(c *config.Config) { c.ExampleCap = -1 },
			func(c *config.Config) { c.ActivityHighThreshold = 1; c.ActivityMediumThreshold = 2 },
			func(c *config.Config) { c.RunWorkerCount = 0 },
			func(c *config.Config) { c.LogFormat = "xml" },
		}
		for _, mutate := range mutations {
			cfg := config.New()
			mutate(cfg)
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		}
	})
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cadis.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearConfigEnvVars(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, config.EnvPrefix) {
			t.Setenv(name, "")
			_ = os.Unsetenv(name)
		}
	}
}
