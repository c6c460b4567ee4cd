package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/simclinic/woundsim/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoadDefaults(t *testing.T) {
	Convey("Given no file and no environment overrides", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then defaults should apply", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":9080")
			So(cfg.LogLevel, ShouldEqual, "info")
			So(cfg.SessionShardCount, ShouldEqual, 16)
			So(cfg.DedupeSize, ShouldEqual, 50_000)
			So(cfg.RetrievalTopK, ShouldEqual, 5)
			So(cfg.RetrievalTimeoutMS, ShouldEqual, 2000)
			So(cfg.AuditQueueSize, ShouldEqual, 10_000)
			So(cfg.AuditWorkerCount, ShouldEqual, 2)
			So(cfg.DefaultAgentWeight, ShouldEqual, 1.0)
			So(cfg.AgentWeights, ShouldBeEmpty)
		})
	})
}

func TestLoadEnvOverrides(t *testing.T) {
	Convey("Given environment variable overrides", t, func() {
		t.Setenv("WOUNDSIM_ADDR", ":8080")
		t.Setenv("WOUNDSIM_LOG_LEVEL", "debug")
		t.Setenv("WOUNDSIM_RETRIEVAL_TOP_K", "3")
		t.Setenv("WOUNDSIM_AUDIT_WORKER_COUNT", "4")

		cfg, err := config.Load(context.Background())

		Convey("Then env values should win over defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":8080")
			So(cfg.LogLevel, ShouldEqual, "debug")
			So(cfg.RetrievalTopK, ShouldEqual, 3)
			So(cfg.AuditWorkerCount, ShouldEqual, 4)

			Convey("And untouched fields should keep their defaults", func() {
				So(cfg.SessionShardCount, ShouldEqual, 16)
			})
		})
	})
}

func TestLoadFile(t *testing.T) {
	Convey("Given a YAML config file", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		content := `addr: ":7070"
log_level: warn
retrieval_top_k: 7
agent_weights:
  clinical: 2.0
  communication: 1.0
default_agent_weight: 0.5
`
		So(os.WriteFile(path, []byte(content), 0600), ShouldBeNil)
		t.Setenv("WOUNDSIM_CONFIG", path)

		Convey("When loading", func() {
			cfg, err := config.Load(context.Background())

			Convey("Then file values should win over defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":7070")
				So(cfg.LogLevel, ShouldEqual, "warn")
				So(cfg.RetrievalTopK, ShouldEqual, 7)
				So(cfg.AgentWeights, ShouldResemble, map[string]float64{
					"clinical":      2.0,
					"communication": 1.0,
				})
				So(cfg.DefaultAgentWeight, ShouldEqual, 0.5)
			})
		})

		Convey("When an env var overrides the file", func() {
			t.Setenv("WOUNDSIM_ADDR", ":6060")

			cfg, err := config.Load(context.Background())

			Convey("Then the env value should take precedence", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":6060")
				So(cfg.LogLevel, ShouldEqual, "warn")
			})
		})
	})

	Convey("Given a missing config file", t, func() {
		t.Setenv("WOUNDSIM_CONFIG", "/nonexistent/config.yaml")

		_, err := config.Load(context.Background())

		So(err, ShouldWrap, config.ErrLoadConfig)
	})

	Convey("Given an unparseable config file", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "broken.yaml")
		So(os.WriteFile(path, []byte("addr: [unclosed"), 0600), ShouldBeNil)
		t.Setenv("WOUNDSIM_CONFIG", path)

		_, err := config.Load(context.Background())

		So(err, ShouldWrap, config.ErrLoadConfig)
	})
}

func TestLoadValidation(t *testing.T) {
	Convey("Given invalid configuration values", t, func() {
		Convey("When the address is cleared", func() {
			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			So(os.WriteFile(path, []byte(`addr: ""`), 0600), ShouldBeNil)
			t.Setenv("WOUNDSIM_CONFIG", path)

			_, err := config.Load(context.Background())
			So(err, ShouldWrap, config.ErrInvalidConfig)
		})

		Convey("When retrieval_top_k is not positive", func() {
			t.Setenv("WOUNDSIM_RETRIEVAL_TOP_K", "0")

			_, err := config.Load(context.Background())
			So(err, ShouldWrap, config.ErrInvalidConfig)
		})

		Convey("When the failure rate is out of range", func() {
			t.Setenv("WOUNDSIM_RETRIEVAL_FAILURE_RATE", "1.5")

			_, err := config.Load(context.Background())
			So(err, ShouldWrap, config.ErrInvalidConfig)
		})

		Convey("When the latency range is inverted", func() {
			t.Setenv("WOUNDSIM_RETRIEVAL_LATENCY_MIN_MS", "100")
			t.Setenv("WOUNDSIM_RETRIEVAL_LATENCY_MAX_MS", "50")

			_, err := config.Load(context.Background())
			So(err, ShouldWrap, config.ErrInvalidConfig)
		})
	})
}
