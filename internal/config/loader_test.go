package config_test

import (
	"context"
	"errors"
	"os"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/okian/prodplan/internal/config"
	"github.com/okian/prodplan/internal/domain/schedule"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.SolveTimeout(), convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.JobRetention, convey.ShouldEqual, time.Hour)
			convey.So(cfg.ExcessWeight, convey.ShouldEqual, 0)
			convey.So(cfg.Validate(), convey.ShouldBeNil)

			policy, err := cfg.CapacityPolicy()
			convey.So(err, convey.ShouldBeNil)
			convey.So(policy, convey.ShouldEqual, schedule.ExactRegularHours)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("PRODPLAN_ADDR", ":8080")
			_ = os.Setenv("PRODPLAN_QUEUE_SIZE", "50")
			_ = os.Setenv("PRODPLAN_WORKER_COUNT", "3")
			_ = os.Setenv("PRODPLAN_JOB_RETENTION", "15m")
			_ = os.Setenv("PRODPLAN_REGULAR_CAPACITY_POLICY", "bounded")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 50)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.JobRetention, convey.ShouldEqual, 15*time.Minute)
				policy, _ := cfg.CapacityPolicy()
				convey.So(policy, convey.ShouldEqual, schedule.BoundedRegularHours)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(`
# solver settings
addr: ":9090"
worker_count: 8
solve_timeout_ms: 5000
node_limit: 0
log_format: json
`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("PRODPLAN_CONFIG", tmpFile)
			_ = os.Setenv("PRODPLAN_WORKER_COUNT", "2")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 2) // Overridden by env
				convey.So(cfg.SolveTimeout(), convey.ShouldEqual, 5*time.Second)
				convey.So(cfg.NodeLimit, convey.ShouldEqual, 0)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.DedupeSize, convey.ShouldEqual, config.New().DedupeSize) // From defaults
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("PRODPLAN_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("PRODPLAN_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("PRODPLAN_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestConfigValidation(t *testing.T) {
	convey.Convey("Given invalid settings", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		cases := map[string]string{
			"PRODPLAN_ADDR":                    "",
			"PRODPLAN_QUEUE_SIZE":              "0",
			"PRODPLAN_WORKER_COUNT":            "-1",
			"PRODPLAN_SOLVE_TIMEOUT_MS":        "0",
			"PRODPLAN_NODE_LIMIT":              "-5",
			"PRODPLAN_LOG_LEVEL":               "chatty",
			"PRODPLAN_LOG_FORMAT":              "xml",
			"PRODPLAN_REGULAR_CAPACITY_POLICY": "loose",
		}
		for key, value := range cases {
			convey.Convey("When "+key+" is "+value, func() {
				_ = os.Setenv(key, value)
				defer clearConfigEnvVars()

				cfg, err := config.Load(ctx)

				convey.Convey("Then loading fails validation", func() {
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
					convey.So(cfg, convey.ShouldBeNil)
				})
			})
		}
	})
}

// Helper functions.

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, config.EnvPrefix) {
			_ = os.Unsetenv(key)
		}
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "prodplan-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
