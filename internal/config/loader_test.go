package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/matchreel/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	"MATCHREEL_CONFIG",
	"MATCHREEL_ADDR",
	"MATCHREEL_LOG_LEVEL",
	"MATCHREEL_GAME_API_URL",
	"MATCHREEL_RENDER_URL",
	"MATCHREEL_API_TOKEN",
	"MATCHREEL_MAX_PADDING",
	"MATCHREEL_DEFAULT_BEFORE_PADDING",
	"MATCHREEL_CLIP_SELECTION_CAP",
	"MATCHREEL_AUTOSAVE_DELAY_MS",
	"MATCHREEL_INCLUDE_SCORELINE",
}

func clearConfigEnvVars() {
	for _, k := range configEnvVars {
		_ = os.Unsetenv(k)
	}
}

func createTempConfigFile(content string) string {
	f, err := os.CreateTemp("", "matchreel-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		panic(err)
	}
	return f.Name()
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.GameAPIURL, convey.ShouldEqual, "http://localhost:9081")
				convey.So(cfg.AutosaveDelayMS, convey.ShouldEqual, 1000)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("MATCHREEL_ADDR", ":8080")
			_ = os.Setenv("MATCHREEL_GAME_API_URL", "https://games.example.com/v1")
			_ = os.Setenv("MATCHREEL_API_TOKEN", "tok")
			_ = os.Setenv("MATCHREEL_CLIP_SELECTION_CAP", "8")
			_ = os.Setenv("MATCHREEL_INCLUDE_SCORELINE", "true")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.GameAPIURL, convey.ShouldEqual, "https://games.example.com/v1")
				convey.So(cfg.APIToken, convey.ShouldEqual, "tok")
				convey.So(cfg.ClipSelectionCap, convey.ShouldEqual, 8)
				convey.So(cfg.IncludeScoreline, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
max_padding: 30
default_before_padding: 10
autosave_delay_ms: 250
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("MATCHREEL_CONFIG", tmpFile)
			_ = os.Setenv("MATCHREEL_ADDR", ":8080")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.MaxPadding, convey.ShouldEqual, 30)
				convey.So(cfg.DefaultBeforePadding, convey.ShouldEqual, 10)
				convey.So(cfg.DefaultAfterPadding, convey.ShouldEqual, 3)
				convey.So(cfg.AutosaveDelayMS, convey.ShouldEqual, 250)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("MATCHREEL_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("MATCHREEL_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("MATCHREEL_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the default padding exceeds the maximum", func() {
			_ = os.Setenv("MATCHREEL_MAX_PADDING", "4")

			_, err := config.Load(ctx)

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "default_before_padding")
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("MATCHREEL_AUTOSAVE_DELAY_MS", "soon")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}
