package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/drover/pkg/cli/config"
)

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "drover.toml")
	gt.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeSettings(t, `
trunk = "develop"
remote = "upstream"
build = "make bump"
poll_interval = "10s"
timeout = "45m"
body_file = "docs/release.md"
`)

	f, err := config.LoadFile(path)
	gt.NoError(t, err)
	gt.NotNil(t, f)
	gt.Value(t, f.Trunk).Equal("develop")
	gt.Value(t, f.Remote).Equal("upstream")
	gt.Value(t, f.Build).Equal("make bump")
	gt.Value(t, f.PollInterval).Equal("10s")
	gt.Value(t, f.Timeout).Equal("45m")
	gt.Value(t, f.BodyFile).Equal("docs/release.md")
}

func TestLoadFileMissing(t *testing.T) {
	f, err := config.LoadFile(filepath.Join(t.TempDir(), "no-such.toml"))
	gt.NoError(t, err)
	gt.True(t, f == nil)
}

func TestLoadFileInvalid(t *testing.T) {
	path := writeSettings(t, `trunk = [broken`)

	_, err := config.LoadFile(path)
	gt.Error(t, err)
}

func TestApplyFileSeedsDefaults(t *testing.T) {
	cfg := &config.Release{}
	file := &config.File{
		Trunk:        "develop",
		Build:        "make bump",
		PollInterval: "10s",
	}

	gt.NoError(t, cfg.ApplyFile(file))
	gt.Value(t, cfg.Trunk).Equal("develop")
	gt.Value(t, cfg.BuildCommand).Equal("make bump")
	gt.Value(t, cfg.PollInterval).Equal(10 * time.Second)

	// Untouched settings fall back to the built-in defaults
	gt.Value(t, cfg.Remote).Equal("origin")
	gt.Value(t, cfg.Timeout).Equal(time.Duration(0))
}

func TestApplyFileFlagsWin(t *testing.T) {
	cfg := &config.Release{
		Trunk:        "main",
		PollInterval: 5 * time.Second,
	}
	file := &config.File{
		Trunk:        "develop",
		PollInterval: "10s",
	}

	gt.NoError(t, cfg.ApplyFile(file))
	gt.Value(t, cfg.Trunk).Equal("main")
	gt.Value(t, cfg.PollInterval).Equal(5 * time.Second)
}

func TestApplyFileWithoutFile(t *testing.T) {
	cfg := &config.Release{}

	gt.NoError(t, cfg.ApplyFile(nil))
	gt.Value(t, cfg.Trunk).Equal("main")
	gt.Value(t, cfg.Remote).Equal("origin")
	gt.Value(t, cfg.PollInterval).Equal(30 * time.Second)
}

func TestApplyFileBadDuration(t *testing.T) {
	cfg := &config.Release{}
	file := &config.File{PollInterval: "every minute"}

	gt.Error(t, cfg.ApplyFile(file))
}
