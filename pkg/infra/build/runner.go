package build

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

const versionEnvKey = "DROVER_VERSION"

// Runner executes the configured build command in the working copy. The
// command receives the release version through the DROVER_VERSION
// environment variable and is expected to rewrite version manifests,
// regenerate artifacts, or whatever else must land in the bump commit.
type Runner struct {
	command string
	dir     string
}

// New creates a Runner. The command is executed with `sh -c`, so pipelines
// and multiple statements work as they do in CI scripts.
func New(command, dir string) *Runner {
	return &Runner{
		command: command,
		dir:     dir,
	}
}

// Run executes the build command. A missing command is a no-op so that
// repositories whose bump commit needs no generated changes can skip it.
func (r *Runner) Run(ctx context.Context, version model.Version) error {
	logger := ctxlog.From(ctx)

	if strings.TrimSpace(r.command) == "" {
		logger.Debug("no build command configured, skipping build step")
		return nil
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", r.command)
	cmd.Dir = r.dir
	cmd.Env = append(os.Environ(), versionEnvKey+"="+version.String())

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	logger.Debug("running build step", "command", r.command, "version", version)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return goerr.Wrap(ctx.Err(), "build step interrupted", goerr.V("command", r.command))
		}
		return goerr.Wrap(err, "build step failed",
			goerr.V("command", r.command),
			goerr.V("output", tail(output.Bytes(), 2048)),
			goerr.T(types.TagBuildFailed),
		)
	}

	logger.Debug("build step completed", "version", version)
	return nil
}

// tail keeps the last max bytes of command output for error context.
func tail(b []byte, max int) string {
	if len(b) > max {
		b = b[len(b)-max:]
	}
	return strings.TrimSpace(string(b))
}

var _ interfaces.BuildRunner = (*Runner)(nil)
