package gitx

import (
	"bytes"
	"context"
	"encoding/base64"
	"os/exec"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// Client runs git against a local working copy. It shells out to the git
// binary; the working copy and its remote are the only state it touches.
type Client struct {
	dir         string
	remote      string
	userName    string
	userEmail   string
	tokenSource interfaces.TokenSource
}

// Option configures a Client.
type Option func(*Client)

// WithRemote overrides the remote name (default "origin").
func WithRemote(name string) Option {
	return func(c *Client) {
		c.remote = name
	}
}

// WithIdentity sets the committer identity used for commits and tags. When
// unset, the repository's own configuration applies.
func WithIdentity(name, email string) Option {
	return func(c *Client) {
		c.userName = name
		c.userEmail = email
	}
}

// WithTokenSource authenticates pushes over HTTPS with an installation token,
// injected as an AUTHORIZATION header the way actions/checkout does.
func WithTokenSource(ts interfaces.TokenSource) Option {
	return func(c *Client) {
		c.tokenSource = ts
	}
}

// New creates a Client for the repository at dir.
func New(dir string, opts ...Option) *Client {
	c := &Client{
		dir:    dir,
		remote: "origin",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListTags returns all tag names known to the repository.
func (c *Client) ListTags(ctx context.Context) ([]types.TagName, error) {
	out, err := c.run(ctx, "tag", "--list")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tags")
	}

	var tags []types.TagName
	for _, line := range strings.Split(out, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			tags = append(tags, types.TagName(name))
		}
	}
	return tags, nil
}

// CreateBranch creates the named branch at the current HEAD and switches the
// working tree to it.
func (c *Client) CreateBranch(ctx context.Context, name types.BranchName) error {
	if _, err := c.run(ctx, "switch", "-c", name.String()); err != nil {
		return goerr.Wrap(err, "failed to create release branch", goerr.V("branch", name))
	}
	return nil
}

// CommitAll stages every working-tree change and commits it.
func (c *Client) CommitAll(ctx context.Context, message string) (types.CommitSHA, error) {
	if _, err := c.run(ctx, "add", "-A"); err != nil {
		return "", goerr.Wrap(err, "failed to stage working tree changes")
	}

	args := append(c.identityArgs(), "commit", "-m", message)
	if _, err := c.run(ctx, args...); err != nil {
		return "", goerr.Wrap(err, "failed to commit version bump", goerr.V("message", message))
	}

	sha, err := c.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", goerr.Wrap(err, "failed to resolve HEAD after commit")
	}
	return types.CommitSHA(sha), nil
}

// PushBranch pushes the branch to the remote, creating it there. A rejected
// push means the remote already carries a diverging branch of this name,
// which signals a release already in flight; it is tagged for the
// orchestrator to treat as a hard stop.
func (c *Client) PushBranch(ctx context.Context, name types.BranchName) error {
	args, err := c.authArgs(ctx)
	if err != nil {
		return err
	}
	args = append(args, "push", "-u", c.remote, name.String())

	if _, stderr, err := c.exec(ctx, args...); err != nil {
		if isRejectedPush(stderr) {
			return goerr.Wrap(err, "branch push rejected by remote",
				goerr.V("branch", name),
				goerr.V("stderr", stderr),
				goerr.T(types.TagPushRejected),
			)
		}
		return goerr.Wrap(err, "failed to push release branch",
			goerr.V("branch", name),
			goerr.V("stderr", stderr),
		)
	}

	ctxlog.From(ctx).Debug("pushed release branch", "branch", name, "remote", c.remote)
	return nil
}

// CreateTag creates an annotated tag pointing at the given commit.
func (c *Client) CreateTag(ctx context.Context, tag types.TagName, message string, commit types.CommitSHA) error {
	args := append(c.identityArgs(), "tag", "-a", tag.String(), "-m", message, commit.String())
	if _, err := c.run(ctx, args...); err != nil {
		return goerr.Wrap(err, "failed to create annotated tag",
			goerr.V("tag", tag),
			goerr.V("commit", commit),
		)
	}
	return nil
}

// PushTag pushes a single tag to the remote.
func (c *Client) PushTag(ctx context.Context, tag types.TagName) error {
	args, err := c.authArgs(ctx)
	if err != nil {
		return err
	}
	args = append(args, "push", c.remote, "refs/tags/"+tag.String())

	if _, err := c.run(ctx, args...); err != nil {
		return goerr.Wrap(err, "failed to push tag", goerr.V("tag", tag))
	}

	ctxlog.From(ctx).Debug("pushed tag", "tag", tag, "remote", c.remote)
	return nil
}

// identityArgs yields -c overrides for the committer identity, when set.
func (c *Client) identityArgs() []string {
	if c.userName == "" {
		return nil
	}
	return []string{
		"-c", "user.name=" + c.userName,
		"-c", "user.email=" + c.userEmail,
	}
}

// authArgs yields the extraheader override carrying the installation token.
func (c *Client) authArgs(ctx context.Context) ([]string, error) {
	if c.tokenSource == nil {
		return nil, nil
	}

	token, err := c.tokenSource.Token(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get token for git push")
	}

	cred := base64.StdEncoding.EncodeToString([]byte("x-access-token:" + token))
	return []string{"-c", "http.extraheader=AUTHORIZATION: basic " + cred}, nil
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	stdout, stderr, err := c.exec(ctx, args...)
	if err != nil {
		return "", goerr.Wrap(err, "git command failed",
			goerr.V("args", redactArgs(args)),
			goerr.V("stderr", stderr),
		)
	}
	return stdout, nil
}

func (c *Client) exec(ctx context.Context, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", c.dir}, args...)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return strings.TrimSpace(stdout.String()), strings.TrimSpace(stderr.String()), err
}

// redactArgs hides the extraheader override, which carries credentials.
func redactArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 0; i < len(out)-1; i++ {
		if out[i] == "-c" && strings.HasPrefix(out[i+1], "http.extraheader=") {
			out[i+1] = "http.extraheader=[REDACTED]"
		}
	}
	return out
}

// isRejectedPush detects a remote refusing the ref update, as opposed to
// transport or authentication failures.
func isRejectedPush(stderr string) bool {
	return strings.Contains(stderr, "[rejected]") ||
		strings.Contains(stderr, "failed to push some refs") ||
		strings.Contains(stderr, "non-fast-forward")
}

var _ interfaces.GitRepo = (*Client)(nil)
