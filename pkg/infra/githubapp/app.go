package githubapp

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v75/github"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/goerr/v2"
)

const (
	// GitHub rejects app JWTs living longer than 10 minutes, measured from
	// the issue time. Backdating absorbs clock skew between us and GitHub.
	jwtBackdate = 60 * time.Second
	jwtLifetime = 10 * time.Minute
)

// App authenticates as a GitHub App installation for one repository. It
// mints the app-level JWT itself, discovers the installation when no ID is
// configured, and hands out a per-request transport that keeps the
// installation token fresh.
type App struct {
	appID          int64
	installationID int64
	owner          string
	repo           string
	privateKey     []byte
	signKey        jwk.Key
	baseURL        string
	transport      *ghinstallation.Transport
}

// Option configures an App.
type Option func(*App)

// WithInstallationID pins the installation ID, skipping discovery.
func WithInstallationID(id int64) Option {
	return func(a *App) {
		a.installationID = id
	}
}

// WithBaseURL points API calls at a GitHub Enterprise host or a test server.
func WithBaseURL(baseURL string) Option {
	return func(a *App) {
		a.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// New builds an App for owner/repo from the app ID and its private key PEM.
// When no installation ID is configured it asks GitHub which installation
// covers the repository, which requires one app-JWT authenticated call.
func New(ctx context.Context, appID int64, privateKey []byte, owner, repo string, opts ...Option) (*App, error) {
	if appID <= 0 {
		return nil, goerr.New("github app ID is required")
	}
	if len(privateKey) == 0 {
		return nil, goerr.New("github app private key is required")
	}
	if owner == "" || repo == "" {
		return nil, goerr.New("repository owner and name are required")
	}

	signKey, err := jwk.ParseKey(privateKey, jwk.WithPEM(true))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse github app private key")
	}

	a := &App{
		appID:      appID,
		owner:      owner,
		repo:       repo,
		privateKey: privateKey,
		signKey:    signKey,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.installationID == 0 {
		id, err := a.discoverInstallation(ctx)
		if err != nil {
			return nil, err
		}
		a.installationID = id
		ctxlog.From(ctx).Debug("discovered github app installation",
			"installation_id", id,
			"owner", owner,
			"repo", repo,
		)
	}

	itr, err := ghinstallation.New(http.DefaultTransport, a.appID, a.installationID, a.privateKey)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create installation transport",
			goerr.V("app_id", a.appID),
			goerr.V("installation_id", a.installationID),
		)
	}
	if a.baseURL != "" {
		itr.BaseURL = a.baseURL
	}
	a.transport = itr

	return a, nil
}

// Transport returns an http.RoundTripper that authenticates every request
// with a current installation token.
func (a *App) Transport() http.RoundTripper {
	return a.transport
}

// InstallationID returns the resolved installation ID.
func (a *App) InstallationID() int64 {
	return a.installationID
}

// Token returns a raw installation token, for callers that authenticate
// outside the API client such as git pushes over HTTPS.
func (a *App) Token(ctx context.Context) (string, error) {
	token, err := a.transport.Token(ctx)
	if err != nil {
		return "", goerr.Wrap(err, "failed to issue installation token",
			goerr.V("installation_id", a.installationID),
		)
	}
	return token, nil
}

// AppJWT mints a short-lived RS256 JWT identifying the app itself. Only
// app-level endpoints accept it; everything else wants an installation token.
func (a *App) AppJWT() (string, error) {
	now := time.Now()
	issuedAt := now.Add(-jwtBackdate)

	token, err := jwt.NewBuilder().
		Issuer(strconv.FormatInt(a.appID, 10)).
		IssuedAt(issuedAt).
		Expiration(issuedAt.Add(jwtLifetime)).
		Build()
	if err != nil {
		return "", goerr.Wrap(err, "failed to build app JWT claims")
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256, a.signKey))
	if err != nil {
		return "", goerr.Wrap(err, "failed to sign app JWT")
	}
	return string(signed), nil
}

func (a *App) discoverInstallation(ctx context.Context) (int64, error) {
	signed, err := a.AppJWT()
	if err != nil {
		return 0, err
	}

	gh := github.NewClient(nil).WithAuthToken(signed)
	if a.baseURL != "" {
		base, err := url.Parse(a.baseURL + "/")
		if err != nil {
			return 0, goerr.Wrap(err, "invalid github base URL", goerr.V("base_url", a.baseURL))
		}
		gh.BaseURL = base
	}

	inst, _, err := gh.Apps.FindRepositoryInstallation(ctx, a.owner, a.repo)
	if err != nil {
		return 0, goerr.Wrap(err, "app installation not found for repository",
			goerr.V("owner", a.owner),
			goerr.V("repo", a.repo),
		)
	}
	return inst.GetID(), nil
}

// StaticToken adapts a fixed token, such as a personal access token or the
// Actions-provided GITHUB_TOKEN, to the TokenSource interface.
type StaticToken string

// Token returns the fixed token.
func (t StaticToken) Token(ctx context.Context) (string, error) {
	return string(t), nil
}

var (
	_ interfaces.TokenSource = (*App)(nil)
	_ interfaces.TokenSource = StaticToken("")
)
