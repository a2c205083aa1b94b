// Package ghapi reads issues, pull requests and review comments from GitHub
// for repositories whose remote is hosted there.
package ghapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/google/go-github/v72/github"

	"github.com/zhubert/gitcore/config"
	pexec "github.com/zhubert/gitcore/exec"
	"github.com/zhubert/gitcore/git"
	"github.com/zhubert/gitcore/logger"
)

// defaultPerPage is the page size for every list request.
const defaultPerPage = 50

var defaultTokenEnv = []string{"GITHUB_TOKEN", "GH_TOKEN"}

// Compile-time interface satisfaction check.
var _ SettingsProvider = (*config.Config)(nil)

// SettingsProvider supplies the GitHub section of the settings.
type SettingsProvider interface {
	GetGitHub() config.GitHubSettings
}

// Client is a read-only GitHub API client. The token is resolved on first
// use: the configured environment variables are tried in order, then
// `gh auth token`. Without a token requests are anonymous.
type Client struct {
	settings   config.GitHubSettings
	executor   pexec.CommandExecutor
	httpClient *http.Client

	once   sync.Once
	api    *github.Client
	apiErr error
}

// New creates a Client using settings from cfg and executor for the gh CLI.
func New(cfg SettingsProvider, executor pexec.CommandExecutor) *Client {
	return NewWithClient(cfg, executor, &http.Client{})
}

// NewWithClient creates a Client with a custom HTTP client (for testing).
func NewWithClient(cfg SettingsProvider, executor pexec.CommandExecutor, httpClient *http.Client) *Client {
	var settings config.GitHubSettings
	if cfg != nil {
		settings = cfg.GetGitHub()
	}
	if executor == nil {
		executor = pexec.NewRealExecutor()
	}
	return &Client{
		settings:   settings,
		executor:   executor,
		httpClient: httpClient,
	}
}

// client builds the go-github client once, resolving the token. The result
// is shared by every later request, so the lookup ignores the first caller's
// cancellation.
func (c *Client) client(ctx context.Context) (*github.Client, error) {
	c.once.Do(func() {
		gh := github.NewClient(c.httpClient)
		if token := c.resolveToken(context.WithoutCancel(ctx)); token != "" {
			gh = gh.WithAuthToken(token)
		}
		if c.settings.BaseURL != "" {
			base := c.settings.BaseURL
			if !strings.HasSuffix(base, "/") {
				base += "/"
			}
			u, err := url.Parse(base)
			if err != nil {
				c.apiErr = git.NewError(git.KindInvalidInput, "github", err)
				return
			}
			gh.BaseURL = u
		}
		c.api = gh
	})
	return c.api, c.apiErr
}

func (c *Client) resolveToken(ctx context.Context) string {
	log := logger.WithComponent("github")

	envs := c.settings.TokenEnv
	if len(envs) == 0 {
		envs = defaultTokenEnv
	}
	for _, name := range envs {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			log.Debug("using token from environment", "var", name)
			return v
		}
	}

	if !c.settings.UseGH() {
		return ""
	}
	args := []string{"auth", "token"}
	if host := c.enterpriseHost(); host != "" {
		args = append(args, "--hostname", host)
	}
	out, err := c.executor.Output(ctx, "", "gh", args...)
	if err != nil {
		log.Debug("no token from gh, requests are anonymous", "error", err)
		return ""
	}
	return strings.TrimSpace(string(out))
}

// enterpriseHost is the web host of a configured GitHub Enterprise server,
// "" for github.com.
func (c *Client) enterpriseHost() string {
	if c.settings.BaseURL == "" {
		return ""
	}
	u, err := url.Parse(c.settings.BaseURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "api.github.com" {
		return ""
	}
	return strings.TrimPrefix(host, "api.")
}

// isGitHubHost reports whether host serves GitHub repositories.
func (c *Client) isGitHubHost(host string) bool {
	switch host {
	case "github.com", "www.github.com", "ssh.github.com":
		return true
	}
	return host != "" && host == c.enterpriseHost()
}

// mapError turns a go-github failure into a *git.Error. API responses keep
// their HTTP status; anything that never got a response is a network error.
// The caller's own cancellation or deadline is returned unchanged.
func mapError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var (
		rateErr  *github.RateLimitError
		abuseErr *github.AbuseRateLimitError
		respErr  *github.ErrorResponse
		status   int
	)
	switch {
	case errors.As(err, &rateErr):
		status = statusOf(rateErr.Response)
	case errors.As(err, &abuseErr):
		status = statusOf(abuseErr.Response)
	case errors.As(err, &respErr):
		status = statusOf(respErr.Response)
	default:
		return git.NewError(git.KindNetwork, op, err)
	}
	e := git.NewError(git.KindGitHubAPI, op, err)
	e.Status = status
	logger.WithComponent("github").Warn("github api error", "op", op, "status", status, "error", err)
	return e
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
