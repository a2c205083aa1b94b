// Package exec runs the external tools gitcore drives (git and gh) behind an
// interface, so git operations can be exercised against real repositories in
// production and against scripted responses in tests.
package exec

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"slices"
	"sync"
)

// CommandExecutor runs a command in a directory.
type CommandExecutor interface {
	// Run returns stdout and stderr separately. err is non-nil on a non-zero
	// exit; the streams are still returned so callers can classify it.
	Run(ctx context.Context, dir string, name string, args ...string) (stdout, stderr []byte, err error)

	// Output returns stdout. On a non-zero exit err is an *exec.ExitError
	// carrying stderr.
	Output(ctx context.Context, dir string, name string, args ...string) ([]byte, error)

	// CombinedOutput returns stdout and stderr interleaved.
	CombinedOutput(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

// RealExecutor runs commands with os/exec. Env is appended to the inherited
// environment of every command.
type RealExecutor struct {
	Env []string
}

// NewRealExecutor returns an executor whose commands never wait on a human:
// credential and passphrase prompts fail instead, so an unauthenticated push
// surfaces as an error rather than holding a workspace guard forever.
func NewRealExecutor() *RealExecutor {
	return &RealExecutor{Env: GitEnv(os.Getenv)}
}

// GitEnv returns the variables NewRealExecutor adds to the environment.
//
//   - GIT_TERMINAL_PROMPT=0 and GCM_INTERACTIVE=never disable HTTPS prompts
//   - GIT_OPTIONAL_LOCKS=0 lets concurrent status calls skip index.lock
//   - LC_ALL=C keeps git's messages in English for error classification
//   - GIT_SSH_COMMAND runs ssh in batch mode unless the user configured ssh
func GitEnv(getenv func(string) string) []string {
	env := []string{
		"GIT_TERMINAL_PROMPT=0",
		"GCM_INTERACTIVE=never",
		"GIT_OPTIONAL_LOCKS=0",
		"LC_ALL=C",
	}
	if getenv("GIT_SSH_COMMAND") == "" && getenv("GIT_SSH") == "" {
		env = append(env, "GIT_SSH_COMMAND=ssh -o BatchMode=yes")
	}
	return env
}

func (e *RealExecutor) command(ctx context.Context, dir, name string, args []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}
	return cmd
}

func (e *RealExecutor) Run(ctx context.Context, dir string, name string, args ...string) (stdout, stderr []byte, err error) {
	cmd := e.command(ctx, dir, name, args)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err = cmd.Run()
	return outBuf.Bytes(), errBuf.Bytes(), err
}

func (e *RealExecutor) Output(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	return e.command(ctx, dir, name, args).Output()
}

func (e *RealExecutor) CombinedOutput(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	return e.command(ctx, dir, name, args).CombinedOutput()
}

// MockResponse is the scripted result of a matched command. Hook, when set,
// runs before the response is returned; tests use it to block a command or
// to change the repository underneath a running operation.
type MockResponse struct {
	Stdout []byte
	Stderr []byte
	Err    error
	Hook   func()
}

// CommandMatcher reports whether a rule applies to a command.
type CommandMatcher func(dir, name string, args []string) bool

// MockRule pairs a matcher with its response.
type MockRule struct {
	Match    CommandMatcher
	Response MockResponse
}

// MockCall is one recorded invocation.
type MockCall struct {
	Dir  string
	Name string
	Args []string
}

// MockExecutor answers commands from rules, first match wins. Unmatched
// commands go to the fallback executor, or succeed with no output when there
// is none. Every invocation is recorded, matched or not.
//
// A command issued with an already-canceled context is recorded and fails
// with the context's error without consulting the rules, as os/exec would.
type MockExecutor struct {
	mu       sync.RWMutex
	rules    []MockRule
	calls    []MockCall
	fallback CommandExecutor
}

// NewMockExecutor creates a MockExecutor. fallback may be nil.
func NewMockExecutor(fallback CommandExecutor) *MockExecutor {
	return &MockExecutor{fallback: fallback}
}

// AddRule adds a rule with an arbitrary matcher.
func (e *MockExecutor) AddRule(match CommandMatcher, response MockResponse) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, MockRule{Match: match, Response: response})
}

// AddExactMatch matches name with exactly args.
func (e *MockExecutor) AddExactMatch(name string, args []string, response MockResponse) {
	e.AddRule(func(_, n string, a []string) bool {
		return n == name && slices.Equal(a, args)
	}, response)
}

// AddPrefixMatch matches name when its arguments start with prefixArgs, e.g.
// {"push"} for every push regardless of remote and refspec.
func (e *MockExecutor) AddPrefixMatch(name string, prefixArgs []string, response MockResponse) {
	e.AddRule(func(_, n string, a []string) bool {
		return n == name && hasPrefix(a, prefixArgs)
	}, response)
}

// Calls returns a copy of every recorded invocation in order.
func (e *MockExecutor) Calls() []MockCall {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.calls)
}

// CallsWithPrefix returns the recorded invocations of name whose arguments
// start with prefixArgs.
func (e *MockExecutor) CallsWithPrefix(name string, prefixArgs ...string) []MockCall {
	var out []MockCall
	for _, c := range e.Calls() {
		if c.Name == name && hasPrefix(c.Args, prefixArgs) {
			out = append(out, c)
		}
	}
	return out
}

func hasPrefix(args, prefix []string) bool {
	return len(args) >= len(prefix) && slices.Equal(args[:len(prefix)], prefix)
}

func (e *MockExecutor) record(dir, name string, args []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, MockCall{Dir: dir, Name: name, Args: slices.Clone(args)})
}

// match records the call and returns the first matching response, or nil.
// It returns ctx's error instead when ctx is already done.
func (e *MockExecutor) match(ctx context.Context, dir, name string, args []string) (*MockResponse, error) {
	e.record(dir, name, args)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.RLock()
	var resp *MockResponse
	for _, rule := range e.rules {
		if rule.Match(dir, name, args) {
			r := rule.Response
			resp = &r
			break
		}
	}
	e.mu.RUnlock()

	if resp != nil && resp.Hook != nil {
		resp.Hook()
	}
	return resp, nil
}

func (e *MockExecutor) Run(ctx context.Context, dir string, name string, args ...string) (stdout, stderr []byte, err error) {
	resp, err := e.match(ctx, dir, name, args)
	switch {
	case err != nil:
		return nil, nil, err
	case resp != nil:
		return resp.Stdout, resp.Stderr, resp.Err
	case e.fallback != nil:
		return e.fallback.Run(ctx, dir, name, args...)
	}
	return nil, nil, nil
}

func (e *MockExecutor) Output(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	resp, err := e.match(ctx, dir, name, args)
	switch {
	case err != nil:
		return nil, err
	case resp != nil:
		return resp.Stdout, resp.Err
	case e.fallback != nil:
		return e.fallback.Output(ctx, dir, name, args...)
	}
	return nil, nil
}

func (e *MockExecutor) CombinedOutput(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	resp, err := e.match(ctx, dir, name, args)
	switch {
	case err != nil:
		return nil, err
	case resp != nil:
		return append(slices.Clone(resp.Stdout), resp.Stderr...), resp.Err
	case e.fallback != nil:
		return e.fallback.CombinedOutput(ctx, dir, name, args...)
	}
	return nil, nil
}

var (
	_ CommandExecutor = (*RealExecutor)(nil)
	_ CommandExecutor = (*MockExecutor)(nil)
)
