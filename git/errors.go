package git

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error so callers can choose between showing the error,
// prompting for credentials, and retrying.
type Kind string

const (
	KindNotFound           Kind = "NotFound"
	KindInvalidInput       Kind = "InvalidInput"
	KindConflict           Kind = "Conflict"
	KindIO                 Kind = "IoError"
	KindAuth               Kind = "AuthError"
	KindNetwork            Kind = "NetworkError"
	KindGitHubAPI          Kind = "GitHubApiError"
	KindNoRemoteConfigured Kind = "NoRemoteConfigured"
	KindNotGitHub          Kind = "NotGitHub"
)

// Reasons wrapped by Error. Match them with errors.Is.
var (
	ErrWorkspaceNotFound  = errors.New("workspace not found")
	ErrRepositoryNotFound = errors.New("no git repository found")
	ErrPathNotFound       = errors.New("path not found")
	ErrCommitNotFound     = errors.New("commit not found")
	ErrBranchNotFound     = errors.New("branch not found")
	ErrEmptyMessage       = errors.New("commit message is empty")
	ErrInvalidName        = errors.New("invalid branch name")
	ErrInvalidPath        = errors.New("invalid path")
	ErrNothingStaged      = errors.New("nothing staged to commit")
	ErrDirtyWorkingTree   = errors.New("local changes would be overwritten")
	ErrBranchExists       = errors.New("branch already exists")
	ErrMergeConflict      = errors.New("merge conflict")
	ErrPushRejected       = errors.New("push rejected by remote")
	ErrNoRemote           = errors.New("no remote configured")
	ErrNotGitHub          = errors.New("remote is not hosted on GitHub")
)

// Error is the structured error returned by every operation.
type Error struct {
	Kind   Kind
	Op     string // operation name, e.g. "stage"
	Step   string // failing sub-step of a composite operation ("fetch", "pull", "push")
	Status int    // upstream HTTP status for KindGitHubAPI
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		if e.Step != "" {
			b.WriteString(" (" + e.Step + ")")
		}
		b.WriteString(": ")
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString(string(e.Kind))
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an Error of kind for op.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of err. Errors that are not *Error are IoError;
// a nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindIO
}

// StepOf returns the failing sub-step recorded on err, if any.
func StepOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Step
	}
	return ""
}

func notFound(op string, reason error, subject string) *Error {
	return NewError(KindNotFound, op, fmt.Errorf("%w: %s", reason, subject))
}

func invalid(op string, reason error, detail string) *Error {
	if detail == "" {
		return NewError(KindInvalidInput, op, reason)
	}
	return NewError(KindInvalidInput, op, fmt.Errorf("%w: %s", reason, detail))
}

func conflict(op string, reason error, detail string) *Error {
	if detail == "" {
		return NewError(KindConflict, op, reason)
	}
	return NewError(KindConflict, op, fmt.Errorf("%w: %s", reason, detail))
}

// ioError wraps a failed git invocation.
func ioError(op string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewError(KindIO, op, err)
}

var (
	authPatterns = []string{
		"authentication failed",
		"permission denied",
		"could not read username",
		"could not read password",
		"terminal prompts disabled",
		"invalid username or password",
		"invalid credentials",
		"access denied",
		"returned error: 401",
		"returned error: 403",
		"repository not found",
		"host key verification failed",
	}
	networkPatterns = []string{
		"could not resolve host",
		"could not resolve hostname",
		"connection refused",
		"connection timed out",
		"operation timed out",
		"network is unreachable",
		"no route to host",
		"failed to connect",
		"connection reset",
		"unable to access",
		"could not read from remote repository",
		"the remote end hung up unexpectedly",
		"ssl certificate",
		"ssl_connect",
		"tls handshake",
		"gnutls_handshake",
	}
	conflictPatterns = []string{
		"conflict",
		"automatic merge failed",
		"could not apply",
		"fix conflicts",
	}
	rejectedPatterns = []string{
		"[rejected]",
		"non-fast-forward",
		"fetch first",
		"failed to push some refs",
	}
)

// classifyRemote maps git's stderr from a remote operation onto a Kind.
// Auth is checked before network because git reports credential failures
// alongside generic "unable to access" lines.
func classifyRemote(op, stderr string, err error) *Error {
	msg := strings.TrimSpace(stderr)
	if msg == "" && err != nil {
		msg = err.Error()
	}
	lower := strings.ToLower(msg)

	contains := func(patterns []string) bool {
		for _, p := range patterns {
			if strings.Contains(lower, p) {
				return true
			}
		}
		return false
	}

	switch {
	case contains(authPatterns):
		return NewError(KindAuth, op, errors.New(msg))
	case contains(networkPatterns):
		return NewError(KindNetwork, op, errors.New(msg))
	case contains(conflictPatterns):
		return conflict(op, ErrMergeConflict, msg)
	case contains(rejectedPatterns):
		return conflict(op, ErrPushRejected, msg)
	default:
		return NewError(KindIO, op, errors.New(msg))
	}
}
