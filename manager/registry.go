package manager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/zhubert/gitcore/git"
	"github.com/zhubert/gitcore/logger"
)

// WorkspaceSource maps workspace IDs to their base directories.
//
// *config.Config satisfies this interface implicitly.
type WorkspaceSource interface {
	WorkspaceDir(id string) (string, bool)
}

// RootResolver finds the repository root for a directory.
type RootResolver interface {
	ResolveRoot(ctx context.Context, dir string) (string, error)
}

// Entry is the cached state of one workspace.
//
// Thread Safety:
// Dir and Root are immutable after creation. The cached remote is protected
// by an internal mutex so readers holding the shared guard can fill it.
type Entry struct {
	ID   string
	Dir  string // base directory the workspace was opened with
	Root string // resolved repository root

	// guard is shared by every entry resolving to the same root, so
	// mutations through different workspace IDs still never interleave.
	guard *sync.RWMutex

	mu        sync.Mutex
	remote    git.Remote
	hasRemote bool
}

func (e *Entry) cachedRemote() (git.Remote, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remote, e.hasRemote
}

func (e *Entry) setRemote(r git.Remote) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.remote, e.hasRemote = r, true
}

func (e *Entry) clearRemote() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.remote, e.hasRemote = git.Remote{}, false
}

// Registry is the process-wide table of workspace entries.
//
// The registry mutex protects the entry and guard maps; each entry's guard
// serializes operations on its repository.
type Registry struct {
	source   WorkspaceSource
	resolver RootResolver

	mu      sync.Mutex
	entries map[string]*Entry
	guards  map[string]*sync.RWMutex // keyed by repository root
	gens    map[string]uint64        // bumped by Invalidate and Remove
	group   singleflight.Group
}

// NewRegistry creates an empty registry.
func NewRegistry(source WorkspaceSource, resolver RootResolver) *Registry {
	return &Registry{
		source:   source,
		resolver: resolver,
		entries:  make(map[string]*Entry),
		guards:   make(map[string]*sync.RWMutex),
		gens:     make(map[string]uint64),
	}
}

// Lookup returns the cached entry for id without resolving it.
func (r *Registry) Lookup(id string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	return e, ok
}

// Dir returns the base directory of a workspace without resolving its root.
func (r *Registry) Dir(id string) (string, error) {
	if e, ok := r.Lookup(id); ok {
		return e.Dir, nil
	}
	dir, ok := r.source.WorkspaceDir(id)
	if !ok {
		return "", workspaceNotFound(id)
	}
	return dir, nil
}

// GetOrCreate returns the entry for id, resolving and caching its root on
// first access. Concurrent first accesses share one resolution and observe
// the same entry. A resolution that started before an Invalidate or Remove
// of id still answers its waiters but is not cached.
func (r *Registry) GetOrCreate(ctx context.Context, id string) (*Entry, error) {
	if e, ok := r.Lookup(id); ok {
		return e, nil
	}

	v, err, _ := r.group.Do(id, func() (any, error) {
		r.mu.Lock()
		if e, ok := r.entries[id]; ok {
			r.mu.Unlock()
			return e, nil
		}
		gen := r.gens[id]
		r.mu.Unlock()

		dir, ok := r.source.WorkspaceDir(id)
		if !ok {
			return nil, workspaceNotFound(id)
		}
		// The resolution is shared by every waiter, so one caller giving
		// up must not fail the others.
		root, err := r.resolver.ResolveRoot(context.WithoutCancel(ctx), dir)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		guard, ok := r.guards[root]
		if !ok {
			guard = &sync.RWMutex{}
			r.guards[root] = guard
		}
		e := &Entry{ID: id, Dir: dir, Root: root, guard: guard}
		if r.gens[id] != gen {
			logger.WithWorkspace(id).Debug("discarding stale resolution", "dir", dir, "root", root)
			return e, nil
		}
		r.entries[id] = e
		logger.WithWorkspace(id).Info("workspace resolved", "dir", dir, "root", root)
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

// Invalidate drops the cached root and remote for id. The next access
// resolves again.
func (r *Registry) Invalidate(id string) {
	r.mu.Lock()
	delete(r.entries, id)
	r.gens[id]++
	r.mu.Unlock()
	r.group.Forget(id)
	logger.WithWorkspace(id).Debug("workspace invalidated")
}

// Remove drops the entry for a closed workspace. It reports whether an entry
// existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	_, ok := r.entries[id]
	delete(r.entries, id)
	r.gens[id]++
	r.mu.Unlock()
	r.group.Forget(id)
	if ok {
		logger.WithWorkspace(id).Info("workspace closed")
	}
	return ok
}

// WithExclusive runs fn holding the workspace's write guard.
func (r *Registry) WithExclusive(ctx context.Context, id, op string, fn func(context.Context, *Entry) error) error {
	_, err := guarded(ctx, r, id, op, true, func(ctx context.Context, e *Entry) (struct{}, error) {
		return struct{}{}, fn(ctx, e)
	})
	return err
}

// WithShared runs fn holding the workspace's read guard.
func (r *Registry) WithShared(ctx context.Context, id, op string, fn func(context.Context, *Entry) error) error {
	_, err := guarded(ctx, r, id, op, false, func(ctx context.Context, e *Entry) (struct{}, error) {
		return struct{}{}, fn(ctx, e)
	})
	return err
}

// guarded resolves id and runs fn under the entry's guard on its own
// goroutine. If ctx is done before the guard is acquired fn never runs. Once
// fn has started it runs to completion under a context detached from ctx;
// a caller whose ctx ends first gets ctx.Err() and the guard is released
// when fn returns.
func guarded[T any](ctx context.Context, r *Registry, id, op string, exclusive bool, fn func(context.Context, *Entry) (T, error)) (T, error) {
	var zero T

	e, err := r.GetOrCreate(ctx, id)
	if err != nil {
		return zero, err
	}

	log := logger.WithWorkspace(id).With("op", op, "op_id", uuid.NewString())
	start := time.Now()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)

	go func() {
		if exclusive {
			e.guard.Lock()
			defer e.guard.Unlock()
		} else {
			e.guard.RLock()
			defer e.guard.RUnlock()
		}
		if err := ctx.Err(); err != nil {
			log.Debug("operation abandoned before start", "error", err)
			done <- result{err: err}
			return
		}
		val, err := fn(context.WithoutCancel(ctx), e)
		log.Debug("operation finished", "exclusive", exclusive, "duration", time.Since(start), "error", err)
		done <- result{val: val, err: err}
	}()

	select {
	case res := <-done:
		return res.val, res.err
	case <-ctx.Done():
		log.Debug("caller stopped waiting", "error", ctx.Err())
		return zero, ctx.Err()
	}
}

func workspaceNotFound(id string) error {
	return git.NewError(git.KindNotFound, "workspace", fmt.Errorf("%w: %s", git.ErrWorkspaceNotFound, id))
}
