package jobruntime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/domonda/go-types/notnull"
	"github.com/ungerik/go-command"
)

// jobFunc is the reflection-erased shape every registered job function is
// reduced to: given a job's raw JSON args, run the body.
type jobFunc func(ctx context.Context, args notnull.JSON) error

// registry maps an explicit job_class name to the function that runs it.
// This is the REDESIGN-FLAGGED replacement for the source's runtime
// reflection over a job-class name: the map key is provided by the caller
// at Register time, never derived by inspecting a type. The only
// reflection left is over a registered function's *argument* type, used to
// unmarshal JSON into it; that is what command.GetJSONArgsFunc does.
type registry struct {
	mu    sync.RWMutex
	funcs map[string]jobFunc
}

func newRegistry() *registry {
	return &registry{funcs: make(map[string]jobFunc)}
}

// Register adds a job class whose body takes the job's raw JSON args and
// does its own decoding.
func (r *registry) Register(jobClass string, fn func(ctx context.Context, args notnull.JSON) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[jobClass] = fn
}

// RegisterFunc adds a job class whose body takes a typed, already-decoded
// argument value. fn must be a function of the shape
// func(context.Context, ArgsType) error; ArgsType is reflected over once,
// at registration time, to build a JSON-decoding adapter via
// command.GetJSONArgsFunc — the argument-shape reflection the spec keeps,
// as distinct from job-class reflection, which this package forbids.
func (r *registry) RegisterFunc(jobClass string, fn any) error {
	argsFunc, err := command.GetJSONArgsFunc(fn)
	if err != nil {
		return fmt.Errorf("jobruntime: RegisterFunc(%q): %w", jobClass, err)
	}
	r.Register(jobClass, func(ctx context.Context, args notnull.JSON) error {
		return argsFunc(ctx, json.RawMessage(args))
	})
	return nil
}

// Unregister removes a job class, if present.
func (r *registry) Unregister(jobClass string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.funcs, jobClass)
}

// IsRegistered reports whether jobClass has a registered function.
func (r *registry) IsRegistered(jobClass string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.funcs[jobClass]
	return ok
}

func (r *registry) lookup(jobClass string) (jobFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[jobClass]
	return fn, ok
}
