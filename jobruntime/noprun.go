package jobruntime

import (
	"context"

	"github.com/domonda/go-que"
)

// NopRuntime always succeeds immediately without running anything,
// adapted from the teacher's DoNothingService/NopQueue pattern. Useful to
// smoke-test Locker/Worker/Buffer wiring without a real job body: every
// handle it receives has its advisory lock released on the next poll-loop
// tick, but the job row is not deleted, so the job can be locked again.
type NopRuntime struct{}

// Run implements Runtime by doing nothing and returning nil.
func (NopRuntime) Run(ctx context.Context, job *que.Job) error {
	return nil
}
