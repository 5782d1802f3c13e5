package que

import "github.com/domonda/go-errs"

// Sentinel errors returned by this package and by que-aware collaborators.
const (
	// ErrJobNotFound names the case of a handle whose row no longer
	// exists. Workers do not return it: a row disappearing between lock and
	// load means the job already ran or was destroyed by another process,
	// and the worker treats that as success.
	ErrJobNotFound errs.Sentinel = "que: job not found"

	// ErrLockerStopped names the case of an operation attempted after a
	// Locker has transitioned to the stopped state. Locker methods do not
	// return it: Stop and StopSync on a stopped Locker are no-ops.
	ErrLockerStopped errs.Sentinel = "que: locker stopped"

	// ErrBufferClosed is returned by Buffer.Push after Buffer.Stop.
	ErrBufferClosed errs.Sentinel = "que: buffer closed"
)
