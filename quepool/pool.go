// Package quepool adapts github.com/domonda/go-sqldb's connection type into
// the scoped-checkout, dedicated-session contract the Locker needs:
// advisory locks are session-scoped, so the Locker's session must never be
// shared with a worker's ad hoc queries.
package quepool

import (
	"context"

	"github.com/domonda/go-errs"
	"github.com/domonda/go-sqldb"
	"github.com/domonda/go-sqldb/pqconn"
)

// Checkouter is the narrow interface workers and the Job runtime depend on
// instead of *Pool directly, so tests can substitute a fake without
// dialing Postgres.
type Checkouter interface {
	Checkout(ctx context.Context, fn func(ctx context.Context, sess Session) error) error
}

// Pooler is the full interface *Pool implements. The Locker depends on this
// instead of *Pool directly, alongside Checkouter for its workers, so tests
// can substitute a fake pool without dialing Postgres.
type Pooler interface {
	Checkouter
	Dedicated(ctx context.Context) (sess Session, release func() error, err error)
}

// Pool hands out Sessions backed by a shared sqldb.Config. Each Checkout or
// Dedicated call opens a fresh physical connection: that is what gives a
// Dedicated session the session-affinity advisory locks require, since
// nothing else can ever be handed that same physical backend connection.
type Pool struct {
	config sqldb.Config
}

// New returns a Pool that dials connections using config.
func New(config sqldb.Config) *Pool {
	return &Pool{config: config}
}

// Checkout opens a transient session, invokes fn, and always closes the
// session afterward regardless of fn's outcome.
func (p *Pool) Checkout(ctx context.Context, fn func(ctx context.Context, sess Session) error) (err error) {
	defer errs.WrapWithFuncParams(&err, ctx)

	conn, err := pqconn.New(ctx, &p.config)
	if err != nil {
		return err
	}
	sess := &sqldbSession{conn: conn}
	defer sess.Close()

	return fn(ctx, sess)
}

// Dedicated opens a session that the caller owns exclusively until release
// is called. The Locker holds exactly one of these for its entire
// lifetime.
func (p *Pool) Dedicated(ctx context.Context) (sess Session, release func() error, err error) {
	defer errs.WrapWithFuncParams(&err, ctx)

	conn, err := pqconn.New(ctx, &p.config)
	if err != nil {
		return nil, nil, err
	}
	s := &sqldbSession{conn: conn}
	return s, s.Close, nil
}

// transactionKey marks ctx as already running inside a Transaction call, so
// a nested Transaction call on the same logical call chain passes through
// instead of issuing a nested BEGIN, which Postgres does not support.
type transactionKey struct{}

// InTransaction reports whether ctx was derived from a Transaction call
// still in progress.
func InTransaction(ctx context.Context) bool {
	inTx, _ := ctx.Value(transactionKey{}).(bool)
	return inTx
}

// Transaction runs fn within a BEGIN/COMMIT wrapping sess, rolling back on
// any error or panic. If ctx already carries an in-progress Transaction
// (i.e. InTransaction(ctx) is true), it passes through and runs fn(ctx)
// directly without a nested BEGIN/COMMIT of its own; the outermost
// Transaction call owns the commit/rollback decision.
func Transaction(ctx context.Context, sess Session, fn func(ctx context.Context) error) (err error) {
	defer errs.WrapWithFuncParams(&err, ctx)

	if InTransaction(ctx) {
		return fn(ctx)
	}
	ctx = context.WithValue(ctx, transactionKey{}, true)

	if err = sess.Exec(ctx, `BEGIN`); err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sess.Exec(ctx, `ROLLBACK`)
			panic(p)
		}
	}()

	if err = fn(ctx); err != nil {
		if rbErr := sess.Exec(ctx, `ROLLBACK`); rbErr != nil {
			return errs.Combine(err, rbErr)
		}
		return err
	}
	return sess.Exec(ctx, `COMMIT`)
}
