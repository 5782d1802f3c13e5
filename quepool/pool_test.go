package quepool_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domonda/go-que/quepool"
)

// fakeSession records every statement Exec'd on it; good enough to verify
// Transaction's BEGIN/COMMIT/ROLLBACK sequencing without a real connection.
type fakeSession struct {
	execed  []string
	failOn  string
	execErr error
}

func (s *fakeSession) Exec(ctx context.Context, query string, args ...any) error {
	s.execed = append(s.execed, query)
	if s.failOn != "" && query == s.failOn {
		return s.execErr
	}
	return nil
}

func (s *fakeSession) QueryRow(ctx context.Context, query string, args ...any) quepool.RowScanner {
	panic("not used by Transaction")
}

func (s *fakeSession) QueryRows(ctx context.Context, query string, args ...any) (quepool.Rows, error) {
	panic("not used by Transaction")
}

func TestTransactionCommitsOnSuccess(t *testing.T) {
	sess := &fakeSession{}
	err := quepool.Transaction(context.Background(), sess, func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"BEGIN", "COMMIT"}, sess.execed)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	sess := &fakeSession{}
	boom := errors.New("boom")
	err := quepool.Transaction(context.Background(), sess, func(ctx context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"BEGIN", "ROLLBACK"}, sess.execed)
}

func TestTransactionRollsBackOnPanic(t *testing.T) {
	sess := &fakeSession{}
	assert.Panics(t, func() {
		_ = quepool.Transaction(context.Background(), sess, func(ctx context.Context) error {
			panic("boom")
		})
	})
	assert.Equal(t, []string{"BEGIN", "ROLLBACK"}, sess.execed)
}

func TestTransactionNestedCallPassesThrough(t *testing.T) {
	sess := &fakeSession{}
	var innerRan bool
	err := quepool.Transaction(context.Background(), sess, func(ctx context.Context) error {
		assert.True(t, quepool.InTransaction(ctx))
		return quepool.Transaction(ctx, sess, func(ctx context.Context) error {
			innerRan = true
			return nil
		})
	})
	require.NoError(t, err)
	assert.True(t, innerRan)
	// Only the outer call issues BEGIN/COMMIT; the nested call passes through.
	assert.Equal(t, []string{"BEGIN", "COMMIT"}, sess.execed)
}

func TestTransactionNestedCallPassesThroughError(t *testing.T) {
	sess := &fakeSession{}
	boom := errors.New("boom")
	err := quepool.Transaction(context.Background(), sess, func(ctx context.Context) error {
		return quepool.Transaction(ctx, sess, func(ctx context.Context) error {
			return boom
		})
	})
	// The nested call does not roll back on its own; the outer transaction
	// does, since it owns the BEGIN.
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"BEGIN", "ROLLBACK"}, sess.execed)
}

func TestInTransactionFalseOutsideTransaction(t *testing.T) {
	assert.False(t, quepool.InTransaction(context.Background()))
}
