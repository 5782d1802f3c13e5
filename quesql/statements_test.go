package quesql_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/domonda/go-que/quesql"
)

func TestPollJobsNeverUsesTheFlatForm(t *testing.T) {
	stmt := quesql.PollJobs("que_jobs")
	assert.Contains(t, stmt, "WITH RECURSIVE")
	assert.Contains(t, stmt, "pg_try_advisory_lock")
	assert.Contains(t, stmt, "que_jobs")
	assert.NotContains(t, stmt, "SELECT pg_try_advisory_lock(job_id) FROM que_jobs")
}

func TestPollJobsNeverReferencesItselfInASubquery(t *testing.T) {
	stmt := quesql.PollJobs("que_jobs")
	// Postgres only allows the recursive term to reference locked_candidates
	// once, directly in its FROM clause (as "prev"); a scalar subquery
	// re-counting it ("SELECT count(*) FROM locked_candidates ...") is
	// illegal and must never reappear.
	assert.NotContains(t, stmt, "SELECT count(*) FROM locked_candidates")
	assert.Contains(t, stmt, "FROM locked_candidates prev")
	assert.Contains(t, stmt, "prev.locked_count < $2")
}

func TestPollJobsInterpolatesTableNameInBothTerms(t *testing.T) {
	stmt := quesql.PollJobs("custom_jobs")
	assert.Equal(t, 2, strings.Count(stmt, "custom_jobs"))
}

func TestGetJobDestroyJobSetErrorUseTable(t *testing.T) {
	assert.Contains(t, quesql.GetJob("que_jobs"), "FROM que_jobs")
	assert.Contains(t, quesql.DestroyJob("que_jobs"), "DELETE FROM que_jobs")
	assert.Contains(t, quesql.SetError("que_jobs"), "UPDATE que_jobs")
}

func TestInsertJobReturnsAssignedHandle(t *testing.T) {
	stmt := quesql.InsertJob("que_jobs")
	assert.Contains(t, stmt, "INSERT INTO que_jobs")
	assert.Contains(t, stmt, "RETURNING priority, run_at, job_id")
}
