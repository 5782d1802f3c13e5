// Package quesql holds the parameterized SQL statements the Locker and its
// collaborators issue against a que_jobs/que_lockers schema. Statements are
// plain strings built with fmt.Sprintf for the identifier (table name) and
// left as $N placeholders for everything else, following the teacher's
// /*sql*/-tagged inline-statement convention.
package quesql

import "fmt"

// PollJobs returns the recursive-CTE statement that locks up to $2 jobs in
// the named table, skipping any job_id present in the $1 exclusion array.
// It must acquire at most one advisory lock per candidate row and must
// never fall back to locking every visible row: that is why the lock
// attempt is folded into the recursion instead of a flat
// `SELECT pg_try_advisory_lock(job_id) FROM jobs` (which would lock
// everything the query planner happened to visit).
//
// Postgres forbids a recursive self-reference from appearing anywhere but
// once in the FROM clause of the recursive term, so the running count of
// successful locks cannot be recomputed with
// `(SELECT count(*) FROM locked_candidates WHERE locked)` inside the
// recursive term's WHERE clause. Instead locked_count is threaded through
// as an ordinary column, incremented once per row from the single legal
// self-reference (`prev`), the counter idiom the pack's own
// tnclong-go-que__sql.go example (its remaining-count decrementing
// function) points toward. Recursion stops as soon as prev.locked_count
// reaches $2, so a candidate row past the $2'th lock is never visited.
//
// Parameters: $1 bigint[] (already-held job_ids to exclude), $2 int (limit).
func PollJobs(table string) string {
	return fmt.Sprintf(`
WITH RECURSIVE locked_candidates AS (
	(
		SELECT c.priority, c.run_at, c.job_id, c.job_class, c.args, c.error_count, c.last_error,
		       c.locked,
		       CASE WHEN c.locked THEN 1 ELSE 0 END AS locked_count
		FROM (
			SELECT priority, run_at, job_id, job_class, args, error_count, last_error,
			       pg_try_advisory_lock(job_id) AS locked
			FROM %[1]s
			WHERE NOT (job_id = ANY($1))
			ORDER BY priority, run_at, job_id
			LIMIT 1
		) c
	)
	UNION ALL (
		SELECT next.priority, next.run_at, next.job_id, next.job_class, next.args,
		       next.error_count, next.last_error,
		       next.locked,
		       prev.locked_count + CASE WHEN next.locked THEN 1 ELSE 0 END
		FROM locked_candidates prev
		CROSS JOIN LATERAL (
			SELECT priority, run_at, job_id, job_class, args, error_count, last_error,
			       pg_try_advisory_lock(job_id) AS locked
			FROM %[1]s
			WHERE NOT (job_id = ANY($1))
			  AND (priority, run_at, job_id) > (prev.priority, prev.run_at, prev.job_id)
			ORDER BY priority, run_at, job_id
			LIMIT 1
		) next
		WHERE prev.locked_count < $2
	)
)
SELECT priority, run_at, job_id, job_class, args, error_count, last_error
FROM locked_candidates
WHERE locked
LIMIT $2
`, table)
}

// GetJob re-reads a job row by its full handle. Returning zero rows is not
// an error: it means the row was destroyed between lock acquisition and
// this read.
func GetJob(table string) string {
	return fmt.Sprintf(`
SELECT priority, run_at, job_id, job_class, args, error_count, last_error
FROM %s
WHERE priority = $1 AND run_at = $2 AND job_id = $3
`, table)
}

// DestroyJob deletes a job row by its full handle.
func DestroyJob(table string) string {
	return fmt.Sprintf(`DELETE FROM %s WHERE priority = $1 AND run_at = $2 AND job_id = $3`, table)
}

// SetError bumps error_count, rewrites last_error and reschedules run_at
// for a job that failed. The new run_at is computed by the Job runtime
// (exponential backoff policy lives outside this package) and passed as $5;
// the new last_error is $4.
func SetError(table string) string {
	return fmt.Sprintf(`
UPDATE %s
SET error_count = error_count + 1, last_error = $4, run_at = $5
WHERE priority = $1 AND run_at = $2 AND job_id = $3
`, table)
}

// InsertJob inserts a new job row, assigning job_id from a sequence shared
// across the table.
func InsertJob(table string) string {
	return fmt.Sprintf(`
INSERT INTO %s (priority, run_at, job_id, job_class, args, error_count)
VALUES ($1, $2, nextval(pg_get_serial_sequence('%[1]s', 'job_id')), $3, $4, 0)
RETURNING priority, run_at, job_id
`, table)
}

// UnlockJob releases the advisory lock keyed by job_id on the calling
// session.
const UnlockJob = `SELECT pg_advisory_unlock($1)`

// CleanLockers removes que_lockers rows whose pid is no longer present in
// pg_stat_activity. Idempotent: safe to run on every Locker startup.
const CleanLockers = `
DELETE FROM que_lockers
WHERE pid NOT IN (SELECT pid FROM pg_stat_activity)
`

// RegisterLocker inserts this Locker's registry row, keyed by the dedicated
// session's backend pid.
const RegisterLocker = `
INSERT INTO que_lockers (pid, worker_count, ruby_pid, ruby_hostname, listening, locker_id)
VALUES (pg_backend_pid(), $1, $2, $3, false, $4)
`

// UnregisterLocker deletes this Locker's registry row by pid.
const UnregisterLocker = `DELETE FROM que_lockers WHERE pid = $1`

// BackendPID returns the Postgres backend process id of the calling
// session, used both for the que_lockers registry key and for the
// lock-conservation test property (pg_locks.pid = this value).
const BackendPID = `SELECT pg_backend_pid()`
