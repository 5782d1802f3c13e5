package quepool

import (
	"database/sql"
	"errors"
)

// IsNoRows reports whether err is the "no rows" outcome of a QueryRow scan,
// which get_job relies on to represent a row destroyed between lock and
// load: that case is not an error, just an empty result.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
