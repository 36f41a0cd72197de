// testutil provides functions that are reused in multiple tests. You can import it with a period (. "github.com/cloud-gov/tally/internal/testutil") to shorten calls.
package testutil

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// PgTimestamptz returns a [pgtype.Timestamptz] based on the provided time.Time, or panics if the argument is not valid.
func PgTimestamptz(at time.Time) pgtype.Timestamptz {
	tz := pgtype.Timestamptz{}
	if err := tz.Scan(at); err != nil {
		panic(err)
	}
	return tz
}

func PgInt4(v int32) pgtype.Int4 {
	return pgtype.Int4{
		Int32: v,
		Valid: true,
	}
}

// Ptr returns a pointer to v, for optional fields such as offering capacity.
func Ptr[T any](v T) *T {
	return &v
}
