// Package dbx extends the generated queries in [db] with transaction support and maps rows onto the domain model.
package dbx

import (
	"github.com/jackc/pgx/v5"

	"github.com/cloud-gov/tally/internal/db"
)

// Querier is a [db.Querier] that can be rebound to a transaction.
type Querier interface {
	db.Querier
	WithTx(tx pgx.Tx) Querier
}

type querier struct {
	*db.Queries
}

func NewQuerier(q *db.Queries) Querier {
	return &querier{Queries: q}
}

func (q *querier) WithTx(tx pgx.Tx) Querier {
	return &querier{Queries: q.Queries.WithTx(tx)}
}
