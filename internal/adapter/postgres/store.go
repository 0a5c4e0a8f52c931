package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atendeco/atende/internal/port/store"
)

// Store implements store.ConversationStore using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.ConversationStore = (*Store)(nil)

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}
