package author

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/onnwee/knowledgeshare/internal/tracing"
)

// Repository defines the store operations the reputation recompute needs.
type Repository interface {
	// AggregateContributions sums interaction counters per author over
	// published articles only. When authorID is non-nil, only that author
	// is aggregated.
	AggregateContributions(ctx context.Context, authorID *string) ([]ContributionSum, error)

	// UpdateReputations writes knowledge_score and reputation_score for
	// the given authors as a single transaction.
	UpdateReputations(ctx context.Context, updates []ReputationUpdate) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{db: db, logger: logger}
}

// AggregateContributions sums counters per author across published articles.
func (r *PostgresRepository) AggregateContributions(ctx context.Context, authorID *string) (sums []ContributionSum, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "articles", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `
		SELECT author_id,
		       COALESCE(SUM(suggestion_count), 0),
		       COALESCE(SUM(save_count), 0),
		       COALESCE(SUM(upvote_count), 0)
		FROM articles
		WHERE status = 'published'
	`
	args := []any{}
	if authorID != nil {
		args = append(args, *authorID)
		query += " AND author_id = $1"
	}
	query += " GROUP BY author_id ORDER BY author_id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate contributions: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Warn("failed to close rows", "error", err)
		}
	}()

	for rows.Next() {
		var s ContributionSum
		if err := rows.Scan(&s.AuthorID, &s.Suggestions, &s.Saves, &s.Upvotes); err != nil {
			return nil, fmt.Errorf("failed to scan contribution sum: %w", err)
		}
		sums = append(sums, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contribution sums: %w", err)
	}

	return sums, nil
}

// UpdateReputations writes the recomputed reputations in one transaction.
func (r *PostgresRepository) UpdateReputations(ctx context.Context, updates []ReputationUpdate) (err error) {
	if len(updates) == 0 {
		return ErrEmptyBatch
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "users", tracing.DBOperationUpdate)
	defer func() { endSpan(err) }()

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Always attempt rollback on function exit (no-op after successful commit)
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			r.logger.Warn("failed to rollback transaction", "error", err)
		}
	}()

	const query = `
		UPDATE users
		SET knowledge_score = $2, reputation_score = $3
		WHERE id = $1
	`
	for _, u := range updates {
		if _, err := tx.ExecContext(ctx, query, u.ID, u.KnowledgeScore, u.ReputationScore); err != nil {
			return fmt.Errorf("failed to update reputation for author %s: %w", u.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex. Used in tests and as a reference implementation.
type InMemoryRepository struct {
	mu      sync.RWMutex
	authors map[string]*Author
	sums    map[string]ContributionSum

	failFor map[string]bool
}

// NewInMemoryRepository creates a new in-memory author repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		authors: make(map[string]*Author),
		sums:    make(map[string]ContributionSum),
		failFor: make(map[string]bool),
	}
}

// Put stores an author, replacing any existing one with the same ID.
func (r *InMemoryRepository) Put(a Author) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := a
	r.authors[a.ID] = &copied
}

// SetContributions sets the aggregated contribution sum for an author.
func (r *InMemoryRepository) SetContributions(s ContributionSum) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sums[s.AuthorID] = s
}

// Get returns a copy of the author with the given ID.
func (r *InMemoryRepository) Get(id string) (*Author, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.authors[id]
	if !ok {
		return nil, ErrAuthorNotFound
	}
	copied := *a
	return &copied, nil
}

// FailFor makes UpdateReputations fail whenever the batch contains id.
func (r *InMemoryRepository) FailFor(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failFor[id] = true
}

// AggregateContributions returns the configured contribution sums.
func (r *InMemoryRepository) AggregateContributions(ctx context.Context, authorID *string) ([]ContributionSum, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []ContributionSum
	for id, s := range r.sums {
		if authorID != nil && id != *authorID {
			continue
		}
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AuthorID < result[j].AuthorID })
	return result, nil
}

// UpdateReputations applies all updates atomically: if any update targets
// a missing or fail-injected author, nothing is written.
func (r *InMemoryRepository) UpdateReputations(ctx context.Context, updates []ReputationUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(updates) == 0 {
		return ErrEmptyBatch
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range updates {
		if r.failFor[u.ID] {
			return fmt.Errorf("injected write failure for author %s", u.ID)
		}
		if _, ok := r.authors[u.ID]; !ok {
			return fmt.Errorf("%w: %s", ErrAuthorNotFound, u.ID)
		}
	}
	for _, u := range updates {
		a := r.authors[u.ID]
		a.KnowledgeScore = u.KnowledgeScore
		a.ReputationScore = u.ReputationScore
	}
	return nil
}
