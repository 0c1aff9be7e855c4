package article

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/onnwee/knowledgeshare/internal/tracing"
)

// Repository defines the store operations the scoring engine needs.
// Listing returns only published articles; updates write the engine-derived
// fields and nothing else.
type Repository interface {
	// ListPublished returns published articles matching the filter.
	ListPublished(ctx context.Context, filter Filter) ([]Article, error)

	// UpdateScores writes kv_score, is_evergreen and rank_score for the
	// given articles as a single transaction.
	UpdateScores(ctx context.Context, updates []ScoreUpdate) error

	// UpdateTiers writes the tier column for the given articles as a
	// single transaction.
	UpdateTiers(ctx context.Context, updates []TierUpdate) error
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

// ListPublished returns published articles matching the filter.
func (r *PostgresRepository) ListPublished(ctx context.Context, filter Filter) (articles []Article, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "articles", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `
		SELECT id, author_id, status, tier, kv_score, is_evergreen, rank_score,
		       view_count, save_count, suggestion_count, upvote_count, created_at
		FROM articles
		WHERE status = $1
	`
	args := []any{string(StatusPublished)}

	if filter.ID != nil {
		args = append(args, *filter.ID)
		query += fmt.Sprintf(" AND id = $%d", len(args))
	}
	if len(filter.Tiers) > 0 {
		placeholders := make([]string, 0, len(filter.Tiers))
		for _, t := range filter.Tiers {
			args = append(args, string(t))
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		query += " AND tier IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY created_at, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list published articles: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Warn("failed to close rows", "error", err)
		}
	}()

	for rows.Next() {
		var a Article
		if err := rows.Scan(
			&a.ID, &a.AuthorID, &a.Status, &a.Tier, &a.KVScore, &a.IsEvergreen,
			&a.RankScore, &a.Counters.Views, &a.Counters.Saves,
			&a.Counters.Suggestions, &a.Counters.Upvotes, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate articles: %w", err)
	}

	return articles, nil
}

// UpdateScores writes the rescoring results in a single transaction.
func (r *PostgresRepository) UpdateScores(ctx context.Context, updates []ScoreUpdate) (err error) {
	if len(updates) == 0 {
		return ErrEmptyBatch
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "articles", tracing.DBOperationUpdate)
	defer func() { endSpan(err) }()

	return r.withTx(ctx, func(tx *sql.Tx) error {
		const query = `
			UPDATE articles
			SET kv_score = $2, is_evergreen = $3, rank_score = $4
			WHERE id = $1
		`
		for _, u := range updates {
			if _, err := tx.ExecContext(ctx, query, u.ID, string(u.KVScore), u.IsEvergreen, u.RankScore); err != nil {
				return fmt.Errorf("failed to update scores for article %s: %w", u.ID, err)
			}
		}
		return nil
	})
}

// UpdateTiers writes the tier transitions in a single transaction.
func (r *PostgresRepository) UpdateTiers(ctx context.Context, updates []TierUpdate) (err error) {
	if len(updates) == 0 {
		return ErrEmptyBatch
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "articles", tracing.DBOperationUpdate)
	defer func() { endSpan(err) }()

	return r.withTx(ctx, func(tx *sql.Tx) error {
		const query = `UPDATE articles SET tier = $2 WHERE id = $1`
		for _, u := range updates {
			if _, err := tx.ExecContext(ctx, query, u.ID, string(u.Tier)); err != nil {
				return fmt.Errorf("failed to update tier for article %s: %w", u.ID, err)
			}
		}
		return nil
	})
}

// withTx runs fn inside a read-committed transaction, rolling back on error.
func (r *PostgresRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
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

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex. Used in tests and as a reference implementation.
type InMemoryRepository struct {
	mu       sync.RWMutex
	articles map[string]*Article

	// failScores and failTiers inject write failures for batch-isolation tests.
	failScores map[string]bool
	failTiers  map[string]bool
}

// NewInMemoryRepository creates a new in-memory article repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		articles:   make(map[string]*Article),
		failScores: make(map[string]bool),
		failTiers:  make(map[string]bool),
	}
}

// Put stores an article, replacing any existing one with the same ID.
func (r *InMemoryRepository) Put(a Article) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := a
	r.articles[a.ID] = &copied
}

// Get returns a copy of the article with the given ID.
func (r *InMemoryRepository) Get(id string) (*Article, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.articles[id]
	if !ok {
		return nil, ErrArticleNotFound
	}
	copied := *a
	return &copied, nil
}

// FailScoresFor makes UpdateScores fail whenever the batch contains id.
func (r *InMemoryRepository) FailScoresFor(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failScores[id] = true
}

// FailTiersFor makes UpdateTiers fail whenever the batch contains id.
func (r *InMemoryRepository) FailTiersFor(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failTiers[id] = true
}

// ListPublished returns published articles matching the filter, ordered by
// creation time for deterministic iteration.
func (r *InMemoryRepository) ListPublished(ctx context.Context, filter Filter) ([]Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Article
	for _, a := range r.articles {
		if a.Status != StatusPublished {
			continue
		}
		if !filter.Matches(a) {
			continue
		}
		result = append(result, *a)
	}
	sortArticles(result)
	return result, nil
}

// UpdateScores applies all updates atomically: if any update targets a
// missing or fail-injected article, nothing is written.
func (r *InMemoryRepository) UpdateScores(ctx context.Context, updates []ScoreUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(updates) == 0 {
		return ErrEmptyBatch
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range updates {
		if r.failScores[u.ID] {
			return fmt.Errorf("injected write failure for article %s", u.ID)
		}
		if _, ok := r.articles[u.ID]; !ok {
			return fmt.Errorf("%w: %s", ErrArticleNotFound, u.ID)
		}
	}
	for _, u := range updates {
		a := r.articles[u.ID]
		a.KVScore = u.KVScore
		a.IsEvergreen = u.IsEvergreen
		a.RankScore = u.RankScore
	}
	return nil
}

// UpdateTiers applies all updates atomically, mirroring UpdateScores.
func (r *InMemoryRepository) UpdateTiers(ctx context.Context, updates []TierUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(updates) == 0 {
		return ErrEmptyBatch
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range updates {
		if r.failTiers[u.ID] {
			return fmt.Errorf("injected write failure for article %s", u.ID)
		}
		if _, ok := r.articles[u.ID]; !ok {
			return fmt.Errorf("%w: %s", ErrArticleNotFound, u.ID)
		}
	}
	for _, u := range updates {
		r.articles[u.ID].Tier = u.Tier
	}
	return nil
}

// sortArticles orders articles by (created_at, id) for stable listings.
func sortArticles(articles []Article) {
	sort.Slice(articles, func(i, j int) bool {
		if !articles[i].CreatedAt.Equal(articles[j].CreatedAt) {
			return articles[i].CreatedAt.Before(articles[j].CreatedAt)
		}
		return articles[i].ID < articles[j].ID
	})
}
