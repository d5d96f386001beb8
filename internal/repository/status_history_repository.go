package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/issue-service/internal/domain"
)

// StatusHistoryRepository stores the append-only audit trail. There is no
// update or delete: entries are immutable once written.
type StatusHistoryRepository interface {
	Append(ctx context.Context, entry *domain.StatusHistoryEntry) error
	ListByIssue(ctx context.Context, issueID string) ([]domain.StatusHistoryEntry, error)
}

type statusHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewStatusHistoryRepository builds repository.
func NewStatusHistoryRepository(pool *pgxpool.Pool) StatusHistoryRepository {
	return &statusHistoryRepository{pool: pool}
}

// Append stores the entry with the timestamp the engine assigned; the seed
// entry must carry the issue's raised_at exactly.
func (r *statusHistoryRepository) Append(ctx context.Context, entry *domain.StatusHistoryEntry) error {
	return insertStatusHistory(ctx, r.pool, entry)
}

// insertStatusHistory runs against the pool or an open transaction, so an
// issue write and its trail entry can commit together.
func insertStatusHistory(ctx context.Context, q querier, entry *domain.StatusHistoryEntry) error {
	const query = `
        INSERT INTO issue_status_history (issue_id, status, actor_id, actor_role, note, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	return q.QueryRow(ctx, query,
		entry.IssueID,
		entry.Status,
		entry.ActorID,
		entry.ActorRole,
		entry.Note,
		entry.CreatedAt,
	).Scan(&entry.ID)
}

func (r *statusHistoryRepository) ListByIssue(ctx context.Context, issueID string) ([]domain.StatusHistoryEntry, error) {
	const query = `
        SELECT id, issue_id, status, actor_id, actor_role, note, created_at
        FROM issue_status_history WHERE issue_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusHistoryEntry
	for rows.Next() {
		var entry domain.StatusHistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.IssueID,
			&entry.Status,
			&entry.ActorID,
			&entry.ActorRole,
			&entry.Note,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
