package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/issue-service/internal/domain"
)

// IssueMessageRepository manages the issue conversation thread. Append-only:
// amendments are new messages.
type IssueMessageRepository interface {
	Append(ctx context.Context, msg *domain.IssueMessage) error
	ListByIssue(ctx context.Context, issueID string) ([]domain.IssueMessage, error)
}

type issueMessageRepository struct {
	pool *pgxpool.Pool
}

// NewIssueMessageRepository builds repository.
func NewIssueMessageRepository(pool *pgxpool.Pool) IssueMessageRepository {
	return &issueMessageRepository{pool: pool}
}

func (r *issueMessageRepository) Append(ctx context.Context, msg *domain.IssueMessage) error {
	const query = `
        INSERT INTO issue_messages (issue_id, sender_id, sender_role, sender_name, body, is_internal)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		msg.IssueID,
		msg.SenderID,
		msg.SenderRole,
		msg.SenderName,
		msg.Body,
		msg.IsInternal,
	).Scan(&msg.ID, &msg.CreatedAt)
}

func (r *issueMessageRepository) ListByIssue(ctx context.Context, issueID string) ([]domain.IssueMessage, error) {
	const query = `
        SELECT id, issue_id, sender_id, sender_role, sender_name, body, is_internal, created_at
        FROM issue_messages WHERE issue_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.IssueMessage
	for rows.Next() {
		var msg domain.IssueMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.IssueID,
			&msg.SenderID,
			&msg.SenderRole,
			&msg.SenderName,
			&msg.Body,
			&msg.IsInternal,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
