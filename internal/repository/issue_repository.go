package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/issue-service/internal/domain"
	apperrors "github.com/spec-kit/issue-service/pkg/util"
)

// IssueFilter captures listing parameters. PartyID scopes results to
// issues the given actor answers for: the responsible party itself or the
// agent assigned to the issue.
type IssueFilter struct {
	RenterID    *string
	PropertyID  *string
	MatchID     *string
	PartyID     *string
	Statuses    []domain.IssueStatus
	Priorities  []domain.IssuePriority
	Categories  []domain.IssueCategory
	OverdueOnly bool
	RaisedFrom  *time.Time
	RaisedTo    *time.Time
	Limit       int
	Offset      int
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so statements can
// run standalone or inside a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// IssueRepository encapsulates issue persistence. Update applies
// at-most-one-writer-wins semantics: a write against a stale version fails
// with a retryable conflict. The WithHistory variants commit the issue
// write and its audit entry in one transaction, so the trail can never
// lag the issue row.
type IssueRepository interface {
	Create(ctx context.Context, issue *domain.Issue) error
	CreateWithHistory(ctx context.Context, issue *domain.Issue, entry *domain.StatusHistoryEntry) error
	Update(ctx context.Context, issue *domain.Issue) error
	UpdateWithHistory(ctx context.Context, issue *domain.Issue, entry *domain.StatusHistoryEntry) error
	GetByID(ctx context.Context, id string) (*domain.Issue, error)
	GetByReference(ctx context.Context, reference string) (*domain.Issue, error)
	ListWithFilter(ctx context.Context, filter IssueFilter) ([]domain.Issue, error)
	ListBreached(ctx context.Context, now time.Time, limit int) ([]domain.Issue, error)
}

type issueRepository struct {
	pool *pgxpool.Pool
}

// NewIssueRepository instantiates repository.
func NewIssueRepository(pool *pgxpool.Pool) IssueRepository {
	return &issueRepository{pool: pool}
}

const issueColumns = `id, reference, match_id, property_id, renter_id, landlord_id, agency_id,
        assigned_agent_id, responsible_party_kind, responsible_party_id, category, priority,
        subject, description, images, status, is_overdue, version, raised_at, sla_deadline,
        acknowledged_at, resolved_at, closed_at, updated_at, resolution_summary,
        resolution_cost, renter_satisfaction_rating`

func (r *issueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	return r.create(ctx, r.pool, issue)
}

// CreateWithHistory inserts the issue and its seed trail entry atomically.
// The entry's IssueID is filled in from the generated issue id.
func (r *issueRepository) CreateWithHistory(ctx context.Context, issue *domain.Issue, entry *domain.StatusHistoryEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := r.create(ctx, tx, issue); err != nil {
		return err
	}
	entry.IssueID = issue.ID
	if err := insertStatusHistory(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *issueRepository) create(ctx context.Context, q querier, issue *domain.Issue) error {
	const query = `
        INSERT INTO issues (reference, match_id, property_id, renter_id, landlord_id, agency_id,
            assigned_agent_id, responsible_party_kind, responsible_party_id, category, priority,
            subject, description, images, status, is_overdue, version, raised_at, sla_deadline)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
        RETURNING id, updated_at`
	return q.QueryRow(ctx, query,
		issue.Reference,
		issue.MatchID,
		issue.PropertyID,
		issue.RenterID,
		issue.LandlordID,
		issue.AgencyID,
		issue.AssignedAgentID,
		issue.Responsible.Kind,
		issue.Responsible.ID,
		issue.Category,
		issue.Priority,
		issue.Subject,
		issue.Description,
		issue.Images,
		issue.Status,
		issue.IsOverdue,
		issue.Version,
		issue.RaisedAt,
		issue.SLADeadline,
	).Scan(&issue.ID, &issue.UpdatedAt)
}

// Update writes the issue conditional on the version it was read at. The
// SLA deadline and raised_at columns are deliberately absent: both are
// immutable after creation.
func (r *issueRepository) Update(ctx context.Context, issue *domain.Issue) error {
	return r.update(ctx, r.pool, issue)
}

// UpdateWithHistory applies the conditional update and appends the trail
// entry in one transaction. A version conflict rolls both back.
func (r *issueRepository) UpdateWithHistory(ctx context.Context, issue *domain.Issue, entry *domain.StatusHistoryEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := r.update(ctx, tx, issue); err != nil {
		return err
	}
	if err := insertStatusHistory(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *issueRepository) update(ctx context.Context, q querier, issue *domain.Issue) error {
	const query = `
        UPDATE issues SET assigned_agent_id=$1, status=$2, is_overdue=$3,
            acknowledged_at=$4, resolved_at=$5, closed_at=$6,
            resolution_summary=$7, resolution_cost=$8, renter_satisfaction_rating=$9,
            version=version+1, updated_at=NOW()
        WHERE id=$10 AND version=$11
        RETURNING version, updated_at`
	err := q.QueryRow(ctx, query,
		issue.AssignedAgentID,
		issue.Status,
		issue.IsOverdue,
		issue.AcknowledgedAt,
		issue.ResolvedAt,
		issue.ClosedAt,
		issue.ResolutionSummary,
		issue.ResolutionCost,
		issue.RenterSatisfactionRating,
		issue.ID,
		issue.Version,
	).Scan(&issue.Version, &issue.UpdatedAt)
	if err == nil {
		return nil
	}
	if err != pgx.ErrNoRows {
		return err
	}

	// Zero rows means either a stale version or a missing issue.
	var exists bool
	if checkErr := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM issues WHERE id=$1)`, issue.ID).Scan(&exists); checkErr != nil {
		return checkErr
	}
	if !exists {
		return pgx.ErrNoRows
	}
	return apperrors.NewVersionConflict("issue", map[string]any{"issue_id": issue.ID, "version": issue.Version})
}

func (r *issueRepository) GetByID(ctx context.Context, id string) (*domain.Issue, error) {
	query := fmt.Sprintf(`SELECT %s FROM issues WHERE id=$1`, issueColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *issueRepository) GetByReference(ctx context.Context, reference string) (*domain.Issue, error) {
	query := fmt.Sprintf(`SELECT %s FROM issues WHERE reference=$1`, issueColumns)
	return r.fetchSingle(ctx, query, reference)
}

func (r *issueRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Issue, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	issue, err := scanIssue(row)
	if err != nil {
		return nil, err
	}
	return issue, nil
}

func (r *issueRepository) ListWithFilter(ctx context.Context, filter IssueFilter) ([]domain.Issue, error) {
	base := fmt.Sprintf(`SELECT %s FROM issues`, issueColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.RenterID != nil {
		args = append(args, *filter.RenterID)
		clauses = append(clauses, fmt.Sprintf("renter_id=$%d", len(args)))
	}
	if filter.PropertyID != nil {
		args = append(args, *filter.PropertyID)
		clauses = append(clauses, fmt.Sprintf("property_id=$%d", len(args)))
	}
	if filter.MatchID != nil {
		args = append(args, *filter.MatchID)
		clauses = append(clauses, fmt.Sprintf("match_id=$%d", len(args)))
	}
	if filter.PartyID != nil {
		args = append(args, *filter.PartyID)
		clauses = append(clauses, fmt.Sprintf("(responsible_party_id=$%d OR assigned_agent_id=$%d)", len(args), len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, cat := range filter.Categories {
			args = append(args, cat)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.OverdueOnly {
		clauses = append(clauses, "is_overdue=TRUE")
	}
	if filter.RaisedFrom != nil {
		args = append(args, *filter.RaisedFrom)
		clauses = append(clauses, fmt.Sprintf("raised_at >= $%d", len(args)))
	}
	if filter.RaisedTo != nil {
		args = append(args, *filter.RaisedTo)
		clauses = append(clauses, fmt.Sprintf("raised_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY raised_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIssues(rows)
}

// ListBreached returns non-terminal issues past their deadline that are not
// yet flagged overdue, for the sweep worker.
func (r *issueRepository) ListBreached(ctx context.Context, now time.Time, limit int) ([]domain.Issue, error) {
	if limit <= 0 {
		limit = 200
	}
	query := fmt.Sprintf(`
        SELECT %s FROM issues
        WHERE status IN ('open','acknowledged','in_progress')
          AND sla_deadline < $1
          AND is_overdue=FALSE
        ORDER BY sla_deadline ASC LIMIT %d`, issueColumns, limit)
	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIssues(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssue(row rowScanner) (*domain.Issue, error) {
	var issue domain.Issue
	if err := row.Scan(
		&issue.ID,
		&issue.Reference,
		&issue.MatchID,
		&issue.PropertyID,
		&issue.RenterID,
		&issue.LandlordID,
		&issue.AgencyID,
		&issue.AssignedAgentID,
		&issue.Responsible.Kind,
		&issue.Responsible.ID,
		&issue.Category,
		&issue.Priority,
		&issue.Subject,
		&issue.Description,
		&issue.Images,
		&issue.Status,
		&issue.IsOverdue,
		&issue.Version,
		&issue.RaisedAt,
		&issue.SLADeadline,
		&issue.AcknowledgedAt,
		&issue.ResolvedAt,
		&issue.ClosedAt,
		&issue.UpdatedAt,
		&issue.ResolutionSummary,
		&issue.ResolutionCost,
		&issue.RenterSatisfactionRating,
	); err != nil {
		return nil, err
	}
	return &issue, nil
}

func scanIssues(rows pgx.Rows) ([]domain.Issue, error) {
	var result []domain.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *issue)
	}
	return result, rows.Err()
}
