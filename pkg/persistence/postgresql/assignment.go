package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lumenlms/approvalflow/pkg/models"
	"github.com/lumenlms/approvalflow/pkg/persistence"
)

// AssignmentRepository handles assignment and approver database operations.
type AssignmentRepository struct {
	db *sql.DB
}

// NewAssignmentRepository creates a new assignment repository.
func NewAssignmentRepository(db *sql.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Save upserts an assignment.
func (r *AssignmentRepository) Save(ctx context.Context, assignment *models.Assignment) error {
	now := time.Now().UTC()

	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}

	assignment.UpdatedAt = now

	if assignment.ID == 0 {
		err := r.db.QueryRowContext(ctx, `
			INSERT INTO assignments (workflow_id, name, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, assignment.WorkflowID, assignment.Name, assignment.Status, assignment.CreatedAt, assignment.UpdatedAt).
			Scan(&assignment.ID)
		if err != nil {
			return fmt.Errorf("failed to insert assignment: %w", err)
		}

		return nil
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE assignments SET name = $2, status = $3, updated_at = $4 WHERE id = $1
	`, assignment.ID, assignment.Name, assignment.Status, assignment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}

	return nil
}

// GetByID returns an assignment by its ID.
func (r *AssignmentRepository) GetByID(ctx context.Context, id int64) (*models.Assignment, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , name
		  , status
		  , created_at
		  , updated_at
		FROM assignments
		WHERE id = $1
	`

	var assignment models.Assignment

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&assignment.ID,
		&assignment.WorkflowID,
		&assignment.Name,
		&assignment.Status,
		&assignment.CreatedAt,
		&assignment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("AssignmentByID", "assignment", id, persistence.ErrAssignmentNotFound)
		}

		return nil, fmt.Errorf("failed to scan assignment: %w", err)
	}

	return &assignment, nil
}

// SaveApprover upserts an approver.
func (r *AssignmentRepository) SaveApprover(ctx context.Context, approver *models.Approver) error {
	return saveApprover(ctx, r.db, approver)
}

func saveApprover(ctx context.Context, q querier, approver *models.Approver) error {
	now := time.Now().UTC()

	if approver.CreatedAt.IsZero() {
		approver.CreatedAt = now
	}

	approver.UpdatedAt = now

	if approver.ID == 0 {
		err := q.QueryRowContext(ctx, `
			INSERT INTO approvers (assignment_id, approval_level_id, type, identifier, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, approver.AssignmentID, approver.ApprovalLevelID, approver.Type, approver.Identifier,
			approver.Active, approver.CreatedAt, approver.UpdatedAt).
			Scan(&approver.ID)
		if err != nil {
			return fmt.Errorf("failed to insert approver: %w", err)
		}

		return nil
	}

	_, err := q.ExecContext(ctx, `
		UPDATE approvers SET type = $2, identifier = $3, active = $4, updated_at = $5 WHERE id = $1
	`, approver.ID, approver.Type, approver.Identifier, approver.Active, approver.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update approver: %w", err)
	}

	return nil
}

// ApproverByID returns an approver by its ID.
func (r *AssignmentRepository) ApproverByID(ctx context.Context, id int64) (*models.Approver, error) {
	query := `
		SELECT
			id
		  , assignment_id
		  , approval_level_id
		  , type
		  , identifier
		  , active
		  , created_at
		  , updated_at
		FROM approvers
		WHERE id = $1
	`

	var approver models.Approver

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&approver.ID,
		&approver.AssignmentID,
		&approver.ApprovalLevelID,
		&approver.Type,
		&approver.Identifier,
		&approver.Active,
		&approver.CreatedAt,
		&approver.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("ApproverByID", "approver", id, persistence.ErrApproverNotFound)
		}

		return nil, fmt.Errorf("failed to scan approver: %w", err)
	}

	return &approver, nil
}
