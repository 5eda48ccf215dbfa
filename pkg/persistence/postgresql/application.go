package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lumenlms/approvalflow/pkg/models"
	"github.com/lumenlms/approvalflow/pkg/persistence"
)

// ApplicationRepository handles application and activity database operations.
type ApplicationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewApplicationRepository creates a new application repository.
func NewApplicationRepository(db *sql.DB, logger *slog.Logger) *ApplicationRepository {
	return &ApplicationRepository{db: db, logger: logger}
}

// GetByID returns an application by its ID.
func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (*models.Application, error) {
	query := `
		SELECT
			id
		  , workflow_version_id
		  , assignment_id
		  , user_id
		  , title
		  , current_stage_id
		  , current_approval_level_id
		  , is_draft
		  , created_at
		  , updated_at
		  , submitted
		  , completed
		FROM applications
		WHERE id = $1
	`

	var app models.Application

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&app.ID,
		&app.WorkflowVersionID,
		&app.AssignmentID,
		&app.UserID,
		&app.Title,
		&app.CurrentStageID,
		&app.CurrentApprovalLevelID,
		&app.IsDraft,
		&app.CreatedAt,
		&app.UpdatedAt,
		&app.Submitted,
		&app.Completed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("ApplicationByID", "application", id, persistence.ErrApplicationNotFound)
		}

		return nil, fmt.Errorf("failed to scan application: %w", err)
	}

	return &app, nil
}

// Save upserts an application.
func (r *ApplicationRepository) Save(ctx context.Context, app *models.Application) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	err = r.saveTx(ctx, tx, app)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit application save: %w", err)
	}

	return nil
}

// ApplyTransition persists the application's new position and the activity
// recording it in a single transaction.
func (r *ApplicationRepository) ApplyTransition(ctx context.Context, app *models.Application, activity *models.ApplicationActivity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	err = r.saveTx(ctx, tx, app)
	if err != nil {
		return err
	}

	err = r.appendActivityTx(ctx, tx, activity)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transition: %w", err)
	}

	return nil
}

// AppendActivity writes one audit record.
func (r *ApplicationRepository) AppendActivity(ctx context.Context, activity *models.ApplicationActivity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	err = r.appendActivityTx(ctx, tx, activity)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit activity: %w", err)
	}

	return nil
}

// ActivitiesByApplication returns an application's audit trail in insertion order.
func (r *ApplicationRepository) ActivitiesByApplication(ctx context.Context, applicationID int64) ([]*models.ApplicationActivity, error) {
	query := `
		SELECT
			id
		  , application_id
		  , workflow_stage_id
		  , approval_level_id
		  , activity_type
		  , user_id
		  , timestamp
		  , info
		FROM application_activities
		WHERE application_id = $1
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	activities := make([]*models.ApplicationActivity, 0)

	for rows.Next() {
		var (
			activity models.ApplicationActivity
			infoJSON []byte
		)

		err := rows.Scan(
			&activity.ID,
			&activity.ApplicationID,
			&activity.WorkflowStageID,
			&activity.ApprovalLevelID,
			&activity.ActivityType,
			&activity.UserID,
			&activity.Timestamp,
			&infoJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}

		if err := json.Unmarshal(infoJSON, &activity.Info); err != nil {
			return nil, fmt.Errorf("failed to unmarshal activity info: %w", err)
		}

		activities = append(activities, &activity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activities: %w", err)
	}

	return activities, nil
}

func (r *ApplicationRepository) saveTx(ctx context.Context, tx *sql.Tx, app *models.Application) error {
	now := time.Now().UTC()

	if app.CreatedAt.IsZero() {
		app.CreatedAt = now
	}

	app.UpdatedAt = now

	if app.ID == 0 {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO applications (workflow_version_id, assignment_id, user_id, title,
				current_stage_id, current_approval_level_id, is_draft,
				created_at, updated_at, submitted, completed)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id
		`, app.WorkflowVersionID, app.AssignmentID, app.UserID, app.Title,
			app.CurrentStageID, app.CurrentApprovalLevelID, app.IsDraft,
			app.CreatedAt, app.UpdatedAt, app.Submitted, app.Completed).
			Scan(&app.ID)
		if err != nil {
			return fmt.Errorf("failed to insert application: %w", err)
		}

		return nil
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE applications SET
			title = $2,
			current_stage_id = $3,
			current_approval_level_id = $4,
			is_draft = $5,
			updated_at = $6,
			submitted = $7,
			completed = $8
		WHERE id = $1
	`, app.ID, app.Title, app.CurrentStageID, app.CurrentApprovalLevelID,
		app.IsDraft, app.UpdatedAt, app.Submitted, app.Completed)
	if err != nil {
		return fmt.Errorf("failed to update application: %w", err)
	}

	return nil
}

func (r *ApplicationRepository) appendActivityTx(ctx context.Context, tx *sql.Tx, activity *models.ApplicationActivity) error {
	if activity.Timestamp.IsZero() {
		activity.Timestamp = time.Now().UTC()
	}

	info := activity.Info
	if info == nil {
		info = map[string]any{}
	}

	infoJSON, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal activity info: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO application_activities (application_id, workflow_stage_id, approval_level_id,
			activity_type, user_id, timestamp, info)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, activity.ApplicationID, activity.WorkflowStageID, activity.ApprovalLevelID,
		activity.ActivityType, activity.UserID, activity.Timestamp, infoJSON).
		Scan(&activity.ID)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}

	return nil
}
