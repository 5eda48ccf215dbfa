package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lumenlms/approvalflow/pkg/models"
	"github.com/lumenlms/approvalflow/pkg/persistence"
)

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

// GetAll returns all workflows with their versions, newest first.
func (r *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	query := `
		SELECT
			id
		  , name
		  , description
		  , id_number
		  , status
		  , created_at
		  , updated_at
		FROM workflows
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		var workflow models.Workflow

		err := rows.Scan(
			&workflow.ID,
			&workflow.Name,
			&workflow.Description,
			&workflow.IDNumber,
			&workflow.Status,
			&workflow.CreatedAt,
			&workflow.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, &workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	for _, workflow := range workflows {
		err = r.loadVersions(ctx, workflow)
		if err != nil {
			return nil, fmt.Errorf("failed to load versions for workflow %d: %w", workflow.ID, err)
		}
	}

	return workflows, nil
}

// GetByID returns a workflow with its versions.
func (r *WorkflowRepository) GetByID(ctx context.Context, id int64) (*models.Workflow, error) {
	query := `
		SELECT
			id
		  , name
		  , description
		  , id_number
		  , status
		  , created_at
		  , updated_at
		FROM workflows
		WHERE id = $1
	`

	var workflow models.Workflow

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Description,
		&workflow.IDNumber,
		&workflow.Status,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("WorkflowByID", "workflow", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	if err := r.loadVersions(ctx, &workflow); err != nil {
		return nil, fmt.Errorf("failed to load versions: %w", err)
	}

	return &workflow, nil
}

// Save upserts a workflow and its embedded version tree.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if workflow.ID == 0 {
		insertQuery := `
			INSERT INTO workflows (name, description, id_number, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`

		err = tx.QueryRowContext(ctx, insertQuery,
			workflow.Name,
			workflow.Description,
			workflow.IDNumber,
			workflow.Status,
			workflow.CreatedAt,
			workflow.UpdatedAt,
		).Scan(&workflow.ID)
		if err != nil {
			return fmt.Errorf("failed to insert workflow: %w", err)
		}
	} else {
		updateQuery := `
			UPDATE workflows SET
				name = $2,
				description = $3,
				id_number = $4,
				status = $5,
				updated_at = $6
			WHERE id = $1
		`

		_, err = tx.ExecContext(ctx, updateQuery,
			workflow.ID,
			workflow.Name,
			workflow.Description,
			workflow.IDNumber,
			workflow.Status,
			workflow.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update workflow: %w", err)
		}
	}

	for _, version := range workflow.Versions {
		version.WorkflowID = workflow.ID

		err = r.saveVersionTx(ctx, tx, version)
		if err != nil {
			return err
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit workflow save: %w", err)
	}

	return nil
}

// Delete removes a workflow. Draft-only unless force.
func (r *WorkflowRepository) Delete(ctx context.Context, id int64, force bool) error {
	if !force {
		var status models.Status

		err := r.db.QueryRowContext(ctx, "SELECT status FROM workflows WHERE id = $1", id).Scan(&status)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return persistence.NewEntityError("DeleteWorkflow", "workflow", id, persistence.ErrWorkflowNotFound)
			}

			return fmt.Errorf("failed to query workflow status: %w", err)
		}

		if status != models.StatusDraft {
			return persistence.NewEntityError("DeleteWorkflow", "workflow", id, persistence.ErrNotDraft)
		}
	}

	result, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewEntityError("DeleteWorkflow", "workflow", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

// VersionByID returns a workflow version with stages, levels and interactions.
func (r *WorkflowRepository) VersionByID(ctx context.Context, id int64) (*models.WorkflowVersion, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , status
		  , created_at
		  , updated_at
		FROM workflow_versions
		WHERE id = $1
	`

	var version models.WorkflowVersion

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&version.ID,
		&version.WorkflowID,
		&version.Status,
		&version.CreatedAt,
		&version.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("VersionByID", "workflow_version", id, persistence.ErrVersionNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow version: %w", err)
	}

	if err := r.loadStages(ctx, &version); err != nil {
		return nil, fmt.Errorf("failed to load stages: %w", err)
	}

	return &version, nil
}

// SaveVersion upserts a single version and its stage tree.
func (r *WorkflowRepository) SaveVersion(ctx context.Context, version *models.WorkflowVersion) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	err = r.saveVersionTx(ctx, tx, version)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit version save: %w", err)
	}

	return nil
}

func (r *WorkflowRepository) saveVersionTx(ctx context.Context, tx *sql.Tx, version *models.WorkflowVersion) error {
	now := time.Now().UTC()

	if version.CreatedAt.IsZero() {
		version.CreatedAt = now
	}

	version.UpdatedAt = now

	if version.ID == 0 {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO workflow_versions (workflow_id, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, version.WorkflowID, version.Status, version.CreatedAt, version.UpdatedAt).Scan(&version.ID)
		if err != nil {
			return fmt.Errorf("failed to insert workflow version: %w", err)
		}
	} else {
		_, err := tx.ExecContext(ctx, `
			UPDATE workflow_versions SET status = $2, updated_at = $3 WHERE id = $1
		`, version.ID, version.Status, version.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update workflow version: %w", err)
		}
	}

	for _, stage := range version.Stages {
		stage.WorkflowVersionID = version.ID

		if err := r.saveStageTx(ctx, tx, stage); err != nil {
			return err
		}
	}

	return nil
}

func (r *WorkflowRepository) saveStageTx(ctx context.Context, tx *sql.Tx, stage *models.WorkflowStage) error {
	if stage.ID == 0 {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO workflow_stages (workflow_version_id, name, type, ordinal_number, active)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, stage.WorkflowVersionID, stage.Name, stage.Type, stage.OrdinalNumber, stage.Active).Scan(&stage.ID)
		if err != nil {
			return fmt.Errorf("failed to insert workflow stage: %w", err)
		}
	} else {
		_, err := tx.ExecContext(ctx, `
			UPDATE workflow_stages SET name = $2, type = $3, ordinal_number = $4, active = $5 WHERE id = $1
		`, stage.ID, stage.Name, stage.Type, stage.OrdinalNumber, stage.Active)
		if err != nil {
			return fmt.Errorf("failed to update workflow stage: %w", err)
		}
	}

	for _, level := range stage.ApprovalLevels {
		level.WorkflowStageID = stage.ID

		if level.ID == 0 {
			err := tx.QueryRowContext(ctx, `
				INSERT INTO approval_levels (workflow_stage_id, name, ordinal_number, active)
				VALUES ($1, $2, $3, $4)
				RETURNING id
			`, level.WorkflowStageID, level.Name, level.OrdinalNumber, level.Active).Scan(&level.ID)
			if err != nil {
				return fmt.Errorf("failed to insert approval level: %w", err)
			}
		} else {
			_, err := tx.ExecContext(ctx, `
				UPDATE approval_levels SET name = $2, ordinal_number = $3, active = $4 WHERE id = $1
			`, level.ID, level.Name, level.OrdinalNumber, level.Active)
			if err != nil {
				return fmt.Errorf("failed to update approval level: %w", err)
			}
		}
	}

	for _, interaction := range stage.Interactions {
		interaction.WorkflowStageID = stage.ID

		if interaction.ID == 0 {
			err := tx.QueryRowContext(ctx, `
				INSERT INTO stage_interactions (workflow_stage_id, action_code, default_transition)
				VALUES ($1, $2, $3)
				RETURNING id
			`, interaction.WorkflowStageID, interaction.ActionCode, interaction.DefaultTransition).Scan(&interaction.ID)
			if err != nil {
				return fmt.Errorf("failed to insert stage interaction: %w", err)
			}
		} else {
			_, err := tx.ExecContext(ctx, `
				UPDATE stage_interactions SET action_code = $2, default_transition = $3 WHERE id = $1
			`, interaction.ID, interaction.ActionCode, interaction.DefaultTransition)
			if err != nil {
				return fmt.Errorf("failed to update stage interaction: %w", err)
			}
		}
	}

	return nil
}

func (r *WorkflowRepository) loadVersions(ctx context.Context, workflow *models.Workflow) error {
	query := `
		SELECT
			id
		  , workflow_id
		  , status
		  , created_at
		  , updated_at
		FROM workflow_versions
		WHERE workflow_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, workflow.ID)
	if err != nil {
		return fmt.Errorf("failed to query workflow versions: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	versions := make([]*models.WorkflowVersion, 0)

	for rows.Next() {
		var version models.WorkflowVersion

		err := rows.Scan(
			&version.ID,
			&version.WorkflowID,
			&version.Status,
			&version.CreatedAt,
			&version.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan workflow version: %w", err)
		}

		versions = append(versions, &version)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating workflow versions: %w", err)
	}

	for _, version := range versions {
		if err := r.loadStages(ctx, version); err != nil {
			return err
		}
	}

	workflow.Versions = versions

	return nil
}

func (r *WorkflowRepository) loadStages(ctx context.Context, version *models.WorkflowVersion) error {
	query := `
		SELECT
			id
		  , workflow_version_id
		  , name
		  , type
		  , ordinal_number
		  , active
		FROM workflow_stages
		WHERE workflow_version_id = $1
		ORDER BY ordinal_number ASC
	`

	rows, err := r.db.QueryContext(ctx, query, version.ID)
	if err != nil {
		return fmt.Errorf("failed to query workflow stages: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	stages := make([]*models.WorkflowStage, 0)

	for rows.Next() {
		var stage models.WorkflowStage

		err := rows.Scan(
			&stage.ID,
			&stage.WorkflowVersionID,
			&stage.Name,
			&stage.Type,
			&stage.OrdinalNumber,
			&stage.Active,
		)
		if err != nil {
			return fmt.Errorf("failed to scan workflow stage: %w", err)
		}

		stages = append(stages, &stage)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating workflow stages: %w", err)
	}

	for _, stage := range stages {
		if err := r.loadLevels(ctx, stage); err != nil {
			return err
		}

		if err := r.loadInteractions(ctx, stage); err != nil {
			return err
		}
	}

	version.Stages = stages

	return nil
}

func (r *WorkflowRepository) loadLevels(ctx context.Context, stage *models.WorkflowStage) error {
	query := `
		SELECT
			id
		  , workflow_stage_id
		  , name
		  , ordinal_number
		  , active
		FROM approval_levels
		WHERE workflow_stage_id = $1
		ORDER BY ordinal_number ASC
	`

	rows, err := r.db.QueryContext(ctx, query, stage.ID)
	if err != nil {
		return fmt.Errorf("failed to query approval levels: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	levels := make([]*models.ApprovalLevel, 0)

	for rows.Next() {
		var level models.ApprovalLevel

		err := rows.Scan(
			&level.ID,
			&level.WorkflowStageID,
			&level.Name,
			&level.OrdinalNumber,
			&level.Active,
		)
		if err != nil {
			return fmt.Errorf("failed to scan approval level: %w", err)
		}

		levels = append(levels, &level)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating approval levels: %w", err)
	}

	stage.ApprovalLevels = levels

	return nil
}

func (r *WorkflowRepository) loadInteractions(ctx context.Context, stage *models.WorkflowStage) error {
	query := `
		SELECT
			id
		  , workflow_stage_id
		  , action_code
		  , default_transition
		FROM stage_interactions
		WHERE workflow_stage_id = $1
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, stage.ID)
	if err != nil {
		return fmt.Errorf("failed to query stage interactions: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	interactions := make([]*models.StageInteraction, 0)

	for rows.Next() {
		var interaction models.StageInteraction

		err := rows.Scan(
			&interaction.ID,
			&interaction.WorkflowStageID,
			&interaction.ActionCode,
			&interaction.DefaultTransition,
		)
		if err != nil {
			return fmt.Errorf("failed to scan stage interaction: %w", err)
		}

		interactions = append(interactions, &interaction)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating stage interactions: %w", err)
	}

	stage.Interactions = interactions

	return nil
}
