// Package postgresql provides PostgreSQL persistence for workflows,
// assignments and applications.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// PostgreSQL driver.
	_ "github.com/lib/pq"

	"github.com/lumenlms/approvalflow/pkg/models"
	"github.com/lumenlms/approvalflow/pkg/persistence"
	"github.com/lumenlms/approvalflow/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db              *sql.DB
	logger          *slog.Logger
	workflowRepo    *WorkflowRepository
	assignmentRepo  *AssignmentRepository
	applicationRepo *ApplicationRepository
}

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	postgres := &Persistence{
		db:              database,
		logger:          logger,
		workflowRepo:    NewWorkflowRepository(database, logger),
		assignmentRepo:  NewAssignmentRepository(database),
		applicationRepo: NewApplicationRepository(database, logger),
	}

	// Run migrations on initialization
	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	return p.workflowRepo.GetAll(ctx)
}

func (p *Persistence) WorkflowByID(ctx context.Context, id int64) (*models.Workflow, error) {
	return p.workflowRepo.GetByID(ctx, id)
}

func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	return p.workflowRepo.Save(ctx, workflow)
}

func (p *Persistence) DeleteWorkflow(ctx context.Context, id int64, force bool) error {
	return p.workflowRepo.Delete(ctx, id, force)
}

func (p *Persistence) VersionByID(ctx context.Context, id int64) (*models.WorkflowVersion, error) {
	return p.workflowRepo.VersionByID(ctx, id)
}

func (p *Persistence) SaveVersion(ctx context.Context, version *models.WorkflowVersion) error {
	return p.workflowRepo.SaveVersion(ctx, version)
}

func (p *Persistence) SaveAssignment(ctx context.Context, assignment *models.Assignment) error {
	return p.assignmentRepo.Save(ctx, assignment)
}

func (p *Persistence) AssignmentByID(ctx context.Context, id int64) (*models.Assignment, error) {
	return p.assignmentRepo.GetByID(ctx, id)
}

func (p *Persistence) SaveApprover(ctx context.Context, approver *models.Approver) error {
	return p.assignmentRepo.SaveApprover(ctx, approver)
}

func (p *Persistence) ApproverByID(ctx context.Context, id int64) (*models.Approver, error) {
	return p.assignmentRepo.ApproverByID(ctx, id)
}

func (p *Persistence) ApplicationByID(ctx context.Context, id int64) (*models.Application, error) {
	return p.applicationRepo.GetByID(ctx, id)
}

func (p *Persistence) SaveApplication(ctx context.Context, application *models.Application) error {
	return p.applicationRepo.Save(ctx, application)
}

func (p *Persistence) ApplyTransition(ctx context.Context, application *models.Application, activity *models.ApplicationActivity) error {
	return p.applicationRepo.ApplyTransition(ctx, application, activity)
}

func (p *Persistence) AppendActivity(ctx context.Context, activity *models.ApplicationActivity) error {
	return p.applicationRepo.AppendActivity(ctx, activity)
}

func (p *Persistence) ActivitiesByApplication(ctx context.Context, applicationID int64) ([]*models.ApplicationActivity, error) {
	return p.applicationRepo.ActivitiesByApplication(ctx, applicationID)
}

// Deactivate runs fn inside one serializable transaction: the checklist
// queries and the flag-clearing save commit together or not at all, so a
// dependent inserted concurrently aborts the deactivation instead of
// landing on a deactivated entity.
func (p *Persistence) Deactivate(ctx context.Context, fn func(tx persistence.DeactivationTx) error) error {
	dbTx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin deactivation transaction: %w", err)
	}

	if err := fn(&deactivationTx{tx: dbTx, workflows: p.workflowRepo}); err != nil {
		_ = dbTx.Rollback()

		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit deactivation: %w", err)
	}

	return nil
}

func (p *Persistence) HasInFlightApplications(ctx context.Context, fkField string, id int64) (bool, error) {
	return hasInFlightApplications(ctx, p.db, fkField, id)
}

func (p *Persistence) HasActiveDependents(ctx context.Context, kind, fkField string, id int64) (bool, error) {
	return hasActiveDependents(ctx, p.db, kind, fkField, id)
}

func (p *Persistence) HasNonDraftDependents(ctx context.Context, kind, fkField string, id int64) (bool, error) {
	return hasNonDraftDependents(ctx, p.db, kind, fkField, id)
}
