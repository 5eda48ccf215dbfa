// Package persistence provides the data storage abstraction layer for
// workflows, assignments and applications.
package persistence

import (
	"context"

	"github.com/lumenlms/approvalflow/pkg/lifecycle"
	"github.com/lumenlms/approvalflow/pkg/models"
)

type Persistence interface {
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	WorkflowByID(ctx context.Context, id int64) (*models.Workflow, error)

	// DeleteWorkflow removes a workflow. Only draft workflows may be
	// deleted unless force is set.
	DeleteWorkflow(ctx context.Context, id int64, force bool) error

	VersionByID(ctx context.Context, id int64) (*models.WorkflowVersion, error)
	SaveVersion(ctx context.Context, version *models.WorkflowVersion) error

	SaveAssignment(ctx context.Context, assignment *models.Assignment) error
	AssignmentByID(ctx context.Context, id int64) (*models.Assignment, error)
	SaveApprover(ctx context.Context, approver *models.Approver) error
	ApproverByID(ctx context.Context, id int64) (*models.Approver, error)

	ApplicationByID(ctx context.Context, id int64) (*models.Application, error)
	SaveApplication(ctx context.Context, application *models.Application) error

	// ApplyTransition persists the application's new position together
	// with the activity recording it, as one atomic unit. Either both are
	// durable afterwards or the visible state is unchanged.
	ApplyTransition(ctx context.Context, application *models.Application, activity *models.ApplicationActivity) error

	// AppendActivity writes one audit record. Activities are append-only;
	// no update or delete surface exists.
	AppendActivity(ctx context.Context, activity *models.ApplicationActivity) error
	ActivitiesByApplication(ctx context.Context, applicationID int64) ([]*models.ApplicationActivity, error)

	lifecycle.DependencyStore

	// Deactivate runs fn against a consistent snapshot: the checklist
	// queries fn issues and the write clearing the active flag commit as
	// one atomic unit, so no dependent can appear between the check and
	// the save.
	Deactivate(ctx context.Context, fn func(tx DeactivationTx) error) error

	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// DeactivationTx is the view of the store a deactivation works through. Its
// queries and saves all observe the snapshot the enclosing Deactivate call
// opened.
type DeactivationTx interface {
	lifecycle.DependencyStore

	SaveVersion(ctx context.Context, version *models.WorkflowVersion) error
	SaveApprover(ctx context.Context, approver *models.Approver) error
}
