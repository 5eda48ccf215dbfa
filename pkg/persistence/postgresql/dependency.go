package postgresql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lumenlms/approvalflow/pkg/models"
)

// querier is satisfied by both *sql.DB and *sql.Tx, so dependency queries
// and saves run standalone or inside a deactivation transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// deactivationTx runs the checklist queries and the flag-clearing save
// against one transaction's snapshot.
type deactivationTx struct {
	tx        *sql.Tx
	workflows *WorkflowRepository
}

func (t *deactivationTx) HasInFlightApplications(ctx context.Context, fkField string, id int64) (bool, error) {
	return hasInFlightApplications(ctx, t.tx, fkField, id)
}

func (t *deactivationTx) HasActiveDependents(ctx context.Context, kind, fkField string, id int64) (bool, error) {
	return hasActiveDependents(ctx, t.tx, kind, fkField, id)
}

func (t *deactivationTx) HasNonDraftDependents(ctx context.Context, kind, fkField string, id int64) (bool, error) {
	return hasNonDraftDependents(ctx, t.tx, kind, fkField, id)
}

func (t *deactivationTx) SaveVersion(ctx context.Context, version *models.WorkflowVersion) error {
	return t.workflows.saveVersionTx(ctx, t.tx, version)
}

func (t *deactivationTx) SaveApprover(ctx context.Context, approver *models.Approver) error {
	return saveApprover(ctx, t.tx, approver)
}

// Dependency queries run against an allowlist of table/column pairs; the
// foreign-key field names arrive from checklist declarations and are never
// interpolated unchecked.

var applicationFKColumns = map[string]string{
	"workflow_version_id":       "workflow_version_id",
	"assignment_id":             "assignment_id",
	"current_stage_id":          "current_stage_id",
	"current_approval_level_id": "current_approval_level_id",
}

type dependentTable struct {
	table     string
	fkColumns map[string]string
}

var activatableTables = map[string]dependentTable{
	"approver": {
		table: "approvers",
		fkColumns: map[string]string{
			"approval_level_id": "approval_level_id",
			"assignment_id":     "assignment_id",
		},
	},
	"workflow_stage": {
		table: "workflow_stages",
		fkColumns: map[string]string{
			"workflow_version_id": "workflow_version_id",
		},
	},
	"approval_level": {
		table: "approval_levels",
		fkColumns: map[string]string{
			"workflow_stage_id": "workflow_stage_id",
		},
	},
}

var statusTables = map[string]dependentTable{
	"assignment": {
		table: "assignments",
		fkColumns: map[string]string{
			"workflow_id": "workflow_id",
		},
	},
	"workflow_version": {
		table: "workflow_versions",
		fkColumns: map[string]string{
			"workflow_id": "workflow_id",
		},
	},
}

func hasInFlightApplications(ctx context.Context, q querier, fkField string, id int64) (bool, error) {
	column, ok := applicationFKColumns[fkField]
	if !ok {
		return false, fmt.Errorf("unsupported application foreign key %q", fkField)
	}

	query := fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM applications WHERE %s = $1 AND completed IS NULL)", column)

	var exists bool

	err := q.QueryRowContext(ctx, query, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query in-flight applications: %w", err)
	}

	return exists, nil
}

func hasActiveDependents(ctx context.Context, q querier, kind, fkField string, id int64) (bool, error) {
	dep, ok := activatableTables[kind]
	if !ok {
		return false, fmt.Errorf("unsupported dependent kind %q", kind)
	}

	column, ok := dep.fkColumns[fkField]
	if !ok {
		return false, fmt.Errorf("unsupported %s foreign key %q", kind, fkField)
	}

	query := fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1 AND active)", dep.table, column)

	var exists bool

	err := q.QueryRowContext(ctx, query, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query active %s dependents: %w", kind, err)
	}

	return exists, nil
}

func hasNonDraftDependents(ctx context.Context, q querier, kind, fkField string, id int64) (bool, error) {
	dep, ok := statusTables[kind]
	if !ok {
		return false, fmt.Errorf("unsupported dependent kind %q", kind)
	}

	column, ok := dep.fkColumns[fkField]
	if !ok {
		return false, fmt.Errorf("unsupported %s foreign key %q", kind, fkField)
	}

	query := fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1 AND status <> 1)", dep.table, column)

	var exists bool

	err := q.QueryRowContext(ctx, query, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query non-draft %s dependents: %w", kind, err)
	}

	return exists, nil
}
