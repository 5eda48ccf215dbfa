package lifecycle

import (
	"context"
	"log/slog"
)

// DependentShape classifies how a dependent entity kind is queried when
// deciding whether deactivation is blocked.
type DependentShape int

const (
	// ShapeApplication blocks while any dependent application row is still
	// in flight (completed timestamp unset).
	ShapeApplication DependentShape = iota

	// ShapeActivatable blocks while any dependent row with the activation
	// capability is currently active.
	ShapeActivatable

	// ShapeStatus blocks while any dependent status-bearing row is not in
	// draft (active or archived).
	ShapeStatus
)

// Dependent is one entry of a deactivation checklist: a dependent entity
// kind plus the foreign-key field on the dependent pointing back at the
// entity being deactivated.
type Dependent struct {
	Kind    string // Dependent entity kind, e.g. "approver"
	FKField string // FK field name on the dependent, e.g. "approval_level_id"
	Shape   DependentShape
}

// Activatable is implemented by entities carrying a plain active flag with a
// declared deactivation checklist. A nil checklist (as opposed to an empty
// one) means the implementor forgot to declare it; deactivation is then
// blocked rather than silently allowed.
type Activatable interface {
	IsActive() bool
	SetActive(bool)
}

// DependencyStore answers the existence queries the checklist walk needs.
// All three must execute against a consistent snapshot when called inside a
// deactivation transaction.
type DependencyStore interface {
	// HasInFlightApplications reports whether any application row has
	// fkField = id and no completed timestamp.
	HasInFlightApplications(ctx context.Context, fkField string, id int64) (bool, error)

	// HasActiveDependents reports whether any row of the given kind has
	// fkField = id and is currently active.
	HasActiveDependents(ctx context.Context, kind, fkField string, id int64) (bool, error)

	// HasNonDraftDependents reports whether any row of the given kind has
	// fkField = id and a status other than draft.
	HasNonDraftDependents(ctx context.Context, kind, fkField string, id int64) (bool, error)
}

// CanDeactivate walks the declared checklist and reports whether the entity
// may be deactivated. A nil checklist fails closed.
func CanDeactivate(ctx context.Context, store DependencyStore, logger *slog.Logger, kind string, id int64, checklist []Dependent) (bool, string, error) {
	if checklist == nil {
		logger.WarnContext(ctx, "No deactivation checklist declared, refusing to deactivate",
			"entity", kind, "id", id)

		return false, "checklist not declared", nil
	}

	for _, dep := range checklist {
		var (
			blocked bool
			err     error
		)

		switch dep.Shape {
		case ShapeApplication:
			blocked, err = store.HasInFlightApplications(ctx, dep.FKField, id)
		case ShapeActivatable:
			blocked, err = store.HasActiveDependents(ctx, dep.Kind, dep.FKField, id)
		case ShapeStatus:
			blocked, err = store.HasNonDraftDependents(ctx, dep.Kind, dep.FKField, id)
		}

		if err != nil {
			return false, "", err
		}

		if blocked {
			return false, dep.Kind, nil
		}
	}

	return true, "", nil
}

// Deactivate clears the entity's active flag after the checklist walk
// passes. Already-inactive entities are a no-op. Force skips the checklist;
// the caller still has to persist the change.
func Deactivate(ctx context.Context, store DependencyStore, logger *slog.Logger, entity Activatable, kind string, id int64, checklist []Dependent, force bool) error {
	if !entity.IsActive() {
		return nil
	}

	if !force {
		ok, blocker, err := CanDeactivate(ctx, store, logger, kind, id, checklist)
		if err != nil {
			return err
		}

		if !ok {
			return &StatusError{
				Op:     "Deactivate",
				Entity: kind,
				ID:     id,
				Err:    ErrHasActiveDependencies,
				Detail: blocker,
			}
		}
	}

	entity.SetActive(false)

	return nil
}

// ActivateFlag sets the active flag on an activatable entity. No dependency
// check applies in this direction.
func ActivateFlag(entity Activatable) {
	if !entity.IsActive() {
		entity.SetActive(true)
	}
}
