// Package models defines the core domain models for approval workflow processing.
package models

import (
	"fmt"
	"time"
)

// Workflow is a named approval workflow template. Its versions carry the
// actual stage topology; only one version is active at a time.
type Workflow struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name"        validate:"required,min=3"`
	Description string             `json:"description"`
	IDNumber    string             `json:"id_number"` // External reference code, unique per site
	Status      Status             `json:"status"      validate:"required"`
	Versions    []*WorkflowVersion `json:"versions,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// GetStatus implements lifecycle.StatusBearer.
func (w *Workflow) GetStatus() Status { return w.Status }

// SetStatus implements lifecycle.StatusBearer.
func (w *Workflow) SetStatus(s Status) { w.Status = s }

// ActiveVersion returns the currently active version, or nil when the
// workflow has never been published.
func (w *Workflow) ActiveVersion() *WorkflowVersion {
	for _, v := range w.Versions {
		if v.Status == StatusActive {
			return v
		}
	}

	return nil
}

// LatestVersion returns the most recently created version regardless of status.
func (w *Workflow) LatestVersion() *WorkflowVersion {
	if len(w.Versions) == 0 {
		return nil
	}

	return w.Versions[len(w.Versions)-1]
}

// WorkflowVersion is an ordered sequence of stages defining one incarnation
// of a workflow template. Once published with live applications it is
// immutable except through a new version.
type WorkflowVersion struct {
	ID         int64            `json:"id"`
	WorkflowID int64            `json:"workflow_id" validate:"required"`
	Status     Status           `json:"status"      validate:"required"`
	Stages     []*WorkflowStage `json:"stages"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// GetStatus implements lifecycle.StatusBearer.
func (v *WorkflowVersion) GetStatus() Status { return v.Status }

// SetStatus implements lifecycle.StatusBearer.
func (v *WorkflowVersion) SetStatus(s Status) { v.Status = s }

// Validate checks the stage ordinal invariant: ordinals are unique and
// contiguous starting at 1, in slice order.
func (v *WorkflowVersion) Validate() error {
	for i, stage := range v.Stages {
		if stage.OrdinalNumber != i+1 {
			return fmt.Errorf("stage %d has ordinal %d, want %d", stage.ID, stage.OrdinalNumber, i+1)
		}

		if stage.WorkflowVersionID != 0 && stage.WorkflowVersionID != v.ID {
			return fmt.Errorf("stage %d belongs to version %d, not %d", stage.ID, stage.WorkflowVersionID, v.ID)
		}
	}

	return nil
}

// StageByID returns the stage with the given id, or nil.
func (v *WorkflowVersion) StageByID(id int64) *WorkflowStage {
	for _, stage := range v.Stages {
		if stage.ID == id {
			return stage
		}
	}

	return nil
}

// FirstStage returns the first stage in ordinal order, or nil for an empty version.
func (v *WorkflowVersion) FirstStage() *WorkflowStage {
	if len(v.Stages) == 0 {
		return nil
	}

	return v.Stages[0]
}

// StageAfter returns the stage immediately following the given stage in
// ordinal order, or nil when it is the last one or not part of this version.
func (v *WorkflowVersion) StageAfter(stage *WorkflowStage) *WorkflowStage {
	for i, s := range v.Stages {
		if s.ID == stage.ID {
			if i+1 < len(v.Stages) {
				return v.Stages[i+1]
			}

			return nil
		}
	}

	return nil
}
