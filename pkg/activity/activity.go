// Package activity defines the closed registry of typed application audit records.
package activity

import (
	"errors"
	"fmt"

	"github.com/lumenlms/approvalflow/pkg/eventbus"
	"github.com/lumenlms/approvalflow/pkg/models"
)

var (
	// ErrUnknownActivityType indicates a registry lookup with an
	// unregistered type code. A data-integrity error, never expected in a
	// correctly deployed configuration.
	ErrUnknownActivityType = errors.New("unknown activity type")

	// ErrInvalidActivityInfo indicates a structured payload failed its
	// type-specific validation; the record must not be persisted.
	ErrInvalidActivityInfo = errors.New("invalid activity info")
)

// Narration selects which of the three description templates a type renders.
type Narration int

const (
	// SystemToSystem messages carry no user attribution.
	SystemToSystem Narration = iota
	// UserToSystem messages attribute the action to the acting user.
	UserToSystem
	// SystemToUser messages reference the user the system acted upon.
	SystemToUser
)

// Handler is one activity type: an immutable behavior unit keyed by a unique
// non-negative integer code. The code is persisted on every record; changing
// it is a breaking schema change, and codes are never reused for a different
// semantic meaning.
type Handler interface {
	// Type returns the stable numeric identifier.
	Type() int

	// Key returns the stable string key used for label and description
	// lookups ("stage_started", "comment_created", ...).
	Key() string

	// Narration selects the description template.
	Narration() Narration

	// ValidInfo validates the structured payload shape before persistence.
	// The default contract requires an empty map.
	ValidInfo(info map[string]any) bool

	// Event returns the domain event to fire once the record is durably
	// written, or nil when the type fires none.
	Event(app *models.Application, actorID *int64, info map[string]any) eventbus.Event
}

// Localizer resolves a description or label key plus structured arguments to
// a rendered string. Implemented by the surrounding platform's string table.
type Localizer interface {
	Get(key string, args map[string]any) string
}

// UserRenderer renders a user reference, as a profile link when the viewer
// may see the profile, else as a plain name.
type UserRenderer interface {
	Render(userID int64) string
}

const (
	labelKeyPrefix       = "activity_type_"
	descriptionKeySuffix = "_desc"
)

// LabelKey returns the localization key for the type's short label.
func LabelKey(h Handler) string {
	return labelKeyPrefix + h.Key()
}

// DescriptionKey returns the localization key for the type's narration.
func DescriptionKey(h Handler) string {
	return labelKeyPrefix + h.Key() + descriptionKeySuffix
}

// Describe renders the human-readable description of a stored record using
// the type's narration template. User-attributed templates receive exactly
// one user reference under the "user" argument; all info values are passed
// through for the template to use.
func Describe(h Handler, record *models.ApplicationActivity, loc Localizer, users UserRenderer) (string, error) {
	args := make(map[string]any, len(record.Info)+1)
	for k, v := range record.Info {
		args[k] = v
	}

	switch h.Narration() {
	case SystemToSystem:
		// No user reference.
	case UserToSystem, SystemToUser:
		if record.UserID == nil {
			return "", fmt.Errorf("activity %d of type %s requires a user", record.ID, h.Key())
		}

		args["user"] = users.Render(*record.UserID)
	}

	return loc.Get(DescriptionKey(h), args), nil
}

// NewRecord builds an activity record after validating the payload against
// the type's contract. The record is not yet persisted.
func NewRecord(h Handler, app *models.Application, actorID *int64, info map[string]any) (*models.ApplicationActivity, error) {
	if !h.ValidInfo(info) {
		return nil, fmt.Errorf("activity type %d (%s): %w", h.Type(), h.Key(), ErrInvalidActivityInfo)
	}

	return &models.ApplicationActivity{
		ApplicationID:   app.ID,
		WorkflowStageID: app.CurrentStageID,
		ApprovalLevelID: app.CurrentApprovalLevelID,
		ActivityType:    h.Type(),
		UserID:          actorID,
		Info:            info,
	}, nil
}
