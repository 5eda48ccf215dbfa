package models

import "fmt"

// Status is the lifecycle state shared by workflows, workflow versions and
// assignments. The numeric codes are stable and stored as-is.
type Status int

const (
	StatusDraft    Status = 1
	StatusActive   Status = 2
	StatusArchived Status = 3
)

// Valid reports whether the status is one of the known codes.
func (s Status) Valid() bool {
	return s >= StatusDraft && s <= StatusArchived
}

// IsDraft reports whether the status is draft.
func (s Status) IsDraft() bool { return s == StatusDraft }

// IsActive reports whether the status is active.
func (s Status) IsActive() bool { return s == StatusActive }

// IsArchived reports whether the status is archived.
func (s Status) IsArchived() bool { return s == StatusArchived }

func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusActive:
		return "active"
	case StatusArchived:
		return "archived"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// ParseStatus maps a status name to its code.
func ParseStatus(name string) (Status, error) {
	switch name {
	case "draft":
		return StatusDraft, nil
	case "active":
		return StatusActive, nil
	case "archived":
		return StatusArchived, nil
	default:
		return 0, fmt.Errorf("unknown status %q", name)
	}
}
