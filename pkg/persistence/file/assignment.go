package file

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lumenlms/approvalflow/pkg/models"
	"github.com/lumenlms/approvalflow/pkg/persistence"
)

// SaveAssignment saves an assignment, assigning an ID on first save.
func (fp *Persistence) SaveAssignment(_ context.Context, assignment *models.Assignment) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	now := time.Now().UTC()
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}

	assignment.UpdatedAt = now

	if assignment.ID == 0 {
		id, err := fp.nextID("assignment")
		if err != nil {
			return fmt.Errorf("failed to generate assignment ID: %w", err)
		}

		assignment.ID = id
	}

	return fp.writeDoc(assignmentsDir, assignment.ID, assignment)
}

// AssignmentByID retrieves an assignment by its ID.
func (fp *Persistence) AssignmentByID(_ context.Context, id int64) (*models.Assignment, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	var assignment models.Assignment

	err := fp.readDoc(assignmentsDir, id, &assignment)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewEntityError("AssignmentByID", "assignment", id, persistence.ErrAssignmentNotFound)
		}

		return nil, fmt.Errorf("failed to fetch assignment %d: %w", id, err)
	}

	return &assignment, nil
}

// SaveApprover saves an approver, assigning an ID on first save.
func (fp *Persistence) SaveApprover(_ context.Context, approver *models.Approver) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	return fp.saveApprover(approver)
}

func (fp *Persistence) saveApprover(approver *models.Approver) error {
	now := time.Now().UTC()
	if approver.CreatedAt.IsZero() {
		approver.CreatedAt = now
	}

	approver.UpdatedAt = now

	if approver.ID == 0 {
		id, err := fp.nextID("approver")
		if err != nil {
			return fmt.Errorf("failed to generate approver ID: %w", err)
		}

		approver.ID = id
	}

	return fp.writeDoc(approversDir, approver.ID, approver)
}

// ApproverByID retrieves an approver by its ID.
func (fp *Persistence) ApproverByID(_ context.Context, id int64) (*models.Approver, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	var approver models.Approver

	err := fp.readDoc(approversDir, id, &approver)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewEntityError("ApproverByID", "approver", id, persistence.ErrApproverNotFound)
		}

		return nil, fmt.Errorf("failed to fetch approver %d: %w", id, err)
	}

	return &approver, nil
}
