package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/lumenlms/approvalflow/pkg/models"
	"github.com/lumenlms/approvalflow/pkg/persistence"
)

// ApplicationByID retrieves an application by its ID.
func (fp *Persistence) ApplicationByID(_ context.Context, id int64) (*models.Application, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	return fp.applicationByID(id)
}

func (fp *Persistence) applicationByID(id int64) (*models.Application, error) {
	var app models.Application

	err := fp.readDoc(applicationsDir, id, &app)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewEntityError("ApplicationByID", "application", id, persistence.ErrApplicationNotFound)
		}

		return nil, fmt.Errorf("failed to fetch application %d: %w", id, err)
	}

	return &app, nil
}

// SaveApplication saves an application, assigning an ID on first save.
func (fp *Persistence) SaveApplication(_ context.Context, app *models.Application) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	return fp.saveApplication(app)
}

func (fp *Persistence) saveApplication(app *models.Application) error {
	now := time.Now().UTC()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = now
	}

	app.UpdatedAt = now

	if app.ID == 0 {
		id, err := fp.nextID("application")
		if err != nil {
			return fmt.Errorf("failed to generate application ID: %w", err)
		}

		app.ID = id
	}

	return fp.writeDoc(applicationsDir, app.ID, app)
}

// ApplyTransition persists the application's new position and the activity
// recording it under one lock. The activity list is marshalled before the
// application document is replaced, so a marshalling failure leaves the
// visible state untouched.
func (fp *Persistence) ApplyTransition(_ context.Context, app *models.Application, activity *models.ApplicationActivity) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if err := fp.stampActivity(activity); err != nil {
		return err
	}

	activities, err := fp.activitiesByApplication(app.ID)
	if err != nil {
		return err
	}

	activities = append(activities, activity)

	data, err := json.MarshalIndent(activities, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal activities for application %d: %w", app.ID, err)
	}

	if err := fp.saveApplication(app); err != nil {
		return err
	}

	return fp.writeAtomic(fp.activitiesPath(app.ID), data)
}

// AppendActivity writes one audit record for an application.
func (fp *Persistence) AppendActivity(_ context.Context, activity *models.ApplicationActivity) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if err := fp.stampActivity(activity); err != nil {
		return err
	}

	activities, err := fp.activitiesByApplication(activity.ApplicationID)
	if err != nil {
		return err
	}

	activities = append(activities, activity)

	data, err := json.MarshalIndent(activities, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal activities for application %d: %w", activity.ApplicationID, err)
	}

	return fp.writeAtomic(fp.activitiesPath(activity.ApplicationID), data)
}

// ActivitiesByApplication returns an application's audit trail in insertion order.
func (fp *Persistence) ActivitiesByApplication(_ context.Context, applicationID int64) ([]*models.ApplicationActivity, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	activities, err := fp.activitiesByApplication(applicationID)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].ID < activities[j].ID
	})

	return activities, nil
}

func (fp *Persistence) activitiesPath(applicationID int64) string {
	return filepath.Clean(path.Join(fp.root, activitiesDir, strconv.FormatInt(applicationID, 10)+".json"))
}

func (fp *Persistence) activitiesByApplication(applicationID int64) ([]*models.ApplicationActivity, error) {
	body, err := os.ReadFile(fp.activitiesPath(applicationID))
	if err != nil {
		if os.IsNotExist(err) {
			return make([]*models.ApplicationActivity, 0), nil
		}

		return nil, fmt.Errorf("failed to read activities for application %d: %w", applicationID, err)
	}

	var activities []*models.ApplicationActivity
	if err := json.Unmarshal(body, &activities); err != nil {
		return nil, fmt.Errorf("failed to unmarshal activities for application %d: %w", applicationID, err)
	}

	return activities, nil
}

func (fp *Persistence) stampActivity(activity *models.ApplicationActivity) error {
	if activity.ID == 0 {
		id, err := fp.nextID("application_activity")
		if err != nil {
			return fmt.Errorf("failed to generate activity ID: %w", err)
		}

		activity.ID = id
	}

	if activity.Timestamp.IsZero() {
		activity.Timestamp = time.Now().UTC()
	}

	return nil
}
