package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/lumenlms/approvalflow/pkg/activity"
	"github.com/lumenlms/approvalflow/pkg/eventbus"
	"github.com/lumenlms/approvalflow/pkg/models"
	"github.com/lumenlms/approvalflow/pkg/otelhelper"
	"github.com/lumenlms/approvalflow/pkg/persistence"
	"github.com/lumenlms/approvalflow/pkg/transition"
)

// CreateApplicationRequest represents the request to raise a new application.
type CreateApplicationRequest struct {
	WorkflowVersionID int64  `json:"workflow_version_id" validate:"required"`
	AssignmentID      int64  `json:"assignment_id"`
	UserID            int64  `json:"user_id"             validate:"required"`
	Title             string `json:"title"               validate:"required"`
	SourceID          *int64 `json:"source_id,omitempty"` // Application this one was cloned from
}

// Application handles application-related business operations: raising,
// submitting, withdrawing and moving applications through their workflow.
type Application struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventPublisher
	registry    *activity.Registry
	validator   *validator.Validate
	logger      *slog.Logger
	tracer      trace.Tracer
}

// NewApplication creates a new application service.
func NewApplication(p persistence.Persistence, eventBus eventbus.EventPublisher, logger *slog.Logger, tracer trace.Tracer) *Application {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}

	return &Application{
		persistence: p,
		eventBus:    eventBus,
		registry:    activity.Default(),
		validator:   validator.New(),
		logger:      logger,
		tracer:      tracer,
	}
}

// Create raises a new draft application positioned at the initial state of
// the version's first stage.
func (s *Application) Create(ctx context.Context, req *CreateApplicationRequest) (*models.Application, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, NewValidationError("CreateApplication", "INVALID_REQUEST", err.Error(), ErrInvalidRequest)
	}

	version, err := s.persistence.VersionByID(ctx, req.WorkflowVersionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow version: %w", err)
	}

	if version.Status != models.StatusActive {
		return nil, NewValidationError("CreateApplication", "NO_ACTIVE_VERSION",
			fmt.Sprintf("workflow version %d is not active", version.ID), ErrNoActiveVersion)
	}

	first := version.FirstStage()
	if first == nil {
		return nil, NewValidationError("CreateApplication", "NO_STAGES",
			fmt.Sprintf("workflow version %d has no stages", version.ID), ErrStagesRequired)
	}

	app := &models.Application{
		WorkflowVersionID: version.ID,
		AssignmentID:      req.AssignmentID,
		UserID:            req.UserID,
		Title:             req.Title,
		IsDraft:           true,
	}
	app.SetState(first.InitialState())

	if err := s.persistence.SaveApplication(ctx, app); err != nil {
		return nil, fmt.Errorf("failed to save application: %w", err)
	}

	info := map[string]any{}
	if req.SourceID != nil {
		info["source"] = *req.SourceID
	}

	if err := s.recordActivity(ctx, app, activity.TypeCreation, &req.UserID, info, false); err != nil {
		return nil, err
	}

	return app, nil
}

// Submit marks a draft application as submitted and advances it out of its
// form stage.
func (s *Application) Submit(ctx context.Context, appID, actorID int64) (*models.Application, error) {
	app, err := s.persistence.ApplicationByID(ctx, appID)
	if err != nil {
		return nil, err
	}

	if !app.InFlight() {
		return nil, NewConflictError("SubmitApplication", "ALREADY_COMPLETED",
			fmt.Sprintf("application %d is already completed", appID), ErrAlreadyCompleted)
	}

	if app.Submitted != nil {
		return nil, NewConflictError("SubmitApplication", "ALREADY_SUBMITTED",
			fmt.Sprintf("application %d is already submitted", appID), ErrAlreadySubmitted)
	}

	now := time.Now().UTC()
	app.Submitted = &now
	app.IsDraft = false

	if err := s.recordActivity(ctx, app, activity.TypeStageSubmitted, &actorID, nil, true); err != nil {
		return nil, err
	}

	return s.ApplyTransition(ctx, appID, models.TransitionNext, &actorID)
}

// Withdraw pulls a submitted application back to draft at its current
// stage's initial state.
func (s *Application) Withdraw(ctx context.Context, appID, actorID int64) (*models.Application, error) {
	app, err := s.persistence.ApplicationByID(ctx, appID)
	if err != nil {
		return nil, err
	}

	if !app.InFlight() {
		return nil, NewConflictError("WithdrawApplication", "ALREADY_COMPLETED",
			fmt.Sprintf("application %d is already completed", appID), ErrAlreadyCompleted)
	}

	if app.Submitted == nil {
		return nil, NewConflictError("WithdrawApplication", "NOT_SUBMITTED",
			fmt.Sprintf("application %d has not been submitted", appID), ErrNotSubmitted)
	}

	version, err := s.persistence.VersionByID(ctx, app.WorkflowVersionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow version: %w", err)
	}

	current, err := app.CurrentState(version)
	if err != nil {
		return nil, fmt.Errorf("failed to derive current state: %w", err)
	}

	app.IsDraft = true
	app.Submitted = nil
	app.SetState(current.Stage.InitialState())

	if err := s.recordActivity(ctx, app, activity.TypeWithdrawn, &actorID, nil, true); err != nil {
		return nil, err
	}

	return app, nil
}

// ApplyTransition resolves the transition named by field against the
// application's current state and persists the outcome atomically with its
// audit record. A nil resolution completes the application.
func (s *Application) ApplyTransition(ctx context.Context, appID int64, field string, actorID *int64) (*models.Application, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "application.transition",
		attribute.Int64(otelhelper.ApplicationIDKey, appID),
		attribute.String(otelhelper.TransitionKey, field),
	)
	defer span.End()

	app, err := s.applyTransition(ctx, appID, field, actorID)
	if err != nil {
		otelhelper.SetError(span, err,
			attribute.Int64(otelhelper.ApplicationIDKey, appID),
			attribute.String(otelhelper.TransitionKey, field),
		)

		return nil, err
	}

	return app, nil
}

func (s *Application) applyTransition(ctx context.Context, appID int64, field string, actorID *int64) (*models.Application, error) {
	app, err := s.persistence.ApplicationByID(ctx, appID)
	if err != nil {
		return nil, err
	}

	if !app.InFlight() {
		return nil, NewConflictError("ApplyTransition", "ALREADY_COMPLETED",
			fmt.Sprintf("application %d is already completed", appID), ErrAlreadyCompleted)
	}

	version, err := s.persistence.VersionByID(ctx, app.WorkflowVersionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow version: %w", err)
	}

	resolver, err := transition.FromField(version, field)
	if err != nil {
		return nil, err
	}

	current, err := app.CurrentState(version)
	if err != nil {
		return nil, fmt.Errorf("failed to derive current state: %w", err)
	}

	next := resolver.Resolve(current)
	if next == nil {
		return app, s.complete(ctx, app, actorID)
	}

	previousStageID := current.Stage.ID
	app.SetState(*next)

	switch {
	case next.Stage.Type == models.StageTypeFinished:
		return app, s.complete(ctx, app, actorID)

	case next.Stage.ID == previousStageID:
		// Restarting the stage invalidates approvals collected so far.
		return app, s.recordActivity(ctx, app, activity.TypeApprovalsReset, actorID, nil, true)

	default:
		info := map[string]any{"stage_name": next.Stage.Name}

		return app, s.recordActivity(ctx, app, activity.TypeStageStarted, actorID, info, true)
	}
}

// Activities returns the application's audit trail.
func (s *Application) Activities(ctx context.Context, appID int64) ([]*models.ApplicationActivity, error) {
	if _, err := s.persistence.ApplicationByID(ctx, appID); err != nil {
		return nil, err
	}

	return s.persistence.ActivitiesByApplication(ctx, appID)
}

// Get returns one application by ID.
func (s *Application) Get(ctx context.Context, appID int64) (*models.Application, error) {
	return s.persistence.ApplicationByID(ctx, appID)
}

func (s *Application) complete(ctx context.Context, app *models.Application, actorID *int64) error {
	now := time.Now().UTC()
	app.Completed = &now

	return s.recordActivity(ctx, app, activity.TypeFinished, actorID, nil, true)
}

// recordActivity validates and persists one audit record, then publishes the
// type's domain event. With transactional set, the application row and the
// record are written as one atomic unit.
func (s *Application) recordActivity(ctx context.Context, app *models.Application, code int, actorID *int64, info map[string]any, transactional bool) error {
	handler, err := s.registry.From(code)
	if err != nil {
		return err
	}

	if info == nil {
		info = map[string]any{}
	}

	record, err := activity.NewRecord(handler, app, actorID, info)
	if err != nil {
		return err
	}

	if transactional {
		err = s.persistence.ApplyTransition(ctx, app, record)
	} else {
		err = s.persistence.AppendActivity(ctx, record)
	}

	if err != nil {
		return fmt.Errorf("failed to persist %s activity: %w", handler.Key(), err)
	}

	s.publish(ctx, app, handler.Event(app, actorID, info))

	return nil
}

// publish fires a domain event after the triggering state is durable. Event
// delivery is best-effort; a publish failure is logged, not surfaced.
func (s *Application) publish(ctx context.Context, app *models.Application, event eventbus.Event) {
	if event == nil || s.eventBus == nil {
		return
	}

	err := s.eventBus.Publish(ctx, strconv.FormatInt(app.ID, 10), event)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "application_id", app.ID, "error", err)
	}
}
