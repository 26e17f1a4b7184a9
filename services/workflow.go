package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rentnest/rentnest-backend/models"
	"github.com/rentnest/rentnest-backend/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Actor is the authenticated caller of a workflow operation.
type Actor struct {
	ID   string
	Role string
}

// CanActOn reports whether the actor may manage resources owned by the
// given landlord. This is the single ownership check used by every
// mutating operation.
func (a Actor) CanActOn(landlordID string) bool {
	return a.Role == models.RoleAdmin || a.ID == landlordID
}

// Notifier delivers fire-and-forget status-change events to a user.
// Delivery failures never propagate to the workflow caller.
type Notifier interface {
	Notify(userID string, event interface{})
}

// AvailabilityPatch carries the optional fields of a manual availability
// edit. Nil means "leave as is".
type AvailabilityPatch struct {
	AvailableUnits     *int    `json:"availableUnits,omitempty"`
	TotalUnits         *int    `json:"totalUnits,omitempty"`
	AvailabilityStatus *string `json:"availabilityStatus,omitempty"`
}

// WorkflowService owns the submit/approve/reject business logic and the
// unit-availability accounting that rides along with it.
type WorkflowService struct {
	properties   store.PropertyStore
	applications store.ApplicationStore
	notifier     Notifier
}

func NewWorkflowService(properties store.PropertyStore, applications store.ApplicationStore, notifier Notifier) *WorkflowService {
	return &WorkflowService{
		properties:   properties,
		applications: applications,
		notifier:     notifier,
	}
}

// Submit creates a Pending application for the tenant on the property.
func (s *WorkflowService) Submit(ctx context.Context, tenantID string, propertyID primitive.ObjectID, message string) (*models.Application, error) {
	if tenantID == "" || propertyID.IsZero() {
		return nil, fmt.Errorf("%w: tenantID and propertyID are required", models.ErrValidation)
	}

	property, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if property.AvailableUnits <= 0 {
		return nil, models.ErrCapacityExceeded
	}

	// Fast path for the common duplicate; the partial unique index catches
	// the race on insert.
	pending, err := s.applications.HasPending(ctx, tenantID, propertyID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, models.ErrConflict
	}

	application := &models.Application{
		ID:         primitive.NewObjectID(),
		PropertyID: propertyID,
		TenantID:   tenantID,
		LandlordID: property.LandlordID,
		Status:     models.ApplicationPending,
		Message:    message,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.applications.Insert(ctx, application); err != nil {
		return nil, err
	}
	return application, nil
}

// Approve finalizes an application as Approved and reserves one unit on the
// property. The unit reservation is a single conditional decrement, so two
// racing approvals cannot overshoot totalUnits.
func (s *WorkflowService) Approve(ctx context.Context, actor Actor, applicationID primitive.ObjectID) (*models.Application, *models.Property, error) {
	application, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, nil, err
	}
	property, err := s.properties.GetByID(ctx, application.PropertyID)
	if err != nil {
		return nil, nil, err
	}
	if !actor.CanActOn(property.LandlordID) {
		return nil, nil, models.ErrUnauthorized
	}
	if application.Status != models.ApplicationPending {
		return nil, nil, models.ErrAlreadyFinalized
	}

	updated, err := s.properties.ReserveUnit(ctx, property.ID)
	if err != nil {
		return nil, nil, err
	}

	application, err = s.applications.Finalize(ctx, applicationID, models.ApplicationApproved, time.Now().UTC())
	if err != nil {
		// Lost the race on the application; hand the unit back.
		if errors.Is(err, models.ErrAlreadyFinalized) {
			if relErr := s.properties.ReleaseUnit(ctx, property.ID); relErr != nil {
				return nil, nil, fmt.Errorf("releasing unit after finalize conflict: %w", relErr)
			}
		}
		return nil, nil, err
	}

	if updated.AvailableUnits == 0 && updated.AvailabilityStatus != models.AvailabilityFullyOccupied {
		if err := s.properties.Update(ctx, updated.ID, bson.M{"availabilityStatus": models.AvailabilityFullyOccupied}); err != nil {
			return nil, nil, err
		}
		updated.AvailabilityStatus = models.AvailabilityFullyOccupied
	}

	s.notify(application.TenantID, statusEvent(application))
	return application, updated, nil
}

// Reject finalizes an application as Rejected. No property side effects.
func (s *WorkflowService) Reject(ctx context.Context, actor Actor, applicationID primitive.ObjectID) (*models.Application, error) {
	application, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	property, err := s.properties.GetByID(ctx, application.PropertyID)
	if err != nil {
		return nil, err
	}
	if !actor.CanActOn(property.LandlordID) {
		return nil, models.ErrUnauthorized
	}
	if application.Status != models.ApplicationPending {
		return nil, models.ErrAlreadyFinalized
	}

	application, err = s.applications.Finalize(ctx, applicationID, models.ApplicationRejected, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.notify(application.TenantID, statusEvent(application))
	return application, nil
}

// ListForTenant returns all of the tenant's applications with property
// display info attached.
func (s *WorkflowService) ListForTenant(ctx context.Context, tenantID string) ([]models.ApplicationSummary, error) {
	return s.applications.ListByTenant(ctx, tenantID)
}

// ListForProperty returns a property's applications, most recent first.
func (s *WorkflowService) ListForProperty(ctx context.Context, actor Actor, propertyID primitive.ObjectID) ([]models.Application, error) {
	property, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if !actor.CanActOn(property.LandlordID) {
		return nil, models.ErrUnauthorized
	}
	return s.applications.ListByProperty(ctx, propertyID)
}

// SetAvailability applies a manual availability edit. Counts are clamped
// and availabilityStatus is derived from the resulting availableUnits
// unless the caller set it explicitly.
func (s *WorkflowService) SetAvailability(ctx context.Context, actor Actor, propertyID primitive.ObjectID, patch AvailabilityPatch) (*models.Property, error) {
	if patch.AvailableUnits == nil && patch.TotalUnits == nil && patch.AvailabilityStatus == nil {
		return nil, fmt.Errorf("%w: no availability fields provided", models.ErrValidation)
	}
	if patch.AvailabilityStatus != nil && !models.ValidAvailabilityStatus(*patch.AvailabilityStatus) {
		return nil, fmt.Errorf("%w: unknown availabilityStatus %q", models.ErrValidation, *patch.AvailabilityStatus)
	}

	property, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if !actor.CanActOn(property.LandlordID) {
		return nil, models.ErrUnauthorized
	}

	effectiveTotal := property.TotalUnits
	if patch.TotalUnits != nil {
		effectiveTotal = *patch.TotalUnits
		if effectiveTotal < 0 {
			effectiveTotal = 0
		}
	}
	effectiveAvailable := property.AvailableUnits
	if patch.AvailableUnits != nil {
		effectiveAvailable = *patch.AvailableUnits
	}
	if effectiveAvailable < 0 {
		effectiveAvailable = 0
	}
	if effectiveAvailable > effectiveTotal {
		effectiveAvailable = effectiveTotal
	}

	fields := bson.M{}
	if patch.TotalUnits != nil {
		fields["totalUnits"] = effectiveTotal
	}
	if patch.AvailableUnits != nil || effectiveAvailable != property.AvailableUnits {
		fields["availableUnits"] = effectiveAvailable
	}
	if patch.AvailabilityStatus != nil {
		fields["availabilityStatus"] = *patch.AvailabilityStatus
	} else if effectiveAvailable <= 0 {
		fields["availabilityStatus"] = models.AvailabilityFullyOccupied
	} else {
		fields["availabilityStatus"] = models.AvailabilityAvailable
	}

	return s.properties.ApplyAvailability(ctx, propertyID, fields)
}

func (s *WorkflowService) notify(userID string, event interface{}) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(userID, event)
}

func statusEvent(a *models.Application) map[string]interface{} {
	return map[string]interface{}{
		"type":          "application_status",
		"applicationID": a.ID.Hex(),
		"propertyID":    a.PropertyID.Hex(),
		"status":        a.Status,
	}
}
