package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Application statuses. Pending is the only non-terminal state; an
// application leaves it exactly once.
const (
	ApplicationPending  = "Pending"
	ApplicationApproved = "Approved"
	ApplicationRejected = "Rejected"
)

type Application struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	PropertyID primitive.ObjectID `bson:"propertyID" json:"propertyID"`
	TenantID   string             `bson:"tenantID" json:"tenantID"`
	LandlordID string             `bson:"landlordID" json:"landlordID"`
	Status     string             `bson:"status" json:"status"`
	Message    string             `bson:"message,omitempty" json:"message,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	ActedAt    *time.Time         `bson:"actedAt,omitempty" json:"actedAt,omitempty"`
}

// ApplicationSummary is an application joined with its property's display
// fields, as returned by the tenant-facing listing.
type ApplicationSummary struct {
	Application `bson:",inline"`
	Property    *PropertySummary `bson:"property,omitempty" json:"property,omitempty"`
}
