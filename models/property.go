package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Canonical availability remarks shown to tenants. FullyOccupied is set
// automatically when availableUnits reaches zero.
const (
	AvailabilityAvailable     = "Available"
	AvailabilityFullyOccupied = "Fully Occupied"
	AvailabilityNotYetReady   = "Not Yet Ready"
)

func ValidAvailabilityStatus(s string) bool {
	switch s {
	case AvailabilityAvailable, AvailabilityFullyOccupied, AvailabilityNotYetReady:
		return true
	}
	return false
}

type Property struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title              string             `bson:"title" json:"title"`
	Type               string             `bson:"type" json:"type"`
	Price              int                `bson:"price" json:"price"`
	State              string             `bson:"state" json:"state"`
	City               string             `bson:"city" json:"city"`
	Address            string             `bson:"address" json:"address"`
	Bedrooms           int                `bson:"bedrooms" json:"bedrooms"`
	Bathrooms          int                `bson:"bathrooms" json:"bathrooms"`
	Amenities          string             `bson:"amenities" json:"amenities"`
	Furnished          string             `bson:"furnished" json:"furnished"`
	TotalUnits         int                `bson:"totalUnits" json:"totalUnits"`
	AvailableUnits     int                `bson:"availableUnits" json:"availableUnits"`
	AvailabilityStatus string             `bson:"availabilityStatus" json:"availabilityStatus"`
	LandlordID         string             `bson:"landlordID" json:"landlordID"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
}

// PropertySummary is the denormalized slice of a property attached to an
// application when listing a tenant's applications.
type PropertySummary struct {
	Title      string `bson:"title" json:"title"`
	City       string `bson:"city" json:"city"`
	State      string `bson:"state" json:"state"`
	Price      int    `bson:"price" json:"price"`
	LandlordID string `bson:"landlordID" json:"landlordID"`
}
