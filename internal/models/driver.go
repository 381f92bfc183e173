package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DriverFix is a driver's last self-reported GPS position, typically from
// the driver phone app. Read-only here.
type DriverFix struct {
	Latitude   float64   `bson:"latitude" json:"latitude"`
	Longitude  float64   `bson:"longitude" json:"longitude"`
	Accuracy   float64   `bson:"accuracy" json:"accuracy"`
	ReportedAt time.Time `bson:"reported_at" json:"reportedAt"`
}

// Driver is owned by the dispatch persistence layer.
type Driver struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Phone     string             `bson:"phone,omitempty" json:"phone,omitempty"`
	VehicleID string             `bson:"vehicle_id,omitempty" json:"vehicleId,omitempty"`
	Status    string             `bson:"status" json:"status"`
	LastFix   *DriverFix         `bson:"last_fix,omitempty" json:"lastFix,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}
