package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Vehicle is owned by the dispatch persistence layer; this subsystem
// reads it and maintains only the DeviceIMEI linkage.
type Vehicle struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name" validate:"required"`
	PlateNumber string             `bson:"plate_number" json:"plateNumber" validate:"required"`
	DriverID    string             `bson:"driver_id,omitempty" json:"driverId,omitempty"`
	DeviceIMEI  string             `bson:"device_imei,omitempty" json:"deviceImei,omitempty"`
	Status      string             `bson:"status" json:"status"`
	Make        string             `bson:"make,omitempty" json:"make,omitempty"`
	Model       string             `bson:"model,omitempty" json:"model,omitempty"`
	Year        int                `bson:"year,omitempty" json:"year,omitempty"`
	VIN         string             `bson:"vin,omitempty" json:"vin,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}

// Vehicle statuses used by the dispatch side.
const (
	VehicleStatusActive      = "active"
	VehicleStatusIdle        = "idle"
	VehicleStatusMaintenance = "maintenance"
	VehicleStatusOffline     = "offline"
)
