package repository

import (
	"context"
	"time"

	"medtransit-telemetry/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DeviceRepository persists DeviceState documents keyed by IMEI.
type DeviceRepository struct {
	collection *mongo.Collection
}

func NewDeviceRepository(db *mongo.Database) *DeviceRepository {
	return &DeviceRepository{
		collection: db.Collection("devices"),
	}
}

func (r *DeviceRepository) FindByIMEI(ctx context.Context, imei string) (*models.DeviceState, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var device models.DeviceState
	err := r.collection.FindOne(ctx, bson.M{"imei": imei}).Decode(&device)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &device, nil
}

func (r *DeviceRepository) FindByVehicleID(ctx context.Context, vehicleID string) (*models.DeviceState, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var device models.DeviceState
	err := r.collection.FindOne(ctx, bson.M{"vehicle_id": vehicleID}).Decode(&device)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &device, nil
}

func (r *DeviceRepository) FindAll(ctx context.Context) ([]*models.DeviceState, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "imei", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var devices []*models.DeviceState
	for cursor.Next(ctx) {
		var device models.DeviceState
		if err := cursor.Decode(&device); err != nil {
			return nil, err
		}
		devices = append(devices, &device)
	}
	return devices, cursor.Err()
}

// Upsert creates or refreshes a device record from provider sync data.
// Location fields are only touched when the incoming fix is newer than
// the stored one, keeping webhook-written positions authoritative.
func (r *DeviceRepository) Upsert(ctx context.Context, device *models.DeviceState) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	now := time.Now()
	set := bson.M{
		"name":       device.Name,
		"online":     device.Online,
		"updated_at": now,
	}
	if device.LastSeen != nil {
		set["last_seen"] = device.LastSeen
	}
	setOnInsert := bson.M{
		"imei":       device.IMEI,
		"created_at": now,
	}
	if device.Diagnostics.UpdatedAt != nil {
		set["diagnostics"] = device.Diagnostics
	}

	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"imei": device.IMEI},
		bson.M{"$set": set, "$setOnInsert": setOnInsert},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return err
	}

	if device.LocationUpdatedAt != nil {
		_, err = r.updateLocationIfNewer(ctx, device.IMEI, deviceFix{
			Latitude:  device.Latitude,
			Longitude: device.Longitude,
			Speed:     device.Speed,
			Heading:   device.Heading,
			Altitude:  device.Altitude,
			Accuracy:  device.Accuracy,
			Timestamp: *device.LocationUpdatedAt,
		})
	}
	return err
}

type deviceFix struct {
	Latitude  float64
	Longitude float64
	Speed     float64
	Heading   float64
	Altitude  float64
	Accuracy  float64
	Timestamp time.Time
}

// UpdateLocationIfNewer applies a location fix only when its timestamp is
// strictly newer than the stored one, making location writes
// last-write-wins by event time rather than arrival order. The boolean
// result reports whether the fix was applied.
func (r *DeviceRepository) UpdateLocationIfNewer(ctx context.Context, imei string, lat, lng, speed, heading float64, ts time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return r.updateLocationIfNewer(ctx, imei, deviceFix{
		Latitude:  lat,
		Longitude: lng,
		Speed:     speed,
		Heading:   heading,
		Timestamp: ts,
	})
}

func (r *DeviceRepository) updateLocationIfNewer(ctx context.Context, imei string, fix deviceFix) (bool, error) {
	now := time.Now()
	filter := bson.M{
		"imei": imei,
		"$or": []bson.M{
			{"location_updated_at": bson.M{"$exists": false}},
			{"location_updated_at": nil},
			{"location_updated_at": bson.M{"$lt": fix.Timestamp}},
		},
	}
	update := bson.M{"$set": bson.M{
		"latitude":            fix.Latitude,
		"longitude":           fix.Longitude,
		"speed":               fix.Speed,
		"heading":             fix.Heading,
		"altitude":            fix.Altitude,
		"accuracy":            fix.Accuracy,
		"location_updated_at": fix.Timestamp,
		"online":              true,
		"last_seen":           now,
		"updated_at":          now,
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

func (r *DeviceRepository) UpdateDiagnostics(ctx context.Context, imei string, diag models.DeviceDiagnostics) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"imei": imei},
		bson.M{"$set": bson.M{
			"diagnostics": diag,
			"updated_at":  time.Now(),
		}},
	)
	return err
}

// IncrementBehavior bumps one behavior counter field (e.g. "hard_braking")
// and stamps the counters' update time.
func (r *DeviceRepository) IncrementBehavior(ctx context.Context, imei, counter string, delta int) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"imei": imei},
		bson.M{
			"$inc": bson.M{"behavior." + counter: delta},
			"$set": bson.M{
				"behavior.updated_at": time.Now(),
				"updated_at":          time.Now(),
			},
		},
	)
	return err
}

func (r *DeviceRepository) SetTripState(ctx context.Context, imei string, inProgress bool, startedAt *time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	set := bson.M{
		"trip_in_progress": inProgress,
		"updated_at":       time.Now(),
	}
	if inProgress {
		set["trip_started_at"] = startedAt
	} else {
		set["trip_started_at"] = nil
	}

	_, err := r.collection.UpdateOne(ctx, bson.M{"imei": imei}, bson.M{"$set": set})
	return err
}

func (r *DeviceRepository) LinkVehicle(ctx context.Context, imei, vehicleID string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"imei": imei},
		bson.M{"$set": bson.M{
			"vehicle_id": vehicleID,
			"updated_at": time.Now(),
		}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *DeviceRepository) UnlinkVehicle(ctx context.Context, imei string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"imei": imei},
		bson.M{
			"$unset": bson.M{"vehicle_id": ""},
			"$set":   bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
