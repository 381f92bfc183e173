package repository

import (
	"context"
	"errors"
	"time"

	"medtransit-telemetry/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// VehicleRepository reads dispatch vehicles. The only write this
// subsystem performs on vehicles is the device linkage.
type VehicleRepository struct {
	collection *mongo.Collection
}

func NewVehicleRepository(db *mongo.Database) *VehicleRepository {
	return &VehicleRepository{
		collection: db.Collection("vehicles"),
	}
}

func (r *VehicleRepository) FindByID(ctx context.Context, id string) (*models.Vehicle, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errors.New("invalid vehicle ID")
	}

	var vehicle models.Vehicle
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&vehicle)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &vehicle, nil
}

func (r *VehicleRepository) FindByDeviceIMEI(ctx context.Context, imei string) (*models.Vehicle, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var vehicle models.Vehicle
	err := r.collection.FindOne(ctx, bson.M{"device_imei": imei}).Decode(&vehicle)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &vehicle, nil
}

func (r *VehicleRepository) FindAll(ctx context.Context) ([]*models.Vehicle, error) {
	return r.find(ctx, bson.M{})
}

// FindActive returns vehicles in a status that can carry a live trip.
func (r *VehicleRepository) FindActive(ctx context.Context) ([]*models.Vehicle, error) {
	return r.find(ctx, bson.M{"status": bson.M{"$ne": models.VehicleStatusOffline}})
}

func (r *VehicleRepository) find(ctx context.Context, filter bson.M) ([]*models.Vehicle, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var vehicles []*models.Vehicle
	for cursor.Next(ctx) {
		var vehicle models.Vehicle
		if err := cursor.Decode(&vehicle); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, &vehicle)
	}
	return vehicles, cursor.Err()
}

// SetDeviceIMEI links a device to the vehicle; pass an empty string to
// unlink.
func (r *VehicleRepository) SetDeviceIMEI(ctx context.Context, id, imei string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return errors.New("invalid vehicle ID")
	}

	var update bson.M
	if imei == "" {
		update = bson.M{
			"$unset": bson.M{"device_imei": ""},
			"$set":   bson.M{"updated_at": time.Now()},
		}
	} else {
		update = bson.M{"$set": bson.M{
			"device_imei": imei,
			"updated_at":  time.Now(),
		}}
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
