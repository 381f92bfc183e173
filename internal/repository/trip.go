package repository

import (
	"context"
	"time"

	"medtransit-telemetry/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// TripRepository reads dispatch trips for geofence evaluation. Trip state
// itself is owned by the trip management side and never written here.
type TripRepository struct {
	collection *mongo.Collection
}

func NewTripRepository(db *mongo.Database) *TripRepository {
	return &TripRepository{
		collection: db.Collection("trips"),
	}
}

// FindActiveByVehicleID returns the vehicle's trips in an active status.
func (r *TripRepository) FindActiveByVehicleID(ctx context.Context, vehicleID string) ([]*models.Trip, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"vehicle_id": vehicleID,
		"status":     bson.M{"$in": models.ActiveTripStatuses},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var trips []*models.Trip
	for cursor.Next(ctx) {
		var trip models.Trip
		if err := cursor.Decode(&trip); err != nil {
			return nil, err
		}
		trips = append(trips, &trip)
	}
	return trips, cursor.Err()
}
