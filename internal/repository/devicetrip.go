package repository

import (
	"context"
	"time"

	"medtransit-telemetry/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DeviceTripRepository stores provider-side trip records.
type DeviceTripRepository struct {
	collection *mongo.Collection
}

func NewDeviceTripRepository(db *mongo.Database) *DeviceTripRepository {
	return &DeviceTripRepository{
		collection: db.Collection("device_trips"),
	}
}

func (r *DeviceTripRepository) Create(ctx context.Context, trip *models.DeviceTrip) (*models.DeviceTrip, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	now := time.Now()
	trip.CreatedAt = now
	trip.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, trip)
	if err != nil {
		return nil, err
	}
	trip.ID = result.InsertedID.(primitive.ObjectID)
	return trip, nil
}

// Finalize completes the open trip with the given provider trip id. The
// end fields come from the trip_end event payload.
func (r *DeviceTripRepository) Finalize(ctx context.Context, imei, providerTripID string, end models.DeviceTrip) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	set := bson.M{
		"end_time":        end.EndTime,
		"end_latitude":    end.EndLatitude,
		"end_longitude":   end.EndLongitude,
		"distance_km":     end.DistanceKm,
		"duration_sec":    end.DurationSec,
		"max_speed":       end.MaxSpeed,
		"avg_speed":       end.AvgSpeed,
		"fuel_used":       end.FuelUsed,
		"hard_brakes":     end.HardBrakes,
		"rapid_accels":    end.RapidAccels,
		"speeding_events": end.SpeedingEvents,
		"completed":       true,
		"updated_at":      time.Now(),
	}
	if end.EncodedRoute != "" {
		set["encoded_route"] = end.EncodedRoute
	}

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"imei": imei, "provider_trip_id": providerTripID, "completed": false},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *DeviceTripRepository) FindByIMEI(ctx context.Context, imei string, limit int64) ([]*models.DeviceTrip, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: -1}}).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"imei": imei}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var trips []*models.DeviceTrip
	for cursor.Next(ctx) {
		var trip models.DeviceTrip
		if err := cursor.Decode(&trip); err != nil {
			return nil, err
		}
		trips = append(trips, &trip)
	}
	return trips, cursor.Err()
}
