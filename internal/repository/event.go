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

// EventRepository is the append-only telemetry event log.
type EventRepository struct {
	collection *mongo.Collection
}

func NewEventRepository(db *mongo.Database) *EventRepository {
	return &EventRepository{
		collection: db.Collection("telemetry_events"),
	}
}

func (r *EventRepository) Insert(ctx context.Context, event *models.TelemetryEvent) (*models.TelemetryEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now()
	}

	result, err := r.collection.InsertOne(ctx, event)
	if err != nil {
		return nil, err
	}
	event.ID = result.InsertedID.(primitive.ObjectID)
	return event, nil
}

// MarkProcessed stamps ProcessedAt once. A second call for the same
// event is a no-op, which keeps processing idempotent.
func (r *EventRepository) MarkProcessed(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "processed_at": nil},
		bson.M{"$set": bson.M{"processed_at": time.Now()}},
	)
	return err
}

func (r *EventRepository) FindRecent(ctx context.Context, limit int64) ([]*models.TelemetryEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "received_at", Value: -1}}).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []*models.TelemetryEvent
	for cursor.Next(ctx) {
		var event models.TelemetryEvent
		if err := cursor.Decode(&event); err != nil {
			return nil, err
		}
		events = append(events, &event)
	}
	return events, cursor.Err()
}

func (r *EventRepository) FindByIMEI(ctx context.Context, imei string, limit int64) ([]*models.TelemetryEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "received_at", Value: -1}}).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"imei": imei}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []*models.TelemetryEvent
	for cursor.Next(ctx) {
		var event models.TelemetryEvent
		if err := cursor.Decode(&event); err != nil {
			return nil, err
		}
		events = append(events, &event)
	}
	return events, cursor.Err()
}

// DeleteOlderThan purges log rows received before the cutoff and returns
// the number removed.
func (r *EventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"received_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
