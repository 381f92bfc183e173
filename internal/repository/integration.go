package repository

import (
	"context"
	"time"

	"medtransit-telemetry/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IntegrationRepository stores the single IntegrationConfig document.
type IntegrationRepository struct {
	collection *mongo.Collection
}

func NewIntegrationRepository(db *mongo.Database) *IntegrationRepository {
	return &IntegrationRepository{
		collection: db.Collection("integration_config"),
	}
}

// Find returns the configuration record, or ErrNotFound when none has
// been created yet.
func (r *IntegrationRepository) Find(ctx context.Context) (*models.IntegrationConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var cfg models.IntegrationConfig
	err := r.collection.FindOne(ctx, bson.M{}).Decode(&cfg)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cfg, nil
}

// Save upserts the configuration. The first save creates the document;
// later saves replace it in place, keeping the original id.
func (r *IntegrationRepository) Save(ctx context.Context, cfg *models.IntegrationConfig) (*models.IntegrationConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	now := time.Now()
	cfg.UpdatedAt = now
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}

	filter := bson.M{}
	if !cfg.ID.IsZero() {
		filter = bson.M{"_id": cfg.ID}
	}

	result := r.collection.FindOneAndReplace(
		ctx,
		filter,
		cfg,
		options.FindOneAndReplace().SetUpsert(true).SetReturnDocument(options.After),
	)

	var saved models.IntegrationConfig
	if err := result.Decode(&saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// UpdateSyncState writes sync status, error and last-sync fields without
// touching credentials.
func (r *IntegrationRepository) UpdateSyncState(ctx context.Context, status, syncError string, lastSyncAt *time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	set := bson.M{
		"sync_status": status,
		"sync_error":  syncError,
		"updated_at":  time.Now(),
	}
	if lastSyncAt != nil {
		set["last_sync_at"] = lastSyncAt
	}

	_, err := r.collection.UpdateOne(ctx, bson.M{}, bson.M{"$set": set})
	return err
}
