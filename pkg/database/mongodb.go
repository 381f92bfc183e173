package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

// Connect establishes a connection to MongoDB
func Connect(mongoURI string) (*mongo.Database, error) {
	cs, err := connstring.ParseAndValidate(mongoURI)
	if err != nil {
		return nil, fmt.Errorf("invalid MongoDB URI: %v", err)
	}

	clientOptions := options.Client().ApplyURI(mongoURI)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	log.Println("Successfully connected to MongoDB")

	dbName := cs.Database
	if dbName == "" {
		dbName = "medtransit"
	}

	db := client.Database(dbName)

	if err := createIndexes(db); err != nil {
		log.Printf("Warning: Failed to create indexes: %v", err)
	}

	return db, nil
}

// createIndexes creates necessary indexes for all collections
func createIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	devicesCollection := db.Collection("devices")
	deviceIndexes := []mongo.IndexModel{
		{
			Keys:    map[string]interface{}{"imei": 1},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: map[string]interface{}{"vehicle_id": 1},
		},
		{
			Keys: map[string]interface{}{"online": 1},
		},
		{
			Keys: map[string]interface{}{"location_updated_at": -1},
		},
	}
	if _, err := devicesCollection.Indexes().CreateMany(ctx, deviceIndexes); err != nil {
		log.Printf("Failed to create device indexes: %v", err)
	}

	eventsCollection := db.Collection("telemetry_events")
	eventIndexes := []mongo.IndexModel{
		{
			Keys: map[string]interface{}{
				"imei":      1,
				"timestamp": -1,
			},
		},
		{
			Keys: map[string]interface{}{"received_at": -1},
		},
		{
			Keys: map[string]interface{}{"processed_at": 1},
		},
		{
			Keys: map[string]interface{}{"type": 1},
		},
	}
	if _, err := eventsCollection.Indexes().CreateMany(ctx, eventIndexes); err != nil {
		log.Printf("Failed to create event indexes: %v", err)
	}

	deviceTripsCollection := db.Collection("device_trips")
	deviceTripIndexes := []mongo.IndexModel{
		{
			Keys: map[string]interface{}{
				"imei":             1,
				"provider_trip_id": 1,
			},
		},
		{
			Keys: map[string]interface{}{"completed": 1},
		},
		{
			Keys: map[string]interface{}{"start_time": -1},
		},
	}
	if _, err := deviceTripsCollection.Indexes().CreateMany(ctx, deviceTripIndexes); err != nil {
		log.Printf("Failed to create device trip indexes: %v", err)
	}

	vehiclesCollection := db.Collection("vehicles")
	vehicleIndexes := []mongo.IndexModel{
		{
			Keys:    map[string]interface{}{"plate_number": 1},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: map[string]interface{}{"device_imei": 1},
		},
		{
			Keys: map[string]interface{}{"status": 1},
		},
	}
	if _, err := vehiclesCollection.Indexes().CreateMany(ctx, vehicleIndexes); err != nil {
		log.Printf("Failed to create vehicle indexes: %v", err)
	}

	tripsCollection := db.Collection("trips")
	tripIndexes := []mongo.IndexModel{
		{
			Keys: map[string]interface{}{
				"vehicle_id": 1,
				"status":     1,
			},
		},
		{
			Keys: map[string]interface{}{"scheduled_at": -1},
		},
	}
	if _, err := tripsCollection.Indexes().CreateMany(ctx, tripIndexes); err != nil {
		log.Printf("Failed to create trip indexes: %v", err)
	}

	usersCollection := db.Collection("users")
	userIndexes := []mongo.IndexModel{
		{
			Keys:    map[string]interface{}{"email": 1},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: map[string]interface{}{"role": 1},
		},
	}
	if _, err := usersCollection.Indexes().CreateMany(ctx, userIndexes); err != nil {
		log.Printf("Failed to create user indexes: %v", err)
	}

	log.Println("Database indexes created successfully")
	return nil
}

// Disconnect closes the MongoDB connection
func Disconnect(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %v", err)
	}

	log.Println("Disconnected from MongoDB")
	return nil
}

// Health checks the database connection health
func Health(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return db.Client().Ping(ctx, nil)
}
