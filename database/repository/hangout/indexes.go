package hangoutRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ensureIndexes creates the indexes backing the live feed queries.
func (r *MongoHangoutRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		// Everyone else's active requests: status equality, expiresAt range, sort keys.
		{Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "expiresAt", Value: -1},
			{Key: "createdAt", Value: -1},
		}},
		// Own requests, and the createdBy inequality used for the nearby feed.
		{Keys: bson.D{
			{Key: "createdBy", Value: 1},
			{Key: "status", Value: 1},
			{Key: "expiresAt", Value: -1},
			{Key: "createdAt", Value: -1},
		}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
