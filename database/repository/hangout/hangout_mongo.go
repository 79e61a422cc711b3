package hangoutRepo

import (
	"context"
	"errors"
	"fmt"

	"proxo/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// CollectionName is the MongoDB collection holding hangout requests.
const CollectionName = "hangoutRequests"

// MongoHangoutRepo implements HangoutRepository using MongoDB.
// Watch relies on change streams, which need a replica set or sharded cluster.
type MongoHangoutRepo struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

// NewMongoHangoutRepo creates a new instance of HangoutRepository using MongoDB.
func NewMongoHangoutRepo(db *mongo.Database, logger *zap.Logger) HangoutRepository {
	repo := &MongoHangoutRepo{
		coll:   db.Collection(CollectionName),
		logger: logger,
	}
	if err := repo.ensureIndexes(); err != nil {
		logger.Warn("hangoutRepo: failed to create indexes", zap.Error(err))
	}
	return repo
}

func (r *MongoHangoutRepo) Create(ctx context.Context, req *models.HangoutRequest) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if _, err := r.coll.InsertOne(ctx, req); err != nil {
		return fmt.Errorf("failed to create hangout request: %w", err)
	}
	return nil
}

func (r *MongoHangoutRepo) GetByID(ctx context.Context, id string) (*models.HangoutRequest, error) {
	var req models.HangoutRequest
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&req); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch hangout request with id %s: %w", id, err)
	}
	return &req, nil
}

func (r *MongoHangoutRepo) UpdateStatus(ctx context.Context, id string, from, to models.RequestStatus) (bool, error) {
	filter := bson.M{"id": id, "status": from}
	update := bson.M{"$set": bson.M{"status": to}}
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to update status of hangout request %s: %w", id, err)
	}
	return result.ModifiedCount > 0, nil
}

func (r *MongoHangoutRepo) Find(ctx context.Context, q Query) ([]models.HangoutRequest, error) {
	opts := options.Find()
	if sortDoc := buildSort(q.Order); len(sortDoc) > 0 {
		opts.SetSort(sortDoc)
	}

	cursor, err := r.coll.Find(ctx, buildFilter(q), opts)
	if err != nil {
		return nil, fmt.Errorf("hangout query failed: %w", err)
	}
	defer cursor.Close(ctx)

	reqs := make([]models.HangoutRequest, 0)
	for cursor.Next(ctx) {
		var req models.HangoutRequest
		if err := cursor.Decode(&req); err != nil {
			// A malformed document must not take the whole feed down.
			r.logger.Warn("hangoutRepo: skipping undecodable document", zap.Error(err))
			continue
		}
		reqs = append(reqs, req)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return reqs, nil
}

func (r *MongoHangoutRepo) Watch(ctx context.Context) (ChangeFeed, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"operationType": bson.M{"$in": []string{"insert", "update", "replace", "delete"}},
		}}},
	}
	stream, err := r.coll.Watch(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to open change stream on %s: %w", CollectionName, err)
	}
	return stream, nil
}

func buildFilter(q Query) bson.M {
	filter := bson.M{}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	switch {
	case q.CreatedBy != "" && q.ExcludeCreatedBy != "":
		filter["createdBy"] = bson.M{"$eq": q.CreatedBy, "$ne": q.ExcludeCreatedBy}
	case q.CreatedBy != "":
		filter["createdBy"] = q.CreatedBy
	case q.ExcludeCreatedBy != "":
		filter["createdBy"] = bson.M{"$ne": q.ExcludeCreatedBy}
	}
	if !q.ExpiresAfter.IsZero() {
		filter["expiresAt"] = bson.M{"$gt": q.ExpiresAfter}
	}
	return filter
}

func buildSort(keys []SortKey) bson.D {
	sortDoc := bson.D{}
	for _, k := range keys {
		dir := 1
		if k.Desc {
			dir = -1
		}
		sortDoc = append(sortDoc, bson.E{Key: k.Field, Value: dir})
	}
	return sortDoc
}
