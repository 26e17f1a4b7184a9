package store

import (
	"context"
	"errors"

	"github.com/rentnest/rentnest-backend/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PropertyStore is the persistence surface for property documents. Unit
// accounting goes through ReserveUnit/ReleaseUnit only, never through a
// read-count-then-write sequence.
type PropertyStore interface {
	Insert(ctx context.Context, p *models.Property) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Property, error)
	Find(ctx context.Context, filter bson.M, limit int64) ([]models.Property, error)
	Update(ctx context.Context, id primitive.ObjectID, fields bson.M) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	// ReserveUnit atomically decrements availableUnits if at least one unit
	// is free, returning the post-decrement document. ErrCapacityExceeded
	// when no unit was free.
	ReserveUnit(ctx context.Context, id primitive.ObjectID) (*models.Property, error)

	// ReleaseUnit compensates an unused reservation, capped at totalUnits.
	ReleaseUnit(ctx context.Context, id primitive.ObjectID) error

	// ApplyAvailability sets the given availability fields and returns the
	// updated document.
	ApplyAvailability(ctx context.Context, id primitive.ObjectID, fields bson.M) (*models.Property, error)
}

type MongoPropertyStore struct {
	col *mongo.Collection
}

func NewMongoPropertyStore(col *mongo.Collection) *MongoPropertyStore {
	return &MongoPropertyStore{col: col}
}

func (s *MongoPropertyStore) Insert(ctx context.Context, p *models.Property) error {
	_, err := s.col.InsertOne(ctx, p)
	return err
}

func (s *MongoPropertyStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Property, error) {
	var p models.Property
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *MongoPropertyStore) Find(ctx context.Context, filter bson.M, limit int64) ([]models.Property, error) {
	findOptions := options.Find()
	if limit > 0 {
		findOptions.SetLimit(limit)
	}
	cursor, err := s.col.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var properties []models.Property
	if err := cursor.All(ctx, &properties); err != nil {
		return nil, err
	}
	return properties, nil
}

func (s *MongoPropertyStore) Update(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *MongoPropertyStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *MongoPropertyStore) ReserveUnit(ctx context.Context, id primitive.ObjectID) (*models.Property, error) {
	filter := bson.M{"_id": id, "availableUnits": bson.M{"$gt": 0}}
	update := bson.M{"$inc": bson.M{"availableUnits": -1}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p models.Property
	err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Either the property is gone or no unit is free; callers have
			// already established existence, so report exhaustion.
			return nil, models.ErrCapacityExceeded
		}
		return nil, err
	}
	return &p, nil
}

func (s *MongoPropertyStore) ReleaseUnit(ctx context.Context, id primitive.ObjectID) error {
	filter := bson.M{"_id": id, "$expr": bson.M{"$lt": bson.A{"$availableUnits", "$totalUnits"}}}
	update := bson.M{"$inc": bson.M{"availableUnits": 1}}
	_, err := s.col.UpdateOne(ctx, filter, update)
	return err
}

func (s *MongoPropertyStore) ApplyAvailability(ctx context.Context, id primitive.ObjectID, fields bson.M) (*models.Property, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p models.Property
	err := s.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": fields}, opts).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
