package store

import (
	"context"
	"errors"
	"time"

	"github.com/rentnest/rentnest-backend/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ApplicationStore is the persistence surface for rental applications.
type ApplicationStore interface {
	Insert(ctx context.Context, a *models.Application) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Application, error)
	HasPending(ctx context.Context, tenantID string, propertyID primitive.ObjectID) (bool, error)

	// Finalize moves a still-Pending application into the given terminal
	// status. The Pending guard rides in the update filter, so a lost race
	// surfaces as ErrAlreadyFinalized rather than a double transition.
	Finalize(ctx context.Context, id primitive.ObjectID, status string, actedAt time.Time) (*models.Application, error)

	ListByTenant(ctx context.Context, tenantID string) ([]models.ApplicationSummary, error)
	ListByProperty(ctx context.Context, propertyID primitive.ObjectID) ([]models.Application, error)
}

type MongoApplicationStore struct {
	col           *mongo.Collection
	propertiesCol string
}

func NewMongoApplicationStore(col *mongo.Collection, propertiesCol string) *MongoApplicationStore {
	return &MongoApplicationStore{col: col, propertiesCol: propertiesCol}
}

// EnsureIndexes creates the partial unique index that backs the
// one-pending-application-per-tenant-per-property rule.
func (s *MongoApplicationStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "tenantID", Value: 1}, {Key: "propertyID", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"status": models.ApplicationPending}),
	})
	return err
}

func (s *MongoApplicationStore) Insert(ctx context.Context, a *models.Application) error {
	_, err := s.col.InsertOne(ctx, a)
	if mongo.IsDuplicateKeyError(err) {
		return models.ErrConflict
	}
	return err
}

func (s *MongoApplicationStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Application, error) {
	var a models.Application
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *MongoApplicationStore) HasPending(ctx context.Context, tenantID string, propertyID primitive.ObjectID) (bool, error) {
	filter := bson.M{"tenantID": tenantID, "propertyID": propertyID, "status": models.ApplicationPending}
	err := s.col.FindOne(ctx, filter).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return false, err
}

func (s *MongoApplicationStore) Finalize(ctx context.Context, id primitive.ObjectID, status string, actedAt time.Time) (*models.Application, error) {
	filter := bson.M{"_id": id, "status": models.ApplicationPending}
	update := bson.M{"$set": bson.M{"status": status, "actedAt": actedAt}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var a models.Application
	err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrAlreadyFinalized
		}
		return nil, err
	}
	return &a, nil
}

func (s *MongoApplicationStore) ListByTenant(ctx context.Context, tenantID string) ([]models.ApplicationSummary, error) {
	pipeline := mongo.Pipeline{
		{
			{Key: "$match", Value: bson.M{"tenantID": tenantID}},
		},
		{
			{Key: "$lookup", Value: bson.M{
				"from":         s.propertiesCol,
				"localField":   "propertyID",
				"foreignField": "_id",
				"as":           "property",
			}},
		},
		{
			{Key: "$unwind", Value: bson.M{"path": "$property", "preserveNullAndEmptyArrays": true}},
		},
	}

	cursor, err := s.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var applications []models.ApplicationSummary
	if err := cursor.All(ctx, &applications); err != nil {
		return nil, err
	}
	return applications, nil
}

func (s *MongoApplicationStore) ListByProperty(ctx context.Context, propertyID primitive.ObjectID) ([]models.Application, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.col.Find(ctx, bson.M{"propertyID": propertyID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var applications []models.Application
	if err := cursor.All(ctx, &applications); err != nil {
		return nil, err
	}
	return applications, nil
}
