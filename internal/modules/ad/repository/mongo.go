package repository

import (
	"context"
	"time"

	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/popmarket/popmarket/internal/modules/ad/domain"
	apperrors "github.com/popmarket/popmarket/internal/shared/errors"
)

// MongoRepository implements Repository on a MongoDB collection
type MongoRepository struct {
	collection *mongo.Collection
}

// NewMongoRepository creates an ad repository backed by the "ads" collection
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{collection: db.Collection("ads")}
}

func (r *MongoRepository) List(ctx context.Context) ([]*domain.Ad, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, oops.With("context", "listing ads").Wrap(err)
	}

	var ads []*domain.Ad
	if err := cursor.All(ctx, &ads); err != nil {
		return nil, oops.With("context", "decoding ads").Wrap(err)
	}
	return ads, nil
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*domain.Ad, error) {
	var ad domain.Ad
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ad)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.ErrAdNotFound
		}
		return nil, oops.With("ad_id", id).Wrap(err)
	}
	return &ad, nil
}

func (r *MongoRepository) Insert(ctx context.Context, ad *domain.Ad) error {
	if _, err := r.collection.InsertOne(ctx, ad); err != nil {
		return oops.With("ad_id", ad.ID).Wrap(err)
	}
	return nil
}

func (r *MongoRepository) UpdateStatus(ctx context.Context, id string, authorID int64, status domain.Status) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "author_id": authorID},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}},
	)
	if err != nil {
		return oops.With("ad_id", id, "status", status).Wrap(err)
	}
	if res.MatchedCount == 0 {
		return r.notFoundOrNotOwner(ctx, id)
	}
	return nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string, authorID int64) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "author_id": authorID})
	if err != nil {
		return oops.With("ad_id", id).Wrap(err)
	}
	if res.DeletedCount == 0 {
		return r.notFoundOrNotOwner(ctx, id)
	}
	return nil
}

// notFoundOrNotOwner distinguishes a missing ad from an ownership
// mismatch after a filtered write matched nothing
func (r *MongoRepository) notFoundOrNotOwner(ctx context.Context, id string) error {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return oops.With("ad_id", id).Wrap(err)
	}
	if count == 0 {
		return apperrors.ErrAdNotFound
	}
	return apperrors.ErrNotOwner
}
