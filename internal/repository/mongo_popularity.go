package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/user/moovie-pulse/internal/model"
)

// MongoPopularityRepository 基于 MongoDB 的热搜记录存储
type MongoPopularityRepository struct {
	collection *mongo.Collection
}

func NewMongoPopularityRepository(client *mongo.Client, dbName, collectionName string) *MongoPopularityRepository {
	return &MongoPopularityRepository{collection: client.Database(dbName).Collection(collectionName)}
}

// ConnectMongo 连接 MongoDB
func ConnectMongo(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	opts := append([]*options.ClientOptions{options.Client().ApplyURI(uri)}, extra...)
	client, err := mongo.Connect(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return client, nil
}

// EnsureIndexes searchTerm 唯一，count 倒序
func (r *MongoPopularityRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "searchTerm", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "count", Value: -1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, models)
	return err
}

func (r *MongoPopularityRepository) Find(ctx context.Context, searchTerm string) (*model.TrendingMovie, error) {
	var entry model.TrendingMovie
	err := r.collection.FindOne(ctx, bson.M{"searchTerm": searchTerm}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *MongoPopularityRepository) Update(ctx context.Context, id string, count int) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"count": count, "updatedAt": time.Now().UTC()}},
	)
	return err
}

func (r *MongoPopularityRepository) Insert(ctx context.Context, entry *model.TrendingMovie) error {
	now := time.Now().UTC()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, entry)
	return err
}

func (r *MongoPopularityRepository) ListTopByCount(ctx context.Context, limit int) ([]*model.TrendingMovie, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "count", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []*model.TrendingMovie
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// IncrementOrCreate 使用 $inc + upsert 在服务端完成累加
func (r *MongoPopularityRepository) IncrementOrCreate(ctx context.Context, entry *model.TrendingMovie) error {
	now := time.Now().UTC()
	update := bson.M{
		"$inc": bson.M{"count": 1},
		"$set": bson.M{"updatedAt": now},
		"$setOnInsert": bson.M{
			"_id":        uuid.NewString(),
			"movie_id":   entry.MovieID,
			"poster_url": entry.PosterURL,
			"createdAt":  now,
		},
	}
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"searchTerm": entry.SearchTerm},
		update,
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *MongoPopularityRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}
