package mongodb

import (
	"context"
	"fmt"

	"github.com/amadev/osprofiler/pkg/trace/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type notificationStore interface {
	Upsert(ctx context.Context, id string, notification model.Notification) error
	Find(ctx context.Context, filter map[string]string) ([]model.Notification, error)
	Delete(ctx context.Context, filter map[string]string) (int64, error)
	Close(ctx context.Context) error
}

type notificationDocument struct {
	ID         string                 `bson:"_id"`
	BaseID     string                 `bson:"base_id"`
	TraceID    string                 `bson:"trace_id"`
	ParentID   string                 `bson:"parent_id"`
	Name       string                 `bson:"name"`
	Phase      string                 `bson:"phase"`
	Event      string                 `bson:"event,omitempty"`
	Project    string                 `bson:"project"`
	Service    string                 `bson:"service"`
	Host       string                 `bson:"host"`
	Timestamp  string                 `bson:"timestamp"`
	RawPayload map[string]interface{} `bson:"raw_payload,omitempty"`
}

func (d notificationDocument) notification() model.Notification {
	return model.Notification{
		BaseID:     d.BaseID,
		TraceID:    d.TraceID,
		ParentID:   d.ParentID,
		Name:       d.Name,
		Phase:      model.Phase(d.Phase),
		Event:      d.Event,
		Project:    d.Project,
		Service:    d.Service,
		Host:       d.Host,
		Timestamp:  d.Timestamp,
		RawPayload: d.RawPayload,
	}
}

type mongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func newMongoStore(ctx context.Context, config Config) (*mongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	collection := client.Database(config.Database).Collection(config.Collection)
	_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "base_id", Value: 1}, {Key: "timestamp", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create base_id index: %w", err)
	}
	return &mongoStore{client: client, collection: collection}, nil
}

func (s *mongoStore) Upsert(ctx context.Context, id string, notification model.Notification) error {
	document := notificationDocument{
		ID:         id,
		BaseID:     notification.BaseID,
		TraceID:    notification.TraceID,
		ParentID:   notification.ParentID,
		Name:       notification.Name,
		Phase:      string(notification.Phase),
		Event:      notification.Event,
		Project:    notification.Project,
		Service:    notification.Service,
		Host:       notification.Host,
		Timestamp:  notification.Timestamp,
		RawPayload: notification.RawPayload,
	}
	_, err := s.collection.ReplaceOne(
		ctx,
		bson.M{"_id": id},
		document,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert notification: %w", err)
	}
	return nil
}

func (s *mongoStore) Find(ctx context.Context, filter map[string]string) ([]model.Notification, error) {
	cursor, err := s.collection.Find(
		ctx,
		toBSONFilter(filter),
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var documents []notificationDocument
	if err := cursor.All(ctx, &documents); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	notifications := make([]model.Notification, len(documents))
	for i, document := range documents {
		notifications[i] = document.notification()
	}
	return notifications, nil
}

func (s *mongoStore) Delete(ctx context.Context, filter map[string]string) (int64, error) {
	result, err := s.collection.DeleteMany(ctx, toBSONFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to delete notifications: %w", err)
	}
	return result.DeletedCount, nil
}

func (s *mongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func toBSONFilter(filter map[string]string) bson.M {
	result := bson.M{}
	for field, value := range filter {
		result[field] = value
	}
	return result
}
