package repository

import (
	"context"
	"time"

	"mentorhub/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ChatRepo stores one append-only chat log document per room
type ChatRepo interface {
	Ensure(ctx context.Context, roomID string) error
	Append(ctx context.Context, roomID string, msg *model.Message) error
	Get(ctx context.Context, roomID string) (*model.ChatLog, error)
}

type chatRepo struct {
	collection *mongo.Collection
}

// NewChatRepo creates a new chat log repository
func NewChatRepo(db *mongo.Database) ChatRepo {
	return &chatRepo{
		collection: db.Collection("chat_logs"),
	}
}

func (r *chatRepo) Ensure(ctx context.Context, roomID string) error {
	update := bson.M{
		"$setOnInsert": bson.M{
			"messages":  bson.A{},
			"createdAt": time.Now(),
		},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": roomID}, update, options.Update().SetUpsert(true))
	return err
}

func (r *chatRepo) Append(ctx context.Context, roomID string, msg *model.Message) error {
	update := bson.M{
		"$push":        bson.M{"messages": msg},
		"$setOnInsert": bson.M{"createdAt": time.Now()},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": roomID}, update, options.Update().SetUpsert(true))
	return err
}

func (r *chatRepo) Get(ctx context.Context, roomID string) (*model.ChatLog, error) {
	var log model.ChatLog
	err := r.collection.FindOne(ctx, bson.M{"_id": roomID}).Decode(&log)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}
