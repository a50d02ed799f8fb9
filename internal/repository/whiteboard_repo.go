package repository

import (
	"context"
	"time"

	"mentorhub/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// WhiteboardRepo persists the whole board of a room as one document
type WhiteboardRepo interface {
	Get(ctx context.Context, roomID string) (*model.WhiteboardState, error)
	Save(ctx context.Context, state *model.WhiteboardState) error
}

type whiteboardRepo struct {
	collection *mongo.Collection
}

func NewWhiteboardRepo(db *mongo.Database) WhiteboardRepo {
	return &whiteboardRepo{
		collection: db.Collection("whiteboards"),
	}
}

func (r *whiteboardRepo) Get(ctx context.Context, roomID string) (*model.WhiteboardState, error) {
	var state model.WhiteboardState
	err := r.collection.FindOne(ctx, bson.M{"_id": roomID}).Decode(&state)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *whiteboardRepo) Save(ctx context.Context, state *model.WhiteboardState) error {
	state.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": state.RoomID}, state, options.Replace().SetUpsert(true))
	return err
}
