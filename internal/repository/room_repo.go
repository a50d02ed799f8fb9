package repository

import (
	"context"
	"time"

	"mentorhub/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type RoomRepo interface {
	Create(ctx context.Context, room *model.Room) error
	GetByID(ctx context.Context, id string) (*model.Room, error)
	GetByBookingID(ctx context.Context, bookingID string) (*model.Room, error)
	EnsureIndexes(ctx context.Context) error
}

type roomRepo struct {
	collection *mongo.Collection
}

func NewRoomRepo(db *mongo.Database) RoomRepo {
	return &roomRepo{
		collection: db.Collection("rooms"),
	}
}

// EnsureIndexes creates the unique bookingId index that keeps one room per booking
func (r *roomRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "bookingId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_booking"),
	})
	return err
}

func (r *roomRepo) Create(ctx context.Context, room *model.Room) error {
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, room)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (r *roomRepo) GetByID(ctx context.Context, id string) (*model.Room, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *roomRepo) GetByBookingID(ctx context.Context, bookingID string) (*model.Room, error) {
	return r.findOne(ctx, bson.M{"bookingId": bookingID})
}

func (r *roomRepo) findOne(ctx context.Context, filter bson.M) (*model.Room, error) {
	var room model.Room
	err := r.collection.FindOne(ctx, filter).Decode(&room)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil // Room not found
		}
		return nil, err
	}

	return &room, nil
}
