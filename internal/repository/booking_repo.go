package repository

import (
	"context"
	"time"

	"mentorhub/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// BookingRepo handles MongoDB operations for bookings
type BookingRepo interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	// UpdateDecision moves the booking from one status to another and reports
	// whether a document in the expected status was found.
	UpdateDecision(ctx context.Context, id string, from, to model.BookingStatus, roomID, sessionLink string) (bool, error)
}

type bookingRepo struct {
	collection *mongo.Collection
}

// NewBookingRepo creates a new booking repository
func NewBookingRepo(db *mongo.Database) BookingRepo {
	return &bookingRepo{
		collection: db.Collection("bookings"),
	}
}

func (r *bookingRepo) Create(ctx context.Context, booking *model.Booking) error {
	now := time.Now()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now
	if booking.Status == "" {
		booking.Status = model.BookingRequested
	}

	_, err := r.collection.InsertOne(ctx, booking)
	return err
}

func (r *bookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	var booking model.Booking
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&booking)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepo) UpdateDecision(ctx context.Context, id string, from, to model.BookingStatus, roomID, sessionLink string) (bool, error) {
	set := bson.M{
		"status":    to,
		"updatedAt": time.Now(),
	}
	if roomID != "" {
		set["roomId"] = roomID
	}
	if sessionLink != "" {
		set["sessionLink"] = sessionLink
	}

	// Filtering on the current status makes the transition a compare-and-set.
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "status": from}, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}
