package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"mentorhub/internal/config"
	"mentorhub/internal/model"
	"mentorhub/internal/repository"
	"mentorhub/internal/service"

	"github.com/joho/godotenv"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	_ = godotenv.Load()

	cfg, err := config.Load(config.New(), os.Getenv("MENTORHUB_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.MongoDatabase)
	if err := repository.NewRoomRepo(db).EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure indexes")
	}

	mentor := model.Identity{UserID: "mentor_demo", Username: "Ada (mentor)", Role: model.RoleMentor}
	learner := model.Identity{UserID: "learner_demo", Username: "Linus (learner)", Role: model.RoleLearner}

	now := time.Now()
	booking := &model.Booking{
		ID:          ulid.Make().String(),
		Mentor:      mentor,
		Learner:     learner,
		Status:      model.BookingRequested,
		ScheduledAt: now.Add(time.Hour),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repository.NewBookingRepo(db).Create(ctx, booking); err != nil {
		log.Fatal().Err(err).Msg("failed to insert booking")
	}

	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.TokenTTL)
	mentorToken, err := authSvc.IssueToken(mentor)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to issue mentor token")
	}
	learnerToken, err := authSvc.IssueToken(learner)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to issue learner token")
	}

	fmt.Printf("Created requested booking %s\n", booking.ID)
	fmt.Printf("  mentor  %s token: %s\n", mentor.UserID, mentorToken.Token)
	fmt.Printf("  learner %s token: %s\n", learner.UserID, learnerToken.Token)
	fmt.Printf("Confirm with: curl -X POST -H 'Authorization: Bearer %s' -d '{\"decision\":\"confirm\"}' http://localhost:%d/v1/bookings/%s/decision\n",
		mentorToken.Token, cfg.Port, booking.ID)
}
