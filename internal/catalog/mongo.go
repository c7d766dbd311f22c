package catalog

import (
	"context"
	"fmt"

	"roomdesk/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	RoomsCollection = "Rooms"
	TeamsCollection = "Teams"
)

type mongoSource struct {
	db *mongo.Database
}

func NewMongoSource(db *mongo.Database) Source {
	return &mongoSource{db: db}
}

func (s *mongoSource) LoadRooms(ctx context.Context) ([]model.Room, error) {
	var rooms []model.Room
	if err := s.findAll(ctx, RoomsCollection, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (s *mongoSource) LoadTeams(ctx context.Context) ([]model.Team, error) {
	var teams []model.Team
	if err := s.findAll(ctx, TeamsCollection, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

func (s *mongoSource) findAll(ctx context.Context, collection string, out any) error {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.db.Collection(collection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", collection, err)
	}
	return nil
}
