package instance

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

type Mongo interface {
	Ping(ctx context.Context) error
	Collection(name CollectionName) *mongo.Collection
}

type CollectionName string

const (
	CollectionNameSessions      CollectionName = "sessions"
	CollectionNameTabs          CollectionName = "tabs"
	CollectionNameCollaborators CollectionName = "collaborators"
)
