package mongo

import (
	"context"
	"time"

	"github.com/tabia/api/internal/instance"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type Options struct {
	URI      string
	Username string
	Password string
	DB       string
	Direct   bool
}

type inst struct {
	client *mongo.Client
	db     *mongo.Database
}

func New(ctx context.Context, opt Options) (instance.Mongo, error) {
	clientOpts := options.Client().ApplyURI(opt.URI).SetDirect(opt.Direct)
	if opt.Username != "" || opt.Password != "" {
		clientOpts = clientOpts.SetAuth(options.Credential{
			Username: opt.Username,
			Password: opt.Password,
		})
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, err
	}

	return &inst{
		client: client,
		db:     client.Database(opt.DB),
	}, nil
}

func (i *inst) Ping(ctx context.Context) error {
	return i.client.Ping(ctx, readpref.Primary())
}

func (i *inst) Collection(name instance.CollectionName) *mongo.Collection {
	return i.db.Collection(string(name))
}
