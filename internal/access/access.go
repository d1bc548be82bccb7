package access

import (
	"context"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/tabia/api/data/model"
	"github.com/tabia/api/internal/instance"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Resolver answers "what may this user do in this session". The owner
// of a session is treated as an editor; everyone else gets whatever
// their collaborator record grants, or nothing.
type Resolver struct {
	mongo instance.Mongo
	roles *cache.Cache
}

type Options struct {
	Mongo instance.Mongo

	// CacheTTL bounds how stale a cached role may be. Revocation takes
	// at most this long to be seen by the realtime layer.
	CacheTTL time.Duration
}

func New(opt Options) *Resolver {
	ttl := opt.CacheTTL
	if ttl <= 0 {
		ttl = time.Second * 10
	}

	return &Resolver{
		mongo: opt.Mongo,
		roles: cache.New(ttl, ttl*2),
	}
}

func (r *Resolver) ResolveRole(ctx context.Context, userID string, sessionID string) (model.Role, error) {
	key := userID + "/" + sessionID
	if v, ok := r.roles.Get(key); ok {
		return v.(model.Role), nil
	}

	role, err := r.lookup(ctx, userID, sessionID)
	if err != nil {
		return model.RoleNone, err
	}

	r.roles.SetDefault(key, role)

	return role, nil
}

// Invalidate drops the cached role for (userID, sessionID), used when
// a collaborator record changes.
func (r *Resolver) Invalidate(userID string, sessionID string) {
	r.roles.Delete(userID + "/" + sessionID)
}

func (r *Resolver) lookup(ctx context.Context, userID string, sessionID string) (model.Role, error) {
	session := model.Session{}

	err := r.mongo.Collection(instance.CollectionNameSessions).
		FindOne(ctx, bson.M{"_id": sessionID}).
		Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return model.RoleNone, nil
		}

		return model.RoleNone, err
	}

	if session.OwnerID == userID {
		return model.RoleEditor, nil
	}

	collab := model.Collaborator{}

	err = r.mongo.Collection(instance.CollectionNameCollaborators).
		FindOne(ctx, bson.M{"session_id": sessionID, "user_id": userID}).
		Decode(&collab)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return model.RoleNone, nil
		}

		return model.RoleNone, err
	}

	return collab.Role, nil
}
