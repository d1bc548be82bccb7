package mutate

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tabia/api/data/model"
	apierrors "github.com/tabia/api/internal/errors"
	"github.com/tabia/api/internal/instance"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mutate performs the writes behind realtime commands and REST
// mutations. Last write wins; there is no merge of concurrent edits.
type Mutate struct {
	mongo instance.Mongo
}

func New(m instance.Mongo) *Mutate {
	return &Mutate{mongo: m}
}

func (m *Mutate) CreateSession(ctx context.Context, ownerID string, req model.CreateSessionRequest) (model.Session, error) {
	now := time.Now()
	session := model.Session{
		ID:        uuid.NewString(),
		Name:      req.Name,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := m.mongo.Collection(instance.CollectionNameSessions).InsertOne(ctx, session); err != nil {
		return model.Session{}, apierrors.ErrMutationFailed().SetDetail(err.Error())
	}

	return session, nil
}

func (m *Mutate) UpdateSession(ctx context.Context, sessionID string, req model.UpdateSessionRequest) (model.Session, error) {
	set := bson.M{"updated_at": time.Now()}
	if req.Name != nil {
		set["name"] = *req.Name
	}

	if req.Starred != nil {
		set["starred"] = *req.Starred
	}

	session := model.Session{}

	err := m.mongo.Collection(instance.CollectionNameSessions).
		FindOneAndUpdate(ctx,
			bson.M{"_id": sessionID},
			bson.M{"$set": set},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return model.Session{}, apierrors.ErrUnknownSession()
		}

		return model.Session{}, apierrors.ErrMutationFailed().SetDetail(err.Error())
	}

	return session, nil
}

// DeleteSession removes the session and everything hanging off it.
func (m *Mutate) DeleteSession(ctx context.Context, sessionID string) (model.Session, error) {
	session := model.Session{}

	err := m.mongo.Collection(instance.CollectionNameSessions).
		FindOneAndDelete(ctx, bson.M{"_id": sessionID}).
		Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return model.Session{}, apierrors.ErrUnknownSession()
		}

		return model.Session{}, apierrors.ErrMutationFailed().SetDetail(err.Error())
	}

	if _, err = m.mongo.Collection(instance.CollectionNameTabs).DeleteMany(ctx, bson.M{"session_id": sessionID}); err != nil {
		return model.Session{}, apierrors.ErrMutationFailed().SetDetail(err.Error())
	}

	if _, err = m.mongo.Collection(instance.CollectionNameCollaborators).DeleteMany(ctx, bson.M{"session_id": sessionID}); err != nil {
		return model.Session{}, apierrors.ErrMutationFailed().SetDetail(err.Error())
	}

	return session, nil
}

func (m *Mutate) AddTab(ctx context.Context, sessionID string, req model.AddTabRequest) (model.Tab, error) {
	count, err := m.mongo.Collection(instance.CollectionNameSessions).CountDocuments(ctx, bson.M{"_id": sessionID})
	if err != nil {
		return model.Tab{}, apierrors.ErrMutationFailed().SetDetail(err.Error())
	}

	if count == 0 {
		return model.Tab{}, apierrors.ErrUnknownSession()
	}

	tab := model.Tab{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		Title:       req.Title,
		URL:         req.URL,
		TabIndex:    req.TabIndex,
		WindowIndex: req.WindowIndex,
		CreatedAt:   time.Now(),
	}

	if _, err = m.mongo.Collection(instance.CollectionNameTabs).InsertOne(ctx, tab); err != nil {
		return model.Tab{}, apierrors.ErrMutationFailed().SetDetail(err.Error())
	}

	m.touchSession(ctx, sessionID)

	return tab, nil
}

func (m *Mutate) RemoveTab(ctx context.Context, sessionID string, tabID string) (model.Tab, error) {
	tab := model.Tab{}

	err := m.mongo.Collection(instance.CollectionNameTabs).
		FindOneAndDelete(ctx, bson.M{"_id": tabID, "session_id": sessionID}).
		Decode(&tab)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return model.Tab{}, apierrors.ErrUnknownTab()
		}

		return model.Tab{}, apierrors.ErrMutationFailed().SetDetail(err.Error())
	}

	m.touchSession(ctx, sessionID)

	return tab, nil
}

func (m *Mutate) UpdateTab(ctx context.Context, sessionID string, tabID string, req model.UpdateTabRequest) (model.Tab, error) {
	set := bson.M{}
	if req.Title != nil {
		set["title"] = *req.Title
	}

	if req.URL != nil {
		set["url"] = *req.URL
	}

	if req.TabIndex != nil {
		set["tab_index"] = *req.TabIndex
	}

	if len(set) == 0 {
		return model.Tab{}, apierrors.ErrBadRequest().SetDetail("no fields to update")
	}

	return m.findAndSet(ctx, sessionID, tabID, set)
}

func (m *Mutate) ReorderTab(ctx context.Context, sessionID string, tabID string, tabIndex int) (model.Tab, error) {
	return m.findAndSet(ctx, sessionID, tabID, bson.M{"tab_index": tabIndex})
}

func (m *Mutate) findAndSet(ctx context.Context, sessionID string, tabID string, set bson.M) (model.Tab, error) {
	tab := model.Tab{}

	err := m.mongo.Collection(instance.CollectionNameTabs).
		FindOneAndUpdate(ctx,
			bson.M{"_id": tabID, "session_id": sessionID},
			bson.M{"$set": set},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&tab)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return model.Tab{}, apierrors.ErrUnknownTab()
		}

		return model.Tab{}, apierrors.ErrMutationFailed().SetDetail(err.Error())
	}

	m.touchSession(ctx, sessionID)

	return tab, nil
}

// AddCollaborator grants a user a role in a session, or changes the
// role they already hold. The invite is effective immediately; there
// is no pending acceptance state.
func (m *Mutate) AddCollaborator(ctx context.Context, sessionID string, req model.AddCollaboratorRequest) (model.Collaborator, error) {
	count, err := m.mongo.Collection(instance.CollectionNameSessions).CountDocuments(ctx, bson.M{"_id": sessionID})
	if err != nil {
		return model.Collaborator{}, apierrors.ErrMutationFailed().SetDetail(err.Error())
	}

	if count == 0 {
		return model.Collaborator{}, apierrors.ErrUnknownSession()
	}

	collab := model.Collaborator{}

	err = m.mongo.Collection(instance.CollectionNameCollaborators).
		FindOneAndUpdate(ctx,
			bson.M{"session_id": sessionID, "user_id": req.UserID},
			bson.M{
				"$set":         bson.M{"role": req.Role},
				"$setOnInsert": bson.M{"added_at": time.Now()},
			},
			options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
		).Decode(&collab)
	if err != nil {
		return model.Collaborator{}, apierrors.ErrMutationFailed().SetDetail(err.Error())
	}

	m.touchSession(ctx, sessionID)

	return collab, nil
}

func (m *Mutate) RemoveCollaborator(ctx context.Context, sessionID string, userID string) (model.Collaborator, error) {
	collab := model.Collaborator{}

	err := m.mongo.Collection(instance.CollectionNameCollaborators).
		FindOneAndDelete(ctx, bson.M{"session_id": sessionID, "user_id": userID}).
		Decode(&collab)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return model.Collaborator{}, apierrors.ErrUnknownCollaborator()
		}

		return model.Collaborator{}, apierrors.ErrMutationFailed().SetDetail(err.Error())
	}

	m.touchSession(ctx, sessionID)

	return collab, nil
}

func (m *Mutate) touchSession(ctx context.Context, sessionID string) {
	_, _ = m.mongo.Collection(instance.CollectionNameSessions).UpdateOne(ctx,
		bson.M{"_id": sessionID},
		bson.M{"$set": bson.M{"updated_at": time.Now()}},
	)
}
