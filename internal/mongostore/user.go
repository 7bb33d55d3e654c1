package mongostore

import (
	"context"
	"time"

	"github.com/chandama/touken-west-sub001/internal/user"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// UserStore implements user.Store on the users collection.
type UserStore struct {
	col *mongo.Collection
}

var _ user.Store = (*UserStore)(nil)

func (s *UserStore) FindByID(ctx context.Context, id string) (*user.User, error) {
	return findOne[user.User](ctx, s.col, bson.D{{Key: "_id", Value: id}})
}

func (s *UserStore) FindByProviderID(ctx context.Context, p user.Provider, id string) (*user.User, error) {
	if id == "" || !p.Supported() {
		return nil, user.ErrNotFound
	}
	return findOne[user.User](ctx, s.col, bson.D{{Key: p.Field(), Value: id}})
}

// FindByEmail uses $eq so a caller-supplied value is never read as an operator.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return findOne[user.User](ctx, s.col, bson.D{{Key: "email", Value: bson.D{{Key: "$eq", Value: email}}}})
}

func (s *UserStore) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	return findOne[user.User](ctx, s.col, bson.D{{Key: "username", Value: bson.D{{Key: "$eq", Value: username}}}})
}

func (s *UserStore) Create(ctx context.Context, u *user.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	_, err := s.col.InsertOne(ctx, u)
	return wrapError(err)
}

func (s *UserStore) Update(ctx context.Context, id string, upd user.Update) (*user.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var out user.User
	err := s.col.FindOneAndUpdate(
		ctx,
		bson.D{{Key: "_id", Value: id}},
		updateDoc(upd, time.Now().UTC()),
		opts,
	).Decode(&out)
	if err != nil {
		return nil, wrapError(err)
	}
	return &out, nil
}

func (s *UserStore) Delete(ctx context.Context, id string) error {
	res, err := s.col.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return wrapError(err)
	}
	if res.DeletedCount == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (s *UserStore) List(ctx context.Context) ([]*user.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetProjection(bson.D{{Key: "password", Value: 0}})
	return findMany[user.User](ctx, s.col, bson.D{}, opts)
}

// updateDoc builds the update document for a partial user write.
// Unlinked provider ids are removed rather than blanked so the sparse
// unique indexes never see two empty values.
func updateDoc(upd user.Update, now time.Time) bson.D {
	set := bson.D{{Key: "updatedAt", Value: now}}
	var unset bson.D

	str := func(key string, v *string) {
		if v != nil {
			set = append(set, bson.E{Key: key, Value: *v})
		}
	}
	str("email", upd.Email)
	str("username", upd.Username)
	str("password", upd.PasswordHash)
	str("authMethod", upd.AuthMethod)
	str("displayName", upd.DisplayName)
	str("avatarUrl", upd.AvatarURL)
	if upd.EmailVerified != nil {
		set = append(set, bson.E{Key: "emailVerified", Value: *upd.EmailVerified})
	}
	str("role", upd.Role)
	if upd.Link != nil && upd.Link.Provider.Supported() {
		if upd.Link.ID == "" {
			unset = append(unset, bson.E{Key: upd.Link.Provider.Field(), Value: ""})
		} else {
			set = append(set, bson.E{Key: upd.Link.Provider.Field(), Value: upd.Link.ID})
		}
	}

	doc := bson.D{{Key: "$set", Value: set}}
	if len(unset) > 0 {
		doc = append(doc, bson.E{Key: "$unset", Value: unset})
	}
	return doc
}
