package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/tazhibayda/task-service/internal/domain"
)

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := s.colUsers.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := s.colUsers.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.users.insert",
		tracer.Tag("auth_type", u.AuthType),
	)
	defer sp.Finish()

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	u.Active = true
	_, err := s.colUsers.InsertOne(ctx, u)
	if err != nil {
		sp.SetTag("error", err)
	}
	return err
}

// TouchLogin stamps last_login_at and refreshes mutable display data
// coming from the freshest identity claim. Empty photo leaves the
// stored one alone.
func (s *Store) TouchLogin(ctx context.Context, id, photoURL string) (*domain.User, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.users.touch_login")
	defer sp.Finish()

	now := time.Now().UTC()
	set := bson.M{"last_login_at": now, "updated_at": now}
	if photoURL != "" {
		set["photo_url"] = photoURL
	}
	res := s.colUsers.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var u domain.User
	if err := res.Decode(&u); err != nil {
		sp.SetTag("error", err)
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
