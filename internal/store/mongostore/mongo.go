// Package mongostore 是基于 MongoDB 的用户存储实现，每个用户一个文档。
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recipebox/internal/model"
	"recipebox/internal/store"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const usersCollection = "users"

// userDoc 是 users 集合中的文档结构。
type userDoc struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	Name         string        `bson:"name"`
	Email        string        `bson:"email"`
	PasswordHash string        `bson:"password_hash"`
	Favorites    []string      `bson:"favorites"`
	CreatedAt    time.Time     `bson:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at"`
}

func (d *userDoc) toModel() *model.User {
	favs := model.Favorites(d.Favorites)
	if favs == nil {
		favs = model.Favorites{}
	}
	return &model.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Favorites:    favs,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// Store 实现 store.Store。
type Store struct {
	client *mongo.Client
	users  *mongo.Collection
	now    func() time.Time
}

var _ store.Store = (*Store)(nil)

// Open 连接 MongoDB，并确保 email 上的唯一索引存在。
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &Store{
		client: client,
		users:  client.Database(database).Collection(usersCollection),
		now:    time.Now,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_email"),
	})
	if err != nil {
		return fmt.Errorf("create email index: %w", err)
	}
	return nil
}

func (s *Store) ValidID(id string) bool {
	_, err := bson.ObjectIDFromHex(id)
	return err == nil
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	now := s.now().UTC()
	doc := userDoc{
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Favorites:    []string(user.Favorites),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if doc.Favorites == nil {
		doc.Favorites = []string{}
	}

	res, err := s.users.InsertOne(ctx, doc)
	if err != nil {
		return translateWrite(err, "insert user")
	}
	oid, ok := res.InsertedID.(bson.ObjectID)
	if !ok {
		return fmt.Errorf("insert user: unexpected id type %T", res.InsertedID)
	}
	doc.ID = oid
	*user = *doc.toModel()
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toModel(), nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, update model.UserUpdate) (*model.User, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if update.Empty() {
		return s.GetUserByID(ctx, id)
	}

	var doc userDoc
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = s.users.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": setFields(update, s.now().UTC())}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, translateWrite(err, "update user")
	}
	return doc.toModel(), nil
}

func (s *Store) SetFavorites(ctx context.Context, id string, favorites model.Favorites) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	if favorites == nil {
		favorites = model.Favorites{}
	}
	res, err := s.users.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"favorites":  []string(favorites),
		"updated_at": s.now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("update favorites: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func setFields(update model.UserUpdate, now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Email != nil {
		set["email"] = *update.Email
	}
	if update.PasswordHash != nil {
		set["password_hash"] = *update.PasswordHash
	}
	return set
}

func parseID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.NilObjectID, store.ErrInvalidID
	}
	return oid, nil
}

func translateWrite(err error, op string) error {
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicateEmail
	}
	return fmt.Errorf("%s: %w", op, err)
}
