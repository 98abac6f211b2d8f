package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/account-verification-api/services/auth-service/internal/model"
)

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	// CreateUser inserts a new user. A duplicate email yields a mongo duplicate key error.
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	// ConsumeVerificationToken marks the pending user holding token as verified and
	// clears the token in one conditional update. Tokens whose expiry is not after
	// now do not match. mongo.ErrNoDocuments is returned when nothing matched.
	ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (*model.User, error)

	// ReplaceVerificationToken installs a new token on the pending user with the
	// given email. A nil expiresAt removes any expiry. mongo.ErrNoDocuments is
	// returned when no pending user has that email.
	ReplaceVerificationToken(ctx context.Context, email, token string, expiresAt *time.Time) (*model.User, error)
}

const userCollection = "users"

type userMongoRepository struct {
	db *mongo.Database
}

func NewUserMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) UserRepository {
	collection := db.Collection(userCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "verification_token", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create user indexes")
	}

	return &userMongoRepository{db: db}
}

func (r *userMongoRepository) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	result, err := r.db.Collection(userCollection).InsertOne(ctx, user)
	if err != nil {
		return nil, err
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		user.ID = objectID
	} else {
		return nil, errors.New("failed to convert inserted ID to ObjectID")
	}

	return user, nil
}

func (r *userMongoRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *userMongoRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *userMongoRepository) ConsumeVerificationToken(
	ctx context.Context,
	token string,
	now time.Time,
) (*model.User, error) {
	if token == "" {
		return nil, mongo.ErrNoDocuments
	}

	filter := bson.M{
		"verification_token": token,
		"verified":           false,
		"$or": bson.A{
			bson.M{"verification_token_expires_at": bson.M{"$exists": false}},
			bson.M{"verification_token_expires_at": bson.M{"$gt": now}},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"verified":   true,
			"updated_at": now,
		},
		"$unset": bson.M{
			"verification_token":            "",
			"verification_token_expires_at": "",
		},
	}

	return r.findOneAndUpdate(ctx, filter, update)
}

func (r *userMongoRepository) ReplaceVerificationToken(
	ctx context.Context,
	email string,
	token string,
	expiresAt *time.Time,
) (*model.User, error) {
	set := bson.M{
		"verification_token": token,
		"updated_at":         time.Now(),
	}
	update := bson.M{"$set": set}

	if expiresAt != nil {
		set["verification_token_expires_at"] = *expiresAt
	} else {
		update["$unset"] = bson.M{"verification_token_expires_at": ""}
	}

	return r.findOneAndUpdate(ctx, bson.M{"email": email, "verified": false}, update)
}

func (r *userMongoRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	result := r.db.Collection(userCollection).FindOne(ctx, filter)
	if result.Err() != nil {
		return nil, result.Err()
	}

	var user model.User
	if err := result.Decode(&user); err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userMongoRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*model.User, error) {
	result := r.db.Collection(userCollection).FindOneAndUpdate(
		ctx,
		filter,
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	if result.Err() != nil {
		return nil, result.Err()
	}

	var user model.User
	if err := result.Decode(&user); err != nil {
		return nil, err
	}

	return &user, nil
}
