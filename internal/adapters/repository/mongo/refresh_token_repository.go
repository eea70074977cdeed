package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/epoll/internal/core/domain"
	"github.com/vncsmyrnk/epoll/internal/core/ports"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// refreshTokenRepository keeps the public token id in its own unique field
// so rotation can swap it in place with a single findOneAndUpdate.
type refreshTokenRepository struct {
	coll *mongo.Collection
}

func NewRefreshTokenRepository(db *mongo.Database) ports.RefreshTokenRepository {
	return &refreshTokenRepository{
		coll: db.Collection(refreshTokensCollection),
	}
}

func (r *refreshTokenRepository) Insert(ctx context.Context, token *domain.RefreshToken) error {
	doc := refreshTokenDocument{
		ID:        bson.NewObjectID(),
		Token:     token.ID.String(),
		UserID:    token.UserID.String(),
		CreatedAt: token.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert refresh token: %w", err)
	}
	return nil
}

func (r *refreshTokenRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RefreshToken, error) {
	var doc refreshTokenDocument
	err := r.coll.FindOne(ctx, bson.M{"token": id.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	return doc.toDomain()
}

func (r *refreshTokenRepository) Rotate(ctx context.Context, oldID, newID uuid.UUID, at time.Time) (*domain.RefreshToken, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"token": newID.String(), "createdAt": at, "rotatedAt": at}}

	var doc refreshTokenDocument
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"token": oldID.String()}, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.Wrap(domain.ErrRefreshTokenNotFound, "refresh token %s", oldID)
		}
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	return doc.toDomain()
}

func (doc refreshTokenDocument) toDomain() (*domain.RefreshToken, error) {
	id, err := uuid.Parse(doc.Token)
	if err != nil {
		return nil, fmt.Errorf("corrupt refresh token %q: %w", doc.Token, err)
	}
	userID, err := uuid.Parse(doc.UserID)
	if err != nil {
		return nil, fmt.Errorf("corrupt refresh token user %q: %w", doc.UserID, err)
	}
	return &domain.RefreshToken{ID: id, UserID: userID, CreatedAt: doc.CreatedAt}, nil
}
