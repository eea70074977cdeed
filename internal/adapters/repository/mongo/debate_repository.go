package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/epoll/internal/core/domain"
	"github.com/vncsmyrnk/epoll/internal/core/ports"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type debateRepository struct {
	coll *mongo.Collection
}

func NewDebateRepository(db *mongo.Database) ports.DebateRepository {
	return &debateRepository{
		coll: db.Collection(debatesCollection),
	}
}

func (r *debateRepository) Insert(ctx context.Context, debate *domain.Debate) error {
	if _, err := r.coll.InsertOne(ctx, newDebateDocument(debate)); err != nil {
		return fmt.Errorf("failed to insert debate: %w", err)
	}
	return nil
}

func (r *debateRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Debate, error) {
	var doc debateDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.Wrap(domain.ErrDebateNotFound, "debate %s", id)
		}
		return nil, fmt.Errorf("failed to get debate: %w", err)
	}
	return doc.toDomain()
}

func (r *debateRepository) List(ctx context.Context, filter ports.DebateFilter) ([]ports.DebateSummary, error) {
	query := bson.M{
		"type":  string(filter.Type),
		"state": bson.M{"$gte": int(filter.MinState), "$lte": int(filter.MaxState)},
	}
	opts := options.Find().
		SetProjection(bson.M{
			"createdAt":           1,
			"type":                1,
			"state":               1,
			"title":               1,
			"payload.votes.count": 1,
		}).
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(int64(filter.Limit))

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list debates: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []debateDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode debates: %w", err)
	}

	summaries := make([]ports.DebateSummary, 0, len(docs))
	for _, doc := range docs {
		id, err := uuid.Parse(doc.ID)
		if err != nil {
			return nil, fmt.Errorf("corrupt debate id %q: %w", doc.ID, err)
		}
		sum := ports.DebateSummary{
			ID:        id,
			CreatedAt: doc.CreatedAt,
			Type:      domain.DebateType(doc.Type),
			State:     domain.DebateState(doc.State),
			Title:     doc.Title,
		}
		if doc.Payload.Votes != nil {
			sum.VoteCount = doc.Payload.Votes.Count
		}
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

func (r *debateRepository) ListIDs(ctx context.Context, typ domain.DebateType) ([]uuid.UUID, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"type": string(typ)}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list debate ids: %w", err)
	}
	defer cursor.Close(ctx)

	var ids []uuid.UUID
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode debate id: %w", err)
		}
		id, err := uuid.Parse(doc.ID)
		if err != nil {
			return nil, fmt.Errorf("corrupt debate id %q: %w", doc.ID, err)
		}
		ids = append(ids, id)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating debate ids: %w", err)
	}
	return ids, nil
}

func (r *debateRepository) Update(ctx context.Context, debate *domain.Debate, fields ...ports.DebateField) error {
	set := bson.M{}
	doc := newDebateDocument(debate)
	for _, f := range fields {
		switch f {
		case ports.FieldTitle:
			set["title"] = doc.Title
		case ports.FieldContent:
			set["content"] = doc.Content
		case ports.FieldState:
			set["state"] = doc.State
		case ports.FieldOptions:
			set["payload.options"] = doc.Payload.Options
		case ports.FieldAttachments:
			set["payload.attachments"] = doc.Payload.Attachments
		case ports.FieldVoteCount:
			if doc.Payload.Votes == nil {
				return domain.Wrap(domain.ErrNotAPoll, "debate %s", debate.ID)
			}
			set["payload.votes.count"] = doc.Payload.Votes.Count
		default:
			return fmt.Errorf("unknown debate field %d", f)
		}
	}

	update := bson.M{"$inc": bson.M{"version": 1}}
	if len(set) > 0 {
		update["$set"] = set
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": doc.ID, "version": debate.Version}, update)
	if err != nil {
		return fmt.Errorf("failed to update debate: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.Wrap(domain.ErrVersionConflict, "debate %s at version %d", debate.ID, debate.Version)
	}

	debate.Version++
	return nil
}

func (r *debateRepository) AppendVote(ctx context.Context, pollID uuid.UUID, vote domain.Vote) error {
	filter := bson.M{
		"_id":                       pollID.String(),
		"type":                      string(domain.DebateTypePoll),
		"payload.options._id":       vote.OptionID.String(),
		"payload.votes.data.userId": bson.M{"$ne": vote.UserID.String()},
	}
	update := bson.M{
		"$push": bson.M{"payload.votes.data": newVoteDocument(vote)},
		"$inc":  bson.M{"payload.votes.count": 1, "version": 1},
	}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to append vote: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.Wrap(domain.ErrVersionConflict, "poll %s rejected vote by %s", pollID, vote.UserID)
	}
	return nil
}
