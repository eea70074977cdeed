package mongo

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/epoll/internal/core/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Identifiers are stored as canonical uuid strings. Debate ids are v7, so
// sorting on _id follows creation time.

type debateDocument struct {
	ID        string          `bson:"_id"`
	CreatedAt time.Time       `bson:"createdAt"`
	CreatedBy string          `bson:"createdBy,omitempty"`
	Type      string          `bson:"type"`
	State     int             `bson:"state"`
	Title     string          `bson:"title"`
	Content   string          `bson:"content"`
	Version   int64           `bson:"version"`
	Payload   payloadDocument `bson:"payload"`
}

type payloadDocument struct {
	Options     []optionDocument     `bson:"options,omitempty"`
	Attachments []attachmentDocument `bson:"attachments"`
	Votes       *votesDocument       `bson:"votes,omitempty"`
}

type optionDocument struct {
	ID     string `bson:"_id"`
	Reason string `bson:"reason"`
}

type attachmentDocument struct {
	ID   string       `bson:"_id"`
	File fileDocument `bson:"file"`
}

type fileDocument struct {
	Name         string `bson:"name"`
	Size         int64  `bson:"size"`
	Extension    string `bson:"extension"`
	MimeType     string `bson:"mimeType"`
	InternalPath string `bson:"internalPath"`
	DownloadPath string `bson:"downloadPath"`
	OriginalName string `bson:"originalName"`
}

type votesDocument struct {
	Count int64          `bson:"count"`
	Data  []voteDocument `bson:"data"`
}

type voteDocument struct {
	ID        string    `bson:"_id"`
	CreatedAt time.Time `bson:"createdAt"`
	UserID    string    `bson:"userId"`
	OptionID  string    `bson:"optionId"`
}

type refreshTokenDocument struct {
	ID        bson.ObjectID `bson:"_id"`
	Token     string        `bson:"token"`
	UserID    string        `bson:"userId"`
	CreatedAt time.Time     `bson:"createdAt"`
	RotatedAt *time.Time    `bson:"rotatedAt,omitempty"`
}

func newDebateDocument(d *domain.Debate) debateDocument {
	doc := debateDocument{
		ID:        d.ID.String(),
		CreatedAt: d.CreatedAt,
		Type:      string(d.Type),
		State:     int(d.State),
		Title:     d.Title,
		Content:   d.Content,
		Version:   d.Version,
		Payload: payloadDocument{
			Attachments: attachmentDocuments(d.Attachments()),
		},
	}
	if d.CreatedBy != uuid.Nil {
		doc.CreatedBy = d.CreatedBy.String()
	}
	if poll, err := d.Poll(); err == nil {
		doc.Payload.Options = optionDocuments(poll.Options)
		doc.Payload.Votes = &votesDocument{
			Count: poll.Votes.Count,
			Data:  voteDocuments(poll.Votes.Data),
		}
	}
	return doc
}

func (doc debateDocument) toDomain() (*domain.Debate, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("corrupt debate id %q: %w", doc.ID, err)
	}

	d := &domain.Debate{
		ID:        id,
		CreatedAt: doc.CreatedAt,
		Type:      domain.DebateType(doc.Type),
		State:     domain.DebateState(doc.State),
		Title:     doc.Title,
		Content:   doc.Content,
		Version:   doc.Version,
	}
	if doc.CreatedBy != "" {
		if d.CreatedBy, err = uuid.Parse(doc.CreatedBy); err != nil {
			return nil, fmt.Errorf("corrupt creator of debate %s: %w", doc.ID, err)
		}
	}

	attachments, err := doc.Payload.attachments()
	if err != nil {
		return nil, fmt.Errorf("debate %s: %w", doc.ID, err)
	}

	switch d.Type {
	case domain.DebateTypePoll:
		poll := domain.NewPollPayload()
		poll.Attachments = attachments
		for _, o := range doc.Payload.Options {
			optID, err := uuid.Parse(o.ID)
			if err != nil {
				return nil, fmt.Errorf("debate %s: corrupt option id %q: %w", doc.ID, o.ID, err)
			}
			poll.Options = append(poll.Options, domain.Option{ID: optID, Reason: o.Reason})
		}
		if doc.Payload.Votes != nil {
			poll.Votes.Count = doc.Payload.Votes.Count
			for _, v := range doc.Payload.Votes.Data {
				vote, err := v.toDomain()
				if err != nil {
					return nil, fmt.Errorf("debate %s: %w", doc.ID, err)
				}
				poll.Votes.Data = append(poll.Votes.Data, vote)
			}
		}
		d.Payload = poll
	case domain.DebateTypeAnnouncement:
		d.Payload = &domain.AnnouncementPayload{Attachments: attachments}
	default:
		return nil, fmt.Errorf("debate %s: unknown type %q", doc.ID, doc.Type)
	}

	return d, nil
}

func (p payloadDocument) attachments() ([]domain.Attachment, error) {
	out := make([]domain.Attachment, 0, len(p.Attachments))
	for _, a := range p.Attachments {
		id, err := uuid.Parse(a.ID)
		if err != nil {
			return nil, fmt.Errorf("corrupt attachment id %q: %w", a.ID, err)
		}
		out = append(out, domain.Attachment{
			ID: id,
			File: domain.File{
				Name:         a.File.Name,
				Size:         a.File.Size,
				Extension:    a.File.Extension,
				MimeType:     a.File.MimeType,
				InternalPath: a.File.InternalPath,
				DownloadPath: a.File.DownloadPath,
				OriginalName: a.File.OriginalName,
			},
		})
	}
	return out, nil
}

func (v voteDocument) toDomain() (domain.Vote, error) {
	id, err := uuid.Parse(v.ID)
	if err != nil {
		return domain.Vote{}, fmt.Errorf("corrupt vote id %q: %w", v.ID, err)
	}
	userID, err := uuid.Parse(v.UserID)
	if err != nil {
		return domain.Vote{}, fmt.Errorf("corrupt vote user %q: %w", v.UserID, err)
	}
	optionID, err := uuid.Parse(v.OptionID)
	if err != nil {
		return domain.Vote{}, fmt.Errorf("corrupt vote option %q: %w", v.OptionID, err)
	}
	return domain.Vote{ID: id, CreatedAt: v.CreatedAt, UserID: userID, OptionID: optionID}, nil
}

// The slice helpers never return nil: a nil slice is stored as null, which
// $push cannot append to.

func optionDocuments(options []domain.Option) []optionDocument {
	out := make([]optionDocument, 0, len(options))
	for _, o := range options {
		out = append(out, optionDocument{ID: o.ID.String(), Reason: o.Reason})
	}
	return out
}

func attachmentDocuments(attachments []domain.Attachment) []attachmentDocument {
	out := make([]attachmentDocument, 0, len(attachments))
	for _, a := range attachments {
		out = append(out, attachmentDocument{
			ID: a.ID.String(),
			File: fileDocument{
				Name:         a.File.Name,
				Size:         a.File.Size,
				Extension:    a.File.Extension,
				MimeType:     a.File.MimeType,
				InternalPath: a.File.InternalPath,
				DownloadPath: a.File.DownloadPath,
				OriginalName: a.File.OriginalName,
			},
		})
	}
	return out
}

func voteDocuments(votes []domain.Vote) []voteDocument {
	out := make([]voteDocument, 0, len(votes))
	for _, v := range votes {
		out = append(out, newVoteDocument(v))
	}
	return out
}

func newVoteDocument(v domain.Vote) voteDocument {
	return voteDocument{
		ID:        v.ID.String(),
		CreatedAt: v.CreatedAt,
		UserID:    v.UserID.String(),
		OptionID:  v.OptionID.String(),
	}
}
