package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/epoll/internal/core/domain"
)

// DebateField names a persisted sub-field of a debate. Updates write only
// the fields they are given.
type DebateField int

const (
	FieldTitle DebateField = iota
	FieldContent
	FieldState
	FieldOptions
	FieldAttachments
	FieldVoteCount
)

type DebateFilter struct {
	Type     domain.DebateType
	MinState domain.DebateState
	MaxState domain.DebateState
	Limit    int
}

type DebateSummary struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Type      domain.DebateType
	State     domain.DebateState
	Title     string
	VoteCount int64
}

type DebateRepository interface {
	Insert(ctx context.Context, debate *domain.Debate) error
	// GetByID fails with domain.ErrDebateNotFound when the debate does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Debate, error)
	// List returns summaries ordered by descending id.
	List(ctx context.Context, filter DebateFilter) ([]DebateSummary, error)
	// ListIDs returns the ids of every debate of the given type.
	ListIDs(ctx context.Context, typ domain.DebateType) ([]uuid.UUID, error)
	// Update writes the given fields if the stored version still equals
	// debate.Version, then increments debate.Version. It fails with
	// domain.ErrVersionConflict otherwise.
	Update(ctx context.Context, debate *domain.Debate, fields ...DebateField) error
	// AppendVote atomically pushes vote and increments the vote count,
	// provided the poll has the option and no vote by the same user. It
	// fails with domain.ErrVersionConflict when either precondition no
	// longer holds at write time.
	AppendVote(ctx context.Context, pollID uuid.UUID, vote domain.Vote) error
}

type CreateDebateInput struct {
	Title     string
	Content   string
	CreatedBy string
}

type ListDebatesInput struct {
	MinState string
	MaxState string
	Limit    int
}

type UpdateDebateInput struct {
	Title   *string
	Content *string
}

type VoteInput struct {
	PollID   string
	UserID   string
	OptionID string
}

type OptionView struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type FileView struct {
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	Extension    string `json:"extension"`
	MimeType     string `json:"mimeType"`
	DownloadPath string `json:"downloadPath"`
	OriginalName string `json:"originalName"`
}

type AttachmentView struct {
	ID   string   `json:"id"`
	File FileView `json:"file"`
}

type VoteView struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UserID    string    `json:"userId"`
	OptionID  string    `json:"optionId"`
}

type VotesView struct {
	Count int64      `json:"count"`
	Data  []VoteView `json:"data,omitempty"`
}

type PayloadView struct {
	Options     []OptionView     `json:"options,omitempty"`
	Attachments []AttachmentView `json:"attachments"`
	Votes       *VotesView       `json:"votes,omitempty"`
}

type DebateView struct {
	ID        string      `json:"id"`
	CreatedAt time.Time   `json:"createdAt"`
	CreatedBy string      `json:"createdBy,omitempty"`
	Type      string      `json:"type"`
	State     string      `json:"state"`
	Title     string      `json:"title"`
	Content   string      `json:"content"`
	Payload   PayloadView `json:"payload"`
}

type DebateListItem struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Type      string    `json:"type"`
	State     string    `json:"state"`
	Title     string    `json:"title"`
	VoteCount int64     `json:"voteCount"`
}

type OptionResultView struct {
	OptionID   string  `json:"optionId"`
	Reason     string  `json:"reason"`
	VoteCount  int64   `json:"voteCount"`
	Percentage float64 `json:"percentage"`
}

type PollResultsView struct {
	PollID     string             `json:"pollId"`
	TotalVotes int64              `json:"totalVotes"`
	Options    []OptionResultView `json:"options"`
}

type DebateService interface {
	CreatePoll(ctx context.Context, input CreateDebateInput) (*DebateView, error)
	CreateAnnouncement(ctx context.Context, input CreateDebateInput) (*DebateView, error)
	ListPolls(ctx context.Context, input ListDebatesInput) ([]DebateListItem, error)
	ListAnnouncements(ctx context.Context, input ListDebatesInput) ([]DebateListItem, error)
	GetDebate(ctx context.Context, id string) (*DebateView, error)
	UpdateDebate(ctx context.Context, id string, input UpdateDebateInput) (*DebateView, error)
	ChangeState(ctx context.Context, id string, state string) (*DebateView, error)
	AddOption(ctx context.Context, pollID string, reason string) (*DebateView, error)
	RemoveOption(ctx context.Context, pollID string, optionID string) (*DebateView, error)
	AddAttachment(ctx context.Context, debateID string, file domain.File) (*DebateView, error)
	RemoveAttachment(ctx context.Context, debateID string, attachmentID string) (*DebateView, error)
	Vote(ctx context.Context, input VoteInput) (*DebateView, error)
	PollResults(ctx context.Context, pollID string) (*PollResultsView, error)
}

// ReconcileService repairs vote counts that drifted from the vote data.
type ReconcileService interface {
	ReconcileAllVotes(ctx context.Context) (int, error)
}

// Metrics receives domain events worth counting. Implementations must be
// safe for concurrent use.
type Metrics interface {
	GrantIssued(grantType domain.GrantType)
	VoteRecorded()
	VersionConflict(op string)
}

type NopMetrics struct{}

func (NopMetrics) GrantIssued(domain.GrantType) {}
func (NopMetrics) VoteRecorded()                {}
func (NopMetrics) VersionConflict(string)       {}
