package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type DebateType string

const (
	DebateTypePoll         DebateType = "poll"
	DebateTypeAnnouncement DebateType = "announcement"
)

// DebateState is ordered: Draft < Published < Archived.
type DebateState int

const (
	StateDraft DebateState = iota
	StatePublished
	StateArchived
)

var stateNames = map[DebateState]string{
	StateDraft:     "draft",
	StatePublished: "published",
	StateArchived:  "archived",
}

func (s DebateState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s DebateState) Valid() bool {
	_, ok := stateNames[s]
	return ok
}

func ParseDebateState(name string) (DebateState, error) {
	for s, n := range stateNames {
		if n == name {
			return s, nil
		}
	}
	return 0, Wrap(ErrInvalidState, "unknown state %q", name)
}

// TransitionPolicy decides which lifecycle moves ChangeState accepts.
type TransitionPolicy int

const (
	// PolicyNoRevertToDraft only rejects moves back to Draft.
	PolicyNoRevertToDraft TransitionPolicy = iota
	// PolicyForwardOnly additionally rejects any move to an earlier state,
	// e.g. Archived -> Published.
	PolicyForwardOnly
)

func ParseTransitionPolicy(name string) (TransitionPolicy, error) {
	switch name {
	case "", "no-revert-to-draft":
		return PolicyNoRevertToDraft, nil
	case "forward-only":
		return PolicyForwardOnly, nil
	}
	return 0, fmt.Errorf("unknown transition policy %q", name)
}

// DebatePayload is the variant-specific part of a debate. It is sealed:
// only *PollPayload and *AnnouncementPayload implement it.
type DebatePayload interface {
	debateType() DebateType
	attachments() *[]Attachment
}

// Debate is the aggregate root. Its payload collections must only be
// changed through its methods.
type Debate struct {
	ID        uuid.UUID
	CreatedAt time.Time
	CreatedBy uuid.UUID
	Type      DebateType
	State     DebateState
	Title     string
	Content   string
	Payload   DebatePayload
	// Version is bumped by the store on every persisted change and used as
	// the compare-and-swap token for updates.
	Version int64
}

// NewDebate builds a draft debate with an empty payload of the given type.
func NewDebate(id uuid.UUID, typ DebateType, createdBy uuid.UUID, createdAt time.Time, title, content string) (*Debate, error) {
	d := &Debate{
		ID:        id,
		CreatedAt: createdAt,
		CreatedBy: createdBy,
		Type:      typ,
		State:     StateDraft,
		Title:     title,
		Content:   content,
	}
	switch typ {
	case DebateTypePoll:
		d.Payload = NewPollPayload()
	case DebateTypeAnnouncement:
		d.Payload = NewAnnouncementPayload()
	default:
		return nil, Wrap(ErrValidation, "unknown debate type %q", typ)
	}
	return d, nil
}

func (d *Debate) ChangeState(next DebateState, policy TransitionPolicy) error {
	if !next.Valid() {
		return Wrap(ErrInvalidState, "debate %s: %s", d.ID, next)
	}
	if next == StateDraft {
		return Wrap(ErrIllegalTransition, "debate %s: cannot move %s -> %s", d.ID, d.State, next)
	}
	if policy == PolicyForwardOnly && next < d.State {
		return Wrap(ErrIllegalTransition, "debate %s: cannot move %s -> %s", d.ID, d.State, next)
	}
	d.State = next
	return nil
}

// Poll returns the poll payload, or ErrNotAPoll for any other variant.
func (d *Debate) Poll() (*PollPayload, error) {
	p, ok := d.Payload.(*PollPayload)
	if !ok {
		return nil, Wrap(ErrNotAPoll, "debate %s is a %s", d.ID, d.Type)
	}
	return p, nil
}

func (d *Debate) AddOption(o Option) error {
	p, err := d.Poll()
	if err != nil {
		return err
	}
	p.AddOption(o)
	return nil
}

func (d *Debate) RemoveOption(optionID uuid.UUID) error {
	p, err := d.Poll()
	if err != nil {
		return err
	}
	p.RemoveOption(optionID)
	return nil
}

func (d *Debate) AddVote(v Vote) error {
	p, err := d.Poll()
	if err != nil {
		return err
	}
	if err := p.AddVote(v); err != nil {
		return fmt.Errorf("poll %s: %w", d.ID, err)
	}
	return nil
}

func (d *Debate) AddAttachment(a Attachment) {
	list := d.Payload.attachments()
	*list = append(*list, a)
}

func (d *Debate) RemoveAttachment(attachmentID uuid.UUID) {
	list := d.Payload.attachments()
	for i, a := range *list {
		if a.ID == attachmentID {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

// Attachments returns a copy of the attachments of either variant.
func (d *Debate) Attachments() []Attachment {
	list := *d.Payload.attachments()
	out := make([]Attachment, len(list))
	copy(out, list)
	return out
}

type Attachment struct {
	ID   uuid.UUID
	File File
}

type File struct {
	Name         string
	Size         int64
	Extension    string
	MimeType     string
	InternalPath string
	DownloadPath string
	OriginalName string
}

type AnnouncementPayload struct {
	Attachments []Attachment
}

func NewAnnouncementPayload() *AnnouncementPayload {
	return &AnnouncementPayload{Attachments: []Attachment{}}
}

func (a *AnnouncementPayload) debateType() DebateType     { return DebateTypeAnnouncement }
func (a *AnnouncementPayload) attachments() *[]Attachment { return &a.Attachments }
