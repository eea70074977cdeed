package domain

import (
	"time"

	"github.com/google/uuid"
)

type Option struct {
	ID     uuid.UUID
	Reason string
}

type Vote struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UserID    uuid.UUID
	OptionID  uuid.UUID
}

// VoteTally keeps Count equal to len(Data).
type VoteTally struct {
	Count int64
	Data  []Vote
}

type PollPayload struct {
	Options     []Option
	Attachments []Attachment
	Votes       VoteTally
}

type PollOptionStats struct {
	OptionID   uuid.UUID
	Reason     string
	VoteCount  int64
	Percentage float64
}

func NewPollPayload() *PollPayload {
	return &PollPayload{
		Options:     []Option{},
		Attachments: []Attachment{},
		Votes:       VoteTally{Data: []Vote{}},
	}
}

func (p *PollPayload) debateType() DebateType     { return DebateTypePoll }
func (p *PollPayload) attachments() *[]Attachment { return &p.Attachments }

func (p *PollPayload) AddOption(o Option) {
	p.Options = append(p.Options, o)
}

// RemoveOption is a no-op when no option has the id. Votes cast for the
// removed option are kept.
func (p *PollPayload) RemoveOption(id uuid.UUID) {
	for i, o := range p.Options {
		if o.ID == id {
			p.Options = append(p.Options[:i], p.Options[i+1:]...)
			return
		}
	}
}

func (p *PollPayload) HasOption(id uuid.UUID) bool {
	for _, o := range p.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

func (p *PollPayload) HasVoted(userID uuid.UUID) bool {
	for _, v := range p.Votes.Data {
		if v.UserID == userID {
			return true
		}
	}
	return false
}

// AddVote records v if the user has not voted yet and the option exists.
// Nothing is changed on failure.
func (p *PollPayload) AddVote(v Vote) error {
	if p.HasVoted(v.UserID) {
		return Wrap(ErrAlreadyVoted, "user %s", v.UserID)
	}
	if !p.HasOption(v.OptionID) {
		return Wrap(ErrOptionNotFound, "option %s", v.OptionID)
	}
	p.Votes.Data = append(p.Votes.Data, v)
	p.Votes.Count++
	return nil
}

// ReconcileVotes restores Count = len(Data) and reports whether it had drifted.
func (p *PollPayload) ReconcileVotes() bool {
	n := int64(len(p.Votes.Data))
	if p.Votes.Count == n {
		return false
	}
	p.Votes.Count = n
	return true
}

// Tally counts votes per current option. Votes for removed options are not
// attributed to any option but still count towards the total.
func (p *PollPayload) Tally() []PollOptionStats {
	counts := make(map[uuid.UUID]int64, len(p.Options))
	for _, v := range p.Votes.Data {
		counts[v.OptionID]++
	}
	total := int64(len(p.Votes.Data))

	stats := make([]PollOptionStats, 0, len(p.Options))
	for _, o := range p.Options {
		s := PollOptionStats{OptionID: o.ID, Reason: o.Reason, VoteCount: counts[o.ID]}
		if total > 0 {
			s.Percentage = float64(s.VoteCount) / float64(total) * 100
		}
		stats = append(stats, s)
	}
	return stats
}
