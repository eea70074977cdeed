package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/epoll/internal/core/domain"
	"github.com/vncsmyrnk/epoll/internal/core/ports"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type memClients map[string]domain.ApiClient

func (m memClients) Lookup(_ context.Context, id string) (*domain.ApiClient, error) {
	c, ok := m[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

type memRefreshTokens struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]domain.RefreshToken
}

func newMemRefreshTokens() *memRefreshTokens {
	return &memRefreshTokens{tokens: make(map[uuid.UUID]domain.RefreshToken)}
}

func (m *memRefreshTokens) Insert(_ context.Context, t *domain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[t.ID] = *t
	return nil
}

func (m *memRefreshTokens) GetByID(_ context.Context, id uuid.UUID) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *memRefreshTokens) Rotate(_ context.Context, oldID, newID uuid.UUID, at time.Time) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[oldID]
	if !ok {
		return nil, domain.Wrap(domain.ErrRefreshTokenNotFound, "refresh token %s", oldID)
	}
	delete(m.tokens, oldID)
	t.ID = newID
	t.CreatedAt = at
	m.tokens[newID] = t
	return &t, nil
}

func (m *memRefreshTokens) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

type memUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[uuid.UUID]*domain.User)}
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email && u.DeletedAt == nil {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	c := *u
	m.users[u.ID] = &c
	return nil
}

func (m *memUsers) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil {
		return domain.Wrap(domain.ErrUserNotFound, "user %s", id)
	}
	now := time.Now()
	u.DeletedAt = &now
	return nil
}

type fakeVerifier struct {
	payload *ports.TokenPayload
	err     error
}

func (f fakeVerifier) Verify(context.Context, string, string) (*ports.TokenPayload, error) {
	return f.payload, f.err
}

type countingMetrics struct {
	mu        sync.Mutex
	grants    map[domain.GrantType]int
	votes     int
	conflicts map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{grants: map[domain.GrantType]int{}, conflicts: map[string]int{}}
}

func (m *countingMetrics) GrantIssued(g domain.GrantType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants[g]++
}

func (m *countingMetrics) VoteRecorded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.votes++
}

func (m *countingMetrics) VersionConflict(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts[op]++
}

// memDebates stores deep copies and enforces the same version checks as
// the mongo repository.
type memDebates struct {
	mu      sync.Mutex
	debates map[uuid.UUID]*domain.Debate
	writes  int
	// beforeUpdate, when set, runs before each Update under no lock so a
	// test can interleave a competing writer.
	beforeUpdate func()
}

func newMemDebates() *memDebates {
	return &memDebates{debates: make(map[uuid.UUID]*domain.Debate)}
}

func (m *memDebates) Insert(_ context.Context, d *domain.Debate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debates[d.ID] = cloneDebate(d)
	return nil
}

func (m *memDebates) GetByID(_ context.Context, id uuid.UUID) (*domain.Debate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debates[id]
	if !ok {
		return nil, domain.Wrap(domain.ErrDebateNotFound, "debate %s", id)
	}
	return cloneDebate(d), nil
}

func (m *memDebates) List(_ context.Context, f ports.DebateFilter) ([]ports.DebateSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ports.DebateSummary
	for _, d := range m.debates {
		if d.Type != f.Type || d.State < f.MinState || d.State > f.MaxState {
			continue
		}
		s := ports.DebateSummary{ID: d.ID, CreatedAt: d.CreatedAt, Type: d.Type, State: d.State, Title: d.Title}
		if p, err := d.Poll(); err == nil {
			s.VoteCount = p.Votes.Count
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() > out[j].ID.String() })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memDebates) ListIDs(_ context.Context, typ domain.DebateType) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uuid.UUID
	for id, d := range m.debates {
		if d.Type == typ {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memDebates) Update(_ context.Context, d *domain.Debate, fields ...ports.DebateField) error {
	if m.beforeUpdate != nil {
		m.beforeUpdate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.debates[d.ID]
	if !ok || stored.Version != d.Version {
		return domain.Wrap(domain.ErrVersionConflict, "debate %s", d.ID)
	}
	next := cloneDebate(stored)
	for _, f := range fields {
		switch f {
		case ports.FieldTitle:
			next.Title = d.Title
		case ports.FieldContent:
			next.Content = d.Content
		case ports.FieldState:
			next.State = d.State
		case ports.FieldOptions:
			np, _ := next.Poll()
			dp, _ := d.Poll()
			np.Options = append([]domain.Option{}, dp.Options...)
		case ports.FieldAttachments:
			att := d.Attachments()
			next.Payload = withAttachments(next.Payload, att)
		case ports.FieldVoteCount:
			np, _ := next.Poll()
			dp, _ := d.Poll()
			np.Votes.Count = dp.Votes.Count
		}
	}
	next.Version++
	m.debates[d.ID] = next
	m.writes++
	d.Version++
	return nil
}

func (m *memDebates) AppendVote(_ context.Context, pollID uuid.UUID, v domain.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.debates[pollID]
	if !ok {
		return domain.Wrap(domain.ErrVersionConflict, "debate %s", pollID)
	}
	p, err := stored.Poll()
	if err != nil || !p.HasOption(v.OptionID) || p.HasVoted(v.UserID) {
		return domain.Wrap(domain.ErrVersionConflict, "debate %s", pollID)
	}
	p.Votes.Data = append(p.Votes.Data, v)
	p.Votes.Count++
	stored.Version++
	m.writes++
	return nil
}

func (m *memDebates) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *memDebates) stored(id uuid.UUID) *domain.Debate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneDebate(m.debates[id])
}

func cloneDebate(d *domain.Debate) *domain.Debate {
	c := *d
	switch p := d.Payload.(type) {
	case *domain.PollPayload:
		c.Payload = &domain.PollPayload{
			Options:     append([]domain.Option{}, p.Options...),
			Attachments: append([]domain.Attachment{}, p.Attachments...),
			Votes: domain.VoteTally{
				Count: p.Votes.Count,
				Data:  append([]domain.Vote{}, p.Votes.Data...),
			},
		}
	case *domain.AnnouncementPayload:
		c.Payload = &domain.AnnouncementPayload{Attachments: append([]domain.Attachment{}, p.Attachments...)}
	}
	return &c
}

func withAttachments(payload domain.DebatePayload, att []domain.Attachment) domain.DebatePayload {
	switch p := payload.(type) {
	case *domain.PollPayload:
		p.Attachments = att
	case *domain.AnnouncementPayload:
		p.Attachments = att
	}
	return payload
}
