package services

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/epoll/internal/core/domain"
	"github.com/vncsmyrnk/epoll/internal/core/ports"
)

type debateFixture struct {
	repo    *memDebates
	clock   *fixedClock
	metrics *countingMetrics
	svc     ports.DebateService
}

func newDebateFixture(policy domain.TransitionPolicy) *debateFixture {
	f := &debateFixture{
		repo:    newMemDebates(),
		clock:   newFixedClock(),
		metrics: newCountingMetrics(),
	}
	f.svc = NewDebateService(f.repo, f.clock, policy, f.metrics, nil)
	return f
}

func (f *debateFixture) poll(t *testing.T, reasons ...string) (*ports.DebateView, []string) {
	t.Helper()
	ctx := context.Background()
	view, err := f.svc.CreatePoll(ctx, ports.CreateDebateInput{Title: "lunch"})
	require.NoError(t, err)

	var ids []string
	for _, r := range reasons {
		view, err = f.svc.AddOption(ctx, view.ID, r)
		require.NoError(t, err)
		ids = append(ids, view.Payload.Options[len(view.Payload.Options)-1].ID)
	}
	return view, ids
}

func TestCreateDebate(t *testing.T) {
	f := newDebateFixture(domain.PolicyNoRevertToDraft)
	ctx := context.Background()
	author := uuid.New()

	view, err := f.svc.CreatePoll(ctx, ports.CreateDebateInput{
		Title:     "  hello world ",
		Content:   "  body  ",
		CreatedBy: author.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", view.Title)
	assert.Equal(t, "body", view.Content)
	assert.Equal(t, "draft", view.State)
	assert.Equal(t, "poll", view.Type)
	assert.Equal(t, author.String(), view.CreatedBy)
	assert.True(t, f.clock.Now().Equal(view.CreatedAt))
	require.NotNil(t, view.Payload.Votes)
	assert.Zero(t, view.Payload.Votes.Count)

	stored := f.repo.stored(uuid.MustParse(view.ID))
	assert.Equal(t, "Hello world", stored.Title)

	ann, err := f.svc.CreateAnnouncement(ctx, ports.CreateDebateInput{Title: "NOTICE"})
	require.NoError(t, err)
	assert.Equal(t, "Notice", ann.Title)
	assert.Equal(t, "announcement", ann.Type)
	assert.Nil(t, ann.Payload.Votes)
	assert.Empty(t, ann.CreatedBy)
}

func TestCreateDebateValidation(t *testing.T) {
	f := newDebateFixture(domain.PolicyNoRevertToDraft)
	ctx := context.Background()

	_, err := f.svc.CreatePoll(ctx, ports.CreateDebateInput{Title: "   "})
	assert.ErrorIs(t, err, domain.ErrTitleRequired)

	_, err = f.svc.CreatePoll(ctx, ports.CreateDebateInput{Title: "x", CreatedBy: "someone"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	assert.Zero(t, f.repo.Writes())
}

func TestListDebates(t *testing.T) {
	f := newDebateFixture(domain.PolicyNoRevertToDraft)
	ctx := context.Background()

	var published []string
	for i := 0; i < 3; i++ {
		v, _ := f.poll(t)
		_, err := f.svc.ChangeState(ctx, v.ID, "published")
		require.NoError(t, err)
		published = append(published, v.ID)
	}
	draft, _ := f.poll(t)
	archived, _ := f.poll(t)
	_, err := f.svc.ChangeState(ctx, archived.ID, "archived")
	require.NoError(t, err)
	_, err = f.svc.CreateAnnouncement(ctx, ports.CreateDebateInput{Title: "a"})
	require.NoError(t, err)

	t.Run("defaults to published", func(t *testing.T) {
		items, err := f.svc.ListPolls(ctx, ports.ListDebatesInput{})
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, published[2], items[0].ID)
		assert.Equal(t, published[0], items[2].ID)
		for _, it := range items {
			assert.Equal(t, "published", it.State)
		}
	})

	t.Run("inclusive range", func(t *testing.T) {
		items, err := f.svc.ListPolls(ctx, ports.ListDebatesInput{MinState: "draft", MaxState: "archived"})
		require.NoError(t, err)
		assert.Len(t, items, 5)
	})

	t.Run("single bound", func(t *testing.T) {
		items, err := f.svc.ListPolls(ctx, ports.ListDebatesInput{MinState: "draft"})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, draft.ID, items[0].ID)
	})

	t.Run("limit", func(t *testing.T) {
		items, err := f.svc.ListPolls(ctx, ports.ListDebatesInput{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})

	t.Run("by type", func(t *testing.T) {
		items, err := f.svc.ListAnnouncements(ctx, ports.ListDebatesInput{MinState: "draft"})
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})

	t.Run("invalid state", func(t *testing.T) {
		_, err := f.svc.ListPolls(ctx, ports.ListDebatesInput{MinState: "closed"})
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("empty range", func(t *testing.T) {
		_, err := f.svc.ListPolls(ctx, ports.ListDebatesInput{MinState: "archived", MaxState: "draft"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestGetDebate(t *testing.T) {
	f := newDebateFixture(domain.PolicyNoRevertToDraft)
	ctx := context.Background()

	_, err := f.svc.GetDebate(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrDebateNotFound)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	_, err = f.svc.GetDebate(ctx, "42")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestUpdateDebate(t *testing.T) {
	f := newDebateFixture(domain.PolicyNoRevertToDraft)
	ctx := context.Background()
	v, _ := f.poll(t)

	title, content := "  NEW title", " new content "
	updated, err := f.svc.UpdateDebate(ctx, v.ID, ports.UpdateDebateInput{Title: &title, Content: &content})
	require.NoError(t, err)
	assert.Equal(t, "New title", updated.Title)
	assert.Equal(t, "new content", updated.Content)

	writes := f.repo.Writes()
	same, err := f.svc.UpdateDebate(ctx, v.ID, ports.UpdateDebateInput{})
	require.NoError(t, err)
	assert.Equal(t, "New title", same.Title)
	assert.Equal(t, writes, f.repo.Writes())

	empty := " "
	_, err = f.svc.UpdateDebate(ctx, v.ID, ports.UpdateDebateInput{Title: &empty})
	assert.ErrorIs(t, err, domain.ErrTitleRequired)
}

func TestChangeStateService(t *testing.T) {
	ctx := context.Background()

	t.Run("draft is never a target", func(t *testing.T) {
		f := newDebateFixture(domain.PolicyNoRevertToDraft)
		for _, from := range []string{"", "published", "archived"} {
			v, _ := f.poll(t)
			if from != "" {
				_, err := f.svc.ChangeState(ctx, v.ID, from)
				require.NoError(t, err)
			}
			_, err := f.svc.ChangeState(ctx, v.ID, "draft")
			assert.ErrorIs(t, err, domain.ErrIllegalTransition)
		}
	})

	t.Run("publish then archive", func(t *testing.T) {
		f := newDebateFixture(domain.PolicyNoRevertToDraft)
		v, _ := f.poll(t)
		_, err := f.svc.ChangeState(ctx, v.ID, "published")
		require.NoError(t, err)
		view, err := f.svc.ChangeState(ctx, v.ID, "archived")
		require.NoError(t, err)
		assert.Equal(t, "archived", view.State)
		assert.Equal(t, domain.StateArchived, f.repo.stored(uuid.MustParse(v.ID)).State)
	})

	t.Run("policy decides republishing", func(t *testing.T) {
		lenient := newDebateFixture(domain.PolicyNoRevertToDraft)
		v, _ := lenient.poll(t)
		_, err := lenient.svc.ChangeState(ctx, v.ID, "archived")
		require.NoError(t, err)
		_, err = lenient.svc.ChangeState(ctx, v.ID, "published")
		assert.NoError(t, err)

		strict := newDebateFixture(domain.PolicyForwardOnly)
		v, _ = strict.poll(t)
		_, err = strict.svc.ChangeState(ctx, v.ID, "archived")
		require.NoError(t, err)
		_, err = strict.svc.ChangeState(ctx, v.ID, "published")
		assert.ErrorIs(t, err, domain.ErrIllegalTransition)
	})

	t.Run("unknown state", func(t *testing.T) {
		f := newDebateFixture(domain.PolicyNoRevertToDraft)
		v, _ := f.poll(t)
		_, err := f.svc.ChangeState(ctx, v.ID, "closed")
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})
}

func TestOptions(t *testing.T) {
	f := newDebateFixture(domain.PolicyNoRevertToDraft)
	ctx := context.Background()
	v, ids := f.poll(t, "  pizza ", "sushi")
	require.Len(t, ids, 2)

	view, err := f.svc.GetDebate(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "pizza", view.Payload.Options[0].Reason)

	_, err = f.svc.AddOption(ctx, v.ID, "  ")
	assert.ErrorIs(t, err, domain.ErrReasonRequired)

	t.Run("remove unknown id is a no-op", func(t *testing.T) {
		writes := f.repo.Writes()
		view, err := f.svc.RemoveOption(ctx, v.ID, uuid.NewString())
		require.NoError(t, err)
		assert.Len(t, view.Payload.Options, 2)
		assert.Equal(t, writes, f.repo.Writes())
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		view, err := f.svc.RemoveOption(ctx, v.ID, ids[0])
		require.NoError(t, err)
		require.Len(t, view.Payload.Options, 1)
		assert.Equal(t, ids[1], view.Payload.Options[0].ID)

		again, err := f.svc.RemoveOption(ctx, v.ID, ids[0])
		require.NoError(t, err)
		assert.Equal(t, view.Payload.Options, again.Payload.Options)
	})

	t.Run("not a poll", func(t *testing.T) {
		ann, err := f.svc.CreateAnnouncement(ctx, ports.CreateDebateInput{Title: "a"})
		require.NoError(t, err)
		_, err = f.svc.AddOption(ctx, ann.ID, "x")
		assert.ErrorIs(t, err, domain.ErrNotAPoll)
		_, err = f.svc.RemoveOption(ctx, ann.ID, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrNotAPoll)
	})
}

func TestAttachments(t *testing.T) {
	f := newDebateFixture(domain.PolicyNoRevertToDraft)
	ctx := context.Background()
	ann, err := f.svc.CreateAnnouncement(ctx, ports.CreateDebateInput{Title: "minutes"})
	require.NoError(t, err)

	view, err := f.svc.AddAttachment(ctx, ann.ID, domain.File{
		Name:         "minutes.pdf",
		Size:         2048,
		Extension:    "pdf",
		MimeType:     "application/pdf",
		InternalPath: "/var/data/abc",
		DownloadPath: "/files/abc",
		OriginalName: "Minutes.pdf",
	})
	require.NoError(t, err)
	require.Len(t, view.Payload.Attachments, 1)
	assert.Equal(t, "/files/abc", view.Payload.Attachments[0].File.DownloadPath)

	raw, err := json.Marshal(view)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "/var/data/abc")

	stored := f.repo.stored(uuid.MustParse(ann.ID))
	assert.Equal(t, "/var/data/abc", stored.Attachments()[0].File.InternalPath)

	_, err = f.svc.AddAttachment(ctx, ann.ID, domain.File{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	writes := f.repo.Writes()
	view, err = f.svc.RemoveAttachment(ctx, ann.ID, uuid.NewString())
	require.NoError(t, err)
	assert.Len(t, view.Payload.Attachments, 1)
	assert.Equal(t, writes, f.repo.Writes())

	view, err = f.svc.RemoveAttachment(ctx, ann.ID, view.Payload.Attachments[0].ID)
	require.NoError(t, err)
	assert.Empty(t, view.Payload.Attachments)
}

func TestVote(t *testing.T) {
	f := newDebateFixture(domain.PolicyNoRevertToDraft)
	ctx := context.Background()
	v, ids := f.poll(t, "x", "y")
	u := uuid.NewString()

	view, err := f.svc.Vote(ctx, ports.VoteInput{PollID: v.ID, UserID: u, OptionID: ids[0]})
	require.NoError(t, err)
	assert.Equal(t, int64(1), view.Payload.Votes.Count)

	_, err = f.svc.Vote(ctx, ports.VoteInput{PollID: v.ID, UserID: u, OptionID: ids[1]})
	assert.ErrorIs(t, err, domain.ErrAlreadyVoted)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	_, err = f.svc.Vote(ctx, ports.VoteInput{PollID: v.ID, UserID: uuid.NewString(), OptionID: uuid.NewString()})
	assert.ErrorIs(t, err, domain.ErrOptionNotFound)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	stored := f.repo.stored(uuid.MustParse(v.ID))
	p, err := stored.Poll()
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Votes.Count)
	assert.Len(t, p.Votes.Data, 1)
	assert.Equal(t, 1, f.metrics.votes)

	_, err = f.svc.Vote(ctx, ports.VoteInput{PollID: uuid.NewString(), UserID: u, OptionID: ids[0]})
	assert.ErrorIs(t, err, domain.ErrDebateNotFound)

	_, err = f.svc.Vote(ctx, ports.VoteInput{PollID: v.ID, UserID: "me", OptionID: ids[0]})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestConcurrentVotesByDistinctUsersAllLand(t *testing.T) {
	f := newDebateFixture(domain.PolicyNoRevertToDraft)
	v, ids := f.poll(t, "x", "y")

	const voters = 20
	var wg sync.WaitGroup
	errs := make(chan error, voters)
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Vote(context.Background(), ports.VoteInput{
				PollID:   v.ID,
				UserID:   uuid.NewString(),
				OptionID: ids[i%2],
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	p, _ := f.repo.stored(uuid.MustParse(v.ID)).Poll()
	assert.Equal(t, int64(voters), p.Votes.Count)
	assert.Len(t, p.Votes.Data, voters)
}

func TestConcurrentDuplicateVotesLandOnce(t *testing.T) {
	f := newDebateFixture(domain.PolicyNoRevertToDraft)
	v, ids := f.poll(t, "x", "y")
	user := uuid.NewString()

	const attempts = 10
	var wg sync.WaitGroup
	var ok, conflicts atomic.Int32
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Vote(context.Background(), ports.VoteInput{PollID: v.ID, UserID: user, OptionID: ids[i%2]})
			switch {
			case err == nil:
				ok.Add(1)
			case domain.KindOf(err) == domain.KindConflict:
				conflicts.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(attempts-1), conflicts.Load())
	p, _ := f.repo.stored(uuid.MustParse(v.ID)).Poll()
	assert.Equal(t, int64(1), p.Votes.Count)
	assert.Len(t, p.Votes.Data, 1)
}

func TestConcurrentOptionAddsBothLand(t *testing.T) {
	f := newDebateFixture(domain.PolicyNoRevertToDraft)
	v, _ := f.poll(t)

	var wg sync.WaitGroup
	for _, reason := range []string{"a", "b"} {
		wg.Add(1)
		go func(reason string) {
			defer wg.Done()
			_, err := f.svc.AddOption(context.Background(), v.ID, reason)
			assert.NoError(t, err)
		}(reason)
	}
	wg.Wait()

	p, _ := f.repo.stored(uuid.MustParse(v.ID)).Poll()
	assert.Len(t, p.Options, 2)
}

func TestMutateRetriesOnVersionConflict(t *testing.T) {
	f := newDebateFixture(domain.PolicyNoRevertToDraft)
	v, _ := f.poll(t)
	id := uuid.MustParse(v.ID)

	var calls atomic.Int32
	f.repo.beforeUpdate = func() {
		if calls.Add(1) == 1 {
			f.repo.mu.Lock()
			f.repo.debates[id].Version++
			f.repo.mu.Unlock()
		}
	}

	view, err := f.svc.ChangeState(context.Background(), v.ID, "published")
	require.NoError(t, err)
	assert.Equal(t, "published", view.State)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 1, f.metrics.conflicts["change_state"])
}

func TestMutateGivesUpAfterRepeatedConflicts(t *testing.T) {
	f := newDebateFixture(domain.PolicyNoRevertToDraft)
	v, _ := f.poll(t)
	id := uuid.MustParse(v.ID)

	f.repo.beforeUpdate = func() {
		f.repo.mu.Lock()
		f.repo.debates[id].Version++
		f.repo.mu.Unlock()
	}

	_, err := f.svc.AddOption(context.Background(), v.ID, "late")
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
	assert.Equal(t, mutateAttempts, f.metrics.conflicts["add_option"])
}

func TestInvariantViolationsAreNotRetried(t *testing.T) {
	f := newDebateFixture(domain.PolicyNoRevertToDraft)
	v, _ := f.poll(t)

	var calls atomic.Int32
	f.repo.beforeUpdate = func() { calls.Add(1) }

	_, err := f.svc.ChangeState(context.Background(), v.ID, "draft")
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
	assert.Zero(t, calls.Load())
}

func TestPollResults(t *testing.T) {
	f := newDebateFixture(domain.PolicyNoRevertToDraft)
	ctx := context.Background()
	v, ids := f.poll(t, "x", "y")

	for i, opt := range []string{ids[0], ids[0], ids[0], ids[1]} {
		_, err := f.svc.Vote(ctx, ports.VoteInput{PollID: v.ID, UserID: uuid.NewString(), OptionID: opt})
		require.NoError(t, err, i)
	}

	res, err := f.svc.PollResults(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, res.PollID)
	assert.Equal(t, int64(4), res.TotalVotes)
	require.Len(t, res.Options, 2)
	assert.Equal(t, int64(3), res.Options[0].VoteCount)
	assert.InDelta(t, 75.0, res.Options[0].Percentage, 0.001)
	assert.InDelta(t, 25.0, res.Options[1].Percentage, 0.001)

	ann, err := f.svc.CreateAnnouncement(ctx, ports.CreateDebateInput{Title: "a"})
	require.NoError(t, err)
	_, err = f.svc.PollResults(ctx, ann.ID)
	assert.ErrorIs(t, err, domain.ErrNotAPoll)
}
