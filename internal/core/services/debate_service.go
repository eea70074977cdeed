package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/epoll/internal/core/domain"
	"github.com/vncsmyrnk/epoll/internal/core/ports"
	"github.com/vncsmyrnk/epoll/internal/retry"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100

	mutateAttempts = 3
	mutateBackoff  = 10 * time.Millisecond
)

type debateService struct {
	repo    ports.DebateRepository
	clock   ports.Clock
	policy  domain.TransitionPolicy
	metrics ports.Metrics
	logger  *slog.Logger
}

func NewDebateService(repo ports.DebateRepository, clock ports.Clock, policy domain.TransitionPolicy, metrics ports.Metrics, logger *slog.Logger) ports.DebateService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &debateService{
		repo:    repo,
		clock:   clock,
		policy:  policy,
		metrics: metrics,
		logger:  logger,
	}
}

func (s *debateService) CreatePoll(ctx context.Context, input ports.CreateDebateInput) (*ports.DebateView, error) {
	return s.create(ctx, domain.DebateTypePoll, input)
}

func (s *debateService) CreateAnnouncement(ctx context.Context, input ports.CreateDebateInput) (*ports.DebateView, error) {
	return s.create(ctx, domain.DebateTypeAnnouncement, input)
}

func (s *debateService) create(ctx context.Context, typ domain.DebateType, input ports.CreateDebateInput) (*ports.DebateView, error) {
	title := domain.Capitalize(input.Title)
	if title == "" {
		return nil, domain.ErrTitleRequired
	}

	createdBy := uuid.Nil
	if input.CreatedBy != "" {
		id, err := parseID(input.CreatedBy, "user")
		if err != nil {
			return nil, err
		}
		createdBy = id
	}

	debate, err := domain.NewDebate(newID(), typ, createdBy, s.clock.Now(), title, strings.TrimSpace(input.Content))
	if err != nil {
		return nil, err
	}

	if err := s.repo.Insert(ctx, debate); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "debate created", "debate_id", debate.ID, "type", typ)
	return toDebateView(debate), nil
}

func (s *debateService) ListPolls(ctx context.Context, input ports.ListDebatesInput) ([]ports.DebateListItem, error) {
	return s.list(ctx, domain.DebateTypePoll, input)
}

func (s *debateService) ListAnnouncements(ctx context.Context, input ports.ListDebatesInput) ([]ports.DebateListItem, error) {
	return s.list(ctx, domain.DebateTypeAnnouncement, input)
}

// list defaults to published debates only. When a single bound is given
// the other bound takes the same value.
func (s *debateService) list(ctx context.Context, typ domain.DebateType, input ports.ListDebatesInput) ([]ports.DebateListItem, error) {
	minName, maxName := input.MinState, input.MaxState
	switch {
	case minName == "" && maxName == "":
		minName, maxName = domain.StatePublished.String(), domain.StatePublished.String()
	case minName == "":
		minName = maxName
	case maxName == "":
		maxName = minName
	}

	minState, err := domain.ParseDebateState(minName)
	if err != nil {
		return nil, err
	}
	maxState, err := domain.ParseDebateState(maxName)
	if err != nil {
		return nil, err
	}
	if minState > maxState {
		return nil, domain.Wrap(domain.ErrInvalidState, "empty state range %s..%s", minState, maxState)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	summaries, err := s.repo.List(ctx, ports.DebateFilter{
		Type:     typ,
		MinState: minState,
		MaxState: maxState,
		Limit:    limit,
	})
	if err != nil {
		return nil, err
	}

	items := make([]ports.DebateListItem, 0, len(summaries))
	for _, sum := range summaries {
		items = append(items, ports.DebateListItem{
			ID:        sum.ID.String(),
			CreatedAt: sum.CreatedAt,
			Type:      string(sum.Type),
			State:     sum.State.String(),
			Title:     sum.Title,
			VoteCount: sum.VoteCount,
		})
	}
	return items, nil
}

func (s *debateService) GetDebate(ctx context.Context, id string) (*ports.DebateView, error) {
	debateID, err := parseID(id, "debate")
	if err != nil {
		return nil, err
	}

	debate, err := s.repo.GetByID(ctx, debateID)
	if err != nil {
		return nil, err
	}
	return toDebateView(debate), nil
}

func (s *debateService) UpdateDebate(ctx context.Context, id string, input ports.UpdateDebateInput) (*ports.DebateView, error) {
	debateID, err := parseID(id, "debate")
	if err != nil {
		return nil, err
	}

	var title, content string
	var fields []ports.DebateField
	if input.Title != nil {
		title = domain.Capitalize(*input.Title)
		if title == "" {
			return nil, domain.ErrTitleRequired
		}
		fields = append(fields, ports.FieldTitle)
	}
	if input.Content != nil {
		content = strings.TrimSpace(*input.Content)
		fields = append(fields, ports.FieldContent)
	}
	if len(fields) == 0 {
		return s.GetDebate(ctx, id)
	}

	debate, err := s.mutate(ctx, debateID, "update_debate", func(d *domain.Debate) (bool, error) {
		if input.Title != nil {
			d.Title = title
		}
		if input.Content != nil {
			d.Content = content
		}
		return true, nil
	}, fields...)
	if err != nil {
		return nil, err
	}
	return toDebateView(debate), nil
}

func (s *debateService) ChangeState(ctx context.Context, id string, state string) (*ports.DebateView, error) {
	debateID, err := parseID(id, "debate")
	if err != nil {
		return nil, err
	}
	next, err := domain.ParseDebateState(state)
	if err != nil {
		return nil, err
	}

	debate, err := s.mutate(ctx, debateID, "change_state", func(d *domain.Debate) (bool, error) {
		if err := d.ChangeState(next, s.policy); err != nil {
			return false, err
		}
		return true, nil
	}, ports.FieldState)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "debate state changed", "debate_id", debateID, "state", next)
	return toDebateView(debate), nil
}

func (s *debateService) AddOption(ctx context.Context, pollID string, reason string) (*ports.DebateView, error) {
	id, err := parseID(pollID, "poll")
	if err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.ErrReasonRequired
	}

	option := domain.Option{ID: newID(), Reason: reason}
	debate, err := s.mutate(ctx, id, "add_option", func(d *domain.Debate) (bool, error) {
		return true, d.AddOption(option)
	}, ports.FieldOptions)
	if err != nil {
		return nil, err
	}
	return toDebateView(debate), nil
}

func (s *debateService) RemoveOption(ctx context.Context, pollID string, optionID string) (*ports.DebateView, error) {
	id, err := parseID(pollID, "poll")
	if err != nil {
		return nil, err
	}
	optID, err := parseID(optionID, "option")
	if err != nil {
		return nil, err
	}

	debate, err := s.mutate(ctx, id, "remove_option", func(d *domain.Debate) (bool, error) {
		poll, err := d.Poll()
		if err != nil {
			return false, err
		}
		if !poll.HasOption(optID) {
			return false, nil
		}
		return true, d.RemoveOption(optID)
	}, ports.FieldOptions)
	if err != nil {
		return nil, err
	}
	return toDebateView(debate), nil
}

func (s *debateService) AddAttachment(ctx context.Context, debateID string, file domain.File) (*ports.DebateView, error) {
	id, err := parseID(debateID, "debate")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(file.Name) == "" {
		return nil, domain.Wrap(domain.ErrValidation, "attachment file name is required")
	}

	attachment := domain.Attachment{ID: newID(), File: file}
	debate, err := s.mutate(ctx, id, "add_attachment", func(d *domain.Debate) (bool, error) {
		d.AddAttachment(attachment)
		return true, nil
	}, ports.FieldAttachments)
	if err != nil {
		return nil, err
	}
	return toDebateView(debate), nil
}

func (s *debateService) RemoveAttachment(ctx context.Context, debateID string, attachmentID string) (*ports.DebateView, error) {
	id, err := parseID(debateID, "debate")
	if err != nil {
		return nil, err
	}
	attID, err := parseID(attachmentID, "attachment")
	if err != nil {
		return nil, err
	}

	debate, err := s.mutate(ctx, id, "remove_attachment", func(d *domain.Debate) (bool, error) {
		before := len(d.Attachments())
		d.RemoveAttachment(attID)
		return len(d.Attachments()) != before, nil
	}, ports.FieldAttachments)
	if err != nil {
		return nil, err
	}
	return toDebateView(debate), nil
}

// Vote checks the vote against a fresh snapshot for a precise error, then
// writes it with a conditional push that re-checks both preconditions in
// the store. A failed precondition reloads and checks again.
func (s *debateService) Vote(ctx context.Context, input ports.VoteInput) (*ports.DebateView, error) {
	pollID, err := parseID(input.PollID, "poll")
	if err != nil {
		return nil, err
	}
	userID, err := parseID(input.UserID, "user")
	if err != nil {
		return nil, err
	}
	optionID, err := parseID(input.OptionID, "option")
	if err != nil {
		return nil, err
	}

	vote := domain.Vote{
		ID:        newID(),
		CreatedAt: s.clock.Now(),
		UserID:    userID,
		OptionID:  optionID,
	}

	var debate *domain.Debate
	err = retry.DoWithRetry(ctx, mutateAttempts, mutateBackoff, isVersionConflict, func() error {
		d, err := s.repo.GetByID(ctx, pollID)
		if err != nil {
			return err
		}
		if err := d.AddVote(vote); err != nil {
			return err
		}
		if err := s.repo.AppendVote(ctx, pollID, vote); err != nil {
			if isVersionConflict(err) {
				s.metrics.VersionConflict("vote")
			}
			return err
		}
		debate = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.VoteRecorded()
	s.logger.InfoContext(ctx, "vote recorded", "poll_id", pollID, "option_id", optionID)
	return toDebateView(debate), nil
}

func (s *debateService) PollResults(ctx context.Context, pollID string) (*ports.PollResultsView, error) {
	id, err := parseID(pollID, "poll")
	if err != nil {
		return nil, err
	}

	debate, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	poll, err := debate.Poll()
	if err != nil {
		return nil, err
	}

	view := &ports.PollResultsView{
		PollID:     debate.ID.String(),
		TotalVotes: int64(len(poll.Votes.Data)),
		Options:    []ports.OptionResultView{},
	}
	for _, st := range poll.Tally() {
		view.Options = append(view.Options, ports.OptionResultView{
			OptionID:   st.OptionID.String(),
			Reason:     st.Reason,
			VoteCount:  st.VoteCount,
			Percentage: st.Percentage,
		})
	}
	return view, nil
}

// mutate loads the debate, applies fn and persists fields with a version
// check. A lost race reloads and applies fn again on the fresh snapshot.
// fn reports whether it changed anything; unchanged debates are not written.
func (s *debateService) mutate(ctx context.Context, id uuid.UUID, op string, fn func(*domain.Debate) (bool, error), fields ...ports.DebateField) (*domain.Debate, error) {
	var debate *domain.Debate
	err := retry.DoWithRetry(ctx, mutateAttempts, mutateBackoff, isVersionConflict, func() error {
		d, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		changed, err := fn(d)
		if err != nil {
			return err
		}
		if changed {
			if err := s.repo.Update(ctx, d, fields...); err != nil {
				if isVersionConflict(err) {
					s.metrics.VersionConflict(op)
				}
				return err
			}
		}
		debate = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return debate, nil
}

func isVersionConflict(err error) bool {
	return errors.Is(err, domain.ErrVersionConflict)
}

func parseID(raw, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.Wrap(domain.ErrInvalidID, "%s id %q", what, raw)
	}
	return id, nil
}

// newID returns a time-ordered id so that sorting by id follows creation.
func newID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

func toDebateView(d *domain.Debate) *ports.DebateView {
	view := &ports.DebateView{
		ID:        d.ID.String(),
		CreatedAt: d.CreatedAt,
		Type:      string(d.Type),
		State:     d.State.String(),
		Title:     d.Title,
		Content:   d.Content,
	}
	if d.CreatedBy != uuid.Nil {
		view.CreatedBy = d.CreatedBy.String()
	}

	view.Payload.Attachments = make([]ports.AttachmentView, 0)
	for _, a := range d.Attachments() {
		view.Payload.Attachments = append(view.Payload.Attachments, ports.AttachmentView{
			ID: a.ID.String(),
			File: ports.FileView{
				Name:         a.File.Name,
				Size:         a.File.Size,
				Extension:    a.File.Extension,
				MimeType:     a.File.MimeType,
				DownloadPath: a.File.DownloadPath,
				OriginalName: a.File.OriginalName,
			},
		})
	}

	if poll, err := d.Poll(); err == nil {
		view.Payload.Options = make([]ports.OptionView, 0, len(poll.Options))
		for _, o := range poll.Options {
			view.Payload.Options = append(view.Payload.Options, ports.OptionView{ID: o.ID.String(), Reason: o.Reason})
		}
		votes := &ports.VotesView{Count: poll.Votes.Count, Data: make([]ports.VoteView, 0, len(poll.Votes.Data))}
		for _, v := range poll.Votes.Data {
			votes.Data = append(votes.Data, ports.VoteView{
				ID:        v.ID.String(),
				CreatedAt: v.CreatedAt,
				UserID:    v.UserID.String(),
				OptionID:  v.OptionID.String(),
			})
		}
		view.Payload.Votes = votes
	}
	return view
}
