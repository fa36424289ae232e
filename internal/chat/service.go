// Package chat runs one conversational turn: it builds the prompt from the
// user's recent history, calls the model, extracts the structured reply and
// records the exchange.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"digitalparbhani/backend/internal/conversation"
	"digitalparbhani/backend/internal/model"
	"digitalparbhani/backend/internal/prompt"
	"digitalparbhani/backend/internal/reply"
)

var (
	ErrInvalidInput = errors.New("invalid chat input")
	ErrModelTimeout = errors.New("model call timed out")
)

const rawReplyLogLimit = 1200

type Options struct {
	ContextWindow  int
	Timeout        time.Duration
	City           string
	Reference      string
	RepairFollowUp bool
}

type Service struct {
	model  model.Client
	store  *conversation.Store
	locks  *keyedMutex
	logger *log.Logger
	opts   Options

	now   func() time.Time
	newID func() string
}

func NewService(client model.Client, store *conversation.Store, logger *log.Logger, opts Options) *Service {
	if opts.ContextWindow <= 0 {
		opts.ContextWindow = 5
	}
	if opts.ContextWindow > store.Capacity() {
		opts.ContextWindow = store.Capacity()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Service{
		model:  client,
		store:  store,
		locks:  newKeyedMutex(),
		logger: logger,
		opts:   opts,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Reply answers message for userID. Requests for the same user are
// processed one at a time so each prompt sees the previous exchange.
// Parse problems in the model output never fail the call; only invalid
// input, model failures and timeouts do.
func (s *Service) Reply(ctx context.Context, userID, message string) (reply.StructuredReply, error) {
	userID = strings.TrimSpace(userID)
	message = strings.TrimSpace(message)
	if userID == "" {
		return reply.StructuredReply{}, errors.Wrap(ErrInvalidInput, "user_id is required")
	}
	if message == "" {
		return reply.StructuredReply{}, errors.Wrap(ErrInvalidInput, "message is required")
	}

	release, err := s.locks.Acquire(ctx, userID)
	if err != nil {
		return reply.StructuredReply{}, errors.Wrap(err, "wait for previous message from this user")
	}
	defer release()

	logger := s.logger.With("user_id", userID)
	logger.Info("chat message received", "message", model.TruncateForLog(message, 200))

	history := s.store.RecentContext(userID, s.opts.ContextWindow)
	now := s.now()
	text := prompt.Build(prompt.Input{
		UserID:    userID,
		Message:   message,
		Context:   history,
		Now:       now,
		City:      s.opts.City,
		Reference: s.opts.Reference,
	})

	raw, err := s.generate(ctx, text)
	if err != nil {
		logger.Error("model call failed", "err", err)
		return reply.StructuredReply{}, err
	}
	logger.Debug("model reply", "raw", model.TruncateForLog(raw, rawReplyLogLimit))

	result, err := reply.Parse(raw)
	if err != nil {
		logger.Warn("model reply has no usable payload, returning prose only", "err", err)
	}
	if s.opts.RepairFollowUp {
		var repaired bool
		result, repaired = reply.EnforceFollowUpPolicy(result)
		if repaired {
			logger.Warn("cleared follow_up_type on reply without follow_up")
		}
	}

	s.store.Append(userID, conversation.Exchange{
		ID:                s.newID(),
		Timestamp:         now,
		UserMessage:       message,
		AssistantResponse: result.Response,
	})
	logger.Info("chat reply ready",
		"profiles", len(result.Profiles),
		"follow_up", result.FollowUp,
		"history", s.store.Len(userID),
	)
	return result, nil
}

func (s *Service) generate(ctx context.Context, text string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	raw, err := s.model.Generate(callCtx, text)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", errors.Wrapf(ErrModelTimeout, "no reply within %s", s.opts.Timeout)
		}
		return "", errors.Wrap(err, "model call failed")
	}
	return raw, nil
}
