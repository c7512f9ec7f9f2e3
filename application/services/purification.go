package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"esgss-backend/application/ports"
	"esgss-backend/domain/config"
	"esgss-backend/domain/core/entities"
	"esgss-backend/domain/core/valueobjects"
	"esgss-backend/domain/events"
	"esgss-backend/pkg/errors"
)

// PurificationState is one step of the card purification flow
type PurificationState string

const (
	StateIdle     PurificationState = "idle"
	StateReading  PurificationState = "reading"
	StateQuizzing PurificationState = "quizzing"
	StateSuccess  PurificationState = "success"
	StateFailed   PurificationState = "failed"
)

// SessionView is the client-facing snapshot of a purification session
type SessionView struct {
	CardID   valueobjects.EntityID `json:"cardId"`
	State    PurificationState     `json:"state"`
	Loading  bool                  `json:"loading"`
	Quiz     *valueobjects.Quiz    `json:"quiz,omitempty"`
	Attempts int                   `json:"attempts"`
}

type purificationSession struct {
	userID     string
	card       *entities.Card
	state      PurificationState
	loading    bool
	quiz       *valueobjects.Quiz
	generation uint64
	attempts   int
	startedAt  time.Time
}

func (s *purificationSession) view() SessionView {
	return SessionView{
		CardID:   s.card.ID(),
		State:    s.state,
		Loading:  s.loading,
		Quiz:     s.quiz,
		Attempts: s.attempts,
	}
}

// PurificationService runs the quiz flow that unseals cards. One
// session per user at a time; the flow moves idle, reading, quizzing,
// then success or failed, and failed sessions can retry back to
// reading.
type PurificationService struct {
	mu       sync.Mutex
	sessions map[string]*purificationSession

	cards     ports.CardRepository
	generator ports.QuizGenerator
	rewards   *RewardService
	notifier  ports.Notifier
	publisher ports.EventPublisher
	audit     ports.EventStore
	cfg       config.PurificationConfig
	logger    *zap.Logger
}

// NewPurificationService wires the service. Notifier, publisher and
// audit store are optional.
func NewPurificationService(
	cards ports.CardRepository,
	generator ports.QuizGenerator,
	rewards *RewardService,
	notifier ports.Notifier,
	publisher ports.EventPublisher,
	audit ports.EventStore,
	cfg config.PurificationConfig,
	logger *zap.Logger,
) *PurificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurificationService{
		sessions:  make(map[string]*purificationSession),
		cards:     cards,
		generator: generator,
		rewards:   rewards,
		notifier:  notifier,
		publisher: publisher,
		audit:     audit,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start opens a purification session on a sealed card, replacing any
// session the user had open. The session begins in the reading state
// so the user sees the definition before the quiz.
func (s *PurificationService) Start(ctx context.Context, userID string, cardID valueobjects.EntityID) (SessionView, error) {
	card, err := s.cards.GetByID(ctx, userID, cardID)
	if err != nil {
		return SessionView{}, err
	}
	if card.IsPurified() {
		return SessionView{}, errors.NewConflictError("card is already purified")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &purificationSession{
		userID:    userID,
		card:      card,
		state:     StateReading,
		startedAt: time.Now(),
	}
	s.sessions[userID] = sess
	return sess.view(), nil
}

// BeginQuiz requests quiz generation for the open session. Generation
// runs outside the session lock; a generation counter discards any
// response that arrives after a newer request or a session change.
// A failed generation leaves the session in the reading state.
func (s *PurificationService) BeginQuiz(ctx context.Context, userID string) (SessionView, error) {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	if !ok {
		s.mu.Unlock()
		return SessionView{}, errors.NewNotFoundError("no open purification session")
	}
	if sess.state != StateReading {
		view := sess.view()
		s.mu.Unlock()
		return view, errors.NewConflictError(fmt.Sprintf("cannot start quiz from state %s", sess.state))
	}
	if sess.loading {
		view := sess.view()
		s.mu.Unlock()
		return view, nil
	}
	sess.loading = true
	sess.generation++
	gen := sess.generation
	card := sess.card
	s.mu.Unlock()

	pool, poolErr := s.cards.GetByUserID(ctx, userID)
	if poolErr != nil {
		pool = nil
	}
	quiz, genErr := s.generator.Generate(ctx, card, pool)

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok = s.sessions[userID]
	if !ok || sess.generation != gen {
		// A newer request or session superseded this generation.
		if ok {
			return sess.view(), nil
		}
		return SessionView{}, errors.NewNotFoundError("no open purification session")
	}
	sess.loading = false
	if genErr != nil {
		s.logger.Error("quiz generation failed",
			zap.String("card_id", card.ID().String()), zap.Error(genErr))
		s.notifyError(ctx, userID, "Purification interrupted", "The quiz could not be prepared. Try again.")
		return sess.view(), errors.NewExternalError("quiz generator", genErr)
	}
	sess.quiz = &quiz
	sess.state = StateQuizzing
	return sess.view(), nil
}

// SubmitAnswer checks the answer against the session quiz. Submitting
// with no quiz present is a no-op. A correct answer purifies the card,
// grants the XP reward and raises the reward notification exactly once.
func (s *PurificationService) SubmitAnswer(ctx context.Context, userID string, answerIndex int) (SessionView, error) {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	if !ok {
		s.mu.Unlock()
		return SessionView{}, errors.NewNotFoundError("no open purification session")
	}
	if sess.quiz == nil || sess.state != StateQuizzing {
		view := sess.view()
		s.mu.Unlock()
		return view, nil
	}

	sess.attempts++
	card := sess.card
	correct := sess.quiz.IsCorrect(answerIndex)
	if correct {
		sess.state = StateSuccess
	} else {
		sess.state = StateFailed
	}
	view := sess.view()
	s.mu.Unlock()

	if !correct {
		s.recordFailure(ctx, card)
		s.notifyError(ctx, userID, "Purification failed", "That is not the right definition. Read the card and retry.")
		return view, nil
	}

	if err := s.completePurification(ctx, userID, card); err != nil {
		// Roll the session back so the user can try again instead of
		// losing the reward to a storage hiccup.
		s.mu.Lock()
		if cur, ok := s.sessions[userID]; ok {
			cur.state = StateQuizzing
		}
		s.mu.Unlock()
		return SessionView{}, err
	}
	return view, nil
}

// Retry moves a failed session back to reading for another attempt
func (s *PurificationService) Retry(ctx context.Context, userID string) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return SessionView{}, errors.NewNotFoundError("no open purification session")
	}
	if sess.state != StateFailed {
		return sess.view(), errors.NewConflictError(fmt.Sprintf("cannot retry from state %s", sess.state))
	}
	sess.state = StateReading
	sess.quiz = nil
	sess.generation++
	return sess.view(), nil
}

// Close discards the user's session regardless of state
func (s *PurificationService) Close(ctx context.Context, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Session returns the current session view
func (s *PurificationService) Session(ctx context.Context, userID string) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return SessionView{}, errors.NewNotFoundError("no open purification session")
	}
	return sess.view(), nil
}

func (s *PurificationService) completePurification(ctx context.Context, userID string, card *entities.Card) error {
	before := card.Snapshot()
	if err := card.Purify(); err != nil {
		return err
	}
	if err := s.cards.Save(ctx, card); err != nil {
		// Revert the in-memory card too, otherwise the next correct
		// answer trips the already-purified conflict.
		if restored, rerr := entities.ReconstructCard(before); rerr == nil {
			*card = *restored
		}
		return errors.NewDatabaseError("save purified card", err)
	}
	s.commitEvents(ctx, card.GetUncommittedEvents())
	card.MarkEventsAsCommitted()

	if s.rewards != nil {
		if err := s.rewards.AwardXP(ctx, userID, s.cfg.XPPerPurification, "card purified: "+card.Term()); err != nil {
			s.logger.Error("failed to award purification XP",
				zap.String("user_id", userID), zap.Error(err))
		}
	}
	if s.notifier != nil {
		msg := fmt.Sprintf("%s joined your collection. +%d XP", card.Term(), s.cfg.XPPerPurification)
		if err := s.notifier.Success(ctx, userID, "Card purified", msg); err != nil {
			s.logger.Warn("reward notification failed", zap.Error(err))
		}
	}
	return nil
}

func (s *PurificationService) recordFailure(ctx context.Context, card *entities.Card) {
	event := events.NewPurificationFailed(card.ID(), card.UserID(), time.Now())
	s.commitEvents(ctx, []events.DomainEvent{event})
}

func (s *PurificationService) commitEvents(ctx context.Context, pending []events.DomainEvent) {
	if len(pending) == 0 {
		return
	}
	if s.audit != nil {
		if err := s.audit.SaveEvents(ctx, pending); err != nil {
			s.logger.Error("failed to audit purification events", zap.Error(err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishBatch(ctx, pending); err != nil {
			s.logger.Error("failed to publish purification events", zap.Error(err))
		}
	}
}

func (s *PurificationService) notifyError(ctx context.Context, userID, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Error(ctx, userID, title, message); err != nil {
		s.logger.Warn("error notification failed", zap.Error(err))
	}
}
