package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"esgss-backend/application/services"
	"esgss-backend/domain/config"
	"esgss-backend/domain/core/entities"
	"esgss-backend/domain/core/valueobjects"
	"esgss-backend/infrastructure/persistence/memory"
	"esgss-backend/infrastructure/quiz"
	pkgerrors "esgss-backend/pkg/errors"
)

// recordingNotifier captures toasts for assertions
type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *recordingNotifier) Success(_ context.Context, _, title, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, title)
	return nil
}

func (n *recordingNotifier) Error(_ context.Context, _, title, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, title)
	return nil
}

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, *entities.Card, []*entities.Card) (valueobjects.Quiz, error) {
	return valueobjects.Quiz{}, errors.New("model unavailable")
}

type purificationFixture struct {
	service  *services.PurificationService
	rewards  *services.RewardService
	cards    *memory.CardRepository
	notifier *recordingNotifier
}

func newPurificationFixture(t *testing.T) *purificationFixture {
	t.Helper()
	cards := memory.NewCardRepository()
	profiles := memory.NewProfileRepository()
	notifier := &recordingNotifier{}
	rewards := services.NewRewardService(profiles, cards, nil, nil, notifier, zap.NewNop())
	generator := quiz.NewTemplateGenerator(4, 1)
	service := services.NewPurificationService(
		cards, generator, rewards, notifier, nil, nil,
		config.DefaultDomainConfig().Purification, zap.NewNop())
	return &purificationFixture{service: service, rewards: rewards, cards: cards, notifier: notifier}
}

func (f *purificationFixture) seedCard(t *testing.T, id string) *entities.Card {
	t.Helper()
	entityID, err := valueobjects.NewEntityID(id)
	require.NoError(t, err)
	card, err := entities.NewCard(entityID, testUser, "Term "+id, "Definition for "+id,
		entities.AttributeSocial, "", 1, 1)
	require.NoError(t, err)
	require.NoError(t, f.cards.Save(context.Background(), card))
	return card
}

func TestPurification_HappyPath(t *testing.T) {
	f := newPurificationFixture(t)
	card := f.seedCard(t, "card-1")
	ctx := context.Background()

	view, err := f.service.Start(ctx, testUser, card.ID())
	require.NoError(t, err)
	assert.Equal(t, services.StateReading, view.State)
	assert.Nil(t, view.Quiz)

	view, err = f.service.BeginQuiz(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, services.StateQuizzing, view.State)
	require.NotNil(t, view.Quiz)
	assert.Len(t, view.Quiz.Options, 4)

	view, err = f.service.SubmitAnswer(ctx, testUser, view.Quiz.CorrectIndex)
	require.NoError(t, err)
	assert.Equal(t, services.StateSuccess, view.State)

	// The card is purified in storage and the XP landed
	stored, err := f.cards.GetByID(ctx, testUser, card.ID())
	require.NoError(t, err)
	assert.True(t, stored.IsPurified())

	profile, err := f.rewards.Profile(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 200, profile.XP)
	assert.Equal(t, 1, profile.PurifiedCount)
	assert.Equal(t, []string{"Card purified"}, f.notifier.successes)
}

func TestPurification_WrongAnswerFailsAndRetries(t *testing.T) {
	f := newPurificationFixture(t)
	card := f.seedCard(t, "card-1")
	ctx := context.Background()

	_, err := f.service.Start(ctx, testUser, card.ID())
	require.NoError(t, err)
	view, err := f.service.BeginQuiz(ctx, testUser)
	require.NoError(t, err)
	wrong := (view.Quiz.CorrectIndex + 1) % len(view.Quiz.Options)

	view, err = f.service.SubmitAnswer(ctx, testUser, wrong)
	require.NoError(t, err)
	assert.Equal(t, services.StateFailed, view.State)
	assert.Equal(t, []string{"Purification failed"}, f.notifier.errors)

	stored, err := f.cards.GetByID(ctx, testUser, card.ID())
	require.NoError(t, err)
	assert.False(t, stored.IsPurified())

	// Retry goes back to reading with a fresh quiz lifecycle
	view, err = f.service.Retry(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, services.StateReading, view.State)
	assert.Nil(t, view.Quiz)
}

func TestPurification_SubmitWithoutQuizIsNoOp(t *testing.T) {
	f := newPurificationFixture(t)
	card := f.seedCard(t, "card-1")
	ctx := context.Background()

	_, err := f.service.Start(ctx, testUser, card.ID())
	require.NoError(t, err)

	view, err := f.service.SubmitAnswer(ctx, testUser, 0)

	require.NoError(t, err)
	assert.Equal(t, services.StateReading, view.State)
	assert.Equal(t, 0, view.Attempts)
}

func TestPurification_RewardGrantedExactlyOnce(t *testing.T) {
	f := newPurificationFixture(t)
	card := f.seedCard(t, "card-1")
	ctx := context.Background()

	_, err := f.service.Start(ctx, testUser, card.ID())
	require.NoError(t, err)
	view, err := f.service.BeginQuiz(ctx, testUser)
	require.NoError(t, err)
	correct := view.Quiz.CorrectIndex

	_, err = f.service.SubmitAnswer(ctx, testUser, correct)
	require.NoError(t, err)
	// A duplicate submit after success changes nothing
	_, err = f.service.SubmitAnswer(ctx, testUser, correct)
	require.NoError(t, err)

	profile, err := f.rewards.Profile(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 200, profile.XP)
	assert.Len(t, f.notifier.successes, 1)
}

func TestPurification_StartRejectsPurifiedCard(t *testing.T) {
	f := newPurificationFixture(t)
	card := f.seedCard(t, "card-1")
	ctx := context.Background()
	require.NoError(t, card.Purify())
	require.NoError(t, f.cards.Save(ctx, card))

	_, err := f.service.Start(ctx, testUser, card.ID())

	require.Error(t, err)
	appErr := pkgerrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.ErrorTypeConflict, appErr.Type)
}

func TestPurification_StartUnknownCard(t *testing.T) {
	f := newPurificationFixture(t)
	ghost, err := valueobjects.NewEntityID("card-ghost")
	require.NoError(t, err)

	_, err = f.service.Start(context.Background(), testUser, ghost)

	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestPurification_GenerationFailureKeepsReading(t *testing.T) {
	cards := memory.NewCardRepository()
	profiles := memory.NewProfileRepository()
	notifier := &recordingNotifier{}
	rewards := services.NewRewardService(profiles, cards, nil, nil, notifier, zap.NewNop())
	service := services.NewPurificationService(
		cards, failingGenerator{}, rewards, notifier, nil, nil,
		config.DefaultDomainConfig().Purification, zap.NewNop())

	entityID, err := valueobjects.NewEntityID("card-1")
	require.NoError(t, err)
	card, err := entities.NewCard(entityID, testUser, "Term", "Definition",
		entities.AttributeEnvironment, "", 1, 1)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, cards.Save(ctx, card))

	_, err = service.Start(ctx, testUser, card.ID())
	require.NoError(t, err)
	view, err := service.BeginQuiz(ctx, testUser)

	require.Error(t, err)
	assert.Equal(t, services.StateReading, view.State)
	assert.False(t, view.Loading)
	assert.Equal(t, []string{"Purification interrupted"}, notifier.errors)

	// The session is still usable once the generator recovers
	current, err := service.Session(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, services.StateReading, current.State)
}

// flakySaveCards fails writes while failSave is set
type flakySaveCards struct {
	*memory.CardRepository
	failSave bool
}

func (r *flakySaveCards) Save(ctx context.Context, card *entities.Card) error {
	if r.failSave {
		return errors.New("storage unavailable")
	}
	return r.CardRepository.Save(ctx, card)
}

func TestPurification_SaveFailureLeavesSessionRetryable(t *testing.T) {
	cards := &flakySaveCards{CardRepository: memory.NewCardRepository()}
	profiles := memory.NewProfileRepository()
	notifier := &recordingNotifier{}
	rewards := services.NewRewardService(profiles, cards, nil, nil, notifier, zap.NewNop())
	service := services.NewPurificationService(
		cards, quiz.NewTemplateGenerator(4, 1), rewards, notifier, nil, nil,
		config.DefaultDomainConfig().Purification, zap.NewNop())

	entityID, err := valueobjects.NewEntityID("card-1")
	require.NoError(t, err)
	card, err := entities.NewCard(entityID, testUser, "Term", "Definition",
		entities.AttributeGovernance, "", 1, 1)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, cards.Save(ctx, card))

	_, err = service.Start(ctx, testUser, card.ID())
	require.NoError(t, err)
	view, err := service.BeginQuiz(ctx, testUser)
	require.NoError(t, err)
	correct := view.Quiz.CorrectIndex

	cards.failSave = true
	_, err = service.SubmitAnswer(ctx, testUser, correct)
	require.Error(t, err)

	// The session rolls back to quizzing and the stored card is untouched
	current, err := service.Session(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, services.StateQuizzing, current.State)
	require.NotNil(t, current.Quiz)
	stored, err := cards.GetByID(ctx, testUser, card.ID())
	require.NoError(t, err)
	assert.False(t, stored.IsPurified())

	// Once storage recovers the same answer still purifies
	cards.failSave = false
	view, err = service.SubmitAnswer(ctx, testUser, correct)
	require.NoError(t, err)
	assert.Equal(t, services.StateSuccess, view.State)
	stored, err = cards.GetByID(ctx, testUser, card.ID())
	require.NoError(t, err)
	assert.True(t, stored.IsPurified())
	profile, err := rewards.Profile(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 200, profile.XP)
}

// gateGenerator parks Generate until the test releases it
type gateGenerator struct {
	inner   *quiz.TemplateGenerator
	entered chan struct{}
	release chan struct{}
}

func (g *gateGenerator) Generate(ctx context.Context, card *entities.Card, pool []*entities.Card) (valueobjects.Quiz, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.inner.Generate(ctx, card, pool)
}

func TestPurification_StaleGenerationNeverReachesReplacedSession(t *testing.T) {
	cards := memory.NewCardRepository()
	profiles := memory.NewProfileRepository()
	notifier := &recordingNotifier{}
	rewards := services.NewRewardService(profiles, cards, nil, nil, notifier, zap.NewNop())
	gen := &gateGenerator{
		inner:   quiz.NewTemplateGenerator(4, 1),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	service := services.NewPurificationService(
		cards, gen, rewards, notifier, nil, nil,
		config.DefaultDomainConfig().Purification, zap.NewNop())
	ctx := context.Background()

	seed := func(id string) *entities.Card {
		entityID, err := valueobjects.NewEntityID(id)
		require.NoError(t, err)
		card, err := entities.NewCard(entityID, testUser, "Term "+id, "Definition for "+id,
			entities.AttributeEnvironment, "", 1, 1)
		require.NoError(t, err)
		require.NoError(t, cards.Save(ctx, card))
		return card
	}
	first := seed("card-1")
	second := seed("card-2")

	_, err := service.Start(ctx, testUser, first.ID())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := service.BeginQuiz(ctx, testUser)
		done <- err
	}()
	<-gen.entered

	// Replace the session while generation is in flight
	_, err = service.Start(ctx, testUser, second.ID())
	require.NoError(t, err)
	close(gen.release)
	require.NoError(t, <-done)

	// The late quiz is discarded; the new session is still untouched
	current, err := service.Session(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, second.ID(), current.CardID)
	assert.Equal(t, services.StateReading, current.State)
	assert.Nil(t, current.Quiz)
}

func TestPurification_StaleGenerationNeverRevivesClosedSession(t *testing.T) {
	cards := memory.NewCardRepository()
	profiles := memory.NewProfileRepository()
	notifier := &recordingNotifier{}
	rewards := services.NewRewardService(profiles, cards, nil, nil, notifier, zap.NewNop())
	gen := &gateGenerator{
		inner:   quiz.NewTemplateGenerator(4, 1),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	service := services.NewPurificationService(
		cards, gen, rewards, notifier, nil, nil,
		config.DefaultDomainConfig().Purification, zap.NewNop())
	ctx := context.Background()

	entityID, err := valueobjects.NewEntityID("card-1")
	require.NoError(t, err)
	card, err := entities.NewCard(entityID, testUser, "Term", "Definition",
		entities.AttributeEnvironment, "", 1, 1)
	require.NoError(t, err)
	require.NoError(t, cards.Save(ctx, card))

	_, err = service.Start(ctx, testUser, card.ID())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := service.BeginQuiz(ctx, testUser)
		done <- err
	}()
	<-gen.entered

	service.Close(ctx, testUser)
	close(gen.release)

	assert.True(t, pkgerrors.IsNotFound(<-done))
	_, err = service.Session(ctx, testUser)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestPurification_RetryOnlyFromFailed(t *testing.T) {
	f := newPurificationFixture(t)
	card := f.seedCard(t, "card-1")
	ctx := context.Background()

	_, err := f.service.Start(ctx, testUser, card.ID())
	require.NoError(t, err)

	_, err = f.service.Retry(ctx, testUser)

	require.Error(t, err)
	appErr := pkgerrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.ErrorTypeConflict, appErr.Type)
}

func TestPurification_CloseDiscardsSession(t *testing.T) {
	f := newPurificationFixture(t)
	card := f.seedCard(t, "card-1")
	ctx := context.Background()

	_, err := f.service.Start(ctx, testUser, card.ID())
	require.NoError(t, err)
	f.service.Close(ctx, testUser)

	_, err = f.service.Session(ctx, testUser)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestPurification_StartReplacesOpenSession(t *testing.T) {
	f := newPurificationFixture(t)
	first := f.seedCard(t, "card-1")
	second := f.seedCard(t, "card-2")
	ctx := context.Background()

	_, err := f.service.Start(ctx, testUser, first.ID())
	require.NoError(t, err)
	view, err := f.service.Start(ctx, testUser, second.ID())

	require.NoError(t, err)
	assert.Equal(t, second.ID(), view.CardID)
}
