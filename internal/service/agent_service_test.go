package service

import (
	"context"
	"errors"
	"image"
	"testing"

	"vlm-search-agent/internal/dto"
	"vlm-search-agent/internal/pkg/logger"
	"vlm-search-agent/internal/repository/memory"
	"vlm-search-agent/pkg/agent"
	"vlm-search-agent/pkg/imaging"
	"vlm-search-agent/pkg/passage"
	"vlm-search-agent/pkg/ranker"
	"vlm-search-agent/pkg/verifier"
	"vlm-search-agent/pkg/vlm/vlmtest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bridgeURL = "https://example.com/bridge.jpg"

type countingLoader struct{ loads int }

func (l *countingLoader) Load(_ context.Context, identity string) (*imaging.Image, error) {
	l.loads++
	return &imaging.Image{Identity: identity, Pixels: image.NewRGBA(image.Rect(0, 0, 2, 2))}, nil
}

// the direct path never reaches these
type unusedBackends struct{}

func (unusedBackends) Retrieve(context.Context, string) ([]passage.Passage, error) {
	return nil, errors.New("unexpected retrieve")
}

func (unusedBackends) Rank(context.Context, string, int) ([]ranker.RankedPassage, error) {
	return nil, errors.New("unexpected rank")
}

func (unusedBackends) Verify(context.Context, *imaging.Image, passage.Passage, string) (verifier.Verdict, error) {
	return verifier.Verdict{}, errors.New("unexpected verify")
}

type fakeBuilder struct {
	built    []string
	released []string
	loader   *countingLoader
	err      error
}

func (b *fakeBuilder) Build(sessionID string) (*agent.Agent, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.built = append(b.built, sessionID)
	return agent.NewAgent(
		vlmtest.NewResponder(func(string, *imaging.Image) (string, error) {
			return "It is the Golden Gate Bridge.", nil
		}),
		b.loader,
		unusedBackends{},
		unusedBackends{},
		unusedBackends{},
		logger.NewNopLogger(),
	)
}

func (b *fakeBuilder) Release(sessionID string) {
	b.released = append(b.released, sessionID)
}

func newTestService() (IAgentService, *fakeBuilder, *memory.SessionRepository) {
	repo := memory.NewSessionRepository()
	builder := &fakeBuilder{loader: &countingLoader{}}
	return NewAgentService(repo, builder, logger.NewNopLogger()), builder, repo
}

func TestAskCreatesSession(t *testing.T) {
	svc, builder, repo := newTestService()
	ctx := context.Background()

	res, err := svc.Ask(ctx, &dto.AskRequest{ImageURL: " " + bridgeURL + " ", Question: "What is this?"})
	require.NoError(t, err)

	_, err = uuid.Parse(res.SessionId)
	assert.NoError(t, err)
	assert.Equal(t, "\nLoading new image!\n*Direct Answer* : It is the Golden Gate Bridge.", res.Response)
	assert.Equal(t, agent.ModeDirect, res.Result.Mode)
	assert.Equal(t, 1, repo.Count())
	assert.Equal(t, []string{res.SessionId}, builder.built)

	_, err = svc.Ask(ctx, &dto.AskRequest{SessionId: res.SessionId, ImageURL: bridgeURL, Question: "Where is it?"})
	require.NoError(t, err)
	assert.Len(t, builder.built, 1, "session agent is reused")
	assert.Equal(t, 1, builder.loader.loads, "same image is not reloaded")

	session, err := svc.GetSession(ctx, res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, bridgeURL, session.ActiveImageIdentity)
	assert.Equal(t, "Where is it?", session.LastQuestion)
	assert.Equal(t, 2, session.Questions)
	assert.False(t, session.EvidenceCacheValid)
}

func TestAskWithUnknownSessionId(t *testing.T) {
	svc, builder, _ := newTestService()
	id := uuid.New().String()

	res, err := svc.Ask(context.Background(), &dto.AskRequest{SessionId: id, ImageURL: bridgeURL, Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, id, res.SessionId)
	assert.Equal(t, []string{id}, builder.built)
}

func TestStreamReportsLines(t *testing.T) {
	svc, _, _ := newTestService()
	var lines []string

	_, err := svc.Stream(context.Background(), &dto.AskRequest{ImageURL: bridgeURL, Question: "q"}, func(line string) {
		lines = append(lines, line)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Loading new image!", "*Direct Answer* : It is the Golden Gate Bridge."}, lines)
}

func TestDeleteSessionReleasesAgent(t *testing.T) {
	svc, builder, _ := newTestService()
	ctx := context.Background()

	res, err := svc.Ask(ctx, &dto.AskRequest{ImageURL: bridgeURL, Question: "q"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSession(ctx, res.SessionId))
	assert.Equal(t, []string{res.SessionId}, builder.released)

	_, err = svc.GetSession(ctx, res.SessionId)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, svc.DeleteSession(ctx, res.SessionId), ErrSessionNotFound)
}

func TestAskBuildFailure(t *testing.T) {
	svc, builder, repo := newTestService()
	builder.err = errors.New("vlm backend down")

	_, err := svc.Ask(context.Background(), &dto.AskRequest{ImageURL: bridgeURL, Question: "q"})
	assert.ErrorContains(t, err, "create agent: vlm backend down")
	assert.Equal(t, 0, repo.Count())
}

func TestAskInvalidImage(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Ask(context.Background(), &dto.AskRequest{ImageURL: "https://example.com/page.html", Question: "q"})
	assert.ErrorIs(t, err, imaging.ErrInvalidURL)
}
