package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vlm-search-agent/internal/dto"
	"vlm-search-agent/internal/pkg/logger"
	"vlm-search-agent/internal/repository/memory"
	"vlm-search-agent/pkg/agent"
	"vlm-search-agent/pkg/store"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

// AgentBuilder creates the agent behind a new session and releases whatever
// that agent owns once the session is gone.
type AgentBuilder interface {
	Build(sessionID string) (*agent.Agent, error)
	Release(sessionID string)
}

// IAgentService defines the visual question answering service interface
type IAgentService interface {
	Ask(ctx context.Context, request *dto.AskRequest) (*dto.AskResponse, error)
	Stream(ctx context.Context, request *dto.AskRequest, listen agent.Listener) (*dto.AskResponse, error)
	GetSession(ctx context.Context, sessionId string) (*dto.SessionResponse, error)
	DeleteSession(ctx context.Context, sessionId string) error
}

type agentService struct {
	sessionRepo *memory.SessionRepository
	builder     AgentBuilder
	logger      logger.ILogger
}

// NewAgentService creates the service; expired sessions release their agent.
func NewAgentService(sessionRepo *memory.SessionRepository, builder AgentBuilder, log logger.ILogger) IAgentService {
	sessionRepo.OnEvicted(func(sessionID string) {
		builder.Release(sessionID)
		log.Info("http", "session released", map[string]interface{}{"session_id": sessionID})
	})
	return &agentService{
		sessionRepo: sessionRepo,
		builder:     builder,
		logger:      log,
	}
}

func (s *agentService) Ask(ctx context.Context, request *dto.AskRequest) (*dto.AskResponse, error) {
	return s.Stream(ctx, request, nil)
}

// Stream answers one question in the request's session, creating the session
// when the id is empty or unknown. listen receives every output line.
func (s *agentService) Stream(ctx context.Context, request *dto.AskRequest, listen agent.Listener) (*dto.AskResponse, error) {
	session, err := s.loadOrCreate(request.SessionId)
	if err != nil {
		return nil, err
	}
	session.Touch(request.Question)

	res, err := session.Agent.TryAnswer(ctx, strings.TrimSpace(request.ImageURL), request.Question, listen)
	// refresh expiry on every question
	s.sessionRepo.Save(session)
	if err != nil {
		return nil, err
	}

	return &dto.AskResponse{
		SessionId: session.ID,
		Response:  res.Output,
		Result:    res,
	}, nil
}

func (s *agentService) GetSession(ctx context.Context, sessionId string) (*dto.SessionResponse, error) {
	session, found := s.sessionRepo.Get(sessionId)
	if !found {
		return nil, ErrSessionNotFound
	}

	state := session.Agent.Session()
	last, count := session.Stats()
	return &dto.SessionResponse{
		Id:                  session.ID,
		ActiveImageIdentity: state.ActiveImageIdentity,
		EvidenceCacheValid:  state.EvidenceCacheValid,
		LastQuestion:        last,
		Questions:           count,
		CreatedAt:           session.CreatedAt,
	}, nil
}

func (s *agentService) DeleteSession(ctx context.Context, sessionId string) error {
	if _, found := s.sessionRepo.Get(sessionId); !found {
		return ErrSessionNotFound
	}
	// eviction callback releases the agent
	s.sessionRepo.Delete(sessionId)
	return nil
}

func (s *agentService) loadOrCreate(sessionId string) (*store.Session, error) {
	if sessionId != "" {
		if session, found := s.sessionRepo.Get(sessionId); found {
			return session, nil
		}
	} else {
		sessionId = uuid.New().String()
	}

	a, err := s.builder.Build(sessionId)
	if err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}
	session := store.NewSession(sessionId, a)
	if !s.sessionRepo.Add(session) {
		// another request created it first; both agents point at the same
		// store, so nothing to release
		if existing, found := s.sessionRepo.Get(sessionId); found {
			return existing, nil
		}
		return nil, ErrSessionNotFound
	}

	s.logger.Info("http", "session created", map[string]interface{}{"session_id": sessionId})
	return session, nil
}
