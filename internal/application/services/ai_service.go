package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/infrastructure/logger"
	"github.com/taskmaster/autotasks/internal/ports"
)

const (
	defaultAIRequestLimit = 100
	maxAIRequestLimit     = 100
)

// AIService records interpretation requests and links the tasks created from them
type AIService struct {
	aiRepo      ports.AIRequestRepository
	interpreter ports.Interpreter
	cache       ports.CacheRepository
	logger      *logger.Logger
	now         func() time.Time
}

// NewAIService creates a new AI request service
func NewAIService(aiRepo ports.AIRequestRepository, interpreter ports.Interpreter, cache ports.CacheRepository, logger *logger.Logger) *AIService {
	return &AIService{
		aiRepo:      aiRepo,
		interpreter: interpreter,
		cache:       cache,
		logger:      logger.WithComponent("ai"),
		now:         time.Now,
	}
}

// Interpret turns the input into draft tasks and stores the request
func (s *AIService) Interpret(ctx context.Context, userID uuid.UUID, req ports.InterpretRequest) (*entities.AIRequest, error) {
	if !req.InputType.IsValid() {
		return nil, entities.ErrInvalidInputType
	}

	text := strings.TrimSpace(req.InputText)
	interpretation, summary, err := s.interpreter.Interpret(ctx, text, req.InputType, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to interpret input: %w", err)
	}

	data, err := json.Marshal(interpretation)
	if err != nil {
		return nil, fmt.Errorf("failed to encode interpretation: %w", err)
	}
	interpreted := string(data)

	record := &entities.AIRequest{
		UserID:          userID,
		InputText:       text,
		InputType:       req.InputType,
		AIResponse:      &summary,
		InterpretedData: &interpreted,
	}
	if err := s.aiRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store ai request: %w", err)
	}

	record.Decorate()
	s.logger.LogUserAction(userID.String(), "ai_interpreted", map[string]interface{}{
		"request_id": record.ID,
		"input_type": record.InputType,
		"drafts":     len(interpretation.Tasks),
	})

	return record, nil
}

// Confirm links the tasks created from a request and flags them as AI-created
func (s *AIService) Confirm(ctx context.Context, userID uuid.UUID, id int64, taskIDs []int64) (*entities.AIRequest, error) {
	ids := uniqueIDs(taskIDs)
	if len(ids) == 0 {
		return nil, entities.ErrInvalidTasks
	}

	record, err := s.aiRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if record.WasConfirmed {
		return nil, entities.ErrAlreadyConfirmed
	}

	if err := s.aiRepo.Confirm(ctx, record, ids); err != nil {
		if errors.Is(err, entities.ErrInvalidTasks) || errors.Is(err, entities.ErrAlreadyConfirmed) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to confirm ai request: %w", err)
	}

	if err := s.cache.DeletePattern(ctx, dashboardPattern(userID)); err != nil {
		s.logger.Warnw("Failed to invalidate dashboard cache", "user_id", userID, "error", err)
	}

	record.Decorate()
	s.logger.LogUserAction(userID.String(), "ai_confirmed", map[string]interface{}{
		"request_id": record.ID,
		"tasks":      ids,
	})

	return record, nil
}

// ListRequests returns the user's requests, newest first
func (s *AIService) ListRequests(ctx context.Context, filter ports.AIRequestFilter) ([]*entities.AIRequest, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultAIRequestLimit
	}
	if filter.Limit > maxAIRequestLimit {
		filter.Limit = maxAIRequestLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	requests, err := s.aiRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ai requests: %w", err)
	}

	total, err := s.aiRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count ai requests: %w", err)
	}

	for _, r := range requests {
		r.Decorate()
	}

	return requests, int(total), nil
}
