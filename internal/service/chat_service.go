package service

import (
	"context"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docrag/internal/model"
	appErr "github.com/xxxsen/docrag/internal/pkg/errors"
	"github.com/xxxsen/docrag/internal/pkg/timeutil"
)

const maxQuestionRunes = 4000

type Answerer interface {
	Answer(ctx context.Context, tenantID, question string, topK int, modelName string) (*model.Answer, error)
}

// ChatService answers tenant questions and keeps an analytics log of them.
type ChatService struct {
	retrieval Answerer
	logs      MessageLogRepository
	topK      int
	model     string
}

func NewChatService(retrieval Answerer, logs MessageLogRepository, topK int, modelName string) *ChatService {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &ChatService{retrieval: retrieval, logs: logs, topK: topK, model: modelName}
}

func (s *ChatService) Query(ctx context.Context, tenantID, question string) (*model.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" || len([]rune(question)) > maxQuestionRunes {
		return nil, appErr.ErrInvalid
	}
	answer, err := s.retrieval.Answer(ctx, tenantID, question, s.topK, s.model)
	if err != nil {
		return nil, err
	}
	if s.logs != nil {
		item := &model.MessageLog{
			ID:            newID(),
			TenantID:      tenantID,
			Question:      question,
			Answer:        answer.Reply,
			IsContextUsed: answer.ContextUsed(),
			Ctime:         timeutil.NowUnix(),
		}
		if err := s.logs.Create(ctx, item); err != nil {
			logutil.GetLogger(ctx).Warn("append message log failed", zap.String("tenant_id", tenantID), zap.Error(err))
		}
	}
	return answer, nil
}
