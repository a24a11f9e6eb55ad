package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"voice-console/internal/cache"
	"voice-console/internal/client"
	"voice-console/internal/domain"
	"voice-console/internal/draft"
	"voice-console/internal/panel"
	"voice-console/shared/messaging"
)

// AgentService - справочник агентов: создание, правка формы, мягкое удаление и повторная активация.
type AgentService struct {
	base
}

// NewAgentService создает сервис панели агентов.
func NewAgentService(d Deps) *AgentService {
	return &AgentService{base: newBase(d, "AgentService", panel.Agents)}
}

// List возвращает агентов из кеша сессии или из сервиса конфигурации.
func (s *AgentService) List(ctx context.Context) ([]domain.Agent, error) {
	return cache.Fetch(ctx, s.cache, sessionID(ctx), cache.ResourceAgents, s.api.ListAgents)
}

// Create проверяет форму и создает агента одним запросом.
// Форма не трогается: при ошибке обработчик рендерит ее заново с тем же вводом.
func (s *AgentService) Create(ctx context.Context, form draft.AgentForm) (Outcome[domain.Agent], int64) {
	if err := form.Validate(); err != nil {
		return s.refetch(ctx, Outcome[domain.Agent]{WriteErr: err}), 0
	}
	var id int64
	err := s.write(ctx, messaging.ActionCreate, messaging.EntityAgent, 1, func(ctx context.Context) error {
		var err error
		id, err = s.api.CreateAgent(ctx, form.CreatePayload())
		return err
	})
	out := s.refetch(ctx, Outcome[domain.Agent]{WriteErr: err, Ops: 1})
	if err == nil {
		s.publish(ctx, messaging.EntityAgent, messaging.ActionCreate, []string{agentKey(id)})
	}
	return out, id
}

// Update сохраняет форму существующего агента: partial update измененных полей
// плюс add/remove специализаций по разности категорий. Поля сравниваются со свежей записью сервера,
// категории - с набором, которым была заполнена форма (form.KnownCategories).
func (s *AgentService) Update(ctx context.Context, id int64, form draft.AgentForm) Outcome[domain.Agent] {
	if err := form.Validate(); err != nil {
		return s.refetch(ctx, Outcome[domain.Agent]{WriteErr: err})
	}
	server, err := s.api.GetAgent(ctx, id)
	if err != nil {
		return s.refetch(ctx, Outcome[domain.Agent]{WriteErr: fmt.Errorf("load agent %d: %w", id, err)})
	}
	ops := draft.AgentPlan(*server, form)
	out := Outcome[domain.Agent]{Ops: len(ops)}
	out.WriteErr = s.execute(ctx, messaging.ActionUpdate, messaging.EntityAgent, ops)
	out = s.refetch(ctx, out)
	if out.WriteErr == nil && len(ops) > 0 {
		s.publish(ctx, messaging.EntityAgent, messaging.ActionUpdate, []string{agentKey(id)})
	}
	return out
}

// Delete - мягкое удаление: бэкенд помечает агента неактивным.
func (s *AgentService) Delete(ctx context.Context, id int64) Outcome[domain.Agent] {
	err := s.write(ctx, messaging.ActionDelete, messaging.EntityAgent, 1, func(ctx context.Context) error {
		return s.api.DeleteAgent(ctx, id)
	})
	out := s.refetch(ctx, Outcome[domain.Agent]{WriteErr: err, Ops: 1})
	if err == nil {
		s.publish(ctx, messaging.EntityAgent, messaging.ActionDelete, []string{agentKey(id)})
	}
	return out
}

// SetActive включает или выключает агента (повторная активация после мягкого удаления).
func (s *AgentService) SetActive(ctx context.Context, id int64, active bool) Outcome[domain.Agent] {
	ops := []draft.Op{{Kind: draft.OpUpdateAgent, AgentID: id, Patch: client.AgentUpdate{IsActive: &active}}}
	out := Outcome[domain.Agent]{Ops: len(ops)}
	out.WriteErr = s.execute(ctx, messaging.ActionUpdate, messaging.EntityAgent, ops)
	out = s.refetch(ctx, out)
	if out.WriteErr == nil {
		s.publish(ctx, messaging.EntityAgent, messaging.ActionUpdate, []string{agentKey(id)})
	}
	return out
}

func (s *AgentService) refetch(ctx context.Context, out Outcome[domain.Agent]) Outcome[domain.Agent] {
	out.Records, out.FetchErr = s.List(ctx)
	if out.FetchErr != nil {
		s.logger.Warn("Re-fetch agents failed", zap.Error(out.FetchErr))
		out = withSnapshot(ctx, &s.base, cache.ResourceAgents, out)
	}
	return out
}

func agentKey(id int64) string {
	return "agent:" + strconv.FormatInt(id, 10)
}
