package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"voice-console/internal/cache"
	"voice-console/internal/client"
	"voice-console/internal/domain"
	"voice-console/internal/panel"
	"voice-console/shared/messaging"
	"voice-console/shared/models"
)

// CorrectionService - правила исправления слов, которые STT слышит неверно.
type CorrectionService struct {
	base
}

// NewCorrectionService создает сервис панели исправлений.
func NewCorrectionService(d Deps) *CorrectionService {
	return &CorrectionService{base: newBase(d, "CorrectionService", panel.Corrections)}
}

// List возвращает правила из кеша сессии или из сервиса конфигурации.
func (s *CorrectionService) List(ctx context.Context) ([]domain.Correction, error) {
	return cache.Fetch(ctx, s.cache, sessionID(ctx), cache.ResourceCorrections, s.api.ListCorrections)
}

// Create добавляет правило. Оба слова обязательны, пробелы по краям обрезаются.
func (s *CorrectionService) Create(ctx context.Context, wrong, correct string) Outcome[domain.Correction] {
	payload := client.CorrectionCreate{WrongWord: strings.TrimSpace(wrong), CorrectWord: strings.TrimSpace(correct)}
	if payload.WrongWord == "" || payload.CorrectWord == "" {
		return s.refetch(ctx, Outcome[domain.Correction]{
			WriteErr: fmt.Errorf("%w: wrong word and correct word required", models.ErrInvalidInput),
		})
	}
	err := s.write(ctx, messaging.ActionCreate, messaging.EntityCorrection, 1, func(ctx context.Context) error {
		return s.api.CreateCorrection(ctx, payload)
	})
	out := s.refetch(ctx, Outcome[domain.Correction]{WriteErr: err, Ops: 1})
	if err == nil {
		s.publish(ctx, messaging.EntityCorrection, messaging.ActionCreate, []string{payload.WrongWord})
	}
	return out
}

// Delete удаляет правило (на бэкенде - мягкое удаление).
func (s *CorrectionService) Delete(ctx context.Context, id int64) Outcome[domain.Correction] {
	err := s.write(ctx, messaging.ActionDelete, messaging.EntityCorrection, 1, func(ctx context.Context) error {
		return s.api.DeleteCorrection(ctx, id)
	})
	out := s.refetch(ctx, Outcome[domain.Correction]{WriteErr: err, Ops: 1})
	if err == nil {
		s.publish(ctx, messaging.EntityCorrection, messaging.ActionDelete, []string{strconv.FormatInt(id, 10)})
	}
	return out
}

func (s *CorrectionService) refetch(ctx context.Context, out Outcome[domain.Correction]) Outcome[domain.Correction] {
	out.Records, out.FetchErr = s.List(ctx)
	if out.FetchErr != nil {
		s.logger.Warn("Re-fetch corrections failed", zap.Error(out.FetchErr))
		out = withSnapshot(ctx, &s.base, cache.ResourceCorrections, out)
	}
	return out
}
