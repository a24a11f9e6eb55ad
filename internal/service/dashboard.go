package service

import (
	"context"

	"voice-console/internal/cache"
	"voice-console/internal/domain"
	"voice-console/internal/panel"
	"voice-console/shared/messaging"
)

// DashboardService - состояние кеша конфигурации на бэкенде и его принудительное обновление.
type DashboardService struct {
	base
}

// NewDashboardService создает сервис дашборда.
func NewDashboardService(d Deps) *DashboardService {
	return &DashboardService{base: newBase(d, "DashboardService", panel.Dashboard)}
}

// Status возвращает счетчики кеша бэкенда.
func (s *DashboardService) Status(ctx context.Context) (*domain.CacheStatus, error) {
	return cache.Fetch(ctx, s.cache, sessionID(ctx), cache.ResourceCacheStatus, s.api.CacheStatus)
}

// RefreshResult - результат принудительного обновления кеша бэкенда.
type RefreshResult struct {
	Status   *domain.CacheStatus
	WriteErr error
	FetchErr error
}

// RefreshBackendCache просит бэкенд перечитать конфигурацию из базы и возвращает новое состояние.
func (s *DashboardService) RefreshBackendCache(ctx context.Context) RefreshResult {
	var res RefreshResult
	res.WriteErr = s.write(ctx, messaging.ActionRefresh, messaging.EntityConfigCache, 1, s.api.RefreshCache)
	if res.WriteErr == nil {
		s.publish(ctx, messaging.EntityConfigCache, messaging.ActionRefresh, nil)
	}
	res.Status, res.FetchErr = s.Status(ctx)
	return res
}
