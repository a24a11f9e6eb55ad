package service

import (
	"go.uber.org/zap"

	"voice-console/internal/cache"
	"voice-console/shared/messaging"
)

var entityResources = map[string][]string{
	messaging.EntityGreeting:    {cache.ResourceGreetings, cache.ResourceCacheStatus},
	messaging.EntityIVRPrompt:   {cache.ResourceIVRPrompts},
	messaging.EntityAgent:       {cache.ResourceAgents, cache.ResourceCacheStatus},
	messaging.EntityCorrection:  {cache.ResourceCorrections, cache.ResourceCacheStatus},
	messaging.EntityConfigCache: {cache.ResourceCacheStatus},
}

// resourcesOf - ресурсы кеша, которые затрагивает изменение сущности. Неизвестная сущность - все.
func resourcesOf(entity string) []string {
	if resources, ok := entityResources[entity]; ok {
		return resources
	}
	return cache.AllResources
}

// CacheInvalidator сбрасывает кеш всех сессий по событиям от других экземпляров консоли.
type CacheInvalidator struct {
	cache  *cache.QueryCache
	logger *zap.Logger
}

var _ messaging.ConfigChangeHandler = (*CacheInvalidator)(nil)

// NewCacheInvalidator создает обработчик событий изменения конфигурации.
func NewCacheInvalidator(q *cache.QueryCache, logger *zap.Logger) *CacheInvalidator {
	return &CacheInvalidator{cache: q, logger: logger.Named("CacheInvalidator")}
}

// HandleConfigChange сбрасывает ресурсы, которые затрагивает сущность события.
func (i *CacheInvalidator) HandleConfigChange(event messaging.ConfigChangeEvent) {
	i.cache.InvalidateResource(resourcesOf(event.Entity)...)
	i.logger.Debug("Cache invalidated by remote change",
		zap.String("entity", event.Entity),
		zap.String("action", event.Action),
		zap.String("source", event.Source),
	)
}
