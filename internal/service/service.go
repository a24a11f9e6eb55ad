// Package service - логика панелей консоли: чтение через кеш, запись через черновик,
// сброс кеша и повторное чтение после каждой записи, публикация событий.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"voice-console/internal/cache"
	"voice-console/internal/client"
	"voice-console/internal/draft"
	"voice-console/internal/panel"
	"voice-console/shared/messaging"
	"voice-console/shared/models"
)

// Deps - общие зависимости сервисов панелей.
type Deps struct {
	API       client.ConsoleAPI
	Cache     *cache.QueryCache
	Publisher messaging.ConfigEventPublisher
	// WriteConcurrency ограничивает число одновременных запросов в батче (0 - без ограничения).
	WriteConcurrency int
	// Source - ID этого экземпляра консоли в событиях.
	Source string
	Logger *zap.Logger
}

// Outcome - результат записи из панели.
type Outcome[T any] struct {
	// Records - свежие записи сервера. При ошибке записи текстовые панели накладывают черновик поверх.
	Records []T
	// WriteErr - первая ошибка батча; уже примененные записи остаются примененными.
	WriteErr error
	// FetchErr - чтение не удалось. Без Stale Records пуст и панель показывает ошибку.
	FetchErr error
	// Stale - Records взяты из последнего известного снимка сессии, потому что чтение не удалось.
	Stale bool
	// Ops - сколько операций было отправлено.
	Ops int
}

// OK сообщает, что запись и повторное чтение прошли успешно.
func (o Outcome[T]) OK() bool {
	return o.WriteErr == nil && o.FetchErr == nil
}

// base - общая часть сервисов панелей.
type base struct {
	api       client.ConsoleAPI
	cache     *cache.QueryCache
	writer    draft.Writer
	publisher messaging.ConfigEventPublisher
	limit     int
	source    string
	logger    *zap.Logger
	panel     panel.Name
}

func newBase(d Deps, name string, p panel.Name) base {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pub := d.Publisher
	if pub == nil {
		pub = messaging.NoopPublisher{}
	}
	return base{
		api:       d.API,
		cache:     d.Cache,
		writer:    draft.NewAPIWriter(d.API),
		publisher: pub,
		limit:     d.WriteConcurrency,
		source:    d.Source,
		logger:    logger.Named(name),
		panel:     p,
	}
}

func sessionID(ctx context.Context) string {
	id, _ := models.GetSessionIDFromContext(ctx)
	return id
}

func actor(ctx context.Context) string {
	name, _ := models.GetUsernameFromContext(ctx)
	return name
}

// write выполняет запись, учитывает метрики и сбрасывает кеш сессии по всем ресурсам,
// которые затрагивает сущность, независимо от результата.
func (b *base) write(ctx context.Context, action, entity string, ops int, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	observeWrite(string(b.panel), action, ops, err, time.Since(start))
	b.cache.Invalidate(sessionID(ctx), resourcesOf(entity)...)

	log := b.logger.With(zap.String("action", action), zap.Int("ops", ops), zap.String("actor", actor(ctx)))
	if err != nil {
		log.Warn("Write failed", zap.Error(err))
		return err
	}
	log.Info("Write applied")
	return nil
}

// execute выполняет батч операций черновика конкурентно.
func (b *base) execute(ctx context.Context, action, entity string, ops []draft.Op) error {
	return b.write(ctx, action, entity, len(ops), func(ctx context.Context) error {
		return draft.Execute(ctx, b.writer, ops, b.limit)
	})
}

// withSnapshot подставляет последний известный снимок ресурса, если чтение не удалось.
// Панель остается в состоянии ready, ввод оператора не теряется.
func withSnapshot[T any](ctx context.Context, b *base, resource string, out Outcome[T]) Outcome[T] {
	if out.FetchErr == nil {
		return out
	}
	last, ok := cache.Last[[]T](b.cache, sessionID(ctx), resource)
	if !ok {
		return out
	}
	out.Records, out.Stale = last, true
	b.logger.Info("Showing last known snapshot", zap.String("resource", resource), zap.Int("records", len(last)))
	return out
}

// publish отправляет событие; ошибка только логируется.
func (b *base) publish(ctx context.Context, entity, action string, keys []string) {
	event := messaging.ConfigChangeEvent{
		Entity: entity,
		Action: action,
		Keys:   keys,
		Actor:  actor(ctx),
		Source: b.source,
		At:     time.Now().UTC(),
	}
	if err := b.publisher.PublishConfigChange(ctx, event); err != nil {
		eventPublishFailures.Inc()
		b.logger.Error("Failed to publish config change event after write",
			zap.String("entity", entity), zap.String("action", action), zap.Error(err))
	}
}

func opKeys(ops []draft.Op) []string {
	keys := make([]string, 0, len(ops))
	seen := make(map[string]bool, len(ops))
	for _, op := range ops {
		k := op.Target()
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}
