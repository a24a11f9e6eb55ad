// Package cache - кеш чтений консоли: записи сервиса конфигурации на сессию оператора.
// L1 на ristretto, параллельные загрузки одного ключа схлопываются через singleflight.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Ресурсы, которые кешируют панели.
const (
	ResourceGreetings   = "greetings"
	ResourceIVRPrompts  = "ivr_prompts"
	ResourceAgents      = "agents"
	ResourceCorrections = "corrections"
	ResourceCacheStatus = "cache_status"
)

// AllResources - все ресурсы, которые сбрасывает InvalidateSession.
var AllResources = []string{
	ResourceGreetings,
	ResourceIVRPrompts,
	ResourceAgents,
	ResourceCorrections,
	ResourceCacheStatus,
}

// QueryCache хранит результаты чтений с TTL и сбрасывается после каждой записи.
type QueryCache struct {
	c      *ristretto.Cache[string, any]
	group  singleflight.Group
	ttl    time.Duration
	logger *zap.Logger

	mu          sync.Mutex
	loads       map[string]*inflight
	generations map[string]uint64
}

// inflight - загрузка ключа, которая сейчас выполняется. dropped - ключ сброшен во время загрузки.
type inflight struct {
	dropped bool
}

// New создает кеш на maxEntries записей. ttl == 0 - без истечения.
func New(maxEntries int64, ttl time.Duration, logger *zap.Logger) (*QueryCache, error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("cache max entries must be positive, got %d", maxEntries)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters: maxEntries * 10, // ~10x ожидаемых элементов
		MaxCost:     maxEntries,      // стоимость каждой записи = 1
		BufferItems: 64,
		// Лимит считается в записях, без служебного размера ristretto.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	return &QueryCache{
		c:           c,
		ttl:         ttl,
		logger:      logger.Named("QueryCache"),
		loads:       make(map[string]*inflight),
		generations: make(map[string]uint64),
	}, nil
}

// Key - ключ записи кеша для сессии и ресурса.
func Key(sessionID, resource string) string {
	return sessionID + "|" + resource
}

// entryKey добавляет к ключу поколение ресурса: InvalidateResource делает старые записи недостижимыми.
func (q *QueryCache) entryKey(sessionID, resource string) string {
	q.mu.Lock()
	gen := q.generations[resource]
	q.mu.Unlock()
	return fmt.Sprintf("%s#%d", Key(sessionID, resource), gen)
}

// lastKey - ключ последнего успешно загруженного значения. Поколение в него не входит:
// снимок переживает инвалидацию и удаляется только вместе с сессией.
func lastKey(sessionID, resource string) string {
	return "last|" + Key(sessionID, resource)
}

// Fetch возвращает значение из кеша или загружает его через load.
// Одновременные промахи по одному ключу выполняют load один раз.
// Ошибки не кешируются.
func Fetch[T any](ctx context.Context, q *QueryCache, sessionID, resource string, load func(context.Context) (T, error)) (T, error) {
	key := q.entryKey(sessionID, resource)
	if v, ok := q.c.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
		q.logger.Warn("Cached value has unexpected type, reloading", zap.String("key", key))
	}

	v, err, shared := q.group.Do(key, func() (any, error) {
		st := q.startLoad(key)
		val, err := load(ctx)
		q.mu.Lock()
		defer q.mu.Unlock()
		if q.loads[key] == st {
			delete(q.loads, key)
		}
		if err != nil {
			return nil, err
		}
		// Запись, загруженная до инвалидации, не должна пережить ее.
		if !st.dropped {
			q.c.SetWithTTL(key, val, 1, q.ttl)
		}
		q.c.Set(lastKey(sessionID, resource), val, 1)
		q.c.Wait()
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if shared {
		q.logger.Debug("Load shared between concurrent callers", zap.String("key", key))
	}
	return v.(T), nil
}

func (q *QueryCache) startLoad(key string) *inflight {
	q.mu.Lock()
	defer q.mu.Unlock()
	st := &inflight{}
	q.loads[key] = st
	return st
}

// Last возвращает последнее успешно загруженное значение ресурса сессии, даже если кеш
// уже сброшен. Панели показывают его, когда сервис конфигурации недоступен.
func Last[T any](q *QueryCache, sessionID, resource string) (T, bool) {
	var zero T
	v, ok := q.c.Get(lastKey(sessionID, resource))
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

// Invalidate удаляет ресурсы сессии из кеша; следующее чтение пойдет в сервис конфигурации.
func (q *QueryCache) Invalidate(sessionID string, resources ...string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, r := range resources {
		key := fmt.Sprintf("%s#%d", Key(sessionID, r), q.generations[r])
		if st, ok := q.loads[key]; ok {
			st.dropped = true
			delete(q.loads, key)
		}
		q.group.Forget(key)
		q.c.Del(key)
	}
}

// InvalidateResource сбрасывает ресурс для всех сессий (изменение пришло от другого экземпляра консоли).
// Старые записи становятся недостижимыми и вытесняются по TTL. Загрузки старого поколения
// дописывают только недостижимые ключи.
func (q *QueryCache) InvalidateResource(resources ...string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, r := range resources {
		q.generations[r]++
	}
	q.logger.Debug("Resources invalidated for all sessions", zap.Strings("resources", resources))
}

// InvalidateSession удаляет все ресурсы сессии вместе с последними снимками (выход из консоли).
func (q *QueryCache) InvalidateSession(sessionID string) {
	q.Invalidate(sessionID, AllResources...)
	for _, r := range AllResources {
		q.c.Del(lastKey(sessionID, r))
	}
}


// Close освобождает ресурсы ristretto.
func (q *QueryCache) Close() {
	q.c.Close()
}
