// Package panel - состояние панели консоли и защита от параллельных сохранений.
package panel

import (
	"sync"

	"voice-console/shared/models"
)

// Name - идентификатор панели.
type Name string

const (
	Greetings   Name = "greetings"
	IVRPrompts  Name = "ivr-prompts"
	Agents      Name = "agents"
	Corrections Name = "corrections"
	Dashboard   Name = "dashboard"
)

// State - что показывает панель.
type State string

const (
	// StateLoading - оболочка страницы до получения данных.
	StateLoading State = "loading"
	// StateError - чтение не удалось, форма не рендерится.
	StateError State = "error"
	// StateReady - форма привязана к черновику.
	StateReady State = "ready"
)

// Action - операция записи, которая блокирует панель.
type Action string

const (
	ActionSave    Action = "save"
	ActionReset   Action = "reset"
	ActionCreate  Action = "create"
	ActionDelete  Action = "delete"
	// ActionRefresh - принудительное обновление кеша бэкенда с дашборда.
	ActionRefresh Action = "refresh"
)

// NoticeKind - тип уведомления в готовой панели.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
	NoticeInfo    NoticeKind = "info"
)

// Notice - уведомление над формой.
type Notice struct {
	Kind    NoticeKind
	Message string
}

// Tracker не дает запустить вторую запись для той же пары сессия+панель, пока идет первая.
type Tracker struct {
	mu       sync.Mutex
	inFlight map[string]Action
}

// NewTracker создает пустой трекер.
func NewTracker() *Tracker {
	return &Tracker{inFlight: make(map[string]Action)}
}

func trackerKey(sessionID string, p Name) string {
	return sessionID + "|" + string(p)
}

// Begin занимает панель. Если она уже занята, возвращает models.ErrOperationInProgress
// и действие, которое сейчас выполняется. При успехе нужно вызвать возвращенный release.
func (t *Tracker) Begin(sessionID string, p Name, a Action) (release func(), running Action, err error) {
	key := trackerKey(sessionID, p)
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, busy := t.inFlight[key]; busy {
		return nil, cur, models.ErrOperationInProgress
	}
	t.inFlight[key] = a
	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.inFlight, key)
			t.mu.Unlock()
		})
	}, a, nil
}
