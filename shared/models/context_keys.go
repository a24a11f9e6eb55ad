package models

import "context"

// contextKey - приватный тип для ключей контекста, чтобы избежать коллизий.
type contextKey string

const (
	// SessionIDContextKey используется как ключ для ID сессии консоли (gin.Context и context.Context).
	SessionIDContextKey contextKey = "consoleSessionID"
	// UsernameContextKey хранит имя администратора, вошедшего в консоль.
	UsernameContextKey contextKey = "consoleUsername"
)

// GetSessionIDFromContext извлекает ID сессии из контекста.
func GetSessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(SessionIDContextKey).(string)
	return id, ok && id != ""
}

// GetUsernameFromContext извлекает имя администратора из контекста.
func GetUsernameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(UsernameContextKey).(string)
	return name, ok && name != ""
}
