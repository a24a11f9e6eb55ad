package client

import "context"

type ctxKey int

const (
	credentialKey ctxKey = iota
	originKey
)

// WithCredential кладет в контекст закодированные учетные данные сессии.
// Клиент отправит их как "Authorization: Basic <credential>".
func WithCredential(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, credentialKey, credential)
}

// CredentialFromContext возвращает учетные данные, если они есть.
func CredentialFromContext(ctx context.Context) (string, bool) {
	cred, ok := ctx.Value(credentialKey).(string)
	return cred, ok && cred != ""
}

// WithOrigin запоминает origin входящего запроса консоли ("https://host:port").
// Используется, когда API_BASE_URL пуст и бэкенд живет на том же origin.
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originKey, origin)
}

// OriginFromContext возвращает origin, сохраненный WithOrigin.
func OriginFromContext(ctx context.Context) (string, bool) {
	origin, ok := ctx.Value(originKey).(string)
	return origin, ok && origin != ""
}
