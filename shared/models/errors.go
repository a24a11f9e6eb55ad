package models

import "errors"

// Общие ошибки консоли
var (
	// Ресурсы
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input data")

	// Аутентификация и сессии
	// ErrInvalidCredentials намеренно не уточняет, что именно неверно: логин или пароль.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrSessionNotFound    = errors.New("session not found or expired")

	// Транспорт до сервиса конфигурации
	ErrTransport = errors.New("configuration service is unreachable")

	// Панели
	ErrOperationInProgress = errors.New("another operation is already in progress for this panel")
)
