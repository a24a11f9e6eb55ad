package handler

import (
	"context"
	"errors"
	"strings"

	"voice-console/internal/client"
	"voice-console/shared/models"
)

const (
	msgInvalidCredentials = "Invalid username or password."
	msgUnreachable        = "Could not reach the configuration service. Check the connection and try again."
	msgTimeout            = "The configuration service did not respond in time. Try again."
	msgSessionExpired     = "Your session has expired. Sign in again."
	msgRejected           = "The configuration service rejected your credentials. Sign in again."
	msgGone               = "The record no longer exists. It may have been deleted in another session."
	msgBusy               = "Another change to this panel is still being applied. Wait for it to finish."
	msgUnexpected         = "Something went wrong. Try again."
)

// userMessage переводит ошибку сервиса в текст для оператора.
// Тело ответа бэкенда показывается как есть (например, "Agent with phone ... already exists").
func userMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *client.APIError
	switch {
	case errors.Is(err, models.ErrInvalidCredentials):
		return msgInvalidCredentials
	case errors.Is(err, context.DeadlineExceeded):
		return msgTimeout
	case errors.Is(err, models.ErrTransport), errors.Is(err, client.ErrNoOrigin):
		return msgUnreachable
	case errors.Is(err, models.ErrSessionNotFound):
		return msgSessionExpired
	case errors.Is(err, models.ErrUnauthorized):
		return msgRejected
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, models.ErrInvalidInput):
		msg := strings.TrimPrefix(err.Error(), models.ErrInvalidInput.Error()+": ")
		return upperFirst(msg) + "."
	case errors.Is(err, models.ErrNotFound):
		return msgGone
	case errors.Is(err, models.ErrOperationInProgress):
		return msgBusy
	}
	return msgUnexpected
}

// needsSignIn - бэкенд отклонил credential сессии.
func needsSignIn(err error) bool {
	return errors.Is(err, models.ErrUnauthorized) || errors.Is(err, models.ErrSessionNotFound)
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
