package client

import (
	"fmt"
	"net/http"
	"strings"

	"voice-console/shared/models"
)

// APIError - ответ бэкенда с кодом вне 2xx.
type APIError struct {
	Status  int
	Message string
}

func newAPIError(status int, body []byte) *APIError {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = fmt.Sprintf("request failed with status %d", status)
	}
	return &APIError{Status: status, Message: msg}
}

func (e *APIError) Error() string {
	return e.Message
}

// Unwrap позволяет проверять типовые статусы через errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return models.ErrUnauthorized
	case http.StatusNotFound:
		return models.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return models.ErrInvalidInput
	}
	return nil
}
