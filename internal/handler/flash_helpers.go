package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	flashCookieName = "console_flash"
	flashCookieTTL  = 10 * time.Second // Короткое время жизни куки
)

// FlashMessage хранит тип и текст сообщения для следующей страницы (после редиректа).
type FlashMessage struct {
	Type    string `json:"type"` // success, error, info
	Message string `json:"message"`
}

// setFlash устанавливает подписанную куку с flash-сообщением (HMAC-SHA256 + Base64).
func (h *ConsoleHandler) setFlash(c *gin.Context, msgType, message string) {
	jsonData, err := json.Marshal(FlashMessage{Type: msgType, Message: message})
	if err != nil {
		h.logger.Error("Failed to marshal flash message", zap.Error(err))
		return
	}

	mac := hmac.New(sha256.New, h.flashSecret)
	mac.Write(jsonData)
	signedData := append(mac.Sum(nil), jsonData...)

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     flashCookieName,
		Value:    base64.URLEncoding.EncodeToString(signedData),
		MaxAge:   int(flashCookieTTL.Seconds()),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash читает, проверяет и удаляет куку с flash-сообщением.
// Поврежденная или чужая кука молча отбрасывается.
func (h *ConsoleHandler) popFlash(c *gin.Context) *FlashMessage {
	flash, err := h.readFlash(c)
	if err != nil {
		h.logger.Warn("Dropping invalid flash cookie", zap.Error(err))
	}
	return flash
}

func (h *ConsoleHandler) readFlash(c *gin.Context) (*FlashMessage, error) {
	cookie, err := c.Cookie(flashCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get flash cookie: %w", err)
	}

	// Удаляем куку сразу после чтения
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		MaxAge:   -1,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	signedData, err := base64.URLEncoding.DecodeString(cookie)
	if err != nil {
		return nil, fmt.Errorf("failed to decode flash cookie: %w", err)
	}
	if len(signedData) < sha256.Size {
		return nil, errors.New("invalid flash cookie length")
	}

	receivedSig := signedData[:sha256.Size]
	jsonData := signedData[sha256.Size:]

	mac := hmac.New(sha256.New, h.flashSecret)
	mac.Write(jsonData)
	if !hmac.Equal(receivedSig, mac.Sum(nil)) {
		return nil, errors.New("invalid flash cookie signature")
	}

	var flash FlashMessage
	if err := json.Unmarshal(jsonData, &flash); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flash message: %w", err)
	}
	return &flash, nil
}
