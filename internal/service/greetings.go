package service

import (
	"voice-console/internal/cache"
	"voice-console/internal/domain"
	"voice-console/internal/draft"
	"voice-console/internal/panel"
	"voice-console/shared/messaging"
)

// GreetingService - панель приветствий по языкам.
type GreetingService struct {
	textPanel[domain.Greeting]
}

// NewGreetingService создает сервис панели приветствий.
func NewGreetingService(d Deps) *GreetingService {
	return &GreetingService{textPanel[domain.Greeting]{
		base:     newBase(d, "GreetingService", panel.Greetings),
		resource: cache.ResourceGreetings,
		entity:   messaging.EntityGreeting,
		newDraft: draft.NewGreetingDraft,
		load:     d.API.ListGreetings,
		overlay:  (*draft.TextDraft).OverlayGreetings,
	}}
}
