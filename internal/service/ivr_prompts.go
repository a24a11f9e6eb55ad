package service

import (
	"context"

	"voice-console/internal/cache"
	"voice-console/internal/client"
	"voice-console/internal/domain"
	"voice-console/internal/draft"
	"voice-console/internal/panel"
	"voice-console/shared/messaging"
)

// PromptService - панель текстов IVR.
type PromptService struct {
	textPanel[domain.IVRPrompt]
}

// NewPromptService создает сервис панели слотов IVR.
func NewPromptService(d Deps) *PromptService {
	return &PromptService{textPanel[domain.IVRPrompt]{
		base:     newBase(d, "PromptService", panel.IVRPrompts),
		resource: cache.ResourceIVRPrompts,
		entity:   messaging.EntityIVRPrompt,
		newDraft: draft.NewPromptDraft,
		load:     sortedPrompts(d.API),
		overlay:  (*draft.TextDraft).OverlayPrompts,
	}}
}

// sortedPrompts читает слоты и упорядочивает их по ходу звонка.
func sortedPrompts(api client.ConsoleAPI) func(context.Context) ([]domain.IVRPrompt, error) {
	return func(ctx context.Context) ([]domain.IVRPrompt, error) {
		prompts, err := api.ListIVRPrompts(ctx)
		if err != nil {
			return nil, err
		}
		domain.SortPrompts(prompts)
		return prompts, nil
	}
}
