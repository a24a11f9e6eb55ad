package service

import (
	"context"

	"go.uber.org/zap"

	"voice-console/internal/cache"
	"voice-console/internal/draft"
	"voice-console/shared/messaging"
)

// textPanel - общая логика панелей "ключ -> текст" (приветствия, слоты IVR).
type textPanel[T any] struct {
	base
	resource string
	entity   string
	load     func(ctx context.Context) ([]T, error)
	newDraft func([]T) *draft.TextDraft
	overlay  func(*draft.TextDraft, []T) []T
}

// List возвращает записи из кеша сессии или из сервиса конфигурации.
func (p *textPanel[T]) List(ctx context.Context) ([]T, error) {
	return cache.Fetch(ctx, p.cache, sessionID(ctx), p.resource, p.load)
}

// Save сохраняет непустые значения черновика. После записи кеш сбрасывается и записи перечитываются.
// При ошибке записи или чтения значения оператора накладываются поверх свежих записей,
// а если сервис недоступен - поверх последнего известного снимка.
func (p *textPanel[T]) Save(ctx context.Context, values map[string]string) Outcome[T] {
	records, err := p.List(ctx)
	if err != nil {
		out := withSnapshot(ctx, &p.base, p.resource, Outcome[T]{FetchErr: err})
		if out.Stale {
			d := p.newDraft(out.Records)
			d.Apply(values)
			out.Records = p.overlay(d, out.Records)
		}
		return out
	}
	d := p.newDraft(records)
	d.Apply(values)
	ops := d.SavePlan()

	out := p.run(ctx, messaging.ActionUpsert, ops)
	if out.WriteErr != nil || out.Stale {
		out.Records = p.overlay(d, out.Records)
	}
	return out
}

// Reset удаляет переопределения для всех известных ключей, сервис возвращается к значениям по умолчанию.
func (p *textPanel[T]) Reset(ctx context.Context) Outcome[T] {
	records, err := p.List(ctx)
	if err != nil {
		return withSnapshot(ctx, &p.base, p.resource, Outcome[T]{FetchErr: err})
	}
	return p.run(ctx, messaging.ActionReset, p.newDraft(records).ResetPlan())
}

func (p *textPanel[T]) run(ctx context.Context, action string, ops []draft.Op) Outcome[T] {
	out := Outcome[T]{Ops: len(ops)}
	out.WriteErr = p.execute(ctx, action, p.entity, ops)

	out.Records, out.FetchErr = p.List(ctx)
	if out.FetchErr != nil {
		p.logger.Warn("Re-fetch after write failed", zap.String("action", action), zap.Error(out.FetchErr))
		out = withSnapshot(ctx, &p.base, p.resource, out)
	}
	if out.WriteErr == nil && len(ops) > 0 {
		p.publish(ctx, p.entity, action, opKeys(ops))
	}
	return out
}
