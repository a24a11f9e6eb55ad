package draft

import (
	"strings"

	"voice-console/internal/domain"
)

// TextDraft - черновик набора текстов "ключ -> сообщение" (приветствия по языкам, слоты IVR).
// Порядок ключей совпадает с порядком записей сервера.
type TextDraft struct {
	upsert OpKind
	remove OpKind
	keys   []string
	values map[string]string
}

func newTextDraft(upsert, remove OpKind) *TextDraft {
	return &TextDraft{upsert: upsert, remove: remove, values: make(map[string]string)}
}

func (d *TextDraft) seed(key, message string) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = message
}

// NewGreetingDraft создает черновик приветствий из записей сервера.
func NewGreetingDraft(greetings []domain.Greeting) *TextDraft {
	d := newTextDraft(OpUpsertGreeting, OpDeleteGreeting)
	for _, g := range greetings {
		d.seed(g.Language, g.Message)
	}
	return d
}

// NewPromptDraft создает черновик слотов IVR из записей сервера.
func NewPromptDraft(prompts []domain.IVRPrompt) *TextDraft {
	d := newTextDraft(OpUpsertPrompt, OpDeletePrompt)
	for _, p := range prompts {
		d.seed(p.Key, p.Message)
	}
	return d
}

// Set меняет значение черновика. Ключи, которых нет среди записей сервера, игнорируются.
func (d *TextDraft) Set(key, message string) bool {
	if _, ok := d.values[key]; !ok {
		return false
	}
	d.values[key] = message
	return true
}

// Apply применяет значения из формы (ключ -> текст), неизвестные ключи пропускаются.
func (d *TextDraft) Apply(values map[string]string) {
	for k, v := range values {
		d.Set(k, v)
	}
}

// Value возвращает текущее значение черновика.
func (d *TextDraft) Value(key string) string {
	return d.values[key]
}

// Keys возвращает известные ключи в порядке сервера.
func (d *TextDraft) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Values возвращает копию значений черновика.
func (d *TextDraft) Values() map[string]string {
	out := make(map[string]string, len(d.values))
	for k, v := range d.values {
		out[k] = v
	}
	return out
}

// SavePlan - по одному upsert на каждый ключ с непустым (после trim) черновиком.
// Пустые значения пропускаются: сброс к умолчанию делается только через ResetPlan.
func (d *TextDraft) SavePlan() []Op {
	var ops []Op
	for _, k := range d.keys {
		msg := strings.TrimSpace(d.values[k])
		if msg == "" {
			continue
		}
		ops = append(ops, Op{Kind: d.upsert, Key: k, Message: msg})
	}
	return ops
}

// ResetPlan - по одному delete на каждый известный ключ, независимо от того, есть ли переопределение.
func (d *TextDraft) ResetPlan() []Op {
	ops := make([]Op, 0, len(d.keys))
	for _, k := range d.keys {
		ops = append(ops, Op{Kind: d.remove, Key: k})
	}
	return ops
}

// Overlay подставляет значения черновика поверх свежих записей сервера.
// Нужен после неудачного сохранения: форма показывает то, что ввел оператор.
func Overlay[T any](d *TextDraft, records []T, key func(T) string, set func(*T, string)) []T {
	out := make([]T, len(records))
	copy(out, records)
	for i := range out {
		if v, ok := d.values[key(out[i])]; ok {
			set(&out[i], v)
		}
	}
	return out
}

// OverlayGreetings - Overlay для приветствий.
func (d *TextDraft) OverlayGreetings(records []domain.Greeting) []domain.Greeting {
	return Overlay(d, records,
		func(g domain.Greeting) string { return g.Language },
		func(g *domain.Greeting, msg string) { g.Message = msg })
}

// OverlayPrompts - Overlay для слотов IVR.
func (d *TextDraft) OverlayPrompts(records []domain.IVRPrompt) []domain.IVRPrompt {
	return Overlay(d, records,
		func(p domain.IVRPrompt) string { return p.Key },
		func(p *domain.IVRPrompt, msg string) { p.Message = msg })
}
