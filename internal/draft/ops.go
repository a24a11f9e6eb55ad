// Package draft сводит локальные правки оператора к набору операций записи в сервис конфигурации.
//
// Две стратегии:
//   - перезапись целого значения (приветствия, слоты IVR): TextDraft;
//   - разность множеств (специализации агента): ParseCategories, DiffCategories, SpecializationPlan.
//
// Операции батча выполняются конкурентно (Execute), без отката и без гарантий порядка.
package draft

import (
	"context"
	"fmt"

	"voice-console/internal/client"
)

// OpKind - вид операции записи.
type OpKind string

const (
	OpUpsertGreeting       OpKind = "upsert_greeting"
	OpDeleteGreeting       OpKind = "delete_greeting"
	OpUpsertPrompt         OpKind = "upsert_ivr_prompt"
	OpDeletePrompt         OpKind = "delete_ivr_prompt"
	OpUpdateAgent          OpKind = "update_agent"
	OpAddSpecialization    OpKind = "add_specialization"
	OpRemoveSpecialization OpKind = "remove_specialization"
)

// BaselineProficiency - уровень, с которым добавляются новые специализации (1 = basic).
const BaselineProficiency = 1

// Op - одна операция записи. Заполнены только поля, нужные для Kind.
type Op struct {
	Kind        OpKind
	Key         string // язык приветствия или ключ слота IVR
	Message     string
	AgentID     int64
	Category    string
	Proficiency int
	Patch       client.AgentUpdate
}

// Target возвращает ключ сущности, которую затрагивает операция (для логов и событий).
func (o Op) Target() string {
	switch o.Kind {
	case OpUpdateAgent:
		return fmt.Sprintf("agent:%d", o.AgentID)
	case OpAddSpecialization, OpRemoveSpecialization:
		return fmt.Sprintf("agent:%d/%s", o.AgentID, o.Category)
	default:
		return o.Key
	}
}

// Writer применяет одну операцию.
type Writer interface {
	Apply(ctx context.Context, op Op) error
}

// WriterFunc позволяет использовать функцию как Writer.
type WriterFunc func(ctx context.Context, op Op) error

func (f WriterFunc) Apply(ctx context.Context, op Op) error { return f(ctx, op) }

// APIWriter адаптирует client.ConsoleAPI к Writer: одна операция - один вызов API.
type APIWriter struct {
	API client.ConsoleAPI
}

// NewAPIWriter создает Writer поверх клиента сервиса конфигурации.
func NewAPIWriter(api client.ConsoleAPI) *APIWriter {
	return &APIWriter{API: api}
}

func (w *APIWriter) Apply(ctx context.Context, op Op) error {
	switch op.Kind {
	case OpUpsertGreeting:
		return w.API.UpsertGreeting(ctx, op.Key, op.Message)
	case OpDeleteGreeting:
		return w.API.DeleteGreeting(ctx, op.Key)
	case OpUpsertPrompt:
		return w.API.UpsertIVRPrompt(ctx, op.Key, op.Message)
	case OpDeletePrompt:
		return w.API.DeleteIVRPrompt(ctx, op.Key)
	case OpUpdateAgent:
		return w.API.UpdateAgent(ctx, op.AgentID, op.Patch)
	case OpAddSpecialization:
		return w.API.AddSpecialization(ctx, op.AgentID, op.Category, op.Proficiency)
	case OpRemoveSpecialization:
		return w.API.RemoveSpecialization(ctx, op.AgentID, op.Category)
	}
	return fmt.Errorf("unknown draft operation %q", op.Kind)
}
