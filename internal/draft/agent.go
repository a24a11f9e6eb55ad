package draft

import (
	"fmt"
	"strings"

	"voice-console/internal/client"
	"voice-console/internal/domain"
	"voice-console/shared/models"
)

// AgentForm - черновик формы агента в том виде, в каком его вводит оператор.
// Телефон хранится двумя полями, категории - одной строкой через запятую.
type AgentForm struct {
	Name        string
	CountryCode string
	LocalNumber string
	Region      string
	IsActive    bool
	IsDefault   bool
	Categories  string

	// KnownCategories - категории, которыми форма была заполнена с сервера. Разность специализаций
	// считается от них, а не от текущего состояния сервера.
	KnownCategories string
	// Seeded - форма пришла с KnownCategories (правка существующего агента).
	Seeded bool
}

// FormFromAgent заполняет форму из записи сервера.
func FormFromAgent(a domain.Agent) AgentForm {
	cc, local := domain.SplitPhone(a.PhoneNumber)
	return AgentForm{
		Name:        a.Name,
		CountryCode: cc,
		LocalNumber: local,
		Region:      a.Region,
		IsActive:    a.IsActive,
		IsDefault:   a.IsDefault,
		Categories:  strings.Join(a.Categories(), ", "),

		KnownCategories: strings.Join(a.Categories(), ", "),
		Seeded:          true,
	}
}

// Phone возвращает номер в формате бэкенда.
func (f AgentForm) Phone() string {
	return domain.JoinPhone(f.CountryCode, f.LocalNumber)
}

func (f AgentForm) name() string   { return strings.TrimSpace(f.Name) }
func (f AgentForm) region() string { return strings.ToUpper(strings.TrimSpace(f.Region)) }

// Validate проверяет обязательные поля. Форматы номера и региона проверяет бэкенд.
func (f AgentForm) Validate() error {
	var missing []string
	if f.name() == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(f.LocalNumber) == "" {
		missing = append(missing, "phone number")
	}
	if f.region() == "" {
		missing = append(missing, "region")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", models.ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

// CreatePayload - тело создания агента. Специализации передаются как разобранные категории.
func (f AgentForm) CreatePayload() client.AgentCreate {
	cats := ParseCategories(f.Categories)
	if cats == nil {
		cats = []string{}
	}
	return client.AgentCreate{
		Name:            f.name(),
		PhoneNumber:     f.Phone(),
		Region:          f.region(),
		IsDefault:       f.IsDefault,
		Specializations: cats,
	}
}

// AgentPatch возвращает частичное обновление только с измененными полями.
func AgentPatch(server domain.Agent, f AgentForm) client.AgentUpdate {
	var u client.AgentUpdate
	if name := f.name(); name != server.Name {
		u.Name = &name
	}
	if phone := f.Phone(); phone != server.PhoneNumber {
		u.PhoneNumber = &phone
	}
	if region := f.region(); region != server.Region {
		u.Region = &region
	}
	if f.IsActive != server.IsActive {
		active := f.IsActive
		u.IsActive = &active
	}
	if f.IsDefault != server.IsDefault {
		def := f.IsDefault
		u.IsDefault = &def
	}
	return u
}

// AgentPlan - операции для сохранения формы существующего агента:
// partial update (если что-то изменилось) плюс add/remove специализаций.
// Разность категорий считается от набора, которым была заполнена форма; категории, которые
// оператор не видел, не трогаются. Добавление уже существующей и удаление уже отсутствующей
// на сервере категории пропускаются.
func AgentPlan(server domain.Agent, f AgentForm) []Op {
	var ops []Op
	if patch := AgentPatch(server, f); !patch.IsEmpty() {
		ops = append(ops, Op{Kind: OpUpdateAgent, AgentID: server.ID, Patch: patch})
	}

	current := server.Categories()
	known := current
	if f.Seeded {
		known = ParseCategories(f.KnownCategories)
	}
	onServer := make(map[string]bool, len(current))
	for _, c := range current {
		onServer[c] = true
	}
	for _, op := range SpecializationPlan(server.ID, known, f.Categories) {
		switch {
		case op.Kind == OpAddSpecialization && onServer[op.Category]:
			continue
		case op.Kind == OpRemoveSpecialization && !onServer[op.Category]:
			continue
		}
		ops = append(ops, op)
	}
	return ops
}
