package handler

import (
	"voice-console/internal/domain"
	"voice-console/internal/draft"
	"voice-console/internal/panel"
)

// pageData - данные полной страницы (layout.html + страница).
type pageData struct {
	Title    string
	Active   string
	Username string
	Flash    *FlashMessage

	// Panel == nil - страница рендерится с оболочкой "loading", данные догружает htmx.
	Panel *panelView
	Cache *cacheView

	// Форма входа
	Error        string
	FormUsername string
}

// panelView - данные фрагмента "panel".
type panelView struct {
	Name        panel.Name
	State       panel.State
	Error       string
	SignInAgain bool
	Notice      *panel.Notice

	Greetings []domain.Greeting
	Prompts   []domain.IVRPrompt

	Groups       []agentGroup
	NewAgent     draft.AgentForm
	NewAgentOpen bool

	Corrections   []domain.Correction
	NewCorrection correctionForm
}

type agentGroup struct {
	Region string
	Rows   []agentRow
}

// agentRow - строка агента и форма правки. Form - значения сервера либо ввод оператора после ошибки.
type agentRow struct {
	Agent domain.Agent
	Form  draft.AgentForm
	Open  bool
}

type correctionForm struct {
	WrongWord   string
	CorrectWord string
}

// cacheView - данные фрагмента "cache_status".
type cacheView struct {
	Status *domain.CacheStatus
	Error  string
	Notice *panel.Notice
}

func readyPanel(name panel.Name) *panelView {
	return &panelView{Name: name, State: panel.StateReady}
}

// errorPanel - чтение не удалось: форма не рендерится.
func errorPanel(name panel.Name, err error) *panelView {
	return &panelView{
		Name:        name,
		State:       panel.StateError,
		Error:       userMessage(err),
		SignInAgain: needsSignIn(err),
	}
}

func notice(kind panel.NoticeKind, message string) *panel.Notice {
	return &panel.Notice{Kind: kind, Message: message}
}

// buildAgentGroups группирует агентов по региону. Для агента editID форма заполняется
// из edit (ввод оператора) и остается раскрытой.
func buildAgentGroups(agents []domain.Agent, editID int64, edit *draft.AgentForm) []agentGroup {
	groups := domain.GroupByRegion(agents)
	out := make([]agentGroup, 0, len(groups))
	for _, g := range groups {
		rows := make([]agentRow, 0, len(g.Agents))
		for _, a := range g.Agents {
			row := agentRow{Agent: a, Form: draft.FormFromAgent(a)}
			if edit != nil && a.ID == editID {
				row.Form = *edit
				row.Open = true
			}
			rows = append(rows, row)
		}
		out = append(out, agentGroup{Region: g.Region, Rows: rows})
	}
	return out
}
