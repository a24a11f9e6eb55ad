package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"voice-console/internal/domain"
	"voice-console/internal/draft"
	"voice-console/internal/panel"
	"voice-console/internal/service"
	"voice-console/shared/models"
)

const msgNoChanges = "No changes to apply."

// shell - страница панели с оболочкой "loading"; данные догружает htmx через /panel.
func (h *ConsoleHandler) shell(c *gin.Context, title string, name panel.Name) {
	c.HTML(http.StatusOK, "panel.html", h.page(c, title, string(name)))
}

func (h *ConsoleHandler) page(c *gin.Context, title, active string) pageData {
	return pageData{
		Title:    title,
		Active:   active,
		Username: username(c),
		Flash:    h.popFlash(c),
	}
}

// renderPanel отдает фрагмент для htmx или полную страницу для обычной отправки формы.
// Фрагменты всегда идут со статусом 200: htmx не подставляет ответы 4xx/5xx.
func (h *ConsoleHandler) renderPanel(c *gin.Context, title string, v *panelView) {
	if isHTMX(c) {
		c.HTML(http.StatusOK, "panel", v)
		return
	}
	data := h.page(c, title, string(v.Name))
	data.Panel = v
	c.HTML(http.StatusOK, "panel.html", data)
}

// begin занимает панель на время записи. false - панель занята другой записью этой сессии.
func (h *ConsoleHandler) begin(c *gin.Context, p panel.Name, a panel.Action) (func(), bool) {
	release, running, err := h.tracker.Begin(sessionIDOf(c), p, a)
	if err != nil {
		panelBusyTotal.WithLabelValues(string(p)).Inc()
		requestLogger(h.logger, c).Info("Write rejected, panel busy",
			zap.String("panel", string(p)),
			zap.String("action", string(a)),
			zap.String("running", string(running)),
		)
		return nil, false
	}
	return release, true
}

// outcomeView строит панель по результату записи. Ошибка чтения без снимка - состояние error.
// Со снимком (Stale) панель остается ready с вводом оператора и ошибкой в уведомлении.
func outcomeView[T any](name panel.Name, out service.Outcome[T], fill func(*panelView, []T), success string) *panelView {
	if out.FetchErr != nil && !out.Stale {
		v := errorPanel(name, out.FetchErr)
		if out.WriteErr != nil {
			v.Error = joinMessages(userMessage(out.WriteErr), v.Error)
			v.SignInAgain = v.SignInAgain || needsSignIn(out.WriteErr)
		}
		return v
	}
	v := readyPanel(name)
	fill(v, out.Records)
	if out.Stale {
		msg := userMessage(out.FetchErr)
		switch {
		case out.WriteErr != nil:
			msg = joinMessages(userMessage(out.WriteErr), msg)
		case out.Ops > 0:
			msg = joinMessages(success, msg)
		}
		v.Notice = notice(panel.NoticeError, msg)
		v.SignInAgain = needsSignIn(out.WriteErr) || needsSignIn(out.FetchErr)
		return v
	}
	switch {
	case out.WriteErr != nil:
		v.Notice = notice(panel.NoticeError, userMessage(out.WriteErr))
		v.SignInAgain = needsSignIn(out.WriteErr)
	case out.Ops == 0:
		v.Notice = notice(panel.NoticeInfo, msgNoChanges)
	default:
		v.Notice = notice(panel.NoticeSuccess, success)
	}
	return v
}

// joinMessages склеивает два сообщения, одинаковые показываются один раз.
func joinMessages(first, second string) string {
	if first == second {
		return first
	}
	return first + " " + second
}

// listView - панель по результату чтения.
func listView[T any](name panel.Name, records []T, err error, fill func(*panelView, []T)) *panelView {
	if err != nil {
		return errorPanel(name, err)
	}
	v := readyPanel(name)
	fill(v, records)
	return v
}

// busyView - текущее состояние панели с уведомлением о незавершенной записи.
func busyView[T any](ctx context.Context, name panel.Name, list func(context.Context) ([]T, error), fill func(*panelView, []T)) *panelView {
	records, err := list(ctx)
	v := listView(name, records, err, fill)
	if err == nil {
		v.Notice = notice(panel.NoticeInfo, msgBusy)
	}
	return v
}

// --- Текстовые панели (приветствия, слоты IVR) ---

type textPanelService[T any] interface {
	List(ctx context.Context) ([]T, error)
	Save(ctx context.Context, values map[string]string) service.Outcome[T]
	Reset(ctx context.Context) service.Outcome[T]
}

type textPanelHandler[T any] struct {
	h     *ConsoleHandler
	name  panel.Name
	title string
	svc   textPanelService[T]
	fill  func(*panelView, []T)
}

func (t *textPanelHandler[T]) register(g *gin.RouterGroup) {
	g.GET("", t.showPage)
	g.GET("/panel", t.fragment)
	g.POST("/save", t.save)
	g.POST("/reset", t.reset)
}

func (t *textPanelHandler[T]) showPage(c *gin.Context) {
	t.h.shell(c, t.title, t.name)
}

func (t *textPanelHandler[T]) fragment(c *gin.Context) {
	records, err := t.svc.List(c.Request.Context())
	t.h.renderPanel(c, t.title, listView(t.name, records, err, t.fill))
}

// save принимает поля message[<key>]. Пустые значения и неизвестные ключи пропускаются.
func (t *textPanelHandler[T]) save(c *gin.Context) {
	release, ok := t.h.begin(c, t.name, panel.ActionSave)
	if !ok {
		t.h.renderPanel(c, t.title, busyView(c.Request.Context(), t.name, t.svc.List, t.fill))
		return
	}
	defer release()

	out := t.svc.Save(c.Request.Context(), c.PostFormMap("message"))
	t.h.renderPanel(c, t.title, outcomeView(t.name, out, t.fill, t.title+" saved."))
}

func (t *textPanelHandler[T]) reset(c *gin.Context) {
	release, ok := t.h.begin(c, t.name, panel.ActionReset)
	if !ok {
		t.h.renderPanel(c, t.title, busyView(c.Request.Context(), t.name, t.svc.List, t.fill))
		return
	}
	defer release()

	out := t.svc.Reset(c.Request.Context())
	t.h.renderPanel(c, t.title, outcomeView(t.name, out, t.fill, t.title+" reset to defaults."))
}

// --- Агенты ---

const agentsTitle = "Agents"

func fillAgents(v *panelView, agents []domain.Agent) {
	v.Groups = buildAgentGroups(agents, 0, nil)
}

// agentFormFrom читает форму агента. Чекбоксы приходят только отмеченными.
// known_categories есть только в форме правки: набор категорий, с которым она была отрендерена.
func agentFormFrom(c *gin.Context) draft.AgentForm {
	known, seeded := c.GetPostForm("known_categories")
	return draft.AgentForm{
		Name:            c.PostForm("name"),
		CountryCode:     c.PostForm("country_code"),
		LocalNumber:     c.PostForm("local_number"),
		Region:          c.PostForm("region"),
		Categories:      c.PostForm("categories"),
		IsDefault:       c.PostForm("is_default") == "true",
		IsActive:        c.PostForm("is_active") == "true",
		KnownCategories: known,
		Seeded:          seeded,
	}
}

func agentID(c *gin.Context) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: agent id %q", models.ErrNotFound, raw)
	}
	return id, nil
}

func (h *ConsoleHandler) showAgents(c *gin.Context) {
	h.shell(c, agentsTitle, panel.Agents)
}

func (h *ConsoleHandler) agentsPanel(c *gin.Context) {
	agents, err := h.agents.List(c.Request.Context())
	h.renderPanel(c, agentsTitle, listView(panel.Agents, agents, err, fillAgents))
}

func (h *ConsoleHandler) agentsBusy(c *gin.Context) {
	h.renderPanel(c, agentsTitle, busyView(c.Request.Context(), panel.Agents, h.agents.List, fillAgents))
}

// createAgent создает агента. При ошибке форма создания остается раскрытой с вводом оператора.
func (h *ConsoleHandler) createAgent(c *gin.Context) {
	release, ok := h.begin(c, panel.Agents, panel.ActionCreate)
	if !ok {
		h.agentsBusy(c)
		return
	}
	defer release()

	form := agentFormFrom(c)
	out, id := h.agents.Create(c.Request.Context(), form)
	v := outcomeView(panel.Agents, out, fillAgents, fmt.Sprintf("Agent %s created.", strings.TrimSpace(form.Name)))
	if out.WriteErr != nil && v.State == panel.StateReady {
		v.NewAgent = form
		v.NewAgentOpen = true
	}
	if out.WriteErr == nil {
		requestLogger(h.logger, c).Info("Agent created", zap.Int64("agentID", id))
	}
	h.renderPanel(c, agentsTitle, v)
}

// updateAgent сохраняет форму правки. При ошибке форма строки остается раскрытой с вводом оператора.
func (h *ConsoleHandler) updateAgent(c *gin.Context) {
	release, ok := h.begin(c, panel.Agents, panel.ActionSave)
	if !ok {
		h.agentsBusy(c)
		return
	}
	defer release()

	id, err := agentID(c)
	if err != nil {
		h.agentNotFound(c, err)
		return
	}
	form := agentFormFrom(c)
	out := h.agents.Update(c.Request.Context(), id, form)
	v := outcomeView(panel.Agents, out, fillAgents, fmt.Sprintf("Agent %s saved.", strings.TrimSpace(form.Name)))
	if out.WriteErr != nil && v.State == panel.StateReady {
		v.Groups = buildAgentGroups(out.Records, id, &form)
	}
	h.renderPanel(c, agentsTitle, v)
}

// deleteAgent - мягкое удаление, агент остается в списке неактивным.
func (h *ConsoleHandler) deleteAgent(c *gin.Context) {
	release, ok := h.begin(c, panel.Agents, panel.ActionDelete)
	if !ok {
		h.agentsBusy(c)
		return
	}
	defer release()

	id, err := agentID(c)
	if err != nil {
		h.agentNotFound(c, err)
		return
	}
	out := h.agents.Delete(c.Request.Context(), id)
	h.renderPanel(c, agentsTitle, outcomeView(panel.Agents, out, fillAgents, "Agent deactivated."))
}

func (h *ConsoleHandler) activateAgent(c *gin.Context) {
	release, ok := h.begin(c, panel.Agents, panel.ActionSave)
	if !ok {
		h.agentsBusy(c)
		return
	}
	defer release()

	id, err := agentID(c)
	if err != nil {
		h.agentNotFound(c, err)
		return
	}
	out := h.agents.SetActive(c.Request.Context(), id, true)
	h.renderPanel(c, agentsTitle, outcomeView(panel.Agents, out, fillAgents, "Agent activated."))
}

func (h *ConsoleHandler) agentNotFound(c *gin.Context, err error) {
	agents, listErr := h.agents.List(c.Request.Context())
	v := listView(panel.Agents, agents, listErr, fillAgents)
	if listErr == nil {
		v.Notice = notice(panel.NoticeError, userMessage(err))
	}
	h.renderPanel(c, agentsTitle, v)
}

// --- Исправления STT ---

const correctionsTitle = "Corrections"

func fillCorrections(v *panelView, corrections []domain.Correction) {
	v.Corrections = corrections
}

func (h *ConsoleHandler) showCorrections(c *gin.Context) {
	h.shell(c, correctionsTitle, panel.Corrections)
}

func (h *ConsoleHandler) correctionsPanel(c *gin.Context) {
	corrections, err := h.corrections.List(c.Request.Context())
	h.renderPanel(c, correctionsTitle, listView(panel.Corrections, corrections, err, fillCorrections))
}

func (h *ConsoleHandler) correctionsBusy(c *gin.Context) {
	h.renderPanel(c, correctionsTitle, busyView(c.Request.Context(), panel.Corrections, h.corrections.List, fillCorrections))
}

func (h *ConsoleHandler) createCorrection(c *gin.Context) {
	release, ok := h.begin(c, panel.Corrections, panel.ActionCreate)
	if !ok {
		h.correctionsBusy(c)
		return
	}
	defer release()

	form := correctionForm{WrongWord: c.PostForm("wrong_word"), CorrectWord: c.PostForm("correct_word")}
	out := h.corrections.Create(c.Request.Context(), form.WrongWord, form.CorrectWord)
	v := outcomeView(panel.Corrections, out, fillCorrections, "Correction added.")
	if out.WriteErr != nil {
		v.NewCorrection = form
	}
	h.renderPanel(c, correctionsTitle, v)
}

func (h *ConsoleHandler) deleteCorrection(c *gin.Context) {
	release, ok := h.begin(c, panel.Corrections, panel.ActionDelete)
	if !ok {
		h.correctionsBusy(c)
		return
	}
	defer release()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		corrections, listErr := h.corrections.List(c.Request.Context())
		v := listView(panel.Corrections, corrections, listErr, fillCorrections)
		if listErr == nil {
			v.Notice = notice(panel.NoticeError, msgGone)
		}
		h.renderPanel(c, correctionsTitle, v)
		return
	}
	out := h.corrections.Delete(c.Request.Context(), id)
	h.renderPanel(c, correctionsTitle, outcomeView(panel.Corrections, out, fillCorrections, "Correction deleted."))
}

// --- Дашборд ---

func (h *ConsoleHandler) showDashboard(c *gin.Context) {
	status, err := h.dashboard.Status(c.Request.Context())
	data := h.page(c, "Dashboard", string(panel.Dashboard))
	data.Cache = &cacheView{Status: status, Error: userMessage(err)}
	c.HTML(http.StatusOK, "dashboard.html", data)
}

// refreshCache просит бэкенд перечитать конфигурацию. Без htmx - редирект на дашборд с flash.
func (h *ConsoleHandler) refreshCache(c *gin.Context) {
	ctx := c.Request.Context()
	view := &cacheView{}

	release, ok := h.begin(c, panel.Dashboard, panel.ActionRefresh)
	if !ok {
		status, err := h.dashboard.Status(ctx)
		view.Status, view.Error = status, userMessage(err)
		view.Notice = notice(panel.NoticeInfo, msgBusy)
	} else {
		res := h.dashboard.RefreshBackendCache(ctx)
		release()
		view.Status, view.Error = res.Status, userMessage(res.FetchErr)
		if res.WriteErr != nil {
			view.Notice = notice(panel.NoticeError, userMessage(res.WriteErr))
		} else {
			view.Notice = notice(panel.NoticeSuccess, "Backend cache refreshed.")
		}
	}

	if isHTMX(c) {
		c.HTML(http.StatusOK, "cache_status", view)
		return
	}
	h.setFlash(c, string(view.Notice.Kind), view.Notice.Message)
	c.Redirect(http.StatusSeeOther, "/console")
}
