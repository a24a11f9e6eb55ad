// Package testbackend - in-memory двойник сервиса конфигурации (/admin/*) для тестов.
// Повторяет контракт настоящего бэкенда: значения по умолчанию для приветствий и слотов IVR,
// мягкое удаление агентов и правил, Basic-аутентификацию.
package testbackend

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"voice-console/internal/domain"
)

// Учетные данные, которые бэкенд принимает по умолчанию.
const (
	DefaultUsername = "admin"
	DefaultPassword = "secret"
)

// DefaultGreetings - приветствия, которые отдаются, пока нет переопределения.
var DefaultGreetings = []Default{
	{Key: "hi-IN", Message: "Namaste, welcome to Jadau."},
	{Key: "en-IN", Message: "Namaste, welcome to Jadau."},
}

// DefaultIVRPrompts - тексты слотов IVR по умолчанию.
var DefaultIVRPrompts = []Default{
	{Key: domain.PromptMenu, Message: "Please choose one of the following options: General Inquiry, Try Near You, or Price Request."},
	{Key: domain.PromptReprompt, Message: "I did not catch your response. Please say General Inquiry, Try Near You, or Price Request."},
	{Key: domain.PromptInvalid, Message: "Sorry, I didn't understand that. Please try again."},
	{Key: domain.PromptNamePrompt, Message: "May I have your name please, so that we can provide you with more specific assistance?"},
	{Key: domain.PromptAssistTypePrompt, Message: "Would you like assistance with a specific product or a product category?"},
	{Key: domain.PromptProductIDPrompt, Message: "Please provide the Product ID for the item you're referring to."},
	{Key: domain.PromptCategoryPrompt, Message: "Kindly mention the category name you're looking for."},
	{Key: domain.PromptPriceProductPrompt, Message: "Please provide the Product ID so I can check the pricing details for you."},
	{Key: domain.PromptConfirmation, Message: "Thank you. While I connect you to our agent for further assistance, please briefly describe your query."},
	{Key: domain.PromptConnecting, Message: "Please wait while we connect you to our expert."},
	{Key: domain.PromptNoAgent, Message: "Sorry, we cannot connect your call right now. Please try again later."},
}

// Default - пара ключ/сообщение по умолчанию.
type Default struct {
	Key     string
	Message string
}

// Call - записанный запрос к бэкенду.
type Call struct {
	Method        string
	Path          string
	Body          string
	Authorization string
}

type failure struct {
	status int
	body   string
}

type override struct {
	id        int64
	message   string
	updatedAt time.Time
}

type correction struct {
	domain.Correction
	active bool
}

// Backend - состояние фейкового сервиса. Безопасен для конкурентного использования.
type Backend struct {
	Username string
	Password string

	mu          sync.Mutex
	nextID      int64
	greetings   map[string]override
	prompts     map[string]override
	agents      []*domain.Agent
	corrections []*correction
	lastRefresh time.Time
	calls       []Call
	failures    map[string]failure

	engine *gin.Engine
}

// New создает бэкенд с настройками по умолчанию и без переопределений.
func New() *Backend {
	gin.SetMode(gin.TestMode)
	b := &Backend{
		Username:  DefaultUsername,
		Password:  DefaultPassword,
		nextID:    1,
		greetings: make(map[string]override),
		prompts:   make(map[string]override),
		failures:  make(map[string]failure),
	}
	b.engine = b.routes()
	return b
}

// Handler возвращает http.Handler для httptest.NewServer.
func (b *Backend) Handler() http.Handler {
	return b.engine
}

// Calls возвращает копию журнала запросов.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Call, len(b.calls))
	copy(out, b.calls)
	return out
}

// CallsMatching возвращает записанные запросы с данным методом и префиксом пути.
func (b *Backend) CallsMatching(method, pathPrefix string) []Call {
	var out []Call
	for _, c := range b.Calls() {
		if c.Method == method && strings.HasPrefix(c.Path, pathPrefix) {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls очищает журнал запросов.
func (b *Backend) ResetCalls() {
	b.mu.Lock()
	b.calls = nil
	b.mu.Unlock()
}

// Fail заставляет запросы method+path отвечать status с телом body, пока не вызван ClearFailures.
func (b *Backend) Fail(method, path string, status int, body string) {
	b.mu.Lock()
	b.failures[method+" "+path] = failure{status: status, body: body}
	b.mu.Unlock()
}

// ClearFailures снимает все внедренные ошибки.
func (b *Backend) ClearFailures() {
	b.mu.Lock()
	b.failures = make(map[string]failure)
	b.mu.Unlock()
}

// SeedAgent добавляет агента напрямую, минуя API. Возвращает присвоенный ID.
func (b *Backend) SeedAgent(a domain.Agent) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	a.ID = b.allocID()
	a.Region = strings.ToUpper(a.Region)
	specs := make([]domain.Specialization, len(a.Specializations))
	copy(specs, a.Specializations)
	a.Specializations = specs
	b.agents = append(b.agents, &a)
	return a.ID
}

// SeedCorrection добавляет активное правило исправления.
func (b *Backend) SeedCorrection(wrong, correct string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.allocID()
	b.corrections = append(b.corrections, &correction{
		Correction: domain.Correction{ID: id, WrongWord: strings.ToLower(wrong), CorrectWord: strings.ToLower(correct)},
		active:     true,
	})
	return id
}

// Agent возвращает снимок агента по ID.
func (b *Backend) Agent(id int64) (domain.Agent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if a := b.findAgent(id); a != nil {
		return cloneAgent(a), true
	}
	return domain.Agent{}, false
}

func (b *Backend) allocID() int64 {
	id := b.nextID
	b.nextID++
	return id
}

func (b *Backend) routes() *gin.Engine {
	r := gin.New()
	r.Use(b.record(), b.inject())

	r.POST("/admin/login", b.login)

	admin := r.Group("/admin", b.requireBasicAuth())
	{
		admin.GET("/greetings", b.listGreetings)
		admin.GET("/greetings/:language", b.getGreeting)
		admin.PUT("/greetings/:language", b.upsertGreeting)
		admin.DELETE("/greetings/:language", b.deleteGreeting)

		admin.GET("/ivr-prompts", b.listPrompts)
		admin.GET("/ivr-prompts/:key", b.getPrompt)
		admin.PUT("/ivr-prompts/:key", b.upsertPrompt)
		admin.DELETE("/ivr-prompts/:key", b.deletePrompt)

		admin.GET("/agents", b.listAgents)
		admin.POST("/agents", b.createAgent)
		admin.GET("/agents/:id", b.getAgent)
		admin.PUT("/agents/:id", b.updateAgent)
		admin.DELETE("/agents/:id", b.deleteAgent)
		admin.POST("/agents/:id/specializations", b.addSpecialization)
		admin.DELETE("/agents/:id/specializations/:category", b.removeSpecialization)

		admin.GET("/corrections", b.listCorrections)
		admin.POST("/corrections", b.createCorrection)
		admin.DELETE("/corrections/:id", b.deleteCorrection)

		admin.POST("/refresh-cache", b.refreshCache)
		admin.GET("/cache-status", b.cacheStatus)
	}
	return r
}

// record пишет каждый запрос в журнал до проверки авторизации и внедренных ошибок.
func (b *Backend) record() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}
		b.mu.Lock()
		b.calls = append(b.calls, Call{
			Method:        c.Request.Method,
			Path:          c.Request.URL.Path,
			Body:          string(body),
			Authorization: c.GetHeader("Authorization"),
		})
		b.mu.Unlock()
		c.Next()
	}
}

func (b *Backend) inject() gin.HandlerFunc {
	return func(c *gin.Context) {
		b.mu.Lock()
		f, ok := b.failures[c.Request.Method+" "+c.Request.URL.Path]
		b.mu.Unlock()
		if ok {
			c.Data(f.status, "application/json", []byte(f.body))
			c.Abort()
			return
		}
		c.Next()
	}
}

func (b *Backend) requireBasicAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		want := "Basic " + base64.StdEncoding.EncodeToString([]byte(b.Username+":"+b.Password))
		if c.GetHeader("Authorization") != want {
			detail(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		c.Next()
	}
}

func detail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

// naive форматирует время так, как его сериализует FastAPI для naive datetime.
func naive(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.999999")
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		detail(c, http.StatusUnprocessableEntity, "id must be an integer")
		return 0, false
	}
	return id, true
}

type messageBody struct {
	Message *string `json:"message"`
}

func bindMessage(c *gin.Context) (string, bool) {
	var body messageBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Message == nil {
		detail(c, http.StatusUnprocessableEntity, "field required: message")
		return "", false
	}
	return *body.Message, true
}

// --- Login ---

func (b *Backend) login(c *gin.Context) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		detail(c, http.StatusUnprocessableEntity, "invalid login payload")
		return
	}
	if body.Username != b.Username || body.Password != b.Password {
		detail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "username": body.Username})
}

// --- Greetings / IVR prompts ---

func textRecord(keyField, key, defaultMsg string, o override, ok bool) gin.H {
	if ok {
		return gin.H{"id": o.id, keyField: key, "message": o.message, "updated_at": naive(o.updatedAt), "is_override": true}
	}
	return gin.H{"id": nil, keyField: key, "message": defaultMsg, "updated_at": nil, "is_override": false}
}

func defaultFor(defaults []Default, key string) (string, bool) {
	for _, d := range defaults {
		if d.Key == key {
			return d.Message, true
		}
	}
	return "", false
}

// listText повторяет порядок бэкенда: сначала ключи по умолчанию, затем остальные переопределения по алфавиту.
func listText(keyField string, defaults []Default, overrides map[string]override) []gin.H {
	out := make([]gin.H, 0, len(defaults)+len(overrides))
	seen := make(map[string]bool, len(defaults))
	for _, d := range defaults {
		o, ok := overrides[d.Key]
		out = append(out, textRecord(keyField, d.Key, d.Message, o, ok))
		seen[d.Key] = true
	}
	var extra []string
	for k := range overrides {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		out = append(out, textRecord(keyField, k, "", overrides[k], true))
	}
	return out
}

func (b *Backend) listGreetings(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c.JSON(http.StatusOK, listText("language", DefaultGreetings, b.greetings))
}

func (b *Backend) getGreeting(c *gin.Context) {
	lang := c.Param("language")
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.greetings[lang]
	def, hasDefault := defaultFor(DefaultGreetings, lang)
	if !ok && !hasDefault {
		detail(c, http.StatusNotFound, "Greeting not found")
		return
	}
	c.JSON(http.StatusOK, textRecord("language", lang, def, o, ok))
}

func (b *Backend) upsertGreeting(c *gin.Context) {
	lang := c.Param("language")
	msg, ok := bindMessage(c)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	o, exists := b.greetings[lang]
	if !exists {
		o.id = b.allocID()
	}
	o.message = msg
	o.updatedAt = time.Now()
	b.greetings[lang] = o
	c.JSON(http.StatusOK, gin.H{"status": "upserted", "language": lang, "message": msg, "is_override": true})
}

func (b *Backend) deleteGreeting(c *gin.Context) {
	lang := c.Param("language")
	b.mu.Lock()
	defer b.mu.Unlock()
	def, hasDefault := defaultFor(DefaultGreetings, lang)
	if _, ok := b.greetings[lang]; ok {
		delete(b.greetings, lang)
	} else if !hasDefault {
		detail(c, http.StatusNotFound, "Greeting not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "language": lang, "is_override": false, "message": def})
}

func (b *Backend) listPrompts(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c.JSON(http.StatusOK, listText("key", DefaultIVRPrompts, b.prompts))
}

func (b *Backend) getPrompt(c *gin.Context) {
	key := c.Param("key")
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.prompts[key]
	def, hasDefault := defaultFor(DefaultIVRPrompts, key)
	if !ok && !hasDefault {
		detail(c, http.StatusNotFound, "IVR prompt not found")
		return
	}
	c.JSON(http.StatusOK, textRecord("key", key, def, o, ok))
}

func (b *Backend) upsertPrompt(c *gin.Context) {
	key := c.Param("key")
	if _, known := defaultFor(DefaultIVRPrompts, key); !known {
		detail(c, http.StatusBadRequest, "Invalid IVR prompt key")
		return
	}
	msg, ok := bindMessage(c)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	o, exists := b.prompts[key]
	if !exists {
		o.id = b.allocID()
	}
	o.message = msg
	o.updatedAt = time.Now()
	b.prompts[key] = o
	c.JSON(http.StatusOK, gin.H{"status": "upserted", "key": key, "message": msg, "is_override": true})
}

func (b *Backend) deletePrompt(c *gin.Context) {
	key := c.Param("key")
	def, known := defaultFor(DefaultIVRPrompts, key)
	if !known {
		detail(c, http.StatusBadRequest, "Invalid IVR prompt key")
		return
	}
	b.mu.Lock()
	delete(b.prompts, key)
	b.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "key": key, "is_override": false, "message": def})
}

// --- Agents ---

func cloneAgent(a *domain.Agent) domain.Agent {
	out := *a
	out.Specializations = make([]domain.Specialization, len(a.Specializations))
	copy(out.Specializations, a.Specializations)
	return out
}

func (b *Backend) findAgent(id int64) *domain.Agent {
	for _, a := range b.agents {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (b *Backend) phoneTaken(phone string, except int64) bool {
	for _, a := range b.agents {
		if a.PhoneNumber == phone && a.ID != except {
			return true
		}
	}
	return false
}

func (b *Backend) listAgents(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Agent, 0, len(b.agents))
	for _, a := range b.agents {
		out = append(out, cloneAgent(a))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Region != out[j].Region {
			return out[i].Region < out[j].Region
		}
		return out[i].Name < out[j].Name
	})
	c.JSON(http.StatusOK, out)
}

func (b *Backend) getAgent(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	a := b.findAgent(id)
	if a == nil {
		detail(c, http.StatusNotFound, "Agent not found")
		return
	}
	c.JSON(http.StatusOK, cloneAgent(a))
}

func (b *Backend) createAgent(c *gin.Context) {
	var body struct {
		Name            *string  `json:"name"`
		PhoneNumber     *string  `json:"phone_number"`
		Region          *string  `json:"region"`
		IsDefault       bool     `json:"is_default"`
		Specializations []string `json:"specializations"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Name == nil || body.PhoneNumber == nil || body.Region == nil {
		detail(c, http.StatusUnprocessableEntity, "fields required: name, phone_number, region")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.phoneTaken(*body.PhoneNumber, 0) {
		detail(c, http.StatusConflict, fmt.Sprintf("Agent with phone number %s already exists", *body.PhoneNumber))
		return
	}
	a := &domain.Agent{
		ID:              b.allocID(),
		Name:            *body.Name,
		PhoneNumber:     *body.PhoneNumber,
		Region:          strings.ToUpper(*body.Region),
		IsActive:        true,
		IsDefault:       body.IsDefault,
		Specializations: []domain.Specialization{},
	}
	for _, cat := range body.Specializations {
		a.Specializations = append(a.Specializations, domain.Specialization{Category: strings.ToLower(cat), Proficiency: 1})
	}
	b.agents = append(b.agents, a)
	c.JSON(http.StatusOK, gin.H{"status": "created", "agent_id": a.ID})
}

func (b *Backend) updateAgent(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body struct {
		Name        *string `json:"name"`
		PhoneNumber *string `json:"phone_number"`
		Region      *string `json:"region"`
		IsActive    *bool   `json:"is_active"`
		IsDefault   *bool   `json:"is_default"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		detail(c, http.StatusUnprocessableEntity, "invalid agent payload")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	a := b.findAgent(id)
	if a == nil {
		detail(c, http.StatusNotFound, "Agent not found")
		return
	}
	if body.PhoneNumber != nil && b.phoneTaken(*body.PhoneNumber, id) {
		detail(c, http.StatusConflict, fmt.Sprintf("Agent with phone number %s already exists", *body.PhoneNumber))
		return
	}
	if body.Name != nil {
		a.Name = *body.Name
	}
	if body.PhoneNumber != nil {
		a.PhoneNumber = *body.PhoneNumber
	}
	if body.Region != nil {
		a.Region = strings.ToUpper(*body.Region)
	}
	if body.IsActive != nil {
		a.IsActive = *body.IsActive
	}
	if body.IsDefault != nil {
		a.IsDefault = *body.IsDefault
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated", "agent_id": id})
}

func (b *Backend) deleteAgent(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	a := b.findAgent(id)
	if a == nil {
		detail(c, http.StatusNotFound, "Agent not found")
		return
	}
	a.IsActive = false
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "agent_id": id})
}

func (b *Backend) addSpecialization(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body struct {
		Category         string `json:"category"`
		ProficiencyLevel *int   `json:"proficiency_level"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Category == "" {
		detail(c, http.StatusUnprocessableEntity, "field required: category")
		return
	}
	level := 1
	if body.ProficiencyLevel != nil {
		level = *body.ProficiencyLevel
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	a := b.findAgent(id)
	if a == nil {
		detail(c, http.StatusNotFound, "Agent not found")
		return
	}
	cat := strings.ToLower(body.Category)
	for i := range a.Specializations {
		if a.Specializations[i].Category == cat {
			a.Specializations[i].Proficiency = level
			c.JSON(http.StatusOK, gin.H{"status": "added", "category": body.Category})
			return
		}
	}
	a.Specializations = append(a.Specializations, domain.Specialization{Category: cat, Proficiency: level})
	c.JSON(http.StatusOK, gin.H{"status": "added", "category": body.Category})
}

func (b *Backend) removeSpecialization(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	cat := strings.ToLower(c.Param("category"))
	b.mu.Lock()
	defer b.mu.Unlock()
	a := b.findAgent(id)
	if a != nil {
		for i := range a.Specializations {
			if a.Specializations[i].Category == cat {
				a.Specializations = append(a.Specializations[:i], a.Specializations[i+1:]...)
				c.JSON(http.StatusOK, gin.H{"status": "removed", "category": c.Param("category")})
				return
			}
		}
	}
	detail(c, http.StatusNotFound, "Specialization not found")
}

// --- Corrections ---

func (b *Backend) listCorrections(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Correction, 0, len(b.corrections))
	for _, cr := range b.corrections {
		if cr.active {
			out = append(out, cr.Correction)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (b *Backend) createCorrection(c *gin.Context) {
	var body struct {
		WrongWord   string `json:"wrong_word"`
		CorrectWord string `json:"correct_word"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.WrongWord == "" || body.CorrectWord == "" {
		detail(c, http.StatusUnprocessableEntity, "fields required: wrong_word, correct_word")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.corrections = append(b.corrections, &correction{
		Correction: domain.Correction{
			ID:          b.allocID(),
			WrongWord:   strings.ToLower(body.WrongWord),
			CorrectWord: strings.ToLower(body.CorrectWord),
		},
		active: true,
	})
	c.JSON(http.StatusOK, gin.H{"status": "created", "wrong_word": body.WrongWord})
}

func (b *Backend) deleteCorrection(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, cr := range b.corrections {
		if cr.ID == id {
			cr.active = false
			c.JSON(http.StatusOK, gin.H{"status": "deleted"})
			return
		}
	}
	detail(c, http.StatusNotFound, "Correction not found")
}

// --- Cache ---

func (b *Backend) refreshCache(c *gin.Context) {
	b.mu.Lock()
	b.lastRefresh = time.Now()
	b.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"status": "refreshed"})
}

func (b *Backend) cacheStatus(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	active := 0
	for _, cr := range b.corrections {
		if cr.active {
			active++
		}
	}
	last := "None"
	if !b.lastRefresh.IsZero() {
		last = b.lastRefresh.UTC().Format("2006-01-02 15:04:05.999999")
	}
	c.JSON(http.StatusOK, domain.CacheStatus{
		GreetingsCount:   len(listText("language", DefaultGreetings, b.greetings)),
		AgentsCount:      len(b.agents),
		CorrectionsCount: active,
		LastRefresh:      last,
	})
}
