package service

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"voice-console/internal/cache"
	"voice-console/internal/client"
	"voice-console/internal/domain"
	"voice-console/internal/draft"
	"voice-console/internal/testbackend"
	"voice-console/shared/messaging"
	"voice-console/shared/models"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishConfigChange(ctx context.Context, event messaging.ConfigChangeEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockPublisher) Close() error {
	return m.Called().Error(0)
}

type fixture struct {
	backend   *testbackend.Backend
	deps      Deps
	publisher *mockPublisher
	ctx       context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := testbackend.New()
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	api, err := client.NewConsoleClient(srv.URL, 0, zap.NewNop())
	require.NoError(t, err)
	q, err := cache.New(1000, time.Minute, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(q.Close)

	pub := &mockPublisher{}
	pub.On("PublishConfigChange", mock.Anything, mock.Anything).Return(nil).Maybe()

	cred := base64.StdEncoding.EncodeToString([]byte(testbackend.DefaultUsername + ":" + testbackend.DefaultPassword))
	ctx := client.WithCredential(context.Background(), cred)
	ctx = context.WithValue(ctx, models.SessionIDContextKey, "session-1")
	ctx = context.WithValue(ctx, models.UsernameContextKey, testbackend.DefaultUsername)

	return &fixture{
		backend:   backend,
		publisher: pub,
		ctx:       ctx,
		deps: Deps{
			API:       api,
			Cache:     q,
			Publisher: pub,
			Source:    "console-test",
			Logger:    zap.NewNop(),
		},
	}
}

func (f *fixture) published() []messaging.ConfigChangeEvent {
	var out []messaging.ConfigChangeEvent
	for _, call := range f.publisher.Calls {
		if call.Method == "PublishConfigChange" {
			out = append(out, call.Arguments.Get(1).(messaging.ConfigChangeEvent))
		}
	}
	return out
}

func TestGreetingService_SaveWelcomeForAllLanguages(t *testing.T) {
	f := newFixture(t)
	svc := NewGreetingService(f.deps)

	before, err := svc.List(f.ctx)
	require.NoError(t, err)
	require.Len(t, before, len(testbackend.DefaultGreetings))

	values := make(map[string]string)
	for _, g := range before {
		assert.False(t, g.IsOverride, g.Language)
		values[g.Language] = "Welcome to Jadau"
	}

	out := svc.Save(f.ctx, values)
	require.True(t, out.OK(), "write: %v, fetch: %v", out.WriteErr, out.FetchErr)
	assert.Equal(t, len(before), out.Ops)
	for _, g := range out.Records {
		assert.Equal(t, "Welcome to Jadau", g.Message, g.Language)
		assert.True(t, g.IsOverride, g.Language)
		assert.NotNil(t, g.UpdatedAt, g.Language)
	}

	for _, call := range f.backend.CallsMatching(http.MethodPut, "/admin/greetings/") {
		assert.JSONEq(t, `{"message":"Welcome to Jadau"}`, call.Body)
	}

	events := f.published()
	require.Len(t, events, 1)
	assert.Equal(t, messaging.EntityGreeting, events[0].Entity)
	assert.Equal(t, messaging.ActionUpsert, events[0].Action)
	assert.Equal(t, testbackend.DefaultUsername, events[0].Actor)
	assert.Equal(t, "console-test", events[0].Source)
	assert.ElementsMatch(t, []string{"hi-IN", "en-IN"}, events[0].Keys)
}

func TestGreetingService_SaveSkipsBlankAndUnknownKeys(t *testing.T) {
	f := newFixture(t)
	svc := NewGreetingService(f.deps)

	out := svc.Save(f.ctx, map[string]string{"hi-IN": "   ", "fr-FR": "Bonjour"})
	require.True(t, out.OK())
	assert.Zero(t, out.Ops)
	assert.Empty(t, f.backend.CallsMatching(http.MethodPut, "/admin/greetings/"))
	assert.Empty(t, f.published(), "nothing written, nothing published")
}

func TestGreetingService_SaveTrimsMessage(t *testing.T) {
	f := newFixture(t)
	svc := NewGreetingService(f.deps)

	out := svc.Save(f.ctx, map[string]string{"en-IN": "  Hello there  "})
	require.True(t, out.OK())

	calls := f.backend.CallsMatching(http.MethodPut, "/admin/greetings/en-IN")
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"message":"Hello there"}`, calls[0].Body)
}

func TestGreetingService_FailedSaveKeepsDraft(t *testing.T) {
	f := newFixture(t)
	svc := NewGreetingService(f.deps)
	f.backend.Fail(http.MethodPut, "/admin/greetings/en-IN", http.StatusInternalServerError, `{"detail":"db down"}`)

	out := svc.Save(f.ctx, map[string]string{"hi-IN": "Swagat hai", "en-IN": "Welcome"})
	require.Error(t, out.WriteErr)
	require.NoError(t, out.FetchErr)

	var apiErr *client.APIError
	require.True(t, errors.As(out.WriteErr, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)

	byLang := make(map[string]domain.Greeting)
	for _, g := range out.Records {
		byLang[g.Language] = g
	}
	assert.Equal(t, "Welcome", byLang["en-IN"].Message, "draft is shown over server truth")
	assert.False(t, byLang["en-IN"].IsOverride)
	assert.Equal(t, "Swagat hai", byLang["hi-IN"].Message)
	assert.True(t, byLang["hi-IN"].IsOverride, "applied writes stay applied")
	assert.Empty(t, f.published())
}

func TestGreetingService_UnreachableBackendKeepsDraft(t *testing.T) {
	f := newFixture(t)
	svc := NewGreetingService(f.deps)
	_, err := svc.List(f.ctx)
	require.NoError(t, err)

	f.backend.Fail(http.MethodPut, "/admin/greetings/hi-IN", http.StatusServiceUnavailable, "")
	f.backend.Fail(http.MethodGet, "/admin/greetings", http.StatusServiceUnavailable, "")

	for attempt := 1; attempt <= 2; attempt++ {
		out := svc.Save(f.ctx, map[string]string{"hi-IN": "Draft typed by operator"})
		require.Error(t, out.FetchErr, "attempt %d", attempt)
		require.True(t, out.Stale, "attempt %d", attempt)

		byLang := make(map[string]domain.Greeting)
		for _, g := range out.Records {
			byLang[g.Language] = g
		}
		require.Len(t, byLang, len(testbackend.DefaultGreetings))
		assert.Equal(t, "Draft typed by operator", byLang["hi-IN"].Message, "attempt %d", attempt)
		assert.Equal(t, "Namaste, welcome to Jadau.", byLang["en-IN"].Message, "attempt %d", attempt)
	}
	assert.Len(t, f.backend.CallsMatching(http.MethodPut, "/admin/greetings/hi-IN"), 1,
		"second attempt cannot read the server and writes nothing")

	out := svc.Reset(f.ctx)
	assert.True(t, out.Stale)
	assert.Len(t, out.Records, len(testbackend.DefaultGreetings))
}

func TestGreetingService_FetchFailureSkipsWrites(t *testing.T) {
	f := newFixture(t)
	svc := NewGreetingService(f.deps)
	f.backend.Fail(http.MethodGet, "/admin/greetings", http.StatusServiceUnavailable, "")

	out := svc.Save(f.ctx, map[string]string{"hi-IN": "x"})
	require.Error(t, out.FetchErr)
	assert.EqualError(t, out.FetchErr, "request failed with status 503")
	assert.Empty(t, f.backend.CallsMatching(http.MethodPut, "/admin/"))
}

func TestGreetingService_ListIsCachedUntilWrite(t *testing.T) {
	f := newFixture(t)
	svc := NewGreetingService(f.deps)

	_, err := svc.List(f.ctx)
	require.NoError(t, err)
	_, err = svc.List(f.ctx)
	require.NoError(t, err)
	assert.Len(t, f.backend.CallsMatching(http.MethodGet, "/admin/greetings"), 1)

	svc.Save(f.ctx, map[string]string{"hi-IN": "Namaste"})
	assert.Len(t, f.backend.CallsMatching(http.MethodGet, "/admin/greetings"), 2, "save re-fetches")
}

func TestPromptService_SaveOverridesEveryKey(t *testing.T) {
	f := newFixture(t)
	svc := NewPromptService(f.deps)

	before, err := svc.List(f.ctx)
	require.NoError(t, err)
	values := make(map[string]string)
	for _, p := range before {
		values[p.Key] = "Custom " + p.Key
	}

	out := svc.Save(f.ctx, values)
	require.True(t, out.OK())
	assert.Equal(t, len(domain.KnownPromptKeys), out.Ops)
	for _, p := range out.Records {
		assert.True(t, p.IsOverride, p.Key)
		assert.Equal(t, "Custom "+p.Key, p.Message)
	}
}

func TestPromptService_ResetWithoutOverridesLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	svc := NewPromptService(f.deps)

	before, err := svc.List(f.ctx)
	require.NoError(t, err)

	out := svc.Reset(f.ctx)
	require.True(t, out.OK(), "write: %v", out.WriteErr)
	assert.Len(t, f.backend.CallsMatching(http.MethodDelete, "/admin/ivr-prompts/"), len(before),
		"reset deletes every known key")

	require.Len(t, out.Records, len(before))
	for i := range before {
		assert.Equal(t, before[i].Key, out.Records[i].Key)
		assert.Equal(t, before[i].Message, out.Records[i].Message)
		assert.Equal(t, before[i].IsOverride, out.Records[i].IsOverride)
	}
}

func TestPromptService_ResetRevertsOverrides(t *testing.T) {
	f := newFixture(t)
	svc := NewPromptService(f.deps)

	require.True(t, svc.Save(f.ctx, map[string]string{domain.PromptMenu: "Press one"}).OK())
	out := svc.Reset(f.ctx)
	require.True(t, out.OK())

	for _, p := range out.Records {
		assert.False(t, p.IsOverride, p.Key)
		if p.Key == domain.PromptMenu {
			assert.Equal(t, testbackend.DefaultIVRPrompts[0].Message, p.Message)
		}
	}
	events := f.published()
	require.Len(t, events, 2)
	assert.Equal(t, messaging.ActionReset, events[1].Action)
}

func TestAgentService_UpdateReconcilesCategories(t *testing.T) {
	f := newFixture(t)
	id := f.backend.SeedAgent(domain.Agent{
		Name:        "Asha",
		PhoneNumber: "+919876543210",
		Region:      "IN",
		IsActive:    true,
		Specializations: []domain.Specialization{
			{Category: "a", Proficiency: 1},
			{Category: "b", Proficiency: 3},
		},
	})
	svc := NewAgentService(f.deps)
	agents, err := svc.List(f.ctx)
	require.NoError(t, err)
	require.Len(t, agents, 1)

	form := draft.FormFromAgent(agents[0])
	form.Categories = "B, C"
	out := svc.Update(f.ctx, id, form)
	require.True(t, out.OK(), "write: %v", out.WriteErr)
	assert.Equal(t, 2, out.Ops)

	assert.Empty(t, f.backend.CallsMatching(http.MethodPut, "/admin/agents/"), "no field changed")
	adds := f.backend.CallsMatching(http.MethodPost, "/admin/agents/1/specializations")
	require.Len(t, adds, 1)
	assert.JSONEq(t, `{"category":"c","proficiency_level":1}`, adds[0].Body)
	removes := f.backend.CallsMatching(http.MethodDelete, "/admin/agents/1/specializations/")
	require.Len(t, removes, 1)
	assert.Equal(t, "/admin/agents/1/specializations/a", removes[0].Path)

	got, ok := f.backend.Agent(id)
	require.True(t, ok)
	assert.Equal(t, []domain.Specialization{{Category: "b", Proficiency: 3}, {Category: "c", Proficiency: 1}},
		got.Specializations, "kept category keeps its proficiency")
	assert.Equal(t, []string{"b", "c"}, out.Records[0].Categories())
}

func TestAgentService_UpdateSendsOnlyChangedFields(t *testing.T) {
	f := newFixture(t)
	id := f.backend.SeedAgent(domain.Agent{Name: "Ravi", PhoneNumber: "+11234567890", Region: "US", IsActive: true})
	svc := NewAgentService(f.deps)

	out := svc.Update(f.ctx, id, draft.AgentForm{
		Name: "Ravi", CountryCode: "+1", LocalNumber: "1234567890", Region: "in", IsActive: true,
	})
	require.True(t, out.OK())

	calls := f.backend.CallsMatching(http.MethodPut, "/admin/agents/")
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"region":"IN"}`, calls[0].Body)
}

func TestAgentService_FailedCreateReportsBackendMessage(t *testing.T) {
	f := newFixture(t)
	f.backend.SeedAgent(domain.Agent{Name: "Asha", PhoneNumber: "+919876543210", Region: "IN", IsActive: true})
	svc := NewAgentService(f.deps)

	form := draft.AgentForm{Name: "Other", CountryCode: "+91", LocalNumber: "9876543210", Region: "IN", Categories: "polki"}
	out, id := svc.Create(f.ctx, form)
	require.Error(t, out.WriteErr)
	assert.Zero(t, id)
	assert.Contains(t, out.WriteErr.Error(), "already exists")
	assert.Len(t, out.Records, 1)
	assert.Empty(t, f.published())
}

func TestAgentService_FailedCreateAndFetchKeepLastKnownAgents(t *testing.T) {
	f := newFixture(t)
	f.backend.SeedAgent(domain.Agent{Name: "Asha", PhoneNumber: "+919876543210", Region: "IN", IsActive: true})
	svc := NewAgentService(f.deps)
	_, err := svc.List(f.ctx)
	require.NoError(t, err)

	f.backend.Fail(http.MethodPost, "/admin/agents", http.StatusBadGateway, "")
	f.backend.Fail(http.MethodGet, "/admin/agents", http.StatusBadGateway, "")

	out, id := svc.Create(f.ctx, draft.AgentForm{Name: "Ravi", CountryCode: "+91", LocalNumber: "9000000002", Region: "IN"})
	assert.Zero(t, id)
	require.Error(t, out.WriteErr)
	require.Error(t, out.FetchErr)
	assert.True(t, out.Stale)
	require.Len(t, out.Records, 1)
	assert.Equal(t, "Asha", out.Records[0].Name)
}

func TestAgentService_UpdateLeavesUnseenCategories(t *testing.T) {
	f := newFixture(t)
	id := f.backend.SeedAgent(domain.Agent{
		Name: "Meera", PhoneNumber: "+919812345678", Region: "IN", IsActive: true,
		Specializations: []domain.Specialization{{Category: "a", Proficiency: 1}, {Category: "b", Proficiency: 1}},
	})
	svc := NewAgentService(f.deps)
	agents, err := svc.List(f.ctx)
	require.NoError(t, err)
	form := draft.FormFromAgent(agents[0])

	// Категория появилась на сервере уже после рендера формы.
	require.NoError(t, f.deps.API.AddSpecialization(f.ctx, id, "d", 1))

	form.Categories = "b, c"
	out := svc.Update(f.ctx, id, form)
	require.True(t, out.OK(), "write: %v", out.WriteErr)

	removes := f.backend.CallsMatching(http.MethodDelete, "/admin/agents/")
	require.Len(t, removes, 1)
	assert.Equal(t, "/admin/agents/1/specializations/a", removes[0].Path)

	got, ok := f.backend.Agent(id)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"b", "c", "d"}, got.Categories())
}

func TestWrites_RefreshDashboardCounts(t *testing.T) {
	f := newFixture(t)
	dashboard := NewDashboardService(f.deps)
	agents := NewAgentService(f.deps)

	status, err := dashboard.Status(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, status.AgentsCount)

	NewPromptService(f.deps).Save(f.ctx, map[string]string{domain.PromptMenu: "Press one"})
	_, err = dashboard.Status(f.ctx)
	require.NoError(t, err)
	assert.Len(t, f.backend.CallsMatching(http.MethodGet, "/admin/cache-status"), 1, "IVR prompts are not counted")

	out, _ := agents.Create(f.ctx, draft.AgentForm{Name: "Ravi", CountryCode: "+91", LocalNumber: "9000000003", Region: "IN"})
	require.True(t, out.OK(), "write: %v", out.WriteErr)

	status, err = dashboard.Status(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.AgentsCount)
	assert.Len(t, f.backend.CallsMatching(http.MethodGet, "/admin/cache-status"), 2)
}

func TestAgentService_CreateValidatesBeforeCalling(t *testing.T) {
	f := newFixture(t)
	svc := NewAgentService(f.deps)

	out, _ := svc.Create(f.ctx, draft.AgentForm{Name: "  ", Region: "IN"})
	require.ErrorIs(t, out.WriteErr, models.ErrInvalidInput)
	assert.Contains(t, out.WriteErr.Error(), "name, phone number required")
	assert.Empty(t, f.backend.CallsMatching(http.MethodPost, "/admin/agents"))
}

func TestAgentService_CreateDeleteAndReactivate(t *testing.T) {
	f := newFixture(t)
	svc := NewAgentService(f.deps)

	out, id := svc.Create(f.ctx, draft.AgentForm{
		Name: "Meera", CountryCode: "+91", LocalNumber: "9000000001", Region: "in", Categories: "Necklace, necklace , Polki",
	})
	require.True(t, out.OK(), "write: %v", out.WriteErr)
	require.NotZero(t, id)

	created := f.backend.CallsMatching(http.MethodPost, "/admin/agents")
	require.Len(t, created, 1)
	assert.JSONEq(t, `{"name":"Meera","phone_number":"+919000000001","region":"IN","is_default":false,"specializations":["necklace","polki"]}`,
		created[0].Body)

	out = svc.Delete(f.ctx, id)
	require.True(t, out.OK())
	require.Len(t, out.Records, 1)
	assert.False(t, out.Records[0].IsActive, "delete is soft")

	out = svc.SetActive(f.ctx, id, true)
	require.True(t, out.OK())
	assert.True(t, out.Records[0].IsActive)

	var actions []string
	for _, e := range f.published() {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{messaging.ActionCreate, messaging.ActionDelete, messaging.ActionUpdate}, actions)
}

func TestAgentService_UpdateUnknownAgent(t *testing.T) {
	f := newFixture(t)
	svc := NewAgentService(f.deps)

	out := svc.Update(f.ctx, 99, draft.AgentForm{Name: "X", LocalNumber: "1234567890", Region: "US"})
	assert.ErrorIs(t, out.WriteErr, models.ErrNotFound)
	assert.NoError(t, out.FetchErr)
}

func TestCorrectionService(t *testing.T) {
	f := newFixture(t)
	svc := NewCorrectionService(f.deps)

	out := svc.Create(f.ctx, " nekless ", "Necklace")
	require.True(t, out.OK())
	require.Len(t, out.Records, 1)
	assert.Equal(t, "nekless", out.Records[0].WrongWord)

	out = svc.Create(f.ctx, "", "x")
	assert.ErrorIs(t, out.WriteErr, models.ErrInvalidInput)
	assert.Len(t, out.Records, 1)

	out = svc.Delete(f.ctx, out.Records[0].ID)
	require.True(t, out.OK())
	assert.Empty(t, out.Records)
}

func TestDashboardService_Refresh(t *testing.T) {
	f := newFixture(t)
	svc := NewDashboardService(f.deps)

	status, err := svc.Status(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "None", status.LastRefresh)

	res := svc.RefreshBackendCache(f.ctx)
	require.NoError(t, res.WriteErr)
	require.NoError(t, res.FetchErr)
	assert.NotEqual(t, "None", res.Status.LastRefresh, "status is re-fetched after refresh")
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	f := newFixture(t)
	pub := &mockPublisher{}
	pub.On("PublishConfigChange", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()
	f.deps.Publisher = pub

	out := NewGreetingService(f.deps).Save(f.ctx, map[string]string{"hi-IN": "Namaste"})
	assert.True(t, out.OK())
	pub.AssertExpectations(t)
}

func TestCacheInvalidator_DropsOtherSessions(t *testing.T) {
	f := newFixture(t)
	svc := NewGreetingService(f.deps)

	_, err := svc.List(f.ctx)
	require.NoError(t, err)

	inv := NewCacheInvalidator(f.deps.Cache, zap.NewNop())
	inv.HandleConfigChange(messaging.ConfigChangeEvent{Entity: messaging.EntityIVRPrompt, Source: "console-other"})
	_, err = svc.List(f.ctx)
	require.NoError(t, err)
	assert.Len(t, f.backend.CallsMatching(http.MethodGet, "/admin/greetings"), 1, "unrelated entity keeps cache")

	inv.HandleConfigChange(messaging.ConfigChangeEvent{Entity: messaging.EntityGreeting, Source: "console-other"})
	_, err = svc.List(f.ctx)
	require.NoError(t, err)
	assert.Len(t, f.backend.CallsMatching(http.MethodGet, "/admin/greetings"), 2)
}
