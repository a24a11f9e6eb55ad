package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPhone(t *testing.T) {
	cases := []struct {
		in, cc, local string
	}{
		{"+919876543210", "+91", "9876543210"},
		{"+14155550123", "+1", "4155550123"},
		{"9876543210", "", "9876543210"},
		{"12345", "", "12345"},
		{"", "", ""},
		{" +919876543210 ", "+91", "9876543210"},
	}
	for _, tc := range cases {
		cc, local := SplitPhone(tc.in)
		assert.Equal(t, tc.cc, cc, "country code for %q", tc.in)
		assert.Equal(t, tc.local, local, "local number for %q", tc.in)
	}
}

func TestJoinPhone_RoundTripsSplit(t *testing.T) {
	assert.Equal(t, "+919876543210", JoinPhone(" +91", "9876543210 "))
	cc, local := SplitPhone(JoinPhone("+44", "2071234567"))
	assert.Equal(t, "+44", cc)
	assert.Equal(t, "2071234567", local)
}

func TestGroupByRegion(t *testing.T) {
	agents := []Agent{
		{ID: 1, Name: "Asha", Region: "IN"},
		{ID: 2, Name: "Bob", Region: "US"},
		{ID: 3, Name: "Chitra", Region: "IN"},
		{ID: 4, Name: "Dee", Region: "GLOBAL"},
	}
	groups := GroupByRegion(agents)
	require.Len(t, groups, 3)
	assert.Equal(t, "GLOBAL", groups[0].Region)
	assert.Equal(t, "IN", groups[1].Region)
	assert.Equal(t, "US", groups[2].Region)
	require.Len(t, groups[1].Agents, 2)
	assert.Equal(t, int64(1), groups[1].Agents[0].ID, "input order is preserved inside a group")
	assert.Equal(t, int64(3), groups[1].Agents[1].ID)

	assert.Empty(t, GroupByRegion(nil))
}

func TestTimestamp_UnmarshalNaiveAndRFC3339(t *testing.T) {
	var payload struct {
		A *Timestamp `json:"a"`
		B *Timestamp `json:"b"`
		C *Timestamp `json:"c"`
	}
	raw := `{"a":"2025-01-02T03:04:05.123456","b":"2025-01-02T03:04:05Z","c":null}`
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	require.NotNil(t, payload.A)
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 123456000, time.UTC), payload.A.Time)
	require.NotNil(t, payload.B)
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), payload.B.Time)
	assert.Nil(t, payload.C)
	assert.Equal(t, "2025-01-02 03:04 UTC", payload.A.String())

	var bad Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &bad))
}

func TestPromptLabel(t *testing.T) {
	assert.Equal(t, "Main menu", PromptLabel(PromptMenu))
	assert.Equal(t, "holiday_notice", PromptLabel("holiday_notice"))
	assert.True(t, IsKnownPromptKey(PromptNoAgent))
	assert.False(t, IsKnownPromptKey("holiday_notice"))
	assert.Len(t, KnownPromptKeys, 11)
}

func TestSortPrompts(t *testing.T) {
	prompts := []IVRPrompt{
		{Key: PromptNoAgent},
		{Key: "holiday_notice"},
		{Key: PromptMenu},
		{Key: "after_hours"},
		{Key: PromptConnecting},
	}
	SortPrompts(prompts)

	keys := make([]string, len(prompts))
	for i, p := range prompts {
		keys[i] = p.Key
	}
	assert.Equal(t, []string{PromptMenu, PromptConnecting, PromptNoAgent, "after_hours", "holiday_notice"}, keys)
}

func TestAgentCategories(t *testing.T) {
	a := Agent{Specializations: []Specialization{{Category: "necklace", Proficiency: 2}, {Category: "polki", Proficiency: 1}}}
	assert.Equal(t, []string{"necklace", "polki"}, a.Categories())
	assert.Empty(t, Agent{}.Categories())
}
