package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikhilKumarMandal/multi-agent-system/checkpoint"
	"github.com/NikhilKumarMandal/multi-agent-system/core"
	"github.com/NikhilKumarMandal/multi-agent-system/internal/testutil"
	"github.com/NikhilKumarMandal/multi-agent-system/model"
	"github.com/NikhilKumarMandal/multi-agent-system/tool"
)

func fixedNow() time.Time { return time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC) }

func toolNames(defs []model.ToolDefinition) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Name
	}
	return out
}

func TestNew_RequiresGateway(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrConfig))
}

func TestNew_Wiring(t *testing.T) {
	a, err := New(model.NewScriptedGateway())
	require.NoError(t, err)

	assert.Equal(t, SupervisorName, a.Supervisor.Name())
	assert.Equal(t, []string{ScheduleEventTool, ManageEmailTool, LookupContactsTool}, toolNames(a.Supervisor.Tools()))
	assert.Equal(t, []string{CreateCalendarEventTool, GetAvailableTimeSlotsTool}, toolNames(a.Calendar.Tools()))
	assert.Equal(t, []string{SendEmailTool}, toolNames(a.Email.Tools()))
	assert.Equal(t, []string{GetContactsTool}, toolNames(a.Contacts.Tools()))

	for _, d := range a.Supervisor.Tools() {
		props := d.Parameters["properties"].(map[string]any)
		assert.Contains(t, props, "request", d.Name)
	}
}

func TestTurn_ScheduleThenEmail(t *testing.T) {
	ctx := context.Background()

	supervisor := model.NewScriptedGateway(
		model.CallTools(model.Call("call_1", ScheduleEventTool, map[string]any{"request": "design review tomorrow at 2pm"})),
		model.Answer("Scheduled your design review for tomorrow at 2pm."),
	)
	calendar := model.NewScriptedGateway(
		model.CallTools(model.Call("c1", CreateCalendarEventTool, map[string]any{
			"title":     "Design review",
			"startTime": "2026-10-20T14:00:00",
			"endTime":   "2026-10-20T15:00:00",
			"attendees": []string{},
		})),
		model.Answer("Design review scheduled for 2026-10-20 14:00."),
	)
	email := model.NewScriptedGateway()

	store := checkpoint.NewInMemoryStore()
	a, err := NewWithGateways(Gateways{Supervisor: supervisor, Calendar: calendar, Email: email}, func(o *Options) {
		o.Store = store
		o.Now = fixedNow
	})
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()

	res, err := a.Turn(ctx, "t1", "Schedule a design review tomorrow at 2pm")
	require.NoError(t, err)
	assert.Equal(t, "Scheduled your design review for tomorrow at 2pm.", res.Answer)

	saved, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, saved, 4)
	assert.Equal(t, []core.Role{core.RoleUser, core.RoleAssistant, core.RoleTool, core.RoleAssistant}, testutil.Roles(saved))
	assert.Equal(t, "call_1", saved[2].ToolCallID)
	assert.Equal(t, "Design review scheduled for 2026-10-20 14:00.", saved[2].Content)

	// The sub-run is isolated: a fresh history holding only the request.
	calReqs := calendar.Requests()
	require.Len(t, calReqs, 2)
	require.Len(t, calReqs[0].History, 1)
	assert.Equal(t, "design review tomorrow at 2pm", calReqs[0].History[0].Content)
	assert.Equal(t, CalendarAgentPrompt, calReqs[0].SystemPrompt)
	tm := testutil.ToolMessages(calReqs[1].History)
	require.Len(t, tm, 1)
	assert.Equal(t, "Event created: Design review from 2026-10-20T14:00:00 to 2026-10-20T15:00:00 with 0 attendees", tm[0].Content)

	assert.Contains(t, supervisor.Requests()[0].SystemPrompt, "Today is Monday, October 19, 2026.")

	supervisor.Push(
		model.CallTools(model.Call("call_2", ManageEmailTool, map[string]any{"request": "remind the attendees about the review"})),
		model.Answer("Sent the reminder."),
	)
	email.Push(model.Answer("Email sent to the attendees."))

	res, err = a.Turn(ctx, "t1", "Now email them a reminder")
	require.NoError(t, err)
	assert.Equal(t, "Sent the reminder.", res.Answer)

	reqs := supervisor.Requests()
	require.Len(t, reqs, 4)
	turn2 := reqs[2].History
	require.Len(t, turn2, 5)
	assert.Equal(t, "Schedule a design review tomorrow at 2pm", turn2[0].Content)
	assert.Equal(t, "Scheduled your design review for tomorrow at 2pm.", turn2[3].Content)
	assert.Equal(t, "Now email them a reminder", turn2[4].Content)

	history, err := a.History(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, history, 8)
	require.NoError(t, core.ValidateHistory(history))
}

func TestTurn_FailedSubAgentIsRecovered(t *testing.T) {
	ctx := context.Background()

	supervisor := model.NewScriptedGateway(
		model.CallTools(model.Call("call_1", LookupContactsTool, map[string]any{"request": "design team"})),
		model.Answer("I could not look up the contacts right now."),
	)
	contacts := model.NewScriptedGateway(model.Fail(errors.New("boom")))

	a, err := NewWithGateways(Gateways{Supervisor: supervisor, Contacts: contacts})
	require.NoError(t, err)

	res, err := a.Turn(ctx, "t1", "Who is on the design team?")
	require.NoError(t, err)
	assert.Equal(t, "I could not look up the contacts right now.", res.Answer)

	tm := testutil.ToolMessages(supervisor.Requests()[1].History)
	require.Len(t, tm, 1)
	assert.Contains(t, tm[0].Content, "error: ")
	assert.Contains(t, tm[0].Content, "boom")
}

func TestCreateCalendarEvent(t *testing.T) {
	tl := CreateCalendarEvent(nil)
	out, err := tl.Call(context.Background(), map[string]any{
		"title":     "Design review",
		"startTime": "2024-01-15T14:00:00",
		"endTime":   "2024-01-15T15:00:00",
		"attendees": []any{"a@example.com", "b@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Event created: Design review from 2024-01-15T14:00:00 to 2024-01-15T15:00:00 with 2 attendees", out)

	_, err = tl.Call(context.Background(), map[string]any{"startTime": "x", "endTime": "y", "attendees": []any{}})
	require.Error(t, err)
	var te *tool.ToolError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, tool.CodeValidation, te.Code)
}

func TestGetAvailableTimeSlots(t *testing.T) {
	out, err := GetAvailableTimeSlots(nil).Call(context.Background(), map[string]any{
		"attendees":       []any{"a@example.com"},
		"date":            "2024-01-15",
		"durationMinutes": float64(30),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `["09:00","14:00","16:00"]`, out.(string))
}

func TestSendEmail(t *testing.T) {
	out, err := SendEmail(nil).Call(context.Background(), map[string]any{
		"to":      []any{"a@example.com", "b@example.com"},
		"subject": "Reminder",
		"body":    "See you at 2pm.",
	})
	require.NoError(t, err)
	assert.Equal(t, "Email sent to a@example.com, b@example.com - Subject: Reminder", out)
}

func TestGetContacts(t *testing.T) {
	tests := []struct {
		search string
		names  []string
	}{
		{search: "design", names: []string{"nikhil", "yuvraj"}},
		{search: "KARAN", names: []string{"karan"}},
		{search: "nobody", names: []string{"nikhil", "yuvraj", "karan"}},
		{search: "", names: []string{"nikhil", "yuvraj", "karan"}},
	}

	tl := GetContacts(DefaultContacts, nil)
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			out, err := tl.Call(context.Background(), map[string]any{"search": tt.search})
			require.NoError(t, err)

			var got []Contact
			require.NoError(t, json.Unmarshal([]byte(out.(string)), &got))
			names := make([]string, len(got))
			for i, c := range got {
				names[i] = c.Name
			}
			assert.Equal(t, tt.names, names)
		})
	}
}
