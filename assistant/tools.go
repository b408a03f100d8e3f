package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/NikhilKumarMandal/multi-agent-system/logging"
	"github.com/NikhilKumarMandal/multi-agent-system/tool"
)

// Domain tool names.
const (
	CreateCalendarEventTool   = "create_calendar_event"
	GetAvailableTimeSlotsTool = "get_available_time_slots"
	SendEmailTool             = "send_email"
	GetContactsTool           = "get_contacts"
)

// CalendarEventArgs are the arguments of create_calendar_event.
type CalendarEventArgs struct {
	Title     string   `json:"title"`
	StartTime string   `json:"startTime" description:"ISO format: '2024-01-15T14:00:00'"`
	EndTime   string   `json:"endTime" description:"ISO format: '2024-01-15T15:00:00'"`
	Attendees []string `json:"attendees" description:"email addresses"`
	Location  string   `json:"location,omitempty"`
}

// TimeSlotsArgs are the arguments of get_available_time_slots.
type TimeSlotsArgs struct {
	Attendees       []string `json:"attendees"`
	Date            string   `json:"date" description:"ISO format: '2024-01-15'"`
	DurationMinutes float64  `json:"durationMinutes"`
}

// EmailArgs are the arguments of send_email.
type EmailArgs struct {
	To      []string `json:"to" description:"email addresses"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	CC      []string `json:"cc,omitempty"`
}

// ContactSearchArgs are the arguments of get_contacts.
type ContactSearchArgs struct {
	Search string `json:"search" description:"search query for the contact. e.g: design or nikhil"`
}

// Contact is one address book entry.
type Contact struct {
	ID    int    `json:"id"`
	Team  string `json:"team"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DefaultContacts is the fixed address book served by get_contacts.
var DefaultContacts = []Contact{
	{ID: 1, Team: "design", Name: "nikhil", Email: "nikhilkumar@gmail.com"},
	{ID: 2, Team: "design", Name: "yuvraj", Email: "yuvrajkumar@gmail.com"},
	{ID: 3, Team: "development", Name: "karan", Email: "karankumar@gmail.com"},
}

// AvailableSlots is the fixed availability answered by get_available_time_slots.
var AvailableSlots = []string{"09:00", "14:00", "16:00"}

// CreateCalendarEvent returns the create_calendar_event tool. It confirms
// the event without contacting a calendar service.
func CreateCalendarEvent(logger logging.Logger) tool.Tool {
	return tool.DefineTyped(CreateCalendarEventTool,
		"Create a calendar event. Requires exact ISO datetime format.",
		func(_ context.Context, in CalendarEventArgs) (string, error) {
			return fmt.Sprintf("Event created: %s from %s to %s with %d attendees",
				in.Title, in.StartTime, in.EndTime, len(in.Attendees)), nil
		}, tool.WithFunctionLogger(logger))
}

// GetAvailableTimeSlots returns the get_available_time_slots tool.
func GetAvailableTimeSlots(logger logging.Logger) tool.Tool {
	return tool.DefineTyped(GetAvailableTimeSlotsTool,
		"Check calendar availability for given attendees on a specific date.",
		func(_ context.Context, _ TimeSlotsArgs) (string, error) {
			b, err := json.Marshal(AvailableSlots)
			if err != nil {
				return "", err
			}
			return string(b), nil
		}, tool.WithFunctionLogger(logger))
}

// SendEmail returns the send_email tool. It confirms the email without
// contacting a mail service.
func SendEmail(logger logging.Logger) tool.Tool {
	return tool.DefineTyped(SendEmailTool,
		"Send an email via email API. Requires properly formatted addresses.",
		func(_ context.Context, in EmailArgs) (string, error) {
			return fmt.Sprintf("Email sent to %s - Subject: %s", strings.Join(in.To, ", "), in.Subject), nil
		}, tool.WithFunctionLogger(logger))
}

// GetContacts returns the get_contacts tool over contacts. The search term
// matches name, team or email case-insensitively; when nothing matches the
// whole list is returned so the model can pick.
func GetContacts(contacts []Contact, logger logging.Logger) tool.Tool {
	return tool.DefineTyped(GetContactsTool,
		"Get contact lists.",
		func(_ context.Context, in ContactSearchArgs) (string, error) {
			b, err := json.Marshal(SearchContacts(contacts, in.Search))
			if err != nil {
				return "", err
			}
			return string(b), nil
		}, tool.WithFunctionLogger(logger))
}

// SearchContacts filters contacts by a case-insensitive substring.
func SearchContacts(contacts []Contact, search string) []Contact {
	q := strings.ToLower(strings.TrimSpace(search))
	if q == "" {
		return contacts
	}
	var out []Contact
	for _, c := range contacts {
		if strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(strings.ToLower(c.Team), q) ||
			strings.Contains(strings.ToLower(c.Email), q) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return contacts
	}
	return out
}
