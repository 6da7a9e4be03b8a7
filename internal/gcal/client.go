package gcal

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/calbridge/calbridge/internal/instrumentation"
)

// Client wraps the Google Calendar service for the sync bridge.
type Client struct {
	svc     *calendar.Service
	metrics *instrumentation.Metrics
}

// NewClient creates a Calendar client backed by the given token source.
func NewClient(ctx context.Context, tokenSource oauth2.TokenSource) (*Client, error) {
	if tokenSource == nil {
		return nil, fmt.Errorf("token source cannot be nil")
	}

	client := oauth2.NewClient(ctx, tokenSource)

	// Force HTTP/1.1 by disabling HTTP/2. The Calendar API intermittently
	// resets long-lived HTTP/2 connections.
	transport := client.Transport.(*oauth2.Transport)
	transport.Base = &http.Transport{
		ForceAttemptHTTP2: false,
	}

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &Client{svc: svc}, nil
}

// SetMetrics attaches a metrics recorder. Safe to leave unset.
func (c *Client) SetMetrics(m *instrumentation.Metrics) {
	c.metrics = m
}

// record reports an API operation to the metrics recorder if one is attached.
func (c *Client) record(ctx context.Context, operation string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	c.metrics.RecordGoogleAPIOperation(ctx, operation, status, time.Since(start))
}

// ListCalendars lists all calendars accessible to the user.
func (c *Client) ListCalendars(ctx context.Context) ([]CalendarInfo, error) {
	start := time.Now()
	list, err := c.svc.CalendarList.List().Context(ctx).Do()
	c.record(ctx, "list_calendars", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}

	var calendars []CalendarInfo
	for _, entry := range list.Items {
		calendars = append(calendars, toCalendarInfo(entry))
	}

	return calendars, nil
}

// CreateEvent creates a new event in the given calendar.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, body EventBody) (*CreatedEvent, error) {
	start := time.Now()
	created, err := c.svc.Events.Insert(calendarID, ToAPIEvent(body)).Context(ctx).Do()
	c.record(ctx, "create", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return &CreatedEvent{
		ID:       created.Id,
		HTMLLink: created.HtmlLink,
	}, nil
}

// UpdateEvent replaces an existing event with the given body.
func (c *Client) UpdateEvent(ctx context.Context, calendarID, eventID string, body EventBody) (*EventDetails, error) {
	start := time.Now()
	updated, err := c.svc.Events.Update(calendarID, eventID, ToAPIEvent(body)).Context(ctx).Do()
	c.record(ctx, "update", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	details := toEventDetails(updated)
	return &details, nil
}

// DeleteEvent deletes an event.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	start := time.Now()
	err := c.svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
	c.record(ctx, "delete", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// GetEvent retrieves a specific event by ID.
func (c *Client) GetEvent(ctx context.Context, calendarID, eventID string) (*EventDetails, error) {
	start := time.Now()
	event, err := c.svc.Events.Get(calendarID, eventID).Context(ctx).Do()
	c.record(ctx, "get", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	details := toEventDetails(event)
	return &details, nil
}

// SearchEvents lists events in a calendar within a time range, optionally
// filtered by a free-text query.
func (c *Client) SearchEvents(ctx context.Context, calendarID, query string, timeMin, timeMax time.Time) ([]EventDetails, error) {
	call := c.svc.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)

	if query != "" {
		call = call.Q(query)
	}

	start := time.Now()
	events, err := call.Do()
	c.record(ctx, "search", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to search events: %w", err)
	}

	var details []EventDetails
	for _, event := range events.Items {
		details = append(details, toEventDetails(event))
	}

	return details, nil
}
