package calendar

import (
	"context"

	"github.com/herdline/reprohub/clinical-hub/internal/clients/rest"
	"github.com/herdline/reprohub/clinical-hub/internal/models"
)

const eventsPath = "/calendar/events"

// Client books events on the scheduling calendar.
type Client struct {
	rest *rest.Client
}

func New(c *rest.Client) *Client {
	return &Client{rest: c}
}

func (c *Client) CreateEvent(ctx context.Context, event models.CalendarEvent) error {
	return c.rest.PostJSON(ctx, eventsPath, event)
}
