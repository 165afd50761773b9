package injections

import (
	"context"

	"github.com/herdline/reprohub/clinical-hub/internal/clients/rest"
	"github.com/herdline/reprohub/clinical-hub/internal/models"
)

const schedulePath = "/injections/schedule"

// Client places medication orders with the injection scheduler.
type Client struct {
	rest *rest.Client
}

func New(c *rest.Client) *Client {
	return &Client{rest: c}
}

func (c *Client) ScheduleInjection(ctx context.Context, order models.InjectionOrder) error {
	return c.rest.PostJSON(ctx, schedulePath, order)
}
