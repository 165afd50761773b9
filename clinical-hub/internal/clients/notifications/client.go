package notifications

import (
	"context"

	"github.com/herdline/reprohub/clinical-hub/internal/clients/rest"
	"github.com/herdline/reprohub/clinical-hub/internal/models"
)

const sendPath = "/notifications/send"

type Client struct {
	rest *rest.Client
}

func New(c *rest.Client) *Client {
	return &Client{rest: c}
}

func (c *Client) SendNotification(ctx context.Context, n models.Notification) error {
	return c.rest.PostJSON(ctx, sendPath, n)
}
