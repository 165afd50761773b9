package modules

import (
	"context"
	"fmt"
	"net/url"

	"github.com/herdline/reprohub/clinical-hub/internal/clients/rest"
	"github.com/herdline/reprohub/clinical-hub/internal/models"
)

// Client forwards procedure assignments to per-module endpoints at
// /<module>/workflow-assignment.
type Client struct {
	rest *rest.Client
}

func New(c *rest.Client) *Client {
	return &Client{rest: c}
}

func (c *Client) UpdateModule(ctx context.Context, module string, update models.ModuleUpdate) error {
	if module == "" {
		return fmt.Errorf("module name required")
	}
	return c.rest.PostJSON(ctx, "/"+url.PathEscape(module)+"/workflow-assignment", update)
}
