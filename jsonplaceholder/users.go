package jsonplaceholder

import (
	"context"

	"github.com/briangreenhill/postboard/schema"
)

func (c *Client) ListUsers(ctx context.Context) ([]schema.User, error) {
	raw, err := c.gw.Get(ctx, c.endpoint("/users", nil))
	if err != nil {
		return nil, err
	}
	return schema.DecodeUsers(raw)
}

func (c *Client) GetUser(ctx context.Context, id int) (schema.User, error) {
	if err := schema.RequirePositiveID("user", "id", id); err != nil {
		return schema.User{}, err
	}
	raw, err := c.gw.Get(ctx, c.endpoint("/users/"+itoa(id), nil))
	if err != nil {
		return schema.User{}, err
	}
	return schema.DecodeUser(raw)
}
