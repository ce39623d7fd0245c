package jsonplaceholder

import (
	"context"

	"github.com/briangreenhill/postboard/schema"
)

func (c *Client) ListComments(ctx context.Context) ([]schema.Comment, error) {
	raw, err := c.gw.Get(ctx, c.endpoint("/comments", nil))
	if err != nil {
		return nil, err
	}
	return schema.DecodeComments(raw)
}

func (c *Client) GetComment(ctx context.Context, id int) (schema.Comment, error) {
	if err := schema.RequirePositiveID("comment", "id", id); err != nil {
		return schema.Comment{}, err
	}
	raw, err := c.gw.Get(ctx, c.endpoint("/comments/"+itoa(id), nil))
	if err != nil {
		return schema.Comment{}, err
	}
	return schema.DecodeComment(raw)
}

// ListCommentsByPost returns the comments left on one post.
func (c *Client) ListCommentsByPost(ctx context.Context, postID int) ([]schema.Comment, error) {
	if err := schema.RequirePositiveID("comment", "postId", postID); err != nil {
		return nil, err
	}
	raw, err := c.gw.Get(ctx, c.endpoint("/comments", map[string]string{"postId": itoa(postID)}))
	if err != nil {
		return nil, err
	}
	return schema.DecodeComments(raw)
}
