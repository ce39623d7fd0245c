package jsonplaceholder

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/briangreenhill/postboard/schema"
)

// ListPosts returns every post.
func (c *Client) ListPosts(ctx context.Context) ([]schema.Post, error) {
	raw, err := c.gw.Get(ctx, c.endpoint("/posts", nil))
	if err != nil {
		return nil, err
	}
	return schema.DecodePosts(raw)
}

// GetPost returns one post by id.
func (c *Client) GetPost(ctx context.Context, id int) (schema.Post, error) {
	if err := schema.RequirePositiveID("post", "id", id); err != nil {
		return schema.Post{}, err
	}
	raw, err := c.gw.Get(ctx, c.endpoint("/posts/"+itoa(id), nil))
	if err != nil {
		return schema.Post{}, err
	}
	return schema.DecodePost(raw)
}

// ListPostsByUser returns the posts written by one user.
func (c *Client) ListPostsByUser(ctx context.Context, userID int) ([]schema.Post, error) {
	if err := schema.RequirePositiveID("post", "userId", userID); err != nil {
		return nil, err
	}
	raw, err := c.gw.Get(ctx, c.endpoint("/posts", map[string]string{"userId": itoa(userID)}))
	if err != nil {
		return nil, err
	}
	return schema.DecodePosts(raw)
}

// CreatePost validates in before sending it and returns the stored post with
// its server-assigned id.
func (c *Client) CreatePost(ctx context.Context, in schema.NewPost) (schema.Post, error) {
	if err := in.Validate(); err != nil {
		return schema.Post{}, err
	}
	raw, err := c.gw.Post(ctx, c.endpoint("/posts", nil), in)
	if err != nil {
		return schema.Post{}, err
	}
	post, err := schema.DecodePost(raw)
	if err != nil {
		return schema.Post{}, errors.Wrap(err, "create post")
	}
	c.logger.Debug().Int("post_id", post.ID).Int("user_id", post.UserID).Msg("post created")
	return post, nil
}

// UpdatePost sends only the fields set in patch. The API echoes the update
// back partially, so the returned post carries the id and the sent fields.
func (c *Client) UpdatePost(ctx context.Context, id int, patch schema.PostPatch) (schema.Post, error) {
	if err := schema.RequirePositiveID("post", "id", id); err != nil {
		return schema.Post{}, err
	}
	if err := patch.Validate(); err != nil {
		return schema.Post{}, err
	}
	raw, err := c.gw.Put(ctx, c.endpoint("/posts/"+itoa(id), nil), patch)
	if err != nil {
		return schema.Post{}, err
	}
	post, err := schema.DecodePostPatch(raw)
	if err != nil {
		return schema.Post{}, errors.Wrap(err, "update post")
	}
	c.logger.Debug().Int("post_id", post.ID).Msg("post updated")
	return post, nil
}

// DeletePost removes a post. The response body is ignored.
func (c *Client) DeletePost(ctx context.Context, id int) error {
	if err := schema.RequirePositiveID("post", "id", id); err != nil {
		return err
	}
	if _, err := c.gw.Delete(ctx, c.endpoint("/posts/"+itoa(id), nil)); err != nil {
		return err
	}
	c.logger.Debug().Int("post_id", id).Msg("post deleted")
	return nil
}
