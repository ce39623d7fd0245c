package board

import (
	"context"

	"github.com/briangreenhill/postboard/schema"
)

// Resources is the remote API the board reads from and writes to.
// *jsonplaceholder.Client implements it.
//
//go:generate mockgen -source=resources.go -destination=mocks/mock_resources.go -package=mocks
type Resources interface {
	ListPosts(ctx context.Context) ([]schema.Post, error)
	GetPost(ctx context.Context, id int) (schema.Post, error)
	ListPostsByUser(ctx context.Context, userID int) ([]schema.Post, error)
	CreatePost(ctx context.Context, in schema.NewPost) (schema.Post, error)
	UpdatePost(ctx context.Context, id int, patch schema.PostPatch) (schema.Post, error)
	DeletePost(ctx context.Context, id int) error

	ListUsers(ctx context.Context) ([]schema.User, error)
	GetUser(ctx context.Context, id int) (schema.User, error)

	ListComments(ctx context.Context) ([]schema.Comment, error)
	GetComment(ctx context.Context, id int) (schema.Comment, error)
	ListCommentsByPost(ctx context.Context, postID int) ([]schema.Comment, error)
}
