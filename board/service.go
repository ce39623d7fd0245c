// Package board binds the remote resources to the cache: which key each
// read lives under, how long it stays fresh, and which keys every write
// invalidates.
package board

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/postboard/cache"
	"github.com/briangreenhill/postboard/schema"
)

const (
	PostsStaleTime = 5 * time.Minute
	UsersStaleTime = 10 * time.Minute

	// DefaultAuthorID is used when a new post names no author.
	DefaultAuthorID = 1
)

func PostsKey() string { return cache.KeyFor("posts") }

func PostKey(id int) string { return cache.KeyFor("posts", id) }

func UserPostsKey(userID int) string { return cache.KeyFor("posts", "user", userID) }

// UserPostsPrefix names the family of every per-user post list.
func UserPostsPrefix() string { return cache.KeyFor("posts", "user") }

func UsersKey() string { return cache.KeyFor("users") }

func UserKey(id int) string { return cache.KeyFor("users", id) }

func CommentsKey(postID int) string { return cache.KeyFor("comments", "post", postID) }

func AllCommentsKey() string { return cache.KeyFor("comments") }

func CommentKey(id int) string { return cache.KeyFor("comments", id) }

// owner is what is known about a post's author before a write.
type owner struct {
	userID int
	known  bool
}

type updateInput struct {
	id    int
	patch schema.PostPatch
	prev  owner
}

type deleteInput struct {
	id   int
	prev owner
}

type Service struct {
	res    Resources
	store  *cache.Store
	logger zerolog.Logger

	create *cache.Mutation[schema.NewPost, schema.Post]
	update *cache.Mutation[updateInput, schema.Post]
	remove *cache.Mutation[deleteInput, struct{}]
}

type Option func(*Service)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(res Resources, store *cache.Store, opts ...Option) *Service {
	s := &Service{
		res:    res,
		store:  store,
		logger: zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	s.create = cache.NewMutation(store, func(ctx context.Context, in schema.NewPost) (schema.Post, error) {
		return s.res.CreatePost(ctx, in)
	}, s.afterCreate)
	s.update = cache.NewMutation(store, func(ctx context.Context, in updateInput) (schema.Post, error) {
		return s.res.UpdatePost(ctx, in.id, in.patch)
	}, s.afterUpdate)
	s.remove = cache.NewMutation(store, func(ctx context.Context, in deleteInput) (struct{}, error) {
		return struct{}{}, s.res.DeletePost(ctx, in.id)
	}, s.afterDelete)
	return s
}

// Store exposes the underlying cache.
func (s *Service) Store() *cache.Store {
	return s.store
}

// staleFor puts the family's staleness window ahead of the caller's options,
// so Refetch and a per-call StaleTime still apply.
func staleFor(d time.Duration, opts []cache.QueryOption) []cache.QueryOption {
	return append([]cache.QueryOption{cache.StaleTime(d)}, opts...)
}

func (s *Service) Posts(ctx context.Context, opts ...cache.QueryOption) cache.Result[[]schema.Post] {
	return cache.Query(ctx, s.store, PostsKey(), s.res.ListPosts, staleFor(PostsStaleTime, opts)...)
}

func (s *Service) Post(ctx context.Context, id int, opts ...cache.QueryOption) cache.Result[schema.Post] {
	if err := schema.RequirePositiveID("post", "id", id); err != nil {
		return invalid[schema.Post](PostKey(id), err)
	}
	return cache.Query(ctx, s.store, PostKey(id), func(ctx context.Context) (schema.Post, error) {
		return s.res.GetPost(ctx, id)
	}, staleFor(PostsStaleTime, opts)...)
}

func (s *Service) PostsByUser(ctx context.Context, userID int, opts ...cache.QueryOption) cache.Result[[]schema.Post] {
	if err := schema.RequirePositiveID("post", "userId", userID); err != nil {
		return invalid[[]schema.Post](UserPostsKey(userID), err)
	}
	return cache.Query(ctx, s.store, UserPostsKey(userID), func(ctx context.Context) ([]schema.Post, error) {
		return s.res.ListPostsByUser(ctx, userID)
	}, staleFor(PostsStaleTime, opts)...)
}

func (s *Service) Users(ctx context.Context, opts ...cache.QueryOption) cache.Result[[]schema.User] {
	return cache.Query(ctx, s.store, UsersKey(), s.res.ListUsers, staleFor(UsersStaleTime, opts)...)
}

func (s *Service) User(ctx context.Context, id int, opts ...cache.QueryOption) cache.Result[schema.User] {
	if err := schema.RequirePositiveID("user", "id", id); err != nil {
		return invalid[schema.User](UserKey(id), err)
	}
	return cache.Query(ctx, s.store, UserKey(id), func(ctx context.Context) (schema.User, error) {
		return s.res.GetUser(ctx, id)
	}, staleFor(UsersStaleTime, opts)...)
}

// Comments and the other comment reads use the store's default staleness
// window.
func (s *Service) Comments(ctx context.Context, opts ...cache.QueryOption) cache.Result[[]schema.Comment] {
	return cache.Query(ctx, s.store, AllCommentsKey(), s.res.ListComments, opts...)
}

func (s *Service) Comment(ctx context.Context, id int, opts ...cache.QueryOption) cache.Result[schema.Comment] {
	if err := schema.RequirePositiveID("comment", "id", id); err != nil {
		return invalid[schema.Comment](CommentKey(id), err)
	}
	return cache.Query(ctx, s.store, CommentKey(id), func(ctx context.Context) (schema.Comment, error) {
		return s.res.GetComment(ctx, id)
	}, opts...)
}

func (s *Service) CommentsByPost(ctx context.Context, postID int, opts ...cache.QueryOption) cache.Result[[]schema.Comment] {
	if err := schema.RequirePositiveID("comment", "postId", postID); err != nil {
		return invalid[[]schema.Comment](CommentsKey(postID), err)
	}
	return cache.Query(ctx, s.store, CommentsKey(postID), func(ctx context.Context) ([]schema.Comment, error) {
		return s.res.ListCommentsByPost(ctx, postID)
	}, opts...)
}

// CreatePost validates in, creates the post and invalidates the post list
// and the author's post list.
func (s *Service) CreatePost(ctx context.Context, in schema.NewPost) (schema.Post, error) {
	if err := in.Validate(); err != nil {
		return schema.Post{}, err
	}
	return s.create.Run(ctx, in)
}

// UpdatePost applies patch to post id and invalidates the post list, the
// post itself and the post lists of its previous and new authors.
func (s *Service) UpdatePost(ctx context.Context, id int, patch schema.PostPatch) (schema.Post, error) {
	if err := schema.RequirePositiveID("post", "id", id); err != nil {
		return schema.Post{}, err
	}
	if err := patch.Validate(); err != nil {
		return schema.Post{}, err
	}
	return s.update.Run(ctx, updateInput{id: id, patch: patch, prev: s.ownerOf(id)})
}

// DeletePost deletes post id, invalidates the post list and the author's
// post list, and drops the post's own entry.
func (s *Service) DeletePost(ctx context.Context, id int) error {
	if err := schema.RequirePositiveID("post", "id", id); err != nil {
		return err
	}
	if _, err := s.remove.Run(ctx, deleteInput{id: id, prev: s.ownerOf(id)}); err != nil {
		return err
	}
	s.store.Remove(PostKey(id))
	return nil
}

func (s *Service) afterCreate(in schema.NewPost, _ schema.Post) []string {
	return []string{PostsKey(), UserPostsKey(in.UserID)}
}

func (s *Service) afterUpdate(in updateInput, _ schema.Post) []string {
	keys := []string{PostsKey(), PostKey(in.id)}
	if !in.prev.known {
		s.store.InvalidatePrefix(UserPostsPrefix())
		return keys
	}
	keys = append(keys, UserPostsKey(in.prev.userID))
	if in.patch.UserID != nil && *in.patch.UserID != in.prev.userID {
		keys = append(keys, UserPostsKey(*in.patch.UserID))
	}
	return keys
}

func (s *Service) afterDelete(in deleteInput, _ struct{}) []string {
	if !in.prev.known {
		s.store.InvalidatePrefix(UserPostsPrefix())
		return []string{PostsKey()}
	}
	return []string{PostsKey(), UserPostsKey(in.prev.userID)}
}

// ownerOf looks up the author of post id in the cache, first in the post's
// own entry and then in the post list. Nothing is fetched.
func (s *Service) ownerOf(id int) owner {
	if p, ok := s.store.Peek(PostKey(id)).Value.(schema.Post); ok {
		return owner{userID: p.UserID, known: true}
	}
	if posts, ok := s.store.Peek(PostsKey()).Value.([]schema.Post); ok {
		for _, p := range posts {
			if p.ID == id {
				return owner{userID: p.UserID, known: true}
			}
		}
	}
	s.logger.Debug().Int("post_id", id).Msg("post owner not cached, invalidating every user post list")
	return owner{}
}

// MutationState is what is known about one kind of write.
type MutationState struct {
	Name    string
	Pending bool
	// Err is the error of the last completed run, nil after a success.
	Err error
}

// Mutations reports the create, update and delete writes in that order.
func (s *Service) Mutations() []MutationState {
	return []MutationState{
		{Name: "create", Pending: s.create.Pending(), Err: s.create.Err()},
		{Name: "update", Pending: s.update.Pending(), Err: s.update.Err()},
		{Name: "delete", Pending: s.remove.Pending(), Err: s.remove.Err()},
	}
}

// Saving reports whether any write is in flight.
func (s *Service) Saving() bool {
	for _, m := range s.Mutations() {
		if m.Pending {
			return true
		}
	}
	return false
}

// Watch loads the post list and the users and then keeps both warm: once a
// write invalidates either, it is refetched right away instead of on the
// next read. Watch returns after the first load; the subscriptions end with
// ctx.
func (s *Service) Watch(ctx context.Context) {
	if r := s.Posts(ctx); r.Err != nil {
		s.logger.Warn().Err(r.Err).Msg("initial post load failed")
	}
	if r := s.Users(ctx); r.Err != nil {
		s.logger.Warn().Err(r.Err).Msg("initial user load failed")
	}
	for _, key := range []string{PostsKey(), UsersKey()} {
		sub := s.store.Subscribe(key)
		go func() {
			defer sub.Unsubscribe()
			for {
				select {
				case <-ctx.Done():
					return
				case snap, ok := <-sub.C:
					if !ok {
						return
					}
					s.logger.Debug().Str("key", snap.Key).Stringer("status", snap.Status).Msg("watched entry changed")
				}
			}
		}()
	}
}

func invalid[T any](key string, err error) cache.Result[T] {
	return cache.Result[T]{Key: key, Err: err, Status: cache.StatusError}
}

// UserName resolves an author's display name, falling back to "User <id>"
// when the user is not among users.
func UserName(users []schema.User, id int) string {
	for _, u := range users {
		if u.ID == id {
			return u.Name
		}
	}
	return "User " + strconv.Itoa(id)
}
