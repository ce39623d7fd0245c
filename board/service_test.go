package board

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/briangreenhill/postboard/apierror"
	"github.com/briangreenhill/postboard/board/mocks"
	"github.com/briangreenhill/postboard/cache"
	"github.com/briangreenhill/postboard/gateway"
	"github.com/briangreenhill/postboard/schema"
)

func newTestService(t *testing.T) (*Service, *mocks.MockResources) {
	t.Helper()
	ctrl := gomock.NewController(t)
	res := mocks.NewMockResources(ctrl)
	store := cache.New(cache.WithRetryPolicy(cache.NoRetry()))
	return New(res, store), res
}

func samplePosts() []schema.Post {
	return []schema.Post{
		{ID: 1, Title: "one", Body: "b", UserID: 3},
		{ID: 42, Title: "answer", Body: "b", UserID: 3},
		{ID: 50, Title: "other", Body: "b", UserID: 5},
	}
}

func notFound() error {
	return &gateway.Error{Class: apierror.KindNotFound, Status: 404, StatusText: "Not Found", Message: "API error: Not Found"}
}

// warm fills posts, posts:user:3 and posts:user:5.
func warm(t *testing.T, svc *Service, res *mocks.MockResources) {
	t.Helper()
	ctx := context.Background()
	res.EXPECT().ListPosts(gomock.Any()).Return(samplePosts(), nil)
	res.EXPECT().ListPostsByUser(gomock.Any(), 3).Return(samplePosts()[:2], nil)
	res.EXPECT().ListPostsByUser(gomock.Any(), 5).Return(samplePosts()[2:], nil)
	require.NoError(t, svc.Posts(ctx).Err)
	require.NoError(t, svc.PostsByUser(ctx, 3).Err)
	require.NoError(t, svc.PostsByUser(ctx, 5).Err)
}

func status(svc *Service, key string) cache.Status {
	return svc.Store().Peek(key).Status
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "posts", PostsKey())
	assert.Equal(t, "posts:42", PostKey(42))
	assert.Equal(t, "posts:user:3", UserPostsKey(3))
	assert.Equal(t, "users", UsersKey())
	assert.Equal(t, "users:3", UserKey(3))
	assert.Equal(t, "comments:post:7", CommentsKey(7))
	assert.Equal(t, "comments", AllCommentsKey())
	assert.Equal(t, "comments:9", CommentKey(9))
}

func TestQueriesAreCached(t *testing.T) {
	svc, res := newTestService(t)
	ctx := context.Background()

	res.EXPECT().ListUsers(gomock.Any()).Return([]schema.User{{ID: 1, Name: "Leanne Graham"}}, nil).Times(1)
	res.EXPECT().GetPost(gomock.Any(), 7).Return(schema.Post{ID: 7, UserID: 1}, nil).Times(1)
	res.EXPECT().GetUser(gomock.Any(), 1).Return(schema.User{ID: 1}, nil).Times(1)
	res.EXPECT().ListCommentsByPost(gomock.Any(), 7).Return([]schema.Comment{{ID: 1, PostID: 7}}, nil).Times(1)

	for range 3 {
		assert.Len(t, svc.Users(ctx).Value, 1)
		assert.Equal(t, 7, svc.Post(ctx, 7).Value.ID)
		assert.Equal(t, 1, svc.User(ctx, 1).Value.ID)
		assert.Len(t, svc.CommentsByPost(ctx, 7).Value, 1)
	}
}

func TestCommentReads(t *testing.T) {
	svc, res := newTestService(t)
	ctx := context.Background()

	all := []schema.Comment{{ID: 1, PostID: 1, Name: "first"}, {ID: 2, PostID: 1, Name: "second"}}
	res.EXPECT().ListComments(gomock.Any()).Return(all, nil).Times(1)
	res.EXPECT().GetComment(gomock.Any(), 2).Return(all[1], nil).Times(1)

	for range 2 {
		assert.Len(t, svc.Comments(ctx).Value, 2)
		assert.Equal(t, "second", svc.Comment(ctx, 2).Value.Name)
	}

	res.EXPECT().GetComment(gomock.Any(), 404).Return(schema.Comment{}, notFound())
	r := svc.Comment(ctx, 404)
	assert.False(t, r.HasValue)
	assert.Equal(t, apierror.KindNotFound, apierror.KindOf(r.Err))
}

func TestRefetchBypassesFreshValue(t *testing.T) {
	svc, res := newTestService(t)
	ctx := context.Background()

	gomock.InOrder(
		res.EXPECT().ListUsers(gomock.Any()).Return([]schema.User{{ID: 1, Name: "Leanne Graham"}}, nil),
		res.EXPECT().ListUsers(gomock.Any()).Return([]schema.User{{ID: 1, Name: "Leanne Graham"}, {ID: 2, Name: "Ervin Howell"}}, nil),
	)
	assert.Len(t, svc.Users(ctx).Value, 1)
	assert.Len(t, svc.Users(ctx).Value, 1, "fresh value served from the cache")
	assert.Len(t, svc.Users(ctx, cache.Refetch()).Value, 2)
}

func TestInvalidIDsNeverReachTheAPI(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Post(ctx, 0).Err, schema.ErrInvalidArgument)
	assert.ErrorIs(t, svc.PostsByUser(ctx, -1).Err, schema.ErrInvalidArgument)
	assert.ErrorIs(t, svc.User(ctx, 0).Err, schema.ErrInvalidArgument)
	assert.ErrorIs(t, svc.CommentsByPost(ctx, 0).Err, schema.ErrInvalidArgument)
	assert.ErrorIs(t, svc.Comment(ctx, -3).Err, schema.ErrInvalidArgument)
	assert.ErrorIs(t, svc.DeletePost(ctx, 0), schema.ErrInvalidArgument)
	assert.Equal(t, 0, svc.Store().Len())
}

func TestCreatePostInvalidatesAuthorLists(t *testing.T) {
	svc, res := newTestService(t)
	warm(t, svc, res)

	in := schema.NewPost{Title: "hello", Body: "world", UserID: 3}
	res.EXPECT().CreatePost(gomock.Any(), in).Return(schema.Post{ID: 101, Title: "hello", Body: "world", UserID: 3}, nil)

	post, err := svc.CreatePost(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 101, post.ID)

	assert.Equal(t, cache.StatusStale, status(svc, PostsKey()))
	assert.Equal(t, cache.StatusStale, status(svc, UserPostsKey(3)))
	assert.Equal(t, cache.StatusFresh, status(svc, UserPostsKey(5)))
}

func TestCreatePostValidatesBeforeNetwork(t *testing.T) {
	svc, res := newTestService(t)
	warm(t, svc, res)

	_, err := svc.CreatePost(context.Background(), schema.NewPost{Title: "", Body: "b", UserID: 3})
	require.Error(t, err)
	assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))
	assert.Equal(t, cache.StatusFresh, status(svc, PostsKey()))
}

func TestDeletePostNotFoundLeavesCache(t *testing.T) {
	svc, res := newTestService(t)
	warm(t, svc, res)

	res.EXPECT().DeletePost(gomock.Any(), 42).Return(notFound())
	err := svc.DeletePost(context.Background(), 42)
	assert.Equal(t, apierror.KindNotFound, apierror.KindOf(err))

	snap := svc.Store().Peek(PostsKey())
	assert.Equal(t, cache.StatusFresh, snap.Status)
	assert.Equal(t, samplePosts(), snap.Value)
	assert.Equal(t, cache.StatusFresh, status(svc, UserPostsKey(3)))
}

func TestDeletePostKnownOwner(t *testing.T) {
	svc, res := newTestService(t)
	warm(t, svc, res)
	ctx := context.Background()

	res.EXPECT().GetPost(gomock.Any(), 42).Return(samplePosts()[1], nil)
	res.EXPECT().GetPost(gomock.Any(), 1).Return(samplePosts()[0], nil)
	require.NoError(t, svc.Post(ctx, 42).Err)
	require.NoError(t, svc.Post(ctx, 1).Err)

	res.EXPECT().DeletePost(gomock.Any(), 42).Return(nil)
	require.NoError(t, svc.DeletePost(ctx, 42))

	assert.Equal(t, cache.StatusEmpty, status(svc, PostKey(42)))
	assert.Equal(t, cache.StatusStale, status(svc, PostsKey()))
	assert.Equal(t, cache.StatusStale, status(svc, UserPostsKey(3)))
	assert.Equal(t, cache.StatusFresh, status(svc, UserPostsKey(5)))
	assert.Equal(t, cache.StatusFresh, status(svc, PostKey(1)))
}

func TestDeletePostUnknownOwnerInvalidatesFamily(t *testing.T) {
	svc, res := newTestService(t)
	ctx := context.Background()
	res.EXPECT().ListPostsByUser(gomock.Any(), 3).Return(samplePosts()[:2], nil)
	res.EXPECT().ListPostsByUser(gomock.Any(), 5).Return(samplePosts()[2:], nil)
	require.NoError(t, svc.PostsByUser(ctx, 3).Err)
	require.NoError(t, svc.PostsByUser(ctx, 5).Err)

	res.EXPECT().DeletePost(gomock.Any(), 99).Return(nil)
	require.NoError(t, svc.DeletePost(ctx, 99))

	assert.Equal(t, cache.StatusStale, status(svc, UserPostsKey(3)))
	assert.Equal(t, cache.StatusStale, status(svc, UserPostsKey(5)))
}

func TestUpdatePostMovesAuthor(t *testing.T) {
	svc, res := newTestService(t)
	warm(t, svc, res)
	ctx := context.Background()

	res.EXPECT().ListPostsByUser(gomock.Any(), 7).Return(nil, nil)
	res.EXPECT().GetPost(gomock.Any(), 1).Return(samplePosts()[0], nil)
	require.NoError(t, svc.PostsByUser(ctx, 7).Err)
	require.NoError(t, svc.Post(ctx, 1).Err)

	newOwner := 5
	patch := schema.PostPatch{UserID: &newOwner}
	res.EXPECT().UpdatePost(gomock.Any(), 42, patch).Return(schema.Post{ID: 42, UserID: 5}, nil)

	post, err := svc.UpdatePost(ctx, 42, patch)
	require.NoError(t, err)
	assert.Equal(t, 5, post.UserID)

	assert.Equal(t, cache.StatusStale, status(svc, PostsKey()))
	assert.Equal(t, cache.StatusStale, status(svc, UserPostsKey(3)), "previous owner, found in the post list")
	assert.Equal(t, cache.StatusStale, status(svc, UserPostsKey(5)))
	assert.Equal(t, cache.StatusFresh, status(svc, UserPostsKey(7)))
	assert.Equal(t, cache.StatusFresh, status(svc, PostKey(1)))
}

func TestUpdatePostRejectsEmptyPatch(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.UpdatePost(context.Background(), 1, schema.PostPatch{})
	assert.ErrorIs(t, err, schema.ErrInvalidArgument)
}

func TestFailedUpdateLeavesCache(t *testing.T) {
	svc, res := newTestService(t)
	warm(t, svc, res)

	title := "renamed"
	res.EXPECT().UpdatePost(gomock.Any(), 42, gomock.Any()).
		Return(schema.Post{}, &gateway.Error{Class: apierror.KindServerFault, Status: 500, Message: "API error: Internal Server Error"})
	_, err := svc.UpdatePost(context.Background(), 42, schema.PostPatch{Title: &title})
	assert.Equal(t, apierror.KindServerFault, apierror.KindOf(err))
	assert.Equal(t, cache.StatusFresh, status(svc, PostsKey()))
	assert.Equal(t, cache.StatusFresh, status(svc, UserPostsKey(3)))
}

func TestMutations(t *testing.T) {
	svc, res := newTestService(t)
	ctx := context.Background()
	for _, m := range svc.Mutations() {
		assert.False(t, m.Pending, m.Name)
		assert.NoError(t, m.Err, m.Name)
	}

	release := make(chan struct{})
	res.EXPECT().CreatePost(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, schema.NewPost) (schema.Post, error) {
		<-release
		return schema.Post{ID: 101, UserID: 3}, nil
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.CreatePost(ctx, schema.NewPost{Title: "t", Body: "b", UserID: 3})
	}()
	require.Eventually(t, svc.Saving, time.Second, time.Millisecond)
	close(release)
	<-done
	assert.False(t, svc.Saving())

	res.EXPECT().DeletePost(gomock.Any(), 42).Return(notFound())
	require.Error(t, svc.DeletePost(ctx, 42))

	states := svc.Mutations()
	require.Len(t, states, 3)
	assert.Equal(t, "create", states[0].Name)
	assert.NoError(t, states[0].Err)
	assert.Equal(t, "delete", states[2].Name)
	assert.Equal(t, apierror.KindNotFound, apierror.KindOf(states[2].Err))
}

func TestWatchRefetchesInvalidatedLists(t *testing.T) {
	svc, res := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refetched := make(chan struct{})
	gomock.InOrder(
		res.EXPECT().ListPosts(gomock.Any()).Return(samplePosts(), nil),
		res.EXPECT().ListPosts(gomock.Any()).DoAndReturn(func(context.Context) ([]schema.Post, error) {
			close(refetched)
			return append(samplePosts(), schema.Post{ID: 101, Title: "hello", Body: "world", UserID: 3}), nil
		}),
	)
	res.EXPECT().ListUsers(gomock.Any()).Return([]schema.User{{ID: 3, Name: "Clementine Bauch"}}, nil)
	res.EXPECT().CreatePost(gomock.Any(), gomock.Any()).Return(schema.Post{ID: 101, Title: "hello", Body: "world", UserID: 3}, nil)

	svc.Watch(ctx)
	assert.Equal(t, cache.StatusFresh, status(svc, PostsKey()))
	assert.Equal(t, cache.StatusFresh, status(svc, UsersKey()))

	_, err := svc.CreatePost(ctx, schema.NewPost{Title: "hello", Body: "world", UserID: 3})
	require.NoError(t, err)

	select {
	case <-refetched:
	case <-time.After(time.Second):
		t.Fatal("post list was not refetched after the write")
	}
	require.Eventually(t, func() bool { return status(svc, PostsKey()) == cache.StatusFresh }, time.Second, time.Millisecond)
	assert.Len(t, svc.Store().Peek(PostsKey()).Value, 4)
	assert.Equal(t, cache.StatusFresh, status(svc, UsersKey()))
}

func TestUserName(t *testing.T) {
	users := []schema.User{{ID: 1, Name: "Leanne Graham"}, {ID: 2, Name: "Ervin Howell"}}
	assert.Equal(t, "Ervin Howell", UserName(users, 2))
	assert.Equal(t, "User 7", UserName(users, 7))
	assert.Equal(t, "User 1", UserName(nil, 1))
}
