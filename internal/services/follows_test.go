package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledgehub/internal/models"
)

func TestToggleFollow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	author := f.user(t, "author", models.RoleContributor)
	a := f.user(t, "a", models.RoleUser)
	b := f.user(t, "b", models.RoleUser)
	post := f.question(t, author, "Study groups")

	res, err := f.follows.ToggleFollow(ctx, a, post.ID)
	require.NoError(t, err)
	assert.Equal(t, FollowResult{Following: true, Count: 1}, res)

	res, err = f.follows.ToggleFollow(ctx, b, post.ID)
	require.NoError(t, err)
	assert.Equal(t, FollowResult{Following: true, Count: 2}, res)

	res, err = f.follows.ToggleFollow(ctx, a, post.ID)
	require.NoError(t, err)
	assert.Equal(t, FollowResult{Following: false, Count: 1}, res)

	var p models.Post
	f.reload(t, &p, post.ID)
	var rows int64
	require.NoError(t, f.db.Model(&models.Follow{}).Where("post_id = ?", post.ID).Count(&rows).Error)
	assert.EqualValues(t, p.FollowersCount, rows)

	recipients, err := f.follows.Followers(ctx, post.ID, 0)
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, Recipient{UserID: b.UserID, Username: "b", Email: "b@example.com"}, recipients[0])

	recipients, err = f.follows.Followers(ctx, post.ID, b.UserID)
	require.NoError(t, err)
	assert.Empty(t, recipients)

	_, err = f.follows.ToggleFollow(ctx, a, post.ID+100)
	assert.ErrorIs(t, err, ErrPostNotFound)
	_, err = f.follows.ToggleFollow(ctx, Identity{}, post.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestNotificationInbox(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inbox := NewNotificationService(f.db)

	author := f.user(t, "author", models.RoleContributor)
	reader := f.user(t, "reader", models.RoleUser)
	answerer := f.user(t, "answerer", models.RoleUser)
	post := f.question(t, author, "Summer internships")

	_, err := f.follows.ToggleFollow(ctx, reader, post.ID)
	require.NoError(t, err)
	f.answer(t, answerer, post.ID)
	f.answer(t, answerer, post.ID)
	f.notifier.Wait()

	n, err := inbox.UnreadCount(ctx, reader)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	items, err := inbox.List(ctx, reader)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "answerer", items[0].Actor.Username)

	require.NoError(t, inbox.MarkRead(ctx, reader, items[0].ID))
	assert.ErrorIs(t, inbox.MarkRead(ctx, author, items[1].ID), ErrNotificationNotFound)

	n, err = inbox.UnreadCount(ctx, reader)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	marked, err := inbox.MarkAllRead(ctx, reader)
	require.NoError(t, err)
	assert.EqualValues(t, 1, marked)
	n, err = inbox.UnreadCount(ctx, reader)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, inbox.Delete(ctx, reader, items[1].ID))
	assert.ErrorIs(t, inbox.Delete(ctx, reader, items[1].ID), ErrNotificationNotFound)
}
