package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"knowledgehub/internal/models"
)

func TestToggleVoteIsIdempotentPerPair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	author := f.user(t, "author", models.RoleContributor)
	voter := f.user(t, "voter", models.RoleUser)
	post := f.question(t, author, "Funding for a second masters")

	want := []VoteAction{VoteAdded, VoteRemoved, VoteAdded, VoteRemoved, VoteAdded}
	for i, action := range want {
		res, err := f.votes.ToggleVote(ctx, voter, models.TargetPost, post.ID)
		require.NoError(t, err, "toggle %d", i+1)
		assert.Equal(t, action, res.Action)
		assert.Equal(t, post.ID, res.PostID)
	}

	var p models.Post
	f.reload(t, &p, post.ID)
	assert.Equal(t, 1, p.UpvoteCount)

	var votes []models.Vote
	require.NoError(t, f.db.Where("target_type = ? AND target_id = ?", models.TargetPost, post.ID).Find(&votes).Error)
	require.Len(t, votes, 1)
	assert.Equal(t, 0.5, votes[0].Weight)
	assert.True(t, votes[0].Rewarded)

	assert.Equal(t, PrivilegedSeedPoints+EventQuestionUpvoted.Delta(), f.points(t, author.UserID))
	assert.Equal(t, 1, f.points(t, voter.UserID))
}

func TestToggleVoteConcurrentSameVoter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	author := f.user(t, "author", models.RoleContributor)
	voter := f.user(t, "voter", models.RoleUser)
	post := f.question(t, author, "Visa interview tips")

	const n = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		actions = map[VoteAction]int{}
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.votes.ToggleVote(ctx, voter, models.TargetPost, post.ID)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			actions[res.Action]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, n/2, actions[VoteAdded])
	assert.Equal(t, n/2, actions[VoteRemoved])

	var p models.Post
	f.reload(t, &p, post.ID)
	assert.Equal(t, 0, p.UpvoteCount)

	var rows int64
	require.NoError(t, f.db.Model(&models.Vote{}).Where("target_id = ?", post.ID).Count(&rows).Error)
	assert.Zero(t, rows)
	assert.Equal(t, PrivilegedSeedPoints, f.points(t, author.UserID))
	assert.Equal(t, 0, f.points(t, voter.UserID))
}

func TestToggleVoteConcurrentVoters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	author := f.user(t, "author", models.RoleContributor)
	post := f.question(t, author, "Choosing an advisor")

	voters := make([]Identity, 8)
	for i := range voters {
		voters[i] = f.user(t, "voter"+string(rune('a'+i)), models.RoleUser)
	}

	var wg sync.WaitGroup
	for _, v := range voters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.votes.ToggleVote(ctx, v, models.TargetPost, post.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var p models.Post
	f.reload(t, &p, post.ID)
	assert.Equal(t, len(voters), p.UpvoteCount)
	assert.Equal(t, PrivilegedSeedPoints+len(voters)*EventQuestionUpvoted.Delta(), f.points(t, author.UserID))
}

func TestToggleVoteRejectsBeforeSideEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	author := f.user(t, "author", models.RoleContributor)
	voter := f.user(t, "voter", models.RoleUser)
	post := f.question(t, author, "Housing near campus")

	_, err := f.votes.ToggleVote(ctx, Identity{}, models.TargetPost, post.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.votes.ToggleVote(ctx, voter, models.TargetType("user"), post.ID)
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, err = f.votes.ToggleVote(ctx, voter, models.TargetPost, post.ID+1000)
	assert.ErrorIs(t, err, ErrPostNotFound)

	_, err = f.votes.ToggleVote(ctx, voter, models.TargetComment, 999)
	assert.ErrorIs(t, err, ErrCommentNotFound)

	var rows int64
	require.NoError(t, f.db.Model(&models.Vote{}).Count(&rows).Error)
	assert.Zero(t, rows)
	require.NoError(t, f.db.Model(&models.ReputationLog{}).Where("user_id = ?", voter.UserID).Count(&rows).Error)
	assert.Zero(t, rows)
}

func TestToggleVoteRateLimited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.votes = NewVoteService(f.db, f.reputation, NewMemoryVoteLimiter(Limits{PerMinute: 2}), nil, zap.NewNop())

	author := f.user(t, "author", models.RoleContributor)
	voter := f.user(t, "voter", models.RoleUser)
	post := f.question(t, author, "Scholarship deadlines")

	for range 2 {
		_, err := f.votes.ToggleVote(ctx, voter, models.TargetPost, post.ID)
		require.NoError(t, err)
	}

	_, err := f.votes.ToggleVote(ctx, voter, models.TargetPost, post.ID)
	require.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, KindRateLimited, KindOf(err))

	var p models.Post
	f.reload(t, &p, post.ID)
	assert.Equal(t, 0, p.UpvoteCount, "rejected toggle must not be applied")
	assert.Equal(t, PrivilegedSeedPoints, f.points(t, author.UserID))
}

func TestCommentVoteReputationAndHelpfulCounter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	asker := f.user(t, "asker", models.RoleContributor)
	answerer := f.user(t, "answerer", models.RoleUser)
	voter := f.user(t, "voter", models.RoleUser)
	post := f.question(t, asker, "Writing a research proposal")
	c := f.answer(t, answerer, post.ID)

	res, err := f.votes.ToggleVote(ctx, voter, models.TargetComment, c.ID)
	require.NoError(t, err)
	assert.Equal(t, VoteResult{Action: VoteAdded, Count: 1, PostID: post.ID}, res)

	st, err := f.reputation.Get(ctx, answerer.UserID)
	require.NoError(t, err)
	assert.Equal(t, EventAnswerUpvoted.Delta(), st.ReputationPoints)
	assert.Equal(t, 1, st.HelpfulAnswersCount)

	// self vote counts but earns nothing
	res, err = f.votes.ToggleVote(ctx, answerer, models.TargetComment, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, EventAnswerUpvoted.Delta()+EventVoteCast.Delta(), f.points(t, answerer.UserID))

	_, err = f.votes.ToggleVote(ctx, voter, models.TargetComment, c.ID)
	require.NoError(t, err)
	_, err = f.votes.ToggleVote(ctx, answerer, models.TargetComment, c.ID)
	require.NoError(t, err)

	st, err = f.reputation.Get(ctx, answerer.UserID)
	require.NoError(t, err)
	assert.Equal(t, 0, st.ReputationPoints)
	assert.Equal(t, 0, st.HelpfulAnswersCount)

	var got models.Comment
	f.reload(t, &got, c.ID)
	assert.Equal(t, 0, got.UpvoteCount)
}

func TestVoteRewardDailyCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.reputation.dailyRewardLimit = 2

	author := f.user(t, "author", models.RoleContributor)
	voter := f.user(t, "voter", models.RoleUser)
	posts := []*models.Post{
		f.question(t, author, "First question"),
		f.question(t, author, "Second question"),
		f.question(t, author, "Third question"),
	}

	for _, p := range posts {
		_, err := f.votes.ToggleVote(ctx, voter, models.TargetPost, p.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, f.points(t, voter.UserID))

	var third models.Vote
	require.NoError(t, f.db.Where("user_id = ? AND target_id = ?", voter.UserID, posts[2].ID).Take(&third).Error)
	assert.False(t, third.Rewarded)

	// removing the unrewarded vote takes nothing back
	_, err := f.votes.ToggleVote(ctx, voter, models.TargetPost, posts[2].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, f.points(t, voter.UserID))

	_, err = f.votes.ToggleVote(ctx, voter, models.TargetPost, posts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.points(t, voter.UserID))
}

func TestRecordView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	author := f.user(t, "author", models.RoleContributor)
	post := f.question(t, author, "Library access")

	for range 3 {
		require.NoError(t, f.votes.RecordView(ctx, post.ID))
	}
	var p models.Post
	f.reload(t, &p, post.ID)
	assert.Equal(t, 3, p.ViewCount)

	assert.ErrorIs(t, f.votes.RecordView(ctx, post.ID+1), ErrPostNotFound)
}
