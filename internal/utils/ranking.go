package utils

import (
	"sort"
	"time"
)

// TrendingWindow 超过该时长未活跃的帖子不参与热门
const TrendingWindow = 7 * 24 * time.Hour

type TrendingWeights struct {
	Comment  float64
	Upvote   float64
	View     float64
	Accepted float64
}

var DefaultWeights = TrendingWeights{
	Comment:  50,
	Upvote:   10,
	View:     0.5,
	Accepted: 20,
}

// TrendingInput is the subset of a post the trending score depends on.
type TrendingInput struct {
	CommentCount   int
	UpvoteCount    int
	ViewCount      int
	HasAccepted    bool
	LastActivityAt *time.Time
	PublishedAt    *time.Time
	CreatedAt      time.Time
}

// ActivityTime falls back from last activity to publication to creation.
func (in TrendingInput) ActivityTime() time.Time {
	if in.LastActivityAt != nil {
		return *in.LastActivityAt
	}
	if in.PublishedAt != nil {
		return *in.PublishedAt
	}
	return in.CreatedAt
}

// TrendingScore is zero outside the recency window. Activity later than asOf
// counts as recent.
func TrendingScore(in TrendingInput, asOf time.Time) float64 {
	if asOf.Sub(in.ActivityTime()) > TrendingWindow {
		return 0
	}

	w := DefaultWeights
	score := float64(in.CommentCount)*w.Comment +
		float64(in.UpvoteCount)*w.Upvote +
		float64(in.ViewCount)*w.View
	if in.HasAccepted {
		score += w.Accepted
	}
	return score
}

type Ranked struct {
	PostID   uint      `json:"post_id"`
	Score    float64   `json:"score"`
	Activity time.Time `json:"activity_at"`
}

// SortTrending orders by score, then by most recent activity.
func SortTrending(items []Ranked) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Activity.After(items[j].Activity)
	})
}
