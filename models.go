package xbridge

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// EngagementMetrics holds the non-negative interaction counts for a tweet.
type EngagementMetrics struct {
	Likes    int64 `json:"likes"`
	Retweets int64 `json:"retweets"`
	Replies  int64 `json:"replies"`
	Views    int64 `json:"views"`
}

// NewEngagementMetrics validates and builds engagement counts. Negative
// counts are evidence of an upstream bug and are rejected, not clamped.
func NewEngagementMetrics(likes, retweets, replies, views int64) (EngagementMetrics, error) {
	for _, c := range []struct {
		name  string
		value int64
	}{
		{"likes", likes}, {"retweets", retweets}, {"replies", replies}, {"views", views},
	} {
		if c.value < 0 {
			return EngagementMetrics{}, &MalformedResponseError{Field: c.name, Reason: fmt.Sprintf("negative count %d", c.value)}
		}
	}
	return EngagementMetrics{Likes: likes, Retweets: retweets, Replies: replies, Views: views}, nil
}

// TotalEngagements sums interactions, excluding passive views.
func (m EngagementMetrics) TotalEngagements() int64 {
	return m.Likes + m.Retweets + m.Replies
}

// EngagementRate is interactions per view; zero when views are unknown.
func (m EngagementMetrics) EngagementRate() float64 {
	if m.Views == 0 {
		return 0
	}
	return float64(m.TotalEngagements()) / float64(m.Views)
}

// Sentiment classifies the tone of a tweet's text.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// ParseSentiment validates a sentiment label. Unknown values are rejected
// rather than silently defaulted.
func ParseSentiment(v string) (Sentiment, error) {
	switch Sentiment(v) {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return Sentiment(v), nil
	}
	return "", &MalformedResponseError{Field: "sentiment", Reason: fmt.Sprintf("unknown value %q", v)}
}

// ContentFeatures carries per-tweet content analysis signals.
type ContentFeatures struct {
	HasQuestion bool      `json:"hasQuestion"`
	HasMedia    bool      `json:"hasMedia"`
	HasLinks    bool      `json:"hasLinks"`
	HasHashtags bool      `json:"hasHashtags"`
	HasMentions bool      `json:"hasMentions"`
	Length      int       `json:"length"`
	WordCount   int       `json:"wordCount"`
	Sentiment   Sentiment `json:"sentiment"`
	Topics      []string  `json:"topics"`
	Language    string    `json:"language"`
}

// IsEngaging reports whether the content shows any engagement-driving signal.
func (f ContentFeatures) IsEngaging() bool {
	return f.HasQuestion || f.HasMedia || f.Sentiment == SentimentPositive || len(f.Topics) > 0
}

// Profile is a user profile as reported by the bridge.
type Profile struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	Bio         string    `json:"bio"`
	Avatar      string    `json:"avatar,omitempty"`
	Verified    bool      `json:"verified"`
	Followers   int64     `json:"followers"`
	Following   int64     `json:"following"`
	Location    string    `json:"location,omitempty"`
	URL         string    `json:"url,omitempty"`
	JoinDate    time.Time `json:"joinDate,omitzero"`
	TweetCount  int64     `json:"tweetCount"`
	PinnedTweet string    `json:"pinnedTweet,omitempty"`
}

// FollowerRatio is followers per following. Infinite for accounts that follow
// nobody but have followers, zero for empty accounts.
func (p Profile) FollowerRatio() float64 {
	if p.Following == 0 {
		if p.Followers > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return float64(p.Followers) / float64(p.Following)
}

// IsInfluential reports whether the profile crosses any influence threshold:
// verified, at least 5000 followers, or a follower ratio of 5 or more.
func (p Profile) IsInfluential() bool {
	if p.Verified || p.Followers >= 5000 {
		return true
	}
	ratio := p.FollowerRatio()
	return !math.IsInf(ratio, 1) && ratio >= 5.0
}

// Media is one attached media item.
type Media struct {
	Type string `json:"type,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Tweet is the normalized tweet entity. IDs stay strings end to end: upstream
// IDs exceed the safe-integer range of downstream JSON consumers. CreatedAt
// is always UTC so it marshals with a literal "Z" suffix.
type Tweet struct {
	ID             string            `json:"id"`
	Text           string            `json:"text"`
	User           Profile           `json:"user"`
	CreatedAt      time.Time         `json:"createdAt"`
	Engagement     EngagementMetrics `json:"engagement"`
	Features       ContentFeatures   `json:"features"`
	URLs           []string          `json:"urls"`
	Hashtags       []string          `json:"hashtags"`
	Mentions       []string          `json:"mentions"`
	Media          []Media           `json:"media"`
	IsRetweet      bool              `json:"isRetweet"`
	IsReply        bool              `json:"isReply"`
	IsThread       bool              `json:"isThread"`
	ThreadPosition int               `json:"threadPosition,omitempty"`
	QuotedTweet    json.RawMessage   `json:"quotedTweet,omitempty"`
	RetweetedTweet json.RawMessage   `json:"retweetedTweet,omitempty"`
}

// AgeHours is the tweet's age at the time of the call.
func (t *Tweet) AgeHours() float64 {
	return time.Since(t.CreatedAt).Hours()
}

// Action is a recommended operation on a tweet or profile.
type Action string

const (
	ActionLike     Action = "like"
	ActionRetweet  Action = "retweet"
	ActionReply    Action = "reply"
	ActionFollow   Action = "follow"
	ActionUnfollow Action = "unfollow"
	ActionMute     Action = "mute"
	ActionBlock    Action = "block"
)

// Priority ranks recommendations.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Recommendation is produced by downstream analysis; the shape is part of
// this module's data contract even though no analysis happens here.
type Recommendation struct {
	ActionType Action   `json:"actionType"`
	TargetID   string   `json:"targetId"`
	TargetType string   `json:"targetType"`
	Priority   Priority `json:"priority"`
	Confidence float64  `json:"confidenceScore"`
	Reasoning  string   `json:"reasoning,omitempty"`
	Timing     string   `json:"timingSuggestion,omitempty"`
}

// NewRecommendation validates enumerations and the confidence range.
func NewRecommendation(action Action, targetID, targetType string, priority Priority, confidence float64) (Recommendation, error) {
	switch action {
	case ActionLike, ActionRetweet, ActionReply, ActionFollow, ActionUnfollow, ActionMute, ActionBlock:
	default:
		return Recommendation{}, fmt.Errorf("invalid action type %q", action)
	}
	switch priority {
	case PriorityHigh, PriorityMedium, PriorityLow:
	default:
		return Recommendation{}, fmt.Errorf("invalid priority %q", priority)
	}
	if confidence < 0 || confidence > 1 {
		return Recommendation{}, fmt.Errorf("confidence %v out of [0,1]", confidence)
	}
	return Recommendation{
		ActionType: action,
		TargetID:   targetID,
		TargetType: targetType,
		Priority:   priority,
		Confidence: confidence,
		Timing:     "immediate",
	}, nil
}

// IsHighConfidence reports whether the recommendation clears the 0.8 bar.
func (r Recommendation) IsHighConfidence() bool {
	return r.Confidence >= 0.8
}
