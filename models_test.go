package xbridge

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewEngagementMetrics(t *testing.T) {
	m, err := NewEngagementMetrics(10, 5, 2, 1000)
	require.NoError(t, err)
	require.Equal(t, int64(17), m.TotalEngagements())
	require.InDelta(t, 0.017, m.EngagementRate(), 1e-9)

	noViews, err := NewEngagementMetrics(3, 0, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 0.0, noViews.EngagementRate())
}

func TestNewEngagementMetricsRejectsNegative(t *testing.T) {
	tests := []struct {
		name                           string
		likes, retweets, replies, view int64
		field                          string
	}{
		{"likes", -1, 0, 0, 0, "likes"},
		{"retweets", 0, -5, 0, 0, "retweets"},
		{"replies", 0, 0, -1, 0, "replies"},
		{"views", 0, 0, 0, -100, "views"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngagementMetrics(tt.likes, tt.retweets, tt.replies, tt.view)
			var malformed *MalformedResponseError
			require.ErrorAs(t, err, &malformed)
			require.Equal(t, tt.field, malformed.Field)
		})
	}
}

func TestParseSentiment(t *testing.T) {
	for _, valid := range []string{"positive", "negative", "neutral"} {
		s, err := ParseSentiment(valid)
		require.NoError(t, err)
		require.Equal(t, Sentiment(valid), s)
	}

	for _, invalid := range []string{"", "angry", "POSITIVE", "happy"} {
		_, err := ParseSentiment(invalid)
		require.Error(t, err, "sentiment %q should be rejected", invalid)
	}
}

func TestProfileFollowerRatio(t *testing.T) {
	require.Equal(t, 10.0, Profile{Followers: 100, Following: 10}.FollowerRatio())
	require.True(t, math.IsInf(Profile{Followers: 5, Following: 0}.FollowerRatio(), 1))
	require.Equal(t, 0.0, Profile{}.FollowerRatio())
}

func TestProfileIsInfluential(t *testing.T) {
	tests := []struct {
		name     string
		p        Profile
		expected bool
	}{
		{"verified", Profile{Verified: true}, true},
		{"many followers", Profile{Followers: 5000, Following: 5000}, true},
		{"high ratio", Profile{Followers: 50, Following: 10}, true},
		{"infinite ratio alone does not count", Profile{Followers: 5, Following: 0}, false},
		{"ordinary account", Profile{Followers: 100, Following: 100}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.IsInfluential(); got != tt.expected {
				t.Fatalf("IsInfluential() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTweetMarshalsCamelCaseWithZSuffix(t *testing.T) {
	tweet := Tweet{
		ID:        "1234567890123456789",
		Text:      "hello",
		CreatedAt: time.Date(2018, 10, 10, 20, 19, 24, 0, time.UTC),
		Engagement: EngagementMetrics{
			Likes: 5, Retweets: 2,
		},
		Features: deriveFeatures("hello", false),
		URLs:     []string{},
		Hashtags: []string{},
		Mentions: []string{},
		Media:    []Media{},
	}

	raw, err := json.Marshal(&tweet)
	require.NoError(t, err)

	s := string(raw)
	require.Contains(t, s, `"createdAt":"2018-10-10T20:19:24Z"`)
	require.Contains(t, s, `"isRetweet":false`)
	require.Contains(t, s, `"wordCount":1`)
	require.NotContains(t, s, `+00:00`)
	require.NotContains(t, s, `is_retweet`)
}

func TestTweetAgeHours(t *testing.T) {
	tweet := Tweet{CreatedAt: time.Now().UTC().Add(-2 * time.Hour)}
	require.InDelta(t, 2.0, tweet.AgeHours(), 0.1)
}

func TestNewRecommendation(t *testing.T) {
	rec, err := NewRecommendation(ActionLike, "123", "tweet", PriorityHigh, 0.9)
	require.NoError(t, err)
	require.True(t, rec.IsHighConfidence())
	require.Equal(t, "immediate", rec.Timing)

	low, err := NewRecommendation(ActionReply, "123", "tweet", PriorityLow, 0.4)
	require.NoError(t, err)
	require.False(t, low.IsHighConfidence())
}

func TestNewRecommendationValidation(t *testing.T) {
	tests := []struct {
		name       string
		action     Action
		priority   Priority
		confidence float64
	}{
		{"bad action", Action("poke"), PriorityHigh, 0.5},
		{"empty action", Action(""), PriorityHigh, 0.5},
		{"bad priority", ActionLike, Priority("urgent"), 0.5},
		{"confidence too low", ActionLike, PriorityHigh, -0.1},
		{"confidence too high", ActionLike, PriorityHigh, 1.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRecommendation(tt.action, "123", "tweet", tt.priority, tt.confidence); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestRecommendationMarshalsCamelCase(t *testing.T) {
	rec, err := NewRecommendation(ActionFollow, "999", "profile", PriorityMedium, 0.7)
	require.NoError(t, err)

	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"actionType":"follow"`)
	require.Contains(t, string(raw), `"targetId":"999"`)
	require.Contains(t, string(raw), `"confidenceScore":0.7`)
}
