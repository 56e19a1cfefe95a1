package xbridge

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// The bridge emits camelCase, the upstream API snake_case, and older bridge
// builds passed upstream payloads through untouched. The normalizer checks
// every known spelling of a field before falling back to a default, and
// rejects the payload outright when a required field is missing or of the
// wrong shape.

// NormalizeTweet converts one raw tweet payload into a Tweet.
func NormalizeTweet(raw []byte) (*Tweet, error) {
	return normalizeTweet(gjson.ParseBytes(raw))
}

// NormalizeTweets converts a raw array of tweet payloads. Any malformed
// element fails the whole batch: partial timelines silently dropping entries
// are worse than a loud error.
func NormalizeTweets(raw []byte) ([]*Tweet, error) {
	parsed := gjson.ParseBytes(raw)
	if !parsed.IsArray() {
		return nil, &MalformedResponseError{Field: "data", Reason: "expected array of tweets"}
	}
	items := parsed.Array()
	tweets := make([]*Tweet, 0, len(items))
	for i, item := range items {
		t, err := normalizeTweet(item)
		if err != nil {
			return nil, fmt.Errorf("tweet %d: %w", i, err)
		}
		tweets = append(tweets, t)
	}
	return tweets, nil
}

// NormalizeProfile converts a raw user payload into a Profile.
func NormalizeProfile(raw []byte) (Profile, error) {
	parsed := gjson.ParseBytes(raw)
	if !parsed.IsObject() {
		return Profile{}, &MalformedResponseError{Field: "user", Reason: "expected object"}
	}
	return normalizeProfile(parsed), nil
}

func normalizeTweet(r gjson.Result) (*Tweet, error) {
	if !r.IsObject() {
		return nil, &MalformedResponseError{Field: "tweet", Reason: "expected object"}
	}

	id, err := requiredID(r, "id", "id", "idStr", "id_str")
	if err != nil {
		return nil, err
	}

	createdRaw := firstOf(r, "createdAt", "created_at")
	if !createdRaw.Exists() {
		return nil, &MalformedResponseError{Field: "createdAt", Reason: "missing"}
	}
	if createdRaw.Type != gjson.String {
		return nil, &MalformedResponseError{Field: "createdAt", Reason: "expected string timestamp"}
	}
	createdAt, err := parseTimestamp(createdRaw.String())
	if err != nil {
		return nil, &MalformedResponseError{Field: "createdAt", Reason: err.Error()}
	}

	text := firstOf(r, "text", "fullText", "full_text").String()

	engagement, err := normalizeEngagement(r)
	if err != nil {
		return nil, err
	}

	media := mediaList(firstOf(r, "media"))
	features, err := normalizeFeatures(firstOf(r, "features"), text, len(media) > 0)
	if err != nil {
		return nil, err
	}

	t := &Tweet{
		ID:             id,
		Text:           text,
		User:           normalizeProfile(firstOf(r, "user", "author")),
		CreatedAt:      createdAt,
		Engagement:     engagement,
		Features:       features,
		URLs:           urlList(firstOf(r, "urls")),
		Hashtags:       stringList(firstOf(r, "hashtags")),
		Mentions:       stringList(firstOf(r, "mentions")),
		Media:          media,
		IsRetweet:      firstOf(r, "isRetweet", "is_retweet").Bool(),
		IsReply:        firstOf(r, "isReply", "is_reply").Bool(),
		IsThread:       firstOf(r, "isThread", "is_thread").Bool(),
		ThreadPosition: int(firstOf(r, "threadPosition", "thread_position").Int()),
	}
	if v := firstOf(r, "quotedTweet", "quoted_tweet"); v.Exists() && v.Type != gjson.Null {
		t.QuotedTweet = json.RawMessage(v.Raw)
	}
	if v := firstOf(r, "retweetedTweet", "retweeted_tweet"); v.Exists() && v.Type != gjson.Null {
		t.RetweetedTweet = json.RawMessage(v.Raw)
	}
	return t, nil
}

func normalizeProfile(r gjson.Result) Profile {
	if !r.IsObject() {
		return Profile{}
	}

	joinDate := time.Time{}
	if v := firstOf(r, "joinDate", "join_date", "createdAt", "created_at"); v.Type == gjson.String {
		// Join date is cosmetic; a bad value degrades to unset.
		if t, err := parseTimestamp(v.String()); err == nil {
			joinDate = t
		}
	}

	return Profile{
		ID:          optionalID(r, "id", "idStr", "id_str", "restId", "rest_id"),
		Username:    firstOf(r, "username", "screenName", "screen_name").String(),
		DisplayName: firstOf(r, "displayName", "display_name", "name").String(),
		Bio:         firstOf(r, "bio", "description").String(),
		Avatar:      firstOf(r, "avatar", "profileImageUrl", "profile_image_url_https").String(),
		Verified:    firstOf(r, "verified", "isVerified", "is_verified").Bool() || firstOf(r, "isBlueVerified", "is_blue_verified").Bool(),
		Followers:   firstOf(r, "followers", "followersCount", "followers_count").Int(),
		Following:   firstOf(r, "following", "followingCount", "following_count", "friendsCount", "friends_count").Int(),
		Location:    firstOf(r, "location").String(),
		URL:         firstOf(r, "url").String(),
		JoinDate:    joinDate,
		TweetCount:  firstOf(r, "tweetCount", "tweet_count", "statusesCount", "statuses_count").Int(),
		PinnedTweet: firstOf(r, "pinnedTweet", "pinned_tweet").String(),
	}
}

// normalizeEngagement reads the nested engagement object when present, and
// otherwise the legacy flat upstream counters. Negative counts are rejected.
func normalizeEngagement(r gjson.Result) (EngagementMetrics, error) {
	likesKeys := []string{"likes", "favoriteCount", "favorite_count"}
	retweetsKeys := []string{"retweets", "retweetCount", "retweet_count"}
	repliesKeys := []string{"replies", "replyCount", "reply_count"}
	viewsKeys := []string{"views", "viewCount", "view_count"}

	src := r
	if eng := firstOf(r, "engagement"); eng.IsObject() {
		src = eng
	}

	likes, err := countOf(src, "likes", likesKeys)
	if err != nil {
		return EngagementMetrics{}, err
	}
	retweets, err := countOf(src, "retweets", retweetsKeys)
	if err != nil {
		return EngagementMetrics{}, err
	}
	replies, err := countOf(src, "replies", repliesKeys)
	if err != nil {
		return EngagementMetrics{}, err
	}
	views, err := countOf(src, "views", viewsKeys)
	if err != nil {
		return EngagementMetrics{}, err
	}

	return NewEngagementMetrics(likes, retweets, replies, views)
}

// countOf resolves one engagement counter. Upstream sometimes wraps views as
// {"count":"1000"}, so object values fall through to their count field.
func countOf(r gjson.Result, field string, keys []string) (int64, error) {
	v := firstOf(r, keys...)
	if !v.Exists() || v.Type == gjson.Null {
		return 0, nil
	}
	if v.IsObject() {
		v = v.Get("count")
		if !v.Exists() {
			return 0, nil
		}
	}
	n := v.Int()
	if n < 0 {
		return 0, &MalformedResponseError{Field: field, Reason: fmt.Sprintf("negative count %d", n)}
	}
	return n, nil
}

// normalizeFeatures merges bridge-provided feature flags over text-derived
// defaults. An unknown sentiment label is a contract violation.
func normalizeFeatures(r gjson.Result, text string, hasMedia bool) (ContentFeatures, error) {
	f := deriveFeatures(text, hasMedia)
	if !r.IsObject() {
		return f, nil
	}

	boolOverride(&f.HasQuestion, r, "hasQuestion", "has_question")
	boolOverride(&f.HasMedia, r, "hasMedia", "has_media")
	boolOverride(&f.HasLinks, r, "hasLinks", "has_links")
	boolOverride(&f.HasHashtags, r, "hasHashtags", "has_hashtags")
	boolOverride(&f.HasMentions, r, "hasMentions", "has_mentions")
	if v := firstOf(r, "length"); v.Exists() {
		f.Length = int(v.Int())
	}
	if v := firstOf(r, "wordCount", "word_count"); v.Exists() {
		f.WordCount = int(v.Int())
	}
	if v := firstOf(r, "language"); v.Exists() {
		f.Language = v.String()
	}
	if v := firstOf(r, "topics"); v.Exists() {
		f.Topics = stringList(v)
	}
	if v := firstOf(r, "sentiment"); v.Exists() {
		s, err := ParseSentiment(v.String())
		if err != nil {
			return ContentFeatures{}, err
		}
		f.Sentiment = s
	}
	return f, nil
}

// deriveFeatures computes content signals from the text itself, used whenever
// the bridge omits the features object.
func deriveFeatures(text string, hasMedia bool) ContentFeatures {
	return ContentFeatures{
		HasQuestion: strings.Contains(text, "?"),
		HasMedia:    hasMedia,
		HasLinks:    strings.Contains(strings.ToLower(text), "http"),
		HasHashtags: strings.Contains(text, "#"),
		HasMentions: strings.Contains(text, "@"),
		Length:      utf8.RuneCountInString(text),
		WordCount:   len(strings.Fields(text)),
		Sentiment:   SentimentNeutral,
		Topics:      []string{},
		Language:    "en",
	}
}

// boolOverride replaces *dst when any of the keys is present on r.
func boolOverride(dst *bool, r gjson.Result, keys ...string) {
	if v := firstOf(r, keys...); v.Exists() {
		*dst = v.Bool()
	}
}

// firstOf returns the first key present on r, in preference order.
func firstOf(r gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

// requiredID extracts a mandatory identifier. IDs are kept as strings:
// upstream IDs exceed float64's safe-integer range, so numeric JSON values
// are taken from the raw token, never through a float.
func requiredID(r gjson.Result, field string, keys ...string) (string, error) {
	v := firstOf(r, keys...)
	switch {
	case !v.Exists():
		return "", &MalformedResponseError{Field: field, Reason: "missing"}
	case v.Type == gjson.String:
		if v.String() == "" {
			return "", &MalformedResponseError{Field: field, Reason: "empty"}
		}
		return v.String(), nil
	case v.Type == gjson.Number:
		return v.Raw, nil
	default:
		return "", &MalformedResponseError{Field: field, Reason: "expected string"}
	}
}

// optionalID is requiredID for fields that may be absent.
func optionalID(r gjson.Result, keys ...string) string {
	v := firstOf(r, keys...)
	if v.Type == gjson.Number {
		return v.Raw
	}
	return v.String()
}

func stringList(r gjson.Result) []string {
	out := []string{}
	if !r.IsArray() {
		return out
	}
	for _, v := range r.Array() {
		out = append(out, v.String())
	}
	return out
}

// urlList accepts both plain URL strings and entity objects.
func urlList(r gjson.Result) []string {
	out := []string{}
	if !r.IsArray() {
		return out
	}
	for _, v := range r.Array() {
		if v.IsObject() {
			if u := firstOf(v, "url", "expandedUrl", "expanded_url"); u.Exists() {
				out = append(out, u.String())
			}
			continue
		}
		out = append(out, v.String())
	}
	return out
}

func mediaList(r gjson.Result) []Media {
	out := []Media{}
	if !r.IsArray() {
		return out
	}
	for _, v := range r.Array() {
		if v.IsObject() {
			out = append(out, Media{
				Type: firstOf(v, "type", "mediaType", "media_type").String(),
				URL:  firstOf(v, "url", "mediaUrl", "media_url_https").String(),
			})
			continue
		}
		out = append(out, Media{URL: v.String()})
	}
	return out
}

// timeLayouts are tried in order. Layouts without zone information parse as
// UTC, which is the required reading for timezone-naive input.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Mon Jan 02 15:04:05 -0700 2006", // upstream legacy created_at
}

// parseTimestamp accepts ISO-8601 variants and the upstream legacy format,
// returning the instant in UTC so serialization always carries a "Z" suffix
// rather than a "+00:00" offset.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
