package xbridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

const defaultTimelineCount = 20

// Client is the top-level bridge client. It owns the Session for its
// lifetime; all fetches read the session atomically and LoadCookies replaces
// it wholesale, so concurrent fetches never observe a partial reload.
type Client struct {
	cfg        Config
	log        *slog.Logger
	dispatcher *dispatcher
	retrier    *retrier
	session    atomic.Pointer[Session]
}

// New creates a client for the configured bridge. Cookies must be loaded with
// LoadCookies before the first fetch.
func New(cfg Config) (*Client, error) {
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log := cfg.logger()
	return &Client{
		cfg:        cfg,
		log:        log,
		dispatcher: newDispatcher(cfg),
		retrier:    newRetrier(cfg, log),
	}, nil
}

// LoadCookies replaces the session from a raw cookie document produced by the
// browser collector. The swap is atomic: in-flight calls keep the session
// they started with.
func (c *Client) LoadCookies(raw []byte) error {
	sess, err := ParseCookies(raw)
	if err != nil {
		return err
	}
	c.session.Store(sess)
	c.log.Info("session loaded", slog.Int("cookies", sess.Len()))
	return nil
}

// IsLoaded reports whether a usable session is present.
func (c *Client) IsLoaded() bool {
	return c.session.Load() != nil
}

// currentSession fails fast instead of sending an unauthenticated request.
func (c *Client) currentSession() (*Session, error) {
	sess := c.session.Load()
	if sess == nil {
		return nil, &InvalidSessionError{Reason: "no cookies loaded"}
	}
	return sess, nil
}

// GetTimeline fetches up to count timeline tweets. A non-positive count uses
// the default; excess is capped silently before dispatch.
func (c *Client) GetTimeline(ctx context.Context, count int) ([]*Tweet, error) {
	return c.fetchTimeline(ctx, count, false)
}

// GetTweetsAndReplies fetches the timeline including reply tweets.
func (c *Client) GetTweetsAndReplies(ctx context.Context, count int) ([]*Tweet, error) {
	return c.fetchTimeline(ctx, count, true)
}

func (c *Client) fetchTimeline(ctx context.Context, count int, includeReplies bool) ([]*Tweet, error) {
	sess, err := c.currentSession()
	if err != nil {
		return nil, err
	}

	if count <= 0 {
		count = defaultTimelineCount
	}
	if count > c.cfg.MaxTimelineCount {
		c.log.Debug("timeline count capped",
			slog.Int("requested", count),
			slog.Int("max", c.cfg.MaxTimelineCount))
		count = c.cfg.MaxTimelineCount
	}

	ep := endpoints["Timeline"]
	body := timelineRequest{
		Count:          count,
		IncludeReplies: includeReplies,
		Cookies:        sess.Essentials(),
	}
	data, err := c.retrier.do(ctx, ep.Name, func(ctx context.Context) ([]byte, error) {
		return c.dispatcher.send(ctx, sess, ep, "", body)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ep.Name, err)
	}
	return NormalizeTweets(data)
}

// GetTweet fetches a single tweet by its string identifier.
func (c *Client) GetTweet(ctx context.Context, id string) (*Tweet, error) {
	sess, err := c.currentSession()
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("tweet id must not be empty")
	}

	ep := endpoints["TweetByID"]
	data, err := c.retrier.do(ctx, ep.Name, func(ctx context.Context) ([]byte, error) {
		return c.dispatcher.send(ctx, sess, ep, id, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ep.Name, err)
	}
	return NormalizeTweet(data)
}

// GetLatestTweet fetches the most recent timeline tweet.
func (c *Client) GetLatestTweet(ctx context.Context) (*Tweet, error) {
	tweets, err := c.GetTimeline(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(tweets) == 0 {
		return nil, fmt.Errorf("timeline is empty")
	}
	return tweets[0], nil
}

// SearchTweets is not supported by the bridge yet.
func (c *Client) SearchTweets(ctx context.Context, query string, count int) ([]*Tweet, error) {
	return nil, fmt.Errorf("search: %w", ErrNotImplemented)
}

// GetProfile is not supported by the bridge yet.
func (c *Client) GetProfile(ctx context.Context, username string) (Profile, error) {
	return Profile{}, fmt.Errorf("profile: %w", ErrNotImplemented)
}

// GetTrends is not supported by the bridge yet.
func (c *Client) GetTrends(ctx context.Context, location string) ([]string, error) {
	return nil, fmt.Errorf("trends: %w", ErrNotImplemented)
}

// GetMentions is not supported by the bridge yet.
func (c *Client) GetMentions(ctx context.Context, count int) ([]*Tweet, error) {
	return nil, fmt.Errorf("mentions: %w", ErrNotImplemented)
}
