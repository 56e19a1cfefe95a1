package xbridge

import (
	"fmt"
	"net/http"
	"net/url"
)

// endpoint describes one bridge route. Paths, methods, and parameter names
// are the bridge's fixed contract and must be sent byte-for-byte.
type endpoint struct {
	Name   string
	Method string
	Path   string
}

// url renders the request path, substituting the positional argument when the
// template has one. Arguments are path-escaped.
func (e endpoint) url(arg string) string {
	if arg == "" {
		return e.Path
	}
	return fmt.Sprintf(e.Path, url.PathEscape(arg))
}

var endpoints = map[string]endpoint{
	"Timeline":  {Name: "Timeline", Method: http.MethodPost, Path: "/api/timeline"},
	"TweetByID": {Name: "TweetByID", Method: http.MethodGet, Path: "/api/tweet/%s"},
}

// timelineRequest is the POST /api/timeline body. The bridge re-validates the
// essential cookies it receives in the payload.
type timelineRequest struct {
	Count          int               `json:"count"`
	IncludeReplies bool              `json:"includeReplies,omitempty"`
	Cookies        map[string]string `json:"cookies"`
}
