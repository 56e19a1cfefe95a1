package xbridge

import (
	"encoding/json"
	"slices"
	"strings"
	"time"
)

// Cookie is a single authentication cookie captured from the browser.
type Cookie struct {
	Name    string
	Value   string
	Domain  string
	Expires time.Time
}

// Session is an immutable set of authentication cookies keyed by name.
// It is built once from externally captured cookies and replaced wholesale
// on reload; expiry is only ever detected by auth failures on real requests.
type Session struct {
	cookies []Cookie
	byName  map[string]int

	// rawHeader preserves the capture tool's pre-rendered Cookie header,
	// which may include cookies beyond the essentials.
	rawHeader string
}

// NewSession builds a Session from a cookie list. Duplicate names keep the
// last occurrence. Fails with InvalidSessionError when the list is empty or
// any cookie has a missing name or value.
func NewSession(cookies []Cookie) (*Session, error) {
	if len(cookies) == 0 {
		return nil, &InvalidSessionError{Reason: "no cookies supplied"}
	}

	s := &Session{byName: make(map[string]int, len(cookies))}
	for _, c := range cookies {
		if c.Name == "" || c.Value == "" {
			return nil, &InvalidSessionError{Reason: "cookie with empty name or value"}
		}
		if i, ok := s.byName[c.Name]; ok {
			s.cookies[i] = c
			continue
		}
		s.byName[c.Name] = len(s.cookies)
		s.cookies = append(s.cookies, c)
	}
	return s, nil
}

// Header renders the Cookie request header. When the session came from a
// capture document with a pre-rendered header, that header is used verbatim.
func (s *Session) Header() string {
	if s.rawHeader != "" {
		return s.rawHeader
	}
	parts := make([]string, 0, len(s.cookies))
	for _, c := range s.cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// Essentials returns the name→value map the bridge re-validates server-side.
func (s *Session) Essentials() map[string]string {
	m := make(map[string]string, len(s.cookies))
	for _, c := range s.cookies {
		m[c.Name] = c.Value
	}
	return m
}

// Get looks up a cookie by name.
func (s *Session) Get(name string) (Cookie, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Cookie{}, false
	}
	return s.cookies[i], true
}

// Len reports the number of distinct cookies.
func (s *Session) Len() int { return len(s.cookies) }

// captureDocument is the JSON shape produced by the browser cookie collector.
type captureDocument struct {
	CookieHeader string            `json:"cookieHeader"`
	Essentials   map[string]string `json:"essentials"`
	Cookies      []cookieObject    `json:"cookies"`
}

type cookieObject struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
}

// ParseCookies builds a Session from one of the three accepted JSON shapes:
// an object of name→value pairs, an array of {name,value} objects, or the
// capture document emitted by the browser collector. Only shape is validated,
// never provenance.
func ParseCookies(raw []byte) (*Session, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, &InvalidSessionError{Reason: "empty cookie document"}
	}

	if strings.HasPrefix(trimmed, "[") {
		var list []cookieObject
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, &InvalidSessionError{Reason: "cookie array: " + err.Error()}
		}
		return NewSession(cookieList(list))
	}

	var doc captureDocument
	if err := json.Unmarshal(raw, &doc); err == nil && (len(doc.Essentials) > 0 || len(doc.Cookies) > 0 || doc.CookieHeader != "") {
		cookies := pairsToCookies(doc.Essentials)
		if len(cookies) == 0 {
			cookies = cookieList(doc.Cookies)
		}
		s, err := NewSession(cookies)
		if err != nil {
			return nil, err
		}
		s.rawHeader = doc.CookieHeader
		return s, nil
	}

	var pairs map[string]string
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, &InvalidSessionError{Reason: "cookie document: " + err.Error()}
	}
	return NewSession(pairsToCookies(pairs))
}

func cookieList(list []cookieObject) []Cookie {
	cookies := make([]Cookie, 0, len(list))
	for _, c := range list {
		cookies = append(cookies, Cookie{Name: c.Name, Value: c.Value, Domain: c.Domain})
	}
	return cookies
}

func pairsToCookies(pairs map[string]string) []Cookie {
	names := make([]string, 0, len(pairs))
	for name := range pairs {
		names = append(names, name)
	}
	// Stable order so Header() output is deterministic.
	slices.Sort(names)
	cookies := make([]Cookie, 0, len(names))
	for _, name := range names {
		cookies = append(cookies, Cookie{Name: name, Value: pairs[name]})
	}
	return cookies
}
