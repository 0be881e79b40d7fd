package router

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/papercomputeco/tabletalk/pkg/conversation"
)

// Kind tags a Classification as usable or not.
type Kind int

const (
	Malformed Kind = iota
	Ok
)

func (k Kind) String() string {
	if k == Ok {
		return "ok"
	}
	return "malformed"
}

// Tier records which parser accepted the classifier output.
type Tier string

const (
	TierJSON    Tier = "json"
	TierRecord  Tier = "record"
	TierPattern Tier = "pattern"
	TierNone    Tier = "none"
)

// Classification is the parsed classifier answer. When Kind is Ok, Route is
// always a handler route. Subject is the raw extracted subject, empty when
// absent; it has not been checked against the candidates yet.
type Classification struct {
	Kind    Kind
	Route   conversation.Route
	Subject string
	Tier    Tier
}

var (
	routePattern   = regexp.MustCompile(`route\s*=\s*([a-z_]+)`)
	subjectPattern = regexp.MustCompile(`(?m)subject\s*=\s*(.+)$`)
)

// ParseClassification parses raw classifier output. It is total: every input,
// including garbage, yields a Classification.
func ParseClassification(raw string) Classification {
	if c, ok := parseJSON(raw); ok {
		return c
	}
	if c, ok := parseRecord(raw); ok {
		return c
	}
	if c, ok := parsePattern(raw); ok {
		return c
	}
	return Classification{Kind: Malformed, Route: conversation.RouteChat, Tier: TierNone}
}

func parseJSON(raw string) (Classification, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Classification{}, false
	}

	var obj struct {
		Route   *string `json:"route"`
		Subject any     `json:"subject"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &obj); err != nil || obj.Route == nil {
		return Classification{}, false
	}

	subject, _ := obj.Subject.(string)
	return Classification{
		Kind:    Ok,
		Route:   normalizeRoute(*obj.Route),
		Subject: normalizeSubject(subject),
		Tier:    TierJSON,
	}, true
}

// parseRecord accepts a single line of the form "route=x; subject=y".
func parseRecord(raw string) (Classification, bool) {
	for _, line := range strings.Split(raw, "\n") {
		var (
			route, subject       string
			hasRoute, hasSubject bool
		)
		for _, field := range strings.Split(line, ";") {
			key, value, ok := strings.Cut(field, "=")
			if !ok {
				continue
			}
			switch strings.ToLower(strings.TrimSpace(key)) {
			case "route":
				route, hasRoute = strings.TrimSpace(value), true
			case "subject":
				subject, hasSubject = strings.TrimSpace(value), true
			}
		}
		if hasRoute && hasSubject && route != "" {
			return Classification{
				Kind:    Ok,
				Route:   normalizeRoute(route),
				Subject: normalizeSubject(subject),
				Tier:    TierRecord,
			}, true
		}
	}
	return Classification{}, false
}

func parsePattern(raw string) (Classification, bool) {
	routeMatch := routePattern.FindStringSubmatch(raw)
	subjectMatch := subjectPattern.FindStringSubmatch(raw)
	if routeMatch == nil && subjectMatch == nil {
		return Classification{}, false
	}

	c := Classification{Kind: Ok, Route: conversation.RouteChat, Tier: TierPattern}
	if routeMatch != nil {
		c.Route = normalizeRoute(routeMatch[1])
	}
	if subjectMatch != nil {
		c.Subject = normalizeSubject(subjectMatch[1])
	}
	return c, true
}

func normalizeRoute(s string) conversation.Route {
	r, ok := conversation.ParseRoute(strings.ToLower(strings.TrimSpace(s)))
	if !ok {
		return conversation.RouteChat
	}
	return r
}

func normalizeSubject(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'`[]<>")
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "null", "none", "nil":
		return ""
	}
	return s
}
