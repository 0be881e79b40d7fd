// Package conversation holds the per-turn conversation state that flows
// through the router and handlers.
package conversation

import "github.com/papercomputeco/tabletalk/pkg/llm"

// State is the value passed between turn stages. Stages never mutate the
// State they receive: they return a new one built with the With* helpers,
// which copy slices before changing them.
type State struct {
	// History is the chronological, append-only conversation so far. It does
	// not include UserInput.
	History []llm.Message `json:"history"`

	UserInput string `json:"user_input"`

	// Route is the node currently selected. It starts at RouteRouter.
	Route Route `json:"route"`

	// Subject is the restaurant under discussion. Empty means none.
	Subject string `json:"subject,omitempty"`

	// Citations is set only by the retrieval handler.
	Citations []Citation `json:"citations"`

	Response string `json:"response"`

	// LastNode is the last handler that produced Response.
	LastNode Route `json:"last_node,omitempty"`
}

// New starts a turn at the router.
func New(history []llm.Message, userInput, subject string) State {
	return State{
		History:   llm.CloneMessages(history),
		UserInput: userInput,
		Route:     RouteRouter,
		Subject:   subject,
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	s.History = llm.CloneMessages(s.History)
	s.Citations = CloneCitations(s.Citations)
	return s
}

// WithRoute returns a copy of s with Route set.
func (s State) WithRoute(r Route) State {
	out := s.Clone()
	out.Route = r
	return out
}

// WithSubject returns a copy of s with Subject set.
func (s State) WithSubject(subject string) State {
	out := s.Clone()
	out.Subject = subject
	return out
}

// WithResponse records a handler's answer. Citations are replaced by cs,
// which is nil for every handler but retrieval.
func (s State) WithResponse(node Route, response string, cs []Citation) State {
	out := s.Clone()
	out.Response = response
	out.Route = node
	out.LastNode = node
	out.Citations = CloneCitations(cs)
	return out
}

// Transcript returns History followed by the user input and the response,
// which is what a checkpoint persists after the turn.
func (s State) Transcript() []llm.Message {
	out := make([]llm.Message, 0, len(s.History)+2)
	out = append(out, s.History...)
	out = append(out, llm.User(s.UserInput))
	if s.Response != "" {
		out = append(out, llm.Assistant(s.Response))
	}
	return out
}
