package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/papercomputeco/tabletalk/pkg/conversation"
	"github.com/papercomputeco/tabletalk/pkg/llm"
)

const (
	unknownSubject = "(unknown)"

	subjectSystemPrompt = `You answer factual questions about a restaurant using only the attributes provided.
If the attributes do not contain the answer, say so plainly. Reply in the user's language.`
)

// SubjectSource looks up a subject's attributes. A miss returns an empty
// object.
type SubjectSource interface {
	Get(name string) (any, bool)
}

// SubjectInfo answers from the subject lookup.
type SubjectInfo struct {
	Generator   llm.Generator
	Subjects    SubjectSource
	Temperature float64
	Timeout     time.Duration
}

// Handle renders the subject's attributes into the prompt and answers.
func (s *SubjectInfo) Handle(ctx context.Context, state conversation.State) (conversation.State, error) {
	name := state.Subject
	var attrs any = map[string]any{}
	if name != "" && s.Subjects != nil {
		attrs, _ = s.Subjects.Get(name)
	}
	if name == "" {
		name = unknownSubject
	}

	payload, err := json.MarshalIndent(attrs, "", "  ")
	if err != nil {
		payload = []byte("{}")
	}

	prompt := fmt.Sprintf("Restaurant: %s\nAttributes:\n%s\n\nQuestion: %s", name, payload, state.UserInput)
	msgs := []llm.Message{
		llm.System(subjectSystemPrompt),
		llm.User(prompt),
	}

	callCtx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	answer, err := s.Generator.Generate(callCtx, msgs, temperature(s.Temperature))
	if err != nil {
		return state, fmt.Errorf("generating subject answer: %w", err)
	}

	return state.WithResponse(conversation.RouteSubjectInfo, answer, nil), nil
}

func (s *SubjectInfo) route() conversation.Route { return conversation.RouteSubjectInfo }
