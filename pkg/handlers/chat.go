package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/papercomputeco/tabletalk/pkg/conversation"
	"github.com/papercomputeco/tabletalk/pkg/llm"
)

const chatSystemPrompt = `You are a friendly assistant for a restaurant review service.
Answer briefly and naturally in the user's language.
If the user asks about a specific restaurant's reviews or details, invite them to name the restaurant.`

// Chat is the general conversational handler. It also serves as the
// convergence node every other handler passes through, where it leaves an
// already answered State alone.
type Chat struct {
	Generator   llm.Generator
	Temperature float64
	Timeout     time.Duration
}

// Handle answers the turn unless a Response is already present.
func (c *Chat) Handle(ctx context.Context, state conversation.State) (conversation.State, error) {
	if state.Response != "" {
		return state, nil
	}

	msgs := make([]llm.Message, 0, len(state.History)+2)
	msgs = append(msgs, llm.System(chatSystemPrompt))
	msgs = append(msgs, llm.NonEmpty(state.History)...)
	msgs = append(msgs, llm.User(state.UserInput))

	callCtx, cancel := withTimeout(ctx, c.Timeout)
	defer cancel()

	answer, err := c.Generator.Generate(callCtx, msgs, temperature(c.Temperature))
	if err != nil {
		return state, fmt.Errorf("generating chat answer: %w", err)
	}

	return state.WithResponse(conversation.RouteChat, answer, nil), nil
}

func (c *Chat) route() conversation.Route { return conversation.RouteChat }
