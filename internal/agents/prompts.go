package agents

import (
	"fmt"

	"github.com/parleychat/parley/internal/models"
)

// agentPrompt builds the system prompt for a mentioned agent from its
// persisted personality and context.
func agentPrompt(agent *models.Agent) string {
	return fmt.Sprintf("You are %s. Personality: %s. Context: %s",
		agent.Name, agent.Personality, agent.Context)
}

// commandPrompts maps a command verb to its system prompt. Unknown verbs
// fall back to a generic assistant prompt.
var commandPrompts = map[string]string{
	"ask":     "You are an intelligent AI assistant. Answer the following question concisely and accurately.",
	"explain": "You are an educational AI. Explain the following concept in simple terms, as if teaching a beginner.",
	"analyze": "You are an analytical AI. Provide a detailed analysis of the following topic, considering multiple perspectives.",
}

func commandPrompt(verb string) string {
	if p, ok := commandPrompts[verb]; ok {
		return p
	}
	return "You are a helpful AI assistant."
}
