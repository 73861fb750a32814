// Package trigger classifies inbound chat messages into plain text,
// command invocations, or agent mentions. Classification is a pure
// function of the message text.
package trigger

import (
	"regexp"
	"strings"
)

// commandRe matches the structured command form, e.g. "iask(What is 2+2?)".
var commandRe = regexp.MustCompile(`^i(\w+)\((.*)\)$`)

type Kind int

const (
	Plain Kind = iota
	Command
	Mentions
)

// Mention is one "@name" reference together with the message text the
// named agent should respond to.
type Mention struct {
	Agent     string
	Remainder string
}

type Trigger struct {
	Kind Kind

	// Command fields, set when Kind == Command.
	Verb     string
	Argument string

	// Mentions, set when Kind == Mentions. Every mention carries the
	// same remainder text; each one independently triggers a session.
	Mentions []Mention
}

// PseudoUser names the responding pseudo-user for a command, e.g.
// "AI_Ask" for verb "ask".
func (t Trigger) PseudoUser() string {
	return "AI_" + capitalize(t.Verb)
}

// Classify inspects a message and decides what, if anything, it triggers.
func Classify(text string) Trigger {
	if m := commandRe.FindStringSubmatch(text); m != nil {
		return Trigger{Kind: Command, Verb: m[1], Argument: m[2]}
	}

	var names []string
	var rest []string
	for _, token := range strings.Fields(text) {
		if strings.HasPrefix(token, "@") && len(token) > 1 {
			names = append(names, token[1:])
		} else {
			rest = append(rest, token)
		}
	}
	if len(names) == 0 {
		return Trigger{Kind: Plain}
	}

	remainder := strings.Join(rest, " ")
	mentions := make([]Mention, 0, len(names))
	for _, name := range names {
		mentions = append(mentions, Mention{Agent: name, Remainder: remainder})
	}
	return Trigger{Kind: Mentions, Mentions: mentions}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
