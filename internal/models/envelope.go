package models

// Wire frames for the per-connection chat protocol. One JSON object per
// frame, both directions. These replace map[string]interface{} for type
// safety in high-frequency broadcast calls.

// InboundFrame is what a client sends. An absent Event means a plain
// message, for backward compatibility with older clients.
type InboundFrame struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message,omitempty"`
}

const (
	EventTyping  = "typing"
	EventMessage = "message"
)

// Envelope is one delivered message unit. Exactly one of the three wire
// shapes, selected by the constructors below:
//
//	{message, username}                plain broadcast
//	{message, username, partial:true}  streaming snapshot
//	{event:"typing", username}         typing indicator
//
// Envelopes are immutable once constructed.
type Envelope struct {
	Event    string `json:"event,omitempty"`
	Message  string `json:"message,omitempty"`
	Username string `json:"username"`
	Partial  bool   `json:"partial,omitempty"`
}

func PlainEnvelope(message, username string) Envelope {
	return Envelope{Message: message, Username: username}
}

func PartialEnvelope(message, username string) Envelope {
	return Envelope{Message: message, Username: username, Partial: true}
}

func TypingEnvelope(username string) Envelope {
	return Envelope{Event: EventTyping, Username: username}
}
