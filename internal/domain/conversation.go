package domain

// Message is one entry of the chat transcript.
type Message struct {
	ID        MessageID `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp Timestamp `json:"timestamp"`

	// Agent is the agent that "spoke" the message. Empty for user messages.
	Agent AgentID `json:"agent,omitempty"`
}

// ActivityEventType names an observable change of the orchestration cycle.
type ActivityEventType string

const (
	EventProcessingChanged ActivityEventType = "processing_changed"
	EventAgentChanged      ActivityEventType = "agent_changed"
	EventStateChanged      ActivityEventType = "state_changed"
	EventMessageAppended   ActivityEventType = "message_appended"
)

// ActivityEvent is pushed to presentation listeners on every transition.
type ActivityEvent struct {
	Type       ActivityEventType `json:"type"`
	State      TurnState         `json:"state"`
	Agent      AgentID           `json:"agent"`
	Processing bool              `json:"processing"`
	Message    *Message          `json:"message,omitempty"`
	Timestamp  Timestamp         `json:"timestamp"`
}
