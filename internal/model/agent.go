package model

import "time"

// Agent is a configured conversational-engine persona. EngineAgentID is the
// identifier the vendor reports in completion events.
type Agent struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"userId"`
	EngineAgentID  string    `db:"engine_agent_id" json:"engineAgentId"`
	Type           AgentType `db:"type" json:"type"`
	Name           string    `db:"name" json:"name"`
	TransferNumber *string   `db:"transfer_number" json:"transferNumber,omitempty"`
	// NativeFlow marks agents whose conversation graph executes on the engine
	// itself; the bridge must not override their saved configuration.
	NativeFlow bool      `db:"native_flow" json:"nativeFlow"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// Campaign is a batch of outbound contacts dialed with one agent.
type Campaign struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"userId"`
	AgentID   string     `db:"agent_id" json:"agentId"`
	Name      string     `db:"name" json:"name"`
	StartedAt *time.Time `db:"started_at" json:"startedAt,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
}

// PhoneConnection binds an inbound phone number to an agent.
type PhoneConnection struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"userId"`
	AgentID     string    `db:"agent_id" json:"agentId"`
	PhoneNumber string    `db:"phone_number" json:"phoneNumber"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}
