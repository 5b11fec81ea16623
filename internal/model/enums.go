package model

type CallDirection string

const (
	DirectionIncoming CallDirection = "incoming"
	DirectionOutgoing CallDirection = "outgoing"
)

type CallStatus string

const (
	CallStatusPending    CallStatus = "pending"
	CallStatusInitiated  CallStatus = "initiated"
	CallStatusRinging    CallStatus = "ringing"
	CallStatusAnswered   CallStatus = "answered"
	CallStatusInProgress CallStatus = "in-progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
	CallStatusBusy       CallStatus = "busy"
	CallStatusNoAnswer   CallStatus = "no-answer"
)

type LeadRating string

const (
	LeadHot  LeadRating = "hot"
	LeadWarm LeadRating = "warm"
	LeadCold LeadRating = "cold"
	LeadLost LeadRating = "lost"
)

type AgentType string

const (
	AgentTypeIncoming AgentType = "incoming"
	AgentTypeCampaign AgentType = "campaign"
	AgentTypeFlow     AgentType = "flow"
	AgentTypeOutbound AgentType = "outbound"
)

// IsContactRegistered reports whether the agent type pre-registers one engine
// conversation per outbound contact, which makes phone-number reconciliation safe.
func (t AgentType) IsContactRegistered() bool {
	return t == AgentTypeCampaign || t == AgentTypeFlow
}

// IsOutbound reports whether the agent places calls rather than receiving them.
func (t AgentType) IsOutbound() bool {
	return t != AgentTypeIncoming
}

type FlowStatus string

const (
	FlowStatusPending   FlowStatus = "pending"
	FlowStatusRunning   FlowStatus = "running"
	FlowStatusCompleted FlowStatus = "completed"
	FlowStatusFailed    FlowStatus = "failed"
)

// Turn roles in a conversation transcript.
const (
	RoleUser  = "user"
	RoleAgent = "agent"
)
