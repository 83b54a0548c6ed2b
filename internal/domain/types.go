package domain

import "time"

type MessageID string

type AgentID string

const (
	AgentOrchestrator   AgentID = "ORCHESTRATOR"
	AgentMedicalRecords AgentID = "MEDICAL_RECORDS"
	AgentBilling        AgentID = "BILLING"
	AgentRegistration   AgentID = "REGISTRATION"
	AgentAppointments   AgentID = "APPOINTMENTS"
)

// Agents lists every agent in display order.
var Agents = []AgentID{
	AgentOrchestrator,
	AgentMedicalRecords,
	AgentBilling,
	AgentRegistration,
	AgentAppointments,
}

func (a AgentID) Valid() bool {
	switch a {
	case AgentOrchestrator, AgentMedicalRecords, AgentBilling, AgentRegistration, AgentAppointments:
		return true
	}
	return false
}

type Role string

const (
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	RoleSystem Role = "system"
)

// TurnState is the position of the current turn in the orchestration cycle.
type TurnState string

const (
	TurnIdle               TurnState = "IDLE"
	TurnSentToOrchestrator TurnState = "SENT_TO_ORCHESTRATOR"
	TurnDirectReply        TurnState = "DIRECT_REPLY"
	TurnDispatched         TurnState = "DISPATCHED"
	TurnToolResultSent     TurnState = "TOOL_RESULT_SENT"
	TurnFailed             TurnState = "FAILED"
)

type Timestamp = time.Time
