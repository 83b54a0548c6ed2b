package domain

// AgentProfile holds the display metadata of an agent.
type AgentProfile struct {
	ID          AgentID `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Color       string  `json:"color"` // hex, used by the terminal and browser clients
}

var profiles = map[AgentID]AgentProfile{
	AgentOrchestrator: {
		ID:          AgentOrchestrator,
		Name:        "Sistem Rumah Sakit (Orchestrator)",
		Description: "Central Analysis & Dispatch",
		Color:       "#64748b",
	},
	AgentMedicalRecords: {
		ID:          AgentMedicalRecords,
		Name:        "Agen Rekam Medis",
		Description: "PHI & Clinical Data",
		Color:       "#dc2626",
	},
	AgentBilling: {
		ID:          AgentBilling,
		Name:        "Agen Penagihan",
		Description: "RCM & Insurance",
		Color:       "#16a34a",
	},
	AgentRegistration: {
		ID:          AgentRegistration,
		Name:        "Agen Pendaftaran",
		Description: "Patient Demographics",
		Color:       "#9333ea",
	},
	AgentAppointments: {
		ID:          AgentAppointments,
		Name:        "Agen Janji Temu",
		Description: "Scheduling & Resources",
		Color:       "#f97316",
	},
}

// Profile returns the profile of an agent, or the orchestrator's for unknown ids.
func Profile(id AgentID) AgentProfile {
	if p, ok := profiles[id]; ok {
		return p
	}
	return profiles[AgentOrchestrator]
}

// Profiles returns all profiles in display order.
func Profiles() []AgentProfile {
	out := make([]AgentProfile, 0, len(Agents))
	for _, id := range Agents {
		out = append(out, profiles[id])
	}
	return out
}
