package agentflow

import "github.com/PabloGalante/hospital-erp-agent/internal/domain"

// UnknownAgentPayload is sent back to the model for a tool it invented.
const UnknownAgentPayload = "Error: Unknown Agent"

// Canned specialist answers. The specialists are not real systems.
const (
	MedicalRecordsPayload = "Sistem: [Internal Access] Mengambil data Pasien ID: P-9982. Diagnosis: Hipertensi Tingkat 1. Alergi: Penicillin. Hasil Lab Terakhir (12/01/2024): Kolesterol 210 mg/dL (Sedikit Tinggi)."
	BillingPayload        = "Sistem: [RCM Core] Faktur #INV-2024-001. Total: Rp 1.500.000. Status: Pending Asuransi (BPJS). Estimasi Tanggungan Pribadi: Rp 0."
	RegistrationPayload   = "Sistem: [Master Patient Index] Data demografis ditemukan. Nama: Budi Santoso. Tgl Lahir: 12-05-1980. Alamat diperbarui per permintaan."
	AppointmentsPayload   = "Sistem: [Scheduler] Dokter dr. Siti tersedia pada Selasa, 10:00 AM. Slot dikunci sementara menunggu konfirmasi."
)

// Route is where a tool call goes and what comes back from it.
type Route struct {
	Agent   domain.AgentID
	Payload string
	Known   bool
}

// Resolve maps a tool name to its specialist. It never fails: unknown names
// stay with the orchestrator and carry UnknownAgentPayload.
func Resolve(name domain.ToolName) Route {
	switch name {
	case domain.ToolMedicalRecords:
		return Route{Agent: domain.AgentMedicalRecords, Payload: MedicalRecordsPayload, Known: true}
	case domain.ToolBilling:
		return Route{Agent: domain.AgentBilling, Payload: BillingPayload, Known: true}
	case domain.ToolRegistration:
		return Route{Agent: domain.AgentRegistration, Payload: RegistrationPayload, Known: true}
	case domain.ToolAppointments:
		return Route{Agent: domain.AgentAppointments, Payload: AppointmentsPayload, Known: true}
	default:
		return Route{Agent: domain.AgentOrchestrator, Payload: UnknownAgentPayload}
	}
}
