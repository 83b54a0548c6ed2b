package domain

// ToolName identifies one of the functions declared to the model.
type ToolName string

const (
	ToolMedicalRecords ToolName = "call_medical_records_agent"
	ToolBilling        ToolName = "call_billing_insurance_agent"
	ToolRegistration   ToolName = "call_patient_registration_agent"
	ToolAppointments   ToolName = "call_appointment_management_agent"
)

// ToolSpec declares a callable tool with its single required "query" parameter.
type ToolSpec struct {
	Name             ToolName
	Description      string
	QueryDescription string
}

// ToolSpecs are the four tools every session is configured with.
var ToolSpecs = []ToolSpec{
	{
		Name:             ToolMedicalRecords,
		Description:      "Dispatch request to Medical Records Agent for PHI, history, or lab results.",
		QueryDescription: "The specific medical query or patient ID.",
	},
	{
		Name:             ToolBilling,
		Description:      "Dispatch request to Billing Agent for invoices, insurance claims, or costs.",
		QueryDescription: "The billing inquiry details.",
	},
	{
		Name:             ToolRegistration,
		Description:      "Dispatch request to Registration Agent for new patients or demographic updates.",
		QueryDescription: "Patient details for registration.",
	},
	{
		Name:             ToolAppointments,
		Description:      "Dispatch request to Appointment Agent for scheduling or rescheduling.",
		QueryDescription: "Date, time, and doctor preference.",
	},
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	ID   string         `json:"id,omitempty"`
	Name ToolName       `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// Query returns the "query" argument, if the model supplied one.
func (c ToolCall) Query() string {
	if c.Args == nil {
		return ""
	}
	s, _ := c.Args["query"].(string)
	return s
}

// ModelTurn is one reply of the remote model.
type ModelTurn struct {
	Text      string
	ToolCalls []ToolCall // in the order the model returned them
}

// SessionConfig is the fixed behaviour a chat session is created with.
type SessionConfig struct {
	Model             string
	SystemInstruction string
	Temperature       float32
	Tools             []ToolSpec
}
