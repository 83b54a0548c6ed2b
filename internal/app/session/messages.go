package session

import (
	"fmt"

	"github.com/PabloGalante/hospital-erp-agent/internal/domain"
)

const (
	MsgSessionUnavailable = "Error: API Key missing or connection failed. Please check your configuration."
	MsgNoSession          = "Error: No session."
	MsgNoResponseText     = "No response text generated."
)

// Describe turns a model failure into the text shown in the transcript.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	switch domain.KindOf(err) {
	case domain.ErrorKindMalformedRequest:
		return "System Error: The request to the Orchestrator was malformed and was rejected."
	case domain.ErrorKindAccessDenied:
		return "System Error: Access denied. The API key is invalid or lacks permission. Please enter a valid key."
	case domain.ErrorKindModelNotFound:
		return "System Error: The configured model was not found."
	case domain.ErrorKindNetwork:
		return "System Error: Could not reach the Orchestrator. Please check your network connection."
	case domain.ErrorKindCancelled:
		return "System: The request was cancelled."
	case domain.ErrorKindSessionUnavailable:
		return MsgSessionUnavailable
	default:
		return fmt.Sprintf("System Error: %v", err)
	}
}
