package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"

	"github.com/openai/openai-go/v3"
	"google.golang.org/genai"

	"github.com/PabloGalante/hospital-erp-agent/internal/domain"
)

// ClassifyError maps an SDK or transport error onto a domain.ModelError.
// It inspects typed errors only and never the free text of a message.
func ClassifyError(err error) *domain.ModelError {
	if err == nil {
		return nil
	}

	var me *domain.ModelError
	if errors.As(err, &me) {
		return me
	}

	return &domain.ModelError{Kind: classify(err), Err: err}
}

func classify(err error) domain.ErrorKind {
	switch {
	case errors.Is(err, context.Canceled):
		return domain.ErrorKindCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return domain.ErrorKindNetwork
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyGenAI(apiErr)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return classifyGenAI(*apiErrPtr)
	}

	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) {
		return classifyStatus(oaiErr.StatusCode)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return domain.ErrorKindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.ErrorKindNetwork
	}

	return domain.ErrorKindUnknown
}

func classifyGenAI(e genai.APIError) domain.ErrorKind {
	// An invalid Gemini API key is reported as 400 INVALID_ARGUMENT with
	// reason API_KEY_INVALID in the error details.
	for _, d := range e.Details {
		if reason, _ := d["reason"].(string); reason == "API_KEY_INVALID" {
			return domain.ErrorKindAccessDenied
		}
	}

	if e.Code != 0 {
		return classifyStatus(e.Code)
	}

	switch e.Status {
	case "INVALID_ARGUMENT", "FAILED_PRECONDITION":
		return domain.ErrorKindMalformedRequest
	case "UNAUTHENTICATED", "PERMISSION_DENIED":
		return domain.ErrorKindAccessDenied
	case "NOT_FOUND":
		return domain.ErrorKindModelNotFound
	case "UNAVAILABLE", "DEADLINE_EXCEEDED":
		return domain.ErrorKindNetwork
	}
	return domain.ErrorKindUnknown
}

func classifyStatus(code int) domain.ErrorKind {
	switch code {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.ErrorKindMalformedRequest
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrorKindAccessDenied
	case http.StatusNotFound:
		return domain.ErrorKindModelNotFound
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return domain.ErrorKindNetwork
	}
	return domain.ErrorKindUnknown
}
