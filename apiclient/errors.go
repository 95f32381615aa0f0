package apiclient

import "fmt"

// ErrorKind classifies authentication API failures. Every failure a caller
// can see carries exactly one kind, so UI layers can branch without string
// matching.
type ErrorKind string

const (
	// KindValidation: the request was malformed (backend 400).
	KindValidation ErrorKind = "validation"
	// KindCredentials: the backend rejected the login credentials.
	KindCredentials ErrorKind = "credentials"
	// KindTokenInvalid: the bearer token failed verification.
	KindTokenInvalid ErrorKind = "token_invalid"
	// KindNetwork: no usable response from the backend.
	KindNetwork ErrorKind = "network"
	// KindServer: the backend reported an internal failure (5xx).
	KindServer ErrorKind = "server"
)

// Backend error codes carried on the wire envelope.
const (
	CodeMissingCredentials = "MISSING_CREDENTIALS"
	CodeMissingCompany     = "MISSING_COMPANY"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeValidationError    = "VALIDATION_ERROR"
	CodeMissingToken       = "MISSING_TOKEN"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeServerError        = "SERVER_ERROR"
)

// APIError is the single error type surfaced by the Client.
type APIError struct {
	Kind    ErrorKind
	Code    string // backend error_code when one was provided
	Message string // user-facing message
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// KindOf extracts the ErrorKind from err, or KindNetwork when err is not an
// APIError (the pessimistic default: we got nothing usable back).
func KindOf(err error) ErrorKind {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Kind
	}
	return KindNetwork
}

// UserMessage renders err as a message fit for end users. Backend-provided
// messages win; anything else falls back to a generic per-kind message.
func UserMessage(err error) string {
	apiErr, ok := err.(*APIError)
	if !ok {
		return "Não foi possível conectar ao servidor. Tente novamente."
	}
	if apiErr.Message != "" {
		return apiErr.Message
	}
	switch apiErr.Kind {
	case KindValidation:
		return "Dados de login inválidos."
	case KindCredentials:
		return "Credenciais inválidas ou usuário inativo."
	case KindTokenInvalid:
		return "Sessão expirada. Faça login novamente."
	case KindServer:
		return "Erro interno do servidor."
	default:
		return "Não foi possível conectar ao servidor. Tente novamente."
	}
}
