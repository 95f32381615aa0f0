package session

import (
	"strings"

	"github.com/jrsteele09/go-intranet-client/apiclient"
)

// validateLoginInput rejects obviously bad credentials before any network
// call is made. Returned errors carry the same taxonomy as backend failures
// so callers handle both uniformly.
func validateLoginInput(userCode, password string, companyID int) error {
	if strings.TrimSpace(userCode) == "" || password == "" {
		return &apiclient.APIError{
			Kind:    apiclient.KindValidation,
			Code:    apiclient.CodeMissingCredentials,
			Message: "Usuário e senha são obrigatórios",
		}
	}
	if companyID <= 0 {
		return &apiclient.APIError{
			Kind:    apiclient.KindValidation,
			Code:    apiclient.CodeMissingCompany,
			Message: "Empresa é obrigatória",
		}
	}
	return nil
}
