package backendtest

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// envelope matches the backend's uniform response wrapper.
type envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

type loginRequest struct {
	UserCode  string `json:"cdUsuario"`
	Password  string `json:"password"`
	CompanyID int    `json:"cdMultiEmpresa"`
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Dados de login são obrigatórios", "MISSING_DATA")
		return
	}

	if strings.TrimSpace(req.UserCode) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Usuário e senha são obrigatórios", "MISSING_CREDENTIALS")
		return
	}
	if req.CompanyID <= 0 {
		writeError(w, http.StatusBadRequest, "Empresa é obrigatória", "MISSING_COMPANY")
		return
	}

	user, ok := b.authenticate(req.UserCode, req.Password, req.CompanyID)
	if !ok {
		b.log.Warn().Str("user", req.UserCode).Int("company", req.CompanyID).Msg("login rejected")
		writeError(w, http.StatusUnauthorized, "Credenciais inválidas ou usuário inativo", "INVALID_CREDENTIALS")
		return
	}

	token, err := b.mintToken(user)
	if err != nil {
		b.log.Error().Err(err).Msg("could not sign token")
		writeError(w, http.StatusInternalServerError, "Erro interno do servidor", "SERVER_ERROR")
		return
	}

	b.log.Info().Str("user", user.Code).Int("company", user.CompanyID).Msg("login accepted")
	writeSuccess(w, "Login realizado com sucesso", map[string]any{
		"token": token,
		"user":  user,
	})
}

func (b *Backend) handleVerify(w http.ResponseWriter, r *http.Request) {
	raw, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Token não fornecido", "MISSING_TOKEN")
		return
	}

	claims, err := b.verifyToken(raw)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Token inválido ou expirado", "INVALID_TOKEN")
		return
	}

	// The directory is the source of truth for the user record; the token
	// claims only fill in what the directory no longer knows (the company
	// chosen at login).
	user, ok := b.lookup(claims.UserCode)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Token inválido ou expirado", "INVALID_TOKEN")
		return
	}
	user.CompanyID = claims.CompanyID
	if user.CompanyName == "" {
		user.CompanyName = claims.CompanyName
	}

	writeSuccess(w, "Token válido", map[string]any{
		"valid": true,
		"user":  user,
	})
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	if raw, ok := bearerToken(r); ok {
		if claims, err := b.verifyToken(raw); err == nil {
			b.log.Info().Str("user", claims.UserCode).Msg("logout")
		}
	}
	// Tokens are stateless; there is nothing to invalidate server-side.
	// Logout always succeeds.
	writeSuccess(w, "Logout realizado com sucesso", nil)
}

func (b *Backend) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": b.nowTime().UTC().Format(time.RFC3339),
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimPrefix(header, "Bearer ")
	return token, token != ""
}

func writeSuccess(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, message, errorCode string) {
	writeJSON(w, status, envelope{Success: false, Message: message, ErrorCode: errorCode})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) // nolint: errcheck
}
