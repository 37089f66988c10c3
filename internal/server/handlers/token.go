package handlers

import (
	"net/http"

	"ocrplane/internal/logger"
	"ocrplane/internal/server/middleware"
	"ocrplane/pkg/api"
)

// Login handles POST /token.
// It accepts form-encoded credentials and returns a signed bearer token.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.log)

	if err := r.ParseForm(); err != nil {
		h.httpError(w, http.StatusBadRequest, api.ReasonValidation, "Invalid form body")
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		h.httpError(w, http.StatusBadRequest, api.ReasonValidation, "Username and password are required")
		return
	}

	if !h.creds.Verify(username, password) {
		log.Warn("login failed", "user", username)
		h.httpError(w, http.StatusUnauthorized, api.ReasonAuthentication, "Incorrect username or password")
		return
	}

	token, err := h.tokens.Issue(username, h.tokenTTL)
	if err != nil {
		log.Error("token signing failed", "user", username, "error", err)
		h.httpError(w, http.StatusInternalServerError, api.ReasonInternal, "Failed to issue token")
		return
	}

	log.Info("login succeeded", "user", username)
	h.respondJson(w, http.StatusOK, api.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// Me handles GET /users/me.
// It reports the identity the presented token was issued to.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	username, ok := middleware.UsernameFromContext(r.Context())
	if !ok {
		h.httpError(w, http.StatusUnauthorized, api.ReasonAuthentication, "Not authenticated")
		return
	}
	h.respondJson(w, http.StatusOK, api.UserResponse{Username: username})
}
