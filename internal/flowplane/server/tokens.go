package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/flowplane/flowplane/internal/flowplane/apierror"
	"github.com/flowplane/flowplane/internal/flowplane/auth"
	"github.com/flowplane/flowplane/internal/flowplane/repository"
)

// issuedTokenView is the one-time response carrying the plaintext secret,
// returned only from create and rotate.
type issuedTokenView struct {
	auth.PersonalAccessToken
	Token string `json:"token"`
}

func (s *APIServer) createToken(w http.ResponseWriter, r *http.Request) {
	var req auth.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindBadRequest, "invalid request body", err))
		return
	}

	issued, err := s.tokens.Create(r.Context(), req)
	if err != nil {
		writeError(w, s.logger, classifyTokenError(err))
		return
	}

	s.recordAudit(r.Context(), "personal_access_token", issued.Record.ID, issued.Record.Name, repository.AuditActionCreate, nil, issued.Record.Entity)
	writeData(w, s.logger, http.StatusCreated, issuedTokenView{PersonalAccessToken: issued.Record.Entity, Token: issued.Secret})
}

func (s *APIServer) listTokens(w http.ResponseWriter, r *http.Request) {
	records, err := s.tokens.ListAll(r.Context())
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}
	out := make([]auth.PersonalAccessToken, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Entity)
	}
	writeData(w, s.logger, http.StatusOK, out)
}

func (s *APIServer) getToken(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	record, err := s.tokens.Get(r.Context(), id)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}
	writeData(w, s.logger, http.StatusOK, record.Entity)
}

func (s *APIServer) updateToken(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req auth.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindBadRequest, "invalid request body", err))
		return
	}

	existing, err := s.tokens.Get(r.Context(), id)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	record, err := s.tokens.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, s.logger, classifyTokenError(err))
		return
	}

	s.recordAudit(r.Context(), "personal_access_token", record.ID, record.Name, repository.AuditActionUpdate, existing.Entity, record.Entity)
	writeData(w, s.logger, http.StatusOK, record.Entity)
}

// revokeToken sets the token's status to revoked rather than deleting its
// row (spec/FEATURES SUPPLEMENTED §1).
func (s *APIServer) revokeToken(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, err := s.tokens.Get(r.Context(), id)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	record, err := s.tokens.Revoke(r.Context(), id)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	s.recordAudit(r.Context(), "personal_access_token", record.ID, record.Name, repository.AuditActionRevoke, existing.Entity, record.Entity)
	writeNoContent(w)
}

func (s *APIServer) rotateToken(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, err := s.tokens.Get(r.Context(), id)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	issued, err := s.tokens.Rotate(r.Context(), id)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	s.recordAudit(r.Context(), "personal_access_token", issued.Record.ID, issued.Record.Name, repository.AuditActionRotate, existing.Entity, issued.Record.Entity)
	writeData(w, s.logger, http.StatusOK, issuedTokenView{PersonalAccessToken: issued.Record.Entity, Token: issued.Secret})
}

// classifyTokenError distinguishes the auth package's own name/scope
// validation errors (400) from repository-layer failures.
func classifyTokenError(err error) *apierror.APIError {
	if errors.Is(err, repository.ErrAlreadyExists) || errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrConnectionFailed) {
		return apierror.FromRepository(err)
	}
	return apierror.Wrap(apierror.KindBadRequest, err.Error(), err)
}
