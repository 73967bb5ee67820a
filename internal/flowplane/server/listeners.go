package server

import (
	"encoding/json"
	"net/http"

	"github.com/flowplane/flowplane/internal/flowplane/apierror"
	"github.com/flowplane/flowplane/internal/flowplane/model"
	"github.com/flowplane/flowplane/internal/flowplane/repository"
)

func (s *APIServer) createListener(w http.ResponseWriter, r *http.Request) {
	var l model.Listener
	if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindBadRequest, "invalid request body", err))
		return
	}
	if errs := l.Validate(); len(errs) > 0 {
		writeError(w, s.logger, apierror.FromValidation(errs))
		return
	}

	record, err := s.listeners.Create(r.Context(), l.Name, l)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	if err := s.xds.RefreshListeners(r.Context()); err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindServiceUnavailable, "refresh failed", err))
		return
	}

	s.recordAudit(r.Context(), "listener", record.ID, record.Name, repository.AuditActionCreate, nil, record.Entity)
	writeData(w, s.logger, http.StatusCreated, record.Entity)
}

func (s *APIServer) listListeners(w http.ResponseWriter, r *http.Request) {
	records, err := s.listeners.ListAll(r.Context())
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}
	out := make([]model.Listener, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Entity)
	}
	writeData(w, s.logger, http.StatusOK, out)
}

func (s *APIServer) getListener(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	record, err := s.listeners.GetByName(r.Context(), name)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}
	writeData(w, s.logger, http.StatusOK, record.Entity)
}

func (s *APIServer) updateListener(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var l model.Listener
	if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindBadRequest, "invalid request body", err))
		return
	}
	if l.Name != name {
		writeError(w, s.logger, apierror.New(apierror.KindBadRequest, "payload name must equal path name"))
		return
	}
	if errs := l.Validate(); len(errs) > 0 {
		writeError(w, s.logger, apierror.FromValidation(errs))
		return
	}

	existing, err := s.listeners.GetByName(r.Context(), name)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	record, err := s.listeners.Update(r.Context(), existing.ID, l)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	if err := s.xds.RefreshListeners(r.Context()); err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindServiceUnavailable, "refresh failed", err))
		return
	}

	s.recordAudit(r.Context(), "listener", record.ID, record.Name, repository.AuditActionUpdate, existing.Entity, record.Entity)
	writeData(w, s.logger, http.StatusOK, record.Entity)
}

func (s *APIServer) deleteListener(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	existing, err := s.listeners.GetByName(r.Context(), name)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	if err := s.listeners.Delete(r.Context(), existing.ID); err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	if err := s.xds.RefreshListeners(r.Context()); err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindServiceUnavailable, "refresh failed", err))
		return
	}

	s.recordAudit(r.Context(), "listener", existing.ID, existing.Name, repository.AuditActionDelete, existing.Entity, nil)
	writeNoContent(w)
}
