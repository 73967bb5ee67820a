package server

import (
	"encoding/json"
	"net/http"

	"github.com/flowplane/flowplane/internal/flowplane/apierror"
	"github.com/flowplane/flowplane/internal/flowplane/model"
	"github.com/flowplane/flowplane/internal/flowplane/repository"
)

func (s *APIServer) createCluster(w http.ResponseWriter, r *http.Request) {
	var c model.Cluster
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindBadRequest, "invalid request body", err))
		return
	}
	if errs := c.Validate(); len(errs) > 0 {
		writeError(w, s.logger, apierror.FromValidation(errs))
		return
	}

	record, err := s.clusters.Create(r.Context(), c.Name, c)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	if err := s.xds.RefreshClusters(r.Context()); err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindServiceUnavailable, "refresh failed", err))
		return
	}

	s.recordAudit(r.Context(), "cluster", record.ID, record.Name, repository.AuditActionCreate, nil, record.Entity)
	writeData(w, s.logger, http.StatusCreated, record.Entity)
}

func (s *APIServer) listClusters(w http.ResponseWriter, r *http.Request) {
	records, err := s.clusters.ListAll(r.Context())
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}
	out := make([]model.Cluster, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Entity)
	}
	writeData(w, s.logger, http.StatusOK, out)
}

func (s *APIServer) getCluster(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	record, err := s.clusters.GetByName(r.Context(), name)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}
	writeData(w, s.logger, http.StatusOK, record.Entity)
}

func (s *APIServer) updateCluster(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var c model.Cluster
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindBadRequest, "invalid request body", err))
		return
	}
	if c.Name != name {
		writeError(w, s.logger, apierror.New(apierror.KindBadRequest, "payload name must equal path name"))
		return
	}
	if errs := c.Validate(); len(errs) > 0 {
		writeError(w, s.logger, apierror.FromValidation(errs))
		return
	}

	existing, err := s.clusters.GetByName(r.Context(), name)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	record, err := s.clusters.Update(r.Context(), existing.ID, c)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	if err := s.xds.RefreshClusters(r.Context()); err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindServiceUnavailable, "refresh failed", err))
		return
	}

	s.recordAudit(r.Context(), "cluster", record.ID, record.Name, repository.AuditActionUpdate, existing.Entity, record.Entity)
	writeData(w, s.logger, http.StatusOK, record.Entity)
}

func (s *APIServer) deleteCluster(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	existing, err := s.clusters.GetByName(r.Context(), name)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	if err := s.clusters.Delete(r.Context(), existing.ID); err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	if err := s.xds.RefreshClusters(r.Context()); err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindServiceUnavailable, "refresh failed", err))
		return
	}

	s.recordAudit(r.Context(), "cluster", existing.ID, existing.Name, repository.AuditActionDelete, existing.Entity, nil)
	writeNoContent(w)
}
