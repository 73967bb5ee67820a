package server

import (
	"encoding/json"
	"net/http"

	"github.com/flowplane/flowplane/internal/flowplane/apierror"
	"github.com/flowplane/flowplane/internal/flowplane/model"
	"github.com/flowplane/flowplane/internal/flowplane/repository"
	"github.com/flowplane/flowplane/internal/flowplane/xds/resources/route"
)

func (s *APIServer) createRouteConfig(w http.ResponseWriter, r *http.Request) {
	var rc model.RouteConfiguration
	if err := json.NewDecoder(r.Body).Decode(&rc); err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindBadRequest, "invalid request body", err))
		return
	}
	if errs := rc.Validate(); len(errs) > 0 {
		writeError(w, s.logger, apierror.FromValidation(errs))
		return
	}
	if _, err := route.ToWire(&rc); err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindBadRequest, "invalid route configuration", err))
		return
	}

	record, err := s.routes.Create(r.Context(), rc.Name, rc)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	if err := s.xds.RefreshRoutes(r.Context()); err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindServiceUnavailable, "refresh failed", err))
		return
	}

	s.recordAudit(r.Context(), "route_config", record.ID, record.Name, repository.AuditActionCreate, nil, record.Entity)
	writeData(w, s.logger, http.StatusCreated, record.Entity)
}

func (s *APIServer) listRouteConfigs(w http.ResponseWriter, r *http.Request) {
	records, err := s.routes.ListAll(r.Context())
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}
	out := make([]model.RouteConfiguration, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Entity)
	}
	writeData(w, s.logger, http.StatusOK, out)
}

func (s *APIServer) getRouteConfig(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	record, err := s.routes.GetByName(r.Context(), name)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}
	writeData(w, s.logger, http.StatusOK, record.Entity)
}

func (s *APIServer) updateRouteConfig(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var rc model.RouteConfiguration
	if err := json.NewDecoder(r.Body).Decode(&rc); err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindBadRequest, "invalid request body", err))
		return
	}
	if rc.Name != name {
		writeError(w, s.logger, apierror.New(apierror.KindBadRequest, "payload name must equal path name"))
		return
	}
	if errs := rc.Validate(); len(errs) > 0 {
		writeError(w, s.logger, apierror.FromValidation(errs))
		return
	}
	if _, err := route.ToWire(&rc); err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindBadRequest, "invalid route configuration", err))
		return
	}

	existing, err := s.routes.GetByName(r.Context(), name)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	record, err := s.routes.Update(r.Context(), existing.ID, rc)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	if err := s.xds.RefreshRoutes(r.Context()); err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindServiceUnavailable, "refresh failed", err))
		return
	}

	s.recordAudit(r.Context(), "route_config", record.ID, record.Name, repository.AuditActionUpdate, existing.Entity, record.Entity)
	writeData(w, s.logger, http.StatusOK, record.Entity)
}

// deleteRouteConfig rejects deletion of the system-owned default gateway
// route configuration with 409 (spec §3, §4.C, Testable Property 5).
func (s *APIServer) deleteRouteConfig(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if name == s.defaultRouteConfigName {
		writeError(w, s.logger, apierror.New(apierror.KindConflict, "the default gateway route configuration cannot be deleted"))
		return
	}

	existing, err := s.routes.GetByName(r.Context(), name)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	if err := s.routes.Delete(r.Context(), existing.ID); err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	if err := s.xds.RefreshRoutes(r.Context()); err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindServiceUnavailable, "refresh failed", err))
		return
	}

	s.recordAudit(r.Context(), "route_config", existing.ID, existing.Name, repository.AuditActionDelete, existing.Entity, nil)
	writeNoContent(w)
}
