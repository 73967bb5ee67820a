package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/flowplane/flowplane/internal/flowplane/apierror"
	"github.com/flowplane/flowplane/internal/flowplane/model"
	"github.com/flowplane/flowplane/internal/flowplane/platform"
	"github.com/flowplane/flowplane/internal/flowplane/repository"
)

// serviceResponse projects a ServiceDefinition's derived Cluster back to
// Platform shape via the §4.D inverse mapping, substituting the service's
// own name for the derived cluster's suffixed name.
func serviceResponse(name string, cluster *model.Cluster) *platform.ServiceResponse {
	resp := platform.ClusterToServiceResponse(cluster)
	resp.Name = name
	return resp
}

func (s *APIServer) createServiceDefinition(w http.ResponseWriter, r *http.Request) {
	var def platform.ServiceDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindBadRequest, "invalid request body", err))
		return
	}
	if errs := def.Validate(); len(errs) > 0 {
		writeError(w, s.logger, apierror.FromValidation(errs))
		return
	}

	ctx := r.Context()
	clusterName := platform.ClusterName(def.Name)
	cluster := platform.ServiceDefinitionToCluster(clusterName, &def)
	if errs := cluster.Validate(); len(errs) > 0 {
		writeError(w, s.logger, apierror.FromValidation(errs))
		return
	}

	clusterRecord, err := s.clusters.Create(ctx, cluster.Name, *cluster)
	if err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindConflict, "failed creating derived cluster", err))
		return
	}

	defRecord, err := s.serviceDefs.Create(ctx, def.Name, def)
	if err != nil {
		_ = s.clusters.Delete(ctx, clusterRecord.ID)
		writeError(w, s.logger, apierror.Wrap(apierror.KindConflict, "failed persisting service definition, rolled back derived cluster", err))
		return
	}

	if err := s.xds.RefreshClusters(ctx); err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindServiceUnavailable, "refresh failed", err))
		return
	}

	s.recordAudit(ctx, "service_definition", defRecord.ID, defRecord.Name, repository.AuditActionCreate, nil, defRecord.Entity)
	writeData(w, s.logger, http.StatusCreated, serviceResponse(def.Name, &clusterRecord.Entity))
}

func (s *APIServer) listServiceDefinitions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	records, err := s.serviceDefs.ListAll(ctx)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	out := make([]*platform.ServiceResponse, 0, len(records))
	for _, rec := range records {
		clusterRecord, err := s.clusters.GetByName(ctx, platform.ClusterName(rec.Name))
		if err != nil {
			continue
		}
		out = append(out, serviceResponse(rec.Name, &clusterRecord.Entity))
	}
	writeData(w, s.logger, http.StatusOK, out)
}

func (s *APIServer) getServiceDefinition(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	ctx := r.Context()

	if _, err := s.serviceDefs.GetByName(ctx, name); err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	clusterRecord, err := s.clusters.GetByName(ctx, platform.ClusterName(name))
	if err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindInternal, "derived cluster missing for existing service definition", err))
		return
	}

	writeData(w, s.logger, http.StatusOK, serviceResponse(name, &clusterRecord.Entity))
}

func (s *APIServer) updateServiceDefinition(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var def platform.ServiceDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindBadRequest, "invalid request body", err))
		return
	}
	if def.Name != "" && def.Name != name {
		writeError(w, s.logger, apierror.New(apierror.KindBadRequest, "payload name must equal path name"))
		return
	}
	def.Name = name
	if errs := def.Validate(); len(errs) > 0 {
		writeError(w, s.logger, apierror.FromValidation(errs))
		return
	}

	ctx := r.Context()

	existing, err := s.serviceDefs.GetByName(ctx, name)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	clusterName := platform.ClusterName(name)
	cluster := platform.ServiceDefinitionToCluster(clusterName, &def)
	if errs := cluster.Validate(); len(errs) > 0 {
		writeError(w, s.logger, apierror.FromValidation(errs))
		return
	}

	clusterExisting, err := s.clusters.GetByName(ctx, clusterName)
	if err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindInternal, "derived cluster missing for existing service definition", err))
		return
	}
	clusterRecord, err := s.clusters.Update(ctx, clusterExisting.ID, *cluster)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	defRecord, err := s.serviceDefs.Update(ctx, existing.ID, def)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	if err := s.xds.RefreshClusters(ctx); err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindServiceUnavailable, "refresh failed", err))
		return
	}

	s.recordAudit(ctx, "service_definition", defRecord.ID, defRecord.Name, repository.AuditActionUpdate, existing.Entity, defRecord.Entity)
	writeData(w, s.logger, http.StatusOK, serviceResponse(name, &clusterRecord.Entity))
}

func (s *APIServer) deleteServiceDefinition(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	ctx := r.Context()

	existing, err := s.serviceDefs.GetByName(ctx, name)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	var warnings []string
	if rec, err := s.clusters.GetByName(ctx, platform.ClusterName(name)); err == nil {
		if err := s.clusters.Delete(ctx, rec.ID); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed deleting derived cluster: %v", err))
		}
	} else if err != repository.ErrNotFound {
		warnings = append(warnings, fmt.Sprintf("failed looking up derived cluster: %v", err))
	}

	if err := s.serviceDefs.Delete(ctx, existing.ID); err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	if err := s.xds.RefreshClusters(ctx); err != nil {
		warnings = append(warnings, fmt.Sprintf("refresh failed: %v", err))
	}

	s.recordAudit(ctx, "service_definition", existing.ID, existing.Name, repository.AuditActionDelete, existing.Entity, nil)

	if len(warnings) > 0 {
		writeDataWithWarnings(w, s.logger, http.StatusOK, nil, warnings)
		return
	}
	writeNoContent(w)
}
