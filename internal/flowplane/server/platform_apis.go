package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/flowplane/flowplane/internal/flowplane/apierror"
	"github.com/flowplane/flowplane/internal/flowplane/platform"
	"github.com/flowplane/flowplane/internal/flowplane/repository"
)

// apiDefinitionView is the Platform API's response shape: the ApiDefinition
// plus the derived resource names a caller needs to look them up on the
// Native surface (spec scenario S4).
type apiDefinitionView struct {
	platform.ApiDefinition
	ClusterID     string `json:"clusterId"`
	RouteConfigID string `json:"routeConfigId"`
}

func newApiDefinitionView(a platform.ApiDefinition) apiDefinitionView {
	return apiDefinitionView{
		ApiDefinition: a,
		ClusterID:     platform.ClusterName(a.ID),
		RouteConfigID: platform.RouteConfigName(a.ID),
	}
}

func (s *APIServer) createApiDefinition(w http.ResponseWriter, r *http.Request) {
	var a platform.ApiDefinition
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindBadRequest, "invalid request body", err))
		return
	}
	if errs := a.Validate(); len(errs) > 0 {
		writeError(w, s.logger, apierror.FromValidation(errs))
		return
	}

	defRecord, apiErr := s.createApiDefinitionCascade(r.Context(), a)
	if apiErr != nil {
		writeError(w, s.logger, apiErr)
		return
	}
	writeData(w, s.logger, http.StatusCreated, newApiDefinitionView(defRecord.Entity))
}

// createApiDefinitionCascade lowers a, creates its derived Cluster and
// RouteConfiguration, persists the ApiDefinition itself, and refreshes the
// xDS snapshot — rolling back whatever was already created on any failure
// (spec §4.E). Shared by the Native-shaped create endpoint and the OpenAPI
// importer, which differ only in how they build the ApiDefinition body.
func (s *APIServer) createApiDefinitionCascade(ctx context.Context, a platform.ApiDefinition) (*repository.Record[platform.ApiDefinition], *apierror.APIError) {
	a.ID = uuid.NewString()
	cluster := platform.ApiDefinitionToCluster(a.ID, &a)
	routeConfig := platform.ApiDefinitionToRouteConfiguration(a.ID, &a)

	if errs := cluster.Validate(); len(errs) > 0 {
		return nil, apierror.FromValidation(errs)
	}
	if errs := routeConfig.Validate(); len(errs) > 0 {
		return nil, apierror.FromValidation(errs)
	}

	clusterRecord, err := s.clusters.Create(ctx, cluster.Name, *cluster)
	if err != nil {
		return nil, apierror.Wrap(apierror.KindConflict, "failed creating derived cluster", err)
	}

	routeRecord, err := s.routes.Create(ctx, routeConfig.Name, *routeConfig)
	if err != nil {
		_ = s.clusters.Delete(ctx, clusterRecord.ID)
		return nil, apierror.Wrap(apierror.KindConflict, "failed creating derived route configuration, rolled back cluster", err)
	}

	defRecord, err := s.apiDefs.Create(ctx, a.ID, a)
	if err != nil {
		_ = s.routes.Delete(ctx, routeRecord.ID)
		_ = s.clusters.Delete(ctx, clusterRecord.ID)
		return nil, apierror.Wrap(apierror.KindConflict, "failed persisting api definition, rolled back derived resources", err)
	}

	if err := s.xds.RefreshAll(ctx); err != nil {
		return nil, apierror.Wrap(apierror.KindServiceUnavailable, "refresh failed", err)
	}

	s.recordAudit(ctx, "api_definition", defRecord.ID, defRecord.Name, repository.AuditActionCreate, nil, defRecord.Entity)
	return defRecord, nil
}

func (s *APIServer) listApiDefinitions(w http.ResponseWriter, r *http.Request) {
	records, err := s.apiDefs.ListAll(r.Context())
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}
	out := make([]apiDefinitionView, 0, len(records))
	for _, rec := range records {
		out = append(out, newApiDefinitionView(rec.Entity))
	}
	writeData(w, s.logger, http.StatusOK, out)
}

func (s *APIServer) getApiDefinition(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	record, err := s.apiDefs.GetByName(r.Context(), id)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}
	writeData(w, s.logger, http.StatusOK, newApiDefinitionView(record.Entity))
}

func (s *APIServer) updateApiDefinition(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var a platform.ApiDefinition
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindBadRequest, "invalid request body", err))
		return
	}
	if a.ID != "" && a.ID != id {
		writeError(w, s.logger, apierror.New(apierror.KindBadRequest, "payload id must equal path id"))
		return
	}
	if errs := a.Validate(); len(errs) > 0 {
		writeError(w, s.logger, apierror.FromValidation(errs))
		return
	}
	a.ID = id

	ctx := r.Context()

	existing, err := s.apiDefs.GetByName(ctx, id)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	cluster := platform.ApiDefinitionToCluster(id, &a)
	routeConfig := platform.ApiDefinitionToRouteConfiguration(id, &a)
	if errs := cluster.Validate(); len(errs) > 0 {
		writeError(w, s.logger, apierror.FromValidation(errs))
		return
	}
	if errs := routeConfig.Validate(); len(errs) > 0 {
		writeError(w, s.logger, apierror.FromValidation(errs))
		return
	}

	clusterExisting, err := s.clusters.GetByName(ctx, cluster.Name)
	if err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindInternal, "derived cluster missing for existing api definition", err))
		return
	}
	if _, err := s.clusters.Update(ctx, clusterExisting.ID, *cluster); err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	routeExisting, err := s.routes.GetByName(ctx, routeConfig.Name)
	if err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindInternal, "derived route configuration missing for existing api definition", err))
		return
	}
	if _, err := s.routes.Update(ctx, routeExisting.ID, *routeConfig); err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	defRecord, err := s.apiDefs.Update(ctx, existing.ID, a)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	if err := s.xds.RefreshAll(ctx); err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindServiceUnavailable, "refresh failed", err))
		return
	}

	s.recordAudit(ctx, "api_definition", defRecord.ID, defRecord.Name, repository.AuditActionUpdate, existing.Entity, defRecord.Entity)
	writeData(w, s.logger, http.StatusOK, newApiDefinitionView(defRecord.Entity))
}

// deleteApiDefinition removes the ApiDefinition and its derived resources.
// Per spec §4.E this is a best-effort cascade: a failure deleting one
// derived resource is reported as a warning but does not block deletion of
// the others or of the ApiDefinition record itself.
func (s *APIServer) deleteApiDefinition(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx := r.Context()

	existing, err := s.apiDefs.GetByName(ctx, id)
	if err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	var warnings []string

	if rec, err := s.clusters.GetByName(ctx, platform.ClusterName(id)); err == nil {
		if err := s.clusters.Delete(ctx, rec.ID); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed deleting derived cluster: %v", err))
		}
	} else if err != repository.ErrNotFound {
		warnings = append(warnings, fmt.Sprintf("failed looking up derived cluster: %v", err))
	}

	if rec, err := s.routes.GetByName(ctx, platform.RouteConfigName(id)); err == nil {
		if err := s.routes.Delete(ctx, rec.ID); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed deleting derived route configuration: %v", err))
		}
	} else if err != repository.ErrNotFound {
		warnings = append(warnings, fmt.Sprintf("failed looking up derived route configuration: %v", err))
	}

	if err := s.apiDefs.Delete(ctx, existing.ID); err != nil {
		writeError(w, s.logger, apierror.FromRepository(err))
		return
	}

	if err := s.xds.RefreshAll(ctx); err != nil {
		warnings = append(warnings, fmt.Sprintf("refresh failed: %v", err))
	}

	s.recordAudit(ctx, "api_definition", existing.ID, existing.Name, repository.AuditActionDelete, existing.Entity, nil)

	if len(warnings) > 0 {
		writeDataWithWarnings(w, s.logger, http.StatusOK, nil, warnings)
		return
	}
	writeNoContent(w)
}
