package server

import (
	"io"
	"net/http"
	"net/url"

	"github.com/flowplane/flowplane/internal/flowplane/apierror"
	importer "github.com/flowplane/flowplane/internal/flowplane/platform/openapi"
)

// importOpenAPI implements §4.F: parse an OpenAPI 3.x document (JSON or
// YAML), lower it to an ApiDefinition, persist it and its derived
// resources exactly as createApiDefinition does, and surface any
// non-fatal x-flowplane-* warnings alongside the 201 response.
func (s *APIServer) importOpenAPI(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindBadRequest, "failed reading request body", err))
		return
	}

	opts := importer.ImportOptions{
		Name:     r.URL.Query().Get("name"),
		Version:  r.URL.Query().Get("version"),
		BasePath: r.URL.Query().Get("basePath"),
	}

	result, err := importer.Import(r.Context(), body, r.Header.Get("Content-Type"), opts)
	if err != nil {
		writeError(w, s.logger, apierror.Wrap(apierror.KindBadRequest, "failed to import OpenAPI document", err))
		return
	}

	a := *result.Definition
	if errs := a.Validate(); len(errs) > 0 {
		writeError(w, s.logger, apierror.FromValidation(errs))
		return
	}

	defRecord, apiErr := s.createApiDefinitionCascade(r.Context(), a)
	if apiErr != nil {
		writeError(w, s.logger, apiErr)
		return
	}
	writeDataWithWarnings(w, s.logger, http.StatusCreated, newApiDefinitionView(defRecord.Entity), result.Warnings)
}

// redirectLegacyOpenAPIImport implements the legacy path's 308 redirect to
// the Platform import endpoint (spec §4.F, scenario S6).
func (s *APIServer) redirectLegacyOpenAPIImport(w http.ResponseWriter, r *http.Request) {
	target := url.URL{
		Path:     "/api/v1/platform/import/openapi",
		RawQuery: url.Values{"name": {r.URL.Query().Get("name")}}.Encode(),
	}
	http.Redirect(w, r, target.String(), http.StatusPermanentRedirect)
}
