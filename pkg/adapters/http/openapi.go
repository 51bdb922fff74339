package http

import (
	_ "embed"
	"errors"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	legacyrouter "github.com/getkin/kin-openapi/routers/legacy"
)

//go:embed openapi.yaml
var rawSpec []byte

// Spec returns the embedded OpenAPI document.
func Spec() []byte { return rawSpec }

// LoadSpec parses and validates the embedded OpenAPI document.
func LoadSpec() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse openapi document: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return doc, nil
}

// validateRequests rejects requests that do not match the OpenAPI document.
// Paths the document does not describe pass through to the router.
func validateRequests(router routers.Router) func(http.Handler) http.Handler {
	opts := &openapi3filter.Options{
		// Credentials are checked by the admin middleware.
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, params, err := router.FindRoute(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			err = openapi3filter.ValidateRequest(r.Context(), &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: params,
				Route:      route,
				Options:    opts,
			})
			if err != nil {
				writeError(w, http.StatusBadRequest, validationMessage(err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func validationMessage(err error) string {
	var reqErr *openapi3filter.RequestError
	if !errors.As(err, &reqErr) {
		return err.Error()
	}
	switch {
	case reqErr.Parameter != nil:
		return fmt.Sprintf("invalid parameter %q: %s", reqErr.Parameter.Name, cause(reqErr))
	case reqErr.RequestBody != nil:
		return "invalid request body: " + cause(reqErr)
	}
	return reqErr.Error()
}

func cause(e *openapi3filter.RequestError) string {
	var schemaErr *openapi3.SchemaError
	if errors.As(e.Err, &schemaErr) {
		return schemaErr.Reason
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Reason
}

func newRouter(doc *openapi3.T) (routers.Router, error) {
	return legacyrouter.NewRouter(doc)
}
