// Package rest exposes entity resolution over HTTP.
//
// Routes:
//
//	POST /_entigo/resolution
//	POST /_entigo/resolution/{entity_type}
//
// The request body carries the seed attributes, the scope, and either an
// inline model or an entity type whose model is loaded from the store.
// Query parameters map to job options: _attributes, hits, queries, _source,
// max_docs_per_query, max_hops, pretty, profile.
package rest

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hupe1980/entigo"
	"github.com/hupe1980/entigo/backend"
	"github.com/hupe1980/entigo/codec"
	"github.com/hupe1980/entigo/model"
	"github.com/hupe1980/entigo/modelstore"
)

// BadRequestError reports a request envelope that failed parsing or its
// semantic checks.
type BadRequestError struct {
	Reason string
}

func (e *BadRequestError) Error() string { return e.Reason }

func badRequest(format string, args ...any) *BadRequestError {
	return &BadRequestError{Reason: fmt.Sprintf(format, args...)}
}

// Handler serves resolution requests.
type Handler struct {
	store modelstore.Store
	be    backend.Backend
	opts  []entigo.Option
}

// NewHandler creates a handler resolving against the given backend, loading
// stored models from the store. The options are applied to every job, before
// the per-request query parameters.
func NewHandler(store modelstore.Store, be backend.Backend, optFns ...entigo.Option) *Handler {
	return &Handler{store: store, be: be, opts: optFns}
}

// Register mounts the resolution routes.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/_entigo/resolution", h.resolve)
	r.POST("/_entigo/resolution/:entity_type", h.resolve)
}

// NewRouter creates a gin engine with the resolution routes mounted.
func NewRouter(store modelstore.Store, be backend.Backend, optFns ...entigo.Option) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	h := NewHandler(store, be, optFns...)
	h.Register(r)
	return r
}

func (h *Handler) resolve(c *gin.Context) {
	envelope, err := h.run(c)
	if err != nil {
		status := http.StatusInternalServerError
		var bre *BadRequestError
		var ve *model.ValidationError
		var ioe *entigo.IOError
		switch {
		case errors.As(err, &bre), errors.As(err, &ve):
			status = http.StatusBadRequest
		case errors.Is(err, modelstore.ErrNotFound):
			status = http.StatusNotFound
		case errors.As(err, &ioe):
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": err.Error(), "status": status})
		return
	}
	c.Data(http.StatusOK, "application/json", envelope)
}

func (h *Handler) run(c *gin.Context) ([]byte, error) {
	opts, err := parseJobParams(c)
	if err != nil {
		return nil, err
	}
	opts = append(append([]entigo.Option(nil), h.opts...), opts...)

	raw, err := c.GetRawData()
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, badRequest("request body is missing")
	}
	var body map[string]any
	if err := codec.Default.Unmarshal(raw, &body); err != nil {
		return nil, badRequest("request body must be valid JSON: %s", err)
	}

	entityType, err := parseEntityType(c.Param("entity_type"), body)
	if err != nil {
		return nil, err
	}
	if err := validateModelSource(entityType, body); err != nil {
		return nil, err
	}

	m, err := h.loadModel(c, entityType, body)
	if err != nil {
		return nil, err
	}

	scope, err := parseScope(body)
	if err != nil {
		return nil, err
	}
	m, err = filterModel(m, scope)
	if err != nil {
		return nil, err
	}

	seeds, err := parseAttributes(body)
	if err != nil {
		return nil, err
	}
	input, err := entigo.NewInput(m, seeds)
	if err != nil {
		return nil, err
	}
	if scope.includeAttributes != nil {
		if err := input.SetScopeIncludeAttributes(scope.includeAttributes); err != nil {
			return nil, err
		}
	}
	if scope.excludeAttributes != nil {
		if err := input.SetScopeExcludeAttributes(scope.excludeAttributes); err != nil {
			return nil, err
		}
	}

	job := entigo.NewJob(h.be, input, opts...)
	return job.Run(c.Request.Context())
}

func (h *Handler) loadModel(c *gin.Context, entityType string, body map[string]any) (*model.Model, error) {
	inline, hasInline := body["model"]
	if entityType == "" && !hasInline {
		return nil, badRequest("the 'model' field is missing from the request body while 'entity_type' is undefined")
	}
	if hasInline {
		obj, ok := inline.(map[string]any)
		if !ok {
			return nil, badRequest("entity model must be an object")
		}
		doc, err := codec.Default.Marshal(obj)
		if err != nil {
			return nil, err
		}
		return model.Parse(doc)
	}
	return h.store.Get(c.Request.Context(), entityType)
}

// parseEntityType reads the entity type from the URL or the request body,
// but not both.
func parseEntityType(fromURL string, body map[string]any) (string, error) {
	fromBody := ""
	if v, ok := body["entity_type"]; ok {
		s, ok := v.(string)
		if !ok {
			return "", badRequest("'entity_type' must be a string")
		}
		fromBody = s
	}
	if fromURL == "" {
		return fromBody, nil
	}
	if fromBody != "" {
		return "", badRequest("'entity_type' must be specified in the request body or URL, but not both")
	}
	return fromURL, nil
}

// validateModelSource guards against supplying both an entity type and an
// inline model.
func validateModelSource(entityType string, body map[string]any) error {
	if _, hasInline := body["model"]; hasInline && entityType != "" {
		return badRequest("'entity_type' and 'model' must not both be specified")
	}
	return nil
}

// parseAttributes extracts the seed attributes in the form NewInput accepts.
func parseAttributes(body map[string]any) (map[string]any, error) {
	raw, ok := body["attributes"]
	if !ok {
		return nil, badRequest("'attributes' field is missing from the request body")
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, badRequest("the 'attributes' field of the request body must be an object")
	}
	if len(obj) == 0 {
		return nil, badRequest("the 'attributes' field of the request body must not be empty")
	}
	return obj, nil
}

type scope struct {
	indices           []string
	resolvers         []string
	includeAttributes map[string]any
	excludeAttributes map[string]any
}

func parseScope(body map[string]any) (*scope, error) {
	s := &scope{}
	raw, ok := body["scope"]
	if !ok || raw == nil {
		return s, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, badRequest("the 'scope' field of the request body must be an object")
	}

	var err error
	if s.indices, err = parseNameList("scope.indices", obj["indices"]); err != nil {
		return nil, err
	}
	if s.resolvers, err = parseNameList("scope.resolvers", obj["resolvers"]); err != nil {
		return nil, err
	}

	for _, part := range []struct {
		key  string
		into *map[string]any
	}{
		{"include", &s.includeAttributes},
		{"exclude", &s.excludeAttributes},
	} {
		raw, ok := obj[part.key]
		if !ok || raw == nil {
			continue
		}
		partObj, ok := raw.(map[string]any)
		if !ok {
			return nil, badRequest("'scope.%s' must be an object", part.key)
		}
		attrsRaw, ok := partObj["attributes"]
		if !ok || attrsRaw == nil {
			continue
		}
		attrs, ok := attrsRaw.(map[string]any)
		if !ok {
			return nil, badRequest("'scope.%s.attributes' must be an object", part.key)
		}
		*part.into = attrs
	}
	return s, nil
}

// parseNameList accepts a string or an array of non-empty strings.
func parseNameList(field string, raw any) ([]string, error) {
	switch x := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if x == "" {
			return nil, badRequest("'%s' must have non-empty strings", field)
		}
		return []string{x}, nil
	case []any:
		var names []string
		for _, e := range x {
			s, ok := e.(string)
			if !ok || s == "" {
				return nil, badRequest("'%s' must be a string or an array of non-empty strings", field)
			}
			names = append(names, s)
		}
		return names, nil
	default:
		return nil, badRequest("'%s' must be a string or an array of non-empty strings", field)
	}
}

// filterModel intersects the model's indices and resolvers with the scope.
func filterModel(m *model.Model, s *scope) (*model.Model, error) {
	if len(s.indices) == 0 && len(s.resolvers) == 0 {
		return m, nil
	}

	indices := m.Indices()
	if len(s.indices) > 0 {
		filtered := map[string]*model.Index{}
		for _, name := range s.indices {
			idx, ok := indices[name]
			if !ok {
				return nil, badRequest("'%s' is not in the 'indices' field of the entity model", name)
			}
			filtered[name] = idx
		}
		indices = filtered
	}

	resolvers := m.Resolvers()
	if len(s.resolvers) > 0 {
		filtered := map[string]*model.Resolver{}
		for _, name := range s.resolvers {
			r, ok := resolvers[name]
			if !ok {
				return nil, badRequest("'%s' is not in the 'resolvers' field of the entity model", name)
			}
			filtered[name] = r
		}
		resolvers = filtered
	}

	return model.New(m.Attributes(), m.Matchers(), resolvers, indices)
}

// parseJobParams maps the request query parameters to job options.
func parseJobParams(c *gin.Context) ([]entigo.Option, error) {
	var opts []entigo.Option

	boolParams := []struct {
		name string
		opt  func(bool) entigo.Option
	}{
		{"_attributes", entigo.WithIncludeAttributes},
		{"hits", entigo.WithIncludeHits},
		{"queries", entigo.WithIncludeQueries},
		{"_source", entigo.WithIncludeSource},
		{"pretty", entigo.WithPretty},
		{"profile", entigo.WithProfile},
	}
	for _, p := range boolParams {
		raw, ok := c.GetQuery(p.name)
		if !ok {
			continue
		}
		if raw == "" {
			// Bare flags like "?pretty" mean true.
			opts = append(opts, p.opt(true))
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, badRequest("'%s' must be a boolean", p.name)
		}
		opts = append(opts, p.opt(v))
	}

	intParams := []struct {
		name string
		opt  func(int) entigo.Option
	}{
		{"max_docs_per_query", entigo.WithMaxDocsPerQuery},
		{"max_hops", entigo.WithMaxHops},
	}
	for _, p := range intParams {
		raw, ok := c.GetQuery(p.name)
		if !ok {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, badRequest("'%s' must be an integer", p.name)
		}
		opts = append(opts, p.opt(v))
	}
	return opts, nil
}
