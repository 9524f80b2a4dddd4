package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"go.uber.org/zap"

	"github.com/graphiti-lang/graphiti/internal/introspect"
	"github.com/graphiti-lang/graphiti/internal/web/auth"
	"github.com/graphiti-lang/graphiti/internal/web/cache"
	"github.com/graphiti-lang/graphiti/internal/web/middleware"
	"github.com/graphiti-lang/graphiti/internal/web/profiling"
	"github.com/graphiti-lang/graphiti/internal/web/ratelimit"
)

const (
	healthPath = "/healthz"
	schemaPath = "/schema"

	maxBodyBytes = 1 << 20
)

// HandlerConfig wires the HTTP surface
type HandlerConfig struct {
	// Path is where the GraphQL endpoint is mounted
	Path string
	// Schema is the compiled schema served at /schema
	Schema *introspect.Schema
	// Executable is the graphql-go schema built from Schema
	Executable graphql.Schema
	// Health checks the database for /healthz; nil always reports healthy
	Health func(ctx context.Context) error
	// Auth enables bearer token checks when set
	Auth *auth.AuthService
	// Limiter enables per-client rate limiting when set
	Limiter ratelimit.Limiter
	// TrustedProxies are the addresses or CIDR ranges whose forwarding
	// headers identify the client for rate limiting
	TrustedProxies []string
	// Profiling mounts the pprof endpoints under /debug/pprof
	Profiling bool
	Logger    *zap.Logger
}

// graphqlRequest is the GraphQL over HTTP request body
type graphqlRequest struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

// NewHandler builds the router and wraps it in the middleware chain
func NewHandler(config HandlerConfig) (http.Handler, error) {
	if config.Schema == nil {
		return nil, errors.New("schema is required")
	}
	if config.Path == "" {
		config.Path = "/graphql"
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Get(healthPath, healthHandler(config.Health))
	schemaDoc, err := schemaHandler(config.Schema)
	if err != nil {
		return nil, err
	}
	r.Get(schemaPath, schemaDoc)

	gql := &graphqlHandler{schema: config.Executable, logger: logger}
	r.Get(config.Path, gql.ServeHTTP)
	r.Post(config.Path, gql.ServeHTTP)
	if config.Profiling {
		profiling.RegisterRoutes(r, profiling.DefaultPath)
	}

	chain := middleware.NewChain(
		middleware.RequestID(),
		middleware.Recovery(logger),
		middleware.Logging(logger, healthPath),
	)
	if config.Limiter != nil {
		proxies, err := middleware.ParseTrustedProxies(config.TrustedProxies)
		if err != nil {
			return nil, err
		}
		chain.Use(middleware.RateLimit(config.Limiter, proxies, logger))
	}
	if config.Auth != nil {
		chain.Use(middleware.Auth(config.Auth, logger, healthPath))
	}

	return chain.Then(r), nil
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// schemaHandler serves the schema document. The body is encoded once and
// revalidated with its ETag.
func schemaHandler(schema *introspect.Schema) (http.HandlerFunc, error) {
	body, err := json.Marshal(schema.Document())
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema: %w", err)
	}
	etag := cache.GenerateETag(body)
	loaded := time.Now()

	return func(w http.ResponseWriter, r *http.Request) {
		cache.SetCacheHeaders(w, etag, loaded, "no-cache")
		if cache.CheckConditionalRequest(w, r, etag, loaded) {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}, nil
}

type graphqlHandler struct {
	schema graphql.Schema
	logger *zap.Logger
}

func (h *graphqlHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(w, r)
	if err != nil {
		writeGraphQLError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Query == "" {
		writeGraphQLError(w, http.StatusBadRequest, "query is required")
		return
	}

	if r.Method == http.MethodGet && isMutation(req.Query, req.OperationName) {
		w.Header().Set("Allow", http.MethodPost)
		writeGraphQLError(w, http.StatusMethodNotAllowed, "mutations must use POST")
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        r.Context(),
	})
	if result.HasErrors() {
		h.logger.Debug("graphql request returned errors",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.Int("errors", len(result.Errors)),
		)
	}

	writeJSON(w, http.StatusOK, result)
}

// decodeRequest reads the request from the query string on GET and from a
// JSON or application/graphql body on POST
func decodeRequest(w http.ResponseWriter, r *http.Request) (graphqlRequest, error) {
	var req graphqlRequest

	if r.Method == http.MethodGet {
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if vars := q.Get("variables"); vars != "" {
			if err := json.Unmarshal([]byte(vars), &req.Variables); err != nil {
				return req, fmt.Errorf("invalid variables: %w", err)
			}
		}
		return req, nil
	}

	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/graphql" {
		query, err := io.ReadAll(body)
		if err != nil {
			return req, fmt.Errorf("failed to read body: %w", err)
		}
		req.Query = string(query)
		return req, nil
	}

	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	return req, nil
}

// isMutation reports whether the selected operation of the document is a
// mutation. Unparseable documents are left to the executor to report.
func isMutation(query, operationName string) bool {
	doc, err := parser.Parse(parser.ParseParams{Source: query})
	if err != nil {
		return false
	}
	for _, def := range doc.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}
		if operationName != "" && (op.Name == nil || op.Name.Value != operationName) {
			continue
		}
		return op.Operation == ast.OperationTypeMutation
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeGraphQLError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"errors": []map[string]string{{"message": message}},
	})
}
