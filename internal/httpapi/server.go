package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rasad/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Ready() bool
	RuntimeInfo() types.RuntimeInfo

	ListProjects() ([]string, error)
	CreateProject(name, template string) error
	ProjectTree(name string) ([]string, error)
	ReadProjectFile(name, rel string) ([]byte, error)
	WriteProjectFile(name, rel string, data []byte) error
	DeleteProjectFile(name, rel string) error

	Train(ctx context.Context, name string, wait bool) (types.Job, error)
	Job(id string) (types.Job, error)
	ListJobs() []types.Job
	OpenJobLog(id string) (*os.File, error)
	FollowJobLog(ctx context.Context, id string, w io.Writer, flush func()) error

	Status(name string) types.InferenceStatus
	Instances() []types.InferenceStatus
	StartInference(ctx context.Context, name string, port int) (types.InferenceDescriptor, error)
	StopInference(ctx context.Context, name string) bool
	Chat(ctx context.Context, name string, req types.ChatRequest) (json.RawMessage, error)
}

// NewMux builds the router for svc.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(MetricsMiddleware)
	r.Use(middleware.Recoverer)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   corsAllowedOrigins,
			AllowedMethods:   corsAllowedMethods,
			AllowedHeaders:   corsAllowedHeaders,
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	h := &handlers{svc: svc}

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	r.Get("/version", h.version)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/debug/env", h.debugEnv)

		r.Get("/projects", h.listProjects)
		r.Post("/projects", h.createProject)
		r.Route("/projects/{name}", func(r chi.Router) {
			r.Get("/tree", h.tree)
			r.Get("/file", h.readFile)
			r.Post("/file", h.saveFile)
			r.Delete("/file", h.deleteFile)
			r.Get("/status", h.status)
			r.Post("/train", h.train)
			r.Post("/inference/start", h.startInference)
			r.Post("/inference/stop", h.stopInference)
			r.Post("/chat", h.chat)
		})

		r.Get("/jobs", h.listJobs)
		r.Get("/jobs/{id}", h.job)
		r.Get("/jobs/{id}/logs", h.jobLogs)

		r.Get("/inference", h.instances)
	})

	MountSwagger(r)
	return r
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
