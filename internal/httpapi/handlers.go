package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"rasad/internal/manager"
	"rasad/pkg/types"
)

type handlers struct {
	svc Service
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v
// untouched when optional is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// projectName returns the {name} URL parameter, rejecting malformed names.
func projectName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := chi.URLParam(r, "name")
	if !manager.ValidProjectName(name) {
		writeError(w, manager.ErrValidation("invalid project name %q", name))
		return "", false
	}
	return name, true
}

func truthy(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// healthz godoc
// @Summary  Liveness probe
// @Tags     system
// @Produce  json
// @Success  200 {object} map[string]bool
// @Router   /healthz [get]
func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *handlers) readyz(w http.ResponseWriter, r *http.Request) {
	if h.svc.Ready() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("workspace unavailable"))
}

// version godoc
// @Summary  Service version
// @Tags     system
// @Produce  json
// @Success  200 {object} types.VersionResponse
// @Router   /version [get]
func (h *handlers) version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.VersionResponse{Version: serviceVersion})
}

// debugEnv godoc
// @Summary  Effective runtime configuration
// @Tags     system
// @Produce  json
// @Success  200 {object} types.RuntimeInfo
// @Router   /api/debug/env [get]
func (h *handlers) debugEnv(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.RuntimeInfo())
}

// listProjects godoc
// @Summary  List projects
// @Tags     projects
// @Produce  json
// @Success  200 {object} types.ProjectsResponse
// @Failure  500 {object} types.ErrorResponse
// @Router   /api/projects [get]
func (h *handlers) listProjects(w http.ResponseWriter, r *http.Request) {
	names, err := h.svc.ListProjects()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ProjectsResponse{Projects: names})
}

// createProject godoc
// @Summary  Create a project
// @Tags     projects
// @Accept   json
// @Produce  json
// @Param    body body types.CreateProjectRequest true "project"
// @Success  200 {object} types.CreateProjectResponse
// @Failure  400 {object} types.ErrorResponse
// @Failure  409 {object} types.ErrorResponse
// @Router   /api/projects [post]
func (h *handlers) createProject(w http.ResponseWriter, r *http.Request) {
	var req types.CreateProjectRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if err := h.svc.CreateProject(name, req.Template); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.CreateProjectResponse{Created: name})
}

// tree godoc
// @Summary  List project files
// @Tags     files
// @Produce  json
// @Param    name path string true "project"
// @Success  200 {object} types.TreeResponse
// @Failure  404 {object} types.ErrorResponse
// @Router   /api/projects/{name}/tree [get]
func (h *handlers) tree(w http.ResponseWriter, r *http.Request) {
	name, ok := projectName(w, r)
	if !ok {
		return
	}
	files, err := h.svc.ProjectTree(name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.TreeResponse{Files: files})
}

// readFile godoc
// @Summary  Read a project file
// @Tags     files
// @Produce  plain
// @Param    name path  string true "project"
// @Param    path query string true "relative path"
// @Success  200 {string} string
// @Failure  400 {object} types.ErrorResponse
// @Failure  404 {object} types.ErrorResponse
// @Router   /api/projects/{name}/file [get]
func (h *handlers) readFile(w http.ResponseWriter, r *http.Request) {
	name, ok := projectName(w, r)
	if !ok {
		return
	}
	data, err := h.svc.ReadProjectFile(name, r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// saveFile godoc
// @Summary  Create or replace a project file
// @Tags     files
// @Accept   multipart/form-data
// @Produce  json
// @Param    name    path     string true "project"
// @Param    path    formData string true "relative path"
// @Param    content formData file   true "file content"
// @Success  200 {object} types.SaveFileResponse
// @Failure  400 {object} types.ErrorResponse
// @Router   /api/projects/{name}/file [post]
func (h *handlers) saveFile(w http.ResponseWriter, r *http.Request) {
	name, ok := projectName(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeJSONError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	rel := r.FormValue("path")
	var data []byte
	if f, _, err := r.FormFile("content"); err == nil {
		defer f.Close()
		if data, err = io.ReadAll(f); err != nil {
			writeJSONError(w, http.StatusBadRequest, "read content: "+err.Error())
			return
		}
	} else if v, ok := r.Form["content"]; ok && len(v) > 0 {
		data = []byte(v[0])
	} else {
		writeJSONError(w, http.StatusBadRequest, "content is required")
		return
	}
	if err := h.svc.WriteProjectFile(name, rel, data); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.SaveFileResponse{Saved: rel, Bytes: len(data)})
}

// deleteFile godoc
// @Summary  Delete a project file
// @Tags     files
// @Produce  json
// @Param    name path  string true "project"
// @Param    path query string true "relative path"
// @Success  200 {object} types.DeleteFileResponse
// @Failure  400 {object} types.ErrorResponse
// @Failure  404 {object} types.ErrorResponse
// @Router   /api/projects/{name}/file [delete]
func (h *handlers) deleteFile(w http.ResponseWriter, r *http.Request) {
	name, ok := projectName(w, r)
	if !ok {
		return
	}
	rel := r.URL.Query().Get("path")
	if err := h.svc.DeleteProjectFile(name, rel); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.DeleteFileResponse{Deleted: rel})
}

// status godoc
// @Summary  Inference status of a project
// @Tags     inference
// @Produce  json
// @Param    name path string true "project"
// @Success  200 {object} types.InferenceStatus
// @Router   /api/projects/{name}/status [get]
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	name, ok := projectName(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Status(name))
}

// train godoc
// @Summary  Train a project
// @Description Accepted jobs run in the background; wait=1 blocks until the job ends.
// @Tags     jobs
// @Produce  json
// @Param    name path  string true  "project"
// @Param    wait query bool   false "block until the job finishes"
// @Success  200 {object} types.TrainResponse
// @Success  202 {object} types.TrainResponse
// @Failure  400 {object} types.ErrorResponse
// @Failure  404 {object} types.ErrorResponse
// @Router   /api/projects/{name}/train [post]
func (h *handlers) train(w http.ResponseWriter, r *http.Request) {
	name, ok := projectName(w, r)
	if !ok {
		return
	}
	wait := truthy(r.URL.Query().Get("wait"))
	// training outlives a disconnected client
	j, err := h.svc.Train(context.WithoutCancel(r.Context()), name, wait)
	if err != nil {
		writeError(w, err)
		return
	}
	code := http.StatusAccepted
	if wait {
		code = http.StatusOK
	}
	writeJSON(w, code, types.TrainResponse{JobID: j.ID, Status: j.Status})
}

// listJobs godoc
// @Summary  List training jobs
// @Tags     jobs
// @Produce  json
// @Success  200 {object} types.JobsResponse
// @Router   /api/jobs [get]
func (h *handlers) listJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.JobsResponse{Jobs: h.svc.ListJobs()})
}

// job godoc
// @Summary  Get a training job
// @Tags     jobs
// @Produce  json
// @Param    id path string true "job id"
// @Success  200 {object} types.Job
// @Failure  404 {object} types.ErrorResponse
// @Router   /api/jobs/{id} [get]
func (h *handlers) job(w http.ResponseWriter, r *http.Request) {
	j, err := h.svc.Job(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

// jobLogs godoc
// @Summary  Training log
// @Description follow=1 streams the log until the job finishes.
// @Tags     jobs
// @Produce  plain
// @Param    id     path  string true  "job id"
// @Param    follow query bool   false "stream until the job is terminal"
// @Success  200 {string} string
// @Failure  400 {object} types.ErrorResponse
// @Failure  404 {object} types.ErrorResponse
// @Router   /api/jobs/{id}/logs [get]
func (h *handlers) jobLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f, err := h.svc.OpenJobLog(id)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if !truthy(r.URL.Query().Get("follow")) {
		defer f.Close()
		w.WriteHeader(http.StatusOK)
		_, _ = io.Copy(w, f)
		return
	}
	_ = f.Close()
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	var flush func()
	if fl, ok := w.(http.Flusher); ok {
		flush = fl.Flush
		flush()
	}
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	if err := h.svc.FollowJobLog(ctx, id, w, flush); err != nil && ctx.Err() == nil && zlog != nil {
		zlog.Warn().Err(err).Str("job_id", id).Msg("follow log")
	}
}

// startInference godoc
// @Summary  Start the inference endpoint of a project
// @Tags     inference
// @Accept   json
// @Produce  json
// @Param    name path string                       true  "project"
// @Param    body body types.StartInferenceRequest  false "port"
// @Success  200 {object} types.InferenceDescriptor
// @Failure  400 {object} types.ErrorResponse
// @Failure  409 {object} types.ErrorResponse
// @Failure  500 {object} types.ErrorResponse
// @Router   /api/projects/{name}/inference/start [post]
func (h *handlers) startInference(w http.ResponseWriter, r *http.Request) {
	name, ok := projectName(w, r)
	if !ok {
		return
	}
	var req types.StartInferenceRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	desc, err := h.svc.StartInference(context.WithoutCancel(r.Context()), name, req.Port)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, desc)
}

// stopInference godoc
// @Summary  Stop the inference endpoint of a project
// @Tags     inference
// @Produce  json
// @Param    name path string true "project"
// @Success  200 {object} types.StopInferenceResponse
// @Router   /api/projects/{name}/inference/stop [post]
func (h *handlers) stopInference(w http.ResponseWriter, r *http.Request) {
	name, ok := projectName(w, r)
	if !ok {
		return
	}
	stopped := h.svc.StopInference(context.WithoutCancel(r.Context()), name)
	writeJSON(w, http.StatusOK, types.StopInferenceResponse{Stopped: stopped})
}

// instances godoc
// @Summary  Running inference endpoints
// @Tags     inference
// @Produce  json
// @Success  200 {object} types.InferenceListResponse
// @Router   /api/inference [get]
func (h *handlers) instances(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.InferenceListResponse{Instances: h.svc.Instances()})
}

// chat godoc
// @Summary  Send a message to the running bot
// @Tags     inference
// @Accept   json
// @Produce  json
// @Param    name path string            true "project"
// @Param    body body types.ChatRequest true "message"
// @Success  200 {array} object
// @Failure  400 {object} types.ErrorResponse
// @Failure  502 {object} types.ErrorResponse
// @Router   /api/projects/{name}/chat [post]
func (h *handlers) chat(w http.ResponseWriter, r *http.Request) {
	name, ok := projectName(w, r)
	if !ok {
		return
	}
	var req types.ChatRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	out, err := h.svc.Chat(r.Context(), name, req)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}
