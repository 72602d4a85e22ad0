package handlers

import (
	"errors"
	"net/http"

	"sponte/internal/agents"
	"sponte/internal/store"
	"sponte/pkg/api"

	"github.com/google/uuid"
)

// CreateTask handles POST /tasks.
// The task is stored pending; POST /tasks/{id}/process generates its content.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req api.CreateTaskRequest
	if !h.decode(w, r, &req) {
		return
	}

	locationID, err := uuid.Parse(req.LocationID)
	if err != nil {
		h.httpError(w, "Invalid location id", http.StatusBadRequest)
		return
	}
	if _, ok := h.ownedLocation(w, r, locationID); !ok {
		return
	}

	task, err := h.agents.CreateTask(r.Context(), agents.CreateTaskRequest{
		LocationID:   locationID,
		AgentType:    store.AgentType(req.AgentType),
		TaskType:     store.TaskType(req.TaskType),
		ScheduledFor: req.ScheduledFor,
		Context:      req.Context,
	})
	if err != nil {
		h.serviceError(w, r, err, "Location")
		return
	}
	h.respondJson(w, http.StatusCreated, toTaskResponse(task))
}

// ownedTask loads the {id} task and checks the principal owns its location.
func (h *Handlers) ownedTask(w http.ResponseWriter, r *http.Request) (*store.Task, bool) {
	id, ok := h.pathID(w, r, "id", "task")
	if !ok {
		return nil, false
	}
	task, err := h.store.GetTask(r.Context(), id)
	if err != nil {
		h.serviceError(w, r, err, "Task")
		return nil, false
	}
	if _, ok := h.ownedLocation(w, r, task.LocationID); !ok {
		return nil, false
	}
	return task, true
}

// GetTask handles GET /tasks/{id}.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.ownedTask(w, r)
	if !ok {
		return
	}
	h.respondJson(w, http.StatusOK, toTaskResponse(task))
}

// ProcessTask handles POST /tasks/{id}/process.
// Only a pending task can be processed; a second call returns 409.
func (h *Handlers) ProcessTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.ownedTask(w, r)
	if !ok {
		return
	}

	out, err := h.agents.ProcessTask(r.Context(), task.ID)
	if err != nil {
		h.serviceError(w, r, err, "Task")
		return
	}
	h.respondJson(w, http.StatusOK, toOutputResponse(out))
}

// ListTasks handles GET /locations/{id}/tasks.
// Optional filters: agent, status.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	loc, ok := h.locationParam(w, r)
	if !ok {
		return
	}
	limit, offset, ok := h.page(w, r)
	if !ok {
		return
	}

	f := store.TaskFilter{LocationID: loc.ID, Limit: limit, Offset: offset}
	q := r.URL.Query()
	if v := q.Get("agent"); v != "" {
		f.AgentType = store.AgentType(v)
		if !f.AgentType.Valid() {
			h.httpError(w, "Unknown agent type", http.StatusBadRequest)
			return
		}
	}
	if v := q.Get("status"); v != "" {
		f.Status = store.TaskStatus(v)
		if !f.Status.Valid() {
			h.httpError(w, "Unknown task status", http.StatusBadRequest)
			return
		}
	}

	tasks, err := h.store.ListTasks(r.Context(), f)
	if err != nil {
		h.serviceError(w, r, err, "Task")
		return
	}
	resp := api.TaskListResponse{Tasks: make([]api.TaskResponse, 0, len(tasks))}
	for i := range tasks {
		resp.Tasks = append(resp.Tasks, toTaskResponse(&tasks[i]))
	}
	h.respondJson(w, http.StatusOK, resp)
}

// Generate handles POST /agents/{agent}/generate.
// It creates and processes a task in one call. A generation failure still
// returns the failed task alongside the 502.
func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	agent, ok := h.agentParam(w, r)
	if !ok {
		return
	}

	var req api.GenerateRequest
	if !h.decode(w, r, &req) {
		return
	}
	locationID, err := uuid.Parse(req.LocationID)
	if err != nil {
		h.httpError(w, "Invalid location id", http.StatusBadRequest)
		return
	}
	if _, ok := h.ownedLocation(w, r, locationID); !ok {
		return
	}

	task, out, err := h.agents.Generate(r.Context(), agents.CreateTaskRequest{
		LocationID: locationID,
		AgentType:  agent,
		TaskType:   store.TaskType(req.TaskType),
		Context:    req.Context,
	})
	var genErr *agents.GenerationError
	if errors.As(err, &genErr) && task != nil {
		if failed, getErr := h.store.GetTask(r.Context(), task.ID); getErr == nil {
			task = failed
		}
		h.respondJson(w, http.StatusBadGateway, map[string]any{
			"error":   "Content generation failed",
			"code":    "502",
			"details": genErr.Err.Error(),
			"task":    toTaskResponse(task),
		})
		return
	}
	if err != nil {
		h.serviceError(w, r, err, "Location")
		return
	}

	resp := api.GenerateResponse{Task: toTaskResponse(task)}
	if out != nil {
		o := toOutputResponse(out)
		resp.Output = &o
		if completed, getErr := h.store.GetTask(r.Context(), task.ID); getErr == nil {
			resp.Task = toTaskResponse(completed)
		}
	}
	h.respondJson(w, http.StatusCreated, resp)
}
