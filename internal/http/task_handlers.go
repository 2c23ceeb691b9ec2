package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tazhibayda/task-service/internal/apperr"
	"github.com/tazhibayda/task-service/internal/domain"
	"github.com/tazhibayda/task-service/internal/queue"
)

// taskID parses the path id. Malformed ids answer 404 like unknown
// ones: the caller learns nothing about what exists.
func taskID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		failWith(c, http.StatusNotFound, "task not found")
		return primitive.NilObjectID, false
	}
	return id, true
}

// ListTasks godoc
// @Summary List the caller's tasks, newest first
// @Tags tasks
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]any
// @Router /tasks [get]
func (h *Handler) ListTasks(c *gin.Context) {
	tasks, err := h.Store.ListTasks(c.Request.Context(), ownerID(c))
	if err != nil {
		fail(c, apperr.Wrap(apperr.Internal, "failed to retrieve tasks", err))
		return
	}
	success(c, http.StatusOK, "", gin.H{"tasks": tasks})
}

// GetTask godoc
// @Summary Get one task by id
// @Tags tasks
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /tasks/{id} [get]
func (h *Handler) GetTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	t, err := h.Store.GetTask(c.Request.Context(), id, ownerID(c))
	if err != nil {
		fail(c, apperr.Wrap(apperr.Internal, "failed to retrieve task", err))
		return
	}
	if t == nil {
		failWith(c, http.StatusNotFound, "task not found")
		return
	}
	success(c, http.StatusOK, "", gin.H{"task": t})
}

type createTaskReq struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	Tags        []string   `json:"tags"`
}

// CreateTask godoc
// @Summary Create a task
// @Tags tasks
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body createTaskReq true "task"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /tasks [post]
func (h *Handler) CreateTask(c *gin.Context) {
	var in createTaskReq
	if err := c.ShouldBindJSON(&in); err != nil {
		failWith(c, http.StatusBadRequest, "invalid json")
		return
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		failWith(c, http.StatusBadRequest, "task title is required")
		return
	}
	if in.Priority != "" && !domain.ValidPriority(in.Priority) {
		failWith(c, http.StatusBadRequest, "priority must be one of low, medium, high")
		return
	}

	t := &domain.Task{
		Title:       title,
		Description: in.Description,
		UserID:      ownerID(c),
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		Tags:        in.Tags,
	}
	if err := h.Store.CreateTask(c.Request.Context(), t); err != nil {
		fail(c, apperr.Wrap(apperr.Internal, "failed to create task", err))
		return
	}

	go h.Events.Publish(context.Background(), queue.ExchangeTasks, queue.KeyTaskCreated,
		queue.TaskCreated{TaskID: t.ID.Hex(), UserID: t.UserID, Title: t.Title, Priority: t.Priority},
		reqID(c))

	success(c, http.StatusCreated, "task created successfully", gin.H{"task": t})
}

// UpdateTask godoc
// @Summary Patch a task's fields
// @Tags tasks
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body domain.TaskPatch true "patch"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /tasks/{id} [put]
func (h *Handler) UpdateTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	var patch domain.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		failWith(c, http.StatusBadRequest, "invalid json")
		return
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		failWith(c, http.StatusBadRequest, "task title cannot be empty")
		return
	}
	if patch.Priority != nil && !domain.ValidPriority(*patch.Priority) {
		failWith(c, http.StatusBadRequest, "priority must be one of low, medium, high")
		return
	}

	t, err := h.Store.UpdateTask(c.Request.Context(), id, ownerID(c), patch)
	if err != nil {
		fail(c, apperr.Wrap(apperr.Internal, "failed to update task", err))
		return
	}
	if t == nil {
		failWith(c, http.StatusNotFound, "task not found")
		return
	}
	success(c, http.StatusOK, "task updated successfully", gin.H{"task": t})
}

// DeleteTask godoc
// @Summary Delete a task
// @Tags tasks
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /tasks/{id} [delete]
func (h *Handler) DeleteTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	deleted, err := h.Store.DeleteTask(c.Request.Context(), id, ownerID(c))
	if err != nil {
		fail(c, apperr.Wrap(apperr.Internal, "failed to delete task", err))
		return
	}
	if !deleted {
		failWith(c, http.StatusNotFound, "task not found")
		return
	}

	go h.Events.Publish(context.Background(), queue.ExchangeTasks, queue.KeyTaskDeleted,
		queue.TaskDeleted{TaskID: id.Hex(), UserID: ownerID(c)},
		reqID(c))

	success(c, http.StatusOK, "task deleted successfully", nil)
}
