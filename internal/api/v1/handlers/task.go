package handlers

import (
	"errors"

	"taskboard/internal/cache"
	"taskboard/internal/metrics"
	"taskboard/internal/middleware"
	"taskboard/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CreateTask creates a task owned by the authenticated user.
func (h *Handler) CreateTask(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var req models.TaskCreate
	if ok, err := h.parseBody(c, &req); !ok {
		return err
	}

	ctx := c.UserContext()
	summary, err := h.store.CreateTask(ctx, req.NewTask(), user.ID)
	if err != nil {
		return h.storageError(c, "Error creating task", err)
	}
	h.forget(ctx, cache.UserKey(user.ID))

	metrics.TasksCreatedTotal.Inc()
	h.log.Audit.Info("Task created successfully", zap.Int("task_id", summary.ID), zap.Int("user_id", user.ID))
	return c.Status(fiber.StatusCreated).JSON(summary)
}

// ListTasks lists every task regardless of owner.
func (h *Handler) ListTasks(c *fiber.Ctx) error {
	page, ok, err := h.parsePage(c)
	if !ok {
		return err
	}

	tasks, err := h.store.ListTasks(c.UserContext(), page.Skip, page.Limit)
	if err != nil {
		return h.storageError(c, "Error fetching tasks", err)
	}
	return c.JSON(tasks)
}

// ListMyTasks lists the authenticated user's tasks; an empty list is 200.
func (h *Handler) ListMyTasks(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	page, ok, err := h.parsePage(c)
	if !ok {
		return err
	}

	tasks, err := h.store.ListTasksByOwner(c.UserContext(), user.ID, page.Skip, page.Limit)
	if err != nil {
		return h.storageError(c, "Error fetching tasks", err)
	}
	return c.JSON(tasks)
}

func (h *Handler) GetTask(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid task ID")
	}

	ctx := c.UserContext()
	key := cache.TaskKey(id)
	var task models.Task
	if h.cached(ctx, "task", key, &task) {
		return c.JSON(task)
	}

	found, err := h.store.GetTask(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return errorResponse(c, fiber.StatusNotFound, "Task not found")
	}
	if err != nil {
		return h.storageError(c, "Error fetching task", err)
	}

	h.remember(ctx, key, found)
	return c.JSON(found)
}

// ownedTask loads task id if user owns it. Other users' tasks are reported
// as missing so their existence is not revealed.
func (h *Handler) ownedTask(c *fiber.Ctx, user *models.User, id int, action string) (*models.Task, error) {
	task, err := h.store.GetTaskByOwner(c.UserContext(), user.ID, id)
	if errors.Is(err, models.ErrNotFound) {
		h.log.Security.Warn("Task not owned by caller",
			zap.String("action", action),
			zap.Int("user_id", user.ID),
			zap.Int("task_id", id),
		)
		return nil, errorResponse(c, fiber.StatusNotFound, "Task not found")
	}
	if err != nil {
		return nil, h.storageError(c, "Error fetching task", err)
	}
	return task, nil
}

func (h *Handler) DeleteTask(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	id, err := c.ParamsInt("id")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid task ID")
	}

	task, err := h.ownedTask(c, user, id, "delete")
	if task == nil {
		return err
	}

	ctx := c.UserContext()
	err = h.store.DeleteTask(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return errorResponse(c, fiber.StatusNotFound, "Task not found")
	}
	if err != nil {
		return h.storageError(c, "Error deleting task", err)
	}
	h.forget(ctx, cache.TaskKey(id), cache.UserKey(task.OwnerID))

	metrics.TasksDeletedTotal.Inc()
	h.log.Audit.Info("Task deleted", zap.Int("task_id", id), zap.Int("user_id", user.ID))
	return c.JSON(fiber.Map{
		"message": "Task deleted successfully",
		"success": true,
		"status":  fiber.StatusOK,
	})
}

// UpdateTask replaces title and description; an omitted description is
// cleared.
func (h *Handler) UpdateTask(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	id, err := c.ParamsInt("id")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid task ID")
	}

	var req models.TaskUpdate
	if ok, err := h.parseBody(c, &req); !ok {
		return err
	}

	task, err := h.ownedTask(c, user, id, "update")
	if task == nil {
		return err
	}

	ctx := c.UserContext()
	updated, err := h.store.UpdateTask(ctx, id, *req.Title, req.Description)
	if errors.Is(err, models.ErrNotFound) {
		return errorResponse(c, fiber.StatusNotFound, "Task not found")
	}
	if err != nil {
		return h.storageError(c, "Error updating task", err)
	}
	h.forget(ctx, cache.TaskKey(id), cache.UserKey(task.OwnerID))

	metrics.TasksUpdatedTotal.Inc()
	h.log.Audit.Info("Task updated", zap.Int("task_id", id), zap.Int("user_id", user.ID))
	return c.JSON(updated)
}
