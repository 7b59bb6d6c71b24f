package handlers

import (
	"context"

	"taskboard/internal/cache"
	"taskboard/internal/models"
	"taskboard/pkg/logger"

	"github.com/go-playground/validator/v10"
)

// Store is the data-access surface the handlers need. Absent rows are
// reported as models.ErrNotFound.
type Store interface {
	GetUser(ctx context.Context, id int) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, skip, limit int) ([]models.User, error)
	CreateUser(ctx context.Context, in models.NewUser) (*models.User, error)

	CreateTask(ctx context.Context, in models.NewTask, ownerID int) (*models.TaskSummary, error)
	ListTasks(ctx context.Context, skip, limit int) ([]models.Task, error)
	ListTasksByOwner(ctx context.Context, ownerID, skip, limit int) ([]models.Task, error)
	GetTask(ctx context.Context, id int) (*models.Task, error)
	GetTaskByOwner(ctx context.Context, ownerID, taskID int) (*models.Task, error)
	DeleteTask(ctx context.Context, id int) error
	UpdateTask(ctx context.Context, id int, title string, description *string) (*models.Task, error)
}

type Handler struct {
	store    Store
	cache    cache.Cache
	validate *validator.Validate
	log      *logger.Loggers
}

func New(store Store, c cache.Cache, validate *validator.Validate, log *logger.Loggers) *Handler {
	return &Handler{
		store:    store,
		cache:    c,
		validate: validate,
		log:      log,
	}
}
