package v1_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"taskboard/configs"
	v1 "taskboard/internal/api/v1"
	"taskboard/internal/cache"
	"taskboard/internal/config"
	"taskboard/internal/middleware"
	"taskboard/internal/models"
	"taskboard/internal/repository"
	"taskboard/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryCache is an in-process cache.Cache used to observe invalidation.
// Invalidated keys reject Add until hold has passed.
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	held map[string]time.Time
	hold time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte), held: make(map[string]time.Time)}
}

func (m *memoryCache) Get(_ context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *memoryCache) Add(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return nil
	}
	if until, ok := m.held[key]; ok && time.Now().Before(until) {
		return nil
	}
	m.data[key] = raw
	return nil
}

func (m *memoryCache) Invalidate(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
		m.held[k] = time.Now().Add(m.hold)
	}
	return nil
}

func (m *memoryCache) Ping(context.Context) error { return nil }

func (m *memoryCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

type testEnv struct {
	app  *fiber.App
	deps *config.Dependencies
	mem  *memoryCache
}

// newTestEnv builds the full app over a fresh sqlite file. Every call to the
// store clock advances one second so updated_at strictly increases.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	dsn := "file:" + filepath.Join(t.TempDir(), "api.db") + "?_foreign_keys=on"
	db, err := sql.Open(configs.DriverSQLite, dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, repository.CreateTableIfNotExists(ctx, db, configs.DriverSQLite))

	deps := config.NewDependencies(db, nil, 0, logger.NewNop())
	t.Cleanup(func() { deps.Close() })

	var mu sync.Mutex
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	deps.Store.WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	})

	mem := newMemoryCache()
	deps.Cache = mem

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorResponder(deps.Log)})
	app.Use(middleware.Metrics(deps.Log))
	app.Use(middleware.ErrorHandler(deps.Log))
	v1.RegisterRoutes(app, deps)

	return &testEnv{app: app, deps: deps, mem: mem}
}

// do sends a JSON request. An empty password sends no credentials.
func (e *testEnv) do(t *testing.T, method, path string, body any, password string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if password != "" {
		creds := base64.StdEncoding.EncodeToString([]byte("user:" + password))
		req.Header.Set("Authorization", "Basic "+creds)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func (e *testEnv) register(t *testing.T, name, surname, email, password string) models.User {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/users/", map[string]string{
		"user_name":    name,
		"user_surname": surname,
		"email":        email,
		"password":     password,
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var u models.User
	decodeInto(t, resp, &u)
	return u
}

func (e *testEnv) createTask(t *testing.T, password string, body map[string]any) models.TaskSummary {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/tasks/", body, password)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var s models.TaskSummary
	decodeInto(t, resp, &s)
	return s
}

func (e *testEnv) getTask(t *testing.T, id int) (int, models.Task) {
	t.Helper()
	resp := e.do(t, http.MethodGet, fmt.Sprintf("/tasks/%d", id), nil, "")
	var task models.Task
	if resp.StatusCode == http.StatusOK {
		decodeInto(t, resp, &task)
	} else {
		resp.Body.Close()
	}
	return resp.StatusCode, task
}

func TestRegisterCreateFetchAndForeignDelete(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/users/", map[string]string{
		"user_name": "a", "user_surname": "b", "email": "a@x.com", "password": "p",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var raw map[string]any
	decodeInto(t, resp, &raw)
	assert.Equal(t, float64(1), raw["id"])
	assert.Equal(t, []any{}, raw["tasks"])
	assert.NotContains(t, raw, "password")
	assert.NotContains(t, raw, "hashed_password")

	resp = env.do(t, http.MethodPost, "/tasks/", map[string]any{"title": "t1"}, "p")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeInto(t, resp, &raw)
	assert.Equal(t, map[string]any{
		"id":           float64(1),
		"title":        "t1",
		"description":  nil,
		"user_name":    "a",
		"user_surname": "b",
	}, raw)

	resp = env.do(t, http.MethodGet, "/tasks/1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeInto(t, resp, &raw)
	assert.Equal(t, "t1", raw["title"])
	assert.NotEmpty(t, raw["created_at"])
	assert.NotEmpty(t, raw["updated_at"])
	assert.NotContains(t, raw, "owner_id")

	env.register(t, "c", "d", "c@x.com", "q")
	resp = env.do(t, http.MethodDelete, "/tasks/1", nil, "q")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	status, task := env.getTask(t, 1)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "t1", task.Title)
}

func TestTaskKeepsOwnerNameSnapshot(t *testing.T) {
	env := newTestEnv(t)
	u := env.register(t, "a", "b", "a@x.com", "p")
	summary := env.createTask(t, "p", map[string]any{"title": "t1"})

	_, err := env.deps.DB.Exec("UPDATE users SET user_name = $1, user_surname = $2 WHERE id = $3", "x", "y", u.ID)
	require.NoError(t, err)

	_, task := env.getTask(t, summary.ID)
	assert.Equal(t, "a", task.UserName)
	assert.Equal(t, "b", task.UserSurname)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	first := env.register(t, "a", "b", "a@x.com", "p")

	resp := env.do(t, http.MethodPost, "/users/", map[string]string{
		"user_name": "c", "user_surname": "d", "email": "a@x.com", "password": "q",
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]any
	decodeInto(t, resp, &body)
	assert.Equal(t, "Email already registered", body["message"])
	assert.Equal(t, false, body["success"])

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/users/%d", first.ID), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got models.User
	decodeInto(t, resp, &got)
	assert.Equal(t, "a@x.com", got.Email)
	assert.Equal(t, "a", got.UserName)
}

func TestRegisterDuplicateName(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a", "b", "a@x.com", "p")

	resp := env.do(t, http.MethodPost, "/users/", map[string]string{
		"user_name": "a", "user_surname": "z", "email": "z@x.com", "password": "q",
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]any
	decodeInto(t, resp, &body)
	assert.Equal(t, "User with this name already exists", body["message"])
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		body   map[string]string
		errors string
	}{
		{"missing email", map[string]string{"user_name": "a", "user_surname": "b", "password": "p"}, "email is required"},
		{"missing password", map[string]string{"user_name": "a", "user_surname": "b", "email": "a@x.com"}, "password is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/users/", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var body map[string]any
			decodeInto(t, resp, &body)
			assert.Equal(t, "Validation error", body["message"])
			assert.Contains(t, body["errors"], tt.errors)
		})
	}

	resp := env.do(t, http.MethodPost, "/users/", map[string]any{
		"user_name": "a", "user_surname": "b", "email": nil, "password": "p",
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	req := httptest.NewRequest(http.MethodPost, "/users/", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegisterAcceptsAnyStrings(t *testing.T) {
	env := newTestEnv(t)

	u := env.register(t, "a", "b", "not an address", "p")
	assert.Equal(t, "not an address", u.Email)

	resp := env.do(t, http.MethodPost, "/users/", map[string]string{
		"user_name": "", "user_surname": "", "email": "", "password": "",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var empty models.User
	decodeInto(t, resp, &empty)
	assert.Equal(t, "", empty.UserName)

	summary := env.createTask(t, "p", map[string]any{"title": ""})
	assert.Equal(t, "", summary.Title)

	resp = env.do(t, http.MethodPatch, fmt.Sprintf("/tasks/%d", summary.ID), map[string]any{"title": ""}, "p")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestListUsers(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a", "a", "a@x.com", "pa")
	env.register(t, "b", "b", "b@x.com", "pb")
	env.register(t, "c", "c", "c@x.com", "pc")
	env.createTask(t, "pb", map[string]any{"title": "b1"})

	resp := env.do(t, http.MethodGet, "/users/?skip=1&limit=1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var users []models.User
	decodeInto(t, resp, &users)
	require.Len(t, users, 1)
	assert.Equal(t, "b", users[0].UserName)
	require.Len(t, users[0].Tasks, 1)
	assert.Equal(t, "b1", users[0].Tasks[0].Title)

	resp = env.do(t, http.MethodGet, "/users", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeInto(t, resp, &users)
	assert.Len(t, users, 3)

	for _, query := range []string{"skip=-1", "limit=-5", "limit=abc"} {
		resp = env.do(t, http.MethodGet, "/users/?"+query, nil, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
		resp.Body.Close()
	}
}

func TestGetUser(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/users/42", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/users/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestProtectedRoutesRequireKnownPassword(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a", "b", "a@x.com", "p")
	env.createTask(t, "p", map[string]any{"title": "t1"})

	routes := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPost, "/tasks/", map[string]any{"title": "x"}},
		{http.MethodGet, "/tasks/", nil},
		{http.MethodDelete, "/tasks/1", nil},
		{http.MethodPatch, "/tasks/1", map[string]any{"title": "x"}},
	}
	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			resp := env.do(t, r.method, r.path, r.body, "wrong")
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var body map[string]any
			decodeInto(t, resp, &body)
			assert.Equal(t, "User is not registered", body["message"])

			// The stored value itself is not a valid password.
			resp = env.do(t, r.method, r.path, r.body, "pnotreallyhashed")
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			resp.Body.Close()

			resp = env.do(t, r.method, r.path, r.body, "")
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			resp.Body.Close()
		})
	}

	status, task := env.getTask(t, 1)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "t1", task.Title)
}

func TestListMyTasks(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a", "a", "a@x.com", "pa")
	env.register(t, "b", "b", "b@x.com", "pb")

	resp := env.do(t, http.MethodGet, "/tasks/", nil, "pa")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(raw))

	env.createTask(t, "pa", map[string]any{"title": "a1"})
	env.createTask(t, "pb", map[string]any{"title": "b1"})
	env.createTask(t, "pa", map[string]any{"title": "a2", "description": "second"})

	resp = env.do(t, http.MethodGet, "/tasks", nil, "pa")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tasks []models.Task
	decodeInto(t, resp, &tasks)
	require.Len(t, tasks, 2)
	assert.Equal(t, "a1", tasks[0].Title)
	assert.Equal(t, "a2", tasks[1].Title)
	require.NotNil(t, tasks[1].Description)
	assert.Equal(t, "second", *tasks[1].Description)

	resp = env.do(t, http.MethodGet, "/tasks/?skip=1", nil, "pa")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeInto(t, resp, &tasks)
	require.Len(t, tasks, 1)
	assert.Equal(t, "a2", tasks[0].Title)
}

func TestListAllTasks(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a", "a", "a@x.com", "pa")
	env.register(t, "b", "b", "b@x.com", "pb")
	env.createTask(t, "pa", map[string]any{"title": "a1"})
	env.createTask(t, "pb", map[string]any{"title": "b1"})

	for _, path := range []string{"/tasks/all/", "/tasks/all"} {
		resp := env.do(t, http.MethodGet, path, nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		var tasks []models.Task
		decodeInto(t, resp, &tasks)
		require.Len(t, tasks, 2)
		assert.Equal(t, "a", tasks[0].UserName)
		assert.Equal(t, "b", tasks[1].UserName)
	}

	resp := env.do(t, http.MethodGet, "/tasks/all/?limit=1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tasks []models.Task
	decodeInto(t, resp, &tasks)
	assert.Len(t, tasks, 1)
}

func TestGetTaskMissing(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.getTask(t, 9)
	assert.Equal(t, http.StatusNotFound, status)

	resp := env.do(t, http.MethodGet, "/tasks/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestCreateTaskValidation(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a", "b", "a@x.com", "p")

	resp := env.do(t, http.MethodPost, "/tasks/", map[string]any{"description": "no title"}, "p")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]any
	decodeInto(t, resp, &body)
	assert.Contains(t, body["errors"], "title is required")
}

func TestUpdateTask(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a", "b", "a@x.com", "p")
	env.register(t, "c", "d", "c@x.com", "q")
	summary := env.createTask(t, "p", map[string]any{"title": "t1", "description": "old"})
	_, before := env.getTask(t, summary.ID)

	path := fmt.Sprintf("/tasks/%d", summary.ID)

	resp := env.do(t, http.MethodPatch, path, map[string]any{"title": "stolen"}, "q")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
	_, unchanged := env.getTask(t, summary.ID)
	assert.Equal(t, "t1", unchanged.Title)
	assert.True(t, unchanged.UpdatedAt.Equal(before.UpdatedAt))

	resp = env.do(t, http.MethodPatch, path, map[string]any{"title": "t2", "description": "new"}, "p")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated models.Task
	decodeInto(t, resp, &updated)
	assert.Equal(t, "t2", updated.Title)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "new", *updated.Description)
	assert.True(t, updated.UpdatedAt.After(before.UpdatedAt))
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))
	assert.Equal(t, "a", updated.UserName)

	resp = env.do(t, http.MethodPatch, path, map[string]any{"title": "t3"}, "p")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeInto(t, resp, &updated)
	assert.Nil(t, updated.Description)

	resp = env.do(t, http.MethodPatch, path, map[string]any{"description": "x"}, "p")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPatch, "/tasks/99", map[string]any{"title": "x"}, "p")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestDeleteTask(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a", "b", "a@x.com", "p")
	summary := env.createTask(t, "p", map[string]any{"title": "t1"})
	path := fmt.Sprintf("/tasks/%d", summary.ID)

	resp := env.do(t, http.MethodDelete, path, nil, "p")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	decodeInto(t, resp, &body)
	assert.Equal(t, true, body["success"])

	status, _ := env.getTask(t, summary.ID)
	assert.Equal(t, http.StatusNotFound, status)

	resp = env.do(t, http.MethodDelete, path, nil, "p")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestCacheIsInvalidatedOnWrites(t *testing.T) {
	env := newTestEnv(t)
	u := env.register(t, "a", "b", "a@x.com", "p")
	summary := env.createTask(t, "p", map[string]any{"title": "t1"})

	_, _ = env.getTask(t, summary.ID)
	require.True(t, env.mem.has(cache.TaskKey(summary.ID)))

	resp := env.do(t, http.MethodGet, fmt.Sprintf("/users/%d", u.ID), nil, "")
	resp.Body.Close()
	require.True(t, env.mem.has(cache.UserKey(u.ID)))

	resp = env.do(t, http.MethodPatch, fmt.Sprintf("/tasks/%d", summary.ID), map[string]any{"title": "t2"}, "p")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.False(t, env.mem.has(cache.TaskKey(summary.ID)))
	assert.False(t, env.mem.has(cache.UserKey(u.ID)))

	_, task := env.getTask(t, summary.ID)
	assert.Equal(t, "t2", task.Title)

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/users/%d", u.ID), nil, "")
	resp.Body.Close()
	env.createTask(t, "p", map[string]any{"title": "t3"})
	assert.False(t, env.mem.has(cache.UserKey(u.ID)))

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/users/%d", u.ID), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got models.User
	decodeInto(t, resp, &got)
	assert.Len(t, got.Tasks, 2)

	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/tasks/%d", summary.ID), nil, "p")
	resp.Body.Close()
	status, _ := env.getTask(t, summary.ID)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/health/ready", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ready map[string]any
	decodeInto(t, resp, &ready)
	assert.Equal(t, "ok", ready["status"])

	resp = env.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "taskboard_http_requests_total")
}

func TestReadAfterWriteIsNotCachedDuringHold(t *testing.T) {
	env := newTestEnv(t)
	env.mem.hold = time.Minute
	env.register(t, "a", "b", "a@x.com", "p")
	summary := env.createTask(t, "p", map[string]any{"title": "t1"})
	key := cache.TaskKey(summary.ID)

	_, _ = env.getTask(t, summary.ID)
	require.True(t, env.mem.has(key))

	resp := env.do(t, http.MethodPatch, fmt.Sprintf("/tasks/%d", summary.ID), map[string]any{"title": "t2"}, "p")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	_, task := env.getTask(t, summary.ID)
	assert.Equal(t, "t2", task.Title)
	assert.False(t, env.mem.has(key))
}
