package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/apiserver/config"
	"github.com/taskhub/apiserver/internal/services"
	"github.com/taskhub/apiserver/internal/store"
	"github.com/taskhub/apiserver/internal/validation"
	"github.com/taskhub/apiserver/types"
)

var testJWTConfig = config.JWTConfig{Secret: "test-secret-key", TokenTTL: time.Hour}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// envelope mirrors the response wrapper for decoding in tests.
type envelope struct {
	Success    bool                    `json:"success"`
	Data       json.RawMessage         `json:"data"`
	Message    string                  `json:"message"`
	Errors     []validation.FieldError `json:"errors"`
	Pagination *Pagination             `json:"pagination"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func errorFields(env envelope) []string {
	out := make([]string, len(env.Errors))
	for i, fe := range env.Errors {
		out[i] = fe.Field
	}
	return out
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// withUser injects an already-authenticated user, standing in for the JWT
// middleware in tests that are not about token handling.
func withUser(user types.User) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), contextUserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// fakeUserRepo is an in-memory services.UserRepository.
type fakeUserRepo struct {
	users  map[int]types.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]types.User), nextID: 1}
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) taken(candidate types.User) bool {
	for id, user := range r.users {
		if id == candidate.ID {
			continue
		}
		if user.Username == candidate.Username || user.Email == candidate.Email {
			return true
		}
	}
	return false
}

func (r *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	if r.taken(user) {
		return types.User{}, store.ErrConflict
	}
	user.ID = r.nextID
	r.nextID++
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) Update(_ context.Context, user types.User) (types.User, error) {
	if _, ok := r.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	if r.taken(user) {
		return types.User{}, store.ErrConflict
	}
	user.UpdatedAt = time.Now()
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) TouchLastLogin(_ context.Context, id int, at time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.LastLoginAt = &at
	r.users[id] = user
	return nil
}

func (r *fakeUserRepo) List(_ context.Context) ([]types.User, error) {
	users := make([]types.User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, user)
	}
	return users, nil
}

// fakeTaskRepo is an in-memory services.TaskRepository.
type fakeTaskRepo struct {
	tasks  []types.Task
	nextID int
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{nextID: 1}
}

func (r *fakeTaskRepo) List(_ context.Context, filter store.TaskFilter) ([]types.Task, int, error) {
	matched := make([]types.Task, 0)
	for _, task := range r.tasks {
		if task.UserID != filter.UserID || task.IsDeleted {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && task.Priority != filter.Priority {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(task.Title), needle) &&
				!strings.Contains(strings.ToLower(task.Description), needle) {
				continue
			}
		}
		matched = append(matched, task)
	}

	total := len(matched)
	if filter.Offset >= total {
		return []types.Task{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

func (r *fakeTaskRepo) Get(_ context.Context, id, userID int) (types.Task, error) {
	for _, task := range r.tasks {
		if task.ID == id && task.UserID == userID && !task.IsDeleted {
			return task, nil
		}
	}
	return types.Task{}, store.ErrNotFound
}

func (r *fakeTaskRepo) Create(_ context.Context, task types.Task) (types.Task, error) {
	task.ID = r.nextID
	r.nextID++
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now
	r.tasks = append(r.tasks, task)
	return task, nil
}

func (r *fakeTaskRepo) Update(_ context.Context, task types.Task) (types.Task, error) {
	for i, existing := range r.tasks {
		if existing.ID == task.ID && existing.UserID == task.UserID && !existing.IsDeleted {
			task.UpdatedAt = time.Now()
			r.tasks[i] = task
			return task, nil
		}
	}
	return types.Task{}, store.ErrNotFound
}

func (r *fakeTaskRepo) SoftDelete(_ context.Context, id, userID int) error {
	for i, task := range r.tasks {
		if task.ID == id && task.UserID == userID && !task.IsDeleted {
			r.tasks[i].IsDeleted = true
			return nil
		}
	}
	return store.ErrNotFound
}

func (r *fakeTaskRepo) CountByStatus(_ context.Context, userID int) (map[types.Status]int, error) {
	counts := make(map[types.Status]int)
	for _, task := range r.tasks {
		if task.UserID == userID && !task.IsDeleted {
			counts[task.Status]++
		}
	}
	return counts, nil
}

func newAuthRouter(t *testing.T) (*chi.Mux, *services.UserService, *AuthHandler) {
	t.Helper()
	userService := services.NewUserService(newFakeUserRepo())
	handler := NewAuthHandler(userService, testJWTConfig, testLogger())
	router := chi.NewRouter()
	router.Route("/api/auth", func(r chi.Router) {
		AuthRouter(r, handler)
	})
	return router, userService, handler
}

func registerTestUser(t *testing.T, router http.Handler) string {
	t.Helper()
	req := jsonRequest(t, http.MethodPost, "/api/auth/register", services.RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "Passw0rd",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	env := decodeEnvelope(t, rec)
	var data AuthData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}
