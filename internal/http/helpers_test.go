package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tazhibayda/task-service/internal/account"
	"github.com/tazhibayda/task-service/internal/apperr"
	"github.com/tazhibayda/task-service/internal/domain"
	api "github.com/tazhibayda/task-service/internal/http"
	"github.com/tazhibayda/task-service/internal/identity"
	"github.com/tazhibayda/task-service/internal/queue"
)

const trustedOrigin = "http://localhost:4200"

// stubDir is an in-memory identity directory.
type stubDir struct {
	recs map[string]*identity.Record
	seq  int
}

func (d *stubDir) GetByEmail(_ context.Context, email string) (*identity.Record, error) {
	if r, ok := d.recs[email]; ok {
		return r, nil
	}
	return nil, identity.ErrNotFound
}

func (d *stubDir) Create(_ context.Context, email, displayName string) (*identity.Record, error) {
	d.seq++
	r := &identity.Record{UID: "uid-" + email, Email: email, DisplayName: displayName}
	d.recs[email] = r
	return r, nil
}

// fakeStore is an in-memory stand-in for the Mongo store, mirroring its
// insert defaults and ownership filtering.
type fakeStore struct {
	users   map[string]*domain.User // by email
	tasks   map[primitive.ObjectID]*domain.Task
	pingErr error
	clock   time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: map[string]*domain.User{},
		tasks: map[primitive.ObjectID]*domain.Task{},
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *fakeStore) now() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *fakeStore) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := s.users[email]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s *fakeStore) FindUserByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) CreateUser(_ context.Context, u *domain.User) error {
	if _, ok := s.users[u.Email]; ok {
		return apperr.New(apperr.Conflict, "duplicate email")
	}
	now := s.now()
	u.CreatedAt = now
	u.UpdatedAt = now
	u.Active = true
	cp := *u
	s.users[u.Email] = &cp
	return nil
}

func (s *fakeStore) TouchLogin(_ context.Context, id, photoURL string) (*domain.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			now := s.now()
			u.LastLoginAt = &now
			u.UpdatedAt = now
			if photoURL != "" {
				u.PhotoURL = photoURL
			}
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ListTasks(_ context.Context, ownerID string) ([]domain.Task, error) {
	out := []domain.Task{}
	for _, t := range s.tasks {
		if t.UserID == ownerID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeStore) GetTask(_ context.Context, id primitive.ObjectID, ownerID string) (*domain.Task, error) {
	t, ok := s.tasks[id]
	if !ok || t.UserID != ownerID {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (s *fakeStore) CreateTask(_ context.Context, t *domain.Task) error {
	t.ID = primitive.NewObjectID()
	t.Completed = false
	if t.Priority == "" {
		t.Priority = domain.PriorityMedium
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	now := s.now()
	t.CreatedAt = now
	t.UpdatedAt = now
	cp := *t
	s.tasks[t.ID] = &cp
	return nil
}

func (s *fakeStore) UpdateTask(_ context.Context, id primitive.ObjectID, ownerID string, p domain.TaskPatch) (*domain.Task, error) {
	t, ok := s.tasks[id]
	if !ok || t.UserID != ownerID {
		return nil, nil
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		t.DueDate = p.DueDate
	}
	if p.Tags != nil {
		t.Tags = *p.Tags
	}
	t.UpdatedAt = s.now()
	cp := *t
	return &cp, nil
}

func (s *fakeStore) DeleteTask(_ context.Context, id primitive.ObjectID, ownerID string) (bool, error) {
	t, ok := s.tasks[id]
	if !ok || t.UserID != ownerID {
		return false, nil
	}
	delete(s.tasks, id)
	return true, nil
}

func (s *fakeStore) Ping(_ context.Context) error { return s.pingErr }

type testEnv struct {
	store  *fakeStore
	dir    *stubDir
	router *gin.Engine
	// verify is swappable per test to fake the external id token check
	verify *identity.Claim
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		store: newFakeStore(),
		dir:   &stubDir{recs: map[string]*identity.Record{}},
	}
	verifier := &identity.Verifier{
		Native: func(ctx context.Context, raw string) (*identity.Claim, error) {
			if env.verify == nil {
				return nil, apperr.New(apperr.InvalidToken, "invalid credential")
			}
			return env.verify, nil
		},
	}

	h := api.NewHandler(env.store, account.NewReconciler(env.dir, env.store), verifier, nil,
		"test_secret", 7, nil, 0, queue.NewNoop())
	h.FrontendURL = trustedOrigin
	h.AllowedOrigins = []string{trustedOrigin}
	h.APIKeys = []string{"test-api-key"}

	env.router = api.NewRouter(h)
	return env
}

// doJSON performs a request as the trusted frontend would: JSON body,
// trusted Origin, optional bearer token.
func (e *testEnv) doJSON(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", trustedOrigin)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("bad response body %q: %v", w.Body.String(), err)
		}
	}
	return w, out
}

func data(t *testing.T, out map[string]any) map[string]any {
	t.Helper()
	d, ok := out["data"].(map[string]any)
	if !ok {
		t.Fatalf("no data in response: %v", out)
	}
	return d
}

// register creates a user through the API and returns its id and token.
func (e *testEnv) register(t *testing.T, email string) (string, string) {
	t.Helper()
	w, out := e.doJSON(t, http.MethodPost, "/auth/register", "", gin.H{"email": email})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: %d %s", email, w.Code, w.Body.String())
	}
	d := data(t, out)
	user := d["user"].(map[string]any)
	return user["id"].(string), d["token"].(string)
}
