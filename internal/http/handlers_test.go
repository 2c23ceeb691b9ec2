package http_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tazhibayda/task-service/internal/identity"
)

func TestRegister_CreatesUserAndToken(t *testing.T) {
	env := newTestEnv(t)

	w, out := env.doJSON(t, http.MethodPost, "/auth/register", "", gin.H{"email": "a@b.com"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if out["status"] != "success" {
		t.Fatalf("envelope status %v", out["status"])
	}
	d := data(t, out)
	if d["token"] == "" || d["token"] == nil {
		t.Fatal("no session token")
	}
	user := d["user"].(map[string]any)
	if user["email"] != "a@b.com" || user["authType"] != "email" {
		t.Fatalf("user: %v", user)
	}
	if user["active"] != true {
		t.Fatalf("new user not active: %v", user)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@b.com")

	w, out := env.doJSON(t, http.MethodPost, "/auth/register", "", gin.H{"email": "a@b.com"})
	if w.Code != http.StatusConflict {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if out["status"] != "error" {
		t.Fatalf("envelope status %v", out["status"])
	}
}

func TestRegister_InvalidEmail(t *testing.T) {
	env := newTestEnv(t)
	for _, email := range []string{"", "not-an-email", "a@b", "a b@c.com"} {
		w, _ := env.doJSON(t, http.MethodPost, "/auth/register", "", gin.H{"email": email})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("email %q: status %d", email, w.Code)
		}
	}
}

func TestLogin_ReturnsSameUser(t *testing.T) {
	env := newTestEnv(t)
	id, _ := env.register(t, "a@b.com")

	w, out := env.doJSON(t, http.MethodPost, "/auth/login", "", gin.H{"email": "a@b.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	user := data(t, out)["user"].(map[string]any)
	if user["id"] != id {
		t.Fatalf("login returned a different user: %v vs %v", user["id"], id)
	}
	if user["lastLoginAt"] == nil {
		t.Fatal("last login not stamped")
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	env := newTestEnv(t)
	w, _ := env.doJSON(t, http.MethodPost, "/auth/login", "", gin.H{"email": "ghost@b.com"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
}

func TestLogin_HealsMissingProfile(t *testing.T) {
	env := newTestEnv(t)
	env.dir.recs["seed@b.com"] = &identity.Record{UID: "seed-uid", Email: "seed@b.com", DisplayName: "Seed"}

	w, out := env.doJSON(t, http.MethodPost, "/auth/login", "", gin.H{"email": "seed@b.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	user := data(t, out)["user"].(map[string]any)
	if user["id"] != "seed-uid" {
		t.Fatalf("healed profile must keep directory uid: %v", user["id"])
	}
}

func TestLogin_DeactivatedAccount(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@b.com")
	env.store.users["a@b.com"].Active = false

	w, _ := env.doJSON(t, http.MethodPost, "/auth/login", "", gin.H{"email": "a@b.com"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
}

func TestGoogleAuth_SignsInVerifiedClaim(t *testing.T) {
	env := newTestEnv(t)
	env.verify = &identity.Claim{SubjectID: "google-sub", Email: "g@b.com", Name: "Gee", Picture: "p", Provider: "google.com"}

	w, out := env.doJSON(t, http.MethodPost, "/auth/google", "", gin.H{"idToken": "raw-token"})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	d := data(t, out)
	user := d["user"].(map[string]any)
	if user["authType"] != "google" || user["externalId"] != "google-sub" {
		t.Fatalf("user: %v", user)
	}
	if d["token"] == nil {
		t.Fatal("no session token")
	}

	// same claim again is a login, not a second account
	w2, out2 := env.doJSON(t, http.MethodPost, "/auth/google", "", gin.H{"idToken": "raw-token"})
	if w2.Code != http.StatusOK {
		t.Fatalf("second sign-in: %d", w2.Code)
	}
	again := data(t, out2)["user"].(map[string]any)
	if again["id"] != user["id"] {
		t.Fatalf("second sign-in made a new user: %v vs %v", again["id"], user["id"])
	}
}

func TestGoogleAuth_RejectsBadToken(t *testing.T) {
	env := newTestEnv(t) // env.verify stays nil, every token fails
	w, _ := env.doJSON(t, http.MethodPost, "/auth/google", "", gin.H{"idToken": "garbage"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}

	w, _ = env.doJSON(t, http.MethodPost, "/auth/google", "", gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing idToken: status %d", w.Code)
	}
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	id, tok := env.register(t, "a@b.com")

	w, out := env.doJSON(t, http.MethodGet, "/auth/me", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	user := data(t, out)["user"].(map[string]any)
	if user["id"] != id {
		t.Fatalf("me returned %v, want %v", user["id"], id)
	}
}

func TestTasks_RequireBearer(t *testing.T) {
	env := newTestEnv(t)
	for _, tok := range []string{"", "not-a-jwt"} {
		w, _ := env.doJSON(t, http.MethodGet, "/tasks", tok, nil)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("token %q: status %d", tok, w.Code)
		}
	}
}

func TestCreateTask_Defaults(t *testing.T) {
	env := newTestEnv(t)
	_, tok := env.register(t, "a@b.com")

	w, out := env.doJSON(t, http.MethodPost, "/tasks", tok, gin.H{"title": "buy milk"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	task := data(t, out)["task"].(map[string]any)
	if task["completed"] != false {
		t.Fatalf("completed default: %v", task["completed"])
	}
	if task["priority"] != "medium" {
		t.Fatalf("priority default: %v", task["priority"])
	}
	if tags, ok := task["tags"].([]any); !ok || len(tags) != 0 {
		t.Fatalf("tags default: %v", task["tags"])
	}
}

func TestCreateTask_Validation(t *testing.T) {
	env := newTestEnv(t)
	_, tok := env.register(t, "a@b.com")

	w, _ := env.doJSON(t, http.MethodPost, "/tasks", tok, gin.H{"title": "   "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("blank title: status %d", w.Code)
	}
	w, _ = env.doJSON(t, http.MethodPost, "/tasks", tok, gin.H{"title": "x", "priority": "urgent"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad priority: status %d", w.Code)
	}
}

func TestTasks_ListNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	_, tok := env.register(t, "a@b.com")

	for _, title := range []string{"first", "second", "third"} {
		if w, _ := env.doJSON(t, http.MethodPost, "/tasks", tok, gin.H{"title": title}); w.Code != http.StatusCreated {
			t.Fatalf("create %q: %d", title, w.Code)
		}
	}

	w, out := env.doJSON(t, http.MethodGet, "/tasks", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	tasks := data(t, out)["tasks"].([]any)
	if len(tasks) != 3 {
		t.Fatalf("want 3 tasks, got %d", len(tasks))
	}
	if tasks[0].(map[string]any)["title"] != "third" {
		t.Fatalf("newest first expected: %v", tasks[0])
	}
}

func TestTasks_UpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	_, tok := env.register(t, "a@b.com")

	_, out := env.doJSON(t, http.MethodPost, "/tasks", tok, gin.H{"title": "draft"})
	id := data(t, out)["task"].(map[string]any)["id"].(string)

	w, out := env.doJSON(t, http.MethodPut, "/tasks/"+id, tok, gin.H{"title": "final", "completed": true})
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}
	task := data(t, out)["task"].(map[string]any)
	if task["title"] != "final" || task["completed"] != true {
		t.Fatalf("patch not applied: %v", task)
	}

	if w, _ := env.doJSON(t, http.MethodDelete, "/tasks/"+id, tok, nil); w.Code != http.StatusOK {
		t.Fatalf("delete: %d", w.Code)
	}
	if w, _ := env.doJSON(t, http.MethodGet, "/tasks/"+id, tok, nil); w.Code != http.StatusNotFound {
		t.Fatalf("deleted task still readable: %d", w.Code)
	}
}

func TestTasks_CrossUserIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, tokA := env.register(t, "a@b.com")
	_, tokB := env.register(t, "b@b.com")

	_, out := env.doJSON(t, http.MethodPost, "/tasks", tokA, gin.H{"title": "secret"})
	id := data(t, out)["task"].(map[string]any)["id"].(string)

	if w, _ := env.doJSON(t, http.MethodGet, "/tasks/"+id, tokB, nil); w.Code != http.StatusNotFound {
		t.Fatalf("cross-user get: %d", w.Code)
	}
	if w, _ := env.doJSON(t, http.MethodPut, "/tasks/"+id, tokB, gin.H{"title": "stolen"}); w.Code != http.StatusNotFound {
		t.Fatalf("cross-user update: %d", w.Code)
	}
	if w, _ := env.doJSON(t, http.MethodDelete, "/tasks/"+id, tokB, nil); w.Code != http.StatusNotFound {
		t.Fatalf("cross-user delete: %d", w.Code)
	}
	// still there for the owner
	if w, _ := env.doJSON(t, http.MethodGet, "/tasks/"+id, tokA, nil); w.Code != http.StatusOK {
		t.Fatalf("owner get after cross-user attempts: %d", w.Code)
	}
}

func TestTasks_MalformedIDIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, tok := env.register(t, "a@b.com")
	if w, _ := env.doJSON(t, http.MethodGet, "/tasks/not-hex", tok, nil); w.Code != http.StatusNotFound {
		t.Fatalf("malformed id: %d", w.Code)
	}
}

func TestAPIKeyGate(t *testing.T) {
	env := newTestEnv(t)

	// no trusted origin, no key
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("ungated request: %d", w.Code)
	}

	// wrong key
	req = httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.Header.Set("X-API-Key", "wrong")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("wrong key: %d", w.Code)
	}

	// valid key gets past the gate (and fails on the empty body instead)
	req = httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.Header.Set("X-API-Key", "test-api-key")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code == http.StatusForbidden {
		t.Fatalf("valid key rejected: %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("healthy: %d", w.Code)
	}

	env.store.pingErr = errors.New("mongo down")
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("degraded: %d", w.Code)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "req-42" {
		t.Fatalf("request id not echoed: %q", got)
	}
}
