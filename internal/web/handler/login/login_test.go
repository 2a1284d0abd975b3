package login

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/stoatbridge/stoatbridge/internal/auth"
	"github.com/stoatbridge/stoatbridge/internal/config"
	"github.com/stoatbridge/stoatbridge/internal/db/models"
	websess "github.com/stoatbridge/stoatbridge/internal/web/session"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite in-memory db: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("failed to migrate user model: %v", err)
	}

	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		Webserver: config.Webserver{
			URL:     "http://localhost",
			Port:    3000,
			Session: config.Session{ExpiryTime: time.Minute},
		},
	}
}

// testStorage is a minimal in-memory session storage for tests.
type testStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func (s *testStorage) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := s.data[key]
	out := make([]byte, len(v))
	copy(out, v)

	return out, nil
}

func (s *testStorage) Set(key string, val []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string][]byte)
	}

	buf := make([]byte, len(val))
	copy(buf, val)
	s.data[key] = buf

	return nil
}

func (s *testStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)

	return nil
}

func (s *testStorage) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string][]byte)

	return nil
}

func (s *testStorage) Close() error { return nil }

func newTestService(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	app := fiber.New()

	websess.Init(&testStorage{data: make(map[string][]byte)})

	var s Service
	if err := s.Init(app, newTestConfig(), db); err != nil {
		t.Fatalf("failed to init login handler: %v", err)
	}

	return app, db
}

func performLogin(t *testing.T, app *fiber.App, body string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, Path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	return resp
}

func TestPostSuccessSetsCookie(t *testing.T) {
	app, db := newTestService(t)

	lp := auth.NewLocalProvider(db)
	if _, err := lp.CreateUser("bob", "bob@example.com", "s3cr3t"); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	resp := performLogin(t, app, `{"username":"bob","password":"s3cr3t"}`)

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", resp.StatusCode)
	}

	setCookie := resp.Header.Get("Set-Cookie")
	if !strings.Contains(setCookie, "session=") {
		t.Fatalf("expected session cookie, got %q", setCookie)
	}

	if !strings.Contains(strings.ToLower(setCookie), "secure") {
		t.Fatalf("expected Secure flag on cookie when DevMode=false, got %q", setCookie)
	}

	var user struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if user.Username != "bob" || user.Email != "bob@example.com" {
		t.Fatalf("unexpected user response: %+v", user)
	}
}

func TestPostWrongPassword(t *testing.T) {
	app, db := newTestService(t)

	lp := auth.NewLocalProvider(db)
	if _, err := lp.CreateUser("bob", "bob@example.com", "s3cr3t"); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	for _, body := range []string{
		`{"username":"bob","password":"wrong"}`,
		`{"username":"nobody","password":"s3cr3t"}`,
	} {
		resp := performLogin(t, app, body)

		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s, got %d", body, resp.StatusCode)
		}

		if cookie := resp.Header.Get("Set-Cookie"); cookie != "" {
			t.Fatalf("did not expect a cookie on failed login, got %q", cookie)
		}

		_ = resp.Body.Close()
	}
}

func TestPostDisabledAccount(t *testing.T) {
	app, db := newTestService(t)

	lp := auth.NewLocalProvider(db)

	user, err := lp.CreateUser("bob", "bob@example.com", "s3cr3t")
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	if err := lp.DeactivateUser(user.ID); err != nil {
		t.Fatalf("failed to deactivate user: %v", err)
	}

	resp := performLogin(t, app, `{"username":"bob","password":"s3cr3t"}`)

	defer func() {
		_ = resp.Body.Close()
	}()

	// disabled accounts get the same answer as bad credentials
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestPostMalformedBody(t *testing.T) {
	app, _ := newTestService(t)

	for _, body := range []string{"{", `{"username":"bob"}`, `{}`} {
		resp := performLogin(t, app, body)

		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for %q, got %d", body, resp.StatusCode)
		}

		_ = resp.Body.Close()
	}
}

func TestMeRequiresSession(t *testing.T) {
	app, _ := newTestService(t)

	req := httptest.NewRequest(http.MethodGet, MePath, nil)

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", resp.StatusCode)
	}
}

func TestMeReturnsSessionUser(t *testing.T) {
	app, db := newTestService(t)

	lp := auth.NewLocalProvider(db)
	if _, err := lp.CreateUser("bob", "bob@example.com", "s3cr3t"); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	loginResp := performLogin(t, app, `{"username":"bob","password":"s3cr3t"}`)
	_ = loginResp.Body.Close()

	cookie := loginResp.Header.Get("Set-Cookie")
	if cookie == "" {
		t.Fatalf("expected session cookie from login")
	}

	req := httptest.NewRequest(http.MethodGet, MePath, nil)
	req.Header.Set("Cookie", strings.Split(cookie, ";")[0])

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", resp.StatusCode)
	}

	var user struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if user.Username != "bob" {
		t.Fatalf("expected bob, got %+v", user)
	}
}
