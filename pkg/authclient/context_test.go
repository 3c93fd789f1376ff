package authclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, id, role string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"account_id": id, "role": role}).
		SignedString([]byte("client-test-secret"))
	require.NoError(t, err)
	return tok
}

// fakeAPI serves the endpoints AuthContext calls.
type fakeAPI struct {
	t  *testing.T
	mu sync.Mutex

	profileCalls  int
	lastAvatar    string
	notifications []Notification
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, code int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret123" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, Session{
			User:  User{ID: "c1", Name: "Ana", Email: body["email"], Role: "customer"},
			Token: signedToken(f.t, "c1", "customer"),
		})
	})
	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		var body SignupFields
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Email == "taken@x.com" {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "User already exists"})
			return
		}
		writeJSON(w, http.StatusCreated, Session{
			User:  User{ID: "o1", Name: body.FirstName, Email: body.Email, Role: body.Role},
			Token: signedToken(f.t, "o1", body.Role),
		})
	})
	mux.HandleFunc("POST /auth/guest", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, Session{
			User:  User{ID: "g1", Name: "Guest AB12CD34", Role: "guest"},
			Token: signedToken(f.t, "g1", "guest"),
		})
	})
	mux.HandleFunc("PUT /auth/profile", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid multipart form"})
			return
		}
		f.mu.Lock()
		f.profileCalls++
		if file, _, err := r.FormFile("avatar"); err == nil {
			raw, _ := io.ReadAll(file)
			f.lastAvatar = string(raw)
		}
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]User{"user": {ID: "c1", Name: r.FormValue("first_name"), Role: "customer"}})
	})
	mux.HandleFunc("GET /api/notifications", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, f.notifications)
	})
	return mux
}

func newFake(t *testing.T) (*fakeAPI, *Client) {
	t.Helper()
	f := &fakeAPI{t: t}
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return f, NewClient(srv.URL)
}

func TestAuthContext_LoginPersistsDurably(t *testing.T) {
	_, api := newFake(t)
	durable := NewFileStorage(filepath.Join(t.TempDir(), "session.json"))
	ephemeral := NewMemoryStorage()
	auth := New(api, durable, ephemeral)

	require.NoError(t, auth.Login(context.Background(), "a@x.com", "secret123"))

	user, ok := auth.User()
	require.True(t, ok)
	assert.Equal(t, "c1", user.ID)
	assert.Equal(t, "customer", auth.Role())

	stored, err := durable.Load()
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, auth.Token(), stored.Token)

	eph, _ := ephemeral.Load()
	assert.Nil(t, eph)

	// A fresh context restores the session from disk.
	restored := New(api, durable, NewMemoryStorage())
	assert.True(t, restored.IsAuthenticated())
	assert.Equal(t, "customer", restored.Role())
}

func TestAuthContext_LoginFailureSurfacesMessage(t *testing.T) {
	_, api := newFake(t)
	auth := New(api, NewMemoryStorage(), NewMemoryStorage())

	err := auth.Login(context.Background(), "a@x.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", err.Error())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.False(t, auth.IsAuthenticated())
}

func TestAuthContext_SignupDuplicate(t *testing.T) {
	_, api := newFake(t)
	auth := New(api, NewMemoryStorage(), NewMemoryStorage())

	err := auth.Signup(context.Background(), SignupFields{FirstName: "T", Email: "taken@x.com", Password: "secret123", Role: "owner"})
	require.Error(t, err)
	assert.Equal(t, "User already exists", err.Error())

	require.NoError(t, auth.Signup(context.Background(), SignupFields{FirstName: "Olga", Email: "o@x.com", Password: "secret123", Role: "owner"}))
	assert.Equal(t, "owner", auth.Role())
}

func TestAuthContext_GuestIsEphemeral(t *testing.T) {
	_, api := newFake(t)
	durable := NewFileStorage(filepath.Join(t.TempDir(), "session.json"))
	ephemeral := NewMemoryStorage()
	auth := New(api, durable, ephemeral)

	require.NoError(t, auth.ContinueAsGuest(context.Background()))
	assert.Equal(t, "guest", auth.Role())

	stored, err := durable.Load()
	require.NoError(t, err)
	assert.Nil(t, stored, "guest session must not reach durable storage")

	eph, _ := ephemeral.Load()
	require.NotNil(t, eph)
	assert.Equal(t, "g1", eph.User.ID)
}

func TestAuthContext_LogoutIsIdempotent(t *testing.T) {
	_, api := newFake(t)
	durable := NewFileStorage(filepath.Join(t.TempDir(), "session.json"))
	ephemeral := NewMemoryStorage()
	auth := New(api, durable, ephemeral)
	require.NoError(t, auth.Login(context.Background(), "a@x.com", "secret123"))
	require.NoError(t, ephemeral.Save(&Session{Token: "stale"}))

	require.NoError(t, auth.Logout())
	require.NoError(t, auth.Logout())

	assert.False(t, auth.IsAuthenticated())
	assert.Empty(t, auth.Role())
	d, _ := durable.Load()
	e, _ := ephemeral.Load()
	assert.Nil(t, d)
	assert.Nil(t, e)
}

func TestAuthContext_UpdateUserWritesBackToHoldingStorage(t *testing.T) {
	fake, api := newFake(t)
	durable := NewMemoryStorage()
	ephemeral := NewMemoryStorage()
	auth := New(api, durable, ephemeral)
	require.NoError(t, auth.ContinueAsGuest(context.Background()))

	err := auth.UpdateUser(context.Background(), ProfileUpdate{
		FirstName:         "Gina",
		Avatar:            strings.NewReader("png-bytes"),
		AvatarFilename:    "me.png",
		AvatarContentType: "image/png",
	})
	require.NoError(t, err)

	user, _ := auth.User()
	assert.Equal(t, "Gina", user.Name)
	assert.Equal(t, "png-bytes", fake.lastAvatar)

	eph, _ := ephemeral.Load()
	require.NotNil(t, eph)
	assert.Equal(t, "Gina", eph.User.Name)
	d, _ := durable.Load()
	assert.Nil(t, d, "empty storage must stay empty")
}

func TestAuthContext_UpdateUserKeepsGuestOutOfDurableStorage(t *testing.T) {
	_, api := newFake(t)
	durable := NewFileStorage(filepath.Join(t.TempDir(), "session.json"))
	auth := New(api, durable, NewMemoryStorage())

	require.NoError(t, auth.Login(context.Background(), "a@x.com", "secret123"))
	loginToken := auth.Token()
	require.NoError(t, auth.ContinueAsGuest(context.Background()))
	require.NoError(t, auth.UpdateUser(context.Background(), ProfileUpdate{FirstName: "Gus"}))

	stored, err := durable.Load()
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, loginToken, stored.Token)
	assert.NotEqual(t, auth.Token(), stored.Token)

	restored := New(api, durable, NewMemoryStorage())
	assert.Equal(t, "customer", restored.Role())
}

func TestAuthContext_UpdateUserRequiresSession(t *testing.T) {
	fake, api := newFake(t)
	auth := New(api, NewMemoryStorage(), NewMemoryStorage())

	err := auth.UpdateUser(context.Background(), ProfileUpdate{FirstName: "X"})
	assert.ErrorIs(t, err, ErrNotSignedIn)
	assert.Zero(t, fake.profileCalls)
}

func TestNew_IgnoresUnreadableDurableSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, writeFile(path, "{not json"))
	ephemeral := NewMemoryStorage()
	require.NoError(t, ephemeral.Save(&Session{User: User{ID: "g1", Role: "guest"}, Token: "tok"}))

	auth := New(NewClient("http://unused"), NewFileStorage(path), ephemeral)
	user, ok := auth.User()
	require.True(t, ok)
	assert.Equal(t, "g1", user.ID)
	assert.Empty(t, auth.Role(), "unparseable token yields no role")
}

func TestClient_NetworkErrorIsHumanReadable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).Login(context.Background(), "a@x.com", "secret123")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Zero(t, apiErr.Status)
	assert.Contains(t, apiErr.Error(), "Unable to reach the server")
}

func TestClient_NoClientWideTimeout(t *testing.T) {
	c := NewClient("http://unused/")
	assert.Zero(t, c.httpClient.Timeout)
	assert.Equal(t, "http://unused", c.baseURL)
}
