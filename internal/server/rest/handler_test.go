package rest

import (
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/workout/internal/common"
	"github.com/dmitrijs2005/workout/internal/logging"
	"github.com/dmitrijs2005/workout/internal/server/auth"
	"github.com/dmitrijs2005/workout/internal/server/auth/authtest"
	"github.com/dmitrijs2005/workout/internal/server/repositories/repotest"
	"github.com/dmitrijs2005/workout/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

type testEnv struct {
	issuer *authtest.Issuer
	store  *repotest.Store
	router http.Handler
}

// newTestEnv wires the real verifier and services over an in-memory store.
// SQLite only provides the transactions identity resolution runs in.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithOrigins(t, []string{"http://localhost:3000"})
}

func newTestEnvWithOrigins(t *testing.T, origins []string) *testEnv {
	t.Helper()

	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	is := authtest.NewIssuer(t)
	store := repotest.NewStore()

	verifier := auth.NewVerifier(auth.NewKeySet(is.JWKSURL()), is.URL, authtest.Audience)
	authn := services.NewAuthenticator(verifier, services.NewIdentityService(db, store))
	msgs := services.NewMessageService(db, store)

	h := NewHandler(authn, msgs, logging.Nop{}, origins)
	return &testEnv{issuer: is, store: store, router: h.Router()}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[errorResponse](t, rec).Detail
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","message":"Workout API is running"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(common.RequestIDHeaderName))
}

func TestRequestIDEchoed(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(common.RequestIDHeaderName, "abc-123")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(common.RequestIDHeaderName))
}

func TestAuthFailures(t *testing.T) {
	env := newTestEnv(t)
	is := env.issuer

	expired := is.Claims("sub-1", "")
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	tests := []struct {
		name       string
		header     string
		wantDetail string
	}{
		{"missing header", "", "Not authenticated"},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "Not authenticated"},
		{"empty bearer", "Bearer ", "Not authenticated"},
		{"garbage", "Bearer not-a-jwt", "Invalid token"},
		{"expired", "Bearer " + is.Sign(t, expired, ""), "Invalid token"},
		{"unknown kid", "Bearer " + is.Sign(t, is.Claims("sub-1", ""), "ghost"), "Unable to find appropriate key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/messages", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			env.router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			assert.Equal(t, tt.wantDetail, detail(t, rec))
		})
	}
	assert.Equal(t, 0, env.store.UserCount())
}

func TestProviderDownIs500(t *testing.T) {
	env := newTestEnv(t)
	env.issuer.SetFailing(true)

	rec := env.do(t, http.MethodGet, "/auth/me", env.issuer.Token(t, "sub-1", ""), "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", detail(t, rec))
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	tok := env.issuer.Token(t, "sub-1", "a@x.com")

	rec := env.do(t, http.MethodGet, "/auth/me", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	first := decode[meResponse](t, rec)
	assert.Equal(t, "sub-1", first.CognitoSub)
	require.NotNil(t, first.Email)
	assert.Equal(t, "a@x.com", *first.Email)

	rec = env.do(t, http.MethodGet, "/auth/me", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first.ID, decode[meResponse](t, rec).ID)
	assert.Equal(t, 1, env.store.UserCount())
}

func TestMe_NullEmail(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/auth/me", env.issuer.Token(t, "sub-1", ""), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":null`)
}

func TestCreateMessage_Validation(t *testing.T) {
	env := newTestEnv(t)
	tok := env.issuer.Token(t, "sub-1", "")

	tests := []struct {
		name string
		body string
	}{
		{"empty text", `{"message":""}`},
		{"missing field", `{}`},
		{"too long", `{"message":"` + strings.Repeat("x", 256) + `"}`},
		{"malformed json", `{"message":`},
		{"wrong type", `{"message":42}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/messages", tok, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, detail(t, rec))
		})
	}
	assert.Equal(t, 0, env.store.MessageCreates)
}

func TestDeleteMessage_NonIntegerID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodDelete, "/messages/abc", env.issuer.Token(t, "sub-1", ""), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStorageFailureIs500(t *testing.T) {
	env := newTestEnv(t)
	tok := env.issuer.Token(t, "sub-1", "")

	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/auth/me", tok, "").Code)
	env.store.Err = io.ErrUnexpectedEOF

	rec := env.do(t, http.MethodGet, "/messages", tok, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", detail(t, rec))
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodPut, "/messages", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/messages", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/messages", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWildcardEchoesOrigin(t *testing.T) {
	env := newTestEnvWithOrigins(t, []string{"*"})

	req := httptest.NewRequest(http.MethodOptions, "/messages", nil)
	req.Header.Set("Origin", "http://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, "http://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://app.example")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

// Two users share the API; each only ever sees and deletes their own messages.
func TestEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	alice := env.issuer.Token(t, "sub-alice", "alice@x.com")
	bob := env.issuer.Token(t, "sub-bob", "bob@x.com")

	rec := env.do(t, http.MethodGet, "/auth/me", alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[meResponse](t, rec)
	require.NotNil(t, me.Email)
	assert.Equal(t, "alice@x.com", *me.Email)

	// same subject, new address: the account is kept and the email follows
	rec = env.do(t, http.MethodGet, "/auth/me", env.issuer.Token(t, "sub-alice", "alice@y.com"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	again := decode[meResponse](t, rec)
	assert.Equal(t, me.ID, again.ID)
	require.NotNil(t, again.Email)
	assert.Equal(t, "alice@y.com", *again.Email)
	assert.Equal(t, 1, env.store.UserCount())

	rec = env.do(t, http.MethodPost, "/messages", alice, `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decode[messageResponse](t, rec)
	assert.Equal(t, "hello", created.Message)
	_, err := time.Parse(time.RFC3339Nano, created.CreatedAt)
	require.NoError(t, err)

	rec = env.do(t, http.MethodPost, "/messages", alice, `{"message":"second"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[messageResponse](t, rec)

	rec = env.do(t, http.MethodGet, "/messages", alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[listMessagesResponse](t, rec)
	require.Len(t, list.Messages, 2)
	assert.Equal(t, second.ID, list.Messages[0].ID)
	assert.Equal(t, created.ID, list.Messages[1].ID)

	rec = env.do(t, http.MethodGet, "/messages", bob, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"messages":[]}`, rec.Body.String())

	rec = env.do(t, http.MethodDelete, "/messages/"+itoa(created.ID), bob, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Message not found", detail(t, rec))

	rec = env.do(t, http.MethodDelete, "/messages/"+itoa(created.ID), alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, deleteMessageResponse{Deleted: true, ID: created.ID}, decode[deleteMessageResponse](t, rec))

	rec = env.do(t, http.MethodDelete, "/messages/"+itoa(created.ID), alice, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/messages", alice, "")
	list = decode[listMessagesResponse](t, rec)
	require.Len(t, list.Messages, 1)
	assert.Equal(t, "second", list.Messages[0].Message)

	assert.Equal(t, 2, env.store.UserCount())
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
