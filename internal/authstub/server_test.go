package authstub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"suitable-focus/internal/supabase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "stub-test-secret"

func newTestServer(t *testing.T, opts ...ServerOption) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := OpenStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	srv := NewServer(store, testJWTSecret, time.Hour, opts...)
	return srv, srv.Router()
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	body := map[string]any{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func signUpAndConfirm(t *testing.T, router *gin.Engine, email, password string) {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/auth/v1/signup", "", gin.H{
		"email":    email,
		"password": password,
		"data":     gin.H{"name": "Test User"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/stub/confirm", "", gin.H{"email": email})
	require.Equal(t, http.StatusOK, w.Code)
}

func signIn(t *testing.T, router *gin.Engine, email, password string) map[string]any {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/auth/v1/token?grant_type=password", "", gin.H{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, w.Code)
	return decodeBody(t, w)
}

func TestSignupConfirmSignInFlow(t *testing.T) {
	_, router := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/auth/v1/signup", "", gin.H{
		"email":    "dylan@example.com",
		"password": "SuperSecret1",
		"data":     gin.H{"name": "Dylan"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	// No session until the address is confirmed.
	body := decodeBody(t, w)
	assert.Empty(t, body["access_token"])
	require.NotNil(t, body["user"])

	w = doJSON(t, router, http.MethodPost, "/auth/v1/token?grant_type=password", "", gin.H{
		"email":    "dylan@example.com",
		"password": "SuperSecret1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "email_not_confirmed", decodeBody(t, w)["error_code"])

	w = doJSON(t, router, http.MethodPost, "/stub/confirm", "", gin.H{"email": "dylan@example.com"})
	require.Equal(t, http.StatusOK, w.Code)

	session := signIn(t, router, "dylan@example.com", "SuperSecret1")
	assert.NotEmpty(t, session["access_token"])
	assert.NotEmpty(t, session["refresh_token"])
	assert.Equal(t, "bearer", session["token_type"])

	user := session["user"].(map[string]any)
	assert.Equal(t, "dylan@example.com", user["email"])
	assert.Equal(t, "Dylan", user["user_metadata"].(map[string]any)["name"])
}

func TestSignupAutoConfirm(t *testing.T) {
	_, router := newTestServer(t, WithAutoConfirm())

	w := doJSON(t, router, http.MethodPost, "/auth/v1/signup", "", gin.H{
		"email":    "auto@example.com",
		"password": "SuperSecret1",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decodeBody(t, w)["access_token"])
}

func TestSignupRejections(t *testing.T) {
	_, router := newTestServer(t)
	signUpAndConfirm(t, router, "taken@example.com", "SuperSecret1")

	tests := []struct {
		name     string
		body     gin.H
		status   int
		wantCode string
	}{
		{
			name:     "duplicate email",
			body:     gin.H{"email": "taken@example.com", "password": "SuperSecret1"},
			status:   http.StatusUnprocessableEntity,
			wantCode: "user_already_exists",
		},
		{
			name:     "weak password",
			body:     gin.H{"email": "new@example.com", "password": "short"},
			status:   http.StatusUnprocessableEntity,
			wantCode: "weak_password",
		},
		{
			name:     "missing fields",
			body:     gin.H{"email": "new@example.com"},
			status:   http.StatusBadRequest,
			wantCode: "validation_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/auth/v1/signup", "", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.wantCode, decodeBody(t, w)["error_code"])
		})
	}
}

func TestPasswordGrantInvalidCredentials(t *testing.T) {
	_, router := newTestServer(t)
	signUpAndConfirm(t, router, "known@example.com", "SuperSecret1")

	for _, body := range []gin.H{
		{"email": "known@example.com", "password": "wrongpassword"},
		{"email": "nobody@example.com", "password": "SuperSecret1"},
	} {
		w := doJSON(t, router, http.MethodPost, "/auth/v1/token?grant_type=password", "", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		// Same code for both so the response does not leak which emails exist.
		assert.Equal(t, "invalid_credentials", decodeBody(t, w)["error_code"])
	}
}

func TestRefreshGrantRotatesToken(t *testing.T) {
	_, router := newTestServer(t)
	signUpAndConfirm(t, router, "refresh@example.com", "SuperSecret1")
	session := signIn(t, router, "refresh@example.com", "SuperSecret1")
	refreshToken := session["refresh_token"].(string)

	w := doJSON(t, router, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", gin.H{
		"refresh_token": refreshToken,
	})
	require.Equal(t, http.StatusOK, w.Code)
	rotated := decodeBody(t, w)
	assert.NotEmpty(t, rotated["access_token"])
	assert.NotEqual(t, refreshToken, rotated["refresh_token"])

	// The redeemed token is single-use.
	w = doJSON(t, router, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", gin.H{
		"refresh_token": refreshToken,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "session_not_found", decodeBody(t, w)["error_code"])
}

func TestLogoutRevokesRefreshTokens(t *testing.T) {
	_, router := newTestServer(t)
	signUpAndConfirm(t, router, "logout@example.com", "SuperSecret1")
	session := signIn(t, router, "logout@example.com", "SuperSecret1")

	w := doJSON(t, router, http.MethodPost, "/auth/v1/logout", session["access_token"].(string), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", gin.H{
		"refresh_token": session["refresh_token"],
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "session_not_found", decodeBody(t, w)["error_code"])
}

func TestUserEndpointsRequireBearerToken(t *testing.T) {
	_, router := newTestServer(t)

	w := doJSON(t, router, http.MethodGet, "/auth/v1/user", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "bad_jwt", decodeBody(t, w)["error_code"])

	w = doJSON(t, router, http.MethodGet, "/auth/v1/user", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "bad_jwt", decodeBody(t, w)["error_code"])
}

func TestUpdateUser(t *testing.T) {
	_, router := newTestServer(t)
	signUpAndConfirm(t, router, "update@example.com", "SuperSecret1")
	session := signIn(t, router, "update@example.com", "SuperSecret1")
	token := session["access_token"].(string)

	w := doJSON(t, router, http.MethodPut, "/auth/v1/user", token, gin.H{
		"password": "EvenMoreSecret2",
		"data":     gin.H{"name": "Renamed"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Renamed", body["user_metadata"].(map[string]any)["name"])

	// The old password stops working, the new one signs in.
	w = doJSON(t, router, http.MethodPost, "/auth/v1/token?grant_type=password", "", gin.H{
		"email":    "update@example.com",
		"password": "SuperSecret1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	signIn(t, router, "update@example.com", "EvenMoreSecret2")
}

func TestRecoverAndResendUnknownEmail(t *testing.T) {
	_, router := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/auth/v1/recover", "", gin.H{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "user_not_found", decodeBody(t, w)["error_code"])

	w = doJSON(t, router, http.MethodPost, "/auth/v1/resend", "", gin.H{
		"type":  "signup",
		"email": "ghost@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "user_not_found", decodeBody(t, w)["error_code"])
}

// TestClientRoundTrip drives the real API client against the stub to make
// sure the wire shapes and error codes line up end to end.
func TestClientRoundTrip(t *testing.T) {
	_, router := newTestServer(t, WithAutoConfirm())
	ts := httptest.NewServer(router)
	defer ts.Close()

	client := supabase.New(ts.URL, "anon-key", supabase.WithoutAutoRefresh())
	defer client.Close()

	ctx := context.Background()

	session, err := client.SignUp(ctx, "roundtrip@example.com", "SuperSecret1",
		map[string]any{"name": "Round Trip"}, "")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "roundtrip@example.com", session.User.Email)
	assert.Equal(t, "Round Trip", session.User.DisplayName)
	assert.True(t, session.ExpiresAt.After(time.Now()))

	_, err = client.SignInWithPassword(ctx, "roundtrip@example.com", "wrongpassword")
	var apiErr *supabase.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, supabase.ErrCodeInvalidCredentials, apiErr.Code)

	session, err = client.SignInWithPassword(ctx, "roundtrip@example.com", "SuperSecret1")
	require.NoError(t, err)
	require.True(t, session.IsValid())

	current, err := client.GetSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, session.AccessToken, current.AccessToken)

	require.NoError(t, client.SignOut(ctx))

	current, err = client.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestStoreEmailIsCaseInsensitive(t *testing.T) {
	store, err := OpenStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	created, err := store.CreateUser("MixedCase@Example.com", "hash", "Mixed")
	require.NoError(t, err)
	assert.Equal(t, "mixedcase@example.com", created.Email)

	found, err := store.GetUserByEmail(fmt.Sprintf("MIXEDCASE@%s", "EXAMPLE.COM"))
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = store.CreateUser("mixedcase@example.com", "hash", "Dup")
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}
