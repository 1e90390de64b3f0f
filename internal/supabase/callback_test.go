package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallback_RecoveryLink(t *testing.T) {
	token := testToken(t, time.Hour)
	raw := "suitable://auth/reset-password#access_token=" + token +
		"&refresh_token=refresh-1&type=recovery"

	cb, err := ParseCallback("suitable", raw)
	require.NoError(t, err)

	assert.Equal(t, EventPasswordRecovery, cb.Type)
	require.NotNil(t, cb.Session)
	assert.Equal(t, token, cb.Session.AccessToken)
	assert.Equal(t, "refresh-1", cb.Session.RefreshToken)
	assert.True(t, cb.Session.ExpiresAt.After(time.Now()))
}

func TestParseCallback_SignupConfirmation(t *testing.T) {
	token := testToken(t, time.Hour)
	raw := "suitable://auth/callback#access_token=" + token +
		"&refresh_token=refresh-1&type=signup"

	cb, err := ParseCallback("suitable", raw)
	require.NoError(t, err)
	assert.Equal(t, EventSignedIn, cb.Type)
}

func TestParseCallback_QueryParamsAccepted(t *testing.T) {
	token := testToken(t, time.Hour)
	raw := "suitable://auth/callback?access_token=" + token + "&type=signup"

	cb, err := ParseCallback("suitable", raw)
	require.NoError(t, err)
	assert.Equal(t, EventSignedIn, cb.Type)
	assert.Equal(t, token, cb.Session.AccessToken)
}

func TestParseCallback_WrongScheme(t *testing.T) {
	_, err := ParseCallback("suitable", "https://auth/callback#access_token=x")
	assert.Error(t, err)
}

func TestParseCallback_ErrorLink(t *testing.T) {
	raw := "suitable://auth/callback#error_code=otp_expired&error_description=Email+link+is+invalid"

	_, err := ParseCallback("suitable", raw)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "otp_expired", apiErr.Code)
}

func TestParseCallback_NoToken(t *testing.T) {
	_, err := ParseCallback("suitable", "suitable://auth/callback")
	assert.Error(t, err)
}

func TestImportSession_FetchesUserAndEmitsEvent(t *testing.T) {
	token := testToken(t, time.Hour)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"id":            "user-1",
			"email":         "dylan@suitablefocus.com",
			"user_metadata": map[string]any{"name": "Dylan"},
		})
	}))
	defer server.Close()

	client := New(server.URL, "anon-key", WithoutAutoRefresh())
	defer client.Close()

	cb, err := ParseCallback("suitable",
		"suitable://auth/reset-password#access_token="+token+"&type=recovery")
	require.NoError(t, err)

	require.NoError(t, client.ImportSession(context.Background(), cb))

	event := <-client.Events()
	assert.Equal(t, EventPasswordRecovery, event.Type)
	require.NotNil(t, event.Session)
	require.NotNil(t, event.Session.User)
	assert.Equal(t, "Dylan", event.Session.User.DisplayName)

	// The recovery session is now the client's current session, so a
	// follow-up password update can use it.
	session, err := client.GetSession(context.Background())
	require.NoError(t, err)
	assert.True(t, session.IsValid())
}
