package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignup(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/signup", map[string]any{
		"name":     "Max Schwarz",
		"email":    "max@example.com",
		"password": "testers123",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var envelope testEnvelope[AuthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)

	assert.NotEmpty(t, envelope.Data.AccessToken)
	assert.NotEmpty(t, envelope.Data.RefreshToken)
	assert.Equal(t, "Bearer", envelope.Data.TokenType)
	assert.Equal(t, "max@example.com", envelope.Data.User.Email)
	assert.Empty(t, envelope.Data.User.Places)

	// Password material never appears in the response.
	assert.NotContains(t, resp.Body.String(), "password_hash")
}

func TestSignupDuplicateEmail(t *testing.T) {
	ts := setupTestServer(t)
	ts.signupUser(t, "max@example.com")

	resp := ts.api.Post("/api/v1/auth/signup", map[string]any{
		"name":     "Other Max",
		"email":    "max@example.com",
		"password": "testers123",
	})
	require.Equal(t, http.StatusConflict, resp.Code, resp.Body.String())

	var envelope testEnvelope[struct{}]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "ALREADY_EXISTS", envelope.Error.Code)
}

func TestSignupValidation(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/signup", map[string]any{
		"name":     "Max",
		"email":    "not-an-email",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
}

func TestLogin(t *testing.T) {
	ts := setupTestServer(t)
	ts.signupUser(t, "max@example.com")

	resp := ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":    "max@example.com",
		"password": "TestPassword123!",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var envelope testEnvelope[AuthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Data.AccessToken)
	assert.NotEmpty(t, envelope.Data.SessionID)
}

func TestLoginWrongPassword(t *testing.T) {
	ts := setupTestServer(t)
	ts.signupUser(t, "max@example.com")

	resp := ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":    "max@example.com",
		"password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, resp.Code, resp.Body.String())

	var envelope testEnvelope[struct{}]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "INVALID_CREDENTIALS", envelope.Error.Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/signup", map[string]any{
		"name":     "Max",
		"email":    "max@example.com",
		"password": "testers123",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var signup testEnvelope[AuthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &signup))

	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{
		"refresh_token": signup.Data.RefreshToken,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var refreshed testEnvelope[AuthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &refreshed))
	assert.NotEmpty(t, refreshed.Data.RefreshToken)
	assert.NotEqual(t, signup.Data.RefreshToken, refreshed.Data.RefreshToken)

	// The old refresh token is dead after rotation.
	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{
		"refresh_token": signup.Data.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code, resp.Body.String())
}

func TestLogoutRevokesSession(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/signup", map[string]any{
		"name":     "Max",
		"email":    "max@example.com",
		"password": "testers123",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var signup testEnvelope[AuthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &signup))
	token := signup.Data.AccessToken

	resp = ts.api.Post("/api/v1/auth/logout",
		"Authorization: Bearer "+token,
		map[string]any{"session_id": signup.Data.SessionID},
	)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	// Refreshing with the revoked session's token fails.
	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{
		"refresh_token": signup.Data.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestLogoutRequiresOwnership(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/signup", map[string]any{
		"name":     "Max",
		"email":    "max@example.com",
		"password": "testers123",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var signup testEnvelope[AuthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &signup))

	otherToken, _ := ts.signupUser(t, "other@example.com")

	// A different user cannot revoke Max's session.
	resp = ts.api.Post("/api/v1/auth/logout",
		"Authorization: Bearer "+otherToken,
		map[string]any{"session_id": signup.Data.SessionID},
	)
	assert.Equal(t, http.StatusNotFound, resp.Code, resp.Body.String())
}

func TestListSessions(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.signupUser(t, "max@example.com")

	// A second login adds a second session.
	resp := ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":    "max@example.com",
		"password": "TestPassword123!",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/auth/sessions", "Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var envelope testEnvelope[ListSessionsResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data.Sessions, 2)
}

func TestListSessionsUnauthenticated(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/auth/sessions")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
