package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/campuschat/internal/api/dto"
	"github.com/hugh/campuschat/internal/api/handlers"
	"github.com/hugh/campuschat/internal/auth"
	"github.com/hugh/campuschat/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthTestRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)

	authService := auth.NewService(tc.DB, tc.JWTService)
	handler := handlers.NewAuthHandler(authService)

	r := chi.NewRouter()
	r.Post("/api/v1/auth/signup", handler.Signup)
	r.Post("/api/v1/auth/login", handler.Login)
	r.Post("/api/v1/auth/refresh", handler.Refresh)
	r.Post("/api/v1/auth/logout", handler.Logout)

	return r, tc
}

func TestAuthHandler_Signup(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	t.Run("successful signup", func(t *testing.T) {
		body := map[string]string{
			"email":      "newuser@example.com",
			"password":   "SecurePass123",
			"first_name": "New",
			"last_name":  "User",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/signup", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var resp dto.AuthResponse
		err := json.Unmarshal(rr.Body.Bytes(), &resp)
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.NotEmpty(t, resp.RefreshToken)
		assert.Equal(t, "newuser@example.com", resp.User.Email)
		assert.Equal(t, "newuser", resp.User.Username)
		assert.Nil(t, resp.User.CurrentTenantID)
	})

	t.Run("duplicate email", func(t *testing.T) {
		body := map[string]string{
			"email":    "duplicate@example.com",
			"password": "SecurePass123",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/signup", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusCreated, rr.Code)

		req = testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/signup", body)
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("username collision gets numeric suffix", func(t *testing.T) {
		first := map[string]string{
			"email":    "taken@one.example.com",
			"password": "SecurePass123",
		}
		second := map[string]string{
			"email":    "taken@two.example.com",
			"password": "SecurePass123",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/signup", first)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusCreated, rr.Code)

		req = testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/signup", second)
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusCreated, rr.Code)

		var resp dto.AuthResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "taken1", resp.User.Username)
	})

	t.Run("missing email", func(t *testing.T) {
		body := map[string]string{
			"password": "SecurePass123",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/signup", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("weak password", func(t *testing.T) {
		body := map[string]string{
			"email":    "weakpw@example.com",
			"password": "short",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/signup", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	signupBody := map[string]string{
		"email":    "logintest@example.com",
		"password": "SecurePass123",
	}
	req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/signup", signupBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	t.Run("successful login", func(t *testing.T) {
		body := map[string]string{
			"email":    "logintest@example.com",
			"password": "SecurePass123",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp dto.AuthResponse
		err := json.Unmarshal(rr.Body.Bytes(), &resp)
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "logintest@example.com", resp.User.Email)

		// Check cookie is set
		cookies := rr.Result().Cookies()
		var tokenCookie *http.Cookie
		for _, c := range cookies {
			if c.Name == "token" {
				tokenCookie = c
				break
			}
		}
		require.NotNil(t, tokenCookie)
		assert.Equal(t, resp.Token, tokenCookie.Value)
		assert.True(t, tokenCookie.HttpOnly)
	})

	t.Run("wrong password", func(t *testing.T) {
		body := map[string]string{
			"email":    "logintest@example.com",
			"password": "WrongPass123",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("non-existent user", func(t *testing.T) {
		body := map[string]string{
			"email":    "nonexistent@example.com",
			"password": "AnyPass123",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("invited user without password cannot log in", func(t *testing.T) {
		// Invited users are created with an empty password hash.
		invited := testutil.CreateTestUser(t, tc.DB, "invited@example.com")
		invited.PasswordHash = ""
		require.NoError(t, tc.DB.Save(invited).Error)

		body := map[string]string{
			"email":    "invited@example.com",
			"password": "AnyPass123",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("missing password", func(t *testing.T) {
		body := map[string]string{
			"email": "logintest@example.com",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAuthHandler_Refresh(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	signupBody := map[string]string{
		"email":    "refresher@example.com",
		"password": "SecurePass123",
	}
	req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/signup", signupBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var signupResp dto.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &signupResp))

	t.Run("valid refresh token", func(t *testing.T) {
		body := map[string]string{"refresh_token": signupResp.RefreshToken}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/refresh", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp dto.AuthResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "refresher@example.com", resp.User.Email)
	})

	t.Run("access token rejected as refresh token", func(t *testing.T) {
		body := map[string]string{"refresh_token": signupResp.Token}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/refresh", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		body := map[string]string{"refresh_token": "not-a-token"}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/refresh", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	t.Run("successful logout", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/logout", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		// Check cookie is cleared
		cookies := rr.Result().Cookies()
		var tokenCookie *http.Cookie
		for _, c := range cookies {
			if c.Name == "token" {
				tokenCookie = c
				break
			}
		}
		require.NotNil(t, tokenCookie)
		assert.Empty(t, tokenCookie.Value)
		assert.Equal(t, -1, tokenCookie.MaxAge) // Expired
	})
}
