package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rajivgeraev/ecoswap-api/internal/apperrors"
	"github.com/rajivgeraev/ecoswap-api/internal/middleware"
	"github.com/rajivgeraev/ecoswap-api/internal/models"
	"github.com/rajivgeraev/ecoswap-api/internal/storage/memory"
	"github.com/rajivgeraev/ecoswap-api/internal/utils"
)

func strPtr(s string) *string { return &s }

func newTestService() (*IdentityService, *memory.Store) {
	store := memory.New()
	return NewIdentityService(store, bcrypt.MinCost), store
}

func register(t *testing.T, svc *IdentityService, email string) *models.User {
	t.Helper()
	user, err := svc.Register(context.Background(), RegisterInput{Name: "Anna", Email: email, Password: "secret1"})
	require.NoError(t, err)
	return user
}

func TestRegister(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	user := register(t, svc, "  Anna@Example.com ")
	assert.Equal(t, "anna@example.com", user.Email)
	assert.NotEqual(t, "secret1", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret1")))

	tests := []struct {
		name string
		in   RegisterInput
		code apperrors.Code
	}{
		{"short password", RegisterInput{Name: "B", Email: "b@example.com", Password: "12345"}, apperrors.CodeValidation},
		{"bad email", RegisterInput{Name: "B", Email: "not-an-email", Password: "123456"}, apperrors.CodeValidation},
		{"missing name", RegisterInput{Name: " ", Email: "b@example.com", Password: "123456"}, apperrors.CodeValidation},
		{"duplicate email", RegisterInput{Name: "B", Email: "ANNA@example.com", Password: "123456"}, apperrors.CodeConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.in)
			assert.Equal(t, tt.code, apperrors.CodeOf(err))
		})
	}
}

func TestVerifyCredentials(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	user := register(t, svc, "anna@example.com")

	id, ok, err := svc.VerifyCredentials(ctx, "ANNA@example.com", "secret1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, user.ID, id)

	_, ok, err = svc.VerifyCredentials(ctx, "anna@example.com", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = svc.VerifyCredentials(ctx, "nobody@example.com", "secret1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	anna := register(t, svc, "anna@example.com")
	boris := register(t, svc, "boris@example.com")

	_, err := svc.UpdateProfile(ctx, boris.ID, anna.ID, UpdateProfileInput{Name: strPtr("Hacked")})
	assert.Equal(t, apperrors.CodeAuthorization, apperrors.CodeOf(err))

	_, err = svc.UpdateProfile(ctx, anna.ID, anna.ID, UpdateProfileInput{Email: strPtr("Boris@example.com")})
	assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))

	_, err = svc.UpdateProfile(ctx, anna.ID, anna.ID, UpdateProfileInput{Password: strPtr("123")})
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	_, err = svc.UpdateProfile(ctx, anna.ID, 9999, UpdateProfileInput{Name: strPtr("x")})
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))

	updated, err := svc.UpdateProfile(ctx, anna.ID, anna.ID, UpdateProfileInput{
		Name:     strPtr("Anna K."),
		Email:    strPtr("anna.k@example.com"),
		Password: strPtr("newsecret"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Anna K.", updated.Name)
	assert.Equal(t, "anna.k@example.com", updated.Email)

	_, ok, err := svc.VerifyCredentials(ctx, "anna.k@example.com", "newsecret")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestProfileStats(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	anna := register(t, svc, "anna@example.com")

	_, err := store.CreateItem(ctx, &models.Item{OwnerID: anna.ID, Name: "Lamp", Category: "home", Condition: models.ConditionUsed, Status: models.ItemAvailable})
	require.NoError(t, err)
	_, err = store.CreateItem(ctx, &models.Item{OwnerID: anna.ID, Name: "Desk", Category: "home", Condition: models.ConditionUsed, Status: models.ItemReserved})
	require.NoError(t, err)

	profile, err := svc.Profile(ctx, anna.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, profile.Stats.ItemCount)
	assert.Equal(t, 1, profile.Stats.AvailableCount)
	assert.Equal(t, 0, profile.Stats.SwapCount)

	public, err := svc.PublicProfile(ctx, anna.ID)
	require.NoError(t, err)
	assert.Equal(t, anna.Name, public.Name)
	assert.Equal(t, profile.Stats, public.Stats)

	_, err = svc.PublicProfile(ctx, 9999)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestAuthHandlers(t *testing.T) {
	svc, _ := newTestService()
	jwtService := utils.NewJWTService("test-secret", time.Hour)
	limiter := middleware.NewRateLimiter(1, 2)

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	NewHandler(svc, jwtService).SetupRoutes(app, middleware.AuthMiddleware(jwtService), limiter.Handler())

	post := func(path, body string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	resp := post("/api/auth/register", `{"name":"Anna","email":"anna@example.com","password":"secret1"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var registered struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&registered))
	assert.NotEmpty(t, registered.Token)

	resp = post("/api/auth/register", `{"name":"Anna","email":"anna@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = post("/api/auth/login", `{"email":"anna@example.com","password":"wrong1"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = post("/api/auth/login", `{"email":"anna@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Третья попытка подряд упирается в burst
	resp = post("/api/auth/login", `{"email":"anna@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+registered.Token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var profile map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&profile))
	assert.Equal(t, "anna@example.com", profile["email"])
	assert.Contains(t, profile, "stats")
	assert.NotContains(t, profile, "passwordHash")

	// Чужой профиль отдается без email
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/users/"+strconv.FormatInt(registered.User.ID, 10), nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var public map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&public))
	assert.Equal(t, "Anna", public["name"])
	assert.Contains(t, public, "stats")
	assert.NotContains(t, public, "email")
	assert.NotContains(t, public, "passwordHash")

	req = httptest.NewRequest(http.MethodPut, "/api/users/"+strconv.FormatInt(registered.User.ID, 10), strings.NewReader(`{"name":"Anna K."}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPut, "/api/users/"+strconv.FormatInt(registered.User.ID, 10), strings.NewReader(`{"name":"Anna K."}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+registered.Token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
