package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/middleware"

	"github.com/TGO0427/synercore-import-schedule-sub001/internal/application"
	"github.com/TGO0427/synercore-import-schedule-sub001/internal/domain"
)

type fakePrefsRepo struct {
	upsertFn       func(context.Context, *domain.Preferences) error
	findByUserIDFn func(context.Context, string) (*domain.Preferences, error)
}

func (f *fakePrefsRepo) Upsert(ctx context.Context, prefs *domain.Preferences) error {
	if f.upsertFn != nil {
		return f.upsertFn(ctx, prefs)
	}
	return nil
}

func (f *fakePrefsRepo) FindByUserID(ctx context.Context, userID string) (*domain.Preferences, error) {
	if f.findByUserIDFn != nil {
		return f.findByUserIDFn(ctx, userID)
	}
	return nil, nil
}

func (f *fakePrefsRepo) FindSubscribers(ctx context.Context, eventType string) ([]*domain.Preferences, error) {
	return nil, nil
}

type fakeDeliveryRepo struct {
	saved []*domain.Delivery
}

func (f *fakeDeliveryRepo) Save(ctx context.Context, delivery *domain.Delivery) error {
	f.saved = append(f.saved, delivery)
	return nil
}

type fakeNotifier struct {
	sendFn func(context.Context, string, application.Notification) error
	sent   []string
}

func (f *fakeNotifier) Send(ctx context.Context, webhookURL string, notification application.Notification) error {
	f.sent = append(f.sent, webhookURL)
	if f.sendFn != nil {
		return f.sendFn(ctx, webhookURL, notification)
	}
	return nil
}

func newNotificationRouter(prefsRepo domain.PreferencesRepository, notifier application.Notifier, user string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if user != "" {
		router.Use(middleware.Auth(&middleware.AuthConfig{DefaultUser: user}))
	}
	service := application.NewNotificationApplicationService(prefsRepo, &fakeDeliveryRepo{}, notifier, testLogger())
	handlers := NewNotificationHandlers(service, testLogger())
	handlers.RegisterRoutes(router.Group("/api"))
	return router
}

func TestNotificationHandlerRoutesGuarded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	authConfig := &middleware.AuthConfig{
		Tokens:      map[string]string{"tok-ops": "tino"},
		DefaultUser: "default",
	}
	router.Use(middleware.Auth(authConfig))
	service := application.NewNotificationApplicationService(&fakePrefsRepo{}, &fakeDeliveryRepo{}, &fakeNotifier{}, testLogger())
	handlers := NewNotificationHandlers(service, testLogger())
	handlers.RegisterRoutes(router.Group("/api"), middleware.RequireUser(authConfig))

	rec := makeRequest(router, http.MethodGet, "/api/notifications/preferences", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")

	req := httptest.NewRequest(http.MethodGet, "/api/notifications/preferences", nil)
	req.Header.Set("Authorization", "Bearer tok-ops")
	authed := httptest.NewRecorder()
	router.ServeHTTP(authed, req)
	assert.Equal(t, http.StatusOK, authed.Code)
	assert.Contains(t, authed.Body.String(), `"userId":"tino"`)
}

func TestNotificationHandlerGetPreferencesDefaults(t *testing.T) {
	router := newNotificationRouter(&fakePrefsRepo{}, &fakeNotifier{}, "")

	rec := makeRequest(router, http.MethodGet, "/api/notifications/preferences", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"userId":"default"`)
	assert.Contains(t, rec.Body.String(), `"onArrival":true`)
}

func TestNotificationHandlerGetPreferencesForUser(t *testing.T) {
	prefsRepo := &fakePrefsRepo{
		findByUserIDFn: func(_ context.Context, userID string) (*domain.Preferences, error) {
			if userID != "tino" {
				t.Fatalf("userID = %s", userID)
			}
			return &domain.Preferences{UserID: userID, WebhookURL: "https://hooks.example.com/imports", OnDelay: true}, nil
		},
	}
	router := newNotificationRouter(prefsRepo, &fakeNotifier{}, "tino")

	rec := makeRequest(router, http.MethodGet, "/api/notifications/preferences", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"userId":"tino"`)
	assert.Contains(t, rec.Body.String(), `"webhookUrl":"https://hooks.example.com/imports"`)
}

func TestNotificationHandlerSavePreferences(t *testing.T) {
	var saved *domain.Preferences
	prefsRepo := &fakePrefsRepo{
		upsertFn: func(_ context.Context, prefs *domain.Preferences) error {
			saved = prefs
			return nil
		},
	}
	router := newNotificationRouter(prefsRepo, &fakeNotifier{}, "tino")

	rec := makeRequest(router, http.MethodPut, "/api/notifications/preferences", map[string]interface{}{
		"email":       "tino@synercore.co.za",
		"webhookUrl":  "https://hooks.example.com/imports",
		"onArrival":   true,
		"onDelay":     true,
		"onStored":    false,
		"onCancelled": false,
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	if assert.NotNil(t, saved) {
		assert.Equal(t, "tino", saved.UserID)
		assert.True(t, saved.OnDelay)
		assert.False(t, saved.OnStored)
	}
}

func TestNotificationHandlerSavePreferencesBadWebhook(t *testing.T) {
	router := newNotificationRouter(&fakePrefsRepo{}, &fakeNotifier{}, "tino")

	rec := makeRequest(router, http.MethodPut, "/api/notifications/preferences", map[string]interface{}{
		"webhookUrl": "not a url",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotificationHandlerSendTest(t *testing.T) {
	prefsRepo := &fakePrefsRepo{
		findByUserIDFn: func(_ context.Context, userID string) (*domain.Preferences, error) {
			return &domain.Preferences{UserID: userID, WebhookURL: "https://hooks.example.com/imports"}, nil
		},
	}
	notifier := &fakeNotifier{}
	router := newNotificationRouter(prefsRepo, notifier, "tino")

	rec := makeRequest(router, http.MethodPost, "/api/notifications/test", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"sent"`)
	assert.Equal(t, []string{"https://hooks.example.com/imports"}, notifier.sent)
}

func TestNotificationHandlerSendTestNoWebhook(t *testing.T) {
	router := newNotificationRouter(&fakePrefsRepo{}, &fakeNotifier{}, "tino")

	rec := makeRequest(router, http.MethodPost, "/api/notifications/test", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "webhook")
}

func TestNotificationHandlerSendTestNotifierDown(t *testing.T) {
	prefsRepo := &fakePrefsRepo{
		findByUserIDFn: func(_ context.Context, userID string) (*domain.Preferences, error) {
			return &domain.Preferences{UserID: userID, WebhookURL: "https://hooks.example.com/imports"}, nil
		},
	}
	notifier := &fakeNotifier{
		sendFn: func(_ context.Context, _ string, _ application.Notification) error {
			return assert.AnError
		},
	}
	router := newNotificationRouter(prefsRepo, notifier, "tino")

	rec := makeRequest(router, http.MethodPost, "/api/notifications/test", nil)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "BAD_GATEWAY")
}
