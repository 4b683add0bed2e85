package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/thoughtspace/internal/model"
	"github.com/xxxsen/thoughtspace/internal/pkg/jwt"
	"github.com/xxxsen/thoughtspace/internal/service"
	"github.com/xxxsen/thoughtspace/internal/store"
)

var testSecret = []byte("test-secret")

func setupRouter(t *testing.T) (http.Handler, *store.PermissionStore, *store.ViewStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	permStore := store.NewPermissionStore()
	views := store.NewViewStore()
	deps := RouterDeps{
		Auth:      NewAuthHandler(service.NewAuthService(permStore, views), testSecret, time.Hour),
		Shares:    NewShareHandler(service.NewShareService(permStore, views)),
		JWTSecret: testSecret,
	}

	engine := gin.New()
	RegisterRoutes(engine.Group("/api/v1"), deps)
	return engine, permStore, views
}

func postJSON(t *testing.T, router http.Handler, path, sessionToken string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sessionToken != "" {
		req.Header.Set("Authorization", "Bearer "+sessionToken)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func sessionFor(t *testing.T, accessToken, docID string) string {
	t.Helper()
	token, err := jwt.GenerateToken(accessToken, docID, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func TestAuthBootstrapsOwner(t *testing.T) {
	router, permStore, _ := setupRouter(t)

	w := postJSON(t, router, "/api/v1/auth", "", map[string]string{
		"access_token": "tok-A",
		"name":         "space1",
		"type":         "auth",
	})
	require.Equal(t, http.StatusOK, w.Code)

	share, ok := permStore.Table("space1").Get("tok-A")
	require.True(t, ok)
	require.Equal(t, model.RoleOwner, share.Role)
}

func TestAuthRejectedTokenLeavesTableUntouched(t *testing.T) {
	router, permStore, _ := setupRouter(t)

	postJSON(t, router, "/api/v1/auth", "", map[string]string{
		"access_token": "tok-A", "name": "space1", "type": "auth",
	})
	before := permStore.Table("space1").Items()

	postJSON(t, router, "/api/v1/auth", "", map[string]string{
		"access_token": "tok-B", "name": "space1", "type": "other",
	})
	require.Equal(t, before, permStore.Table("space1").Items())
}

func TestShareAddRequiresSession(t *testing.T) {
	router, permStore, _ := setupRouter(t)
	postJSON(t, router, "/api/v1/auth", "", map[string]string{
		"access_token": "tok-A", "name": "space1", "type": "auth",
	})

	postJSON(t, router, "/api/v1/share/add", "", map[string]string{
		"auth": "tok-A", "accessToken": "tok-C", "docid": "space1", "role": "owner",
	})
	_, ok := permStore.Table("space1").Get("tok-C")
	require.False(t, ok)
}

func TestShareAddWritesTableAndView(t *testing.T) {
	router, permStore, views := setupRouter(t)
	postJSON(t, router, "/api/v1/auth", "", map[string]string{
		"access_token": "tok-A", "name": "space1", "type": "auth",
	})

	session := sessionFor(t, "tok-A", "space1")
	w := postJSON(t, router, "/api/v1/share/add", session, map[string]string{
		"auth": "tok-A", "accessToken": "tok-C", "docid": "space1", "name": "charlie", "role": "owner",
	})
	require.Equal(t, http.StatusOK, w.Code)

	granted, ok := permStore.Table("space1").Get("tok-C")
	require.True(t, ok)
	require.Equal(t, "charlie", granted.Name)
	inView, ok := views.View("space1").Get("tok-C")
	require.True(t, ok)
	require.Equal(t, granted, inView)
}

func TestShareAddRejectsForeignDocSession(t *testing.T) {
	router, permStore, _ := setupRouter(t)
	postJSON(t, router, "/api/v1/auth", "", map[string]string{
		"access_token": "tok-A", "name": "space1", "type": "auth",
	})

	// session minted for a different thoughtspace
	session := sessionFor(t, "tok-A", "space2")
	postJSON(t, router, "/api/v1/share/add", session, map[string]string{
		"auth": "tok-A", "accessToken": "tok-C", "docid": "space1", "role": "owner",
	})
	_, ok := permStore.Table("space1").Get("tok-C")
	require.False(t, ok)
}

func TestShareAddInvalidRole(t *testing.T) {
	router, permStore, _ := setupRouter(t)
	postJSON(t, router, "/api/v1/auth", "", map[string]string{
		"access_token": "tok-A", "name": "space1", "type": "auth",
	})

	session := sessionFor(t, "tok-A", "space1")
	postJSON(t, router, "/api/v1/share/add", session, map[string]string{
		"auth": "tok-A", "accessToken": "tok-C", "docid": "space1", "role": "admin",
	})
	_, ok := permStore.Table("space1").Get("tok-C")
	require.False(t, ok)
}

func TestShareUpdateAndDelete(t *testing.T) {
	router, permStore, views := setupRouter(t)
	postJSON(t, router, "/api/v1/auth", "", map[string]string{
		"access_token": "tok-A", "name": "space1", "type": "auth",
	})
	session := sessionFor(t, "tok-A", "space1")
	postJSON(t, router, "/api/v1/share/add", session, map[string]string{
		"auth": "tok-A", "accessToken": "tok-C", "docid": "space1", "name": "charlie", "role": "owner",
	})

	w := postJSON(t, router, "/api/v1/share/update", session, map[string]string{
		"accessToken": "tok-C", "docid": "space1", "name": "renamed", "role": "owner",
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated, _ := permStore.Table("space1").Get("tok-C")
	require.Equal(t, "renamed", updated.Name)

	w = postJSON(t, router, "/api/v1/share/delete", session, map[string]string{
		"accessToken": "tok-C", "docid": "space1",
	})
	require.Equal(t, http.StatusOK, w.Code)
	_, ok := permStore.Table("space1").Get("tok-C")
	require.False(t, ok)
	_, ok = views.View("space1").Get("tok-C")
	require.False(t, ok)

	// deleting again is not an error
	w = postJSON(t, router, "/api/v1/share/delete", session, map[string]string{
		"accessToken": "tok-C", "docid": "space1",
	})
	require.Equal(t, http.StatusOK, w.Code)
}
