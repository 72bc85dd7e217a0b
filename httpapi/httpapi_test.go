package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orionop/cargox/store"
)

func newTestRouter(t *testing.T, jwtKey string) (http.Handler, *store.MemoryStore) {
	t.Helper()
	m := store.NewMemoryStore()
	return NewRouter(m, zap.NewNop(), []string{"*"}, jwtKey, 0), m
}

func decodeEnvelope(t *testing.T, body []byte) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(body, &env))
	return env
}

func TestHealthReportsOK(t *testing.T) {
	r, _ := newTestRouter(t, "")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpointServed(t *testing.T) {
	r, _ := newTestRouter(t, "")
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateAndGetContainer(t *testing.T) {
	r, _ := newTestRouter(t, "")
	body := `[{"id":"c1","width":5,"height":5,"depth":5,"capacity":5,"zone":"A","container_type":"storage"}]`
	req := httptest.NewRequest(http.MethodPost, "/api/containers", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec.Body.Bytes())
	assert.True(t, env.Success)

	req2 := httptest.NewRequest(http.MethodGet, "/api/containers/c1", nil)
	rec2 := httptest.NewRecorder()
	r.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusOK, rec2.Code)
}

func TestCreateContainerInvalidInputReturns400(t *testing.T) {
	r, _ := newTestRouter(t, "")
	body := `[{"id":"","width":-1,"height":5,"depth":5,"capacity":5}]`
	req := httptest.NewRequest(http.MethodPost, "/api/containers", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec.Body.Bytes())
	assert.False(t, env.Success)
}

func TestGetContainerNotFoundReturns404(t *testing.T) {
	r, _ := newTestRouter(t, "")
	req := httptest.NewRequest(http.MethodGet, "/api/containers/does-not-exist", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMutatingRouteRejectedWithoutTokenWhenKeyConfigured(t *testing.T) {
	r, _ := newTestRouter(t, "test-signing-key")
	body := `[{"id":"c1","width":5,"height":5,"depth":5,"capacity":5}]`
	req := httptest.NewRequest(http.MethodPost, "/api/containers", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMutatingRouteAcceptedWithValidToken(t *testing.T) {
	signingKey := "test-signing-key"
	r, _ := newTestRouter(t, signingKey)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "astronaut-1"})
	signed, err := token.SignedString([]byte(signingKey))
	require.NoError(t, err)

	body := `[{"id":"c1","width":5,"height":5,"depth":5,"capacity":5}]`
	req := httptest.NewRequest(http.MethodPost, "/api/containers", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRetrieveUsesTokenSubAsActorOverBodyValue(t *testing.T) {
	signingKey := "test-signing-key"
	r, _ := newTestRouter(t, signingKey)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "astronaut-1"})
	signed, err := token.SignedString([]byte(signingKey))
	require.NoError(t, err)

	containerBody := `[{"id":"c1","width":5,"height":5,"depth":5,"capacity":5,"container_type":"storage"}]`
	req := httptest.NewRequest(http.MethodPost, "/api/containers", bytes.NewBufferString(containerBody))
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	itemBody := `[{"id":"i1","width":1,"height":1,"depth":1,"mass":1,"priority":50}]`
	req2 := httptest.NewRequest(http.MethodPost, "/api/items", bytes.NewBufferString(itemBody))
	req2.Header.Set("Authorization", "Bearer "+signed)
	rec2 := httptest.NewRecorder()
	r.ServeHTTP(rec2, req2)
	require.Equal(t, http.StatusOK, rec2.Code)

	req3 := httptest.NewRequest(http.MethodPost, "/api/place-all", nil)
	req3.Header.Set("Authorization", "Bearer "+signed)
	rec3 := httptest.NewRecorder()
	r.ServeHTTP(rec3, req3)
	require.Equal(t, http.StatusOK, rec3.Code)

	// retrieved_by in the body names a different actor than the token's
	// sub claim; the token must win.
	retrieveBody := `{"item_id":"i1","retrieved_by":"body-supplied-actor"}`
	req4 := httptest.NewRequest(http.MethodPost, "/api/retrieve", bytes.NewBufferString(retrieveBody))
	req4.Header.Set("Authorization", "Bearer "+signed)
	rec4 := httptest.NewRecorder()
	r.ServeHTTP(rec4, req4)
	require.Equal(t, http.StatusOK, rec4.Code)

	req5 := httptest.NewRequest(http.MethodGet, "/api/items/i1", nil)
	rec5 := httptest.NewRecorder()
	r.ServeHTTP(rec5, req5)
	require.Equal(t, http.StatusOK, rec5.Code)
	env := decodeEnvelope(t, rec5.Body.Bytes())
	payload, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "astronaut-1", payload["last_retrieved_by"])
}

func TestReadRoutesNeverGatedByAuth(t *testing.T) {
	r, _ := newTestRouter(t, "test-signing-key")
	req := httptest.NewRequest(http.MethodGet, "/api/containers", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPlaceAllEndToEnd(t *testing.T) {
	r, _ := newTestRouter(t, "")

	containerBody := `[{"id":"c1","width":5,"height":5,"depth":5,"capacity":5,"container_type":"storage"}]`
	req := httptest.NewRequest(http.MethodPost, "/api/containers", bytes.NewBufferString(containerBody))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	itemBody := `[{"id":"i1","width":1,"height":1,"depth":1,"mass":1,"priority":50}]`
	req2 := httptest.NewRequest(http.MethodPost, "/api/items", bytes.NewBufferString(itemBody))
	rec2 := httptest.NewRecorder()
	r.ServeHTTP(rec2, req2)
	require.Equal(t, http.StatusOK, rec2.Code)

	req3 := httptest.NewRequest(http.MethodPost, "/api/place-all", nil)
	rec3 := httptest.NewRecorder()
	r.ServeHTTP(rec3, req3)
	require.Equal(t, http.StatusOK, rec3.Code)
	env := decodeEnvelope(t, rec3.Body.Bytes())
	assert.True(t, env.Success)
}
