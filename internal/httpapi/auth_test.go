package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubVerifier struct {
	identity Identity
	err      error
	calls    int
}

func (s *stubVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	s.calls++
	if s.err != nil {
		return Identity{}, s.err
	}
	return s.identity, nil
}

func protectedEcho(mw *Middleware) http.HandlerFunc {
	return mw.Require(func(w http.ResponseWriter, req *http.Request) {
		id, _ := IdentityFrom(req.Context())
		writeJSON(w, http.StatusOK, id)
	})
}

func authedRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestMiddleware_DisabledPassesThrough(t *testing.T) {
	mw := NewMiddleware(nil, false, 0, zap.NewNop())

	rec := httptest.NewRecorder()
	protectedEcho(mw)(rec, authedRequest(""))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_MissingToken(t *testing.T) {
	mw := NewMiddleware(&stubVerifier{}, true, time.Minute, zap.NewNop())

	rec := httptest.NewRecorder()
	protectedEcho(mw)(rec, authedRequest(""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_MalformedAuthorizationHeader(t *testing.T) {
	mw := NewMiddleware(&stubVerifier{}, true, time.Minute, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	protectedEcho(mw)(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_RejectedToken(t *testing.T) {
	verifier := &stubVerifier{err: errors.New("token rejected")}
	mw := NewMiddleware(verifier, true, time.Minute, zap.NewNop())

	rec := httptest.NewRecorder()
	protectedEcho(mw)(rec, authedRequest("bad-token"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 1, verifier.calls)
}

func TestMiddleware_ValidTokenInjectsIdentity(t *testing.T) {
	verifier := &stubVerifier{identity: Identity{User: "operator9", Role: "admin"}}
	mw := NewMiddleware(verifier, true, time.Minute, zap.NewNop())

	rec := httptest.NewRecorder()
	protectedEcho(mw)(rec, authedRequest("good-token"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "operator9")
}

func TestMiddleware_CachesVerifiedTokens(t *testing.T) {
	verifier := &stubVerifier{identity: Identity{User: "operator9"}}
	mw := NewMiddleware(verifier, true, time.Minute, zap.NewNop())

	handler := protectedEcho(mw)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler(rec, authedRequest("good-token"))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 1, verifier.calls)
}

func TestMiddleware_CacheExpires(t *testing.T) {
	verifier := &stubVerifier{identity: Identity{User: "operator9"}}
	mw := NewMiddleware(verifier, true, -time.Second, zap.NewNop())

	handler := protectedEcho(mw)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler(rec, authedRequest("good-token"))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	// A non-positive TTL means every entry is already stale.
	assert.Equal(t, 2, verifier.calls)
}

func TestMiddleware_FailuresAreNotCached(t *testing.T) {
	verifier := &stubVerifier{err: errors.New("token rejected")}
	mw := NewMiddleware(verifier, true, time.Minute, zap.NewNop())

	handler := protectedEcho(mw)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler(rec, authedRequest("bad-token"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	assert.Equal(t, 2, verifier.calls)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, bearerToken(req))

	req.Header.Set("Authorization", "Bearer abc123")
	assert.Equal(t, "abc123", bearerToken(req))

	req.Header.Set("Authorization", "bearer abc123")
	assert.Equal(t, "abc123", bearerToken(req))

	req.Header.Set("Authorization", "abc123")
	assert.Empty(t, bearerToken(req))
}

func TestRestyVerifier_AgainstStubService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user":"operator9","role":"admin"}`))
	}))
	defer srv.Close()

	verifier := NewRestyVerifier(srv.URL)

	identity, err := verifier.Verify(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "operator9", identity.User)
	assert.Equal(t, "admin", identity.Role)

	_, err = verifier.Verify(context.Background(), "bad-token")
	assert.Error(t, err)
}
