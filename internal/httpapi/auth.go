package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Identity is the validated caller identity supplied by the external
// authentication service. The role is only used for permission gating at
// the edge; the core never inspects it.
type Identity struct {
	User string `json:"user"`
	Role string `json:"role"`
}

type identityKey struct{}

// IdentityFrom returns the authenticated identity of a request, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// Verifier checks a bearer token against the authentication service.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// RestyVerifier posts the token to the auth service's verify endpoint.
type RestyVerifier struct {
	client *resty.Client
	url    string
}

func NewRestyVerifier(verifyURL string) *RestyVerifier {
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &RestyVerifier{client: client, url: verifyURL}
}

func (v *RestyVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	var identity Identity
	resp, err := v.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token).
		SetResult(&identity).
		Post(v.url)
	if err != nil {
		return Identity{}, fmt.Errorf("auth service unreachable: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return Identity{}, fmt.Errorf("token rejected: status %d", resp.StatusCode())
	}
	if identity.User == "" {
		return Identity{}, fmt.Errorf("token rejected: empty identity")
	}
	return identity, nil
}

type cachedIdentity struct {
	identity Identity
	expires  time.Time
}

// Middleware guards the read/operate surface. Verified tokens are cached
// with a TTL so the auth service is not hit on every dashboard poll.
// Disabled mode (dev) passes everything through anonymously.
type Middleware struct {
	verifier Verifier
	enabled  bool
	cacheTTL time.Duration
	logger   *zap.Logger

	mu    sync.Mutex
	cache map[string]cachedIdentity
}

func NewMiddleware(verifier Verifier, enabled bool, cacheTTL time.Duration, logger *zap.Logger) *Middleware {
	return &Middleware{
		verifier: verifier,
		enabled:  enabled,
		cacheTTL: cacheTTL,
		logger:   logger,
		cache:    make(map[string]cachedIdentity),
	}
}

func (m *Middleware) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if !m.enabled {
			next(w, req)
			return
		}

		token := bearerToken(req)
		if token == "" {
			fail(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		identity, err := m.verify(req.Context(), token)
		if err != nil {
			m.logger.Debug("Token verification failed", zap.Error(err))
			fail(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(req.Context(), identityKey{}, identity)
		next(w, req.WithContext(ctx))
	}
}

func (m *Middleware) verify(ctx context.Context, token string) (Identity, error) {
	m.mu.Lock()
	if cached, ok := m.cache[token]; ok && time.Now().Before(cached.expires) {
		m.mu.Unlock()
		return cached.identity, nil
	}
	m.mu.Unlock()

	identity, err := m.verifier.Verify(ctx, token)
	if err != nil {
		return Identity{}, err
	}

	m.mu.Lock()
	m.cache[token] = cachedIdentity{identity: identity, expires: time.Now().Add(m.cacheTTL)}
	m.mu.Unlock()
	return identity, nil
}

func bearerToken(req *http.Request) string {
	header := req.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
