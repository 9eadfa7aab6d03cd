package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	e "github.com/gartstein/fieldfiles/internal/uploader/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "fieldfiles"

// Session is the decoded content of a session cookie.
type Session struct {
	AccessToken  string
	AccountName  string
	AccountEmail string
	ExpiresAt    time.Time
}

type sessionClaims struct {
	jwt.RegisteredClaims
	// AccessToken is the AES-GCM sealed bearer credential, base64url encoded.
	AccessToken string `json:"tok"`
	Name        string `json:"name,omitempty"`
}

// Sessions signs and verifies session cookie values. The bearer credential
// travels encrypted inside an HS256 token that expires after ttl.
type Sessions struct {
	secret     []byte
	gcm        cipher.AEAD
	ttl        time.Duration
	cookieName string
	domain     string
	now        func() time.Time
}

// NewSessions builds a codec. An empty secret is replaced by random bytes,
// which invalidates all sessions on restart.
func NewSessions(secret string, ttl time.Duration, cookieName, domain string) (*Sessions, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
	}

	block, err := aes.NewCipher(deriveKey(key, "token-encryption"))
	if err != nil {
		return nil, fmt.Errorf("failed to create session cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cipher: %w", err)
	}

	return &Sessions{
		secret:     key,
		gcm:        gcm,
		ttl:        ttl,
		cookieName: cookieName,
		domain:     domain,
		now:        time.Now,
	}, nil
}

// CookieName is the name of the session cookie.
func (s *Sessions) CookieName() string { return s.cookieName }

// TTL is the session lifetime.
func (s *Sessions) TTL() time.Duration { return s.ttl }

// Issue encodes a into a signed cookie value.
func (s *Sessions) Issue(a *Authorization) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	id := uuid.NewString()
	sealed, err := s.seal(a.AccessToken, id)
	if err != nil {
		return "", time.Time{}, err
	}
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Issuer:    issuer,
			Subject:   a.AccountEmail,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		AccessToken: sealed,
		Name:        a.AccountName,
	}

	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session: %w", err)
	}
	return value, expiresAt, nil
}

// Parse verifies a cookie value. Tampered, expired or malformed values yield
// ErrUnauthorized.
func (s *Sessions) Parse(value string) (*Session, error) {
	if value == "" {
		return nil, fmt.Errorf("%w: no session", e.ErrUnauthorized)
	}

	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(value, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid session: %v", e.ErrUnauthorized, err)
	}
	if claims.AccessToken == "" {
		return nil, fmt.Errorf("%w: session has no credential", e.ErrUnauthorized)
	}
	accessToken, err := s.open(claims.AccessToken, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", e.ErrUnauthorized, err)
	}

	return &Session{
		AccessToken:  accessToken,
		AccountName:  claims.Name,
		AccountEmail: claims.Subject,
		ExpiresAt:    claims.ExpiresAt.Time,
	}, nil
}

// CurrentToken returns the bearer credential attached to r, or ErrUnauthorized
// when there is none or it has expired. It never falls back to a shared token.
func (s *Sessions) CurrentToken(r *http.Request) (string, error) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil {
		return "", fmt.Errorf("%w: no session cookie", e.ErrUnauthorized)
	}
	session, err := s.Parse(cookie.Value)
	if err != nil {
		return "", err
	}
	return session.AccessToken, nil
}

// Cookie builds the cookie carrying value: HttpOnly, Secure, SameSite=None.
func (s *Sessions) Cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     s.cookieName,
		Value:    value,
		Path:     "/",
		Domain:   s.domain,
		MaxAge:   int(s.ttl.Seconds()),
		Expires:  s.now().Add(s.ttl),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}

// ClearCookie builds a cookie that removes the session.
func (s *Sessions) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		Domain:   s.domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}

// seal encrypts token, bound to the session id.
func (s *Sessions) seal(token, id string) (string, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := s.gcm.Seal(nonce, nonce, []byte(token), []byte(id))
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (s *Sessions) open(sealed, id string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("malformed credential: %w", err)
	}
	if len(raw) < s.gcm.NonceSize() {
		return "", errors.New("malformed credential")
	}
	nonce, ciphertext := raw[:s.gcm.NonceSize()], raw[s.gcm.NonceSize():]
	plain, err := s.gcm.Open(nil, nonce, ciphertext, []byte(id))
	if err != nil {
		return "", errors.New("credential does not decrypt")
	}
	return string(plain), nil
}

// deriveKey derives a 32-byte AES-256 key for purpose from the session secret,
// so the signing and encryption keys differ.
func deriveKey(secret []byte, purpose string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(purpose))
	return mac.Sum(nil)
}
