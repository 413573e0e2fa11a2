// Package authn verifies the compact signed claim issued by the external
// identity service (C1). It never mints tokens; the one exception is
// cmd/tokengen, a local dev utility mirroring the teacher's
// scripts/generate-token.go.
package authn

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"letshare-server/internal/model"
)

// ErrInvalidToken is returned for every verification failure: missing
// token, bad signature, expiry, malformed claims, or a cookie-signature
// mismatch. Callers never see which sub-case fired; the spec requires
// rejection without echoing detail back to the caller.
var ErrInvalidToken = errors.New("invalid token")

const minSecretLen = 32

// Claims is the widened claim shape this service expects: {userId, role}
// plus the registered fields golang-jwt validates (exp, iat).
type Claims struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier holds the process-start signing secret. Absence of a secret at
// least minSecretLen characters long is a fatal boot condition (spec §4.1);
// New returns an error rather than panicking so main can log and exit.
type Verifier struct {
	secret       []byte
	cookieSecret []byte
}

func New(jwtSecret, cookieSecret string) (*Verifier, error) {
	if len(jwtSecret) < minSecretLen {
		return nil, fmt.Errorf("authn: signing secret must be at least %d characters", minSecretLen)
	}
	cs := cookieSecret
	if cs == "" {
		cs = jwtSecret
	}
	return &Verifier{secret: []byte(jwtSecret), cookieSecret: []byte(cs)}, nil
}

// VerifyToken parses and validates a compact signed claim, returning the
// {userId, role} pair on success.
func (v *Verifier) VerifyToken(raw string) (model.AuthUser, error) {
	if raw == "" {
		return model.AuthUser{}, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return model.AuthUser{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID == 0 || claims.Role == "" {
		return model.AuthUser{}, ErrInvalidToken
	}

	return model.AuthUser{UserID: claims.UserID, Role: model.NormalizeRole(claims.Role)}, nil
}

// HandshakeSource carries the four places a token may be taken from, in
// resolution order. The socket handler fills only the authenticate
// message token or the handshake query token; the bearer header and
// cookie are filled by the HTTP RequireUser middleware, so a socket
// handshake's Authorization header and cookies are not consulted.
type HandshakeSource struct {
	// AuthenticateMessageToken is the payload field of the client's
	// "authenticate" message; empty when resolving for plain HTTP.
	AuthenticateMessageToken string
	AuthQueryToken           string
	BearerHeader             string
	CookieHeader             string
}

// ResolveToken tries each source in order until one yields a non-empty
// candidate, verifies it, and returns the result. Cookie values that carry
// an appended external HMAC signature (four dot-separated segments where a
// bare JWT has three) are checked against the cookie secret and stripped
// before JWT verification; a signature mismatch is a hard rejection, not a
// fallthrough to the next source.
func (v *Verifier) ResolveToken(src HandshakeSource) (model.AuthUser, error) {
	if src.AuthenticateMessageToken != "" {
		return v.VerifyToken(src.AuthenticateMessageToken)
	}
	if src.AuthQueryToken != "" {
		return v.VerifyToken(src.AuthQueryToken)
	}
	if bearer := strings.TrimPrefix(src.BearerHeader, "Bearer "); bearer != "" && bearer != src.BearerHeader {
		return v.VerifyToken(bearer)
	}
	if src.BearerHeader != "" {
		// Header present but not "Bearer <token>" shaped: still a
		// candidate source, just not a valid one.
		return model.AuthUser{}, ErrInvalidToken
	}
	if src.CookieHeader != "" {
		raw, err := v.extractCookieToken(src.CookieHeader)
		if err != nil {
			return model.AuthUser{}, err
		}
		if raw != "" {
			return v.VerifyToken(raw)
		}
	}
	return model.AuthUser{}, ErrInvalidToken
}

func (v *Verifier) extractCookieToken(cookieHeader string) (string, error) {
	header := &http.Request{Header: http.Header{"Cookie": []string{cookieHeader}}}
	for _, name := range []string{"access_token", "__Host-access_token"} {
		cookie, err := header.Cookie(name)
		if err != nil {
			continue
		}
		value, err := url.QueryUnescape(cookie.Value)
		if err != nil {
			return "", ErrInvalidToken
		}
		return v.stripCookieSignature(value)
	}
	return "", nil
}

// stripCookieSignature recognizes the external four-segment
// "<jwt>.<hmac-signature>" encoding (a bare compact JWT has exactly three
// dot-separated segments) and verifies/removes the trailing segment.
func (v *Verifier) stripCookieSignature(value string) (string, error) {
	parts := strings.Split(value, ".")
	if len(parts) != 4 {
		return value, nil
	}
	jwtPart := strings.Join(parts[:3], ".")
	sig := parts[3]

	mac := hmac.New(sha256.New, v.cookieSecret)
	mac.Write([]byte(jwtPart))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return "", ErrInvalidToken
	}
	return jwtPart, nil
}
