package authn_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"letshare-server/internal/authn"
)

const testSecret = "this-is-a-test-signing-secret-32"

func signToken(t *testing.T, secret string, userID int64, role string, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"userId": userID,
		"role":   role,
		"exp":    exp.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifyTokenRoundTrip(t *testing.T) {
	v, err := authn.New(testSecret, "")
	require.NoError(t, err)

	tok := signToken(t, testSecret, 42, "operator", time.Now().Add(time.Hour))
	user, err := v.VerifyToken(tok)
	require.NoError(t, err)
	require.Equal(t, int64(42), user.UserID)
	require.Equal(t, "operator", string(user.Role))
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	v, err := authn.New(testSecret, "")
	require.NoError(t, err)

	tok := signToken(t, testSecret, 1, "operator", time.Now().Add(-time.Hour))
	_, err = v.VerifyToken(tok)
	require.ErrorIs(t, err, authn.ErrInvalidToken)
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	v, err := authn.New(testSecret, "")
	require.NoError(t, err)

	tok := signToken(t, "a-completely-different-32-byte-secret", 1, "operator", time.Now().Add(time.Hour))
	_, err = v.VerifyToken(tok)
	require.ErrorIs(t, err, authn.ErrInvalidToken)
}

func TestNewRejectsShortSecret(t *testing.T) {
	_, err := authn.New("too-short", "")
	require.Error(t, err)
}

func TestResolveTokenPrecedence(t *testing.T) {
	v, err := authn.New(testSecret, "")
	require.NoError(t, err)

	msgTok := signToken(t, testSecret, 1, "director", time.Now().Add(time.Hour))
	queryTok := signToken(t, testSecret, 2, "operator", time.Now().Add(time.Hour))

	// The "authenticate" message token outranks a query-string token when
	// both are present.
	user, err := v.ResolveToken(authn.HandshakeSource{
		AuthenticateMessageToken: msgTok,
		AuthQueryToken:           queryTok,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), user.UserID)
}

func TestResolveTokenBearerHeader(t *testing.T) {
	v, err := authn.New(testSecret, "")
	require.NoError(t, err)

	tok := signToken(t, testSecret, 7, "operator", time.Now().Add(time.Hour))
	user, err := v.ResolveToken(authn.HandshakeSource{BearerHeader: "Bearer " + tok})
	require.NoError(t, err)
	require.Equal(t, int64(7), user.UserID)
}

func TestResolveTokenCookieWithStrippedSignature(t *testing.T) {
	cookieSecret := "cookie-secret-of-at-least-32-bytes"
	v, err := authn.New(testSecret, cookieSecret)
	require.NoError(t, err)

	jwtPart := signToken(t, testSecret, 9, "director", time.Now().Add(time.Hour))

	mac := hmac.New(sha256.New, []byte(cookieSecret))
	mac.Write([]byte(jwtPart))
	sig := hex.EncodeToString(mac.Sum(nil))

	cookieValue := jwtPart + "." + sig
	user, err := v.ResolveToken(authn.HandshakeSource{
		CookieHeader: "access_token=" + cookieValue,
	})
	require.NoError(t, err)
	require.Equal(t, int64(9), user.UserID)
}

func TestResolveTokenCookieRejectsBadSignature(t *testing.T) {
	v, err := authn.New(testSecret, "cookie-secret-of-at-least-32-bytes")
	require.NoError(t, err)

	jwtPart := signToken(t, testSecret, 9, "director", time.Now().Add(time.Hour))
	cookieValue := jwtPart + ".deadbeef"

	_, err = v.ResolveToken(authn.HandshakeSource{
		CookieHeader: "access_token=" + cookieValue,
	})
	require.ErrorIs(t, err, authn.ErrInvalidToken)
}

func TestResolveTokenNoSourcePresent(t *testing.T) {
	v, err := authn.New(testSecret, "")
	require.NoError(t, err)

	_, err = v.ResolveToken(authn.HandshakeSource{})
	require.ErrorIs(t, err, authn.ErrInvalidToken)
}
