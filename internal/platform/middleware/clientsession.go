package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"portal/pkg/requestcontext"
)

// ClientCookieName carries the signed client key identifying one browser.
const ClientCookieName = "portal_client"

const clientKeyIssuer = "portal"

// ClientKeys mints and verifies the signed client-key cookie value.
type ClientKeys struct {
	secret []byte
	ttl    time.Duration
}

// NewClientKeys returns a signer using HS256 with the given secret.
func NewClientKeys(secret string, ttl time.Duration) *ClientKeys {
	return &ClientKeys{secret: []byte(secret), ttl: ttl}
}

// Mint issues a fresh client key and its signed token.
func (k *ClientKeys) Mint(now time.Time) (token string, key string, err error) {
	key = uuid.NewString()
	claims := jwt.RegisteredClaims{
		Issuer:    clientKeyIssuer,
		Subject:   key,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(k.ttl)),
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(k.secret)
	if err != nil {
		return "", "", fmt.Errorf("sign client key: %w", err)
	}
	return token, key, nil
}

// Parse verifies a token and returns the client key it carries.
func (k *ClientKeys) Parse(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return k.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(clientKeyIssuer))
	if err != nil {
		return "", fmt.Errorf("parse client key: %w", err)
	}
	if claims.Subject == "" {
		return "", errors.New("client key missing subject")
	}
	return claims.Subject, nil
}

// ClientSession resolves the client key from the signed cookie, minting a new one
// when the cookie is absent, expired or tampered with.
func ClientSession(keys *ClientKeys, secure bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if c, err := r.Cookie(ClientCookieName); err == nil {
				key, err := keys.Parse(c.Value)
				if err == nil {
					next.ServeHTTP(w, r.WithContext(requestcontext.WithClientKey(ctx, key)))
					return
				}
				logger.WarnContext(ctx, "discarding invalid client cookie",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
			}

			token, key, err := keys.Mint(requestcontext.Now(ctx))
			if err != nil {
				logger.ErrorContext(ctx, "failed to mint client key",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"internal_error"}`))
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     ClientCookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   int(keys.ttl.Seconds()),
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})
			next.ServeHTTP(w, r.WithContext(requestcontext.WithClientKey(ctx, key)))
		})
	}
}
