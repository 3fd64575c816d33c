package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/geniibooks/entitlements/internal/infrastructure/logging"
)

// JWTClaims represents the JWT claims structure
type JWTClaims struct {
	IdentityID string `json:"sub"`
	JTI        string `json:"jti"` // JWT ID for revocation
	jwt.RegisteredClaims
}

// JWTMiddleware handles JWT validation and revocation checking
type JWTMiddleware struct {
	secret          []byte
	blocklist       *redis.Client
	accessTTL       time.Duration
	issuer          string
	blocklistPrefix string
	logger          *zap.Logger
}

// NewJWTMiddleware creates a new JWT middleware
func NewJWTMiddleware(secret string, redisClient *redis.Client, accessTTL time.Duration, issuer string) *JWTMiddleware {
	return &JWTMiddleware{
		secret:          []byte(secret),
		blocklist:       redisClient,
		accessTTL:       accessTTL,
		issuer:          issuer,
		blocklistPrefix: "jwt:blocked:",
		logger:          logging.Logger,
	}
}

// Authenticate validates the JWT token and sets the identity context
func (j *JWTMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED", "message": "Missing authorization header"})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED", "message": "Invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := j.ParseToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED", "message": "Invalid token"})
			c.Abort()
			return
		}

		// Check if token is revoked
		ctx := c.Request.Context()
		blocklisted, err := j.blocklist.Get(ctx, j.blocklistPrefix+claims.JTI).Result()
		if err != nil && err != redis.Nil {
			j.logger.Error("failed to check token blocklist", zap.Error(err))
			// Fail closed for security
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "SERVICE_UNAVAILABLE", "message": "Token validation unavailable"})
			c.Abort()
			return
		}

		if blocklisted != "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "TOKEN_REVOKED", "message": "Token has been revoked"})
			c.Abort()
			return
		}

		c.Set("identity_id", claims.IdentityID)
		c.Set("jti", claims.JTI)

		c.Next()
	}
}

// GenerateAccessToken creates a new access token for the identity
func (j *JWTMiddleware) GenerateAccessToken(identityID string) (string, string, error) {
	jti := uuid.New().String()
	now := time.Now()

	claims := &JWTClaims{
		IdentityID: identityID,
		JTI:        jti,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.accessTTL)),
			Issuer:    j.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", "", err
	}

	return tokenString, jti, nil
}

// ParseToken parses a token string and returns the claims without
// checking the Redis blocklist.
func (j *JWTMiddleware) ParseToken(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return j.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// RevokeToken adds a token to the blocklist until it would have expired
func (j *JWTMiddleware) RevokeToken(ctx context.Context, jti string, remainingTTL time.Duration) error {
	return j.blocklist.Set(ctx, j.blocklistPrefix+jti, "1", remainingTTL).Err()
}

// AccessTTL returns the configured access token lifetime
func (j *JWTMiddleware) AccessTTL() time.Duration {
	return j.accessTTL
}
