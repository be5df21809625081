// Package auth issues and verifies bearer tokens and hashes staff passwords.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"tableside/internal/models"
)

const principalKey = "principal"

var (
	ErrMissingToken = errors.New("authentication required")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Principal is the authenticated caller of a request
type Principal struct {
	UserID         string      `json:"userId"`
	Role           models.Role `json:"role"`
	AssignedTables []int       `json:"assignedTables,omitempty"`
}

// Claims are the JWT claims carried by every token
type Claims struct {
	Principal
	jwt.StandardClaims
}

// Issuer signs and verifies HS256 tokens with a shared secret
type Issuer struct {
	secret []byte
	now    func() time.Time
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for p that expires after ttl
func (i *Issuer) Issue(p Principal, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		Principal: p,
		StandardClaims: jwt.StandardClaims{
			Subject:   p.UserID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies raw and returns the principal it carries
func (i *Issuer) Parse(raw string) (*Principal, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return &claims.Principal, nil
}

// HashPassword returns the bcrypt hash of password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Middleware rejects requests without a valid bearer token
func Middleware(issuer *Issuer) gin.HandlerFunc {
	return middleware(issuer, "")
}

// QueryMiddleware is Middleware for clients that cannot set headers, such as
// browser websockets. The token may also come from the param query value.
func QueryMiddleware(issuer *Issuer, param string) gin.HandlerFunc {
	return middleware(issuer, param)
}

func middleware(issuer *Issuer, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if raw == "" && param != "" {
			raw = strings.TrimSpace(c.Query(param))
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrMissingToken.Error()})
			return
		}

		p, err := issuer.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireRole lets through only principals holding one of roles
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := FromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrMissingToken.Error()})
			return
		}
		for _, r := range roles {
			if p.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": fmt.Sprintf("role %s is not allowed here", p.Role)})
	}
}

// FromContext returns the principal stored by Middleware
func FromContext(c *gin.Context) (*Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*Principal)
	return p, ok
}
