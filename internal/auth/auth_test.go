package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableside/internal/models"
)

func TestIssueAndParse(t *testing.T) {
	issuer := NewIssuer("secret")

	token, err := issuer.Issue(Principal{UserID: "w1", Role: models.RoleWaiter, AssignedTables: []int{1, 2}}, time.Hour)
	require.NoError(t, err)

	p, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "w1", p.UserID)
	assert.Equal(t, models.RoleWaiter, p.Role)
	assert.Equal(t, []int{1, 2}, p.AssignedTables)
}

func TestParse_Rejects(t *testing.T) {
	issuer := NewIssuer("secret")

	other, err := NewIssuer("other").Issue(Principal{UserID: "u"}, time.Hour)
	require.NoError(t, err)
	_, err = issuer.Parse(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := issuer.Issue(Principal{UserID: "u"}, time.Hour)
	require.NoError(t, err)
	issuer.now = time.Now
	_, err = issuer.Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "guess"))
}

func TestMiddlewareAndRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer := NewIssuer("secret")

	router := gin.New()
	router.GET("/admin", Middleware(issuer), RequireRole(models.RoleAdmin), func(c *gin.Context) {
		p, ok := FromContext(c)
		require.True(t, ok)
		c.String(http.StatusOK, p.UserID)
	})

	do := func(header string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/admin", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, do("").Code)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer garbage").Code)

	chef, _ := issuer.Issue(Principal{UserID: "c1", Role: models.RoleChef}, time.Hour)
	assert.Equal(t, http.StatusForbidden, do("Bearer "+chef).Code)

	admin, _ := issuer.Issue(Principal{UserID: "a1", Role: models.RoleAdmin}, time.Hour)
	w := do("Bearer " + admin)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a1", w.Body.String())
}

func TestQueryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer := NewIssuer("secret")
	chef, _ := issuer.Issue(Principal{UserID: "c1", Role: models.RoleChef}, time.Hour)

	router := gin.New()
	router.GET("/ws", QueryMiddleware(issuer, "token"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	router.GET("/api", Middleware(issuer), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	get := func(path string) int {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, get("/ws"))
	assert.Equal(t, http.StatusUnauthorized, get("/ws?token=garbage"))
	assert.Equal(t, http.StatusNoContent, get("/ws?token="+chef))
	// plain routes only accept the header
	assert.Equal(t, http.StatusUnauthorized, get("/api?token="+chef))
}
