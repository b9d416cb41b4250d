package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vespa-learn/activity-api/internal/models"
	"github.com/vespa-learn/activity-api/internal/service"
)

const middlewareTestSecret = "test-secret"

func issueToken(t *testing.T, userID, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(middlewareTestSecret))
	require.NoError(t, err)
	return signed
}

func newProtectedRouter(roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	authSvc := service.NewAuthService(middlewareTestSecret, nil)

	router := gin.New()
	group := router.Group("/", JWT(authSvc))
	if len(roles) > 0 {
		group.Use(RequireRole(roles...))
	}
	group.GET("/students/:studentId/activities", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func request(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestJWT_MissingHeader(t *testing.T) {
	router := newProtectedRouter()
	w := request(router, "/students/stu-1/activities", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWT_MalformedHeader(t *testing.T) {
	router := newProtectedRouter()
	req := httptest.NewRequest(http.MethodGet, "/students/stu-1/activities", nil)
	req.Header.Set("Authorization", "Token abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWT_ValidToken(t *testing.T) {
	router := newProtectedRouter()
	w := request(router, "/students/stu-1/activities", issueToken(t, "stu-1", models.RoleStudent))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRole_StaffAllowed(t *testing.T) {
	router := newProtectedRouter(models.RoleStaff)
	w := request(router, "/students/stu-1/activities", issueToken(t, "staff-1", models.RoleStaff))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRole_StudentForbiddenOnStaffRoute(t *testing.T) {
	router := newProtectedRouter(models.RoleStaff)
	w := request(router, "/students/stu-1/activities", issueToken(t, "stu-1", models.RoleStudent))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRole_SelfMatchesPathParam(t *testing.T) {
	router := newProtectedRouter(models.RoleStaff, "SELF")

	w := request(router, "/students/stu-1/activities", issueToken(t, "stu-1", models.RoleStudent))
	assert.Equal(t, http.StatusOK, w.Code)

	w = request(router, "/students/stu-2/activities", issueToken(t, "stu-1", models.RoleStudent))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
