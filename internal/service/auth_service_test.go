package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vespa-learn/activity-api/internal/models"
	appErrors "github.com/vespa-learn/activity-api/pkg/errors"
)

const authTestSecret = "test-secret"

func signToken(t *testing.T, secret string, claims *models.JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestValidateToken_ReturnsClaims(t *testing.T) {
	svc := NewAuthService(authTestSecret, nil)
	token := signToken(t, authTestSecret, &models.JWTClaims{
		UserID: "stu-1",
		Role:   models.RoleStudent,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "stu-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	svc := NewAuthService(authTestSecret, nil)
	token := signToken(t, "other-secret", &models.JWTClaims{UserID: "stu-1"})

	_, err := svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestValidateToken_Expired(t *testing.T) {
	svc := NewAuthService(authTestSecret, nil)
	token := signToken(t, authTestSecret, &models.JWTClaims{
		UserID: "stu-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})

	_, err := svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestValidateToken_MissingSubject(t *testing.T) {
	svc := NewAuthService(authTestSecret, nil)
	token := signToken(t, authTestSecret, &models.JWTClaims{Role: models.RoleStaff})

	_, err := svc.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "no subject")
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := NewAuthService(authTestSecret, nil)

	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
