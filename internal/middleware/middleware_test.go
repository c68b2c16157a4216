package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"rps_wallet/internal/domain"
	"rps_wallet/internal/testutil"
	"rps_wallet/internal/utils"
)

const secret = "jwt-secret"

type MiddlewareTestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine
}

func TestMiddlewareSuite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	suite.Run(t, new(MiddlewareTestSuite))
}

func (s *MiddlewareTestSuite) SetupTest() {
	s.db = testutil.OpenDB(s.T())
	s.router = gin.New()
	whoami := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"user_id": c.GetUint("userID")}) }
	s.router.GET("/me", JWTAuthMiddleware(secret), whoami)
	s.router.POST("/me", JWTAuthMiddleware(secret), whoami)
	s.router.GET("/admin", JWTAuthMiddleware(secret), AdminOnlyMiddleware(s.db), whoami)
	s.router.GET("/limited", JWTAuthMiddleware(secret), RateLimitMiddleware(nil, "play", 1, time.Minute), whoami)
}

func (s *MiddlewareTestSuite) token(userID uint) string {
	t, err := utils.GenerateJWT(userID, secret, time.Hour)
	s.Require().NoError(err)
	return t
}

func (s *MiddlewareTestSuite) get(method, target, authHeader string) int {
	req := httptest.NewRequest(method, target, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w.Code
}

func (s *MiddlewareTestSuite) TestJWTAuth() {
	valid := s.token(7)
	other, err := utils.GenerateJWT(7, "other-secret", time.Hour)
	s.Require().NoError(err)

	testCases := []struct {
		name     string
		method   string
		target   string
		header   string
		expected int
	}{
		{name: "Bearer header", method: http.MethodGet, target: "/me", header: "Bearer " + valid, expected: http.StatusOK},
		{name: "Missing header", method: http.MethodGet, target: "/me", expected: http.StatusUnauthorized},
		{name: "Wrong scheme", method: http.MethodGet, target: "/me", header: "Basic " + valid, expected: http.StatusUnauthorized},
		{name: "Foreign signature", method: http.MethodGet, target: "/me", header: "Bearer " + other, expected: http.StatusUnauthorized},
		{name: "Query token on GET", method: http.MethodGet, target: "/me?token=" + valid, expected: http.StatusOK},
		{name: "Query token on POST", method: http.MethodPost, target: "/me?token=" + valid, expected: http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.Equal(tc.expected, s.get(tc.method, tc.target, tc.header))
		})
	}
}

func (s *MiddlewareTestSuite) TestAdminOnly() {
	player, _ := testutil.CreatePlayer(s.T(), s.db, "player", 0)
	admin, _ := testutil.CreatePlayer(s.T(), s.db, "admin", 0)
	s.Require().NoError(s.db.Model(admin).Update("role", domain.RoleAdmin).Error)
	house, _ := testutil.CreatePlayer(s.T(), s.db, "house", 0)
	s.Require().NoError(s.db.Model(house).Updates(map[string]any{"role": domain.RoleAdmin, "type": domain.UserTypeSystem}).Error)

	s.Equal(http.StatusForbidden, s.get(http.MethodGet, "/admin", "Bearer "+s.token(player.ID)))
	s.Equal(http.StatusOK, s.get(http.MethodGet, "/admin", "Bearer "+s.token(admin.ID)))
	s.Equal(http.StatusForbidden, s.get(http.MethodGet, "/admin", "Bearer "+s.token(house.ID)))
	s.Equal(http.StatusForbidden, s.get(http.MethodGet, "/admin", "Bearer "+s.token(9999)))
}

func (s *MiddlewareTestSuite) TestRateLimitWithoutRedisAllows() {
	for i := 0; i < 3; i++ {
		s.Equal(http.StatusOK, s.get(http.MethodGet, "/limited", "Bearer "+s.token(1)))
	}
}
