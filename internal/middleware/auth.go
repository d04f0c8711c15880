package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"knowledgehub/internal/models"
	"knowledgehub/internal/services"
	"knowledgehub/internal/utils"
)

const (
	CheckUserKey   = "user"
	SessionUserKey = "user_id"
)

// Claims of the bearer tokens accepted by LoadUser.
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// IssueToken signs a bearer token for user.
func IssueToken(secret string, user models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parseToken(secret, tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// LoadUser resolves the caller from the session cookie or a bearer token and
// stores a services.Identity in the context. Invalid credentials leave the
// request anonymous.
func LoadUser(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var userID uint

		if header := c.GetHeader("Authorization"); header != "" && jwtSecret != "" {
			scheme, token, ok := strings.Cut(header, " ")
			if ok && strings.EqualFold(scheme, "Bearer") {
				if claims, err := parseToken(jwtSecret, strings.TrimSpace(token)); err == nil {
					userID = claims.UserID
				}
			}
		}
		if userID == 0 {
			if v, ok := sessions.Default(c).Get(SessionUserKey).(uint); ok {
				userID = v
			}
		}

		if userID != 0 {
			var user models.User
			if err := db.WithContext(c.Request.Context()).Select("id", "username", "role").First(&user, userID).Error; err == nil {
				c.Set(CheckUserKey, services.Identity{UserID: user.ID, Username: user.Username, Role: user.Role})
			}
		}
		c.Next()
	}
}

// AuthRequired rejects anonymous requests.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentIdentity(c).Authenticated() {
			utils.Error(c, http.StatusUnauthorized, 40100, "authentication required")
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the caller, or the anonymous identity.
func CurrentIdentity(c *gin.Context) services.Identity {
	if v, ok := c.Get(CheckUserKey); ok {
		if id, ok := v.(services.Identity); ok {
			return id
		}
	}
	return services.Identity{}
}
