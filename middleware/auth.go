package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/linkfeed/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextClaimsKey stores the parsed token claims, used by logout.
	ContextClaimsKey = "jwt_claims"
)

// AuthRequired rejects the request with 401 unless it carries a valid, unrevoked bearer token.
func AuthRequired(blacklist *utils.TokenBlacklist) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, msg := authenticate(ctx, blacklist)
		if claims == nil {
			utils.Error(ctx, http.StatusUnauthorized, "AuthFailure", msg)
			return
		}
		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextClaimsKey, claims)
		ctx.Next()
	}
}

// AuthOptional attaches the caller's identity when a valid token is present
// and lets anonymous requests through. A bad token is treated as anonymous.
func AuthOptional(blacklist *utils.TokenBlacklist) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if claims, _ := authenticate(ctx, blacklist); claims != nil {
			ctx.Set(ContextUserIDKey, claims.UserID)
			ctx.Set(ContextClaimsKey, claims)
		}
		ctx.Next()
	}
}

// CurrentUserID returns the authenticated caller, or "" for anonymous requests.
func CurrentUserID(ctx *gin.Context) string {
	return ctx.GetString(ContextUserIDKey)
}

// CurrentClaims returns the parsed token of the authenticated caller.
func CurrentClaims(ctx *gin.Context) *utils.Claims {
	v, ok := ctx.Get(ContextClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*utils.Claims)
	return claims
}

func authenticate(ctx *gin.Context, blacklist *utils.TokenBlacklist) (*utils.Claims, string) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return nil, "authorization header missing"
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, "invalid authorization header format"
	}
	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return nil, "empty bearer token"
	}

	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		return nil, "invalid token"
	}
	if blacklist != nil && blacklist.IsRevoked(ctx.Request.Context(), claims.ID) {
		return nil, "token revoked"
	}
	return claims, ""
}
