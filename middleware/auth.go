package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/bloghouse/utils"
)

const (
	// ContextUserIDKey is the key used to store the authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextEmailKey stores the authenticated user's email inside Gin context.
	ContextEmailKey = "email"
)

// AuthRequired ensures the request carries a valid session cookie. Guarded
// routes answer 401 with an explicit access-denied envelope; the client is
// expected to send the user to the login form.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		cookie, err := ctx.Cookie(utils.SessionCookieName)
		if err != nil || cookie == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authentication required")
			ctx.Abort()
			return
		}

		sess, ok := utils.ResolveSession(cookie)
		if !ok {
			utils.Error(ctx, http.StatusUnauthorized, 40102, "session invalid or expired")
			ctx.Abort()
			return
		}

		ctx.Set(ContextUserIDKey, sess.UserID)
		ctx.Set(ContextEmailKey, sess.Email)
		ctx.Next()
	}
}
