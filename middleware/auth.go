package middleware

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/rangapin/forum/models"
	"github.com/rangapin/forum/store"
	"github.com/rangapin/forum/utils"
)

const (
	// SessionCookie is the cookie holding the session JWT.
	SessionCookie = "forum_session"
	// ContextUserKey stores the loaded *models.User inside Gin context.
	ContextUserKey = "current_user"
)

// CurrentUser resolves the session cookie into a user row and stores it in
// the request context. Anonymous requests pass through with no user set; a
// stale cookie (revoked token, deleted user) is treated as anonymous.
func CurrentUser(st *store.Store) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, err := ctx.Cookie(SessionCookie)
		if err != nil || token == "" {
			ctx.Next()
			return
		}
		if utils.IsTokenBlacklisted(token) {
			ctx.Next()
			return
		}
		claims, err := utils.ParseToken(token)
		if err != nil {
			ctx.Next()
			return
		}
		user, err := st.UserByID(ctx.Request.Context(), claims.UserID)
		if err != nil {
			ctx.Next()
			return
		}
		ctx.Set(ContextUserKey, user)
		ctx.Next()
	}
}

// RequireUser redirects anonymous requests to the login page, carrying the
// original URL so login can bounce back.
func RequireUser() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if UserFrom(ctx) == nil {
			next := url.QueryEscape(ctx.Request.URL.RequestURI())
			ctx.Redirect(http.StatusFound, "/auth/login?next="+next)
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// UserFrom returns the authenticated user for the request, or nil.
func UserFrom(ctx *gin.Context) *models.User {
	if v, ok := ctx.Get(ContextUserKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}
