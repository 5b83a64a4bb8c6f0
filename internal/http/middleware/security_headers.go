package middleware

import "github.com/gin-gonic/gin"

// SecurityHeaders adds security headers. Framing stays same-origin so the
// shell can embed its own pages.
func SecurityHeaders() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Header("X-Frame-Options", "SAMEORIGIN")
		ctx.Header("X-Content-Type-Options", "nosniff")
		ctx.Header("Referrer-Policy", "same-origin")
		ctx.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		ctx.Next()
	}
}
