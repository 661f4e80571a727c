package middleware

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/hertz-contrib/csrf"
	"github.com/hertz-contrib/sessions"
	"github.com/hertz-contrib/sessions/cookie"

	"DayPulse/config"
)

// SessionMiddleware 提供 cookie 会话，CSRF 校验依赖它先挂载
func SessionMiddleware() app.HandlerFunc {
	store := cookie.NewStore([]byte(config.Cfg.SessionSecret))
	return sessions.New("daypulse-session", store)
}

// CSRFMiddleware 校验浏览器端写请求携带的 X-CSRF-TOKEN
func CSRFMiddleware() app.HandlerFunc {
	return csrf.New(
		csrf.WithSecret(config.Cfg.CSRFSecret),
		csrf.WithErrorFunc(func(ctx context.Context, c *app.RequestContext) {
			c.AbortWithStatus(http.StatusForbidden)
		}),
	)
}
