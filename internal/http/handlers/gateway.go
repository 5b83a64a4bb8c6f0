package handlers

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ShellGateway proxies every unrouted request to the shell origin. The
// transport is the offline cache manager, so shell assets keep loading when
// the origin is down.
type ShellGateway struct {
	proxy  *httputil.ReverseProxy
	logger *zap.Logger
}

func NewShellGateway(origin *url.URL, transport http.RoundTripper, logger *zap.Logger) *ShellGateway {
	g := &ShellGateway{logger: logger}
	g.proxy = &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(origin)
			r.SetXForwarded()
		},
		Transport:    transport,
		ErrorHandler: g.handleError,
	}
	return g
}

func (g *ShellGateway) Serve(c *gin.Context) {
	g.proxy.ServeHTTP(c.Writer, c.Request)
}

func (g *ShellGateway) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if r.Context().Err() != nil {
		return
	}
	g.logger.Warn("Shell origin unreachable",
		zap.String("path", r.URL.Path),
		zap.Error(err))
	http.Error(w, "Shell origin unreachable", http.StatusBadGateway)
}
