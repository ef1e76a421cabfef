package handler

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/labstack/echo/v4"

	"lms-gateway/config"
	"lms-gateway/middleware"
	"lms-gateway/token"
)

// ProxyHandler forwards authenticated requests to a downstream LMS service,
// attaching the gateway token so the upstream can trust the identity.
type ProxyHandler struct {
	proxy  *httputil.ReverseProxy
	config *config.Config
	logger *slog.Logger
}

// NewProxyHandler creates a proxy for the given upstream base URL.
func NewProxyHandler(upstream *url.URL, cfg *config.Config, logger *slog.Logger) *ProxyHandler {
	proxy := httputil.NewSingleHostReverseProxy(upstream)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("upstream request failed", "upstream", upstream.Host, "error", err)
		w.WriteHeader(http.StatusBadGateway)
	}

	return &ProxyHandler{
		proxy:  proxy,
		config: cfg,
		logger: logger,
	}
}

// Handle forwards the request upstream.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	if user, ok := middleware.CurrentUser(c); ok {
		gatewayToken, err := token.IssueGatewayToken(h.config, user)
		if err != nil {
			h.logger.Error("failed to issue gateway token", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue gateway token")
		}
		req.Header.Set(GatewayTokenHeader, gatewayToken)
	}

	h.proxy.ServeHTTP(c.Response(), req)
	return nil
}
