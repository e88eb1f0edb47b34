package middleware

import (
	"time"

	"github.com/flexprice/invoicer/internal/config"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// SentryMiddleware attaches a request scoped hub and reports panics.
// It must run after RequestIDMiddleware so events carry the request id.
func SentryMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	if !cfg.Sentry.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
}

// SentryScopeMiddleware tags the request hub with the invoicing identifiers of the route.
// It is a no-op when SentryMiddleware did not attach a hub.
func SentryScopeMiddleware(c *gin.Context) {
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		hub.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetTag("request_id", types.GetRequestID(c.Request.Context()))
			if accountID := c.Param("account_id"); accountID != "" {
				scope.SetTag("account_id", accountID)
			}
			if invoiceID := c.Param("id"); invoiceID != "" {
				scope.SetTag("invoice_id", invoiceID)
			}
		})
	}
	c.Next()
}
