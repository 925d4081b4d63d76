package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

func TestRecorderCountsActivity(t *testing.T) {
	r := NewRecorder(prometheus.NewRegistry())
	ctx := context.Background()

	r.Notify(ctx, model.Activity{Kind: model.ActivityTicketPurchased, Currency: model.CurrencyNative, Quantity: 3})
	r.Notify(ctx, model.Activity{Kind: model.ActivityTicketPurchased, Currency: model.CurrencyStable, Quantity: 1})
	r.Notify(ctx, model.Activity{Kind: model.ActivityTicketUsed})

	assert.Equal(t, 2.0, testutil.ToFloat64(r.activity.WithLabelValues("ticket_purchased")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.ticketsSold.WithLabelValues("native")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ticketsUsed))
}

func TestMiddlewareLabelsByRoute(t *testing.T) {
	r := NewRecorder(prometheus.NewRegistry())
	e := echo.New()
	e.Use(r.Middleware())
	e.GET("/v1/events/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	for _, p := range []string{"/v1/events/1", "/v1/events/2"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(r.requests.WithLabelValues(http.MethodGet, "/v1/events/:id", "204")))
}
