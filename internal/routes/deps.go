package routes

import (
	"github.com/ashgrove/millwork/internal/handler/api"
)

// APIDeps contains the handlers wired into the JSON API routes.
type APIDeps struct {
	InvoiceHandler   *api.InvoiceHandler
	RecipientHandler *api.RecipientHandler
	RoutingHandler   *api.RoutingHandler
	HistoryHandler   *api.HistoryHandler
}
