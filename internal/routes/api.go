package routes

import (
	"github.com/ashgrove/millwork/internal/router"
)

// RegisterAPIRoutes registers the back-office JSON API.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	// Invoices
	r.Post("/api/invoices", deps.InvoiceHandler.Create)
	r.Get("/api/invoices", deps.InvoiceHandler.List)
	r.Get("/api/invoices/{id}", deps.InvoiceHandler.Get)
	r.Delete("/api/invoices/{id}", deps.InvoiceHandler.Delete)
	r.Get("/api/invoices/{id}/client-view", deps.InvoiceHandler.GetClientView)
	r.Post("/api/invoices/{id}/line-items", deps.InvoiceHandler.AddLineItem)
	r.Patch("/api/invoices/{id}/line-items/{index}", deps.InvoiceHandler.UpdateLineItem)
	r.Delete("/api/invoices/{id}/line-items/{index}", deps.InvoiceHandler.RemoveLineItem)
	r.Put("/api/invoices/{id}/tax-rate", deps.InvoiceHandler.SetTaxRate)
	r.Put("/api/invoices/{id}/discount", deps.InvoiceHandler.SetDiscount)
	r.Put("/api/invoices/{id}/markup", deps.InvoiceHandler.SetMarkup)
	r.Post("/api/invoices/{id}/send", deps.InvoiceHandler.Send)
	r.Post("/api/invoices/{id}/payments", deps.InvoiceHandler.RecordPayment)

	// Notification recipients
	r.Post("/api/recipients", deps.RecipientHandler.Create)
	r.Get("/api/recipients", deps.RecipientHandler.List)
	r.Patch("/api/recipients/{id}", deps.RecipientHandler.Update)
	r.Delete("/api/recipients/{id}", deps.RecipientHandler.Delete)

	// Routing settings and ad-hoc sends
	r.Get("/api/routing/{messageType}", deps.RoutingHandler.GetSetting)
	r.Put("/api/routing/{messageType}", deps.RoutingHandler.PutSetting)
	r.Post("/api/notifications/send", deps.RoutingHandler.Notify)

	// Delivery history
	r.Get("/api/history", deps.HistoryHandler.List)
	r.Post("/api/history/delivery-callback", deps.HistoryHandler.DeliveryCallback)
}
