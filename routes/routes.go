package routes

import (
	"mkulima/auth"
	"mkulima/cart"
	"mkulima/catalog"
	"mkulima/checkout"
	"mkulima/dashboard"
	"mkulima/jobfeed"
	"mkulima/orders"
	"mkulima/receipts"
	"mkulima/transport"

	"github.com/julienschmidt/httprouter"
)

// Deps carries the wired handler sets into route registration.
type Deps struct {
	Auth      *auth.Handlers
	Catalog   *catalog.Handlers
	Cart      *cart.Handlers
	Checkout  *checkout.Service
	Orders    *orders.Handlers
	Transport *transport.Handlers
	Dashboard *dashboard.Handlers
	Receipts  *receipts.Handlers
	Feed      *jobfeed.Hub
}

func RoutesWrapper(router *httprouter.Router, d Deps) {
	AddAuthRoutes(router, d)
	AddProductRoutes(router, d)
	AddCartRoutes(router, d)
	AddCheckoutRoutes(router, d)
	AddOrderRoutes(router, d)
	AddTransportRoutes(router, d)
	AddDashboardRoutes(router, d)
}
