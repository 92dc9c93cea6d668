package routes

import (
	"net/http"

	"mkulima/checkout"
	"mkulima/jobfeed"
	"mkulima/middleware"
	"mkulima/models"
	"mkulima/ratelim"

	"github.com/julienschmidt/httprouter"
)

func AddCheckoutRoutes(router *httprouter.Router, d Deps) {
	router.POST("/api/cart/checkout",
		ratelim.RateLimit(middleware.RequireRole(models.RoleBuyer, checkout.Idempotent(d.Checkout.Checkout))))
	router.POST("/api/cart/confirm",
		ratelim.RateLimit(middleware.RequireRole(models.RoleBuyer, checkout.Idempotent(d.Checkout.ConfirmOrder))))
	router.POST("/api/products/:productid/buy",
		ratelim.RateLimit(middleware.RequireRole(models.RoleBuyer, checkout.Idempotent(d.Checkout.BuyNow))))
	router.GET("/api/payments/status/:checkoutid",
		middleware.RequireRole(models.RoleBuyer, d.Checkout.PaymentStatus))

	// Gateway-initiated; no auth, the correlation id is the credential.
	router.POST("/api/payments/mpesa/callback", d.Checkout.MpesaCallback)
}

func AddTransportRoutes(router *httprouter.Router, d Deps) {
	router.POST("/api/transport/requests",
		middleware.RequireRole(models.RoleBuyer, d.Transport.RequestTransport))
	router.GET("/api/transport/jobs",
		middleware.RequireRole(models.RoleTransporter, d.Transport.ListAvailableJobs))
	router.GET("/api/transport/myjobs",
		middleware.RequireRole(models.RoleTransporter, d.Transport.MyJobs))
	router.POST("/api/transport/jobs/:jobid/accept",
		middleware.RequireRole(models.RoleTransporter, d.Transport.AcceptJob))
	router.POST("/api/transport/jobs/:jobid/deliver",
		middleware.RequireRole(models.RoleTransporter, d.Transport.MarkDelivered))
	router.POST("/api/transport/jobs/:jobid/cancel",
		middleware.RequireRole(models.RoleBuyer, d.Transport.CancelJob))
	router.POST("/api/transport/jobs/:jobid/rate",
		middleware.RequireRole(models.RoleBuyer, d.Transport.RateTransporter))

	if d.Feed != nil {
		router.GET("/ws/jobs", jobfeed.WebSocketHandler(d.Feed, wsUserID))
	}
}

// wsUserID authenticates a websocket client from the Authorization
// header or, for browser clients that cannot set headers on upgrade,
// a token query parameter.
func wsUserID(r *http.Request) string {
	tok := r.Header.Get("Authorization")
	if tok == "" {
		if q := r.URL.Query().Get("token"); q != "" {
			tok = "Bearer " + q
		}
	}
	claims, err := middleware.ValidateJWT(tok)
	if err != nil {
		return ""
	}
	return claims.UserID
}
