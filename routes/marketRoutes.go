package routes

import (
	"mkulima/middleware"
	"mkulima/models"
	"mkulima/ratelim"

	"github.com/julienschmidt/httprouter"
)

func AddAuthRoutes(router *httprouter.Router, d Deps) {
	router.POST("/api/auth/register", ratelim.RateLimit(d.Auth.Register))
	router.POST("/api/auth/login", ratelim.RateLimit(d.Auth.Login))
	router.GET("/api/auth/profile", middleware.Authenticate(d.Auth.Profile))
}

func AddProductRoutes(router *httprouter.Router, d Deps) {
	router.GET("/api/products", ratelim.RateLimit(d.Catalog.ListProducts))
	router.GET("/api/products/:productid", ratelim.RateLimit(d.Catalog.GetProduct))

	router.POST("/api/farmer/products",
		middleware.RequireRole(models.RoleFarmer, d.Catalog.AddProduct))
	router.GET("/api/farmer/products",
		middleware.RequireRole(models.RoleFarmer, d.Catalog.MyProducts))
	router.PUT("/api/farmer/products/:productid",
		middleware.RequireRole(models.RoleFarmer, d.Catalog.EditProduct))
	router.DELETE("/api/farmer/products/:productid",
		middleware.RequireRole(models.RoleFarmer, d.Catalog.DeactivateProduct))
}

func AddCartRoutes(router *httprouter.Router, d Deps) {
	router.GET("/api/cart",
		middleware.RequireRole(models.RoleBuyer, d.Cart.GetCart))
	router.POST("/api/cart/items",
		middleware.RequireRole(models.RoleBuyer, d.Cart.AddToCart))
	router.DELETE("/api/cart/items/:itemid",
		middleware.RequireRole(models.RoleBuyer, d.Cart.RemoveItem))
	router.PATCH("/api/cart/items/:itemid/quantity",
		middleware.RequireRole(models.RoleBuyer, d.Cart.AdjustQuantity))
	router.PATCH("/api/cart/items/:itemid/saved",
		middleware.RequireRole(models.RoleBuyer, d.Cart.SetSaved))
}

func AddOrderRoutes(router *httprouter.Router, d Deps) {
	router.GET("/api/orders",
		middleware.RequireRole(models.RoleBuyer, d.Orders.ListMine))
	router.GET("/api/orders/:orderid",
		middleware.RequireRole(models.RoleBuyer, d.Orders.Get))
	router.GET("/api/orders/:orderid/receipt",
		middleware.RequireRole(models.RoleBuyer, d.Receipts.PrintReceipt))
}

func AddDashboardRoutes(router *httprouter.Router, d Deps) {
	router.GET("/api/dashboard/buyer",
		middleware.RequireRole(models.RoleBuyer, d.Dashboard.Buyer))
	router.GET("/api/dashboard/farmer",
		middleware.RequireRole(models.RoleFarmer, d.Dashboard.Farmer))
	router.GET("/api/dashboard/transporter",
		middleware.RequireRole(models.RoleTransporter, d.Dashboard.Transporter))
}
