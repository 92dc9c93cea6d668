package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mkulima/auth"
	"mkulima/cart"
	"mkulima/catalog"
	"mkulima/checkout"
	"mkulima/dashboard"
	"mkulima/db"
	"mkulima/jobfeed"
	"mkulima/memstore"
	"mkulima/mongostore"
	"mkulima/mpesa"
	"mkulima/orders"
	"mkulima/rdx"
	"mkulima/receipts"
	"mkulima/routes"
	"mkulima/store"
	"mkulima/transport"

	"github.com/joho/godotenv"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
)

// stores is what both storage backends expose.
type stores interface {
	Products() store.Products
	Carts() store.Carts
	Orders() store.Orders
	Checkouts() store.Checkouts
	Payments() store.Payments
	Transport() store.Transport
	Ratings() store.Ratings
	Users() store.Users
}

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request method, path, remote address, and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s from %s – %v", r.Method, r.RequestURI, r.RemoteAddr, time.Since(start))
	})
}

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

// openStores connects MongoDB when MONGO_URI is set, and otherwise falls
// back to the in-memory store so the service still runs locally.
func openStores(ctx context.Context) stores {
	if os.Getenv("MONGO_URI") == "" {
		log.Println("MONGO_URI not set; using in-memory storage")
		return memstore.New()
	}
	if err := db.Connect(ctx); err != nil {
		log.Fatalf("mongo connect: %v", err)
	}
	return mongostore.New()
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = ":8080"
	} else if port[0] != ':' {
		port = ":" + port
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	connectCtx, connectCancel := context.WithTimeout(rootCtx, 15*time.Second)
	st := openStores(connectCtx)
	connectCancel()

	rdx.Init()

	hub := jobfeed.NewHub()
	go hub.Run()

	gateway := mpesa.NewClient(mpesa.LoadConfig())

	checkoutSvc := checkout.NewService(st.Carts(), st.Products(), st.Orders(), st.Checkouts(), st.Payments(), gateway)
	go checkoutSvc.StartSweeper(rootCtx, time.Minute)

	deps := routes.Deps{
		Auth:      auth.NewHandlers(st.Users()),
		Catalog:   catalog.NewHandlers(st.Products()),
		Cart:      cart.NewHandlers(st.Carts(), st.Products()),
		Checkout:  checkoutSvc,
		Orders:    orders.NewHandlers(st.Orders()),
		Transport: transport.NewHandlers(st.Transport(), st.Orders(), st.Ratings(), st.Users(), hub),
		Dashboard: dashboard.NewHandlers(st.Orders(), st.Products(), st.Transport()),
		Receipts:  receipts.NewHandlers(st.Orders(), st.Users()),
		Feed:      hub,
	}

	router := httprouter.New()
	router.GET("/health", Index)
	routes.RoutesWrapper(router, deps)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // lock down in production
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key"},
		AllowCredentials: true,
	}).Handler(router)

	handler := loggingMiddleware(securityHeaders(corsHandler))

	server := &http.Server{
		Addr:              port,
		Handler:           handler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutdown signal received; shutting down gracefully...")
	rootCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Graceful shutdown failed: %v", err)
	}
	if db.Client != nil {
		if err := db.Client.Disconnect(ctx); err != nil {
			log.Println("mongo disconnect:", err)
		}
	}

	log.Println("Server stopped cleanly")
}
