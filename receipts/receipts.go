// Package receipts renders a buyer's order receipt as a PDF with a
// signed QR payload for offline verification at pickup.
package receipts

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"mkulima/store"
	"mkulima/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

var receiptSecret = []byte(envOr("RECEIPT_SECRET", "receipt-signing-key"))

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type Handlers struct {
	Orders store.Orders
	Users  store.Users
}

func NewHandlers(orders store.Orders, users store.Users) *Handlers {
	return &Handlers{Orders: orders, Users: users}
}

// SignPayload returns orderID|buyerID|timestamp|signature.
func SignPayload(orderID, buyerID string) string {
	data := fmt.Sprintf("%s|%s|%d", orderID, buyerID, time.Now().Unix())
	h := hmac.New(sha256.New, receiptSecret)
	h.Write([]byte(data))
	sig := base64.StdEncoding.EncodeToString(h.Sum(nil))
	return fmt.Sprintf("%s|%s", data, sig)
}

// PrintReceipt streams the PDF for one of the caller's orders.
func (h *Handlers) PrintReceipt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	buyerID := utils.GetUserIDFromRequest(r)
	if buyerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	order, err := h.Orders.Get(ctx, ps.ByName("orderid"))
	if err != nil {
		utils.RespondWithError(w, store.HTTPStatus(err), "Order not found")
		return
	}
	if order.BuyerID != buyerID {
		utils.RespondWithError(w, http.StatusForbidden, "Access denied")
		return
	}

	buyerName := buyerID
	if user, err := h.Users.Get(ctx, buyerID); err == nil {
		buyerName = user.Username
	}

	qrPNG, err := qrcode.Encode(SignPayload(order.OrderID, buyerID), qrcode.Medium, 256)
	if err != nil {
		log.Println("receipt QR error:", err)
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Order Receipt")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 10, fmt.Sprintf("Order ID: %s", order.OrderID))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Buyer: %s", buyerName))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Product: %s x%d", order.ProductName, order.Quantity))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Total: %.2f", order.TotalPrice))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Status: %s", order.Status))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Ordered: %s", order.OrderDate.Format("2006-01-02 15:04")))
	pdf.Ln(12)

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 40, 40, 40, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		log.Println("receipt PDF error:", err)
		http.Error(w, "Failed to generate PDF", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=receipt-"+order.OrderID+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
