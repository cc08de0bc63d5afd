package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"

	"storefront/internal/apperr"
	"storefront/internal/config"
	"storefront/internal/repositories"
)

// PaymentQR is a UPI payment request rendered as a PNG data URL.
type PaymentQR struct {
	QRCode      string          `json:"qr_code"`
	PaymentURL  string          `json:"payment_url"`
	OrderNumber string          `json:"order_number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// PaymentService builds payment requests for orders.
type PaymentService struct {
	orders repositories.OrderRepository
	cfg    config.PaymentConfig
}

func NewPaymentService(orders repositories.OrderRepository, cfg config.PaymentConfig) *PaymentService {
	return &PaymentService{orders: orders, cfg: cfg}
}

// UPIURL returns the upi://pay deep link for the amount and order number.
func (s *PaymentService) UPIURL(amount decimal.Decimal, orderNumber string) string {
	q := url.Values{}
	q.Set("pa", s.cfg.UPIID)
	q.Set("pn", s.cfg.PayeeName)
	q.Set("am", amount.StringFixed(2))
	q.Set("cu", "INR")
	q.Set("tn", "Order "+orderNumber)
	return "upi://pay?" + q.Encode()
}

// OrderQR returns the payment QR for an order the actor can access.
func (s *PaymentService) OrderQR(ctx context.Context, actor Actor, orderID uint) (*PaymentQR, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.canAccess(order.UserID) {
		return nil, apperr.Forbidden("you do not have access to this order")
	}

	link := s.UPIURL(order.TotalAmount, order.OrderNumber)
	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}

	return &PaymentQR{
		QRCode:      "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		PaymentURL:  link,
		OrderNumber: order.OrderNumber,
		TotalAmount: order.TotalAmount,
	}, nil
}
