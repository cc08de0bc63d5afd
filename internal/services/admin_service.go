package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"storefront/internal/apperr"
	"storefront/internal/events"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/pkg/invoice"
)

const confirmAllFilename = "all_orders_bill.pdf"

// Stats is the admin dashboard summary.
type Stats struct {
	TotalUsers       int64           `json:"total_users"`
	ActiveProducts   int64           `json:"active_products"`
	TotalOrders      int64           `json:"total_orders"`
	ActiveCategories int64           `json:"active_categories"`
	TotalReviews     int64           `json:"total_reviews"`
	PendingReviews   int64           `json:"pending_reviews"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
}

// InvoiceFile is a rendered PDF.
type InvoiceFile struct {
	Filename     string
	PDF          []byte
	OrderNumbers []string
}

// AdminService implements the store back office.
type AdminService struct {
	store     repositories.Transactor
	repos     repositories.Repositories
	publisher events.Publisher
	storeName string
	log       logrus.FieldLogger
	now       Clock
}

func NewAdminService(store repositories.Transactor, repos repositories.Repositories, publisher events.Publisher, storeName string, log logrus.FieldLogger) *AdminService {
	return &AdminService{
		store:     store,
		repos:     repos,
		publisher: publisher,
		storeName: storeName,
		log:       log,
		now:       timeNow,
	}
}

func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	var (
		st  Stats
		err error
	)
	if st.TotalUsers, err = s.repos.Users.Count(ctx); err != nil {
		return nil, err
	}
	if st.ActiveProducts, err = s.repos.Products.CountActive(ctx); err != nil {
		return nil, err
	}
	if st.TotalOrders, err = s.repos.Orders.Count(ctx); err != nil {
		return nil, err
	}
	if st.ActiveCategories, err = s.repos.Categories.CountActive(ctx); err != nil {
		return nil, err
	}
	if st.TotalReviews, err = s.repos.Reviews.Count(ctx); err != nil {
		return nil, err
	}
	if st.PendingReviews, err = s.repos.Reviews.CountPending(ctx); err != nil {
		return nil, err
	}
	if st.TotalRevenue, err = s.repos.Orders.Revenue(ctx); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *AdminService) ListOrders(ctx context.Context, filter repositories.OrderFilter) ([]models.Order, int64, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, 0, apperr.Validation(fmt.Sprintf("invalid order status %q", *filter.Status), nil)
	}
	return s.repos.Orders.List(ctx, filter)
}

func invoiceDocument(o models.Order) invoice.Document {
	doc := invoice.Document{
		OrderNumber: o.OrderNumber,
		Date:        o.CreatedAt,
		Status:      string(o.Status),
		Total:       o.TotalAmount,
	}
	if o.User != nil {
		doc.CustomerName = o.User.DisplayName()
	}
	for _, item := range o.Items {
		doc.Lines = append(doc.Lines, invoice.Line{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TaxAmount:   item.TaxAmount,
			Total:       item.TotalPrice,
		})
	}
	return doc
}

// ConfirmAllPending confirms every Pending order and returns their bills as one PDF.
// If rendering fails no order is confirmed.
func (s *AdminService) ConfirmAllPending(ctx context.Context) (*InvoiceFile, error) {
	var (
		confirmed []models.Order
		file      *InvoiceFile
	)
	err := s.store.WithinTransaction(ctx, func(repos repositories.Repositories) error {
		pending, err := repos.Orders.ListByStatus(ctx, models.OrderStatusPending)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return apperr.Validation("no pending orders", nil)
		}

		docs := make([]invoice.Document, 0, len(pending))
		numbers := make([]string, 0, len(pending))
		for i := range pending {
			if _, err := transition(ctx, repos, &pending[i], models.OrderStatusConfirmed); err != nil {
				return err
			}
			docs = append(docs, invoiceDocument(pending[i]))
			numbers = append(numbers, pending[i].OrderNumber)
		}

		var buf bytes.Buffer
		if err := invoice.Render(&buf, s.storeName, docs); err != nil {
			return err
		}
		confirmed = pending
		file = &InvoiceFile{Filename: confirmAllFilename, PDF: buf.Bytes(), OrderNumbers: numbers}
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "failed to confirm pending orders")
	}

	s.log.WithField("orders", len(confirmed)).Info("confirmed all pending orders")
	for i := range confirmed {
		if s.publisher == nil {
			break
		}
		e := events.OrderStatusChanged(&confirmed[i], models.OrderStatusPending, s.now())
		if err := s.publisher.Publish(ctx, e); err != nil {
			s.log.WithError(err).WithField("order_number", e.OrderNumber).Warn("failed to publish order event")
		}
	}
	return file, nil
}

// Invoice renders the bill of a single order.
func (s *AdminService) Invoice(ctx context.Context, orderID uint) (*InvoiceFile, error) {
	order, err := s.repos.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := invoice.Render(&buf, s.storeName, []invoice.Document{invoiceDocument(*order)}); err != nil {
		return nil, fmt.Errorf("failed to render invoice: %w", err)
	}
	return &InvoiceFile{
		Filename:     fmt.Sprintf("invoice_%s.pdf", order.OrderNumber),
		PDF:          buf.Bytes(),
		OrderNumbers: []string{order.OrderNumber},
	}, nil
}
