package services

import (
	"context"

	"github.com/shopspring/decimal"

	"storefront/internal/apperr"
	"storefront/internal/pricing"
	"storefront/internal/repositories"
)

// CartLine is a cart entry priced with the same function used at checkout.
type CartLine struct {
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	LineTotal   decimal.Decimal `json:"line_total"`
	InStock     bool            `json:"in_stock"`
}

type Cart struct {
	Items     []CartLine      `json:"items"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}

type CartService struct {
	cart     repositories.CartRepository
	products repositories.ProductRepository
}

func NewCartService(cart repositories.CartRepository, products repositories.ProductRepository) *CartService {
	return &CartService{cart: cart, products: products}
}

// GetCart prices every line with the current catalog values. Lines whose product is gone or
// inactive are skipped.
func (s *CartService) GetCart(ctx context.Context, userID uint) (*Cart, error) {
	items, err := s.cart.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart := &Cart{Items: make([]CartLine, 0, len(items))}
	priced := make([]pricing.Line, 0, len(items))
	for _, item := range items {
		p := item.Product
		if p == nil || !p.IsActive {
			continue
		}
		line, err := pricing.Price(p.Price, p.TaxRate, item.Quantity)
		if err != nil {
			return nil, apperr.Validation(err.Error(), nil)
		}
		priced = append(priced, line)
		cart.Items = append(cart.Items, CartLine{
			ProductID:   p.ID,
			ProductName: p.Name,
			SKU:         p.SKU,
			Quantity:    item.Quantity,
			UnitPrice:   line.UnitPrice,
			TaxRate:     line.TaxRate,
			TaxAmount:   line.TaxAmount,
			LineTotal:   line.Total,
			InStock:     p.Stock >= item.Quantity,
		})
		cart.ItemCount += item.Quantity
	}
	cart.Total = pricing.Sum(priced)
	return cart, nil
}

func (s *CartService) activeProduct(ctx context.Context, productID uint) error {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if !p.IsActive {
		return apperr.NotFound("product with ID %d not found", productID)
	}
	return nil
}

// AddItem adds quantity of a product, merging with an existing line.
func (s *CartService) AddItem(ctx context.Context, userID, productID uint, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, apperr.Validation("quantity must be at least 1", nil)
	}
	if err := s.activeProduct(ctx, productID); err != nil {
		return nil, err
	}
	if err := s.cart.Add(ctx, userID, productID, quantity); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

func (s *CartService) UpdateItem(ctx context.Context, userID, productID uint, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, apperr.Validation("quantity must be at least 1", nil)
	}
	if err := s.cart.SetQuantity(ctx, userID, productID, quantity); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID uint) (*Cart, error) {
	if err := s.cart.Remove(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

func (s *CartService) Clear(ctx context.Context, userID uint) error {
	return s.cart.Clear(ctx, userID)
}

// Lines converts the cart into order lines for checkout. It keeps the same lines GetCart shows.
func (s *CartService) Lines(ctx context.Context, userID uint) ([]OrderLine, error) {
	items, err := s.cart.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	lines := make([]OrderLine, 0, len(items))
	for _, item := range items {
		if item.Product == nil || !item.Product.IsActive {
			continue
		}
		lines = append(lines, OrderLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines, nil
}
