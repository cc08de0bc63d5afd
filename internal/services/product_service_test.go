package services_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
)

// MockProductRepository is a mock implementation of repositories.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) List(ctx context.Context, filter repositories.ProductFilter) ([]models.Product, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *MockProductRepository) Update(ctx context.Context, product *models.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockProductRepository) GetForUpdate(ctx context.Context, id uint) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) DecrementStock(ctx context.Context, id uint, quantity int) (bool, error) {
	args := m.Called(ctx, id, quantity)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) IncrementStock(ctx context.Context, id uint, quantity int) error {
	return m.Called(ctx, id, quantity).Error(0)
}

func (m *MockProductRepository) SetStock(ctx context.Context, id uint, stock int) error {
	return m.Called(ctx, id, stock).Error(0)
}

func (m *MockProductRepository) CountActive(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

var (
	customer = services.Actor{UserID: 1, Role: models.RoleUser}
	admin    = services.Actor{UserID: 2, Role: models.RoleAdmin}
)

func TestProductService_ListProducts(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo)
	ctx := context.Background()

	expected := []models.Product{
		{ID: 1, Name: "Product A", Price: decimal.NewFromInt(10), Stock: 100, IsActive: true},
		{ID: 2, Name: "Product B", Price: decimal.NewFromInt(20), Stock: 50, IsActive: true},
	}

	// customers never see inactive products even if they ask
	mockRepo.On("List", ctx, repositories.ProductFilter{Search: "prod"}).Return(expected, int64(2), nil).Once()
	products, total, err := service.ListProducts(ctx, customer, repositories.ProductFilter{Search: "prod", IncludeInactive: true})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, expected, products)

	mockRepo.On("List", ctx, repositories.ProductFilter{IncludeInactive: true}).Return([]models.Product{}, int64(0), nil).Once()
	_, _, err = service.ListProducts(ctx, admin, repositories.ProductFilter{IncludeInactive: true})
	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestProductService_GetProduct(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo)
	ctx := context.Background()

	active := &models.Product{ID: 1, Name: "Product A", IsActive: true}
	hidden := &models.Product{ID: 2, Name: "Product B", IsActive: false}
	mockRepo.On("GetByID", ctx, uint(1)).Return(active, nil)
	mockRepo.On("GetByID", ctx, uint(2)).Return(hidden, nil)
	mockRepo.On("GetByID", ctx, uint(99)).Return(nil, apperr.NotFound("product with ID 99 not found"))

	p, err := service.GetProduct(ctx, customer, 1)
	assert.NoError(t, err)
	assert.Equal(t, active, p)

	_, err = service.GetProduct(ctx, customer, 2)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	p, err = service.GetProduct(ctx, admin, 2)
	assert.NoError(t, err)
	assert.Equal(t, hidden, p)

	_, err = service.GetProduct(ctx, customer, 99)
	assert.EqualError(t, err, "product with ID 99 not found")
}

func TestProductService_CreateProduct(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo)
	ctx := context.Background()

	in := services.ProductInput{
		Name:    " Toned Milk 1L ",
		SKU:     "DRY-MILK-1L",
		Price:   decimal.RequireFromString("54.004"),
		TaxRate: decimal.Zero,
		Stock:   10,
	}
	mockRepo.On("Create", ctx, mock.MatchedBy(func(p *models.Product) bool {
		return p.Name == "Toned Milk 1L" && p.IsActive && p.Price.Equal(decimal.RequireFromString("54"))
	})).Return(nil).Once()

	p, err := service.CreateProduct(ctx, in)
	require.NoError(t, err)
	assert.True(t, p.IsActive)
	mockRepo.AssertExpectations(t)

	in.Price = decimal.NewFromInt(-1)
	in.TaxRate = decimal.NewFromInt(101)
	_, err = service.CreateProduct(ctx, in)
	require.True(t, apperr.Is(err, apperr.KindValidation))
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, map[string]string{"price": "must not be negative", "tax_rate": "must be between 0 and 100"}, appErr.Detail)
}

func TestProductService_UpdateAndDelete(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo)
	ctx := context.Background()

	existing := &models.Product{ID: 1, Name: "Old", SKU: "OLD", IsActive: true}
	inactive := false
	mockRepo.On("GetByID", ctx, uint(1)).Return(existing, nil).Once()
	mockRepo.On("Update", ctx, existing).Return(nil).Once()

	p, err := service.UpdateProduct(ctx, 1, services.ProductInput{Name: "New", SKU: "NEW", Stock: 3, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "New", p.Name)
	assert.False(t, p.IsActive)

	mockRepo.On("Delete", ctx, uint(1)).Return(nil).Once()
	assert.NoError(t, service.DeleteProduct(ctx, 1))

	assert.True(t, apperr.Is(service.SetStock(ctx, 1, -5), apperr.KindValidation))
	mockRepo.On("SetStock", ctx, uint(1), 7).Return(nil).Once()
	assert.NoError(t, service.SetStock(ctx, 1, 7))
	mockRepo.AssertExpectations(t)
}
