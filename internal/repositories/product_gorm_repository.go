package repositories

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{db: db}
}

func productNotFound(id uint) *apperr.Error {
	return apperr.NotFound("product with ID %d not found", id)
}

// List returns one page of products ordered by name, together with the total match count.
func (r *GORMProductRepository) List(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{})
	if !filter.IncludeInactive {
		q = q.Where("is_active = ?", true)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", like, like)
	}
	if filter.CategoryID != nil {
		q = q.Where("category_id = ?", *filter.CategoryID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, wrapf(err, "failed to count products")
	}

	page := filter.Pagination.Normalize()
	var products []models.Product
	err := q.Order("name ASC").Offset(page.Offset()).Limit(page.Limit).Find(&products).Error
	if err != nil {
		return nil, 0, wrapf(err, "failed to list products")
	}
	return products, total, nil
}

func (r *GORMProductRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, translate(err, productNotFound(id), "failed to get product")
	}
	return &product, nil
}

func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	err := r.db.WithContext(ctx).Create(product).Error
	return translate(err, nil, "failed to create product")
}

func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) error {
	res := r.db.WithContext(ctx).Save(product)
	if res.Error != nil {
		return translate(res.Error, nil, "failed to update product")
	}
	if res.RowsAffected == 0 {
		return productNotFound(product.ID)
	}
	return nil
}

// Delete soft-deletes the product so existing order lines keep their reference.
func (r *GORMProductRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, id)
	if res.Error != nil {
		return wrapf(res.Error, "failed to delete product")
	}
	if res.RowsAffected == 0 {
		return productNotFound(id)
	}
	return nil
}

func (r *GORMProductRepository) GetForUpdate(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, id).Error
	if err != nil {
		return nil, translate(err, productNotFound(id), "failed to lock product")
	}
	return &product, nil
}

func (r *GORMProductRepository) DecrementStock(ctx context.Context, id uint, quantity int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return false, wrapf(res.Error, "failed to decrement stock for product %d", id)
	}
	return res.RowsAffected == 1, nil
}

// IncrementStock also restores stock of soft-deleted products.
func (r *GORMProductRepository) IncrementStock(ctx context.Context, id uint, quantity int) error {
	res := r.db.WithContext(ctx).Unscoped().Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock + ?", quantity))
	return wrapf(res.Error, "failed to restock product %d", id)
}

func (r *GORMProductRepository) SetStock(ctx context.Context, id uint, stock int) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", stock)
	if res.Error != nil {
		return wrapf(res.Error, "failed to set stock for product %d", id)
	}
	if res.RowsAffected == 0 {
		return productNotFound(id)
	}
	return nil
}

func (r *GORMProductRepository) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("is_active = ?", true).Count(&n).Error
	return n, wrapf(err, "failed to count products")
}
