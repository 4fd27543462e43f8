package repository

import (
	"errors"

	"campus_market_service/internal/chat/domain"

	"gorm.io/gorm"
)

// CatalogRepository read-only access to the marketplace products table.
// Product CRUD itself lives outside the chat core.
type CatalogRepository interface {
	AutoMigrate() error
	FindByID(id string) (*domain.Product, error)
	MarkSold(id string) error
}

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository create a CatalogRepository
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.Product{})
}

func (r *catalogRepository) FindByID(id string) (*domain.Product, error) {
	var p domain.Product
	if err := r.db.First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *catalogRepository) MarkSold(id string) error {
	res := r.db.Model(&domain.Product{}).Where("id = ?", id).Update("status", string(domain.ProductSold))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}
