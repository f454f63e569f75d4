// internal/domain/catalog/service.go
package catalog

import (
	"errors"

	"github.com/your-org/fashion-store-backend/internal/config"
	"github.com/your-org/fashion-store-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service provides read access to the catalog.
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new catalog service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// ListProductsRequest carries catalog listing filters.
type ListProductsRequest struct {
	Page       int    `form:"page"`
	Limit      int    `form:"limit"`
	Search     string `form:"search"`
	OnlyActive bool   `form:"-"`
	Featured   *bool  `form:"featured"`
}

// ListProductsResponse is a paginated product listing.
type ListProductsResponse struct {
	Products   []Product `json:"products"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"total_pages"`
}

// ListProducts returns a page of products with variants preloaded.
func (s *Service) ListProducts(req *ListProductsRequest) (*ListProductsResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.Model(&Product{})
	if req.OnlyActive {
		query = query.Where("is_active = ?", true)
	}
	if req.Featured != nil {
		query = query.Where("is_featured = ?", *req.Featured)
	}
	if req.Search != "" {
		like := "%" + req.Search + "%"
		query = query.Where("name LIKE ? OR sku LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var products []Product
	offset := (req.Page - 1) * req.Limit
	err := query.
		Preload("Variants").
		Preload("Variants.Color").
		Preload("Variants.Size").
		Order("created_at DESC").
		Offset(offset).
		Limit(req.Limit).
		Find(&products).Error
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &ListProductsResponse{
		Products:   products,
		Total:      total,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: totalPages,
	}, nil
}

// GetProductBySlug loads one product with its variants.
func (s *Service) GetProductBySlug(slug string) (*Product, error) {
	var product Product
	err := s.db.
		Preload("Variants").
		Preload("Variants.Color").
		Preload("Variants.Size").
		Where("slug = ?", slug).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("product", slug)
		}
		return nil, err
	}
	return &product, nil
}

// GetVariant loads a variant with its product and axes.
func (s *Service) GetVariant(variantID uint) (*ProductVariant, error) {
	var variant ProductVariant
	err := s.db.
		Preload("Product").
		Preload("Color").
		Preload("Size").
		First(&variant, variantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("product variant", variantID)
		}
		return nil, err
	}
	return &variant, nil
}

// GetVariantBySKU loads a variant by its unique SKU.
func (s *Service) GetVariantBySKU(sku string) (*ProductVariant, error) {
	var variant ProductVariant
	err := s.db.
		Preload("Product").
		Preload("Color").
		Preload("Size").
		Where("sku = ?", sku).
		First(&variant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("product variant", sku)
		}
		return nil, err
	}
	return &variant, nil
}
