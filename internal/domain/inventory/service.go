// internal/domain/inventory/service.go
package inventory

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/fashion-store-backend/internal/config"
	"github.com/your-org/fashion-store-backend/internal/domain/catalog"
	"github.com/your-org/fashion-store-backend/internal/pkg/apperrors"
	"github.com/your-org/fashion-store-backend/internal/pkg/dbutil"
	"gorm.io/gorm"
)

// Service is the stock ledger: the only writer of variant stock quantities.
type Service struct {
	db        *gorm.DB
	config    *config.Config
	logger    *logrus.Logger
	notifiers []Notifier
}

// NewService creates a new inventory service
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		config: cfg,
		logger: logger,
	}
}

// Subscribe registers a notifier for stock signals.
func (s *Service) Subscribe(n Notifier) {
	s.notifiers = append(s.notifiers, n)
}

// AdjustRequest represents one stock mutation
type AdjustRequest struct {
	VariantID     uint          `json:"variant_id" binding:"required"`
	Delta         int           `json:"delta" binding:"required"`
	ReferenceType ReferenceType `json:"reference_type" binding:"required"`
	OrderID       *uint         `json:"order_id,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	ActorID       *uint         `json:"-"`

	// FailOnShortfall makes a decrement below zero an availability error
	// instead of clamping. The settlement path sets it; manual corrections
	// do not.
	FailOnShortfall bool `json:"-"`
}

// ApplyDelta mutates stock inside the caller's transaction: locks the variant
// row, applies the delta clamped at zero, recomputes the availability flag and
// appends the movement. Returned signals must be dispatched by the caller
// after its transaction commits.
func (s *Service) ApplyDelta(tx *gorm.DB, req *AdjustRequest) (*StockMovement, []Signal, error) {
	if req.Delta == 0 {
		return nil, nil, apperrors.Validation("stock delta must be non-zero")
	}

	var variant catalog.ProductVariant
	if err := dbutil.LockForUpdate(tx).First(&variant, req.VariantID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, apperrors.NotFound("product variant", req.VariantID)
		}
		return nil, nil, fmt.Errorf("failed to lock variant: %w", err)
	}

	previous := variant.StockQuantity
	next := previous + req.Delta
	if next < 0 {
		if req.FailOnShortfall {
			return nil, nil, apperrors.Availability("insufficient stock", apperrors.LineIssue{
				VariantID: variant.ID,
				SKU:       variant.SKU,
				Requested: -req.Delta,
				Available: previous,
				Reason:    "insufficient stock",
			})
		}
		// manual counts may race a physical correction; never go negative
		next = 0
	}
	applied := next - previous

	variant.StockQuantity = next
	variant.IsAvailable = next > 0

	if err := tx.Model(&catalog.ProductVariant{}).
		Where("id = ?", variant.ID).
		Updates(map[string]interface{}{
			"stock_quantity": variant.StockQuantity,
			"is_available":   variant.IsAvailable,
		}).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to update stock: %w", err)
	}

	movement := &StockMovement{
		VariantID:        variant.ID,
		MovementType:     movementTypeFor(applied, req.ReferenceType),
		Quantity:         applied,
		PreviousQuantity: previous,
		NewQuantity:      next,
		ReferenceType:    req.ReferenceType,
		OrderID:          req.OrderID,
		Notes:            req.Notes,
		CreatedBy:        req.ActorID,
	}

	if err := tx.Create(movement).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to record movement: %w", err)
	}

	return movement, s.signalsFor(&variant, previous, next), nil
}

// Adjust runs ApplyDelta in its own transaction and dispatches signals.
func (s *Service) Adjust(req *AdjustRequest) (*StockMovement, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	movement, signals, err := s.ApplyDelta(tx, req)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit stock adjustment: %w", err)
	}

	s.Dispatch(signals)
	return movement, nil
}

// AddStock records incoming stock for a variant.
func (s *Service) AddStock(variantID uint, quantity int, actorID *uint, notes string) (*StockMovement, error) {
	if quantity < 1 {
		return nil, apperrors.Validation("restock quantity must be positive")
	}
	return s.Adjust(&AdjustRequest{
		VariantID:     variantID,
		Delta:         quantity,
		ReferenceType: ReferenceRestock,
		Notes:         notes,
		ActorID:       actorID,
	})
}

// SetStock corrects on-hand to an absolute count, e.g. after a physical count.
func (s *Service) SetStock(variantID uint, target int, actorID *uint, notes string) (*StockMovement, error) {
	if target < 0 {
		return nil, apperrors.Validation("stock count cannot be negative")
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	// the delta is only known once the row is locked
	var variant catalog.ProductVariant
	if err := dbutil.LockForUpdate(tx).First(&variant, variantID).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("product variant", variantID)
		}
		return nil, fmt.Errorf("failed to lock variant: %w", err)
	}

	if variant.StockQuantity == target {
		tx.Rollback()
		return nil, apperrors.Validation("stock already at %d", target)
	}

	movement, signals, err := s.ApplyDelta(tx, &AdjustRequest{
		VariantID:     variantID,
		Delta:         target - variant.StockQuantity,
		ReferenceType: ReferenceManual,
		Notes:         notes,
		ActorID:       actorID,
	})
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit stock correction: %w", err)
	}

	s.Dispatch(signals)
	return movement, nil
}

// Dispatch persists alerts and fans signals out to subscribers.
// Failures are logged, never propagated.
func (s *Service) Dispatch(signals []Signal) {
	for _, signal := range signals {
		s.logger.WithFields(logrus.Fields{
			"signal":     signal.Type,
			"variant_id": signal.VariantID,
			"quantity":   signal.Quantity,
		}).Info("Stock signal")

		s.persistAlert(signal)

		for _, n := range s.notifiers {
			n.Notify(signal)
		}
	}
}

func (s *Service) persistAlert(signal Signal) {
	switch signal.Type {
	case SignalOutOfStock, SignalLowStock:
		var existing StockAlert
		hasOpen := s.db.Where("variant_id = ? AND is_resolved = ?", signal.VariantID, false).
			First(&existing).Error == nil
		if hasOpen {
			return
		}
		alert := StockAlert{
			VariantID: signal.VariantID,
			AlertType: AlertType(signal.Type),
			Message:   fmt.Sprintf("Variant %d stock at %d (threshold %d)", signal.VariantID, signal.Quantity, signal.Threshold),
		}
		if err := s.db.Create(&alert).Error; err != nil {
			s.logger.WithError(err).Warn("Failed to persist stock alert")
		}
	case SignalRestocked:
		now := time.Now()
		if err := s.db.Model(&StockAlert{}).
			Where("variant_id = ? AND is_resolved = ?", signal.VariantID, false).
			Updates(map[string]interface{}{"is_resolved": true, "resolved_at": now}).Error; err != nil {
			s.logger.WithError(err).Warn("Failed to resolve stock alerts")
		}
	}
}

// RESERVATION CALCULATOR
//
// There is no reservation table. A pending, unpaid order holds its quantities
// simply by existing; availability is always derived live.

// PendingReserved sums line quantities of pending unpaid orders for a variant.
func (s *Service) PendingReserved(db *gorm.DB, variantID uint) (int, error) {
	var reserved int64
	err := db.Table("order_items").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.product_variant_id = ?", variantID).
		Where("orders.status = ?", "pending").
		Where("orders.payment_status <> ?", "paid").
		Select("COALESCE(SUM(order_items.quantity), 0)").
		Scan(&reserved).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum open reservations: %w", err)
	}
	return int(reserved), nil
}

// AvailableQuantity returns on-hand minus open reservations, floored at zero.
func (s *Service) AvailableQuantity(variantID uint) (int, error) {
	var variant catalog.ProductVariant
	if err := s.db.First(&variant, variantID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, apperrors.NotFound("product variant", variantID)
		}
		return 0, err
	}
	return s.availableFor(&variant)
}

func (s *Service) availableFor(variant *catalog.ProductVariant) (int, error) {
	reserved, err := s.PendingReserved(s.db, variant.ID)
	if err != nil {
		return 0, err
	}
	available := variant.StockQuantity - reserved
	if available < 0 {
		available = 0
	}
	return available, nil
}

// CheckAvailability verifies a variant can satisfy the requested quantity
// right now. This is advisory; the settlement path re-checks under the same
// row lock it decrements with.
func (s *Service) CheckAvailability(variantID uint, quantity int) (*AvailabilityResult, error) {
	var variant catalog.ProductVariant
	err := s.db.Preload("Product").First(&variant, variantID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("product variant", variantID)
		}
		return nil, err
	}

	result := &AvailabilityResult{
		VariantID: variant.ID,
		SKU:       variant.SKU,
		Requested: quantity,
	}

	if quantity < 1 {
		result.Reason = "quantity must be positive"
		return result, nil
	}
	if !variant.IsAvailable {
		result.Reason = "variant not available"
		return result, nil
	}
	if variant.Product != nil && !variant.Product.IsActive {
		result.Reason = "product not active"
		return result, nil
	}

	available, err := s.availableFor(&variant)
	if err != nil {
		return nil, err
	}
	result.Available = available
	if available < quantity {
		result.Reason = "insufficient stock"
		return result, nil
	}

	result.OK = true
	return result, nil
}

// HISTORY & LISTINGS

// MovementHistoryResponse is a paginated movement listing.
type MovementHistoryResponse struct {
	Movements []StockMovement `json:"movements"`
	Total     int64           `json:"total"`
	Page      int             `json:"page"`
	Limit     int             `json:"limit"`
}

// GetMovements returns the movement history for a variant, newest first.
func (s *Service) GetMovements(variantID uint, page, limit int) (*MovementHistoryResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := s.db.Model(&StockMovement{}).Where("variant_id = ?", variantID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var movements []StockMovement
	if err := query.Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&movements).Error; err != nil {
		return nil, err
	}

	return &MovementHistoryResponse{
		Movements: movements,
		Total:     total,
		Page:      page,
		Limit:     limit,
	}, nil
}

// LowStockVariants lists variants at or below their threshold but not empty.
func (s *Service) LowStockVariants() ([]catalog.ProductVariant, error) {
	var variants []catalog.ProductVariant
	err := s.db.Preload("Product").Preload("Color").Preload("Size").
		Where("stock_quantity > 0 AND stock_quantity <= low_stock_threshold").
		Order("stock_quantity ASC").
		Find(&variants).Error
	return variants, err
}

// OutOfStockVariants lists variants with nothing on hand.
func (s *Service) OutOfStockVariants() ([]catalog.ProductVariant, error) {
	var variants []catalog.ProductVariant
	err := s.db.Preload("Product").Preload("Color").Preload("Size").
		Where("stock_quantity = 0").
		Find(&variants).Error
	return variants, err
}

// ReconcileVariant returns on-hand and the ledger sum for a variant.
// The two must agree; a mismatch means stock was written outside the ledger.
func (s *Service) ReconcileVariant(variantID uint) (onHand int, ledgerSum int, err error) {
	var variant catalog.ProductVariant
	if err = s.db.First(&variant, variantID).Error; err != nil {
		return 0, 0, err
	}

	var sum int64
	err = s.db.Model(&StockMovement{}).
		Where("variant_id = ?", variantID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, 0, err
	}

	return variant.StockQuantity, int(sum), nil
}

func movementTypeFor(applied int, refType ReferenceType) MovementType {
	if refType == ReferenceManual {
		return MovementTypeAdjustment
	}
	if applied < 0 {
		return MovementTypeOut
	}
	return MovementTypeIn
}

func (s *Service) signalsFor(variant *catalog.ProductVariant, previous, next int) []Signal {
	base := Signal{
		VariantID: variant.ID,
		ProductID: variant.ProductID,
		Quantity:  next,
		Threshold: variant.LowStockThreshold,
	}

	var signals []Signal
	switch {
	case previous > 0 && next == 0:
		base.Type = SignalOutOfStock
		signals = append(signals, base)
	case previous == 0 && next > 0:
		base.Type = SignalRestocked
		signals = append(signals, base)
	}
	if next > 0 && next <= variant.LowStockThreshold && previous > variant.LowStockThreshold {
		low := base
		low.Type = SignalLowStock
		signals = append(signals, low)
	}
	return signals
}
