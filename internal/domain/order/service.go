// internal/domain/order/service.go
package order

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/fashion-store-backend/internal/config"
	"github.com/your-org/fashion-store-backend/internal/domain/inventory"
	"github.com/your-org/fashion-store-backend/internal/pkg/apperrors"
	"github.com/your-org/fashion-store-backend/internal/pkg/dbutil"
	"gorm.io/gorm"
)

// maxNumberAttempts bounds the retry on order-number collisions.
const maxNumberAttempts = 3

// Service drives the order lifecycle. All stock mutations go through the
// inventory ledger inside the same transaction as the status change.
type Service struct {
	db        *gorm.DB
	config    *config.Config
	logger    *logrus.Logger
	inventory *inventory.Service
}

// NewService creates a new order service
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger, inv *inventory.Service) *Service {
	return &Service{
		db:        db,
		config:    cfg,
		logger:    logger,
		inventory: inv,
	}
}

// ORDER NUMBERS

// nextOrderNumber proposes prefix + YYMMDD + zero-padded daily sequence.
// Uniqueness is enforced by the index on order_number, not by this scan.
func (s *Service) nextOrderNumber(tx *gorm.DB) (string, error) {
	prefix := s.config.Checkout.OrderNumberPrefix
	datePart := time.Now().Format("060102")

	var numbers []string
	err := tx.Unscoped().Model(&Order{}).
		Where("order_number LIKE ?", prefix+datePart+"-%").
		Order("order_number DESC").
		Limit(1).
		Pluck("order_number", &numbers).Error
	if err != nil {
		return "", fmt.Errorf("failed to scan order numbers: %w", err)
	}

	sequence := 1
	if len(numbers) > 0 {
		if idx := strings.LastIndex(numbers[0], "-"); idx >= 0 {
			if n, err := strconv.Atoi(numbers[0][idx+1:]); err == nil {
				sequence = n + 1
			}
		}
	}

	return fmt.Sprintf("%s%s-%03d", prefix, datePart, sequence), nil
}

// Create inserts the order aggregate inside the caller's transaction,
// assigning a daily-sequence number. Two submissions can propose the same
// number; the unique index rejects the loser and we retry behind a savepoint.
func (s *Service) Create(tx *gorm.DB, order *Order) error {
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		savepoint := fmt.Sprintf("sp_order_number_%d", attempt)
		if err := tx.SavePoint(savepoint).Error; err != nil {
			return fmt.Errorf("failed to create savepoint: %w", err)
		}

		number, err := s.nextOrderNumber(tx)
		if err != nil {
			return err
		}
		order.OrderNumber = number

		if err := tx.Create(order).Error; err != nil {
			if dbutil.IsDuplicateKey(err) {
				if rbErr := tx.RollbackTo(savepoint).Error; rbErr != nil {
					return fmt.Errorf("failed to roll back to savepoint: %w", rbErr)
				}
				order.ID = 0
				continue
			}
			return fmt.Errorf("failed to create order: %w", err)
		}

		return s.recordStatusHistory(tx, order.ID, "", OrderStatusPending, "order placed", nil)
	}

	return apperrors.Conflict("could not allocate a unique order number after %d attempts", maxNumberAttempts)
}

// QUERIES

// GetOrder loads one order with all its relations.
func (s *Service) GetOrder(orderID uint) (*Order, error) {
	var order Order
	err := s.db.
		Preload("Items").
		Preload("Addresses").
		Preload("Transactions").
		Preload("StatusHistory").
		First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order", orderID)
		}
		return nil, err
	}
	return &order, nil
}

// GetOrderByNumber loads one order by its public number.
func (s *Service) GetOrderByNumber(number string) (*Order, error) {
	var order Order
	err := s.db.
		Preload("Items").
		Preload("Addresses").
		Where("order_number = ?", number).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order", number)
		}
		return nil, err
	}
	return &order, nil
}

// GetOrderForUser loads an order only if it belongs to the given user.
func (s *Service) GetOrderForUser(orderID, userID uint) (*Order, error) {
	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID == nil || *order.UserID != userID {
		return nil, apperrors.NotFound("order", orderID)
	}
	return order, nil
}

// ListOrdersRequest carries listing filters.
type ListOrdersRequest struct {
	UserID        *uint
	Status        OrderStatus
	PaymentStatus PaymentStatus
	Page          int
	Limit         int
}

// ListOrdersResponse is a paginated order listing.
type ListOrdersResponse struct {
	Orders     []Order `json:"orders"`
	Total      int64   `json:"total"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"total_pages"`
}

// ListOrders returns a page of orders, newest first.
func (s *Service) ListOrders(req *ListOrdersRequest) (*ListOrdersResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.Model(&Order{})
	if req.UserID != nil {
		query = query.Where("user_id = ?", *req.UserID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.PaymentStatus != "" {
		query = query.Where("payment_status = ?", req.PaymentStatus)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var orders []Order
	err := query.Preload("Items").
		Order("created_at DESC").
		Offset((req.Page - 1) * req.Limit).
		Limit(req.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &ListOrdersResponse{
		Orders:     orders,
		Total:      total,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: totalPages,
	}, nil
}

// SETTLEMENT

// MarkPaid settles payment for an order: flips it to paid/processing and
// decrements stock for every line through the ledger, re-checking on-hand
// under the same row lock. Calling it again for an already-paid order is a
// no-op, so duplicate gateway callbacks cannot decrement twice.
func (s *Service) MarkPaid(orderID uint, provider, providerRef string, actorID *uint) error {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var order Order
	if err := dbutil.LockForUpdate(tx).First(&order, orderID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("order", orderID)
		}
		return err
	}

	if order.IsPaid() {
		tx.Rollback()
		s.logger.WithField("order_number", order.OrderNumber).Info("Duplicate payment confirmation ignored")
		return nil
	}
	if order.Status == OrderStatusCancelled {
		tx.Rollback()
		return apperrors.State("order %s is cancelled and cannot be paid", order.OrderNumber)
	}

	var items []OrderItem
	if err := tx.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
		tx.Rollback()
		return err
	}

	var signals []inventory.Signal
	for _, item := range items {
		_, itemSignals, err := s.inventory.ApplyDelta(tx, &inventory.AdjustRequest{
			VariantID:       item.ProductVariantID,
			Delta:           -item.Quantity,
			ReferenceType:   inventory.ReferenceOrder,
			OrderID:         &order.ID,
			Notes:           "order " + order.OrderNumber,
			ActorID:         actorID,
			FailOnShortfall: true,
		})
		if err != nil {
			tx.Rollback()
			return err
		}
		signals = append(signals, itemSignals...)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"payment_status": PaymentStatusPaid,
		"status":         OrderStatusProcessing,
		"paid_at":        now,
	}
	if err := tx.Model(&Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to update order: %w", err)
	}

	txn := PaymentTransaction{
		OrderID:     order.ID,
		Type:        TransactionTypePayment,
		Provider:    provider,
		ProviderRef: providerRef,
		Amount:      order.TotalAmount,
		Currency:    order.Currency,
		Status:      "succeeded",
	}
	if err := tx.Create(&txn).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record payment transaction: %w", err)
	}

	if err := s.recordStatusHistory(tx, order.ID, order.Status, OrderStatusProcessing, "payment received", actorID); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit payment settlement: %w", err)
	}

	s.inventory.Dispatch(signals)

	s.logger.WithFields(logrus.Fields{
		"order_number": order.OrderNumber,
		"provider":     provider,
		"amount":       order.TotalAmount,
	}).Info("Order paid")
	return nil
}

// MarkPaymentFailed records a failed settlement attempt. The order keeps its
// reservation until it is cancelled or swept.
func (s *Service) MarkPaymentFailed(orderID uint, provider, providerRef, reason string) error {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var order Order
	if err := dbutil.LockForUpdate(tx).First(&order, orderID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("order", orderID)
		}
		return err
	}

	if order.IsPaid() {
		tx.Rollback()
		return apperrors.State("order %s is already paid", order.OrderNumber)
	}

	if err := tx.Model(&Order{}).Where("id = ?", order.ID).
		Update("payment_status", PaymentStatusFailed).Error; err != nil {
		tx.Rollback()
		return err
	}

	txn := PaymentTransaction{
		OrderID:     order.ID,
		Type:        TransactionTypePayment,
		Provider:    provider,
		ProviderRef: providerRef,
		Amount:      order.TotalAmount,
		Currency:    order.Currency,
		Status:      "failed",
	}
	if err := tx.Create(&txn).Error; err != nil {
		tx.Rollback()
		return err
	}

	if err := s.recordStatusHistory(tx, order.ID, order.Status, order.Status, "payment failed: "+reason, nil); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// FULFILMENT

// MarkShipped completes fulfilment: the order moves to completed and carries
// its tracking number.
func (s *Service) MarkShipped(orderID uint, trackingNumber string, actorID *uint) error {
	return s.transition(orderID, actorID, func(order *Order) (map[string]interface{}, string, error) {
		if order.Status != OrderStatusProcessing || !order.IsPaid() {
			return nil, "", apperrors.State("order %s cannot be shipped from status %s", order.OrderNumber, order.Status)
		}
		now := time.Now()
		return map[string]interface{}{
			"status":          OrderStatusCompleted,
			"tracking_number": trackingNumber,
			"shipped_at":      now,
		}, "shipped", nil
	})
}

// MarkDelivered records carrier delivery confirmation.
func (s *Service) MarkDelivered(orderID uint, actorID *uint) error {
	return s.transition(orderID, actorID, func(order *Order) (map[string]interface{}, string, error) {
		if order.Status != OrderStatusCompleted {
			return nil, "", apperrors.State("order %s cannot be delivered from status %s", order.OrderNumber, order.Status)
		}
		now := time.Now()
		return map[string]interface{}{
			"status":       OrderStatusDelivered,
			"delivered_at": now,
		}, "delivered", nil
	})
}

// transition applies a guarded status update in its own transaction.
func (s *Service) transition(orderID uint, actorID *uint, decide func(*Order) (map[string]interface{}, string, error)) error {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var order Order
	if err := dbutil.LockForUpdate(tx).First(&order, orderID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("order", orderID)
		}
		return err
	}

	updates, comment, err := decide(&order)
	if err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Model(&Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
		tx.Rollback()
		return err
	}

	toStatus, _ := updates["status"].(OrderStatus)
	if err := s.recordStatusHistory(tx, order.ID, order.Status, toStatus, comment, actorID); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// CANCELLATION

// Cancel cancels an order that is still pending or processing. Stock is
// restored only when payment had settled; a pending unpaid order never moved
// stock, so releasing its reservation is just the status change.
func (s *Service) Cancel(orderID uint, reason string, actorID *uint) error {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var order Order
	if err := dbutil.LockForUpdate(tx).First(&order, orderID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("order", orderID)
		}
		return err
	}

	if !order.CanBeCancelled() {
		tx.Rollback()
		return apperrors.State("order %s cannot be cancelled from status %s", order.OrderNumber, order.Status)
	}

	var signals []inventory.Signal
	if order.IsPaid() {
		var items []OrderItem
		if err := tx.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
			tx.Rollback()
			return err
		}
		for _, item := range items {
			_, itemSignals, err := s.inventory.ApplyDelta(tx, &inventory.AdjustRequest{
				VariantID:     item.ProductVariantID,
				Delta:         item.Quantity,
				ReferenceType: inventory.ReferenceOrderCancelled,
				OrderID:       &order.ID,
				Notes:         "cancelled order " + order.OrderNumber,
				ActorID:       actorID,
			})
			if err != nil {
				tx.Rollback()
				return err
			}
			signals = append(signals, itemSignals...)
		}
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":           OrderStatusCancelled,
		"cancelled_at":     now,
		"cancelled_reason": reason,
	}
	if err := tx.Model(&Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
		tx.Rollback()
		return err
	}

	if err := s.recordStatusHistory(tx, order.ID, order.Status, OrderStatusCancelled, reason, actorID); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit cancellation: %w", err)
	}

	s.inventory.Dispatch(signals)

	s.logger.WithFields(logrus.Fields{
		"order_number": order.OrderNumber,
		"reason":       reason,
		"was_paid":     order.IsPaid(),
	}).Info("Order cancelled")
	return nil
}

// REFUNDS

// Refund records a (partial) refund against a paid order. This is financial
// bookkeeping only; returned goods re-enter stock via a manual restock.
func (s *Service) Refund(orderID uint, amount int64, provider, providerRef string) error {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var order Order
	if err := dbutil.LockForUpdate(tx).First(&order, orderID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("order", orderID)
		}
		return err
	}

	if order.PaymentStatus != PaymentStatusPaid && order.PaymentStatus != PaymentStatusPartiallyRefunded {
		tx.Rollback()
		return apperrors.State("order %s is not refundable from payment status %s", order.OrderNumber, order.PaymentStatus)
	}
	if amount < 1 {
		tx.Rollback()
		return apperrors.Validation("refund amount must be positive")
	}

	var refunded int64
	if err := tx.Model(&PaymentTransaction{}).
		Where("order_id = ? AND type = ? AND status = ?", order.ID, TransactionTypeRefund, "succeeded").
		Select("COALESCE(SUM(amount), 0)").
		Scan(&refunded).Error; err != nil {
		tx.Rollback()
		return err
	}
	if refunded+amount > order.TotalAmount {
		tx.Rollback()
		return apperrors.Validation("refund exceeds order total: %d already refunded of %d", refunded, order.TotalAmount)
	}

	txn := PaymentTransaction{
		OrderID:     order.ID,
		Type:        TransactionTypeRefund,
		Provider:    provider,
		ProviderRef: providerRef,
		Amount:      amount,
		Currency:    order.Currency,
		Status:      "succeeded",
	}
	if err := tx.Create(&txn).Error; err != nil {
		tx.Rollback()
		return err
	}

	newStatus := PaymentStatusPartiallyRefunded
	if refunded+amount == order.TotalAmount {
		newStatus = PaymentStatusRefunded
	}
	if err := tx.Model(&Order{}).Where("id = ?", order.ID).
		Update("payment_status", newStatus).Error; err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// MAINTENANCE

// SweepExpiredOrders cancels pending unpaid orders older than the configured
// window, releasing the stock they were holding. Runs from a background loop.
func (s *Service) SweepExpiredOrders() (int, error) {
	cutoff := time.Now().Add(-s.config.Checkout.PendingOrderTTL)

	var ids []uint
	err := s.db.Model(&Order{}).
		Where("status = ? AND payment_status <> ? AND created_at < ?",
			OrderStatusPending, PaymentStatusPaid, cutoff).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("failed to find expired orders: %w", err)
	}

	cancelled := 0
	for _, id := range ids {
		if err := s.Cancel(id, "payment timeout", nil); err != nil {
			s.logger.WithError(err).WithField("order_id", id).Warn("Failed to sweep expired order")
			continue
		}
		cancelled++
	}

	if cancelled > 0 {
		s.logger.WithField("count", cancelled).Info("Swept expired orders")
	}
	return cancelled, nil
}

// AnonymizeUserOrders supports account erasure: orders are detached from the
// user and their personal data is redacted, while financial rows stay intact.
func (s *Service) AnonymizeUserOrders(userID uint) error {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var ids []uint
	if err := tx.Model(&Order{}).Where("user_id = ?", userID).Pluck("id", &ids).Error; err != nil {
		tx.Rollback()
		return err
	}
	if len(ids) == 0 {
		tx.Rollback()
		return nil
	}

	if err := tx.Model(&Order{}).Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"user_id":     nil,
			"guest_email": "redacted@anonymized.invalid",
			"notes":       "",
		}).Error; err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Model(&OrderAddress{}).Where("order_id IN ?", ids).
		Updates(map[string]interface{}{
			"first_name":    "Redacted",
			"last_name":     "Redacted",
			"company":       "",
			"address_line1": "Redacted",
			"address_line2": "",
			"phone":         "",
		}).Error; err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit anonymization: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"orders":  len(ids),
	}).Info("Anonymized user orders")
	return nil
}

func (s *Service) recordStatusHistory(tx *gorm.DB, orderID uint, from, to OrderStatus, comment string, actorID *uint) error {
	history := OrderStatusHistory{
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
		Comment:    comment,
		CreatedBy:  actorID,
	}
	if err := tx.Create(&history).Error; err != nil {
		return fmt.Errorf("failed to record status history: %w", err)
	}
	return nil
}
