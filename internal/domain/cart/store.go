// internal/domain/cart/store.go
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the single cart abstraction both guests and signed-in users go
// through. Quantity rules live in the Service; a Store only persists lines.
type Store interface {
	List(ctx context.Context, id Identity) ([]Line, error)
	Put(ctx context.Context, id Identity, variantID uint, quantity int) error
	Remove(ctx context.Context, id Identity, variantID uint) error
	Clear(ctx context.Context, id Identity) error
}

// NewStore builds the routing store over the two backends.
func NewStore(db *gorm.DB, redisClient *redis.Client, guestTTL time.Duration) Store {
	return &routingStore{
		users:  &userStore{db: db},
		guests: &guestStore{client: redisClient, ttl: guestTTL},
	}
}

// routingStore picks the backend from the identity.
type routingStore struct {
	users  *userStore
	guests *guestStore
}

func (s *routingStore) pick(id Identity) Store {
	if id.IsUser() {
		return s.users
	}
	return s.guests
}

func (s *routingStore) List(ctx context.Context, id Identity) ([]Line, error) {
	return s.pick(id).List(ctx, id)
}

func (s *routingStore) Put(ctx context.Context, id Identity, variantID uint, quantity int) error {
	return s.pick(id).Put(ctx, id, variantID, quantity)
}

func (s *routingStore) Remove(ctx context.Context, id Identity, variantID uint) error {
	return s.pick(id).Remove(ctx, id, variantID)
}

func (s *routingStore) Clear(ctx context.Context, id Identity) error {
	return s.pick(id).Clear(ctx, id)
}

// userStore keeps cart lines as rows, one per user and variant.
type userStore struct {
	db *gorm.DB
}

func (s *userStore) List(ctx context.Context, id Identity) ([]Line, error) {
	var items []CartItem
	err := s.db.WithContext(ctx).
		Where("user_id = ?", *id.UserID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	lines := make([]Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, Line{VariantID: item.ProductVariantID, Quantity: item.Quantity})
	}
	return lines, nil
}

func (s *userStore) Put(ctx context.Context, id Identity, variantID uint, quantity int) error {
	item := CartItem{
		UserID:           *id.UserID,
		ProductVariantID: variantID,
		Quantity:         quantity,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_variant_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"quantity": quantity, "updated_at": time.Now()}),
	}).Create(&item).Error
	if err != nil {
		return fmt.Errorf("failed to store cart line: %w", err)
	}
	return nil
}

func (s *userStore) Remove(ctx context.Context, id Identity, variantID uint) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND product_variant_id = ?", *id.UserID, variantID).
		Delete(&CartItem{}).Error
}

func (s *userStore) Clear(ctx context.Context, id Identity) error {
	return s.db.WithContext(ctx).
		Where("user_id = ?", *id.UserID).
		Delete(&CartItem{}).Error
}

// guestStore keeps the whole guest cart as one JSON blob with a TTL; an
// abandoned guest cart disappears on its own.
type guestStore struct {
	client *redis.Client
	ttl    time.Duration
}

func guestCartKey(sessionID string) string {
	return fmt.Sprintf("cart:session:%s", sessionID)
}

func (s *guestStore) load(ctx context.Context, sessionID string) (*SessionCart, error) {
	data, err := s.client.Get(ctx, guestCartKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return &SessionCart{SessionID: sessionID, CreatedAt: time.Now()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load guest cart: %w", err)
	}

	var sessionCart SessionCart
	if err := json.Unmarshal([]byte(data), &sessionCart); err != nil {
		// a corrupt blob is unrecoverable; start over
		return &SessionCart{SessionID: sessionID, CreatedAt: time.Now()}, nil
	}
	return &sessionCart, nil
}

func (s *guestStore) save(ctx context.Context, sessionCart *SessionCart) error {
	sessionCart.UpdatedAt = time.Now()
	data, err := json.Marshal(sessionCart)
	if err != nil {
		return fmt.Errorf("failed to encode guest cart: %w", err)
	}
	if err := s.client.Set(ctx, guestCartKey(sessionCart.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save guest cart: %w", err)
	}
	return nil
}

func (s *guestStore) List(ctx context.Context, id Identity) ([]Line, error) {
	sessionCart, err := s.load(ctx, id.SessionID)
	if err != nil {
		return nil, err
	}
	return sessionCart.Items, nil
}

func (s *guestStore) Put(ctx context.Context, id Identity, variantID uint, quantity int) error {
	sessionCart, err := s.load(ctx, id.SessionID)
	if err != nil {
		return err
	}

	found := false
	for i := range sessionCart.Items {
		if sessionCart.Items[i].VariantID == variantID {
			sessionCart.Items[i].Quantity = quantity
			found = true
			break
		}
	}
	if !found {
		sessionCart.Items = append(sessionCart.Items, Line{VariantID: variantID, Quantity: quantity})
	}

	return s.save(ctx, sessionCart)
}

func (s *guestStore) Remove(ctx context.Context, id Identity, variantID uint) error {
	sessionCart, err := s.load(ctx, id.SessionID)
	if err != nil {
		return err
	}

	items := sessionCart.Items[:0]
	for _, line := range sessionCart.Items {
		if line.VariantID != variantID {
			items = append(items, line)
		}
	}
	sessionCart.Items = items

	if len(sessionCart.Items) == 0 {
		return s.client.Del(ctx, guestCartKey(id.SessionID)).Err()
	}
	return s.save(ctx, sessionCart)
}

func (s *guestStore) Clear(ctx context.Context, id Identity) error {
	return s.client.Del(ctx, guestCartKey(id.SessionID)).Err()
}
