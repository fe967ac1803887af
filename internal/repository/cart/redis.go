package cart

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"ngozi_back_end/internal/models"
)

// RedisStore conserve le panier par propriétaire (utilisateur ou session
// invitée) sous la clé cart:<owner>, en JSON. Le panier est vidé, pas
// archivé, quand son contenu devient une commande.
type RedisStore struct {
	Client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{Client: client}
}

func cartKey(ownerID string) string {
	return "cart:" + ownerID
}

// GetCart retourne le panier courant ; un panier absent est un panier vide.
func (s *RedisStore) GetCart(ctx context.Context, ownerID string) (*models.Cart, error) {
	data, err := s.Client.Get(ctx, cartKey(ownerID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &models.Cart{OwnerID: ownerID, Items: []models.CartItem{}}, nil
		}
		return nil, err
	}

	var items []models.CartItem
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, err
	}
	return &models.Cart{OwnerID: ownerID, Items: items}, nil
}

func (s *RedisStore) SaveCart(ctx context.Context, ownerID string, items []models.CartItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, cartKey(ownerID), data, 0).Err()
}

func (s *RedisStore) ClearCart(ctx context.Context, ownerID string) error {
	return s.Client.Del(ctx, cartKey(ownerID)).Err()
}

// AddItem fusionne les quantités si le produit est déjà dans le panier.
func (s *RedisStore) AddItem(ctx context.Context, ownerID string, item models.CartItem) (*models.Cart, error) {
	cart, err := s.GetCart(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	merged := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == item.ProductID {
			cart.Items[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		cart.Items = append(cart.Items, item)
	}

	if err := s.SaveCart(ctx, ownerID, cart.Items); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *RedisStore) RemoveItem(ctx context.Context, ownerID, productID string) (*models.Cart, error) {
	cart, err := s.GetCart(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	kept := cart.Items[:0]
	for _, item := range cart.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	cart.Items = kept

	if err := s.SaveCart(ctx, ownerID, cart.Items); err != nil {
		return nil, err
	}
	return cart, nil
}
