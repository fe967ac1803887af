package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ngozi_back_end/internal/database"
	"ngozi_back_end/internal/models"
)

const productCacheTTL = 10 * time.Minute

// ScyllaCatalog est la source de prix faisant autorité au checkout : le prix
// est relu ici, jamais repris du panier soumis par le client. Lecture
// Redis d'abord, ScyllaDB en repli.
type ScyllaCatalog struct {
	Cache *redis.Client
}

func NewScyllaCatalog(cache *redis.Client) *ScyllaCatalog {
	return &ScyllaCatalog{Cache: cache}
}

// GetByID retourne la fiche produit complète. Un produit désactivé est
// traité comme introuvable : il ne doit plus jamais être vendu.
func (c *ScyllaCatalog) GetByID(ctx context.Context, productID string) (*models.Product, error) {
	key := "product:" + productID

	// 1. Essayer le cache Redis
	if c.Cache != nil {
		if data, err := c.Cache.Get(ctx, key).Result(); err == nil {
			var product models.Product
			if json.Unmarshal([]byte(data), &product) == nil {
				return &product, nil
			}
		}
	}

	// 2. Récupérer de ScyllaDB
	parsed, err := uuid.Parse(productID)
	if err != nil {
		return nil, models.ErrNotFound
	}

	session, err := database.GetProductsSession()
	if err != nil {
		return nil, err
	}

	var product models.Product
	product.ProductID = gocql.UUID(parsed)
	err = session.Query(`
		SELECT name, description, price, currency, category, stock, image_url,
			is_active, created_at, updated_at
		FROM products WHERE product_id = ?`, product.ProductID).
		WithContext(ctx).
		Scan(&product.Name, &product.Description, &product.Price, &product.Currency,
			&product.Category, &product.Stock, &product.ImageURL, &product.IsActive,
			&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	if !product.IsActive {
		return nil, models.ErrNotFound
	}

	// 3. Mettre en cache pour les prochains checkouts
	if c.Cache != nil {
		if data, err := json.Marshal(product); err == nil {
			c.Cache.Set(ctx, key, data, productCacheTTL)
		}
	}

	return &product, nil
}

// GetPriceByID retourne le nom et le prix courant d'un produit.
func (c *ScyllaCatalog) GetPriceByID(ctx context.Context, productID string) (string, float64, error) {
	product, err := c.GetByID(ctx, productID)
	if err != nil {
		return "", 0, err
	}
	return product.Name, product.Price, nil
}
