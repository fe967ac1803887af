package models

type Cart struct {
	OwnerID string     `json:"owner_id"`
	Items   []CartItem `json:"items"`
}

type CartItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name,omitempty"`
	Price     float64 `json:"price,omitempty"`
	Quantity  int     `json:"quantity"`
}
