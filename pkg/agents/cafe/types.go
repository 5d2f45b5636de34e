package cafe

// Item is one catalog entry. Reference data: loaded once at startup, never
// mutated by the conversation.
type Item struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category,omitempty"`
}

// Catalog is the on-disk reference document.
type Catalog struct {
	Items   []Item              `json:"items"`
	Recipes map[string][]string `json:"recipes,omitempty"`
}

// OrderRecord is one completed order appended to the persisted log.
type OrderRecord struct {
	OrderID   string     `json:"order_id"`
	CreatedAt string     `json:"created_at"`
	Items     []LineItem `json:"items"`
	Total     float64    `json:"total"`
}
