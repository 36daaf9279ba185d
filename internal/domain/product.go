package domain

// Product represents a catalog record as it is indexed and returned to clients
type Product struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Brand            string   `json:"brand"`
	Description      string   `json:"description"`
	Presentation     string   `json:"presentation"`
	Category         string   `json:"category"`
	Subcategory      string   `json:"subcategory"`
	ActiveIngredient string   `json:"active_ingredient"`
	Tags             []string `json:"tags"`
}

// ScoredProduct is a product augmented with its relevance score for one ranking pass
type ScoredProduct struct {
	Product
	Score float64 `json:"_score"`
}

// IndexedProduct is a product enriched with its embedding vector for upload to the index
type IndexedProduct struct {
	Product
	ObjectID string    `json:"objectID"`
	Vector   []float32 `json:"_vector"`
}
