package types

// CategoryStats aggregates all line items of one category across a batch.
// Price statistics cover only items with a known price; when no item in the
// category is priced, average/min/max are all zero.
type CategoryStats struct {
	Items        []LineItem `json:"productos"`
	Providers    []string   `json:"proveedores"`
	AveragePrice float64    `json:"precio_promedio"`
	MinPrice     float64    `json:"precio_min"`
	MaxPrice     float64    `json:"precio_max"`
	TotalItems   int        `json:"total_productos"`
}

// HasProvider reports whether the provider name was already recorded for
// this category.
func (s *CategoryStats) HasProvider(name string) bool {
	for _, p := range s.Providers {
		if p == name {
			return true
		}
	}
	return false
}

// PriceComparison tracks, per exact product name, the observed price range
// and the provider that offered the minimum. Ties keep the first-seen
// minimum, so the cheapest provider for equal prices depends on document
// order within the batch.
type PriceComparison struct {
	Providers        []string  `json:"proveedores"`
	Prices           []float64 `json:"precios"`
	MinPrice         float64   `json:"precio_min"`
	MaxPrice         float64   `json:"precio_max"`
	CheapestProvider string    `json:"proveedor_mas_barato"`
}

// BestProvider names the cheapest priced offer for a category.
type BestProvider struct {
	Provider string        `json:"proveedor"`
	Product  string        `json:"producto"`
	Price    float64       `json:"precio"`
	Category CategoryLabel `json:"categoria"`
}

// SavingsRecommendation is emitted only when the estimated savings are
// positive and at least two distinct providers priced the category.
type SavingsRecommendation struct {
	Category            CategoryLabel `json:"categoria"`
	RecommendedProvider string        `json:"proveedor_recomendado"`
	EstimatedSavings    float64       `json:"ahorro_estimado"`
	ExampleProduct      string        `json:"producto_ejemplo"`
}

// Recommendations is the derived advice section of a batch analysis.
type Recommendations struct {
	BestProviders    map[CategoryLabel]BestProvider `json:"mejores_proveedores"`
	PotentialSavings []SavingsRecommendation        `json:"ahorros_potenciales"`
	Alerts           []string                       `json:"alertas"`
}

// BatchAnalysis is the full cross-document comparison result. It is a pure
// derived view, recomputed on every aggregation call.
type BatchAnalysis struct {
	TotalProviders  int                              `json:"total_providers"`
	Providers       []ProviderRecord                 `json:"providers"`
	AllLineItems    []LineItem                       `json:"productos_totales"`
	CategoryStats   map[CategoryLabel]*CategoryStats `json:"analisis_categorias"`
	Recommendations Recommendations                  `json:"recomendaciones"`
	PriceComparison map[string]*PriceComparison      `json:"analisis_precios"`
}
