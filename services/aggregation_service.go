package services

import (
	"math"

	"github.com/CompraLens/compralens-backend/types"
)

// AlertNeedTwoProviders explains why no recommendations were produced for a
// single-provider batch.
const AlertNeedTwoProviders = "Se necesitan al menos 2 proveedores para comparación"

// AggregationService reduces a batch of provider records into category
// statistics, per-product price comparisons, and savings recommendations.
// It is a pure single-pass reduction over the full batch: it never fails,
// and sparse input simply yields zeroed statistics or omitted entries.
type AggregationService struct{}

// NewAggregationService returns the stateless aggregation engine.
func NewAggregationService() *AggregationService {
	return &AggregationService{}
}

// Aggregate computes the full cross-document analysis. Records without any
// usable signal are dropped first; everything else is derived from the
// surviving records' line items in encounter order.
func (s *AggregationService) Aggregate(records []types.ProviderRecord) types.BatchAnalysis {
	providers := make([]types.ProviderRecord, 0, len(records))
	var allItems []types.LineItem

	for _, record := range records {
		if !record.HasUsableData() {
			continue
		}
		providers = append(providers, record)
		allItems = append(allItems, record.LineItems...)
	}

	return types.BatchAnalysis{
		TotalProviders:  len(providers),
		Providers:       providers,
		AllLineItems:    allItems,
		CategoryStats:   s.analyzeCategories(allItems),
		Recommendations: s.buildRecommendations(providers, allItems),
		PriceComparison: s.comparePrices(allItems),
	}
}

// analyzeCategories groups items by category, accumulating the provider set
// and price statistics over priced items only.
func (s *AggregationService) analyzeCategories(items []types.LineItem) map[types.CategoryLabel]*types.CategoryStats {
	stats := map[types.CategoryLabel]*types.CategoryStats{}

	for _, item := range items {
		cs, ok := stats[item.Category]
		if !ok {
			cs = &types.CategoryStats{MinPrice: math.Inf(1)}
			stats[item.Category] = cs
		}
		cs.Items = append(cs.Items, item)
		cs.TotalItems++
		if !cs.HasProvider(item.Provider) {
			cs.Providers = append(cs.Providers, item.Provider)
		}
		if item.Price != nil {
			cs.AveragePrice += *item.Price
			cs.MinPrice = math.Min(cs.MinPrice, *item.Price)
			cs.MaxPrice = math.Max(cs.MaxPrice, *item.Price)
		}
	}

	for _, cs := range stats {
		priced := 0
		for _, item := range cs.Items {
			if item.Price != nil {
				priced++
			}
		}
		if priced > 0 {
			cs.AveragePrice /= float64(priced)
		} else {
			cs.AveragePrice = 0
			cs.MinPrice = 0
			cs.MaxPrice = 0
		}
	}
	return stats
}

// comparePrices tracks min/max price per exact product name and which
// provider offered the minimum. Ties keep the first-seen minimum, so the
// cheapest provider can legitimately change under batch reordering.
func (s *AggregationService) comparePrices(items []types.LineItem) map[string]*types.PriceComparison {
	analysis := map[string]*types.PriceComparison{}

	for _, item := range items {
		if item.Price == nil {
			continue
		}
		pc, ok := analysis[item.Name]
		if !ok {
			pc = &types.PriceComparison{MinPrice: math.Inf(1)}
			analysis[item.Name] = pc
		}
		pc.Providers = append(pc.Providers, item.Provider)
		pc.Prices = append(pc.Prices, *item.Price)
		if *item.Price < pc.MinPrice {
			pc.MinPrice = *item.Price
			pc.CheapestProvider = item.Provider
		}
		if *item.Price > pc.MaxPrice {
			pc.MaxPrice = *item.Price
		}
	}
	return analysis
}

// buildRecommendations derives the best provider per category and the
// potential savings list. Categories qualify only when at least two
// distinct providers priced them; a batch with fewer than two providers
// yields no recommendations, only an explanatory alert.
func (s *AggregationService) buildRecommendations(providers []types.ProviderRecord, items []types.LineItem) types.Recommendations {
	if len(providers) < 2 {
		return types.Recommendations{
			BestProviders:    map[types.CategoryLabel]types.BestProvider{},
			PotentialSavings: []types.SavingsRecommendation{},
			Alerts:           []string{AlertNeedTwoProviders},
		}
	}

	recs := types.Recommendations{
		BestProviders:    map[types.CategoryLabel]types.BestProvider{},
		PotentialSavings: []types.SavingsRecommendation{},
		Alerts:           []string{},
	}

	byCategory := map[types.CategoryLabel][]types.LineItem{}
	var categoryOrder []types.CategoryLabel
	for _, item := range items {
		if _, ok := byCategory[item.Category]; !ok {
			categoryOrder = append(categoryOrder, item.Category)
		}
		byCategory[item.Category] = append(byCategory[item.Category], item)
	}

	for _, category := range categoryOrder {
		var priced []types.LineItem
		providerSet := map[string]struct{}{}
		for _, item := range byCategory[category] {
			if item.Price != nil {
				priced = append(priced, item)
				providerSet[item.Provider] = struct{}{}
			}
		}
		if len(priced) == 0 || len(providerSet) < 2 {
			continue
		}

		// Globally cheapest priced item; ties broken by encounter order.
		cheapest := priced[0]
		for _, item := range priced[1:] {
			if *item.Price < *cheapest.Price {
				cheapest = item
			}
		}

		recs.BestProviders[category] = types.BestProvider{
			Provider: cheapest.Provider,
			Product:  cheapest.Name,
			Price:    *cheapest.Price,
			Category: category,
		}

		if len(priced) > 1 {
			sum := 0.0
			for _, item := range priced {
				sum += *item.Price
			}
			savings := sum/float64(len(priced)) - *cheapest.Price
			if savings > 0 {
				recs.PotentialSavings = append(recs.PotentialSavings, types.SavingsRecommendation{
					Category:            category,
					RecommendedProvider: cheapest.Provider,
					EstimatedSavings:    round2(savings),
					ExampleProduct:      cheapest.Name,
				})
			}
		}
	}
	return recs
}
