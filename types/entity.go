package types

// Entity type vocabulary of the external NLP service. Only the types the
// pipeline actually inspects are named; anything else passes through as-is.
const (
	EntityTypeOrganization   = "ORGANIZATION"
	EntityTypeDate           = "DATE"
	EntityTypeCommercialItem = "COMMERCIAL_ITEM"
	EntityTypeQuantity       = "QUANTITY"
	EntityTypeOther          = "OTHER"
)

// Entity is a named entity detected by the external NLP service.
type Entity struct {
	Text  string  `json:"text"`
	Type  string  `json:"type"`
	Score float64 `json:"score"`
}

// SentimentResult holds the document-level sentiment detected by the
// external NLP service.
type SentimentResult struct {
	Sentiment string             `json:"sentiment"`
	Scores    map[string]float64 `json:"sentiment_scores,omitempty"`
}

// DocumentAnalysis bundles the NLP metadata captured for one document:
// its classification, sentiment, and the leading detected entities.
type DocumentAnalysis struct {
	Classification ClassificationResult `json:"clasificacion_documento"`
	Sentiment      *SentimentResult     `json:"sentiment,omitempty"`
	Entities       []Entity             `json:"entities,omitempty"`
}
