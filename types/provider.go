package types

import (
	"encoding/json"
	"strconv"
)

// Sentinel values used when a field could not be extracted. They match the
// wording the downstream agent prompt and stored snapshots rely on.
const (
	ProviderUnknown  = "Desconocido"
	NotDetected      = "No detectado"
	DateNotDetected  = "No detectada"
	SourceTable      = "tabla"
	SourceText       = "texto"
)

// Amount is a detected monetary value. Extraction keeps the raw matched
// string when numeric parsing fails, so an Amount is either a number, a raw
// capture, or the not-detected sentinel.
type Amount struct {
	Value *float64
	Raw   string
}

// Detected reports whether any total was captured at all.
func (a Amount) Detected() bool {
	return a.Value != nil || a.Raw != ""
}

// MarshalJSON emits the numeric value when available, the raw capture
// otherwise, and the sentinel when nothing was detected.
func (a Amount) MarshalJSON() ([]byte, error) {
	if a.Value != nil {
		return []byte(strconv.FormatFloat(*a.Value, 'f', -1, 64)), nil
	}
	if a.Raw != "" {
		return json.Marshal(a.Raw)
	}
	return json.Marshal(NotDetected)
}

// UnmarshalJSON accepts either form produced by MarshalJSON.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		a.Value = &v
		a.Raw = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == NotDetected {
		a.Value = nil
		a.Raw = ""
		return nil
	}
	a.Value = nil
	a.Raw = s
	return nil
}

// LineItem is one priced product/service entry extracted from a document.
// Provider is a back-reference to the owning record's name, not an object
// reference; table-derived items are considered higher confidence than
// text-derived ones.
type LineItem struct {
	Name     string        `json:"nombre"`
	Price    *float64      `json:"precio"`
	Quantity string        `json:"cantidad,omitempty"`
	Category CategoryLabel `json:"categoria"`
	Provider string        `json:"proveedor"`
	Source   string        `json:"fuente"`
}

// ProviderRecord is the normalized extraction result for one document.
type ProviderRecord struct {
	Name         string       `json:"nombre"`
	TaxID        string       `json:"ruc"`
	Date         string       `json:"fecha"`
	Total        Amount       `json:"total"`
	Address      string       `json:"direccion"`
	DocumentType DocumentType `json:"tipo_documento"`
	LineItems    []LineItem   `json:"productos"`
	SourceFile   string       `json:"filename"`
}

// NewProviderRecord returns a record with every field at its not-detected
// default for the given source file.
func NewProviderRecord(sourceFile string) ProviderRecord {
	return ProviderRecord{
		Name:         ProviderUnknown,
		TaxID:        NotDetected,
		Date:         DateNotDetected,
		Address:      DateNotDetected,
		DocumentType: DocTypeDesconocido,
		LineItems:    []LineItem{},
		SourceFile:   sourceFile,
	}
}

// HasUsableData reports whether the record carries any extracted signal.
// Records failing this check are pure noise and are dropped from batch
// analysis.
func (p ProviderRecord) HasUsableData() bool {
	return p.Name != ProviderUnknown || len(p.LineItems) > 0 || p.Total.Detected()
}
