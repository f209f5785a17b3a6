package types

import "strings"

// TableData is a 2-D grid of cell text reconstructed from the OCR service's
// table blocks. The first row usually holds the column headers, but not
// every scanned table carries one.
type TableData struct {
	Rows [][]string `json:"rows"`
}

// Empty reports whether the table has no content at all.
func (t TableData) Empty() bool {
	for _, row := range t.Rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				return false
			}
		}
	}
	return true
}

// Header returns the first row, or nil for an empty table.
func (t TableData) Header() []string {
	if len(t.Rows) == 0 {
		return nil
	}
	return t.Rows[0]
}

// DocumentMetrics are per-file processing metrics surfaced to the caller.
type DocumentMetrics struct {
	WordCount      int `json:"word_count"`
	TableCount     int `json:"table_count"`
	FormFieldCount int `json:"form_fields_count"`
}

// ProcessedDocument is the per-file output of the OCR stage plus the
// downstream per-document analysis. It lives only for the duration of one
// processing run.
type ProcessedDocument struct {
	Filename   string            `json:"filename"`
	StorageURI string            `json:"s3_uri,omitempty"`
	Text       string            `json:"text"`
	Tables     []TableData       `json:"tables,omitempty"`
	Forms      map[string]string `json:"forms,omitempty"`
	Pages      int               `json:"pages"`
	Metrics    DocumentMetrics   `json:"metrics"`
	Analysis   *DocumentAnalysis `json:"comprehend_analysis,omitempty"`
	Provider   *ProviderRecord   `json:"provider_info,omitempty"`
	// ProcessingError carries the human-readable explanation when every
	// extraction fallback failed for this file. The document still appears
	// in the run so the batch is never silently shortened.
	ProcessingError string `json:"processing_error,omitempty"`
}

// ComputeMetrics fills Metrics from the current text, tables, and forms.
func (d *ProcessedDocument) ComputeMetrics() {
	fields := 0
	for k, v := range d.Forms {
		if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
			fields++
		}
	}
	tables := 0
	for _, t := range d.Tables {
		if !t.Empty() {
			tables++
		}
	}
	d.Metrics = DocumentMetrics{
		WordCount:      len(strings.Fields(d.Text)),
		TableCount:     tables,
		FormFieldCount: fields,
	}
}
