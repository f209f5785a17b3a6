package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/CompraLens/compralens-backend/logger"
	"github.com/CompraLens/compralens-backend/types"
)

// Field patterns are tried in order and the first acceptable match wins.
// Later patterns may match more precisely but are deliberately ignored;
// downstream results depend on this ordering. Known precision limitation.
var (
	providerNamePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)PROVEEDOR[:\s]+([^\n]+)`),
		regexp.MustCompile(`(?i)EMISOR[:\s]+([^\n]+)`),
		regexp.MustCompile(`(?i)RAZ[ÓO]N SOCIAL[:\s]+([^\n]+)`),
		regexp.MustCompile(`(?i)EMPRESA[:\s]+([^\n]+)`),
		regexp.MustCompile(`(?i)VENDEDOR[:\s]+([^\n]+)`),
	}

	taxIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`RUC[:\s]*([0-9]{11})`),
		regexp.MustCompile(`R\.U\.C\.?[:\s]*([0-9]{11})`),
	}

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`FECHA[:\s]+(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`),
		regexp.MustCompile(`FECHA DE EMISI[ÓO]N[:\s]+(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`),
	}

	totalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)TOTAL[:\s]*[$S/.\s]*([\d,]+(?:\.\d{2})?)`),
		regexp.MustCompile(`(?i)IMPORTE TOTAL[:\s]*[$S/.\s]*([\d,]+(?:\.\d{2})?)`),
		regexp.MustCompile(`(?i)MONTO TOTAL[:\s]*[$S/.\s]*([\d,]+(?:\.\d{2})?)`),
	}

	// Product line shapes: "name qty price", "name S/. price", "name $ price".
	textItemPatterns = []*regexp.Regexp{
		regexp.MustCompile(`([A-Za-z\s\-&]+)\s+(\d+)[\s,]*(\d+\.\d{2})`),
		regexp.MustCompile(`([A-Za-z\s\-&]+)\s+S/\.\s*(\d+\.\d{2})`),
		regexp.MustCompile(`([A-Za-z\s\-&]+)\s+\$?\s*(\d+[.,]\d{2})`),
	}
)

// Table column role keywords.
var (
	productHeaderWords  = []string{"producto", "descripción", "item", "concepto", "servicio"}
	priceHeaderWords    = []string{"precio", "importe", "valor", "costo", "unitario"}
	quantityHeaderWords = []string{"cantidad", "qty", "unidades"}

	// Rows carrying these markers are totals, not products.
	nonProductMarkers = []string{"total", "subtotal", "igv", "impuesto"}
)

const extractorAugmentChars = 5000

// ProviderExtractor turns raw OCR output into a normalized ProviderRecord.
// Every extraction step is independently optional: absence of a match leaves
// the field at its not-detected default, and Extract never fails.
type ProviderExtractor struct {
	detector    EntityDetector
	categorizer *ProductCategorizer
}

// NewProviderExtractor builds an extractor. The detector may be nil; the
// entity augmentation step is then skipped, which is also the behavior when
// the external call fails.
func NewProviderExtractor(detector EntityDetector, categorizer *ProductCategorizer) *ProviderExtractor {
	return &ProviderExtractor{detector: detector, categorizer: categorizer}
}

// Extract parses text (plus optional table and form data) from one document
// into a ProviderRecord.
func (e *ProviderExtractor) Extract(ctx context.Context, text, filename string, tables []types.TableData, forms map[string]string) types.ProviderRecord {
	record := types.NewProviderRecord(filename)

	e.extractName(text, &record)
	e.extractTaxID(text, &record)
	e.extractDate(text, &record)
	e.extractTotal(text, &record)
	e.augmentWithEntities(ctx, text, &record)

	// Line items carry the owning record's final name as their provider
	// back-reference, so they are collected after all name detection.
	items := e.extractItemsFromTables(tables, record.Name)
	items = append(items, e.extractItemsFromText(text, record.Name)...)
	record.LineItems = dedupeItems(items)

	return record
}

func (e *ProviderExtractor) extractName(text string, record *types.ProviderRecord) {
	for _, pattern := range providerNamePatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		name := strings.TrimSpace(match[1])
		if len([]rune(name)) > 3 {
			record.Name = name
			return
		}
	}
}

func (e *ProviderExtractor) extractTaxID(text string, record *types.ProviderRecord) {
	for _, pattern := range taxIDPatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			record.TaxID = match[1]
			return
		}
	}
}

func (e *ProviderExtractor) extractDate(text string, record *types.ProviderRecord) {
	for _, pattern := range datePatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			record.Date = match[1]
			return
		}
	}
}

func (e *ProviderExtractor) extractTotal(text string, record *types.ProviderRecord) {
	for _, pattern := range totalPatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		record.Total = parseAmount(match[1])
		return
	}
}

// augmentWithEntities fills still-default fields from the external NLP
// service. Any failure here is swallowed: extraction proceeds with whatever
// the regex steps found.
func (e *ProviderExtractor) augmentWithEntities(ctx context.Context, text string, record *types.ProviderRecord) {
	if e.detector == nil {
		return
	}
	entities, err := e.detector.DetectEntities(ctx, truncateRunes(text, extractorAugmentChars))
	if err != nil {
		logger.GetLogger().Debugw("Entity augmentation skipped", "file", record.SourceFile, "error", err)
		return
	}
	for _, entity := range entities {
		switch entity.Type {
		case types.EntityTypeOrganization:
			if record.Name == types.ProviderUnknown {
				record.Name = entity.Text
			}
		case types.EntityTypeDate:
			if record.Date == types.DateNotDetected {
				record.Date = entity.Text
			}
		case types.EntityTypeCommercialItem:
			if strings.Contains(strings.ToLower(entity.Text), "factura") {
				record.DocumentType = types.DocTypeFactura
			}
		}
	}
}

// extractItemsFromTables pulls products out of OCR-detected tables, the
// higher-confidence item source.
func (e *ProviderExtractor) extractItemsFromTables(tables []types.TableData, providerName string) []types.LineItem {
	var items []types.LineItem

	for _, table := range tables {
		if len(table.Rows) == 0 {
			continue
		}

		productCols, priceCols, qtyCols, fromHeader := classifyColumns(table)
		if len(productCols) == 0 {
			continue
		}

		dataRows := table.Rows
		if fromHeader {
			dataRows = table.Rows[1:]
		}

		// Only the first detected product column is used per table.
		productCol := productCols[0]

		for _, row := range dataRows {
			name := strings.TrimSpace(cellAt(row, productCol))
			if name == "" || len([]rune(name)) <= 2 || containsAny(strings.ToLower(name), nonProductMarkers) {
				continue
			}

			var price *float64
			for _, col := range priceCols {
				if p, ok := parsePrice(cellAt(row, col)); ok {
					price = &p
					break
				}
			}

			quantity := ""
			for _, col := range qtyCols {
				if q := strings.TrimSpace(cellAt(row, col)); q != "" {
					quantity = q
					break
				}
			}

			items = append(items, types.LineItem{
				Name:     name,
				Price:    price,
				Quantity: quantity,
				Category: e.categorizer.Categorize(name),
				Provider: providerName,
				Source:   types.SourceTable,
			})
		}
	}
	return items
}

// extractItemsFromText scans the transcript for product-price line shapes,
// the fallback/supplement item source.
func (e *ProviderExtractor) extractItemsFromText(text, providerName string) []types.LineItem {
	var items []types.LineItem

	for _, pattern := range textItemPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			name := strings.TrimSpace(match[1])
			if len([]rune(name)) <= 3 {
				continue
			}

			var price *float64
			quantity := ""
			if len(match) >= 4 {
				if p, err := strconv.ParseFloat(strings.ReplaceAll(match[3], ",", "."), 64); err == nil {
					price = &p
					quantity = match[2]
				}
			} else if len(match) >= 3 {
				if p, err := strconv.ParseFloat(strings.ReplaceAll(match[2], ",", "."), 64); err == nil {
					price = &p
				}
			}

			items = append(items, types.LineItem{
				Name:     name,
				Price:    price,
				Quantity: quantity,
				Category: e.categorizer.Categorize(name),
				Provider: providerName,
				Source:   types.SourceText,
			})
		}
	}
	return items
}

// classifyColumns assigns product/price/quantity roles to table columns,
// first by header keyword, then by value heuristics: a column is
// product-like when its sampled values are long alphabetic strings, and
// price-like when a value parses as numeric. fromHeader reports whether the
// header row assigned any role, in which case it is not a data row.
func classifyColumns(table types.TableData) (productCols, priceCols, qtyCols []int, fromHeader bool) {
	header := table.Header()
	cols := 0
	for _, row := range table.Rows {
		if len(row) > cols {
			cols = len(row)
		}
	}

	for col := 0; col < cols; col++ {
		h := strings.ToLower(cellAt(header, col))
		switch {
		case containsAny(h, productHeaderWords):
			productCols = append(productCols, col)
			fromHeader = true
		case containsAny(h, priceHeaderWords):
			priceCols = append(priceCols, col)
			fromHeader = true
		case containsAny(h, quantityHeaderWords):
			qtyCols = append(qtyCols, col)
			fromHeader = true
		}
	}

	if len(productCols) == 0 {
		for col := 0; col < cols; col++ {
			if looksLikeProductColumn(table, col) {
				productCols = append(productCols, col)
			}
		}
	}
	if len(priceCols) == 0 {
		for col := 0; col < cols; col++ {
			if looksLikePriceColumn(table, col) {
				priceCols = append(priceCols, col)
			}
		}
	}
	return productCols, priceCols, qtyCols, fromHeader
}

// looksLikeProductColumn samples the first non-empty values of a column and
// checks for long strings containing letters.
func looksLikeProductColumn(table types.TableData, col int) bool {
	sampled := 0
	for _, row := range table.Rows {
		val := strings.TrimSpace(cellAt(row, col))
		if val == "" {
			continue
		}
		if len([]rune(val)) > 10 && strings.IndexFunc(val, isLetter) >= 0 {
			return true
		}
		sampled++
		if sampled >= 3 {
			break
		}
	}
	return false
}

func looksLikePriceColumn(table types.TableData, col int) bool {
	for _, row := range table.Rows {
		if _, ok := parsePrice(cellAt(row, col)); ok {
			return true
		}
	}
	return false
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r > 127
}

func cellAt(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// parsePrice cleans currency markers and thousands separators from a cell
// value and parses it as a number.
func parsePrice(raw string) (float64, bool) {
	cleaned := strings.NewReplacer(",", "", "S/", "", "$", "").Replace(raw)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

// parseAmount parses a matched total capture, keeping the raw string when
// numeric parsing fails.
func parseAmount(raw string) types.Amount {
	d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return types.Amount{Raw: raw}
	}
	f, _ := d.Float64()
	return types.Amount{Value: &f}
}

// dedupeItems collapses items with identical (name, price) within one
// document's extraction, keeping the first occurrence.
func dedupeItems(items []types.LineItem) []types.LineItem {
	seen := make(map[string]struct{}, len(items))
	unique := make([]types.LineItem, 0, len(items))
	for _, item := range items {
		key := item.Name + "_"
		if item.Price != nil {
			key += strconv.FormatFloat(*item.Price, 'f', -1, 64)
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, item)
	}
	return unique
}

// itemKey is exposed for tests asserting de-duplication idempotence.
func itemKey(item types.LineItem) string {
	if item.Price == nil {
		return fmt.Sprintf("%s_", item.Name)
	}
	return fmt.Sprintf("%s_%s", item.Name, strconv.FormatFloat(*item.Price, 'f', -1, 64))
}
