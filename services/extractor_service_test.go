package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CompraLens/compralens-backend/types"
)

func newTestExtractor(detector EntityDetector) *ProviderExtractor {
	return NewProviderExtractor(detector, NewProductCategorizer())
}

func TestExtractProviderFields(t *testing.T) {
	extractor := newTestExtractor(nil)

	text := "PROVEEDOR: Distribuidora Santa Rosa S.A.C.\n" +
		"RUC: 20512345678\n" +
		"FECHA: 15/03/2024\n" +
		"TOTAL: S/. 1,250.50\n"

	record := extractor.Extract(context.Background(), text, "factura.pdf", nil, nil)

	assert.Equal(t, "Distribuidora Santa Rosa S.A.C.", record.Name)
	assert.Equal(t, "20512345678", record.TaxID)
	assert.Equal(t, "15/03/2024", record.Date)
	require.NotNil(t, record.Total.Value)
	assert.Equal(t, 1250.50, *record.Total.Value)
	assert.Equal(t, "factura.pdf", record.SourceFile)
}

func TestExtractDefaultsWhenNothingMatches(t *testing.T) {
	extractor := newTestExtractor(nil)

	record := extractor.Extract(context.Background(), "texto sin campos reconocibles", "nota.png", nil, nil)

	assert.Equal(t, types.ProviderUnknown, record.Name)
	assert.Equal(t, types.NotDetected, record.TaxID)
	assert.Equal(t, types.DateNotDetected, record.Date)
	assert.False(t, record.Total.Detected())
	assert.Equal(t, types.DocTypeDesconocido, record.DocumentType)
	assert.False(t, record.HasUsableData())
}

func TestExtractNameSkipsShortMatches(t *testing.T) {
	extractor := newTestExtractor(nil)

	// First pattern's capture is too short; the later pattern supplies the name.
	text := "PROVEEDOR: SA\nRAZÓN SOCIAL: Comercial Andina E.I.R.L.\n"
	record := extractor.Extract(context.Background(), text, "doc.pdf", nil, nil)

	assert.Equal(t, "Comercial Andina E.I.R.L.", record.Name)
}

func TestExtractTaxIDRequiresElevenDigits(t *testing.T) {
	extractor := newTestExtractor(nil)

	record := extractor.Extract(context.Background(), "RUC: 12345", "doc.pdf", nil, nil)
	assert.Equal(t, types.NotDetected, record.TaxID)

	record = extractor.Extract(context.Background(), "R.U.C. 20987654321", "doc.pdf", nil, nil)
	assert.Equal(t, "20987654321", record.TaxID)
}

func TestExtractTotalKeepsRawOnUnparsable(t *testing.T) {
	amount := parseAmount("12,34,56abc")
	assert.Nil(t, amount.Value)
	assert.Equal(t, "12,34,56abc", amount.Raw)
	assert.True(t, amount.Detected())
}

func TestAugmentWithEntitiesFillsDefaultsOnly(t *testing.T) {
	detector := &stubDetector{entities: []types.Entity{
		{Text: "Inversiones del Sur S.A.", Type: types.EntityTypeOrganization, Score: 0.9},
		{Text: "12 de enero de 2024", Type: types.EntityTypeDate, Score: 0.8},
		{Text: "factura electrónica", Type: types.EntityTypeCommercialItem, Score: 0.9},
	}}
	extractor := newTestExtractor(detector)

	// Name already found by regex must not be overwritten; date comes from
	// the entity because no FECHA line matched.
	text := "EMISOR: Ferretería Central S.R.L.\nDocumento emitido en Lima."
	record := extractor.Extract(context.Background(), text, "doc.pdf", nil, nil)

	assert.Equal(t, "Ferretería Central S.R.L.", record.Name)
	assert.Equal(t, "12 de enero de 2024", record.Date)
	assert.Equal(t, types.DocTypeFactura, record.DocumentType)
}

func TestAugmentFailureIsSwallowed(t *testing.T) {
	detector := &stubDetector{err: errors.New("unavailable"), retryErr: errors.New("unavailable")}
	extractor := newTestExtractor(detector)

	record := extractor.Extract(context.Background(), "PROVEEDOR: Comercial Lima Norte SAC\n", "doc.pdf", nil, nil)
	assert.Equal(t, "Comercial Lima Norte SAC", record.Name)
}

func TestExtractItemsFromTableWithHeader(t *testing.T) {
	extractor := newTestExtractor(nil)

	tables := []types.TableData{{Rows: [][]string{
		{"Producto", "Cantidad", "Precio"},
		{"Coca Cola 500ml", "10", "3.50"},
		{"Agua Cielo 2.5L", "5", "2.00"},
		{"TOTAL", "", "55.00"},
	}}}

	record := extractor.Extract(context.Background(), "", "tabla.pdf", tables, nil)

	require.Len(t, record.LineItems, 2)

	first := record.LineItems[0]
	assert.Equal(t, "Coca Cola 500ml", first.Name)
	require.NotNil(t, first.Price)
	assert.Equal(t, 3.50, *first.Price)
	assert.Equal(t, "10", first.Quantity)
	assert.Equal(t, types.CategoryGaseosas, first.Category)
	assert.Equal(t, types.SourceTable, first.Source)
	assert.Equal(t, types.ProviderUnknown, first.Provider)

	second := record.LineItems[1]
	assert.Equal(t, "Agua Cielo 2.5L", second.Name)
	assert.Equal(t, types.CategoryAguas, second.Category)
}

func TestExtractItemsFromTableWithoutHeader(t *testing.T) {
	extractor := newTestExtractor(nil)

	// No header keywords: roles come from value heuristics and every row is
	// treated as data.
	tables := []types.TableData{{Rows: [][]string{
		{"Cerveza Pilsen Callao", "8.90"},
		{"Arroz extra superior", "4.20"},
	}}}

	record := extractor.Extract(context.Background(), "", "tabla.png", tables, nil)

	require.Len(t, record.LineItems, 2)
	assert.Equal(t, "Cerveza Pilsen Callao", record.LineItems[0].Name)
	require.NotNil(t, record.LineItems[0].Price)
	assert.Equal(t, 8.90, *record.LineItems[0].Price)
}

func TestExtractItemsFromText(t *testing.T) {
	extractor := newTestExtractor(nil)

	// The leading line ends in digits so the greedy name capture cannot
	// swallow it.
	text := "Boleta 001-123\n" +
		"Leche Gloria entera 2 7.80\n" +
		"Detergente floral S/. 12.50\n"

	record := extractor.Extract(context.Background(), text, "boleta.jpg", nil, nil)

	require.NotEmpty(t, record.LineItems)

	byName := map[string]types.LineItem{}
	for _, item := range record.LineItems {
		byName[item.Name] = item
	}

	milk, ok := byName["Leche Gloria entera"]
	require.True(t, ok)
	require.NotNil(t, milk.Price)
	assert.Equal(t, 7.80, *milk.Price)
	assert.Equal(t, "2", milk.Quantity)
	assert.Equal(t, types.CategoryLacteos, milk.Category)
	assert.Equal(t, types.SourceText, milk.Source)
}

func TestDedupeItems(t *testing.T) {
	p1 := 3.5
	p2 := 3.5
	p3 := 4.0

	items := []types.LineItem{
		{Name: "Coca Cola", Price: &p1, Source: types.SourceTable},
		{Name: "Coca Cola", Price: &p2, Source: types.SourceText},
		{Name: "Coca Cola", Price: &p3},
		{Name: "Coca Cola"},
	}

	unique := dedupeItems(items)
	require.Len(t, unique, 3)
	// First occurrence wins: the table-sourced item survives.
	assert.Equal(t, types.SourceTable, unique[0].Source)

	// Idempotence: a second pass changes nothing.
	again := dedupeItems(unique)
	assert.Equal(t, unique, again)

	assert.Equal(t, itemKey(items[0]), itemKey(items[1]))
	assert.NotEqual(t, itemKey(items[0]), itemKey(items[2]))
}

func TestParsePrice(t *testing.T) {
	testCases := []struct {
		raw      string
		expected float64
		ok       bool
	}{
		{"3.50", 3.50, true},
		{"1,250.00", 1250.00, true},
		{"S/ 9.90", 9.90, true},
		{"$ 15.00", 15.00, true},
		{"", 0, false},
		{"gratis", 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			got, ok := parsePrice(tc.raw)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.expected, got)
			}
		})
	}
}
