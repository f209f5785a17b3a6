package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CompraLens/compralens-backend/types"
)

func TestCategorize(t *testing.T) {
	categorizer := NewProductCategorizer()

	testCases := []struct {
		name     string
		product  string
		expected types.CategoryLabel
	}{
		{name: "soda brand", product: "Coca Cola 500ml", expected: types.CategoryGaseosas},
		{name: "water brand", product: "Agua Cielo 2.5L", expected: types.CategoryAguas},
		{name: "beer brand", product: "Cerveza Pilsen Callao", expected: types.CategoryCervezas},
		{name: "juice", product: "Néctar de durazno", expected: types.CategoryJugos},
		{name: "dairy", product: "Yogur natural griego", expected: types.CategoryLacteos},
		{name: "meat", product: "Filete de pollo congelado", expected: types.CategoryCarnes},
		{name: "grain", product: "Arroz extra superior 5kg", expected: types.CategoryGranos},
		{name: "staple", product: "Aceite vegetal 1L", expected: types.CategoryBasicos},
		{name: "produce", product: "Tomate italiano x kg", expected: types.CategoryFrutasVerduras},
		{name: "cleaning", product: "Detergente en polvo floral", expected: types.CategoryLimpieza},
		{name: "electronics", product: "Televisor 50 pulgadas", expected: types.CategoryElectronicos},
		{name: "uppercase input", product: "PEPSI 3L", expected: types.CategoryGaseosas},
		{name: "no match", product: "Silla plegable", expected: types.CategoryOtros},
		{name: "empty name", product: "", expected: types.CategoryOtros},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, categorizer.Categorize(tc.product))
		})
	}
}

func TestCategorizeOrderTieBreak(t *testing.T) {
	categorizer := NewProductCategorizer()

	// "cristal" appears in both the water and the beer keyword lists; the
	// earlier rule wins.
	assert.Equal(t, types.CategoryAguas, categorizer.Categorize("Cristal 650ml"))

	// "refresco" appears under gaseosas before jugos.
	assert.Equal(t, types.CategoryGaseosas, categorizer.Categorize("Refresco de maracuyá"))
}

func TestNewProductCategorizerFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `categories:
  - label: ferreteria
    keywords: [martillo, clavo, tornillo]
  - label: otros_liquidos
    keywords: [liquido]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	categorizer, err := NewProductCategorizerFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, types.CategoryLabel("ferreteria"), categorizer.Categorize("Martillo de goma"))
	// The override replaces the built-in table entirely
	assert.Equal(t, types.CategoryOtros, categorizer.Categorize("Coca Cola 500ml"))
}

func TestNewProductCategorizerFromFileErrors(t *testing.T) {
	_, err := NewProductCategorizerFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("categories: []\n"), 0o600))
	_, err = NewProductCategorizerFromFile(empty)
	assert.Error(t, err)
}
