package services

import (
	"fmt"
	"os"
	"strings"

	"github.com/CompraLens/compralens-backend/types"
	"gopkg.in/yaml.v3"
)

// defaultCategoryRules is the built-in product category table. Rules are
// evaluated in declaration order and the first keyword hit wins, even when a
// later category would match more specifically ("cristal" claims aguas
// before cervezas, for example). Downstream analyses depend on this
// tie-break, so the order is part of the contract.
var defaultCategoryRules = []types.CategoryRule{
	{Label: types.CategoryGaseosas, Keywords: []string{"coca", "pepsi", "sprite", "fanta", "inca", "cola", "gaseosa", "refresco"}},
	{Label: types.CategoryAguas, Keywords: []string{"agua", "cielo", "cristal", "mineral", "aqua"}},
	{Label: types.CategoryCervezas, Keywords: []string{"pilsen", "cristal", "cusqueña", "heineken", "corona", "cerveza", "lager"}},
	{Label: types.CategoryJugos, Keywords: []string{"jugo", "néctar", "refresco", "pulp", "zumo"}},
	{Label: types.CategoryLacteos, Keywords: []string{"leche", "yogur", "queso", "mantequilla", "lácteo", "crema"}},
	{Label: types.CategoryCarnes, Keywords: []string{"pollo", "carne", "pescado", "res", "cerdo", "vacuno", "filete"}},
	{Label: types.CategoryGranos, Keywords: []string{"arroz", "fideo", "harina", "maíz", "trigo", "avena", "quinua"}},
	{Label: types.CategoryBasicos, Keywords: []string{"aceite", "azúcar", "sal", "pan", "huevo", "aceituna"}},
	{Label: types.CategoryFrutasVerduras, Keywords: []string{"fruta", "verdura", "legumbre", "vegetal", "tomate", "cebolla"}},
	{Label: types.CategoryLimpieza, Keywords: []string{"jabón", "detergente", "limpiador", "cloro", "lavavajilla"}},
	{Label: types.CategoryElectronicos, Keywords: []string{"tv", "televisor", "celular", "tablet", "laptop", "computadora"}},
}

// ProductCategorizer maps free-text product names to a fixed category set.
// It is stateless and safe for concurrent use.
type ProductCategorizer struct {
	rules []types.CategoryRule
}

// NewProductCategorizer returns a categorizer with the built-in rule table.
func NewProductCategorizer() *ProductCategorizer {
	return &ProductCategorizer{rules: defaultCategoryRules}
}

// NewProductCategorizerFromFile loads a rule override file (YAML). The file
// replaces the built-in table entirely; rule order in the file is preserved.
func NewProductCategorizerFromFile(path string) (*ProductCategorizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading category rules: %w", err)
	}
	var file types.CategoryRulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing category rules: %w", err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("category rules file %s defines no categories", path)
	}
	return &ProductCategorizer{rules: file.Categories}, nil
}

// Categorize returns the first category (in rule order) whose keyword list
// matches the lower-cased product name as a substring, or CategoryOtros.
// It is total and deterministic.
func (c *ProductCategorizer) Categorize(productName string) types.CategoryLabel {
	name := strings.ToLower(productName)
	for _, rule := range c.rules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(name, keyword) {
				return rule.Label
			}
		}
	}
	return types.CategoryOtros
}
