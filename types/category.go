package types

// CategoryLabel is one of the fixed product categories (or "otros").
type CategoryLabel string

const (
	CategoryGaseosas       CategoryLabel = "gaseosas"
	CategoryAguas          CategoryLabel = "aguas"
	CategoryCervezas       CategoryLabel = "cervezas"
	CategoryJugos          CategoryLabel = "jugos"
	CategoryLacteos        CategoryLabel = "lácteos"
	CategoryCarnes         CategoryLabel = "carnes"
	CategoryGranos         CategoryLabel = "granos"
	CategoryBasicos        CategoryLabel = "básicos"
	CategoryFrutasVerduras CategoryLabel = "frutas_verduras"
	CategoryLimpieza       CategoryLabel = "limpieza"
	CategoryElectronicos   CategoryLabel = "electrónicos"
	CategoryOtros          CategoryLabel = "otros"
)

// CategoryRule pairs a category with the keywords that claim a product for
// it. Rules are evaluated in declaration order and the first match wins,
// so a slice (not a map) preserves the tie-break behavior.
type CategoryRule struct {
	Label    CategoryLabel `yaml:"name" json:"name"`
	Keywords []string      `yaml:"keywords" json:"keywords"`
}

// CategoryRulesFile is the on-disk shape of an optional rule override file.
type CategoryRulesFile struct {
	Categories []CategoryRule `yaml:"categories"`
}
