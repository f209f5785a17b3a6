package services

import (
	"fmt"
	"strings"

	"github.com/CompraLens/compralens-backend/types"
)

// Prompt size caps, chosen to keep the agent call inside its token budget.
const (
	promptDocumentChars = 1000 // per-document excerpt
	promptTotalDocChars = 3000 // combined excerpt section
)

// PromptComposer formats the aggregation output plus raw document excerpts
// into the structured Spanish prompt the downstream agent expects. It is a
// pure formatter: it owns no I/O and never fails.
type PromptComposer struct{}

// NewPromptComposer returns the stateless composer.
func NewPromptComposer() *PromptComposer {
	return &PromptComposer{}
}

// Compose builds the full prompt for one user query against a processed run.
func (p *PromptComposer) Compose(query string, analysis *types.BatchAnalysis, documents []types.ProcessedDocument) string {
	var b strings.Builder

	b.WriteString("# CONTEXTO Y ROL\n")
	b.WriteString("Eres un **analista senior de compras y proveedores** especializado en optimización de costos.\n")
	b.WriteString("Tu objetivo principal es ayudar a tomar decisiones inteligentes sobre proveedores basadas en datos concretos.\n\n")

	b.WriteString("# FORMATO DE RESPUESTA OBLIGATORIO\n")
	b.WriteString("**SIGUE ESTRICTAMENTE este formato en español:**\n\n")
	b.WriteString("## Análisis Principal\n[Resumen ejecutivo de 2-3 líneas con la conclusión más importante]\n\n")
	b.WriteString("## Datos Comparativos\n")
	b.WriteString("- **Proveedor recomendado:** [Nombre]\n")
	b.WriteString("- **Ahorro potencial:** [Monto específico]\n")
	b.WriteString("- **Categoría:** [Categoría específica]\n")
	b.WriteString("- **Productos analizados:** [Número]\n\n")
	b.WriteString("## Recomendación Específica\n[Recomendación accionable y concreta]\n\n")
	b.WriteString("## Detalles Técnicos\n[Análisis detallado con datos específicos]\n\n")

	b.WriteString("# INFORMACIÓN DE PROVEEDORES DISPONIBLE\n")
	b.WriteString(p.providersContext(analysis))
	b.WriteString("\n# ANÁLISIS DE PRODUCTOS POR CATEGORÍA\n")
	b.WriteString(p.productsContext(analysis))
	b.WriteString("\n# RECOMENDACIONES DETECTADAS\n")
	b.WriteString(p.recommendationsContext(analysis))
	b.WriteString("\n# DOCUMENTOS PROCESADOS\n")
	b.WriteString(p.documentsContext(documents))

	fmt.Fprintf(&b, "\n# CONSULTA DEL USUARIO: %q\n\n", query)

	b.WriteString("# REGLAS ESTRICTAS:\n")
	b.WriteString("1. **SOLO usar información de los documentos proporcionados**\n")
	b.WriteString("2. **NO inventar datos o proveedores**\n")
	b.WriteString("3. **SER específico con montos y porcentajes**\n")
	b.WriteString("4. **PRIORIZAR ahorros económicos demostrables**\n")
	b.WriteString("5. **SI no hay datos suficientes, DECIRLO claramente**\n")
	b.WriteString("6. **EVITAR lenguaje genérico - ser concreto**\n")
	b.WriteString("7. **INCLUIR números específicos siempre que sea posible**\n")

	return b.String()
}

func (p *PromptComposer) providersContext(analysis *types.BatchAnalysis) string {
	if analysis == nil || len(analysis.Providers) == 0 {
		return "No se detectaron proveedores en los documentos.\n"
	}

	var b strings.Builder
	b.WriteString("## PROVEEDORES DETECTADOS:\n")
	for _, provider := range analysis.Providers {
		fmt.Fprintf(&b, "\n**%s**\n", provider.Name)
		fmt.Fprintf(&b, "- Fecha: %s\n", provider.Date)
		fmt.Fprintf(&b, "- Total documento: %s\n", formatAmount(provider.Total))
		fmt.Fprintf(&b, "- Productos: %d\n", len(provider.LineItems))
		if provider.TaxID != types.NotDetected {
			fmt.Fprintf(&b, "- RUC: %s\n", provider.TaxID)
		}
	}
	return b.String()
}

func (p *PromptComposer) productsContext(analysis *types.BatchAnalysis) string {
	if analysis == nil || len(analysis.CategoryStats) == 0 {
		return "No hay análisis de productos disponible.\n"
	}

	var b strings.Builder
	b.WriteString("## ANÁLISIS POR CATEGORÍAS:\n")
	for category, stats := range analysis.CategoryStats {
		fmt.Fprintf(&b, "\n**%s**\n", strings.ToUpper(string(category)))
		fmt.Fprintf(&b, "- Precio promedio: S/. %.2f\n", stats.AveragePrice)
		fmt.Fprintf(&b, "- Rango: S/. %.2f - S/. %.2f\n", stats.MinPrice, stats.MaxPrice)
		fmt.Fprintf(&b, "- Proveedores: %s\n", strings.Join(firstN(stats.Providers, 3), ", "))
		fmt.Fprintf(&b, "- Total productos: %d\n", stats.TotalItems)
	}
	return b.String()
}

func (p *PromptComposer) recommendationsContext(analysis *types.BatchAnalysis) string {
	if analysis == nil {
		return "No hay recomendaciones disponibles.\n"
	}
	recs := analysis.Recommendations
	if len(recs.BestProviders) == 0 && len(recs.PotentialSavings) == 0 {
		return "No hay recomendaciones disponibles.\n"
	}

	var b strings.Builder
	b.WriteString("## OPORTUNIDADES IDENTIFICADAS:\n")

	if len(recs.BestProviders) > 0 {
		b.WriteString("\n**MEJORES PROVEEDORES POR CATEGORÍA:**\n")
		for category, best := range recs.BestProviders {
			fmt.Fprintf(&b, "- %s: %s (S/. %.2f)\n", category, best.Provider, best.Price)
		}
	}
	if len(recs.PotentialSavings) > 0 {
		b.WriteString("\n**AHORROS POTENCIALES:**\n")
		for _, saving := range recs.PotentialSavings {
			fmt.Fprintf(&b, "- %s: S/. %.2f con %s\n", saving.Category, saving.EstimatedSavings, saving.RecommendedProvider)
		}
	}
	return b.String()
}

// documentsContext concatenates capped per-document excerpts so the agent
// receives raw source material alongside the derived analysis.
func (p *PromptComposer) documentsContext(documents []types.ProcessedDocument) string {
	var b strings.Builder
	for i, doc := range documents {
		if strings.TrimSpace(doc.Text) == "" {
			continue
		}
		if b.Len() >= promptTotalDocChars {
			break
		}
		fmt.Fprintf(&b, "\n--- DOCUMENTO %d ---\n%s", i+1, truncateRunes(doc.Text, promptDocumentChars))
	}
	if b.Len() == 0 {
		return "No hay documentos procesados.\n"
	}
	return truncateRunes(b.String(), promptTotalDocChars) + "\n"
}

func formatAmount(a types.Amount) string {
	if a.Value != nil {
		return fmt.Sprintf("S/. %.2f", *a.Value)
	}
	if a.Raw != "" {
		return a.Raw
	}
	return types.NotDetected
}

func firstN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
