package services

import "github.com/CompraLens/compralens-backend/types"

const maxSuggestions = 6

var (
	invoiceSuggestions = []string{
		"Comparar proveedores y analizar costos",
		"¿Cuál proveedor es más conveniente?",
		"Mostrar tendencias de compra",
		"Resumir montos y fechas de facturas",
	}
	legalSuggestions = []string{
		"Analizar cláusulas contractuales",
		"Identificar posibles penalidades",
		"Revisar obligaciones legales",
		"Verificar fechas y plazos importantes",
	}
	multiDocSuggestions = []string{
		"Comparar contenido entre documentos",
		"Encontrar información común",
	}
	generalSuggestions = []string{
		"Resumir el contenido principal",
		"Buscar información específica",
		"Extraer datos importantes",
	}
)

// ChatSuggestions derives contextual follow-up queries from the
// document-type mix of a processed run: invoice batches get cost questions,
// legal documents get clause questions, and general prompts always close
// the list. At most six suggestions are returned, first occurrence wins.
func ChatSuggestions(documents []types.ProcessedDocument) []string {
	facturas, contratos, legal := 0, 0, 0
	for _, doc := range documents {
		if doc.Analysis == nil {
			continue
		}
		switch doc.Analysis.Classification.Label {
		case types.DocTypeFactura:
			facturas++
		case types.DocTypeContrato:
			contratos++
		case types.DocTypeDemanda, types.DocTypeCartaNotarial:
			legal++
		}
	}

	var suggestions []string
	if facturas >= 1 {
		suggestions = append(suggestions, invoiceSuggestions...)
	}
	if contratos >= 1 || legal >= 1 {
		suggestions = append(suggestions, legalSuggestions...)
	}
	if len(documents) >= 2 {
		suggestions = append(suggestions, multiDocSuggestions...)
	}
	suggestions = append(suggestions, generalSuggestions...)

	seen := map[string]struct{}{}
	unique := make([]string, 0, maxSuggestions)
	for _, s := range suggestions {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		unique = append(unique, s)
		if len(unique) == maxSuggestions {
			break
		}
	}
	return unique
}
