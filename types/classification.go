package types

// DocumentType is the closed set of document classes the classifier can emit.
// Labels are kept in Spanish because they are part of the downstream agent
// contract and of the stored analysis snapshots.
type DocumentType string

const (
	DocTypeContrato      DocumentType = "contrato"
	DocTypeFactura       DocumentType = "factura"
	DocTypeBoleta        DocumentType = "boleta"
	DocTypeDemanda       DocumentType = "demanda"
	DocTypeEstadoCuenta  DocumentType = "estado_cuenta"
	DocTypeRecibo        DocumentType = "recibo"
	DocTypeCartaNotarial DocumentType = "carta_notarial"
	DocTypeDesconocido   DocumentType = "desconocido"

	// DocTypeErrorComprehend marks a hard failure of the external entity
	// service in the last cascade tier. It is a terminal outcome, not an error.
	DocTypeErrorComprehend DocumentType = "error_comprehend"
)

// Classification methods, recorded for auditability of which cascade tier
// produced the result.
const (
	MethodInsufficientText   = "texto_insuficiente"
	MethodFastRules          = "reglas_rapidas"
	MethodAdvancedPatterns   = "patrones_avanzados"
	MethodComprehendEntities = "comprehend_entidades"
	MethodComprehendError    = "comprehend_error"
	MethodComprehendPanic    = "comprehend_exception"
)

// ClassificationResult is the outcome of a single document classification.
// Confidence never reaches 1.0: each tier caps it below full certainty.
type ClassificationResult struct {
	Label      DocumentType `json:"clase"`
	Confidence float64      `json:"confianza"`
	Method     string       `json:"metodo"`
	Score      float64      `json:"puntaje,omitempty"`
	// Entities holds up to the first five entities returned by the external
	// service when the third tier produced the result.
	Entities []Entity `json:"entidades,omitempty"`
}
