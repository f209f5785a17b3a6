package services

import (
	"context"
	"errors"
	"math"
	"regexp"
	"strings"

	"github.com/CompraLens/compralens-backend/logger"
	"github.com/CompraLens/compralens-backend/types"
)

// Cascade thresholds and caps. Each tier runs only when the previous one
// returned desconocido; the ordering is cheap deterministic rules first,
// the paid entity service last.
const (
	fastRuleThreshold    = 1.8 // roughly two weighted keyword hits
	patternThreshold     = 1.5
	entityScoreThreshold = 0.3

	classifierMaxChars  = 2000 // entity tier input cap
	classifierRetryChar = 1000 // shorter prefix after a size-limit rejection
	minClassifiableLen  = 10
)

// keywordRule holds one label's keyword list with its per-hit weight.
// Rules are scored in declaration order; a strictly higher score is needed
// to displace an earlier label, so declaration order breaks ties.
type keywordRule struct {
	label    types.DocumentType
	weight   float64
	keywords []string
}

var fastRules = []keywordRule{
	{types.DocTypeContrato, 1.0, []string{
		"contrato de", "contrato para", "contrato n°", "contrato número",
		"contratación", "convenio", "acuerdo entre", "cláusula",
		"vigencia", "partes contratantes", "objeto del contrato",
	}},
	{types.DocTypeFactura, 1.0, []string{
		"factura electronica", "factura n°", "factura número",
		"ruc:", "igv:", "importe total", "valor venta",
		"gravada", "inafecta", "exonerada", "detracción",
	}},
	{types.DocTypeBoleta, 0.9, []string{
		"boleta de venta", "boleta n°", "boleta número",
		"consumidor final", "dni:", "documento identidad",
		"boletería", "venta al contado",
	}},
	{types.DocTypeDemanda, 0.9, []string{
		"demanda de", "juzgado", "demandante", "demandado",
		"proceso judicial", "recurso", "sentencia",
		"juez", "tribunal", "proceso número",
	}},
	{types.DocTypeEstadoCuenta, 0.9, []string{
		"estado de cuenta", "extracto bancario", "tarjeta crédito",
		"movimientos", "saldo disponible", "banco",
		"débitos", "créditos", "pago mínimo", "fecha corte",
	}},
	{types.DocTypeRecibo, 0.8, []string{
		"recibo de", "pago de", "servicio de", "mes de",
		"luz", "agua", "teléfono", "internet",
		"servicios públicos", "suministro",
	}},
	{types.DocTypeCartaNotarial, 0.8, []string{
		"carta notarial", "notaría", "notarial",
		"fe pública", "notificación", "intimación",
		"notario público", "protocolo notarial",
	}},
}

// weightedPattern is a regex with its score contribution. High-specificity
// formats (tax id, electronic invoice series) carry the larger weights.
type weightedPattern struct {
	re     *regexp.Regexp
	weight float64
}

type patternRule struct {
	label    types.DocumentType
	patterns []weightedPattern
}

var advancedPatterns = []patternRule{
	{types.DocTypeFactura, []weightedPattern{
		{regexp.MustCompile(`(?i)RUC\s*:\s*\d{11}`), 2.0},
		{regexp.MustCompile(`(?i)FACTURA\s*ELECTRÓNICA\s*:\s*[Ff]\d{3}-\d{1,9}`), 2.5},
		{regexp.MustCompile(`(?i)IGV\s*\(\d+%\)\s*:\s*S/\.\s*\d+\.\d{2}`), 1.5},
		{regexp.MustCompile(`(?i)N°\s*DE\s*DOCUMENTO\s*:\s*\d{11}`), 1.5},
		{regexp.MustCompile(`(?i)OPERACIÓN\s*GRAVADA\s*:\s*S/\.\s*\d+\.\d{2}`), 1.0},
	}},
	{types.DocTypeContrato, []weightedPattern{
		{regexp.MustCompile(`(?i)CONTRATO\s*DE\s*[A-Z\s]+\s*N°\s*\d+`), 2.0},
		{regexp.MustCompile(`(?i)CLÁUSULA\s*(PRIMERA|SEGUNDA|TERCERA|CUARTA|QUINTA|SEXTA|SÉPTIMA|OCTAVA|NOVENA|DÉCIMA)`), 1.5},
		{regexp.MustCompile(`(?i)VIGENCIA\s*:\s*DEL\s*\d{2}/\d{2}/\d{4}\s*AL\s*\d{2}/\d{2}/\d{4}`), 1.0},
		{regexp.MustCompile(`(?i)ENTRE\s*[A-Z\s]+\s*Y\s*[A-Z\s]+`), 1.0},
		{regexp.MustCompile(`(?i)OBJETO\s*DEL\s*CONTRATO`), 1.5},
	}},
	{types.DocTypeBoleta, []weightedPattern{
		{regexp.MustCompile(`(?i)BOLETA\s*DE\s*VENTA\s*ELECTRÓNICA\s*:\s*[Bb]\d{3}-\d{1,9}`), 2.0},
		{regexp.MustCompile(`(?i)DOCUMENTO\s*DE\s*IDENTIDAD\s*:\s*\d{8}`), 1.5},
		{regexp.MustCompile(`(?i)CONSUMIDOR\s*FINAL`), 1.0},
		{regexp.MustCompile(`(?i)BOLETA\s*N°\s*\d+`), 1.0},
	}},
	{types.DocTypeEstadoCuenta, []weightedPattern{
		{regexp.MustCompile(`(?i)TARJETA\s*DE\s*CRÉDITO\s*:\s*\*+\d{4}`), 2.0},
		{regexp.MustCompile(`(?i)LÍMITE\s*DE\s*CRÉDITO\s*:\s*S/\.\s*\d+\.\d{2}`), 1.5},
		{regexp.MustCompile(`(?i)FECHA\s*DE\s*CORTE\s*:\s*\d{2}/\d{2}/\d{4}`), 1.0},
		{regexp.MustCompile(`(?i)PAGO\s*MÍNIMO\s*:\s*S/\.\s*\d+\.\d{2}`), 1.0},
		{regexp.MustCompile(`(?i)SALDO\s*ANTERIOR\s*:\s*S/\.\s*\d+\.\d{2}`), 1.0},
	}},
	{types.DocTypeRecibo, []weightedPattern{
		{regexp.MustCompile(`(?i)RECIBO\s*DE\s*PAGO\s*N°\s*\d+`), 1.5},
		{regexp.MustCompile(`(?i)SERVICIO\s*DE\s*(LUZ|AGUA|TELEFONÍA|INTERNET)`), 1.0},
		{regexp.MustCompile(`(?i)PERÍODO\s*:\s*\w+\s*\d{4}`), 1.0},
		{regexp.MustCompile(`(?i)LECTURA\s*ANTERIOR\s*:\s*\d+`), 0.8},
	}},
}

// entityInferenceOrder fixes the tie-break order when inferring a label from
// entity scores.
var entityInferenceOrder = []types.DocumentType{
	types.DocTypeContrato,
	types.DocTypeFactura,
	types.DocTypeBoleta,
	types.DocTypeDemanda,
	types.DocTypeEstadoCuenta,
	types.DocTypeRecibo,
	types.DocTypeCartaNotarial,
}

var (
	bankNames     = []string{"banco", "scotiabank", "bcp", "bbva", "interbank"}
	tribunalNames = []string{"juzgado", "tribunal", "corte"}
)

// DocumentClassifier assigns a document-type label using a three-tier
// cascade: keyword scoring, regex pattern scoring, then external
// entity-based inference. It holds no mutable state beyond the external
// service handle and is safe for concurrent use. Classify never fails:
// unclassifiable input yields desconocido with zero confidence.
type DocumentClassifier struct {
	detector EntityDetector
}

// NewDocumentClassifier builds a classifier. The detector may be nil in
// regex-only deployments; the third tier then reports its own failure label
// instead of calling out.
func NewDocumentClassifier(detector EntityDetector) *DocumentClassifier {
	return &DocumentClassifier{detector: detector}
}

// Classify runs the cascade on text. Input below the minimum length
// short-circuits without invoking any tier.
func (c *DocumentClassifier) Classify(ctx context.Context, text string) types.ClassificationResult {
	if len([]rune(strings.TrimSpace(text))) < minClassifiableLen {
		return types.ClassificationResult{
			Label:      types.DocTypeDesconocido,
			Confidence: 0.0,
			Method:     types.MethodInsufficientText,
		}
	}

	if result := c.classifyFast(text); result.Label != types.DocTypeDesconocido {
		classifierTierUsage.WithLabelValues(result.Method).Inc()
		return result
	}
	if result := c.classifyByPatterns(text); result.Label != types.DocTypeDesconocido {
		classifierTierUsage.WithLabelValues(result.Method).Inc()
		return result
	}
	result := c.classifyWithEntities(ctx, text)
	classifierTierUsage.WithLabelValues(result.Method).Inc()
	return result
}

// ClassifyBatch classifies several texts sequentially, in input order.
func (c *DocumentClassifier) ClassifyBatch(ctx context.Context, texts []string) []types.ClassificationResult {
	results := make([]types.ClassificationResult, 0, len(texts))
	for _, text := range texts {
		results = append(results, c.Classify(ctx, text))
	}
	return results
}

// classifyFast sums label weights over keyword substring hits.
func (c *DocumentClassifier) classifyFast(text string) types.ClassificationResult {
	lower := strings.ToLower(text)

	best := types.DocTypeDesconocido
	bestScore := 0.0
	for _, rule := range fastRules {
		score := 0.0
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				score += rule.weight
			}
		}
		if score > bestScore {
			bestScore = score
			best = rule.label
		}
	}

	if bestScore >= fastRuleThreshold {
		return types.ClassificationResult{
			Label:      best,
			Confidence: round2(math.Min(bestScore/3.0, 0.95)),
			Method:     types.MethodFastRules,
			Score:      bestScore,
		}
	}
	return types.ClassificationResult{
		Label:  types.DocTypeDesconocido,
		Method: types.MethodFastRules,
	}
}

// classifyByPatterns sums per-pattern weights over regex matches.
func (c *DocumentClassifier) classifyByPatterns(text string) types.ClassificationResult {
	best := types.DocTypeDesconocido
	bestScore := 0.0
	for _, rule := range advancedPatterns {
		score := 0.0
		for _, p := range rule.patterns {
			if p.re.MatchString(text) {
				score += p.weight
			}
		}
		if score > bestScore {
			bestScore = score
			best = rule.label
		}
	}

	if bestScore >= patternThreshold {
		return types.ClassificationResult{
			Label:      best,
			Confidence: round2(math.Min(bestScore/4.0, 0.90)),
			Method:     types.MethodAdvancedPatterns,
			Score:      bestScore,
		}
	}
	return types.ClassificationResult{
		Label:  types.DocTypeDesconocido,
		Method: types.MethodAdvancedPatterns,
	}
}

// classifyWithEntities is the expensive last tier: it asks the external NLP
// service for entities on a capped prefix and infers a label from them. A
// size-limit rejection is retried once with a shorter prefix; any other
// failure yields the error label rather than propagating.
func (c *DocumentClassifier) classifyWithEntities(ctx context.Context, text string) types.ClassificationResult {
	if c.detector == nil {
		return types.ClassificationResult{
			Label:  types.DocTypeDesconocido,
			Method: types.MethodComprehendPanic,
		}
	}

	entities, err := c.detector.DetectEntities(ctx, truncateRunes(text, classifierMaxChars))
	if errors.Is(err, ErrTextTooLarge) {
		entities, err = c.detector.DetectEntities(ctx, truncateRunes(text, classifierRetryChar))
	}
	if err != nil {
		logger.GetLogger().Warnw("Entity classification failed", "error", err)
		return types.ClassificationResult{
			Label:  types.DocTypeErrorComprehend,
			Method: types.MethodComprehendError,
		}
	}

	label, confidence := inferFromEntities(entities)
	if len(entities) > 5 {
		entities = entities[:5]
	}
	return types.ClassificationResult{
		Label:      label,
		Confidence: confidence,
		Method:     types.MethodComprehendEntities,
		Entities:   entities,
	}
}

// inferFromEntities accumulates a per-label score from entity types and
// substring rules, then picks the best label when it clears the threshold.
func inferFromEntities(entities []types.Entity) (types.DocumentType, float64) {
	scores := map[types.DocumentType]float64{}

	for _, entity := range entities {
		text := strings.ToLower(entity.Text)

		switch entity.Type {
		case types.EntityTypeCommercialItem:
			switch {
			case strings.Contains(text, "factura"):
				scores[types.DocTypeFactura] += entity.Score * 2.0
			case strings.Contains(text, "boleta"):
				scores[types.DocTypeBoleta] += entity.Score * 2.0
			case strings.Contains(text, "contrato"):
				scores[types.DocTypeContrato] += entity.Score * 2.0
			case strings.Contains(text, "recibo"):
				scores[types.DocTypeRecibo] += entity.Score * 2.0
			}
		case types.EntityTypeOrganization:
			switch {
			case strings.Contains(text, "notaría") || strings.Contains(text, "notarial"):
				scores[types.DocTypeCartaNotarial] += entity.Score * 1.5
			case containsAny(text, bankNames):
				scores[types.DocTypeEstadoCuenta] += entity.Score * 1.2
			case containsAny(text, tribunalNames):
				scores[types.DocTypeDemanda] += entity.Score * 1.5
			}
		case types.EntityTypeQuantity:
			if strings.Contains(text, "contrato") || strings.Contains(text, "cláusula") {
				scores[types.DocTypeContrato] += entity.Score * 1.0
			}
		case types.EntityTypeOther:
			switch {
			case strings.Contains(text, "ruc"):
				scores[types.DocTypeFactura] += entity.Score * 1.5
			case strings.Contains(text, "dni"):
				scores[types.DocTypeBoleta] += entity.Score * 1.2
			case strings.Contains(text, "tarjeta"):
				scores[types.DocTypeEstadoCuenta] += entity.Score * 1.0
			}
		}
	}

	best := types.DocTypeDesconocido
	bestScore := 0.0
	for _, label := range entityInferenceOrder {
		if scores[label] > bestScore {
			bestScore = scores[label]
			best = label
		}
	}

	if bestScore <= entityScoreThreshold {
		if bestScore > 0 {
			return types.DocTypeDesconocido, round2(math.Min(bestScore*2.0, 0.95))
		}
		return types.DocTypeDesconocido, 0.0
	}
	return best, round2(math.Min(bestScore*2.0, 0.95))
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// truncateRunes caps a string at n runes without splitting a multibyte
// character.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
