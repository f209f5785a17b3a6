package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/CompraLens/compralens-backend/logger"
	"github.com/CompraLens/compralens-backend/store"
	"github.com/CompraLens/compralens-backend/types"
)

// nlpMaxChars caps the text sent to sentiment and entity detection for
// document metadata. Longer documents are analyzed on their head only.
const nlpMaxChars = 5000

// nlpMaxEntities limits how many detected entities are kept per document.
const nlpMaxEntities = 10

// DocumentInput is one uploaded file awaiting processing.
type DocumentInput struct {
	Filename string
	Data     []byte
}

// ProcessingService orchestrates a batch run: OCR, language analysis,
// provider extraction and finally cross-document aggregation. Results are
// stored as a run so handlers can serve them afterwards.
type ProcessingService struct {
	ocr        OCRProcessor
	detector   EntityDetector
	classifier *DocumentClassifier
	extractor  *ProviderExtractor
	aggregator *AggregationService
	runs       store.RunStore
}

func NewProcessingService(
	ocr OCRProcessor,
	detector EntityDetector,
	classifier *DocumentClassifier,
	extractor *ProviderExtractor,
	aggregator *AggregationService,
	runs store.RunStore,
) *ProcessingService {
	return &ProcessingService{
		ocr:        ocr,
		detector:   detector,
		classifier: classifier,
		extractor:  extractor,
		aggregator: aggregator,
		runs:       runs,
	}
}

// ProcessBatch runs the full pipeline over the inputs in the order given,
// aggregates the extracted provider records and saves the run. A document
// that fails OCR stays in the run with its ProcessingError set so the
// caller can see which files were skipped.
func (s *ProcessingService) ProcessBatch(ctx context.Context, inputs []DocumentInput) (*store.Run, error) {
	log := logger.GetLogger()
	documents := make([]types.ProcessedDocument, 0, len(inputs))
	records := make([]types.ProviderRecord, 0, len(inputs))

	for _, input := range inputs {
		doc := s.ocr.Process(ctx, input.Filename, input.Data)
		if doc.ProcessingError != "" || doc.Text == "" {
			documentFailures.Inc()
			log.Warnw("Document skipped", "filename", input.Filename, "error", doc.ProcessingError)
			documents = append(documents, doc)
			continue
		}

		doc.Analysis = s.analyzeText(ctx, doc.Text)

		record := s.extractor.Extract(ctx, doc.Text, doc.Filename, doc.Tables, doc.Forms)
		if record.DocumentType == types.DocTypeDesconocido && doc.Analysis != nil {
			label := doc.Analysis.Classification.Label
			if label != types.DocTypeDesconocido && label != types.DocTypeErrorComprehend {
				record.DocumentType = label
			}
		}
		doc.Provider = &record

		ruc := record.TaxID
		if ruc != types.NotDetected {
			ruc = logger.MaskTaxID(ruc)
		}
		log.Debugw("Document extracted",
			"filename", input.Filename,
			"provider", record.Name,
			"ruc", ruc,
			"type", record.DocumentType,
			"items", len(record.LineItems))

		documentsProcessed.Inc()
		documents = append(documents, doc)
		records = append(records, record)
	}

	analysis := s.aggregator.Aggregate(records)
	run := &store.Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Documents: documents,
		Analysis:  &analysis,
	}
	s.runs.Save(run)
	log.Infow("Batch processed", "runID", run.ID, "documents", len(documents), "providers", analysis.TotalProviders)
	return run, nil
}

// analyzeText classifies the document and, when the detector is available,
// adds sentiment and the leading entities. NLP failures degrade the result
// to classification only instead of failing the document.
func (s *ProcessingService) analyzeText(ctx context.Context, text string) *types.DocumentAnalysis {
	analysis := &types.DocumentAnalysis{
		Classification: s.classifier.Classify(ctx, text),
	}
	if s.detector == nil || text == "" {
		return analysis
	}

	log := logger.GetLogger()
	capped := truncateRunes(text, nlpMaxChars)

	sentiment, err := s.detector.DetectSentiment(ctx, capped)
	if err != nil {
		log.Debugw("Sentiment detection failed", "error", err)
	} else {
		analysis.Sentiment = sentiment
	}

	entities, err := s.detector.DetectEntities(ctx, capped)
	if err != nil {
		log.Debugw("Entity detection failed", "error", err)
		return analysis
	}
	if len(entities) > nlpMaxEntities {
		entities = entities[:nlpMaxEntities]
	}
	analysis.Entities = entities
	return analysis
}
