package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	txtypes "github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/gabriel-vasile/mimetype"

	"github.com/CompraLens/compralens-backend/logger"
	"github.com/CompraLens/compralens-backend/types"
)

const (
	storageKeyPrefix    = "textract-input"
	defaultPollInterval = 5 * time.Second
)

// OCRProcessor is the contract the batch pipeline needs from the document
// understanding service: turn raw bytes into structured text/tables/forms.
// Implementations degrade per file instead of failing the batch.
type OCRProcessor interface {
	Process(ctx context.Context, filename string, data []byte) types.ProcessedDocument
}

// TextractService runs documents through AWS Textract. PDFs go through the
// async S3-backed analysis job; images use the synchronous API. Both paths
// request table and form features.
type TextractService struct {
	client       *textract.Client
	storage      *s3.Client
	bucket       string
	pollInterval time.Duration
}

var _ OCRProcessor = (*TextractService)(nil)

// NewTextractService builds the OCR adapter around Textract and S3 clients.
func NewTextractService(client *textract.Client, storage *s3.Client, bucket string) *TextractService {
	return &TextractService{
		client:       client,
		storage:      storage,
		bucket:       bucket,
		pollInterval: defaultPollInterval,
	}
}

// WithPollInterval overrides the cadence of async job status checks.
func (s *TextractService) WithPollInterval(d time.Duration) *TextractService {
	if d > 0 {
		s.pollInterval = d
	}
	return s
}

// Process analyzes one document. Failures fall back first to text-only
// detection and finally to an error placeholder, so a single bad file never
// aborts a batch.
func (s *TextractService) Process(ctx context.Context, filename string, data []byte) types.ProcessedDocument {
	log := logger.GetLogger()

	doc, err := s.analyze(ctx, filename, data)
	if err == nil {
		doc.ComputeMetrics()
		return doc
	}
	log.Warnw("Document analysis failed, falling back to text detection", "file", filename, "error", err)

	text, textErr := s.detectText(ctx, data)
	if textErr == nil {
		doc := types.ProcessedDocument{
			Filename: filename,
			Text:     text,
			Forms:    map[string]string{},
			Pages:    1,
		}
		doc.ComputeMetrics()
		return doc
	}
	log.Errorw("Text detection fallback failed", "file", filename, "error", textErr)

	return types.ProcessedDocument{
		Filename:        filename,
		Forms:           map[string]string{},
		Pages:           1,
		ProcessingError: fmt.Sprintf("Error procesando archivo: %v", err),
	}
}

// analyze routes the document to the async or sync Textract path and parses
// the returned blocks.
func (s *TextractService) analyze(ctx context.Context, filename string, data []byte) (types.ProcessedDocument, error) {
	storageURI, key, err := s.upload(ctx, filename, data)
	if err != nil {
		return types.ProcessedDocument{}, err
	}

	var blocks []txtypes.Block
	if isPDF(filename, data) {
		blocks, err = s.analyzeAsync(ctx, key)
	} else {
		blocks, err = s.analyzeSync(ctx, data)
	}
	if err != nil {
		return types.ProcessedDocument{}, err
	}

	doc := parseBlocks(blocks)
	doc.Filename = filename
	doc.StorageURI = storageURI
	return doc, nil
}

// upload stores the raw document under a timestamped key so Textract's
// async API can reference it.
func (s *TextractService) upload(ctx context.Context, filename string, data []byte) (uri, key string, err error) {
	key = fmt.Sprintf("%s/%d_%s", storageKeyPrefix, time.Now().Unix(), strings.ReplaceAll(filename, " ", "_"))
	_, err = s.storage.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", "", fmt.Errorf("uploading %s: %w", filename, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), key, nil
}

// analyzeAsync starts a document analysis job for the uploaded object and
// polls until it finishes, collecting all result pages.
func (s *TextractService) analyzeAsync(ctx context.Context, key string) ([]txtypes.Block, error) {
	start, err := s.client.StartDocumentAnalysis(ctx, &textract.StartDocumentAnalysisInput{
		DocumentLocation: &txtypes.DocumentLocation{
			S3Object: &txtypes.S3Object{
				Bucket: aws.String(s.bucket),
				Name:   aws.String(key),
			},
		},
		FeatureTypes: []txtypes.FeatureType{txtypes.FeatureTypeTables, txtypes.FeatureTypeForms},
	})
	if err != nil {
		return nil, fmt.Errorf("starting document analysis: %w", err)
	}

	jobID := aws.ToString(start.JobId)
	var blocks []txtypes.Block
	var nextToken *string

	for {
		out, err := s.client.GetDocumentAnalysis(ctx, &textract.GetDocumentAnalysisInput{
			JobId:     aws.String(jobID),
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("polling document analysis: %w", err)
		}

		switch out.JobStatus {
		case txtypes.JobStatusSucceeded:
			blocks = append(blocks, out.Blocks...)
			if out.NextToken == nil {
				return blocks, nil
			}
			nextToken = out.NextToken
		case txtypes.JobStatusFailed:
			return nil, fmt.Errorf("document analysis job %s failed: %s", jobID, aws.ToString(out.StatusMessage))
		default:
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.pollInterval):
			}
		}
	}
}

func (s *TextractService) analyzeSync(ctx context.Context, data []byte) ([]txtypes.Block, error) {
	out, err := s.client.AnalyzeDocument(ctx, &textract.AnalyzeDocumentInput{
		Document:     &txtypes.Document{Bytes: data},
		FeatureTypes: []txtypes.FeatureType{txtypes.FeatureTypeTables, txtypes.FeatureTypeForms},
	})
	if err != nil {
		return nil, fmt.Errorf("analyzing document: %w", err)
	}
	return out.Blocks, nil
}

// detectText is the text-only fallback used when full analysis fails.
func (s *TextractService) detectText(ctx context.Context, data []byte) (string, error) {
	out, err := s.client.DetectDocumentText(ctx, &textract.DetectDocumentTextInput{
		Document: &txtypes.Document{Bytes: data},
	})
	if err != nil {
		return "", fmt.Errorf("detecting document text: %w", err)
	}

	var lines []string
	for _, block := range out.Blocks {
		if block.BlockType == txtypes.BlockTypeLine {
			lines = append(lines, aws.ToString(block.Text))
		}
	}
	return strings.Join(lines, "\n"), nil
}

func isPDF(filename string, data []byte) bool {
	if strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return true
	}
	return mimetype.Detect(data).Is("application/pdf")
}

// parseBlocks reconstructs the linear transcript, the 2-D tables, and the
// form key/value map from a flat Textract block list.
func parseBlocks(blocks []txtypes.Block) types.ProcessedDocument {
	byID := make(map[string]txtypes.Block, len(blocks))
	for _, block := range blocks {
		byID[aws.ToString(block.Id)] = block
	}

	var lines []string
	forms := map[string]string{}
	var tables []types.TableData
	pages := 0

	for _, block := range blocks {
		switch block.BlockType {
		case txtypes.BlockTypeLine:
			lines = append(lines, aws.ToString(block.Text))
		case txtypes.BlockTypePage:
			pages++
		case txtypes.BlockTypeKeyValueSet:
			if hasEntityType(block, txtypes.EntityTypeKey) {
				key := blockText(block, byID)
				if strings.TrimSpace(key) != "" {
					forms[key] = valueForKey(block, byID)
				}
			}
		case txtypes.BlockTypeTable:
			if table := parseTable(block, byID); !table.Empty() {
				tables = append(tables, table)
			}
		}
	}

	if pages == 0 {
		pages = 1
	}
	return types.ProcessedDocument{
		Text:   strings.Join(lines, "\n"),
		Tables: tables,
		Forms:  forms,
		Pages:  pages,
	}
}

func hasEntityType(block txtypes.Block, t txtypes.EntityType) bool {
	for _, et := range block.EntityTypes {
		if et == t {
			return true
		}
	}
	return false
}

// blockText concatenates a block's own text with its child word blocks.
func blockText(block txtypes.Block, byID map[string]txtypes.Block) string {
	var parts []string
	if t := aws.ToString(block.Text); t != "" {
		parts = append(parts, t)
	}
	for _, rel := range block.Relationships {
		if rel.Type != txtypes.RelationshipTypeChild {
			continue
		}
		for _, id := range rel.Ids {
			if child, ok := byID[id]; ok {
				if t := aws.ToString(child.Text); t != "" {
					parts = append(parts, t)
				}
			}
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// valueForKey follows the VALUE relationship of a form key block.
func valueForKey(keyBlock txtypes.Block, byID map[string]txtypes.Block) string {
	for _, rel := range keyBlock.Relationships {
		if rel.Type != txtypes.RelationshipTypeValue {
			continue
		}
		for _, id := range rel.Ids {
			if value, ok := byID[id]; ok {
				return blockText(value, byID)
			}
		}
	}
	return ""
}

// parseTable rebuilds the row/column grid from a table block's cells and
// drops fully empty rows and columns.
func parseTable(tableBlock txtypes.Block, byID map[string]txtypes.Block) types.TableData {
	var cells []txtypes.Block
	for _, rel := range tableBlock.Relationships {
		if rel.Type != txtypes.RelationshipTypeChild {
			continue
		}
		for _, id := range rel.Ids {
			if child, ok := byID[id]; ok && child.BlockType == txtypes.BlockTypeCell {
				cells = append(cells, child)
			}
		}
	}
	if len(cells) == 0 {
		return types.TableData{}
	}

	maxRow, maxCol := 0, 0
	for _, cell := range cells {
		if r := int(aws.ToInt32(cell.RowIndex)); r > maxRow {
			maxRow = r
		}
		if c := int(aws.ToInt32(cell.ColumnIndex)); c > maxCol {
			maxCol = c
		}
	}
	if maxRow == 0 || maxCol == 0 {
		return types.TableData{}
	}

	grid := make([][]string, maxRow)
	for i := range grid {
		grid[i] = make([]string, maxCol)
	}
	for _, cell := range cells {
		row := int(aws.ToInt32(cell.RowIndex)) - 1
		col := int(aws.ToInt32(cell.ColumnIndex)) - 1
		if row >= 0 && row < maxRow && col >= 0 && col < maxCol {
			grid[row][col] = blockText(cell, byID)
		}
	}

	return types.TableData{Rows: compactGrid(grid)}
}

// compactGrid removes rows and columns that are entirely empty.
func compactGrid(grid [][]string) [][]string {
	colUsed := map[int]bool{}
	var rows [][]string
	for _, row := range grid {
		empty := true
		for col, cell := range row {
			if strings.TrimSpace(cell) != "" {
				empty = false
				colUsed[col] = true
			}
		}
		if !empty {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil
	}

	var compacted [][]string
	for _, row := range rows {
		var kept []string
		for col, cell := range row {
			if colUsed[col] {
				kept = append(kept, cell)
			}
		}
		compacted = append(compacted, kept)
	}
	return compacted
}
