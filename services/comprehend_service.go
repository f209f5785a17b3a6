package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/comprehend"
	comprehendtypes "github.com/aws/aws-sdk-go-v2/service/comprehend/types"

	"github.com/CompraLens/compralens-backend/types"
)

// ErrTextTooLarge signals that the NLP service rejected the input for size.
// Callers recover by truncating and retrying; any other upstream failure is
// not retried.
var ErrTextTooLarge = errors.New("text exceeds NLP service size limit")

// EntityDetector is the narrow contract the pipeline needs from the external
// entity/sentiment NLP service. Language is fixed to Spanish by the
// implementation.
type EntityDetector interface {
	DetectEntities(ctx context.Context, text string) ([]types.Entity, error)
	DetectSentiment(ctx context.Context, text string) (*types.SentimentResult, error)
}

// ComprehendService implements EntityDetector on AWS Comprehend.
type ComprehendService struct {
	client *comprehend.Client
}

var _ EntityDetector = (*ComprehendService)(nil)

// NewComprehendService wraps an AWS Comprehend client.
func NewComprehendService(client *comprehend.Client) *ComprehendService {
	return &ComprehendService{client: client}
}

// DetectEntities returns the named entities found in text. A size-limit
// rejection is mapped to ErrTextTooLarge so the caller can truncate.
func (s *ComprehendService) DetectEntities(ctx context.Context, text string) ([]types.Entity, error) {
	out, err := s.client.DetectEntities(ctx, &comprehend.DetectEntitiesInput{
		Text:         aws.String(text),
		LanguageCode: comprehendtypes.LanguageCodeEs,
	})
	if err != nil {
		var sizeErr *comprehendtypes.TextSizeLimitExceededException
		if errors.As(err, &sizeErr) {
			return nil, fmt.Errorf("%w: %v", ErrTextTooLarge, err)
		}
		return nil, fmt.Errorf("detect entities: %w", err)
	}

	entities := make([]types.Entity, 0, len(out.Entities))
	for _, e := range out.Entities {
		entities = append(entities, types.Entity{
			Text:  aws.ToString(e.Text),
			Type:  string(e.Type),
			Score: float64(aws.ToFloat32(e.Score)),
		})
	}
	return entities, nil
}

// DetectSentiment returns the document-level sentiment with per-class scores.
func (s *ComprehendService) DetectSentiment(ctx context.Context, text string) (*types.SentimentResult, error) {
	out, err := s.client.DetectSentiment(ctx, &comprehend.DetectSentimentInput{
		Text:         aws.String(text),
		LanguageCode: comprehendtypes.LanguageCodeEs,
	})
	if err != nil {
		var sizeErr *comprehendtypes.TextSizeLimitExceededException
		if errors.As(err, &sizeErr) {
			return nil, fmt.Errorf("%w: %v", ErrTextTooLarge, err)
		}
		return nil, fmt.Errorf("detect sentiment: %w", err)
	}

	result := &types.SentimentResult{
		Sentiment: string(out.Sentiment),
		Scores:    map[string]float64{},
	}
	if s := out.SentimentScore; s != nil {
		result.Scores["Positive"] = float64(aws.ToFloat32(s.Positive))
		result.Scores["Negative"] = float64(aws.ToFloat32(s.Negative))
		result.Scores["Neutral"] = float64(aws.ToFloat32(s.Neutral))
		result.Scores["Mixed"] = float64(aws.ToFloat32(s.Mixed))
	}
	return result, nil
}
