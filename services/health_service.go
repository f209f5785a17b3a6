package services

import (
	"context"
	"time"

	"github.com/CompraLens/compralens-backend/types"
)

// HealthService reports readiness of the pipeline's external dependencies.
// Checks are configuration based rather than live probes: pinging Textract
// or Bedrock on every health check would bill per request.
type HealthService struct {
	version        string
	startTime      time.Time
	bucketSet      bool
	agentSet       bool
	detectorWiring bool
}

func NewHealthService(version string, bucketSet, agentSet, detectorSet bool) *HealthService {
	return &HealthService{
		version:        version,
		startTime:      time.Now(),
		bucketSet:      bucketSet,
		agentSet:       agentSet,
		detectorWiring: detectorSet,
	}
}

// CheckHealth returns the aggregate status. Missing optional components
// degrade the service instead of taking it down: synchronous image OCR and
// rule-based classification keep working without a bucket or an agent.
func (s *HealthService) CheckHealth(ctx context.Context) types.HealthCheck {
	components := map[string]types.HealthStatus{
		"ocr":        types.HealthStatusUp,
		"nlp":        componentStatus(s.detectorWiring),
		"storage":    componentStatus(s.bucketSet),
		"chat_agent": componentStatus(s.agentSet),
	}

	status := types.HealthStatusUp
	for _, cs := range components {
		if cs != types.HealthStatusUp {
			status = types.HealthStatusDegraded
			break
		}
	}

	return types.HealthCheck{
		Status:     status,
		Version:    s.version,
		Uptime:     time.Since(s.startTime).Round(time.Second).String(),
		Timestamp:  time.Now().UTC(),
		Components: components,
	}
}

func componentStatus(configured bool) types.HealthStatus {
	if configured {
		return types.HealthStatusUp
	}
	return types.HealthStatusDown
}
