package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/comprehend"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/textract"

	"github.com/CompraLens/compralens-backend/config"
	"github.com/CompraLens/compralens-backend/handlers"
	"github.com/CompraLens/compralens-backend/logger"
	"github.com/CompraLens/compralens-backend/router"
	"github.com/CompraLens/compralens-backend/services"
	"github.com/CompraLens/compralens-backend/store"
)

const version = "1.0.0"

func main() {
	// Initialize logger
	logger.InitLogger()
	log := logger.GetLogger()
	defer func() {
		_ = logger.Close()
	}()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// AWS clients
	awsCfg, err := loadAWSConfig(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	textractClient := textract.NewFromConfig(awsCfg)
	comprehendClient := comprehend.NewFromConfig(awsCfg)
	s3Client := s3.NewFromConfig(awsCfg)
	bedrockClient := bedrockagentruntime.NewFromConfig(awsCfg)

	// Services
	detector := services.NewComprehendService(comprehendClient)
	classifier := services.NewDocumentClassifier(detector)

	categorizer, err := loadCategorizer(cfg.Processing.CategoryRulesPath)
	if err != nil {
		log.Fatalf("Failed to load category rules: %v", err)
	}
	extractor := services.NewProviderExtractor(detector, categorizer)

	ocr := services.NewTextractService(textractClient, s3Client, cfg.AWS.BucketName).
		WithPollInterval(time.Duration(cfg.Processing.TextractPollSeconds) * time.Second)

	runs := store.NewMemoryRunStore()
	processor := services.NewProcessingService(ocr, detector, classifier, extractor,
		services.NewAggregationService(), runs)

	agent := services.NewAgentService(bedrockClient, cfg.Agent.SupervisorAgentID, cfg.Agent.SupervisorAliasID)
	healthService := services.NewHealthService(version,
		cfg.AWS.BucketName != "",
		cfg.Agent.SupervisorAgentID != "" && cfg.Agent.SupervisorAliasID != "",
		true,
	)

	// Handlers
	deps := router.Dependencies{
		Config: cfg,
		DocumentHandler: handlers.NewDocumentHandler(processor, runs,
			cfg.Processing.MaxUploadSizeMB, cfg.Processing.MaxFilesPerBatch),
		ChatHandler:   handlers.NewChatHandler(agent, services.NewPromptComposer(), runs),
		HealthHandler: handlers.NewHealthHandler(healthService),
		Logger:        log,
	}

	r := router.SetupRouter(deps)
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		log.Fatalf("Failed to set trusted proxies: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server shutdown failed: %v", err)
	}
}

// loadAWSConfig resolves AWS credentials, preferring static keys from the
// environment and falling back to the SDK's default chain.
func loadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWS.Region),
	}
	if cfg.AWS.AccessKeyID != "" && cfg.AWS.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AWS.AccessKeyID,
				cfg.AWS.SecretAccessKey,
				cfg.AWS.SessionToken,
			),
		))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// loadCategorizer uses the built-in keyword rules unless an override file
// is configured.
func loadCategorizer(path string) (*services.ProductCategorizer, error) {
	if path == "" {
		return services.NewProductCategorizer(), nil
	}
	return services.NewProductCategorizerFromFile(path)
}
