package bootstrap

import (
	"log"

	"offline-llm-be/internal/config"
	"offline-llm-be/internal/controller"
	"offline-llm-be/internal/pkg/logger"
	"offline-llm-be/internal/service"
	"offline-llm-be/internal/session"
	"offline-llm-be/pkg/embedding"
	embeddingJina "offline-llm-be/pkg/embedding/jina"
	"offline-llm-be/pkg/ingestion"
	llmOllama "offline-llm-be/pkg/llm/ollama"
	"offline-llm-be/pkg/llm/safechat"
	"offline-llm-be/pkg/rerank"
	rerankJina "offline-llm-be/pkg/rerank/jina"
	"offline-llm-be/pkg/store"

	pktNats "offline-llm-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type Container struct {
	// Controllers
	ChatbotController controller.IChatbotController
	QAController      controller.IQAController
	SessionController controller.ISessionController
	ModelController   controller.IModelController
	AdminController   controller.IAdminController

	// Background services (exposed for main.go to run)
	ConsumerService  service.IConsumerService
	KnowledgeService service.IKnowledgeService
	Reaper           *session.Reaper

	// Infrastructure owned until shutdown
	Logger        logger.ILogger
	NatsPublisher *pktNats.Publisher
	Permanent     *store.Collection
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	ragLogger := logger.NewIsolatedLogger("logs/rag.log")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// Initialize Embedding Provider based on Config
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "jina" {
		embeddingProvider = embeddingJina.NewJinaProvider(cfg.Ai.JinaAPIKey)
		log.Printf("[INFO] Using Embedding Provider: JINA AI")
	} else {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.EmbeddingModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)
	}

	// Chat backend plus its resilience wrapper
	llmProvider := llmOllama.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.DefaultChatModel)
	invoker := safechat.NewInvoker(llmProvider, cfg.Ai.DefaultChatModel).
		WithRetryPolicy(cfg.Rag.LoadRetries, cfg.Rag.LoadRetryDelay)
	log.Printf("[INFO] Using Chat Provider: OLLAMA (%s)", cfg.Ai.DefaultChatModel)

	// Reranker (Jina cloud by default, self-hosted when a base URL is set)
	var reranker rerank.Reranker
	if cfg.Ai.RerankBaseURL != "" {
		reranker = rerankJina.NewJinaRerankerWithURL(cfg.Ai.JinaAPIKey, cfg.Ai.RerankBaseURL)
	} else {
		reranker = rerankJina.NewJinaReranker(cfg.Ai.JinaAPIKey)
	}

	// Storage: permanent knowledge base + per-session collections
	permanent, err := store.OpenCollection(cfg.Ingest.PersistDir, "persist", embeddingProvider)
	if err != nil {
		log.Fatalf("[FATAL] Failed to open permanent collection: %v", err)
	}

	registry, err := session.NewRegistry(cfg.Session.Root, embeddingProvider)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize session registry: %v", err)
	}
	histories := session.NewHistories()

	loader := ingestion.NewFileLoader(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)

	// NATS (optional; a nil publisher is a no-op)
	var natsPub *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		}
	}

	// 3. Services
	publisherService := service.NewPublisherService(cfg.Ingest.IndexTopic, pubSub)
	knowledgeService := service.NewKnowledgeService(
		permanent,
		loader,
		publisherService,
		natsPub,
		cfg.Ingest.DocsDir,
		ragLogger,
	)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Ingest.IndexTopic,
		knowledgeService,
		ragLogger,
	)

	qaService := service.NewQAService(permanent, registry, reranker, invoker, cfg.Rag, ragLogger)
	chatService := service.NewChatService(registry, histories, invoker, natsPub, sysLogger)
	modelService := service.NewModelService(llmProvider, cfg.Ai.DefaultChatModel, sysLogger)
	sessionService := service.NewSessionService(registry, histories, loader, natsPub, sysLogger)
	adminService := service.NewAdminService(cfg.Admin, knowledgeService, sysLogger)

	reaper := session.NewReaper(registry, histories, cfg.Session.TTL, cfg.Session.SweepPeriod, sysLogger, natsPub)

	return &Container{
		ChatbotController: controller.NewChatbotController(chatService),
		QAController:      controller.NewQAController(qaService),
		SessionController: controller.NewSessionController(sessionService),
		ModelController:   controller.NewModelController(modelService),
		AdminController:   controller.NewAdminController(adminService),

		ConsumerService:  consumerService,
		KnowledgeService: knowledgeService,
		Reaper:           reaper,

		Logger:        sysLogger,
		NatsPublisher: natsPub,
		Permanent:     permanent,
	}
}
