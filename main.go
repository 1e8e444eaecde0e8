package main

import (
	"context"
	"log"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"mailagent/cmd/api"
	"mailagent/internal/agent/repository"
	"mailagent/internal/agent/scheduler"
	"mailagent/internal/agent/usecase"
	"mailagent/internal/index"
	"mailagent/internal/notification"
	"mailagent/pkg/ai"
	"mailagent/pkg/chroma"
	"mailagent/pkg/config"
	"mailagent/pkg/database"
	"mailagent/pkg/fcm"
	"mailagent/pkg/gmail"
	"mailagent/pkg/imap"
	"mailagent/pkg/resilience"
)

func main() {
	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[Main] Database connection failed: %v", err)
	}

	actionRepo := repository.NewActionRecordRepository(db)
	summaryRepo := repository.NewEmailSummaryRepository(db)
	fcmRepo := repository.NewFCMTokenRepository(db)

	// AI providers: classification and replies walk the fallback chain,
	// embeddings are pinned to a single provider so the index stays in one
	// embedding space.
	var chain []ai.Provider
	var embedProvider ai.Provider

	if cfg.GeminiApiKey != "" {
		gemini := resilience.NewBreakerProvider(ai.NewGeminiService(cfg.GeminiApiKey))
		chain = append(chain, gemini)
		if cfg.EmbedProvider == string(ai.ProviderGemini) {
			embedProvider = gemini
		}
	}
	if cfg.OpenAIApiKey != "" {
		openai := resilience.NewBreakerProvider(ai.NewOpenAIService(cfg.OpenAIApiKey, cfg.OpenAIModel))
		chain = append(chain, openai)
		if cfg.EmbedProvider == string(ai.ProviderOpenAI) {
			embedProvider = openai
		}
	}
	ollama := resilience.NewBreakerProvider(ai.NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.OllamaEmbedModel))
	chain = append(chain, ollama)
	if embedProvider == nil {
		if cfg.EmbedProvider != string(ai.ProviderOllama) {
			log.Printf("[Main] Embed provider %q not configured, using ollama", cfg.EmbedProvider)
		}
		embedProvider = ollama
	}

	provider := ai.NewFallbackService(embedProvider, chain...)
	log.Printf("[Main] AI chain ready with %d providers, embeddings pinned to %s", len(chain), embedProvider.Name())

	// Similarity index: Chroma Cloud when configured, in-memory otherwise
	var vectorIndex usecase.VectorIndex
	if cfg.ChromaAPIKey != "" {
		chromaIndex, err := chroma.NewIndex(cfg)
		if err != nil {
			log.Fatalf("[Main] Chroma index initialization failed: %v", err)
		}
		vectorIndex = chromaIndex
		log.Println("[Main] Using Chroma similarity index")
	} else {
		vectorIndex = index.NewMemoryIndex()
		log.Println("[Main] CHROMA_API_KEY not set, using in-memory similarity index (resets on restart)")
	}

	// Mail transport
	var mailProvider usecase.MailProvider
	var gmailService *gmail.Service
	switch cfg.MailProvider {
	case "imap":
		mailProvider = imap.NewService(
			cfg.ImapServer+":"+strconv.Itoa(cfg.ImapPort),
			cfg.SmtpServer, strconv.Itoa(cfg.SmtpPort),
			cfg.ImapUsername, cfg.ImapPassword, cfg.SmtpUsername,
		)
		log.Printf("[Main] Using IMAP mail provider (%s)", cfg.ImapServer)
	default:
		gmailService = gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GmailAccessToken, cfg.GmailRefreshToken)
		mailProvider = gmailService
		log.Println("[Main] Using Gmail mail provider")
	}

	// Notification sinks
	var sinks []usecase.NotificationSink
	if cfg.SlackWebhookURL != "" {
		sinks = append(sinks, notification.NewSlackSink(cfg.SlackWebhookURL))
	}
	if cfg.FirebaseCredentials != "" {
		fcmClient, err := fcm.NewClient(cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[Main] FCM initialization failed, push notifications disabled: %v", err)
		} else {
			sinks = append(sinks, notification.NewFCMSink(fcmClient, fcmRepo))
		}
	}
	if len(sinks) == 0 {
		log.Println("[Main] No notification sinks configured, notify actions will fail")
	}
	notifier := notification.NewCompositeSink(sinks...)

	// Pipeline
	embedder := usecase.NewEmbedderService(provider, cfg.EmbedTimeout)
	classifier := usecase.NewClassifierAdapter(provider, cfg.ClassifyTimeout, cfg.MinConfidence)
	detector := usecase.NewDuplicateDetector(vectorIndex, cfg.DuplicateThreshold, cfg.DuplicateK)
	dispatcher := usecase.NewActionDispatcher(actionRepo, mailProvider, notifier, provider, cfg.ClassifyTimeout, cfg.DefaultResumePath)

	pipeline := usecase.NewPipeline(mailProvider, embedder, classifier, detector, dispatcher, summaryRepo, notifier, usecase.PipelineOptions{
		Policy: usecase.DecisionPolicy{
			JobThreshold:        cfg.JobThreshold,
			AutoResponseEnabled: cfg.AutoResponseEnabled,
		},
		MaxEmails:   cfg.MaxEmailsPerCheck,
		WorkerCount: cfg.WorkerCount,
		JobKeywords: cfg.JobKeywordsList(),
	})

	sched := scheduler.NewMailScheduler(pipeline, cfg.EmailCheckInterval)
	sched.Start()
	defer sched.Stop()

	// Gmail push wake-up: watch the mailbox and listen on Pub/Sub so new
	// mail is processed before the next tick.
	if gmailService != nil && cfg.GoogleProjectID != "" {
		topicName := "projects/" + cfg.GoogleProjectID + "/topics/" + cfg.GooglePubSubTopic
		if err := gmailService.Watch(context.Background(), topicName); err != nil {
			log.Printf("[Main] Gmail watch failed, relying on polling only: %v", err)
		} else {
			listener, err := notification.NewPubSubListener(cfg.GoogleProjectID, cfg.GooglePubSubTopic, cfg.GoogleCredentials, sched.Wake)
			if err != nil {
				log.Printf("[Main] PubSub listener failed, relying on polling only: %v", err)
			} else {
				go listener.Start(context.Background())
				defer listener.Close()
			}
		}
	}

	// Operator API
	r := gin.Default()
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := api.NewAgentHandler(detector, actionRepo, summaryRepo, fcmRepo, sched, cfg.APIToken, cfg.JWTSecret)
	api.SetupRoutes(r, handler, cfg.JWTSecret)

	addr := ":" + strings.TrimPrefix(cfg.Port, ":")
	log.Printf("[Main] Server starting on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("[Main] Server failed: %v", err)
	}
}
