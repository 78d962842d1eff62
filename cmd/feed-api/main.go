// Command feed-api serves GET /feed/ and POST /feed/impressions: the
// synchronous, read-time half of the feed-serving pipeline.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"feedcore/auth"
	"feedcore/candidate"
	"feedcore/config"
	"feedcore/db"
	"feedcore/feature"
	"feedcore/featurestore"
	"feedcore/httpapi"
	"feedcore/impression"
	"feedcore/impressionstore"
	"feedcore/mailbox"
	"feedcore/media"
	"feedcore/natsclient"
	"feedcore/orchestrator"
	"feedcore/ranking"
	"feedcore/rankingservice"
	"feedcore/relational"
	"feedcore/vectorindex"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, continuing with process environment")
	}

	dbCfg, err := config.LoadDatabaseConfig("FEED_")
	if err != nil {
		log.Fatalf("failed to load database config: %v", err)
	}
	dbConn, err := db.NewConnection(dbCfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer dbConn.Close()
	log.Println("database connected")

	cfg := config.LoadFeedConfig()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		PoolSize: 20,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	log.Println("redis connected")

	nc, err := natsclient.NewClient(natsclient.Config{
		URL:      cfg.NATSURL,
		ClientID: cfg.NATSClientID + "-api",
	})
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	defer nc.Close()
	log.Println("nats connected")

	mailboxStore := mailbox.NewStore(redisClient, cfg)
	vectorIndexClient := vectorindex.NewClient(cfg.VectorIndexURL, cfg.DefaultClientTimeout)
	impressionStoreClient := impressionstore.NewClient(cfg.ImpressionStoreURL, cfg.ImpressionStoreTimeout)
	featureStoreClient := featurestore.NewClient(cfg.FeatureStoreURL, cfg.FeatureStoreTimeout)
	rankingServiceClient := rankingservice.NewClient(cfg.RankingServiceURL, cfg.RankingServiceTimeout)

	relationalRepo := relational.NewRepository(dbConn.DB)
	generator := candidate.NewGenerator(mailboxStore, vectorIndexClient, cfg)
	filter := impression.NewFilter(impressionStoreClient, cfg)
	hydrator := feature.NewHydrator(featureStoreClient)
	scorer := ranking.NewScorer(rankingServiceClient)
	producer := impression.NewProducer(nc)
	presigner := media.NewPresigner(
		os.Getenv("MEDIA_BASE_URL"),
		os.Getenv("MEDIA_SIGNING_SECRET"),
		15*time.Minute,
	)

	pipeline := orchestrator.New(relationalRepo, generator, filter, hydrator, scorer, producer, presigner, cfg)

	var verifier *auth.Verifier
	if secret := os.Getenv("JWT_SIGNING_SECRET"); secret != "" {
		verifier = auth.NewVerifier(secret)
	}
	server := httpapi.NewServer(pipeline, producer, verifier)

	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: server.Router(),
	}

	go func() {
		log.Printf("feed-api listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("feed-api server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down feed-api...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
	log.Println("feed-api stopped cleanly")
}
