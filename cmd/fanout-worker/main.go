// Command fanout-worker consumes new-post events and fans each one out to
// follower mailboxes: the asynchronous, write-time half of the feed pipeline.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"feedcore/config"
	"feedcore/db"
	"feedcore/fanout"
	"feedcore/mailbox"
	"feedcore/natsclient"
	"feedcore/socialgraph"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
		ClientID: cfg.NATSClientID + "-fanout",
	})
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	defer nc.Close()
	log.Println("nats connected")

	socialRepo := socialgraph.NewRepository(dbConn.DB)
	mailboxStore := mailbox.NewStore(redisClient, cfg)
	worker := fanout.NewWorker(nc, socialRepo, mailboxStore, cfg)

	go func() {
		if err := worker.Start(ctx); err != nil {
			log.Fatalf("fanout worker stopped with error: %v", err)
		}
	}()

	log.Println("fanout-worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down fanout-worker...")
	cancel()
	log.Println("fanout-worker stopped cleanly")
}
