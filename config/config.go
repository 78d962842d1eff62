// Package config loads feedcore's environment-driven configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds relational store configuration.
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// LoadDatabaseConfig loads database configuration from environment variables.
func LoadDatabaseConfig(prefix string) (*DatabaseConfig, error) {
	cfg := &DatabaseConfig{
		Host:         getEnv(prefix+"DB_HOST", "postgres"),
		User:         getEnv(prefix+"DB_USER", "postgres"),
		Password:     getEnv(prefix+"DB_PASSWORD", "postgres"),
		DBName:       getEnv(prefix+"DB_NAME", "feedcore"),
		SSLMode:      getEnv(prefix+"DB_SSLMODE", "disable"),
		MaxOpenConns: getEnvAsInt(prefix+"DB_MAX_OPEN_CONNS", 20),
		MaxIdleConns: getEnvAsInt(prefix+"DB_MAX_IDLE_CONNS", 10),
		MaxLifetime:  getEnvAsDuration(prefix+"DB_MAX_LIFETIME", 5*time.Minute),
	}

	var err error
	cfg.Port, err = strconv.Atoi(getEnv(prefix+"DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid database port: %w", err)
	}

	if cfg.DBName == "" {
		return nil, fmt.Errorf("database name is required (set %sDB_NAME)", prefix)
	}

	return cfg, nil
}

// FeedConfig holds the ranking-pipeline's tunable constants.
type FeedConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NATSURL      string
	NATSClientID string

	VectorIndexURL    string
	FeatureStoreURL   string
	RankingServiceURL string
	ImpressionStoreURL string

	MailboxTTL        time.Duration
	MailboxMaxSize    int
	RankingCandidateLimit int
	FeedPageSize      int
	MaxAuthorPosts    int
	MaxCandidates     int
	FanOutFollowerCap int
	ImpressionLookback time.Duration
	EmbeddingDimension int

	FeatureStoreTimeout   time.Duration
	RankingServiceTimeout time.Duration
	ImpressionStoreTimeout time.Duration
	DefaultClientTimeout  time.Duration
	RequestDeadline       time.Duration

	HTTPPort string
}

// LoadFeedConfig reads every feed-pipeline setting from the environment,
// falling back to sensible production defaults.
func LoadFeedConfig() *FeedConfig {
	return &FeedConfig{
		RedisAddr:     getEnv("REDIS_URL", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		NATSURL:      getEnv("NATS_URL", "nats://nats:4222"),
		NATSClientID: getEnv("NATS_CLIENT_ID", "feedcore"),

		VectorIndexURL:      getEnv("VECTOR_INDEX_URL", "http://vector-index:8090"),
		FeatureStoreURL:     getEnv("FEATURE_STORE_URL", "http://ranking-features:6566"),
		RankingServiceURL:   getEnv("RANKING_SERVICE_URL", "http://ranking-service:9000"),
		ImpressionStoreURL:  getEnv("IMPRESSION_STORE_URL", "http://impression-store:8099"),

		MailboxTTL:            getEnvAsDuration("REDIS_FEED_TTL", 24*time.Hour),
		MailboxMaxSize:        getEnvAsInt("REDIS_FEED_MAX_SIZE", 500),
		RankingCandidateLimit: getEnvAsInt("RANKING_CANDIDATE_LIMIT", 100),
		FeedPageSize:          getEnvAsInt("FEED_PAGE_SIZE", 20),
		MaxAuthorPosts:        getEnvAsInt("MAX_AUTHOR_POSTS", 2),
		MaxCandidates:         getEnvAsInt("MAX_CANDIDATES", 150),
		FanOutFollowerCap:     getEnvAsInt("FAN_OUT_FOLLOWER_CAP", 10000),
		ImpressionLookback:    time.Duration(getEnvAsInt("PINOT_LOOKBACK_HOURS", 24)) * time.Hour,
		EmbeddingDimension:    getEnvAsInt("EMBEDDING_DIMENSION", 384),

		FeatureStoreTimeout:    getEnvAsDuration("FEATURE_STORE_TIMEOUT", 1500*time.Millisecond),
		RankingServiceTimeout:  getEnvAsDuration("RANKING_SERVICE_TIMEOUT", 2*time.Second),
		ImpressionStoreTimeout: getEnvAsDuration("IMPRESSION_STORE_TIMEOUT", 5*time.Second),
		DefaultClientTimeout:   getEnvAsDuration("DEFAULT_CLIENT_TIMEOUT", 10*time.Second),
		RequestDeadline:        getEnvAsDuration("FEED_REQUEST_DEADLINE", 3*time.Second),

		HTTPPort: getEnv("PORT", "8080"),
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
