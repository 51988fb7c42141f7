package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"

	"docchat/internal/db"
	"docchat/internal/handlers"
	"docchat/internal/repositories"
	"docchat/internal/routes"
	"docchat/internal/services"
	"docchat/internal/workers"
)

// corsMiddleware adds CORS headers to all responses
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewServer wires the full chat stack: response cache (Redis when
// available, in-memory otherwise), session manager, LLM client, eviction
// worker, and routes
func NewServer() *http.Server {
	logger := log.New(os.Stdout, "[SERVER] ", log.LstdFlags)

	cache := initializeCache(logger)
	sessions := services.NewSessionManager(cache, services.DefaultChatManagerConfig(), logger)
	generator := initializeGenerator(logger)

	go startWorkers(cache, logger)

	chatHandler := handlers.NewChatHandler(sessions, generator, logger)

	h := &routes.Handlers{
		Health: handlers.HealthCheckHandler,
		Home:   handlers.HomeHandler,
		Chat:   chatHandler,
	}

	router := mux.NewRouter()
	routes.RegisterRoutes(router, h)

	// Add Swagger endpoints
	router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"), // The url pointing to API definition
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("none"),
		httpSwagger.DomID("swagger-ui"),
	))

	return &http.Server{
		Addr:    ":8080",
		Handler: corsMiddleware(router),
	}
}

// initializeCache connects to Redis for a cache shared across instances,
// falling back to the per-process in-memory cache when Redis is down
func initializeCache(logger *log.Logger) repositories.ResponseCache {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisConfig := getRedisConfig()
	logger.Printf("Connecting to Redis: %s:%d (DB: %d)", redisConfig.Host, redisConfig.Port, redisConfig.DB)

	redisClient, err := db.NewRedisClient(redisConfig)
	if err != nil {
		logger.Printf("❌ Failed to create Redis client: %v", err)
		logger.Println("   Falling back to in-memory response cache")
		return repositories.NewMemoryResponseCache(repositories.DefaultMemoryCacheConfig())
	}

	if err := redisClient.Ping(ctx); err != nil {
		logger.Printf("❌ Redis connection failed: %v", err)
		logger.Println("   Falling back to in-memory response cache")
		logger.Println("   Hint: Ensure Redis is running (docker run -d -p 6379:6379 redis:7-alpine)")
		return repositories.NewMemoryResponseCache(repositories.DefaultMemoryCacheConfig())
	}

	logger.Println("✅ Redis connected successfully")
	return repositories.NewRedisResponseCache(redisClient.GetClient(), getRedisCacheConfig())
}

// initializeGenerator creates the LLM client from environment settings
func initializeGenerator(logger *log.Logger) services.Generator {
	baseURL := os.Getenv("LLM_BASE_URL")
	model := os.Getenv("LLM_MODEL")

	svc := services.NewLLMService(baseURL, model)
	logger.Printf("LLM backend configured: %s", services.ProviderName)
	return svc
}

// getRedisConfig reads Redis configuration from environment variables
func getRedisConfig() db.RedisConfig {
	config := db.DefaultRedisConfig()

	if host := os.Getenv("REDIS_HOST"); host != "" {
		config.Host = host
	}

	if portStr := os.Getenv("REDIS_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			config.Port = port
		}
	}

	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		config.Password = password
	}

	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if dbNum, err := strconv.Atoi(dbStr); err == nil {
			config.DB = dbNum
		}
	}

	if poolSizeStr := os.Getenv("REDIS_POOL_SIZE"); poolSizeStr != "" {
		if poolSize, err := strconv.Atoi(poolSizeStr); err == nil {
			config.PoolSize = poolSize
		}
	}

	return config
}

// getRedisCacheConfig reads response cache limits from environment variables
func getRedisCacheConfig() repositories.RedisCacheConfig {
	config := repositories.DefaultRedisCacheConfig()

	if ttlStr := os.Getenv("CACHE_TTL"); ttlStr != "" {
		if ttl, err := time.ParseDuration(ttlStr); err == nil {
			config.TTL = ttl
		}
	}

	if capStr := os.Getenv("CACHE_CAPACITY"); capStr != "" {
		if capacity, err := strconv.Atoi(capStr); err == nil {
			config.Capacity = capacity
		}
	}

	return config
}

// startWorkers starts the background eviction worker for the shared cache
func startWorkers(cache repositories.ResponseCache, logger *log.Logger) {
	ctx := context.Background()

	evictionWorker := workers.NewEvictionWorker(
		cache,
		workers.DefaultWorkerConfig("cache-eviction-worker"),
		logger,
	)

	if err := evictionWorker.Start(ctx); err != nil {
		logger.Printf("⚠️  Failed to start eviction worker: %v", err)
	} else {
		logger.Println("✅ Eviction worker started successfully")
	}
}
