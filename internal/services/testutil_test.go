package services_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"code-arena-backend/internal/config"
	"code-arena-backend/internal/services"
)

var (
	metricsOnce sync.Once
	metrics     *services.Metrics
)

// testMetrics returns a process-wide Metrics instance. Prometheus
// registration panics on duplicates, so tests share one.
func testMetrics() *services.Metrics {
	metricsOnce.Do(func() {
		metrics = services.NewMetrics()
	})
	return metrics
}

func testConfig() *config.Config {
	return &config.Config{
		RedisURL:        "localhost:6379",
		RedisPass:       "",
		RedisDB:         0,
		PrizeMultiplier: 1.8,
	}
}

func setupTestRedis(t *testing.T) *services.RedisService {
	t.Helper()

	redisService, err := services.NewRedisService(testConfig())
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() {
		redisService.Close()
	})
	return redisService
}

func newTestMatchmaker(redisService *services.RedisService) *services.Matchmaker {
	return services.NewMatchmaker(redisService, testMetrics(), services.NopBroadcaster{}, 1.8)
}

func newTestSettlement(redisService *services.RedisService) *services.SettlementEngine {
	return services.NewSettlementEngine(redisService, testMetrics(), services.NopBroadcaster{})
}

func testUserID() string {
	return fmt.Sprintf("test_%s", uuid.New().String())
}
