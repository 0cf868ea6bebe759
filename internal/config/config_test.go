package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 1, cfg.Matching.MaxStopsPerRoute)
	assert.Equal(t, 20, cfg.Matching.TopK)
	assert.Equal(t, 5*time.Second, cfg.Matching.CandidateTimeout)
	assert.Empty(t, cfg.Kafka.Brokers)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PRICING_PER_KM", "1.25")
	t.Setenv("MATCH_TOP_K", "5")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("MATCH_CANDIDATE_TIMEOUT", "750ms")

	cfg := Load()

	assert.Equal(t, 1.25, cfg.Matching.PerKmRate)
	assert.Equal(t, 5, cfg.Matching.TopK)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 750*time.Millisecond, cfg.Matching.CandidateTimeout)
}

func TestLoad_IgnoresMalformedValues(t *testing.T) {
	t.Setenv("MATCH_TOP_K", "many")
	t.Setenv("PRICING_PER_MINUTE", "cheap")

	cfg := Load()

	assert.Equal(t, 20, cfg.Matching.TopK)
	assert.Equal(t, 0.1, cfg.Matching.PerMinuteRate)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	cfg := Load()
	cfg.Auth.JWTSecret = ""
	cfg.Matching.CommissionRate = 1.5
	cfg.Matching.TopK = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "PRICING_COMMISSION_RATE")
	assert.Contains(t, err.Error(), "MATCH_TOP_K")
}
