package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"DDB_TABLE", "DATABASE_URL", "HIGH_RISK_AMOUNT", "ALLOW_CLEAR", "RISK_SERVICE_URL", "KAFKA_BROKERS"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultRiskServiceURL, cfg.RiskServiceURL)
	assert.True(t, cfg.HighRiskAmount.Equal(decimal.NewFromInt(10000)))
	assert.False(t, cfg.AllowClear)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "memory", cfg.Backend())
}

func TestLoad_HighRiskAmount(t *testing.T) {
	t.Setenv("HIGH_RISK_AMOUNT", "5000")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.HighRiskAmount.Equal(decimal.NewFromInt(5000)))

	t.Setenv("HIGH_RISK_AMOUNT", "not-a-number")
	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.HighRiskAmount.Equal(decimal.NewFromInt(DefaultHighRiskAmount)))
}

func TestLoad_AllowClear(t *testing.T) {
	for _, v := range []string{"1", "true", "YES", "True"} {
		t.Setenv("ALLOW_CLEAR", v)
		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.AllowClear, "value %q", v)
	}

	t.Setenv("ALLOW_CLEAR", "nope")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.AllowClear)
}

func TestBackend(t *testing.T) {
	assert.Equal(t, "dynamodb", (&Config{DynamoTable: "tx", DatabaseURL: "postgres://x"}).Backend())
	assert.Equal(t, "postgres", (&Config{DatabaseURL: "postgres://x"}).Backend())
	assert.Equal(t, "memory", (&Config{}).Backend())
}

func TestLoad_KafkaBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " kafka-1:9092, ,kafka-2:9092 ")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
}
