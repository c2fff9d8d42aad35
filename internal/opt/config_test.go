package opt

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/cwbudde/letterfit/internal/formula"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoadConfigDefaultsMatch(t *testing.T) {
	cfg, err := loadConfig(env.Options{Prefix: EnvPrefix, Environment: map[string]string{}})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := loadConfig(env.Options{
		Prefix: EnvPrefix,
		Environment: map[string]string{
			"LETTERFIT_POPULATION":           "50",
			"LETTERFIT_RANGE_END":            "20",
			"LETTERFIT_SPACE_OPERATOR":       "add",
			"LETTERFIT_ALLOW_NEGATIVE":       "false",
			"LETTERFIT_MUTATION_SPLIT_SMALL": "1",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.PopulationSize)
	assert.Equal(t, int64(20), cfg.RangeEnd)
	assert.Equal(t, formula.SpaceAdd, cfg.SpaceOperator)
	assert.False(t, cfg.AllowNegativeLetters)
	assert.Equal(t, 1.0, cfg.MutationSplit.Small)
	assert.Equal(t, 0.3, cfg.MutationSplit.Medium)
}

func TestLoadConfigRejectsMalformedValue(t *testing.T) {
	_, err := loadConfig(env.Options{
		Prefix:      EnvPrefix,
		Environment: map[string]string{"LETTERFIT_POPULATION": "many"},
	})
	assert.ErrorIs(t, err, ErrConfig)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"range reversed", func(c *Config) { c.RangeStart, c.RangeEnd = 10, 5 }, "rangeStart"},
		{"population too small", func(c *Config) { c.PopulationSize = 3 }, "populationSize"},
		{"no generations", func(c *Config) { c.MaxGenerations = 0 }, "maxGenerations"},
		{"unknown space operator", func(c *Config) { c.SpaceOperator = "concat" }, "spaceOperator"},
		{"negative precision", func(c *Config) { c.DecimalPrecision = -1 }, "decimalPrecision"},
		{"zero letter bound", func(c *Config) { c.LetterBound = 0 }, "letterBound"},
		{"huge letter bound", func(c *Config) { c.LetterBound = 1e200 }, "letterBound"},
		{"elite fraction one", func(c *Config) { c.EliteFraction = 1 }, "eliteFraction"},
		{"cap below base rate", func(c *Config) { c.MaxMutationRate = 0.05 }, "maxMutationRate"},
		{"small swarm", func(c *Config) { c.SwarmPopulation = 10 }, "swarmPopulation"},
		{"weak negative weight", func(c *Config) { c.NegativeWeight = 0.5 }, "negativeWeight"},
		{"range too large", func(c *Config) { c.RangeStart, c.RangeEnd = 0, 2_000_000 }, "rangeEnd"},
		{"crossover sum", func(c *Config) { c.CrossoverA, c.CrossoverB = 0.6, 0.6 }, "crossoverB"},
		{"empty mutation split", func(c *Config) { c.MutationSplit = MutationSplit{} }, "mutationSplit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfig))

			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestConfigValidateAcceptsSingleNumberRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RangeStart, cfg.RangeEnd = -5, -5
	assert.NoError(t, cfg.Validate())
}

func TestMutationRateAt(t *testing.T) {
	cfg := DefaultConfig()

	prev := cfg.MutationRateAt(0)
	assert.InDelta(t, cfg.MutationRate, prev, 1e-12)
	for g := 1; g <= cfg.MaxGenerations; g++ {
		rate := cfg.MutationRateAt(g)
		assert.GreaterOrEqual(t, rate, prev)
		assert.LessOrEqual(t, rate, cfg.MaxMutationRate)
		prev = rate
	}
	assert.InDelta(t, cfg.MutationRate*(1+cfg.MutationBoost), prev, 1e-12)

	cfg.MutationBoost = 100
	assert.Equal(t, cfg.MaxMutationRate, cfg.MutationRateAt(cfg.MaxGenerations))
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok, "schema has properties")
	for _, key := range []string{"rangeStart", "populationSize", "spaceOperator", "mutationSplit"} {
		assert.Contains(t, props, key)
	}
}
