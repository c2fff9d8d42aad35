package opt

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/cwbudde/letterfit/internal/fit"
	"github.com/cwbudde/letterfit/internal/formula"
	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "LETTERFIT_"

// MutationSplit divides mutated letters between the three mutation kinds.
// The parts are normalised by their sum.
type MutationSplit struct {
	Small  float64 `json:"small" env:"SMALL" envDefault:"0.5" validate:"gte=0"`
	Medium float64 `json:"medium" env:"MEDIUM" envDefault:"0.3" validate:"gte=0"`
	Redraw float64 `json:"redraw" env:"REDRAW" envDefault:"0.2" validate:"gte=0"`
}

// Config is the run configuration consumed at seeding.
type Config struct {
	RangeStart     int64  `json:"rangeStart" env:"RANGE_START" envDefault:"1" validate:"ltefield=RangeEnd"`
	RangeEnd       int64  `json:"rangeEnd" env:"RANGE_END" envDefault:"100"`
	PopulationSize int    `json:"populationSize" env:"POPULATION" envDefault:"100" validate:"gte=4"`
	MaxGenerations int    `json:"maxGenerations" env:"GENERATIONS" envDefault:"200" validate:"gte=1"`
	Seed           uint64 `json:"seed" env:"SEED" envDefault:"42"`

	formula.Rules

	EliteFraction  float64 `json:"eliteFraction" env:"ELITE_FRACTION" envDefault:"0.1" validate:"gt=0,lt=1"`
	TournamentSize int     `json:"tournamentSize" env:"TOURNAMENT_SIZE" envDefault:"7" validate:"gte=2"`
	SeedFraction   float64 `json:"seedFraction" env:"SEED_FRACTION" envDefault:"0.2" validate:"gte=0,lte=1"`

	CrossoverA     float64 `json:"crossoverA" env:"CROSSOVER_A" envDefault:"0.45" validate:"gte=0,lte=1"`
	CrossoverB     float64 `json:"crossoverB" env:"CROSSOVER_B" envDefault:"0.45" validate:"gte=0,lte=1"`
	CrossoverNoise float64 `json:"crossoverNoise" env:"CROSSOVER_NOISE" envDefault:"0.1" validate:"gte=0"`

	MutationRate    float64       `json:"mutationRate" env:"MUTATION_RATE" envDefault:"0.1" validate:"gte=0,lte=1"`
	MutationBoost   float64       `json:"mutationBoost" env:"MUTATION_BOOST" envDefault:"0.8" validate:"gte=0"`
	MaxMutationRate float64       `json:"maxMutationRate" env:"MAX_MUTATION_RATE" envDefault:"0.5" validate:"gtefield=MutationRate,lte=1"`
	MutationSplit   MutationSplit `json:"mutationSplit" envPrefix:"MUTATION_SPLIT_"`
	SmallStep       float64       `json:"smallStep" env:"SMALL_STEP" envDefault:"0.2" validate:"gt=0"`
	MediumStep      float64       `json:"mediumStep" env:"MEDIUM_STEP" envDefault:"1" validate:"gt=0"`

	RefineEvery  int     `json:"refineEvery" env:"REFINE_EVERY" envDefault:"5" validate:"gte=0"`
	RefinePasses int     `json:"refinePasses" env:"REFINE_PASSES" envDefault:"10" validate:"gte=0"`
	RefineStep   float64 `json:"refineStep" env:"REFINE_STEP" envDefault:"0.1" validate:"gt=0"`

	GradientPasses  int     `json:"gradientPasses" env:"GRADIENT_PASSES" envDefault:"5" validate:"gte=0"`
	GradientRate    float64 `json:"gradientRate" env:"GRADIENT_RATE" envDefault:"0.05" validate:"gt=0"`
	GradientEps     float64 `json:"gradientEps" env:"GRADIENT_EPS" envDefault:"0.001" validate:"gt=0"`
	GradientMaxStep float64 `json:"gradientMaxStep" env:"GRADIENT_MAX_STEP" envDefault:"0.5" validate:"gt=0"`

	LinearSeed      bool `json:"linearSeed" env:"LINEAR_SEED" envDefault:"true"`
	SwarmIterations int  `json:"swarmIterations" env:"SWARM_ITERATIONS" envDefault:"0" validate:"gte=0"`
	SwarmPopulation int  `json:"swarmPopulation" env:"SWARM_POPULATION" envDefault:"20" validate:"gte=20"`

	NegativeWeight float64 `json:"negativeWeight" env:"NEGATIVE_WEIGHT" envDefault:"10" validate:"gte=1"`
	EarlyStopRatio float64 `json:"earlyStopRatio" env:"EARLY_STOP_RATIO" envDefault:"1" validate:"gte=0,lte=1"`
	Patience       int     `json:"patience" env:"PATIENCE" envDefault:"0" validate:"gte=0"`
	Parallelism    int     `json:"parallelism" env:"PARALLELISM" envDefault:"0" validate:"gte=0"`
}

// DefaultConfig returns the default run configuration.
func DefaultConfig() Config {
	return Config{
		RangeStart:      1,
		RangeEnd:        100,
		PopulationSize:  100,
		MaxGenerations:  200,
		Seed:            42,
		Rules:           formula.DefaultRules(),
		EliteFraction:   0.1,
		TournamentSize:  7,
		SeedFraction:    0.2,
		CrossoverA:      0.45,
		CrossoverB:      0.45,
		CrossoverNoise:  0.1,
		MutationRate:    0.1,
		MutationBoost:   0.8,
		MaxMutationRate: 0.5,
		MutationSplit:   MutationSplit{Small: 0.5, Medium: 0.3, Redraw: 0.2},
		SmallStep:       0.2,
		MediumStep:      1,
		RefineEvery:     5,
		RefinePasses:    10,
		RefineStep:      0.1,
		GradientPasses:  5,
		GradientRate:    0.05,
		GradientEps:     0.001,
		GradientMaxStep: 0.5,
		LinearSeed:      true,
		SwarmPopulation: 20,
		NegativeWeight:  fit.DefaultNegativeWeight,
		EarlyStopRatio:  1,
	}
}

// LoadConfig reads the defaults from LETTERFIT_* environment variables.
func LoadConfig() (Config, error) {
	return loadConfig(env.Options{Prefix: EnvPrefix})
}

func loadConfig(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, &ConfigError{Reason: err.Error()}
	}
	return cfg, nil
}

// ErrConfig matches any *ConfigError via errors.Is.
var ErrConfig = &ConfigError{}

// ConfigError reports an invalid run configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "invalid config: " + e.Reason
	}
	return fmt.Sprintf("invalid config: %s %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	_, ok := target.(*ConfigError)
	return ok
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks the configuration and returns a *ConfigError for the first
// violation.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			reason := "failed " + fe.Tag()
			if fe.Param() != "" {
				reason += "=" + fe.Param()
			}
			return &ConfigError{Field: fe.Field(), Reason: reason}
		}
		return &ConfigError{Reason: err.Error()}
	}

	if uint64(c.RangeEnd)-uint64(c.RangeStart) >= fit.MaxRangeSize {
		return &ConfigError{Field: "rangeEnd", Reason: fmt.Sprintf("range exceeds %d numbers", fit.MaxRangeSize)}
	}
	if c.CrossoverA+c.CrossoverB > 1 {
		return &ConfigError{Field: "crossoverB", Reason: "crossoverA + crossoverB must not exceed 1"}
	}
	s := c.MutationSplit
	if s.Small+s.Medium+s.Redraw <= 0 {
		return &ConfigError{Field: "mutationSplit", Reason: "at least one part must be positive"}
	}
	return nil
}

// Schema returns the JSON schema of Config.
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{DoNotReference: true}
	return json.MarshalIndent(r.Reflect(&Config{}), "", "  ")
}
