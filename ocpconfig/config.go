// Package ocpconfig loads and validates the solver's configuration
// (spec.md section 6) from a YAML file, following the teacher's
// viper-then-yaml.v3 double-unmarshal idiom (reinforcement.FromYaml):
// viper reads the file into a generic map so any deployment's config
// layout conventions still parse, then a second yaml.v3 pass decodes it
// into the strongly typed Config.
package ocpconfig

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// IntegratorName mirrors transcribe.Integrator's enum as a YAML-facing
// string, decoupling the config package from the solver packages.
type IntegratorName string

const (
	Euler IntegratorName = "euler"
	RK2   IntegratorName = "rk2"
	RK4   IntegratorName = "rk4"
)

// Config is one field per spec.md section 6 configuration item.
type Config struct {
	Dt           float64 `yaml:"dt" mapstructure:"dt"`
	GridEpsilon  float64 `yaml:"gridEpsilon" mapstructure:"gridEpsilon"`
	SqpIteration int     `yaml:"sqpIteration" mapstructure:"sqpIteration"`
	DeltaTol     float64 `yaml:"deltaTol" mapstructure:"deltaTol"`
	CostTol      float64 `yaml:"costTol" mapstructure:"costTol"`

	AlphaDecay float64 `yaml:"alphaDecay" mapstructure:"alphaDecay"`
	AlphaMin   float64 `yaml:"alphaMin" mapstructure:"alphaMin"`
	GammaC     float64 `yaml:"gammaC" mapstructure:"gammaC"`
	GMax       float64 `yaml:"gMax" mapstructure:"gMax"`
	GMin       float64 `yaml:"gMin" mapstructure:"gMin"`

	IntegratorType IntegratorName `yaml:"integratorType" mapstructure:"integratorType"`

	NThreads       int `yaml:"nThreads" mapstructure:"nThreads"`
	ThreadPriority int `yaml:"threadPriority" mapstructure:"threadPriority"`

	ProjectStateInputEqualityConstraints bool `yaml:"projectStateInputEqualityConstraints" mapstructure:"projectStateInputEqualityConstraints"`
	ControllerFeedback                   bool `yaml:"controllerFeedback" mapstructure:"controllerFeedback"`

	InequalityConstraintMu    float64 `yaml:"inequalityConstraintMu" mapstructure:"inequalityConstraintMu"`
	InequalityConstraintDelta float64 `yaml:"inequalityConstraintDelta" mapstructure:"inequalityConstraintDelta"`

	NState int `yaml:"nState" mapstructure:"nState"`
	NInput int `yaml:"nInput" mapstructure:"nInput"`

	PrintSolverStatus     bool `yaml:"printSolverStatus" mapstructure:"printSolverStatus"`
	PrintLinesearch       bool `yaml:"printLinesearch" mapstructure:"printLinesearch"`
	PrintSolverStatistics bool `yaml:"printSolverStatistics" mapstructure:"printSolverStatistics"`
}

// Default returns a Config populated with conservative defaults, in the
// teacher's GetHyperParamOrDefault spirit of "every parameter has a
// fallback so a partial YAML file still loads."
func Default() Config {
	return Config{
		Dt:             0.1,
		GridEpsilon:    1e-6,
		SqpIteration:   10,
		DeltaTol:       1e-6,
		CostTol:        1e-8,
		AlphaDecay:     0.5,
		AlphaMin:       1e-4,
		GammaC:         0.1,
		GMax:           1.0,
		GMin:           1e-3,
		IntegratorType: RK4,
		NThreads:       1,
	}
}

// FromYaml loads path via viper into a generic map, then re-decodes that
// map through yaml.v3 into Config, overlaying onto Default() so a
// partially specified file still yields a valid configuration.
func FromYaml(path string) (Config, error) {
	cfg := Default()

	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return cfg, err
	}

	raw := vp.AllSettings()
	spec, err := yaml.Marshal(raw)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(spec, &cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the ordering constraints of spec.md section 6.
func (c Config) Validate() error {
	if !(c.AlphaDecay > 0 && c.AlphaDecay < 1) {
		return fmt.Errorf("alphaDecay must satisfy 0 < alphaDecay < 1, got %v", c.AlphaDecay)
	}
	if !(c.AlphaMin > 0 && c.AlphaMin <= 1) {
		return fmt.Errorf("alphaMin must satisfy 0 < alphaMin <= 1, got %v", c.AlphaMin)
	}
	if !(c.GammaC > 0 && c.GammaC < 1) {
		return fmt.Errorf("gammaC must satisfy 0 < gammaC < 1, got %v", c.GammaC)
	}
	if !(c.GMin > 0 && c.GMin < c.GMax) {
		return fmt.Errorf("g_min/g_max must satisfy 0 < gMin < gMax, got gMin=%v gMax=%v", c.GMin, c.GMax)
	}
	muSet := c.InequalityConstraintMu > 0
	deltaSet := c.InequalityConstraintDelta > 0
	if muSet != deltaSet {
		return fmt.Errorf("inequalityConstraintMu and inequalityConstraintDelta must both be > 0 or both be 0, got mu=%v delta=%v", c.InequalityConstraintMu, c.InequalityConstraintDelta)
	}
	return nil
}
