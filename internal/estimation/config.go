package estimation

import (
	"errors"
	"fmt"
	"strings"
)

type Flags struct {
	RouterEnabled  bool `toml:"router_enabled" json:"routerEnabled"`
	MixtureEnabled bool `toml:"mixture_enabled" json:"mixtureEnabled"`
	VoIEnabled     bool `toml:"voi_enabled" json:"voiEnabled"`
}

// CalorieConfig drives the estimation pipeline for one capture.
type CalorieConfig struct {
	Name           string            `toml:"name" json:"name"`
	Flags          Flags             `toml:"flags" json:"flags"`
	VoIThreshold   float64           `toml:"voi_threshold" json:"voiThreshold"`
	AskBinaryPool  []string          `toml:"ask_binary_pool" json:"askBinaryPool"`
	MaxQuestions   int               `toml:"max_questions" json:"maxQuestions"`
	CaptureQuality QualityParameters `toml:"capture_quality" json:"captureQuality"`
	Fusion         FusionConfig      `toml:"fusion" json:"fusion"`
}

const (
	ProfileDefault     = "default"
	ProfileDevelopment = "development"
)

var ErrUnknownProfile = errors.New("unknown calorie profile")

func DefaultConfig() CalorieConfig {
	return CalorieConfig{
		Name: ProfileDefault,
		Flags: Flags{
			RouterEnabled:  true,
			MixtureEnabled: false,
			VoIEnabled:     true,
		},
		VoIThreshold:   0.35,
		MaxQuestions:   1,
		CaptureQuality: DefaultQualityParameters(),
		Fusion:         DefaultFusionConfig(),
	}
}

func DevelopmentConfig() CalorieConfig {
	cfg := DefaultConfig()
	cfg.Name = ProfileDevelopment
	cfg.Flags.MixtureEnabled = true
	cfg.VoIThreshold = 0.25
	return cfg
}

// ConfigFor resolves a preset by name. Empty name means the default preset.
func ConfigFor(name string) (CalorieConfig, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ProfileDefault, "prod", "production":
		return DefaultConfig(), nil
	case "dev", ProfileDevelopment:
		return DevelopmentConfig(), nil
	default:
		return CalorieConfig{}, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
}

// ActivePaths lists the pipeline stages enabled by the config, in order.
func ActivePaths(config CalorieConfig) []ActivePath {
	var paths []ActivePath
	if config.Flags.RouterEnabled {
		paths = append(paths,
			ActivePathAnalyzer,
			ActivePathRouter,
			ActivePathLabel,
			ActivePathMenu,
		)
	}
	paths = append(paths, ActivePathGeometry)
	if config.Flags.MixtureEnabled {
		paths = append(paths, ActivePathMixture)
	}
	return paths
}
