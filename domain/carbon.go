package domain

import (
	"math"
	"strings"

	"github.com/rs/zerolog/log"
)

// CarbonConfig holds the constants used to turn model usage into CO2e.
type CarbonConfig struct {
	// GridKgPerKWh is the grid carbon intensity in kg CO2e per kWh.
	GridKgPerKWh float64 `yaml:"gridKgPerKwh" json:"gridKgPerKwh"`
	// PUE is the data-center power usage effectiveness multiplier.
	PUE float64 `yaml:"pue" json:"pue"`
	// LocalAvgWatts is the power draw assumed when no token counts exist.
	LocalAvgWatts float64 `yaml:"localAvgWatts" json:"localAvgWatts"`
	// WhPerKTokens maps a model family ("default", "llama", "gpt") or an
	// exact "provider:model" key to watt-hours per thousand tokens.
	WhPerKTokens map[string]float64 `yaml:"whPerKtkn" json:"whPerKtkn"`
}

// DefaultCarbonConfig returns the stock carbon constants.
func DefaultCarbonConfig() CarbonConfig {
	return CarbonConfig{
		GridKgPerKWh:  0.35,
		PUE:           1.2,
		LocalAvgWatts: 200,
		WhPerKTokens: map[string]float64{
			"default": 2.0,
			"llama":   1.5,
			"gpt":     3.0,
		},
	}
}

// CarbonEstimator estimates grams of CO2e for a model call.
type CarbonEstimator struct {
	cfg CarbonConfig
}

// NewCarbonEstimator creates an estimator; zero fields fall back to the
// defaults.
func NewCarbonEstimator(cfg CarbonConfig) *CarbonEstimator {
	def := DefaultCarbonConfig()
	if cfg.GridKgPerKWh <= 0 {
		cfg.GridKgPerKWh = def.GridKgPerKWh
	}
	if cfg.PUE <= 0 {
		cfg.PUE = def.PUE
	}
	if cfg.LocalAvgWatts <= 0 {
		cfg.LocalAvgWatts = def.LocalAvgWatts
	}
	rates := make(map[string]float64, len(def.WhPerKTokens)+len(cfg.WhPerKTokens))
	for k, v := range def.WhPerKTokens {
		rates[k] = v
	}
	for k, v := range cfg.WhPerKTokens {
		rates[k] = v
	}
	cfg.WhPerKTokens = rates
	return &CarbonEstimator{cfg: cfg}
}

// EstimateGrams returns the estimated grams of CO2e, never negative.
// With token counts, energy is totalTokens/1000 times the family rate;
// otherwise it is LocalAvgWatts over the elapsed time.
func (c *CarbonEstimator) EstimateGrams(promptTokens, completionTokens *int, elapsedMs int64, provider, model string) float64 {
	var wh float64
	total := (&Usage{PromptTokens: promptTokens, CompletionTokens: completionTokens}).Total()

	if total != nil && *total > 0 {
		rate := c.whPerKTokens(provider, model)
		wh = float64(*total) / 1000 * rate
		log.Debug().Int("total_tokens", *total).Float64("wh_per_ktok", rate).Float64("wh", wh).Msg("co2 via tokens")
	} else {
		ms := math.Max(0, float64(elapsedMs))
		wh = c.cfg.LocalAvgWatts * (ms / 1000) / 3600
		log.Debug().Float64("ms", ms).Float64("watts", c.cfg.LocalAvgWatts).Float64("wh", wh).Msg("co2 via time")
	}

	kWh := wh / 1000 * c.cfg.PUE
	grams := kWh * c.cfg.GridKgPerKWh * 1000
	return math.Max(grams, 0)
}

func (c *CarbonEstimator) whPerKTokens(provider, model string) float64 {
	if provider != "" && model != "" {
		if v, ok := c.cfg.WhPerKTokens[provider+":"+model]; ok {
			return v
		}
	}
	if v, ok := c.cfg.WhPerKTokens[modelFamily(provider, model)]; ok {
		return v
	}
	return c.cfg.WhPerKTokens["default"]
}

func modelFamily(provider, model string) string {
	p := strings.ToLower(provider)
	m := strings.ToLower(model)
	switch {
	case strings.Contains(p, "ollama"):
		return "llama"
	case strings.Contains(m, "gpt") || strings.HasPrefix(m, "openai/"):
		return "gpt"
	}
	for _, fam := range []string{"llama", "mistral", "qwen", "gemma"} {
		if strings.Contains(m, fam) {
			return "llama"
		}
	}
	return "default"
}
