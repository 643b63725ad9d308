package pipeline

// AutoSensitivityConfig mirrors original_source/app/pipeline.py's
// _get_auto_sensitivity_config bounds.
type AutoSensitivityConfig struct {
	Enabled         bool
	MinLevel        float64
	MaxLevel        float64
	Step            float64
	CooldownChunks  int
}

// DefaultAutoSensitivityConfig matches the original's defaults.
func DefaultAutoSensitivityConfig() AutoSensitivityConfig {
	return AutoSensitivityConfig{
		Enabled:        false,
		MinLevel:       0.002,
		MaxLevel:       0.08,
		Step:           0.25,
		CooldownChunks: 3,
	}
}

const maxSensitivity = 10.0

// autoSensitivityController adjusts capture sensitivity when repeated
// chunks produce empty transcriptions at a too-quiet level. Touched only
// on the empty-transcription path (Open Question 2, resolved).
type autoSensitivityController struct {
	cfg      AutoSensitivityConfig
	cooldown int
}

func newAutoSensitivityController(cfg AutoSensitivityConfig) *autoSensitivityController {
	return &autoSensitivityController{cfg: cfg}
}

// OnEmptyTranscription evaluates level against the configured band and
// returns the new sensitivity and true if an adjustment was made; current is
// the present sensitivity and setSensitivity applies the new one.
func (a *autoSensitivityController) OnEmptyTranscription(level, current float64, setSensitivity func(float64)) (newValue float64, adjusted bool) {
	if !a.cfg.Enabled {
		return current, false
	}
	if a.cooldown <= 0 && level >= a.cfg.MinLevel && level <= a.cfg.MaxLevel {
		next := current + a.cfg.Step
		if next > maxSensitivity {
			next = maxSensitivity
		}
		if next > current {
			setSensitivity(next)
			a.cooldown = a.cfg.CooldownChunks
			return next, true
		}
	}
	if a.cooldown > 0 {
		a.cooldown--
	}
	return current, false
}
