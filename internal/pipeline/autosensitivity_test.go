package pipeline

import "testing"

func TestAutoSensitivityCooldownControlsAdjustmentSpacing(t *testing.T) {
	cfg := AutoSensitivityConfig{Enabled: true, MinLevel: 0.0, MaxLevel: 1.0, Step: 0.1, CooldownChunks: 3}
	c := newAutoSensitivityController(cfg)

	current := 1.0
	set := func(v float64) { current = v }

	_, adjusted := c.OnEmptyTranscription(0.01, current, set)
	if !adjusted {
		t.Fatal("first call should adjust")
	}
	if current != 1.1 {
		t.Fatalf("expected sensitivity 1.1, got %v", current)
	}

	for i := 0; i < cfg.CooldownChunks; i++ {
		_, adjusted = c.OnEmptyTranscription(0.01, current, set)
		if adjusted {
			t.Fatalf("expected no adjustment during cooldown, iteration %d", i)
		}
	}

	_, adjusted = c.OnEmptyTranscription(0.01, current, set)
	if !adjusted {
		t.Fatal("expected adjustment after cooldown elapsed")
	}
}

func TestAutoSensitivityAboveMaxLevelNoAdjustment(t *testing.T) {
	cfg := AutoSensitivityConfig{Enabled: true, MinLevel: 0.0, MaxLevel: 0.08, Step: 0.25, CooldownChunks: 3}
	c := newAutoSensitivityController(cfg)
	_, adjusted := c.OnEmptyTranscription(0.5, 1.0, func(float64) {})
	if adjusted {
		t.Fatal("level above max_level should never trigger an adjustment")
	}
}

func TestAutoSensitivityClampedAtMax(t *testing.T) {
	cfg := AutoSensitivityConfig{Enabled: true, MinLevel: 0.0, MaxLevel: 1.0, Step: 1.0, CooldownChunks: 0}
	c := newAutoSensitivityController(cfg)
	newValue, adjusted := c.OnEmptyTranscription(0.01, 9.9, func(float64) {})
	if !adjusted {
		t.Fatal("expected adjustment")
	}
	if newValue != maxSensitivity {
		t.Fatalf("expected clamp to %v, got %v", maxSensitivity, newValue)
	}
}

func TestAutoSensitivityDisabledNeverAdjusts(t *testing.T) {
	cfg := AutoSensitivityConfig{Enabled: false}
	c := newAutoSensitivityController(cfg)
	_, adjusted := c.OnEmptyTranscription(0.01, 1.0, func(float64) {})
	if adjusted {
		t.Fatal("disabled auto-sensitivity should never adjust")
	}
}
