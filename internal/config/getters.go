package config

import (
	"github.com/banshee-data/larva.report/internal/kinematics"
	"github.com/banshee-data/larva.report/internal/stitch"
)

const defaultMetricsFilename = "datadm.txt"

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// GetMetricsFilename returns the name of the batch metrics table.
func (c *TuningConfig) GetMetricsFilename() string {
	if c.MetricsFilename == nil || *c.MetricsFilename == "" {
		return defaultMetricsFilename
	}
	return *c.MetricsFilename
}

// GetWritePlots reports whether per-video charts are rendered.
func (c *TuningConfig) GetWritePlots() bool {
	if c.WritePlots == nil {
		return false
	}
	return *c.WritePlots
}

// GetRepellentRadiusMM returns the zone radius in millimetres.
func (c *TuningConfig) GetRepellentRadiusMM() float64 {
	return floatOr(c.RepellentRadiusMM, kinematics.DefaultOptions().RepellentRadius)
}

// ReconcilerOptions returns the coordinate reconciler settings.
func (c *TuningConfig) ReconcilerOptions() stitch.Options {
	d := stitch.DefaultOptions()
	return stitch.Options{
		JumpSigmas:         floatOr(c.JumpSigmas, d.JumpSigmas),
		DropSigmas:         floatOr(c.DropSigmas, d.DropSigmas),
		SwapRatio:          floatOr(c.SwapRatio, d.SwapRatio),
		SmallGapMinSamples: intOr(c.SmallGapMinSamples, d.SmallGapMinSamples),
		RefineWindow:       intOr(c.RefineWindowFrames, d.RefineWindow),
		MaxGapSeconds:      floatOr(c.MaxGapSeconds, d.MaxGapSeconds),
	}
}

// AnalyzerOptions returns the kinematics analyzer settings.
func (c *TuningConfig) AnalyzerOptions() kinematics.Options {
	d := kinematics.DefaultOptions()
	return kinematics.Options{
		MinFrameRate:      floatOr(c.MinFrameRate, d.MinFrameRate),
		SpuriousDivisor:   floatOr(c.SpuriousDivisor, d.SpuriousDivisor),
		StrideDivisor:     floatOr(c.StrideDivisor, d.StrideDivisor),
		BendingThreshold:  floatOr(c.BendingThresholdDeg, d.BendingThreshold),
		RepellentRadius:   c.GetRepellentRadiusMM(),
		SpeedPadding:      intOr(c.SpeedPaddingFrames, d.SpeedPadding),
		DirectionDistance: floatOr(c.DirectionDistanceMM, d.DirectionDistance),
		DirectionAngle:    floatOr(c.DirectionAngleDeg, d.DirectionAngle),
		MinRunStrides:     intOr(c.MinRunStrides, d.MinRunStrides),
	}
}
