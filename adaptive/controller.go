// Package adaptive implements the stream quality controller (spec §4.11):
// a periodic read of per-window packet loss drives bitrate, then
// resolution/fps, step-downs under sustained loss, and step-ups once loss
// returns to zero and stays there. Only WindowSample.LossPercent is acted
// on; latency and buffer fullness are carried in the sample but trigger
// no action.
package adaptive

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Target is the set of runtime knobs the controller drives. The encode
// package's Encoder satisfies this via small adapter methods; modeled as
// a narrow interface so the controller can be tested without a real
// encoder (grounded on av/adaptation.go's BitrateAdapter callback shape,
// generalized from callback-on-change to a direct setter interface).
type Target interface {
	ReduceBitrate() error
	ReduceResolutionOrFPS() error
	StepUp() error
}

// WindowSample is one control-window's telemetry (spec §4.11: loss,
// latency, buffer fullness).
type WindowSample struct {
	LossPercent    float64
	LatencyMs      float64
	BufferFullness float64 // 0.0 (empty) .. 1.0 (full)
}

// Config tunes the step-down/step-up trigger thresholds. Defaults
// reproduce spec §8 scenario 5 literally: 3 windows of >=5% loss trigger
// a bitrate cut; 3 more trigger a resolution/fps cut; 6 windows back at
// 0% loss trigger a step-up.
type Config struct {
	LossThresholdPercent float64
	BitrateCutWindows    int
	ResolutionCutWindows int
	StepUpWindows        int
}

// DefaultConfig returns the spec §8 scenario 5 thresholds.
func DefaultConfig() Config {
	return Config{
		LossThresholdPercent: 5.0,
		BitrateCutWindows:    3,
		ResolutionCutWindows: 3,
		StepUpWindows:        6,
	}
}

// Controller tracks consecutive-window loss streaks and drives Target
// step-down/step-up transitions. Not safe for concurrent calls to
// RecordWindow; callers serialize on the control-window ticker.
type Controller struct {
	cfg    Config
	target Target

	highLossStreak int
	zeroLossStreak int

	bitrateCutApplied    bool
	resolutionCutApplied bool
}

// NewController builds a Controller driving target under cfg.
func NewController(cfg Config, target Target) *Controller {
	return &Controller{cfg: cfg, target: target}
}

// RecordWindow processes one control window's telemetry and applies any
// triggered step-down/step-up action. It returns the action taken, if
// any, for logging/testing (empty string if no action was taken).
func (c *Controller) RecordWindow(s WindowSample) (string, error) {
	logger := logrus.WithFields(logrus.Fields{
		"function": "Controller.RecordWindow",
		"loss_pct": s.LossPercent,
	})

	if s.LossPercent >= c.cfg.LossThresholdPercent {
		c.highLossStreak++
		c.zeroLossStreak = 0
	} else if s.LossPercent == 0 {
		c.zeroLossStreak++
		c.highLossStreak = 0
	} else {
		// Between zero and the trouble threshold: hold streaks steady
		// rather than resetting, so brief blips don't mask a trend.
	}

	switch {
	case c.highLossStreak == c.cfg.BitrateCutWindows && !c.bitrateCutApplied:
		c.bitrateCutApplied = true
		logger.Warn("sustained loss, reducing bitrate")
		if err := c.target.ReduceBitrate(); err != nil {
			return "", err
		}
		return "bitrate_reduced", nil

	case c.highLossStreak == c.cfg.BitrateCutWindows+c.cfg.ResolutionCutWindows && !c.resolutionCutApplied:
		c.resolutionCutApplied = true
		logger.Warn("loss persisted after bitrate cut, reducing resolution/fps")
		if err := c.target.ReduceResolutionOrFPS(); err != nil {
			return "", err
		}
		return "resolution_reduced", nil

	case c.zeroLossStreak == c.cfg.StepUpWindows:
		c.zeroLossStreak = 0
		c.bitrateCutApplied = false
		c.resolutionCutApplied = false
		logger.Info("sustained recovery, stepping up")
		if err := c.target.StepUp(); err != nil {
			return "", err
		}
		return "stepped_up", nil
	}

	return "", nil
}

// Run calls RecordWindow once for each sample received on samples until
// stop or samples is closed, used by the host's control loop. The period
// argument is not used: the pace is set by the sender on samples.
func Run(period time.Duration, samples <-chan WindowSample, ctrl *Controller, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case s, ok := <-samples:
			if !ok {
				return
			}
			if _, err := ctrl.RecordWindow(s); err != nil {
				logrus.WithFields(logrus.Fields{"function": "adaptive.Run"}).WithError(err).Warn("adaptive action failed")
			}
		}
	}
}
