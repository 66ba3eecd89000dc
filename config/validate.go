package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Root) Validate() error {
	if err := c.validateEventogram(); err != nil {
		return err
	}
	if err := c.validateWhisperX(); err != nil {
		return err
	}
	if err := c.validateEmotions(); err != nil {
		return err
	}
	return nil
}

func (c *Root) validateEventogram() error {
	e := c.Eventogram
	if e.SampleRate <= 0 || e.WindowSize <= 0 || e.HopSize <= 0 {
		return errors.New("eventogram.sample_rate, window_size and hop_size must be positive")
	}
	if e.SampleRate < e.HopSize {
		return fmt.Errorf("eventogram.hop_size %d exceeds sample_rate %d", e.HopSize, e.SampleRate)
	}
	if e.Threshold < 0 || e.Threshold > 1 {
		return errors.New("eventogram.threshold must be between 0 and 1")
	}
	if e.Translucency < 0 || e.Translucency > 1 {
		return errors.New("eventogram.translucency must be between 0 and 1")
	}
	if e.OverlaySize <= 0 || e.OverlaySize > 1 {
		return errors.New("eventogram.overlay_size must be in (0, 1]")
	}
	if e.CRF < 0 || e.CRF > 51 {
		return errors.New("eventogram.crf must be between 0 and 51")
	}
	if e.TopK <= 0 {
		return errors.New("eventogram.top_k must be positive")
	}
	if e.ChunkSeconds <= 0 {
		return errors.New("eventogram.chunk_seconds must be positive")
	}
	if e.WindowDuration <= 0 {
		return errors.New("eventogram.window_duration must be positive")
	}
	return nil
}

func (c *Root) validateWhisperX() error {
	switch strings.ToLower(c.WhisperX.Device) {
	case "cpu", "cuda":
	default:
		return fmt.Errorf("whisperx.device must be cpu or cuda, got %q", c.WhisperX.Device)
	}
	if c.WhisperX.MinSpeakers < 0 || c.WhisperX.MaxSpeakers < 0 {
		return errors.New("whisperx speaker bounds must not be negative")
	}
	if c.WhisperX.MaxSpeakers > 0 && c.WhisperX.MinSpeakers > c.WhisperX.MaxSpeakers {
		return errors.New("whisperx.min_speakers exceeds max_speakers")
	}
	return nil
}

func (c *Root) validateEmotions() error {
	if c.Emotions.MinSegmentMs < 0 {
		return errors.New("emotions.min_segment_ms must not be negative")
	}
	if c.Emotions.BarScale <= 0 {
		return errors.New("emotions.bar_scale must be positive")
	}
	if c.Emotions.WindowSeconds <= 0 || c.Emotions.OverlapSeconds < 0 || c.Emotions.OverlapSeconds >= c.Emotions.WindowSeconds {
		return errors.New("emotions.window_seconds must be positive and exceed overlap_seconds")
	}
	return nil
}
