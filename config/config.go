package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. MEDIAGRAM_SERVICES_EMOTION_URL.
const EnvPrefix = "MEDIAGRAM"

type Service struct {
	URL string `yaml:"url" mapstructure:"url"`
}
type Services struct {
	ASR            Service `yaml:"asr" mapstructure:"asr"`
	Tagging        Service `yaml:"tagging" mapstructure:"tagging"`
	Emotion        Service `yaml:"emotion" mapstructure:"emotion"`
	Diarization    Service `yaml:"diarization" mapstructure:"diarization"`
	TimeoutSeconds int     `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}
type Audio struct {
	SampleRate int `yaml:"sample_rate" mapstructure:"sample_rate"`
	Channels   int `yaml:"channels" mapstructure:"channels"`
}
type Tools struct {
	FFmpeg  string `yaml:"ffmpeg" mapstructure:"ffmpeg"`
	FFprobe string `yaml:"ffprobe" mapstructure:"ffprobe"`
	YtDlp   string `yaml:"yt_dlp" mapstructure:"yt_dlp"`
	UVX     string `yaml:"uvx" mapstructure:"uvx"`
	// CookiesFromBrowser is handed to yt-dlp; empty disables the flag.
	CookiesFromBrowser string `yaml:"cookies_from_browser" mapstructure:"cookies_from_browser"`
}
type WhisperX struct {
	Model       string `yaml:"model" mapstructure:"model"`
	Device      string `yaml:"device" mapstructure:"device"`
	ComputeType string `yaml:"compute_type" mapstructure:"compute_type"`
	BatchSize   int    `yaml:"batch_size" mapstructure:"batch_size"`
	Threads     int    `yaml:"threads" mapstructure:"threads"`
	VADMethod   string `yaml:"vad_method" mapstructure:"vad_method"`
	HFToken     string `yaml:"hf_token" mapstructure:"hf_token"`
	MinSpeakers int    `yaml:"min_speakers" mapstructure:"min_speakers"`
	MaxSpeakers int    `yaml:"max_speakers" mapstructure:"max_speakers"`
}
type Eventogram struct {
	SampleRate     int     `yaml:"sample_rate" mapstructure:"sample_rate"`
	WindowSize     int     `yaml:"window_size" mapstructure:"window_size"`
	HopSize        int     `yaml:"hop_size" mapstructure:"hop_size"`
	MelBins        int     `yaml:"mel_bins" mapstructure:"mel_bins"`
	FMin           int     `yaml:"fmin" mapstructure:"fmin"`
	FMax           int     `yaml:"fmax" mapstructure:"fmax"`
	ModelType      string  `yaml:"model_type" mapstructure:"model_type"`
	CheckpointPath string  `yaml:"checkpoint_path" mapstructure:"checkpoint_path"`
	LabelsCSV      string  `yaml:"labels_csv" mapstructure:"labels_csv"`
	CUDA           bool    `yaml:"cuda" mapstructure:"cuda"`
	ChunkSeconds   int     `yaml:"chunk_seconds" mapstructure:"chunk_seconds"`
	Threshold      float64 `yaml:"threshold" mapstructure:"threshold"`
	TopK           int     `yaml:"top_k" mapstructure:"top_k"`
	Translucency   float64 `yaml:"translucency" mapstructure:"translucency"`
	OverlaySize    float64 `yaml:"overlay_size" mapstructure:"overlay_size"`
	CRF            int     `yaml:"crf" mapstructure:"crf"`
	Bitrate        string  `yaml:"bitrate" mapstructure:"bitrate"`
	WindowDuration float64 `yaml:"window_duration" mapstructure:"window_duration"`
	AdaptiveWindow bool    `yaml:"adaptive_window" mapstructure:"adaptive_window"`
	MinFreeBytes   uint64  `yaml:"min_free_bytes" mapstructure:"min_free_bytes"`
}
type Emotions struct {
	MinSegmentMs int    `yaml:"min_segment_ms" mapstructure:"min_segment_ms"`
	BarScale     int    `yaml:"bar_scale" mapstructure:"bar_scale"`
	Granularity  string `yaml:"granularity" mapstructure:"granularity"`
	OpenBrowser  bool   `yaml:"open_browser" mapstructure:"open_browser"`
	// WindowSeconds and OverlapSeconds drive the speaker dynamics table.
	WindowSeconds  int `yaml:"window_seconds" mapstructure:"window_seconds"`
	OverlapSeconds int `yaml:"overlap_seconds" mapstructure:"overlap_seconds"`
}
type Root struct {
	Pipeline struct {
		Name      string `yaml:"name" mapstructure:"name"`
		Version   string `yaml:"version" mapstructure:"version"`
		LogLvl    string `yaml:"log_level" mapstructure:"log_level"`
		LogFormat string `yaml:"log_format" mapstructure:"log_format"`
	} `yaml:"pipeline" mapstructure:"pipeline"`
	Audio      Audio      `yaml:"audio" mapstructure:"audio"`
	Services   Services   `yaml:"services" mapstructure:"services"`
	Tools      Tools      `yaml:"tools" mapstructure:"tools"`
	WhisperX   WhisperX   `yaml:"whisperx" mapstructure:"whisperx"`
	Eventogram Eventogram `yaml:"eventogram" mapstructure:"eventogram"`
	Emotions   Emotions   `yaml:"emotions" mapstructure:"emotions"`
	Paths      struct {
		Downloads string `yaml:"downloads" mapstructure:"downloads"`
		Outputs   string `yaml:"outputs" mapstructure:"outputs"`
	} `yaml:"paths" mapstructure:"paths"`
}

// Load resolves the config file, layers it over Default and applies MEDIAGRAM_* overrides.
// It returns the path that was read, or "" when only defaults were used.
func Load(path string) (*Root, string, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults, err := yaml.Marshal(Default())
	if err != nil {
		return nil, "", fmt.Errorf("encode defaults: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, "", fmt.Errorf("load defaults: %w", err)
	}

	resolved, err := resolvePath(path)
	if err != nil {
		return nil, "", err
	}
	if resolved != "" {
		v.SetConfigFile(resolved)
		if err := v.MergeInConfig(); err != nil {
			return nil, "", fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}

	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, resolved, nil
}

// resolvePath returns an explicit path (which must exist), or the first of
// config/<CONFIG_ENV>/config.yaml and ~/.config/mediagram/config.yaml that exists.
func resolvePath(path string) (string, error) {
	if path = strings.TrimSpace(path); path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(expanded); err != nil {
			return "", fmt.Errorf("stat config: %w", err)
		}
		return expanded, nil
	}

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	var guess []string = []string{
		filepath.Join("config", env, "config.yaml"),
		"~/.config/mediagram/config.yaml",
	}
	for _, p := range guess {
		expanded, err := ExpandPath(p)
		if err != nil {
			continue
		}
		info, err := os.Stat(expanded)
		if err == nil && !info.IsDir() {
			return expanded, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat config: %w", err)
		}
	}
	return "", nil
}

func (c *Root) normalize() error {
	if c.WhisperX.HFToken == "" {
		c.WhisperX.HFToken = strings.TrimSpace(os.Getenv("HF_TOKEN"))
	}
	for _, p := range []*string{&c.Paths.Downloads, &c.Paths.Outputs, &c.Eventogram.LabelsCSV, &c.Eventogram.CheckpointPath} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

// ServiceTimeout is the HTTP timeout for model-service calls.
func (c *Root) ServiceTimeout() time.Duration {
	if c.Services.TimeoutSeconds <= 0 {
		return DurSeconds(Default().Services.TimeoutSeconds)
	}
	return DurSeconds(c.Services.TimeoutSeconds)
}

// ExpandPath resolves a leading "~" and makes the path absolute. Empty stays empty.
func ExpandPath(value string) (string, error) {
	if value == "" {
		return value, nil
	}
	if strings.HasPrefix(value, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if value == "~" {
			value = home
		} else if len(value) > 1 && (value[1] == '/' || value[1] == '\\') {
			value = filepath.Join(home, value[2:])
		}
	}
	abs, err := filepath.Abs(filepath.Clean(value))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return abs, nil
}

func DurSeconds(n int) time.Duration { return time.Duration(n) * time.Second }
