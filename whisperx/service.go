// Package whisperx runs the WhisperX CLI passes through uvx and post-processes their outputs.
package whisperx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"github.com/maastricht-university/mediagram/config"
	"github.com/maastricht-university/mediagram/logging"
	"github.com/maastricht-university/mediagram/media"
)

// ErrMissingStageOutput is returned when a pass finished but its JSON/SRT/TSV files are absent.
var ErrMissingStageOutput = errors.New("whisperx output missing")

// Pass names a WhisperX run. It is also the file suffix and the tracker stage.
type Pass string

const (
	Transcription Pass = "transcription"
	Alignment     Pass = "alignment"
	Diarization   Pass = "diarization"
)

// Formats renamed per pass.
var stageFormats = []string{"json", "srt", "tsv"}

const (
	outputFormat      = "all"
	segmentResolution = "sentence"
)

// Service provides WhisperX transcription passes.
type Service struct {
	cfg           config.WhisperX
	uvx           string
	log           logrus.FieldLogger
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a WhisperX service. An empty uvx means "uvx" on PATH.
func NewService(cfg config.WhisperX, uvx string, log logrus.FieldLogger) *Service {
	if strings.TrimSpace(uvx) == "" {
		uvx = "uvx"
	}
	return &Service{cfg: cfg, uvx: uvx, log: logging.Component(log, "whisperx")}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Request is one pass over a media file.
type Request struct {
	Pass      Pass
	Media     string
	OutputDir string
	// Stem names the renamed outputs <Stem>_<pass>.*.
	Stem     string
	Language string
}

// Outputs are the renamed files of one pass.
type Outputs struct {
	JSON, SRT, TSV string
}

// StagePaths returns where the outputs of pass for stem live in dir.
func StagePaths(dir, stem string, pass Pass) Outputs {
	base := filepath.Join(dir, stem+"_"+string(pass))
	return Outputs{JSON: base + ".json", SRT: base + ".srt", TSV: base + ".tsv"}
}

// NormalizeLanguage validates a BCP-47 tag and returns its base ISO-639-1 code.
// Empty input means auto-detection and yields "".
func NormalizeLanguage(tag string) (string, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "", nil
	}
	t, err := language.Parse(tag)
	if err != nil {
		return "", fmt.Errorf("language %q: %w", tag, err)
	}
	base, _ := t.Base()
	return base.String(), nil
}

// Run executes one pass and renames its outputs.
func (s *Service) Run(ctx context.Context, req Request) (Outputs, error) {
	if req.Media == "" {
		return Outputs{}, errors.New("whisperx: media path required")
	}
	if req.OutputDir == "" {
		req.OutputDir = filepath.Dir(req.Media)
	}
	if req.Stem == "" {
		req.Stem = media.Stem(req.Media)
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return Outputs{}, fmt.Errorf("whisperx: ensure output dir: %w", err)
	}
	lang, err := NormalizeLanguage(req.Language)
	if err != nil {
		return Outputs{}, fmt.Errorf("whisperx: %w", err)
	}
	req.Language = lang

	args, err := s.buildArgs(req)
	if err != nil {
		return Outputs{}, err
	}
	log := s.log.WithFields(logrus.Fields{"pass": req.Pass, "model": s.cfg.Model, "language": lang})
	log.Info("whisperx pass started")
	if err := s.run(ctx, s.uvx, args...); err != nil {
		return Outputs{}, fmt.Errorf("whisperx %s: %w", req.Pass, err)
	}

	out, err := renameOutputs(req)
	if err != nil {
		return Outputs{}, err
	}
	log.WithField("json", out.JSON).Info("whisperx pass finished")
	return out, nil
}

// renameOutputs moves <media-stem>.{json,srt,tsv} to <stem>_<pass>.*.
func renameOutputs(req Request) (Outputs, error) {
	produced := media.Stem(req.Media)
	out := StagePaths(req.OutputDir, req.Stem, req.Pass)
	targets := map[string]string{"json": out.JSON, "srt": out.SRT, "tsv": out.TSV}
	for _, ext := range stageFormats {
		src := filepath.Join(req.OutputDir, produced+"."+ext)
		if _, err := os.Stat(src); err != nil {
			return Outputs{}, fmt.Errorf("whisperx %s: %w: %s", req.Pass, ErrMissingStageOutput, src)
		}
		if err := os.Rename(src, targets[ext]); err != nil {
			return Outputs{}, fmt.Errorf("whisperx %s: rename %s: %w", req.Pass, ext, err)
		}
	}
	return out, nil
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 defaults torch.load to weights_only, which breaks pyannote checkpoints.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w: %s", name, err, tail(string(output), 2000))
	}
	return nil
}

// buildArgs constructs the uvx command arguments for one pass.
func (s *Service) buildArgs(req Request) ([]string, error) {
	cfg := s.cfg
	args := make([]string, 0, 40)
	args = append(args,
		"whisperx",
		req.Media,
		"--model", cfg.Model,
		"--device", cfg.Device,
		"--compute_type", cfg.ComputeType,
		"--output_dir", req.OutputDir,
		"--output_format", outputFormat,
		"--segment_resolution", segmentResolution,
	)
	if cfg.BatchSize > 0 {
		args = append(args, "--batch_size", strconv.Itoa(cfg.BatchSize))
	}
	if cfg.Threads > 0 {
		args = append(args, "--threads", strconv.Itoa(cfg.Threads))
	}
	if cfg.VADMethod != "" {
		args = append(args, "--vad_method", cfg.VADMethod)
	}
	if req.Language != "" {
		args = append(args, "--language", req.Language)
	}

	switch req.Pass {
	case Transcription:
		args = append(args, "--no_align")
	case Alignment:
	case Diarization:
		if cfg.HFToken == "" {
			return nil, errors.New("whisperx diarization: hugging face token required (hf_token or HF_TOKEN)")
		}
		args = append(args, "--diarize")
		if cfg.MinSpeakers > 0 {
			args = append(args, "--min_speakers", strconv.Itoa(cfg.MinSpeakers))
		}
		if cfg.MaxSpeakers > 0 {
			args = append(args, "--max_speakers", strconv.Itoa(cfg.MaxSpeakers))
		}
		args = append(args, "--hf_token", cfg.HFToken)
	default:
		return nil, fmt.Errorf("whisperx: unknown pass %q", req.Pass)
	}
	return args, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "…" + s[len(s)-n:]
}
