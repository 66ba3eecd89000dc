package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/mediagram/clients"
	cfg "github.com/maastricht-university/mediagram/config"
	"github.com/maastricht-university/mediagram/whisperx"
)

// SpeechService is the HTTP counterpart of the local WhisperX passes.
type SpeechService interface {
	ASR(ctx context.Context, url, mediaPath, language string) (*clients.ASRResp, error)
	Diarize(ctx context.Context, url, mediaPath string, minSpeakers, maxSpeakers int) (*clients.DiarizeResp, error)
}

var errNoTranscript = errors.New("no transcript to diarize and no asr service configured")

// remoteSpeech runs passes against services.asr and services.diarization. It
// writes the same per-pass files as WhisperX so the rest of the pipeline is
// unaware of which backend ran.
type remoteSpeech struct {
	svc      SpeechService
	asrURL   string
	diarURL  string
	hasToken bool
	minSpk   int
	maxSpk   int
	log      logrus.FieldLogger
}

func newRemoteSpeech(c *cfg.Root, svc SpeechService, log logrus.FieldLogger) *remoteSpeech {
	return &remoteSpeech{
		svc:      svc,
		asrURL:   c.Services.ASR.URL,
		diarURL:  c.Services.Diarization.URL,
		hasToken: c.WhisperX.HFToken != "",
		minSpk:   c.WhisperX.MinSpeakers,
		maxSpk:   c.WhisperX.MaxSpeakers,
		log:      log,
	}
}

// handles reports whether pass goes to a service instead of local WhisperX.
// Diarization only falls back to the service when no Hugging Face token is set.
func (r *remoteSpeech) handles(pass whisperx.Pass) bool {
	if pass == whisperx.Diarization {
		return r.diarURL != "" && !r.hasToken
	}
	return r.asrURL != ""
}

func (r *remoteSpeech) Run(ctx context.Context, req whisperx.Request) (whisperx.Outputs, error) {
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return whisperx.Outputs{}, err
	}
	log := r.log.WithField("pass", req.Pass)

	var (
		res whisperx.Result
		err error
	)
	switch req.Pass {
	case whisperx.Diarization:
		res, err = r.diarize(ctx, log, req)
	case whisperx.Alignment:
		// the service returns sentence level timings already
		res, err = r.earlier(ctx, req, whisperx.Transcription)
	default:
		res, err = r.transcribe(ctx, req)
	}
	if err != nil {
		return whisperx.Outputs{}, fmt.Errorf("%s service: %w", req.Pass, err)
	}

	out := whisperx.StagePaths(req.OutputDir, req.Stem, req.Pass)
	if err := whisperx.WriteOutputs(out, res); err != nil {
		return whisperx.Outputs{}, err
	}
	log.WithField("segments", len(res.Segments)).Info("pass finished through service")
	return out, nil
}

func (r *remoteSpeech) transcribe(ctx context.Context, req whisperx.Request) (whisperx.Result, error) {
	if r.asrURL == "" {
		return whisperx.Result{}, errNoTranscript
	}
	resp, err := r.svc.ASR(ctx, r.asrURL, req.Media, req.Language)
	if err != nil {
		return whisperx.Result{}, err
	}
	res := whisperx.Result{Language: resp.Language, Segments: make([]whisperx.Segment, 0, len(resp.Segments))}
	for _, s := range resp.Segments {
		res.Segments = append(res.Segments, whisperx.Segment{Start: s.Start, End: s.End, Text: s.Text, Speaker: s.Speaker})
	}
	if res.Language == "" {
		res.Language = req.Language
	}
	return res, nil
}

// earlier loads the JSON of the first of passes found on disk and otherwise
// transcribes through the service.
func (r *remoteSpeech) earlier(ctx context.Context, req whisperx.Request, passes ...whisperx.Pass) (whisperx.Result, error) {
	for _, p := range passes {
		res, err := whisperx.LoadResult(whisperx.StagePaths(req.OutputDir, req.Stem, p).JSON)
		if err == nil {
			return res, nil
		}
	}
	return r.transcribe(ctx, req)
}

func (r *remoteSpeech) diarize(ctx context.Context, log logrus.FieldLogger, req whisperx.Request) (whisperx.Result, error) {
	res, err := r.earlier(ctx, req, whisperx.Alignment, whisperx.Transcription)
	if err != nil {
		return whisperx.Result{}, err
	}
	resp, err := r.svc.Diarize(ctx, r.diarURL, req.Media, r.minSpk, r.maxSpk)
	if err != nil {
		return whisperx.Result{}, err
	}
	turns := make([]whisperx.SpeakerTurn, len(resp.Turns))
	for i, t := range resp.Turns {
		turns[i] = whisperx.SpeakerTurn{Start: t.Start, End: t.End, Speaker: t.Speaker}
	}
	for i := range res.Segments {
		res.Segments[i].Speaker = ""
	}
	n := res.AssignSpeakers(turns)
	log.WithFields(logrus.Fields{"turns": len(turns), "assigned": n, "segments": len(res.Segments)}).Info("speakers assigned from diarization service")
	return res, nil
}
