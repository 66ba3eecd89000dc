// Package orchestrator runs the emotion pipelines: WhisperX passes, media
// chunking, emotion detection per chunk and the HTML/JSON reports.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/browser"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/mediagram/clients"
	cfg "github.com/maastricht-university/mediagram/config"
	"github.com/maastricht-university/mediagram/logging"
	"github.com/maastricht-university/mediagram/media"
	"github.com/maastricht-university/mediagram/report"
	"github.com/maastricht-university/mediagram/whisperx"
)

// Transcriber runs one WhisperX pass.
type Transcriber interface {
	Run(ctx context.Context, req whisperx.Request) (whisperx.Outputs, error)
}

// Downloader fetches remote media.
type Downloader interface {
	Download(ctx context.Context, rawURL, dir string) (string, error)
}

// Options are the per-invocation switches of the emotions command.
type Options struct {
	Language  string
	NoAlign   bool
	NoDiarize bool
	// Open shows the last report in the default browser.
	Open bool
}

type Pipeline struct {
	cfg     *cfg.Root
	opts    Options
	log     logrus.FieldLogger
	emo     EmotionService
	whisper Transcriber
	remote  *remoteSpeech
	ffmpeg  *media.Runner
	dl      Downloader
	probe   func(ctx context.Context, binary, path string) (media.Result, error)
	open    func(path string) error
}

func NewPipeline(c *cfg.Root, log logrus.FieldLogger, opts Options) *Pipeline {
	log = logging.Component(log, "emotions")
	svc := clients.NewHTTP(c.ServiceTimeout())
	return &Pipeline{
		cfg:     c,
		opts:    opts,
		log:     log,
		emo:     svc,
		whisper: whisperx.NewService(c.WhisperX, c.Tools.UVX, log),
		remote:  newRemoteSpeech(c, svc, log),
		ffmpeg:  media.NewRunner(c.Tools.FFmpeg, log),
		dl:      media.NewYtDlp(c.Tools.YtDlp, c.Tools.CookiesFromBrowser, log),
		probe:   media.Inspect,
		open:    browser.OpenFile,
	}
}

func (p *Pipeline) WithEmotionService(e EmotionService) *Pipeline { p.emo = e; return p }
func (p *Pipeline) WithTranscriber(t Transcriber) *Pipeline       { p.whisper = t; return p }
func (p *Pipeline) WithFFmpeg(r *media.Runner) *Pipeline           { p.ffmpeg = r; return p }
func (p *Pipeline) WithDownloader(d Downloader) *Pipeline          { p.dl = d; return p }
func (p *Pipeline) WithSpeechService(s SpeechService) *Pipeline   { p.remote.svc = s; return p }
func (p *Pipeline) WithOpener(open func(path string) error) *Pipeline {
	p.open = open
	return p
}
func (p *Pipeline) WithProbe(probe func(ctx context.Context, binary, path string) (media.Result, error)) *Pipeline {
	p.probe = probe
	return p
}

// Summary describes a finished run.
type Summary struct {
	RunID     string
	MediaPath string
	OutputDir string
	Passes    []PassRecord
	// Reports are the HTML pages written, in pass order.
	Reports []string
}

// job is the state shared by the stages of one run.
type job struct {
	media  string
	outDir string
	stem   string
	kind   media.ChunkKind
	log    logrus.FieldLogger
}

// OutputDir is <dir>/<file name>_emotions_detected for a media path.
func OutputDir(mediaPath string) string {
	return filepath.Join(filepath.Dir(mediaPath), filepath.Base(mediaPath)+"_emotions_detected")
}

func stageKey(pass whisperx.Pass) string { return "whisperx_" + string(pass) }

// Run executes transcription, alignment and diarization in order. Passes already
// marked completed in tracker.json are skipped.
func (p *Pipeline) Run(ctx context.Context, input string) (Summary, error) {
	runID := uuid.NewString()
	log := p.log.WithField("run_id", runID)
	started := time.Now()

	path, err := p.resolveInput(ctx, input)
	if err != nil {
		return Summary{}, err
	}
	j := job{media: path, outDir: OutputDir(path), stem: media.Stem(path), log: log.WithField("media", path)}
	if err := os.MkdirAll(j.outDir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("create output dir: %w", err)
	}
	j.kind = p.chunkKind(ctx, j)

	sum := Summary{RunID: runID, MediaPath: path, OutputDir: j.outDir}
	tracker := NewTracker(j.outDir)
	for _, pass := range p.passes() {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		done, err := tracker.Completed(stageKey(pass))
		if err != nil {
			return sum, err
		}
		if done {
			j.log.WithField("pass", pass).Info("pass already completed, skipping")
			sum.Passes = append(sum.Passes, PassRecord{Pass: string(pass), Skipped: true})
			continue
		}
		rec, err := p.processStage(ctx, j, pass)
		if err != nil {
			return sum, fmt.Errorf("%s pass: %w", pass, err)
		}
		if err := tracker.MarkCompleted(stageKey(pass)); err != nil {
			return sum, err
		}
		sum.Passes = append(sum.Passes, rec)
		for _, f := range rec.Files {
			if filepath.Ext(f) == ".html" {
				sum.Reports = append(sum.Reports, f)
			}
		}
	}

	bundle := PersistBundle{RunID: runID, MediaPath: path, GeneratedAt: time.Now(), Passes: sum.Passes}
	if err := writeJSON(filepath.Join(j.outDir, "run.json"), bundle); err != nil {
		return sum, err
	}
	log.WithField("elapsed", time.Since(started).Round(time.Second)).Info("emotions pipeline finished")
	p.maybeOpen(log, sum.Reports)
	return sum, nil
}

func (p *Pipeline) passes() []whisperx.Pass {
	passes := []whisperx.Pass{whisperx.Transcription}
	if !p.opts.NoAlign {
		passes = append(passes, whisperx.Alignment)
	}
	if !p.opts.NoDiarize {
		passes = append(passes, whisperx.Diarization)
	}
	return passes
}

func (p *Pipeline) resolveInput(ctx context.Context, input string) (string, error) {
	if !media.IsURL(input) {
		if _, err := os.Stat(input); err != nil {
			return "", fmt.Errorf("media: %w", err)
		}
		return filepath.Abs(input)
	}
	dir := p.cfg.Paths.Downloads
	if dir == "" {
		dir = "."
	}
	return p.dl.Download(ctx, input, dir)
}

// chunkKind picks video chunks when the source has a real video stream. A failed
// probe falls back to video chunks, which ffmpeg also accepts for audio input.
func (p *Pipeline) chunkKind(ctx context.Context, j job) media.ChunkKind {
	res, err := p.probe(ctx, p.cfg.Tools.FFprobe, j.media)
	if err != nil {
		j.log.WithError(err).Warn("probe failed, assuming video")
		return media.ChunkVideo
	}
	if res.Info().HasVideo {
		return media.ChunkVideo
	}
	return media.ChunkAudioMP4
}

// processStage runs one WhisperX pass and, where that pass reports, chunks the
// media, detects emotions and renders the page.
func (p *Pipeline) processStage(ctx context.Context, j job, pass whisperx.Pass) (PassRecord, error) {
	rec := PassRecord{Pass: string(pass)}
	lang := p.opts.Language
	if pass != whisperx.Transcription {
		lang = p.stageLanguage(j)
	}
	out, err := p.runPass(ctx, whisperx.Request{Pass: pass, Media: j.media, OutputDir: j.outDir, Stem: j.stem, Language: lang})
	if err != nil {
		return rec, err
	}
	rec.Files = append(rec.Files, out.JSON, out.SRT, out.TSV)

	// alignment only reports when it is the last pass
	if pass == whisperx.Alignment && !p.opts.NoDiarize {
		return rec, nil
	}

	chunks, err := p.chunkStage(ctx, j, pass, out.TSV)
	if err != nil {
		return rec, err
	}
	rec.Chunks = len(chunks)
	files, sentences, err := p.reportStage(ctx, j, pass, out, chunks)
	if err != nil {
		return rec, err
	}
	rec.Sentences = sentences
	rec.Files = append(rec.Files, files...)
	return rec, nil
}

// runPass sends a pass to the configured speech services when they cover it and
// to local WhisperX otherwise.
func (p *Pipeline) runPass(ctx context.Context, req whisperx.Request) (whisperx.Outputs, error) {
	if p.remote.handles(req.Pass) {
		return p.remote.Run(ctx, req)
	}
	return p.whisper.Run(ctx, req)
}

// stageLanguage reads the language detected by the transcription pass. Without
// it the user's choice (or auto-detection) stands.
func (p *Pipeline) stageLanguage(j job) string {
	res, err := whisperx.LoadResult(whisperx.StagePaths(j.outDir, j.stem, whisperx.Transcription).JSON)
	if err != nil || res.Language == "" {
		j.log.WithError(err).Warn("transcription language unavailable")
		return p.opts.Language
	}
	return res.Language
}

// reportStage detects emotions per chunk and writes the raw replies, the JSON
// pair and the HTML page for pass.
func (p *Pipeline) reportStage(ctx context.Context, j job, pass whisperx.Pass, out whisperx.Outputs, chunks []Chunk) ([]string, int, error) {
	log := j.log.WithField("pass", pass)
	dets, raw, err := p.detect(ctx, log, chunks)
	if err != nil {
		return nil, 0, err
	}
	prefix := filepath.Join(j.outDir, fmt.Sprintf("%s_%s", j.stem, pass))
	rawPath := prefix + "_recognized_emotions_dictionaries.txt"
	if err := persistRaw(rawPath, raw); err != nil {
		return nil, 0, fmt.Errorf("write raw results: %w", err)
	}

	sentences, err := ReadSentences(out.SRT)
	if err != nil {
		return nil, 0, err
	}
	if len(sentences) != len(dets) {
		log.WithFields(logrus.Fields{"sentences": len(sentences), "results": len(dets)}).Warn("sentence and result counts differ")
	}
	entries, rows := pair(log, dets, sentences, 1)

	jsonPath, aiPath := prefix+"_emotions.json", prefix+"_emotions_ai_friendly.json"
	if err := persistEmotions(jsonPath, aiPath, entries); err != nil {
		return nil, 0, err
	}

	page := report.EmotionPageData{
		Tool:     fmt.Sprintf("%s %s", p.cfg.Pipeline.Name, p.cfg.Pipeline.Version),
		Pass:     string(pass),
		Source:   filepath.Base(j.media),
		Rows:     rows,
		BarScale: p.cfg.Emotions.BarScale,
	}
	files := []string{rawPath, jsonPath, aiPath}
	if pass == whisperx.Diarization {
		windowsPath, err := p.addSpeakers(j, out.JSON, entries, &page)
		if err != nil {
			return nil, 0, err
		}
		files = append(files, windowsPath)
	}

	htmlPath := prefix + "_emotions.html"
	if err := writePage(htmlPath, func(f *os.File) error { return report.EmotionPage(f, page) }); err != nil {
		return nil, 0, err
	}
	log.WithField("report", htmlPath).Info("report written")
	return append(files, htmlPath), len(entries), nil
}

// addSpeakers adds the speaker timeline and dynamics table to the page and keeps
// the windows next to the report.
func (p *Pipeline) addSpeakers(j job, resultPath string, entries []SentenceEmotions, page *report.EmotionPageData) (string, error) {
	res, err := whisperx.LoadResult(resultPath)
	if err != nil {
		return "", fmt.Errorf("diarization result: %w", err)
	}
	res.FillSpeakers(j.log)

	utts := make([]Utterance, 0, len(res.Segments))
	for _, s := range res.Segments {
		utts = append(utts, Utterance{Start: s.Start, End: s.End, Text: s.Text, Spk: s.Speaker})
		page.Turns = append(page.Turns, report.SpeakerTurn{Speaker: s.Speaker, Start: s.Start, End: s.End})
	}
	windows := speakerDynamics(utts, entries, float64(p.cfg.Emotions.WindowSeconds), float64(p.cfg.Emotions.OverlapSeconds))
	page.Dynamics = dynamicsTable(windows)

	path := filepath.Join(j.outDir, fmt.Sprintf("%s_%s_windows.json", j.stem, whisperx.Diarization))
	if windows == nil {
		windows = []Window{}
	}
	return path, writeJSON(path, windows)
}

func writePage(path string, render func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("render %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func (p *Pipeline) maybeOpen(log logrus.FieldLogger, reports []string) {
	if !p.opts.Open && !p.cfg.Emotions.OpenBrowser {
		return
	}
	if len(reports) == 0 {
		return
	}
	last := reports[len(reports)-1]
	if err := p.open(last); err != nil {
		log.WithError(err).Warn("could not open report in browser")
	}
}

var errNoSegments = errors.New("transcript has no segments")
