package orchestrator

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/maastricht-university/mediagram/logging"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestWindowSlidesWithOverlap(t *testing.T) {
	utts := []Utterance{{Start: 0, End: 10, Spk: "A"}, {Start: 40, End: 50, Spk: "B"}}
	ws := window(utts, 30, 10)
	if len(ws) != 3 {
		t.Fatalf("windows = %d, want 3", len(ws))
	}
	if ws[1].T0 != 20 || ws[1].T1 != 50 {
		t.Fatalf("second window [%v,%v]", ws[1].T0, ws[1].T1)
	}
	if ws[2].T1 != 50 {
		t.Fatalf("last window should end at the session end, got %v", ws[2].T1)
	}
	if len(ws[0].Utts) != 1 || len(ws[1].Utts) != 1 {
		t.Fatalf("utterance membership: %d %d", len(ws[0].Utts), len(ws[1].Utts))
	}
}

func TestWindowDegenerateStep(t *testing.T) {
	ws := window([]Utterance{{Start: 0, End: 5}}, 2, 2)
	if len(ws) != 3 {
		t.Fatalf("overlap equal to size should fall back to a full step, got %d windows", len(ws))
	}
	if window(nil, 30, 10) != nil {
		t.Fatal("no utterances should give no windows")
	}
}

func TestAggregateShareAndOverlap(t *testing.T) {
	w := Window{T0: 0, T1: 10, Utts: []Utterance{
		{Start: 0, End: 6, Spk: "A"},
		{Start: 4, End: 8, Spk: "B"},
		{Start: 8, End: 10, Spk: "A"}, // back to back with B, not overlap
	}}
	aggregate(&w)
	if !approx(w.SpeakingShare["A"], 8.0/12) || !approx(w.SpeakingShare["B"], 4.0/12) {
		t.Fatalf("shares = %v", w.SpeakingShare)
	}
	if !approx(w.OverlapRate, 0.2) {
		t.Fatalf("overlap = %v, want 0.2", w.OverlapRate)
	}
}

func TestAggregateClipsToWindow(t *testing.T) {
	w := Window{T0: 10, T1: 20, Utts: []Utterance{{Start: 0, End: 15, Spk: "A"}, {Start: 15, End: 20, Spk: "B"}}}
	aggregate(&w)
	if !approx(w.SpeakingShare["A"], 0.5) {
		t.Fatalf("share of A = %v", w.SpeakingShare["A"])
	}
}

func TestSpeakerDynamicsAttachesEmotions(t *testing.T) {
	utts := []Utterance{{Start: 0, End: 4, Spk: "SPEAKER_00"}, {Start: 4, End: 8, Spk: "SPEAKER_01"}}
	entries := []SentenceEmotions{
		{StartS: 0, EndS: 4, Emotions: []EmotionScore{{"happy", 0.8}}},
		{StartS: 4, EndS: 8, Emotions: []EmotionScore{{"happy", 0.4}, {"sad", 0.6}}},
	}
	ws := speakerDynamics(utts, entries, 30, 10)
	if len(ws) != 1 {
		t.Fatalf("windows = %d", len(ws))
	}
	if !approx(ws[0].Emotions["happy"], 0.6) || !approx(ws[0].Emotions["sad"], 0.3) {
		t.Fatalf("emotions = %v", ws[0].Emotions)
	}
	d := dynamicsTable(ws)
	if strings.Join(d.Speakers, ",") != "SPEAKER_00,SPEAKER_01" {
		t.Fatalf("speakers = %v", d.Speakers)
	}
	if !approx(d.Windows[0].Shares[0], 0.5) {
		t.Fatalf("shares = %v", d.Windows[0].Shares)
	}
	if dynamicsTable(nil) != nil {
		t.Fatal("no windows should give no table")
	}
}

func TestPairStopsAtMissingSentence(t *testing.T) {
	dets := []Detection{
		{Chunk: Chunk{Index: 1, Path: "/x/a_001.mp4", Start: 0, End: time.Second}, Scores: []EmotionScore{{"开心/happy", 0.12345}}},
		{Chunk: Chunk{Index: 3, Path: "/x/a_003.mp4", Start: 2 * time.Second, End: 3 * time.Second}},
		{Chunk: Chunk{Index: 4, Path: "/x/a_004.mp4"}},
	}
	sentences := []Sentence{{Text: "one"}, {Text: "two"}, {Text: "three"}}
	entries, rows := pair(logging.Discard(), dets, sentences, 1)
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[1].Sentence != "three" || rows[1].Chunk != "a_003.mp4" {
		t.Fatalf("skipped chunk should keep its sentence: %+v %+v", entries[1], rows[1])
	}
	if entries[0].Emotions[0].Score != 0.123 || rows[0].Scores[0].Score != 0.12345 {
		t.Fatalf("json scores are rounded, page scores are not: %+v %+v", entries[0], rows[0])
	}
}

func TestReadSentences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.srt")
	body := "1\n00:00:01,000 --> 00:00:02,500\nfirst line\nsecond line\n\n2\n00:00:03,000 --> 00:00:04,000\nnext\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ReadSentences(path)
	if err != nil {
		t.Fatalf("ReadSentences: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("sentences = %d", len(got))
	}
	if got[0].Text != "first line second line" || got[0].Start != time.Second || got[0].End != 2500*time.Millisecond {
		t.Fatalf("first = %+v", got[0])
	}
}

func TestFlatKeyAndEnglishLabel(t *testing.T) {
	cases := map[string][2]string{
		"生气/angry": {"angry", "angry"},
		"<unk>":    {"<unk>", "unk"},
		"neutral":  {"neutral", "neutral"},
	}
	for in, want := range cases {
		if got := EnglishLabel(in); got != want[0] {
			t.Errorf("EnglishLabel(%q) = %q", in, got)
		}
		if got := flatKey(in); got != want[1] {
			t.Errorf("flatKey(%q) = %q", in, got)
		}
	}
}

func TestPersistEmotionsKeepsOrderAndMarkup(t *testing.T) {
	dir := t.TempDir()
	jsonPath, aiPath := filepath.Join(dir, "e.json"), filepath.Join(dir, "ai.json")
	entries := []SentenceEmotions{{
		Sentence: "<b>Tom & Jerry</b>", StartS: 1, EndS: 2,
		Emotions: []EmotionScore{{"难过/sad", 0.5}, {"开心/happy", 0.25}},
	}}
	if err := persistEmotions(jsonPath, aiPath, entries); err != nil {
		t.Fatalf("persistEmotions: %v", err)
	}
	ai, _ := os.ReadFile(aiPath)
	text := string(ai)
	order := []string{`"sentence"`, `"start_time_s"`, `"end_time_s"`, `"sad"`, `"happy"`}
	last := -1
	for _, k := range order {
		i := strings.Index(text, k)
		if i <= last {
			t.Fatalf("key %s out of order in\n%s", k, text)
		}
		last = i
	}
	if !strings.Contains(text, "<b>Tom & Jerry</b>") {
		t.Fatalf("markup escaped:\n%s", text)
	}
	main, _ := os.ReadFile(jsonPath)
	if !strings.Contains(string(main), "\n    {\n        \"sentence\"") {
		t.Fatalf("expected four space indent:\n%s", main)
	}
}

func TestTrackerConcurrentUpdates(t *testing.T) {
	tr := NewTracker(t.TempDir())
	stages := []string{"whisperx_transcription", "whisperx_alignment", "whisperx_diarization", "display"}
	var wg sync.WaitGroup
	for _, s := range stages {
		wg.Add(1)
		go func(stage string) {
			defer wg.Done()
			if err := tr.MarkCompleted(stage); err != nil {
				t.Error(err)
			}
		}(s)
	}
	wg.Wait()
	statuses, err := tr.Statuses()
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range stages {
		if statuses[s] != "completed" {
			t.Errorf("%s lost: %v", s, statuses)
		}
	}
}

func TestTrackerRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tracker.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewTracker(dir).Completed("whisperx_transcription"); err == nil {
		t.Fatal("expected parse error")
	}
}
