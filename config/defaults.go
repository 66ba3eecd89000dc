package config

// Default returns the built-in configuration. Values mirror the defaults of the
// tools being wrapped: PANNs Cnn14 at 32 kHz, WhisperX "medium" on CPU.
func Default() Root {
	var c Root
	c.Pipeline.Name = "mediagram"
	c.Pipeline.Version = "0.4.0"
	c.Pipeline.LogLvl = "info"
	c.Pipeline.LogFormat = "text"

	c.Audio = Audio{SampleRate: 16000, Channels: 1}

	c.Services = Services{
		ASR:            Service{URL: ""},
		Tagging:        Service{URL: "http://127.0.0.1:8011"},
		Emotion:        Service{URL: "http://127.0.0.1:8012"},
		Diarization:    Service{URL: ""},
		TimeoutSeconds: 600,
	}

	c.Tools = Tools{
		FFmpeg:             "ffmpeg",
		FFprobe:            "ffprobe",
		YtDlp:              "yt-dlp",
		UVX:                "uvx",
		CookiesFromBrowser: "chrome",
	}

	c.WhisperX = WhisperX{
		Model:       "medium",
		Device:      "cpu",
		ComputeType: "float32",
		BatchSize:   2,
		Threads:     0,
		VADMethod:   "pyannote",
	}

	c.Eventogram = Eventogram{
		SampleRate:     32000,
		WindowSize:     1024,
		HopSize:        320,
		MelBins:        64,
		FMin:           50,
		FMax:           14000,
		ModelType:      "Cnn14_DecisionLevelMax",
		ChunkSeconds:   180,
		Threshold:      0.2,
		TopK:           10,
		Translucency:   0.7,
		OverlaySize:    0.2,
		CRF:            23,
		WindowDuration: 30,
		MinFreeBytes:   1_000_000_000,
	}

	c.Emotions = Emotions{
		MinSegmentMs:   500,
		BarScale:       50,
		Granularity:    "utterance",
		OpenBrowser:    false,
		WindowSeconds:  30,
		OverlapSeconds: 10,
	}

	c.Paths.Downloads = "~/Downloads"
	return c
}
