package eventogram

// Framewise holds per-frame class probabilities as frames x classes.
type Framewise [][]float32

// Chunk is a half-open sample range [Start, End).
type Chunk struct {
	Start, End int
}

// PlanChunks splits totalSamples into chunkSeconds pieces. A trailing piece shorter than
// a tenth of a second is dropped since the model cannot frame it.
func PlanChunks(totalSamples, sampleRate, chunkSeconds int) []Chunk {
	if chunkSeconds <= 0 {
		chunkSeconds = 180
	}
	size := chunkSeconds * sampleRate
	if size <= 0 {
		return nil
	}
	minLen := sampleRate / 10
	var out []Chunk
	for start := 0; start < totalSamples; start += size {
		end := min(start+size, totalSamples)
		if end-start < minLen {
			continue
		}
		out = append(out, Chunk{Start: start, End: end})
	}
	return out
}

// FramesPerSecond is sample_rate / hop_size, integer division.
func FramesPerSecond(sampleRate, hopSize int) int {
	if hopSize <= 0 {
		return 0
	}
	return sampleRate / hopSize
}

// Concat appends the chunk outputs in order.
func Concat(parts ...Framewise) Framewise {
	var n int
	for _, p := range parts {
		n += len(p)
	}
	out := make(Framewise, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Classes is the width of the matrix, 0 when empty.
func (m Framewise) Classes() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// PadTo truncates or zero-pads m to exactly frames rows.
func (m Framewise) PadTo(frames int) Framewise {
	if frames < 0 {
		frames = 0
	}
	if len(m) >= frames {
		return m[:frames]
	}
	classes := m.Classes()
	out := make(Framewise, frames)
	copy(out, m)
	for i := len(m); i < frames; i++ {
		out[i] = make([]float32, classes)
	}
	return out
}

// ExpectedFrames is int(duration * fps).
func ExpectedFrames(duration float64, fps int) int {
	return int(duration * float64(fps))
}
