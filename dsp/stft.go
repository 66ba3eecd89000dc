// Package dsp computes the magnitude spectrogram drawn above the eventogram.
package dsp

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Hann returns a periodic Hann window of length n.
func Hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// STFT returns |X| as frames[bins] with bins = nFFT/2+1. The signal is reflect padded by
// nFFT/2 on both sides so frame i is centred on sample i*hop. All rows share one
// float32 backing array; an hour of 32 kHz audio at hop 320 is about 740 MB.
func STFT(samples []float32, nFFT, hop int) [][]float32 {
	if nFFT <= 0 || hop <= 0 || len(samples) == 0 {
		return nil
	}
	padded := reflectPad(samples, nFFT/2)
	nFrames := 1 + (len(padded)-nFFT)/hop
	if nFrames <= 0 {
		return nil
	}

	window := Hann(nFFT)
	fft := fourier.NewFFT(nFFT)
	seq := make([]float64, nFFT)
	coeff := make([]complex128, nFFT/2+1)
	bins := len(coeff)
	backing := make([]float32, nFrames*bins)
	out := make([][]float32, nFrames)
	for f := 0; f < nFrames; f++ {
		off := f * hop
		for i := 0; i < nFFT; i++ {
			seq[i] = padded[off+i] * window[i]
		}
		coeff = fft.Coefficients(coeff, seq)
		mag := backing[f*bins : (f+1)*bins : (f+1)*bins]
		for i, c := range coeff {
			mag[i] = float32(cmplx.Abs(c))
		}
		out[f] = mag
	}
	return out
}

// reflectPad mirrors pad samples at each edge without repeating the edge sample.
// Signals too short to mirror are zero padded instead.
func reflectPad(x []float32, pad int) []float64 {
	n := len(x)
	out := make([]float64, n+2*pad)
	for i, v := range x {
		out[pad+i] = float64(v)
	}
	if n <= pad {
		return out
	}
	for i := 0; i < pad; i++ {
		out[pad-1-i] = float64(x[i+1])
		out[pad+n+i] = float64(x[n-2-i])
	}
	return out
}

// LogMagnitude replaces every value of m with log(v + 1e-10) and returns m.
func LogMagnitude(m [][]float32) [][]float32 {
	for _, row := range m {
		for j, v := range row {
			row[j] = float32(math.Log(float64(v) + 1e-10))
		}
	}
	return m
}

// Range returns the min and max over a matrix. An empty matrix yields 0, 0.
func Range(m [][]float32) (lo, hi float64) {
	first := true
	for _, row := range m {
		for _, x := range row {
			v := float64(x)
			if first {
				lo, hi, first = v, v, false
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	return lo, hi
}
