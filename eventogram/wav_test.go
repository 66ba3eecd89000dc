package eventogram

import (
	"encoding/binary"
	"testing"
)

func TestEncodeWAVHeader(t *testing.T) {
	b := EncodeWAV([]float32{0, 1, -1, 2}, 32000)
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" || string(b[36:40]) != "data" {
		t.Fatalf("bad chunk ids %q", b[:40])
	}
	if got := binary.LittleEndian.Uint32(b[24:28]); got != 32000 {
		t.Fatalf("sample rate %d", got)
	}
	if got := binary.LittleEndian.Uint32(b[40:44]); got != 8 {
		t.Fatalf("data length %d", got)
	}
	samples := []int16{
		int16(binary.LittleEndian.Uint16(b[44:])),
		int16(binary.LittleEndian.Uint16(b[46:])),
		int16(binary.LittleEndian.Uint16(b[48:])),
		int16(binary.LittleEndian.Uint16(b[50:])),
	}
	if samples[0] != 0 || samples[1] != 32767 || samples[2] != -32767 || samples[3] != 32767 {
		t.Fatalf("samples %v", samples)
	}
}
