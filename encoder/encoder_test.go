package encoder

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func sine(n int, freq float64) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(10000 * math.Sin(2*math.Pi*freq*float64(i)/SampleRate))
	}
	return samples
}

func TestWAVHeader(t *testing.T) {
	samples := sine(SampleRate/10, 440)
	data := WAVBytes(samples)

	if len(data) != 44+len(samples)*2 {
		t.Fatalf("size = %d, want %d", len(data), 44+len(samples)*2)
	}
	if string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE magic")
	}
	if got := binary.LittleEndian.Uint32(data[24:]); got != SampleRate {
		t.Errorf("sample rate = %d, want %d", got, SampleRate)
	}
	if got := binary.LittleEndian.Uint16(data[22:]); got != Channels {
		t.Errorf("channels = %d, want %d", got, Channels)
	}
	if got := binary.LittleEndian.Uint16(data[34:]); got != BitsPerSample {
		t.Errorf("bits per sample = %d, want %d", got, BitsPerSample)
	}
	if got := binary.LittleEndian.Uint32(data[40:]); got != uint32(len(samples)*2) {
		t.Errorf("data size = %d, want %d", got, len(samples)*2)
	}
}

func TestWAVPayloadRoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 12345}
	data := WAVBytes(samples)

	payload := data[44:]
	for i, want := range samples {
		got := int16(binary.LittleEndian.Uint16(payload[i*2:]))
		if got != want {
			t.Fatalf("sample %d = %d, want %d", i, got, want)
		}
	}
}

func TestWAVEmpty(t *testing.T) {
	data := WAVBytes(nil)
	if len(data) != 44 {
		t.Fatalf("empty payload size = %d, want 44", len(data))
	}
	if got := binary.LittleEndian.Uint32(data[40:]); got != 0 {
		t.Errorf("data size = %d, want 0", got)
	}
}

func TestArchiveWritesFlac(t *testing.T) {
	dir := t.TempDir()
	samples := sine(SampleRate/2, 220)

	path, err := Archive(dir, "rec-test", samples)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if filepath.Base(path) != "rec-test.flac" {
		t.Errorf("path = %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading archive: %v", err)
	}
	if len(data) < 4 || string(data[:4]) != "fLaC" {
		t.Fatal("output does not start with FLAC magic")
	}

	rawSize := len(samples) * 2
	t.Logf("Raw: %d bytes, FLAC: %d bytes (%.1f%% compression)",
		rawSize, len(data), (1-float64(len(data))/float64(rawSize))*100)
}

func TestFlacWriterPartialBlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.flac")
	w, err := NewFlacWriter(path)
	if err != nil {
		t.Fatalf("NewFlacWriter: %v", err)
	}

	partial := make([]int16, BlockSize/4)
	for i := range partial {
		partial[i] = int16(i % 1000)
	}
	if err := w.WriteBlock(partial); err != nil {
		t.Fatalf("WriteBlock partial: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if w.TotalFrames() != uint64(len(partial)) {
		t.Errorf("TotalFrames = %d, want %d", w.TotalFrames(), len(partial))
	}
}

func TestFlacWriterAbortRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aborted.flac")
	w, err := NewFlacWriter(path)
	if err != nil {
		t.Fatalf("NewFlacWriter: %v", err)
	}
	if err := w.WriteBlock(sine(BlockSize, 440)); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	w.Abort()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("aborted archive still on disk")
	}
}
