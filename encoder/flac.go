package encoder

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// FlacWriter streams blocks of a recording into a FLAC file. Used for
// the archival copy referenced from the history database.
type FlacWriter struct {
	path        string
	file        *os.File
	enc         *flac.Encoder
	totalFrames uint64
}

func NewFlacWriter(path string) (*FlacWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating archive dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating archive file: %w", err)
	}
	info := &meta.StreamInfo{
		BlockSizeMin:  BlockSize,
		BlockSizeMax:  BlockSize,
		SampleRate:    SampleRate,
		NChannels:     Channels,
		BitsPerSample: BitsPerSample,
		NSamples:      0,
	}
	enc, err := flac.NewEncoder(f, info)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("creating flac encoder: %w", err)
	}
	enc.EnablePredictionAnalysis(true)
	return &FlacWriter{path: path, file: f, enc: enc}, nil
}

func (w *FlacWriter) WriteBlock(block []int16) error {
	if len(block) == 0 {
		return nil
	}
	samples32 := make([]int32, len(block))
	for i, s := range block {
		samples32[i] = int32(s)
	}

	subframe := &frame.Subframe{
		SubHeader: frame.SubHeader{
			Pred: frame.PredVerbatim,
		},
		Samples:  samples32,
		NSamples: len(block),
	}

	f := &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(len(block)),
			SampleRate:    SampleRate,
			Channels:      frame.ChannelsMono,
			BitsPerSample: BitsPerSample,
		},
		Subframes: []*frame.Subframe{subframe},
	}

	if err := w.enc.WriteFrame(f); err != nil {
		return fmt.Errorf("writing flac frame: %w", err)
	}
	w.totalFrames += uint64(len(block))
	return nil
}

func (w *FlacWriter) TotalFrames() uint64 { return w.totalFrames }

func (w *FlacWriter) Path() string { return w.path }

func (w *FlacWriter) Close() error {
	encErr := w.enc.Close()
	fileErr := w.file.Close()
	if encErr != nil {
		return encErr
	}
	return fileErr
}

// Abort closes and removes a partially written archive. Used when a
// session is cancelled mid-recording.
func (w *FlacWriter) Abort() {
	w.enc.Close()
	w.file.Close()
	os.Remove(w.path)
}

// Archive writes a complete recording to dir in one call, chunked into
// encoder blocks, and returns the file path.
func Archive(dir, name string, samples []int16) (string, error) {
	path := filepath.Join(dir, name+".flac")
	w, err := NewFlacWriter(path)
	if err != nil {
		return "", err
	}
	for off := 0; off < len(samples); off += BlockSize {
		end := off + BlockSize
		if end > len(samples) {
			end = len(samples)
		}
		if err := w.WriteBlock(samples[off:end]); err != nil {
			w.Abort()
			return "", err
		}
	}
	if err := w.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// DefaultArchiveDir returns the recordings directory next to the
// settings and history files.
func DefaultArchiveDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "murmur", "recordings"), nil
}
