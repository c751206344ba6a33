// Package encoder frames finished recordings for transport and for the
// on-disk archive. All audio at this layer is 16 kHz mono S16LE.
package encoder

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)
