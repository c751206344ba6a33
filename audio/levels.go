package audio

import "encoding/binary"

// Bands is the number of level-meter segments delivered to observers.
const Bands = 8

const levelSmoothing = 0.4

// Meter turns raw S16LE frames into a smoothed 8-band amplitude
// summary for visualization. Each band is the peak absolute sample of
// one eighth of the frame, normalized to [0,1], blended with the
// previous reading so the display does not flicker.
type Meter struct {
	bands [Bands]float32
}

func (m *Meter) Process(data []byte) [Bands]float32 {
	samples := len(data) / 2
	if samples == 0 {
		return m.bands
	}

	var raw [Bands]float32
	chunk := samples / Bands
	if chunk == 0 {
		chunk = samples
	}
	for b := 0; b < Bands; b++ {
		start := b * chunk
		end := start + chunk
		if start >= samples {
			break
		}
		if end > samples {
			end = samples
		}
		var peak float32
		for i := start; i < end; i++ {
			s := int16(binary.LittleEndian.Uint16(data[i*2:]))
			v := float32(s) / 32768.0
			if v < 0 {
				v = -v
			}
			if v > peak {
				peak = v
			}
		}
		raw[b] = peak
	}

	for b := range m.bands {
		m.bands[b] = m.bands[b]*(1-levelSmoothing) + raw[b]*levelSmoothing
		if m.bands[b] > 1 {
			m.bands[b] = 1
		}
	}
	return m.bands
}

func (m *Meter) Reset() {
	m.bands = [Bands]float32{}
}
