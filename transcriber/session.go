package transcriber

type SessionConfig struct {
	Language string
}

type BatchStats struct {
	AudioLengthS float64
	PayloadKB    float64
	DNSTimeMs    float64
	TLSTimeMs    float64
	TTFBMs       float64
	TotalTimeMs  float64
	ConnReused   bool
}

type SessionResult struct {
	Text      string
	HasText   bool
	NoSpeech  bool
	RateLimit string // "remaining/limit" or empty
	Batch     *BatchStats
}

// Session accumulates one recording. Feed is called from the audio
// path and must not block on the network; Close uploads and returns
// the transcript. Updates carries interim text for backends that
// produce it and is closed by Close.
type Session interface {
	Feed(pcm []byte)
	Updates() <-chan string
	Close() (SessionResult, error)
}
