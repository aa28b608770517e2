package schema

// Coord describes one axis of a recorded data tensor: the trial, sample and
// channel (or output) axes each carry one. Informational only; the analysis
// core never mutates coordinate metadata.
type Coord struct {
	Name      string       // Axis name, e.g. "trial", "time", "channel"
	Fs        float64      // Sample rate in Hz; only meaningful on the time axis
	Labels    []string     // Per-position labels, e.g. channel names
	Positions [][2]float64 // Optional 2-D sensor positions for channel axes
}

// SampleRate extracts a sample rate from coordinate metadata, preferring the
// time axis (by convention index 1) and falling back to any axis that carries
// one. Returns 0 when no axis has a rate.
func SampleRate(coords []Coord) float64 {
	if len(coords) > 1 && coords[1].Fs > 0 {
		return coords[1].Fs
	}
	for _, c := range coords {
		if c.Fs > 0 {
			return c.Fs
		}
	}
	return 0
}
