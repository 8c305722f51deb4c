package glitch

// EchoDelay is the echo length in seconds.
const EchoDelay = 0.3

const echoFeedback = 0.5

// echoLine is a feedback delay over a fixed ring of samples.
type echoLine struct {
	buf   []float32
	pos   int
	dirty bool
}

func newEchoLine(sampleRate int) *echoLine {
	n := int(float64(sampleRate) * EchoDelay)
	if n < 1 {
		n = 1
	}
	return &echoLine{buf: make([]float32, n)}
}

// Process returns dry plus half the delayed sample and feeds the result back
// into the ring.
func (e *echoLine) Process(dry float32) float32 {
	y := dry + echoFeedback*e.buf[e.pos]
	e.buf[e.pos] = y
	e.pos++
	if e.pos >= len(e.buf) {
		e.pos = 0
	}
	e.dirty = true
	return y
}

func (e *echoLine) process(in, out []float32) {
	for i, x := range in {
		out[i] = e.Process(x)
	}
}

func (e *echoLine) reset() {
	if !e.dirty {
		return
	}
	clear(e.buf)
	e.pos = 0
	e.dirty = false
}
