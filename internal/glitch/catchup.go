package glitch

// Catchup timing: one second of silence while recording, then the recording
// replayed at four times speed.
const (
	CatchupMute  = 1.0
	CatchupSpeed = 4
	CatchupGain  = 1.2
)

type catchupPhase int

const (
	catchupIdle catchupPhase = iota
	catchupMuting
	catchupCatchingUp
)

type catchup struct {
	phase       catchupPhase
	buf         []float32
	muteSamples int
	playSamples int
	played      int
}

func newCatchup(sampleRate int) *catchup {
	mute := int(float64(sampleRate) * CatchupMute)
	if mute < CatchupSpeed {
		mute = CatchupSpeed
	}
	return &catchup{
		buf:         make([]float32, 0, mute),
		muteSamples: mute,
		playSamples: mute / CatchupSpeed,
	}
}

func (c *catchup) process(in, out []float32) {
	if c.phase == catchupIdle {
		c.phase = catchupMuting
		c.buf = c.buf[:0]
		c.played = 0
	}

	switch c.phase {
	case catchupMuting:
		for i, x := range in {
			if len(c.buf) < c.muteSamples {
				c.buf = append(c.buf, x)
			}
			out[i] = 0
		}
		if len(c.buf) >= c.muteSamples {
			c.phase = catchupCatchingUp
			c.played = 0
		}
	case catchupCatchingUp:
		// Output is the replay only; live input is discarded.
		for i := range out {
			var s float32
			if c.played < c.playSamples {
				if j := c.played * CatchupSpeed; j < len(c.buf) {
					s = c.buf[j]
				}
				c.played++
			}
			out[i] = s * CatchupGain
		}
		if c.played >= c.playSamples {
			c.reset()
		}
	}
}

func (c *catchup) reset() {
	c.phase = catchupIdle
	c.buf = c.buf[:0]
	c.played = 0
}
