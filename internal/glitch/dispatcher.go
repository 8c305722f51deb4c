package glitch

import "math/rand/v2"

// RepeatWindow is the length of the repeat-last-ms capture in seconds.
const RepeatWindow = 0.001

// Dispatcher applies the active glitch variant and the overlay to each block.
// All of its state belongs to the audio callback; the schedulers reach it
// only through State.
type Dispatcher struct {
	state   *State
	mixer   *Mixer
	effects [numVariants]effect
	catchup *catchup
	mix     []float32
	current Variant

	// spent is set once a catchup sequence completes and stays set until the
	// scheduler moves away from catchup, so one activation runs it once.
	spent bool
}

// NewDispatcher builds a dispatcher for blocks of blockSize samples at
// sampleRate. Larger blocks are accepted but grow internal buffers once.
func NewDispatcher(state *State, sampleRate, blockSize int) *Dispatcher {
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	window := max(int(float64(sampleRate)*RepeatWindow), 1)

	d := &Dispatcher{
		state:   state,
		mixer:   NewMixer(state, rng),
		catchup: newCatchup(sampleRate),
		mix:     make([]float32, blockSize),
	}
	d.effects[Bitcrush] = bitcrush{}
	d.effects[Stutter] = &stutter{buf: make([]float32, 0, blockSize)}
	d.effects[Mute] = mute{}
	d.effects[Pitch] = pitch{}
	d.effects[ExtraDistortion] = clipper{gain: 4, limit: 0.3}
	d.effects[RepeatLastMs] = &repeatLast{window: window, buf: make([]float32, 0, window)}
	d.effects[Reverse] = &reverse{buf: make([]float32, 0, blockSize)}
	d.effects[StaticNoise] = staticNoise{rng: rng}
	d.effects[MicPeak] = clipper{gain: 10, limit: 1}
	d.effects[Echo] = newEchoLine(sampleRate)
	d.effects[Catchup] = d.catchup
	return d
}

// ProcessBlock writes the transformed input block to out. in and out must
// have the same length and must not overlap.
func (d *Dispatcher) ProcessBlock(in, out []float32) {
	if len(in) == 0 {
		return
	}
	if cap(d.mix) < len(in) {
		d.mix = make([]float32, len(in))
	}
	mix := d.mix[:len(in)]

	v := d.activeVariant()
	d.resetExcept(v)
	d.current = v

	// The loud sound replaces the block; a running catchup is paused, not advanced.
	if d.mixer.Mix(mix) {
		copy(out, mix)
		return
	}
	if v == None {
		for i, x := range in {
			out[i] = x + mix[i]
		}
		return
	}

	before := d.catchup.phase
	d.effects[v].process(in, out)
	if v == Catchup {
		d.syncHold(before)
		return
	}
	for i := range out {
		out[i] += mix[i]
	}
}

// Current returns the variant applied to the most recent block.
func (d *Dispatcher) Current() Variant { return d.current }

func (d *Dispatcher) activeVariant() Variant {
	// A running catchup keeps the output until it completes.
	if d.catchup.phase != catchupIdle {
		return Catchup
	}
	v := None
	if d.state.Active() {
		v = d.state.Variant()
		if v <= None || v >= numVariants {
			v = None
		}
	}
	if v != Catchup {
		d.spent = false
	} else if d.spent {
		return None
	}
	return v
}

func (d *Dispatcher) resetExcept(v Variant) {
	for _, k := range Variants {
		if k == v {
			continue
		}
		if k == Catchup && d.catchup.phase != catchupIdle {
			d.catchup.reset()
			d.state.release()
			continue
		}
		d.effects[k].reset()
	}
}

func (d *Dispatcher) syncHold(before catchupPhase) {
	after := d.catchup.phase
	switch {
	case before == catchupIdle && after != catchupIdle:
		d.state.hold()
	case before != catchupIdle && after == catchupIdle:
		d.spent = true
		d.state.release()
	}
}
