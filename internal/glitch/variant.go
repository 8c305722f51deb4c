package glitch

import "strings"

// Variant identifies one glitch effect. The zero value means no effect.
type Variant int

const (
	None Variant = iota
	Bitcrush
	Stutter
	Mute
	Pitch
	ExtraDistortion
	RepeatLastMs
	Reverse
	StaticNoise
	MicPeak
	Echo
	Catchup

	numVariants
)

var variantNames = [numVariants]string{
	None:            "",
	Bitcrush:        "bitcrush",
	Stutter:         "stutter",
	Mute:            "mute",
	Pitch:           "pitch",
	ExtraDistortion: "extra-distortion",
	RepeatLastMs:    "repeat-last-ms",
	Reverse:         "reverse",
	StaticNoise:     "static-noise",
	MicPeak:         "mic-peak",
	Echo:            "echo",
	Catchup:         "catchup",
}

// Variants lists every glitch effect in display order.
var Variants = []Variant{
	Bitcrush, Stutter, Mute, Pitch, ExtraDistortion,
	RepeatLastMs, Reverse, StaticNoise, MicPeak,
	Echo, Catchup,
}

func (v Variant) String() string {
	if v < 0 || v >= numVariants {
		return "unknown"
	}
	return variantNames[v]
}

// ParseVariant maps an effect name such as "repeat-last-ms" to its Variant.
func ParseVariant(name string) (Variant, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, v := range Variants {
		if variantNames[v] == name {
			return v, true
		}
	}
	return None, false
}

// VariantNames returns the names of all variants in display order.
func VariantNames() []string {
	names := make([]string, len(Variants))
	for i, v := range Variants {
		names[i] = v.String()
	}
	return names
}
