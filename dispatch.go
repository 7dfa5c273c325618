package noncegen

import (
	"github.com/klauspost/cpuid/v2"

	"github.com/burstcoin-oss/noncegen2/mshabal"
	"github.com/burstcoin-oss/noncegen2/shabal"
)

// Width tags the finite set of implementations the dispatcher can select:
// the scalar path and the four multi-way SIMD widths. The hot loop never
// branches on CPU capability directly — one Width is chosen once, at
// Generator construction time, and everything downstream matches on this
// tag.
type Width int

const (
	// Scalar processes one nonce at a time, as the 1-lane instance of the
	// mshabal engine.
	Scalar Width = iota
	// MW2 is the 2-lane multi-way width (SSE2, 128-bit).
	MW2
	// MW4 is the 4-lane multi-way width (AVX, 128-bit).
	MW4
	// MW8 is the 8-lane multi-way width (AVX2, 256-bit).
	MW8
	// MW16 is the 16-lane multi-way width (AVX-512F, 512-bit).
	MW16
)

func (w Width) String() string {
	switch w {
	case Scalar:
		return "scalar"
	case MW2:
		return "mw2/sse2"
	case MW4:
		return "mw4/avx"
	case MW8:
		return "mw8/avx2"
	case MW16:
		return "mw16/avx512f"
	default:
		return "unknown"
	}
}

// Lanes reports the SIMD lane count backing w; Scalar reports 0.
func (w Width) Lanes() int {
	switch w {
	case MW2:
		return 2
	case MW4:
		return 4
	case MW8:
		return 8
	case MW16:
		return 16
	default:
		return 0
	}
}

// widthsWidestFirst is consulted by DetectWidth, most capable first.
var widthsWidestFirst = []Width{MW16, MW8, MW4, MW2, Scalar}

// supportsWidth reports whether the current process's CPU, as seen by
// cpuid, can run the given width.
func supportsWidth(w Width) bool {
	switch w {
	case Scalar:
		return true
	case MW2:
		return cpuid.CPU.Supports(cpuid.SSE2)
	case MW4:
		return cpuid.CPU.Supports(cpuid.AVX)
	case MW8:
		return cpuid.CPU.Supports(cpuid.AVX2)
	case MW16:
		return cpuid.CPU.Supports(cpuid.AVX512F)
	default:
		return false
	}
}

// DetectWidth returns the widest Width supported by the running CPU, no
// wider than max.
func DetectWidth(max Width) Width {
	for _, w := range widthsWidestFirst {
		if w <= max && supportsWidth(w) {
			return w
		}
	}
	return Scalar
}

// Generator owns one process-wide, read-only Shabal template per active
// width, warmed up once at construction, plus the Width it was built for.
// A Generator is safe for concurrent use by multiple goroutines: Generate
// only ever reads the templates, cloning them into call-local scratch
// state before mutating anything.
type Generator struct {
	width          Width
	scalarTemplate shabal.State
	wideTemplate   *mshabal.State
}

type generatorConfig struct {
	maxWidth Width
	width    *Width
}

// Option configures NewGenerator.
type Option func(*generatorConfig)

// WithMaxWidth caps auto-detection at max, useful for reproducing a
// specific width's output (e.g. to exercise the cross-width equivalence
// property against a pinned narrower path) or for running on a host whose
// detected capability should be deliberately understated.
func WithMaxWidth(max Width) Option {
	return func(c *generatorConfig) { c.maxWidth = max }
}

// WithWidth pins the Generator to an exact width, bypassing detection
// entirely. The pinned width is not checked against the running CPU and no
// ErrUnsupportedWidth is reported; width support is the caller's
// responsibility when it is pinned explicitly.
func WithWidth(w Width) Option {
	return func(c *generatorConfig) { c.width = &w }
}

// NewGenerator detects the widest supported SIMD width (capped by any
// WithMaxWidth option) and warms up its global template state.
func NewGenerator(opts ...Option) *Generator {
	cfg := generatorConfig{maxWidth: MW16}
	for _, opt := range opts {
		opt(&cfg)
	}

	width := cfg.maxWidth
	if cfg.width == nil {
		width = DetectWidth(cfg.maxWidth)
	} else {
		width = *cfg.width
	}

	g := &Generator{
		width:          width,
		scalarTemplate: shabal.New(),
	}
	if lanes := width.Lanes(); lanes > 0 {
		g.wideTemplate = mshabal.NewFast(lanes, shabal.New())
	}
	return g
}

// Width reports the implementation this Generator dispatches to.
func (g *Generator) Width() Width { return g.width }
