// Package mshabal implements the lane-parallel "fast" variant of Shabal-256
// described by the nonce pipeline: a state that runs N independent message
// streams side by side over lane-interleaved byte buffers and never
// finalizes, so a caller can replay a template block against it many times
// and read an intermediate digest after each replay.
//
// A single lane-parameterized engine backs every supported width (2, 4, 8,
// 16) instead of one handwritten file per width: the register arithmetic is
// identical across widths and only the lane count changes, so the width is
// carried as a runtime field rather than four near-duplicate source files.
package mshabal

import "github.com/burstcoin-oss/noncegen2/shabal"

const (
	blockSize = shabal.BlockSize
	wordCount = blockSize / 4
	// Size is the length in bytes of one lane's digest.
	Size = shabal.Size
)

// State is the lane-parallel analogue of shabal.State. Registers are stored
// structure-of-arrays style, indexed reg*Lanes()+lane, which is exactly the
// layout the lane-interleaved byte buffers decode into and the layout the
// output digests encode back out of.
type State struct {
	lanes       int
	a           []uint32 // 12 * lanes
	b           []uint32 // 16 * lanes
	c           []uint32 // 16 * lanes
	wLow, wHigh uint32
}

// Lanes reports the SIMD width N this state was constructed with.
func (s *State) Lanes() int { return s.lanes }

// NewFast builds an N-lane fast state by broadcasting one scalar template
// state into every lane. This is the "lift scalar fields from one ordinary
// state" construction used once per call to seed a local working copy from
// the process-wide immutable template.
func NewFast(lanes int, tmpl shabal.State) *State {
	a, b, c, wLow, wHigh := tmpl.Registers()

	s := &State{
		lanes: lanes,
		a:     make([]uint32, 12*lanes),
		b:     make([]uint32, 16*lanes),
		c:     make([]uint32, 16*lanes),
		wLow:  wLow,
		wHigh: wHigh,
	}
	for reg := 0; reg < 12; reg++ {
		for k := 0; k < lanes; k++ {
			s.a[reg*lanes+k] = a[reg]
		}
	}
	for reg := 0; reg < 16; reg++ {
		for k := 0; k < lanes; k++ {
			s.b[reg*lanes+k] = b[reg]
			s.c[reg*lanes+k] = c[reg]
		}
	}
	return s
}

// Clone returns an independent copy, used to restore a local working state
// from a warmed-up global template at every chain step.
func (s *State) Clone() *State {
	clone := &State{
		lanes: s.lanes,
		a:     append([]uint32(nil), s.a...),
		b:     append([]uint32(nil), s.b...),
		c:     append([]uint32(nil), s.c...),
		wLow:  s.wLow,
		wHigh: s.wHigh,
	}
	return clone
}

func rotl32(x uint32, n uint) uint32 {
	return x<<n | x>>(32-n)
}

func permElt(a0, a1 uint32, b0 *uint32, b1, b2, b3, c, m uint32) uint32 {
	a0 = ((a0 ^ (rotl32(a1, 15) * 5)) ^ c) * 3
	a0 ^= b1 ^ (b2 &^ b3) ^ m
	*b0 = ^(rotl32(*b0, 1) ^ a0)
	return a0
}

// compress runs one Shabal compression step across all lanes at once, with
// m supplying one message block per lane.
func (s *State) compress(m [][wordCount]uint32) {
	lanes := s.lanes

	for w := 0; w < wordCount; w++ {
		row := w * lanes
		for k := 0; k < lanes; k++ {
			s.b[row+k] += m[k][w]
		}
	}

	for k := 0; k < lanes; k++ {
		s.a[k] ^= s.wLow
		s.a[lanes+k] ^= s.wHigh
	}

	for w := 0; w < wordCount; w++ {
		row := w * lanes
		for k := 0; k < lanes; k++ {
			s.b[row+k] = rotl32(s.b[row+k], 17)
		}
	}

	ia := 0
	for pass := 0; pass < 3; pass++ {
		for i := 0; i < 16; i++ {
			a1 := (ia + 11) % 12
			b0 := i
			b1 := (i + 13) % 16
			b2 := (i + 9) % 16
			b3 := (i + 6) % 16
			cIdx := (8 - i + 16) % 16

			aRow, a1Row := ia*lanes, a1*lanes
			b0Row, b1Row, b2Row, b3Row := b0*lanes, b1*lanes, b2*lanes, b3*lanes
			cRow := cIdx * lanes

			for k := 0; k < lanes; k++ {
				s.a[aRow+k] = permElt(
					s.a[aRow+k], s.a[a1Row+k],
					&s.b[b0Row+k], s.b[b1Row+k], s.b[b2Row+k], s.b[b3Row+k],
					s.c[cRow+k], m[k][i],
				)
			}
			ia = (ia + 1) % 12
		}
	}

	for _, offset := range [3]int{11, 7, 3} {
		for i := 0; i < 12; i++ {
			cRow := ((i + offset) % 16) * lanes
			aRow := i * lanes
			for k := 0; k < lanes; k++ {
				s.a[aRow+k] += s.c[cRow+k]
			}
		}
	}

	for w := 0; w < wordCount; w++ {
		row := w * lanes
		for k := 0; k < lanes; k++ {
			s.c[row+k] -= m[k][w]
		}
	}

	s.b, s.c = s.c, s.b

	s.wLow++
	if s.wLow == 0 {
		s.wHigh++
	}
}

// decodeInterleaved splits an N*BlockSize lane-interleaved buffer into one
// message-word array per lane. The stride contract: the k-th lane's copy of
// word w lives at byte offset w*4*lanes + k*4.
func decodeInterleaved(buf []byte, lanes int) [][wordCount]uint32 {
	m := make([][wordCount]uint32, lanes)
	for w := 0; w < wordCount; w++ {
		base := w * 4 * lanes
		for k := 0; k < lanes; k++ {
			o := base + k*4
			m[k][w] = uint32(buf[o]) | uint32(buf[o+1])<<8 | uint32(buf[o+2])<<16 | uint32(buf[o+3])<<24
		}
	}
	return m
}

// AbsorbFast implements the fast-variant contract: it absorbs inputBlocks
// lane-interleaved blocks from the front of input (a sliding page suffix
// that may span many blocks), then absorbs one further lane-interleaved
// template block if template is non-nil, then writes the lanes' current
// running digests into out in the same interleaved form — all without
// finalizing the state, so the caller may keep cloning a fresh state from
// a shared template and replaying further input against it.
//
// len(input) must be at least lanes*BlockSize*inputBlocks, len(template)
// must be lanes*BlockSize when non-nil, and len(out) must be lanes*Size.
func AbsorbFast(s *State, input []byte, inputBlocks int, template []byte, out []byte) {
	for i := 0; i < inputBlocks; i++ {
		block := input[i*s.lanes*blockSize : (i+1)*s.lanes*blockSize]
		s.compress(decodeInterleaved(block, s.lanes))
	}
	if template != nil {
		s.compress(decodeInterleaved(template, s.lanes))
	}

	lanes := s.lanes
	for w := 0; w < Size/4; w++ {
		reg := (8 + w) * lanes
		base := w * 4 * lanes
		for k := 0; k < lanes; k++ {
			val := s.b[reg+k]
			o := base + k*4
			out[o] = byte(val)
			out[o+1] = byte(val >> 8)
			out[o+2] = byte(val >> 16)
			out[o+3] = byte(val >> 24)
		}
	}
}
