package shabal

import "hash"

// Digest adapts State to the standard hash.Hash interface for callers
// outside the nonce pipeline's hot path (tests, ad-hoc verification
// tooling). The nonce pipeline does not use it: it runs on package
// mshabal's lane-parallel engine.
type Digest struct {
	state  State
	buf    [BlockSize]byte
	offset int
}

var _ hash.Hash = (*Digest)(nil)

// NewDigest returns a ready-to-use Shabal-256 hash.Hash.
func NewDigest() *Digest {
	return &Digest{state: New()}
}

// Write implements hash.Hash.
func (d *Digest) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		free := BlockSize - d.offset
		if len(p) < free {
			d.offset += copy(d.buf[d.offset:], p)
			return n, nil
		}
		copy(d.buf[d.offset:], p[:free])
		Absorb(&d.state, d.buf[:])
		p = p[free:]
		d.offset = 0
	}
	return n, nil
}

// Sum implements hash.Hash. It does not mutate the receiver: the
// finalization is applied to a copy of the internal state.
func (d *Digest) Sum(b []byte) []byte {
	s := d.state
	var tail [BlockSize]byte
	copy(tail[:], d.buf[:d.offset])

	if d.offset > 0 {
		Absorb(&s, tail[:])
		digest := Close(&s)
		return append(b, digest[:]...)
	}

	digest := Close(&s)
	return append(b, digest[:]...)
}

// Reset implements hash.Hash.
func (d *Digest) Reset() {
	d.state = New()
	d.offset = 0
}

// Size implements hash.Hash.
func (d *Digest) Size() int { return Size }

// BlockSize implements hash.Hash.
func (d *Digest) BlockSize() int { return BlockSize }
