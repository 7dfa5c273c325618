package noncegen

import (
	"github.com/burstcoin-oss/noncegen2/mshabal"
	"github.com/burstcoin-oss/noncegen2/shabal"
)

const blockSize = shabal.BlockSize

// batchScratch holds the per-call working buffers reused across every batch
// of lanes nonces processed by Generate: the interleaved page buffer, the
// whitening digest, and the three message templates. Allocating these once
// per Generate call and reusing them across batches avoids re-allocating a
// multi-megabyte page buffer per nonce.
type batchScratch struct {
	lanes  int
	page   []byte // lanes * NonceSize, the interleaved nonce pages under construction
	digest []byte // lanes * HashSize, the final whitening digest
	t1     []byte // lanes * blockSize
	t2     []byte // lanes * blockSize
	t3     []byte // lanes * blockSize, constant: terminator broadcast into every lane
}

func newBatchScratch(lanes int) *batchScratch {
	s := &batchScratch{
		lanes:  lanes,
		page:   make([]byte, lanes*NonceSize),
		digest: make([]byte, lanes*HashSize),
		t1:     make([]byte, lanes*blockSize),
		t2:     make([]byte, lanes*blockSize),
		t3:     make([]byte, lanes*blockSize),
	}

	for k := 0; k < lanes; k++ {
		interleaveBlock(s.t3, lanes, k, term[:])
	}
	return s
}

// interleaveBlock scatters one lane's 64-byte message block into the
// lane-interleaved layout shared with package mshabal: word w, lane k lands
// at byte offset w*4*lanes + k*4.
func interleaveBlock(dst []byte, lanes, lane int, block []byte) {
	for w := 0; w < blockSize/4; w++ {
		base := w*4*lanes + lane*4
		copy(dst[base:base+4], block[w*4:w*4+4])
	}
}

// extractLaneBytes gathers lane k's contiguous logical byte range
// [logicalStart, logicalStart+len(dst)) back out of a lane-interleaved
// buffer. Both logicalStart and len(dst) must be multiples of 4.
func extractLaneBytes(dst, buf []byte, lanes, lane, logicalStart int) {
	wordStart := logicalStart / 4
	for w := 0; w*4 < len(dst); w++ {
		base := (wordStart+w)*4*lanes + lane*4
		copy(dst[w*4:w*4+4], buf[base:base+4])
	}
}

// interSlice returns the lane-interleaved physical byte range corresponding
// to the logical window [logicalStart, logicalStart+logicalLen) shared by
// every lane of buf. Both bounds must be multiples of 4.
func interSlice(buf []byte, lanes, logicalStart, logicalLen int) []byte {
	physStart := (logicalStart / 4) * 4 * lanes
	physLen := logicalLen * lanes
	return buf[physStart : physStart+physLen]
}

// fillSeedTemplates writes the two nonce-dependent message templates for a
// batch of lanes nonces starting at baseNonce:
//
//   - t1 = accountID_be(8) ∥ nonce_be(8) ∥ zero(48), per lane
//   - t2 = zero(32, overwritten with the first-hash digest by the caller)
//     ∥ accountID_be(8) ∥ nonce_be(8) ∥ zero(16), per lane
func fillSeedTemplates(t1, t2 []byte, lanes int, accountID, baseNonce uint64) {
	var b1, b2 [blockSize]byte

	for k := 0; k < lanes; k++ {
		nonce := baseNonce + uint64(k)
		writeSeed(b1[0:SeedSize], accountID, nonce)
		writeSeed(b2[32:32+SeedSize], accountID, nonce)
		interleaveBlock(t1, lanes, k, b1[:])
		interleaveBlock(t2, lanes, k, b2[:])
	}
}

// runBatch derives lanes nonce pages in parallel, starting at baseNonce, and
// writes their PoC2-interleaved scoops into cache. slotBase is the
// destination slot index (chunkOffset + the caller's local nonce offset) of
// lane 0; lane k's data lands at slot slotBase+k.
//
// template is the process-wide immutable lane-broadcast Shabal state this
// Generator warmed up at construction (or, for a tail shorter than the
// dispatched width, a freshly broadcast same-sized template); every step
// below clones it into scratch local state rather than mutating it.
func runBatch(template *mshabal.State, s *batchScratch, cache []byte, cacheSize uint64, slotBase, accountID, baseNonce uint64) {
	lanes := s.lanes
	fillSeedTemplates(s.t1, s.t2, lanes, accountID, baseNonce)

	// Step 1: first hash. Absorb the seed block t1 alone and drop the
	// resulting digest into the page's last HashSize bytes.
	local := template.Clone()
	firstHash := interSlice(s.page, lanes, NonceSize-HashSize, HashSize)
	mshabal.AbsorbFast(local, nil, 0, s.t1, firstHash)

	// Step 2: t2's first half carries that digest forward into every
	// subsequent chain step that replays t2.
	copy(s.t2[:lanes*HashSize], firstHash)

	// Step 3: backward chain. At each position i, absorb however much of
	// the page past i has already been filled in (m 64-byte blocks, m
	// growing as i decreases) and replay exactly one template block — t1
	// or t2 depending on 64-byte alignment while the absorbed suffix is
	// still short of HashCap, t3 once the window saturates to HashCap.
	for i := NonceSize - HashSize; i >= HashSize; i -= HashSize {
		local := template.Clone()
		out := interSlice(s.page, lanes, i-HashSize, HashSize)

		if i > NonceSize-HashCap {
			m := (NonceSize + 16 - i) / blockSize
			tmpl := s.t2
			if i%blockSize == 0 {
				tmpl = s.t1
			}
			input := interSlice(s.page, lanes, i, m*blockSize)
			mshabal.AbsorbFast(local, input, m, tmpl, out)
		} else {
			input := interSlice(s.page, lanes, i, HashCap)
			mshabal.AbsorbFast(local, input, HashCap/blockSize, s.t3, out)
		}
	}

	// Step 4: final whitening hash over the whole page plus one more
	// replay of t1, then XOR-tile the resulting digest across every
	// HashSize-sized chunk of the page.
	local = template.Clone()
	whole := interSlice(s.page, lanes, 0, NonceSize)
	mshabal.AbsorbFast(local, whole, NonceSize/blockSize, s.t1, s.digest)

	for c := 0; c < NonceSize; c += HashSize {
		chunk := interSlice(s.page, lanes, c, HashSize)
		for i := range chunk {
			chunk[i] ^= s.digest[i]
		}
	}

	// Step 5: PoC2 scoop interleave. The page is 2*NumScoops 32-byte
	// halves; half-index h maps to a destination (scoop, half) pair that
	// leaves each scoop's low half (even h) at its own scoop index and
	// moves its high half (odd h) to scoop NumScoops-1-h/2.
	var half [HashSize]byte
	for k := 0; k < lanes; k++ {
		slot := slotBase + uint64(k)
		for h := 0; h < 2*NumScoops; h++ {
			extractLaneBytes(half[:], s.page, lanes, k, h*HashSize)
			scoop, side := destScoopIndex(h)
			off := cacheOffset(cacheSize, scoop, side, slot)
			copy(cache[off:off+HashSize], half[:])
		}
	}
}

// Generate derives count consecutive nonce pages for accountID, starting at
// startNonce, and writes their PoC2-interleaved scoops into cache at the
// slots [chunkOffset, chunkOffset+count). cache must be at least
// cacheSize*NumScoops*ScoopSize bytes; every nonce page lands at the same
// relative slot across all NumScoops*2 of its halves, chunkOffset+n for the
// n-th nonce in this call.
//
// Generate dispatches the widest lane width this Generator was built for in
// full-width batches, then finishes any remainder narrower than that width
// as one final batch of its own size — the scalar case is simply the width
// 1 instance of the same lane-parallel engine, not a separate code path.
func (g *Generator) Generate(cache []byte, cacheSize, chunkOffset, accountID, startNonce, count uint64) error {
	if err := checkRange(uint64(len(cache)), cacheSize, chunkOffset, count); err != nil {
		return err
	}
	if count == 0 {
		return nil
	}

	lanes := g.width.Lanes()
	if lanes == 0 {
		lanes = 1
	}

	template := g.wideTemplate
	if template == nil {
		template = mshabal.NewFast(1, g.scalarTemplate)
	}

	scratch := newBatchScratch(lanes)
	var n uint64
	for ; n+uint64(lanes) <= count; n += uint64(lanes) {
		runBatch(template, scratch, cache, cacheSize, chunkOffset+n, accountID, startNonce+n)
	}

	if tail := count - n; tail > 0 {
		tailLanes := int(tail)
		tailTemplate := template
		if tailLanes != lanes {
			tailTemplate = mshabal.NewFast(tailLanes, g.scalarTemplate)
		}
		runBatch(tailTemplate, newBatchScratch(tailLanes), cache, cacheSize, chunkOffset+n, accountID, startNonce+n)
	}
	return nil
}
