// Package plotfile writes generated nonce ranges out to disk as plot files
// plus a small sidecar manifest carrying an integrity digest over the plot
// data, and fans a large nonce range across multiple workers.
package plotfile

import (
	"hash"
	"sync"

	sha256simd "github.com/minio/sha256-simd"
	"golang.org/x/xerrors"
)

// leafSize is the size in bytes of one leaf fed into the Merkle reduction;
// it matches HashSize in the root noncegen package, the natural alignment
// of PoC2 scoop halves.
const leafSize = 32

// maxLayers bounds the tree depth: enough for any plot file up to 2^maxLayers
// leaves, far beyond what a single plot file will ever contain.
const maxLayers = 56

const layerQueueDepth = 256

var shaPool = sync.Pool{New: func() interface{} { return sha256simd.New() }}

// RootHasher accumulates written bytes as a stream of leafSize-byte leaves
// and folds them into a binary Merkle root: one background goroutine per
// tree level, each collapsing pairs of its input with sha256-simd as they
// arrive. A plot file's scoops can be streamed through a RootHasher as they
// are generated, without holding the whole file in memory to compute its
// manifest digest.
//
// The zero value is ready to accept Write()s.
type RootHasher struct {
	mu            sync.Mutex
	bytesConsumed uint64
	carry         []byte
	layerQueues   [maxLayers + 2]chan []byte
	resultRoot    chan []byte
}

var _ hash.Hash = (*RootHasher)(nil)

// BlockSize reports the leaf size consumed by one round of the reduction.
func (h *RootHasher) BlockSize() int { return leafSize }

// Size reports the length of the digest returned by Sum/Root.
func (h *RootHasher) Size() int { return leafSize }

// Reset clears accumulated state and terminates any background layer
// goroutines started by a prior Write. Safe to call in any state.
func (h *RootHasher) Reset() {
	h.mu.Lock()
	if h.bytesConsumed != 0 {
		close(h.layerQueues[0])
		<-h.resultRoot
	}
	h.bytesConsumed = 0
	h.carry = nil
	h.layerQueues = [maxLayers + 2]chan []byte{}
	h.resultRoot = nil
	h.mu.Unlock()
}

// Sum satisfies hash.Hash by wrapping Root; it panics if Root reports an
// error (an empty accumulator).
func (h *RootHasher) Sum(buf []byte) []byte {
	root, err := h.Root()
	if err != nil {
		panic(err)
	}
	return append(buf, root...)
}

// Root collapses the accumulated leaves into the Merkle root and resets the
// hasher on success. It returns an error if nothing was ever written.
func (h *RootHasher) Root() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.bytesConsumed == 0 {
		return nil, xerrors.New("plotfile: cannot take the root of an empty hasher")
	}

	if len(h.carry) > 0 {
		padded := make([]byte, leafSize)
		copy(padded, h.carry)
		h.layerQueues[0] <- padded
	}
	close(h.layerQueues[0])

	root := <-h.resultRoot
	h.bytesConsumed = 0
	h.carry = nil
	h.layerQueues = [maxLayers + 2]chan []byte{}
	h.resultRoot = nil
	return root, nil
}

// Write feeds bytes into the accumulator, starting the background layer
// pipeline on the first call. It never returns an error.
func (h *RootHasher) Write(input []byte) (int, error) {
	n := len(input)
	if n == 0 {
		return 0, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.bytesConsumed == 0 {
		h.carry = make([]byte, 0, leafSize)
		h.resultRoot = make(chan []byte, 1)
		h.layerQueues[0] = make(chan []byte, layerQueueDepth)
		h.addLayer(0)
	}
	h.bytesConsumed += uint64(n)

	if len(h.carry) > 0 {
		room := leafSize - len(h.carry)
		if n < room {
			h.carry = append(h.carry, input...)
			return n, nil
		}
		h.carry = append(h.carry, input[:room]...)
		input = input[room:]
		h.layerQueues[0] <- h.carry
		h.carry = make([]byte, 0, leafSize)
	}

	for len(input) >= leafSize {
		leaf := make([]byte, leafSize)
		copy(leaf, input[:leafSize])
		h.layerQueues[0] <- leaf
		input = input[leafSize:]
	}

	if len(input) > 0 {
		h.carry = append(h.carry, input...)
	}

	return n, nil
}

// addLayer starts the goroutine servicing tree level idx. It pairs up
// consecutive nodes received on layerQueues[idx] and hashes each pair into
// layerQueues[idx+1]. When layerQueues[idx] closes: a lone held node is
// either the final root (idx is the highest layer anyone ever wrote to) or
// gets forwarded unchanged to the next layer, whose own queue is then
// closed in turn, collapsing the rest of the tree above it.
func (h *RootHasher) addLayer(idx int) {
	h.layerQueues[idx+1] = make(chan []byte, layerQueueDepth)

	go func() {
		var held []byte
		for {
			node, open := <-h.layerQueues[idx]
			if !open {
				if idx == maxLayers || h.layerQueues[idx+2] == nil {
					h.resultRoot <- held
					return
				}
				if held != nil {
					h.layerQueues[idx+1] <- held
				}
				close(h.layerQueues[idx+1])
				return
			}

			if held == nil {
				held = node
				continue
			}

			if h.layerQueues[idx+2] == nil {
				h.mu.Lock()
				h.addLayer(idx + 1)
				h.mu.Unlock()
			}
			h.layerQueues[idx+1] <- hashPair(held, node)
			held = nil
		}
	}()
}

func hashPair(left, right []byte) []byte {
	hh := shaPool.Get().(hash.Hash)
	hh.Reset()
	hh.Write(left)
	hh.Write(right)
	out := hh.Sum(nil)
	shaPool.Put(hh)
	return out
}
