package noncegen

import "golang.org/x/xerrors"

// ErrRangeOverflow is returned when chunkOffset+count would write past the
// end of the destination cache.
var ErrRangeOverflow = xerrors.New("noncegen: chunk_offset + count exceeds cache_size")

// ErrUnsupportedWidth names a requested Width the running CPU does not
// support. Neither NewGenerator nor Generate returns it: a width pinned with
// WithWidth is used as given, and DetectWidth only selects supported widths.
var ErrUnsupportedWidth = xerrors.New("noncegen: requested width is not supported")

// ErrBufferTooSmall is returned when a caller-supplied destination cache is
// smaller than cache_size * NUM_SCOOPS * SCOOP_SIZE bytes.
var ErrBufferTooSmall = xerrors.New("noncegen: destination cache is smaller than cache_size*NUM_SCOOPS*SCOOP_SIZE")

func checkRange(cacheLen uint64, cacheSize, chunkOffset, count uint64) error {
	if chunkOffset+count > cacheSize {
		return xerrors.Errorf("chunk_offset=%d count=%d cache_size=%d: %w", chunkOffset, count, cacheSize, ErrRangeOverflow)
	}
	want := cacheSize * NumScoops * ScoopSize
	if cacheLen < want {
		return xerrors.Errorf("have %d bytes, need %d: %w", cacheLen, want, ErrBufferTooSmall)
	}
	return nil
}
