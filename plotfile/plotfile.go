package plotfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	noncegen "github.com/burstcoin-oss/noncegen2"
)

// Name returns the on-disk file name for a plot file covering count nonces
// of accountID starting at startNonce, staggered in groups of staggerSize —
// the Burst/Signum convention of encoding the plot's addressing directly in
// its file name so a reader/miner can enumerate a plot directory without
// opening anything.
func Name(accountID, startNonce, count, staggerSize uint64) string {
	return fmt.Sprintf("%d_%d_%d_%d", accountID, startNonce, count, staggerSize)
}

// Manifest is the sidecar written next to a plot file: enough to identify
// what it is without regenerating it, plus a Merkle digest over its bytes
// so a reader can cheaply detect truncation or bit-rot before mining
// against the file.
type Manifest struct {
	AccountID   uint64 `json:"account_id"`
	StartNonce  uint64 `json:"start_nonce"`
	Count       uint64 `json:"count"`
	StaggerSize uint64 `json:"stagger_size"`
	Digest      []byte `json:"digest"`
}

func manifestPath(plotPath string) string {
	return plotPath + ".manifest.json"
}

// WriteManifest computes data's Merkle digest and writes the sidecar
// manifest for the plot file at plotPath.
func WriteManifest(plotPath string, accountID, startNonce, count, staggerSize uint64, data []byte) error {
	var h RootHasher
	if _, err := h.Write(data); err != nil {
		return err
	}
	digest, err := h.Root()
	if err != nil {
		return err
	}

	m := Manifest{
		AccountID:   accountID,
		StartNonce:  startNonce,
		Count:       count,
		StaggerSize: staggerSize,
		Digest:      digest,
	}
	encoded, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(manifestPath(plotPath), encoded, 0o644)
}

// ReadManifest loads and parses the sidecar manifest for the plot file at
// plotPath.
func ReadManifest(plotPath string) (*Manifest, error) {
	raw, err := os.ReadFile(manifestPath(plotPath))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Verify recomputes data's Merkle digest and reports whether it matches the
// plot file's sidecar manifest.
func Verify(plotPath string, data []byte) (bool, error) {
	m, err := ReadManifest(plotPath)
	if err != nil {
		return false, err
	}
	var h RootHasher
	if _, err := h.Write(data); err != nil {
		return false, err
	}
	digest, err := h.Root()
	if err != nil {
		return false, err
	}
	if len(digest) != len(m.Digest) {
		return false, nil
	}
	for i := range digest {
		if digest[i] != m.Digest[i] {
			return false, nil
		}
	}
	return true, nil
}

// FileOptimizations holds platform-specific tuning hooks applied to a
// freshly created plot file, before its bytes are written; the linux build
// of this package appends to it at init time.
var FileOptimizations []func(*os.File) error

func createOptimized(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	for _, opt := range FileOptimizations {
		if err := opt(f); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// WriteRange generates staggerSize nonces of accountID starting at startNonce
// into one plot file of staggerSize nonce slots under dir, fanning the work
// across workers goroutines over disjoint nonce sub-ranges of the same
// Generator and destination buffer — safe because Generate only ever writes
// within [chunkOffset, chunkOffset+count) of its destination cache. A
// workers value of 0 defaults to runtime.NumCPU(). On success it also
// writes the plot file's sidecar manifest.
func WriteRange(ctx context.Context, gen *noncegen.Generator, dir string, accountID, startNonce, staggerSize uint64, workers int) (string, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if uint64(workers) > staggerSize {
		workers = int(staggerSize)
	}
	if workers < 1 {
		workers = 1
	}

	cache := make([]byte, staggerSize*noncegen.NumScoops*noncegen.ScoopSize)

	g, ctx := errgroup.WithContext(ctx)
	chunk := staggerSize / uint64(workers)
	var assigned uint64
	for w := 0; w < workers; w++ {
		offset := assigned
		count := chunk
		if w == workers-1 {
			count = staggerSize - assigned
		}
		assigned += count

		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return gen.Generate(cache, staggerSize, offset, accountID, startNonce+offset, count)
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	name := Name(accountID, startNonce, staggerSize, staggerSize)
	path := filepath.Join(dir, name)

	f, err := createOptimized(path)
	if err != nil {
		return "", err
	}
	_, writeErr := f.Write(cache)
	closeErr := f.Close()
	if writeErr != nil {
		return "", writeErr
	}
	if closeErr != nil {
		return "", closeErr
	}

	if err := WriteManifest(path, accountID, startNonce, staggerSize, staggerSize, cache); err != nil {
		return "", err
	}
	return path, nil
}
