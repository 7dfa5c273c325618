package plotfile

import (
	"os"

	"golang.org/x/sys/unix"
)

func init() {
	FileOptimizations = append(FileOptimizations, func(f *os.File) error {
		// Plot files are written sequentially start to finish and then
		// read back the same way by a miner; tell the kernel so it can
		// use a larger readahead window for this file.
		_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
		return nil
	})
}
