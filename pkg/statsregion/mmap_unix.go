//go:build unix

package statsregion

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// mapFile creates (or truncates) path to size bytes and maps it
// MAP_SHARED, PROT_READ|PROT_WRITE — grounded on the teacher's
// pkg/slotcache use of an mmap'd regular file as the POSIX stand-in for a
// named shared-memory segment (open.go's syscall.Mmap call), ported to
// golang.org/x/sys/unix for wider cross-arch support.
func mapFile(path string, size int) (data []byte, closer func() error, err error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open %q: %w", path, err)
	}

	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("truncate %q: %w", path, err)
	}

	data, err = unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("mmap %q: %w", path, err)
	}

	return data, func() error {
		munmapErr := unix.Munmap(data)
		closeErr := f.Close()

		if munmapErr != nil {
			return munmapErr
		}

		return closeErr
	}, nil
}

// openFileForRead maps an existing file read-write (readers still need
// PROT_WRITE to acquire the per-slot spin-lock on dynamic stats).
func openFileForRead(path string) (data []byte, closer func() error, err error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("open %q: %w", path, err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat %q: %w", path, err)
	}

	size := int(fi.Size())
	if size < headerSize {
		f.Close()
		return nil, nil, ErrCorrupt
	}

	data, err = unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("mmap %q: %w", path, err)
	}

	return data, func() error {
		munmapErr := unix.Munmap(data)
		closeErr := f.Close()

		if munmapErr != nil {
			return munmapErr
		}

		return closeErr
	}, nil
}
