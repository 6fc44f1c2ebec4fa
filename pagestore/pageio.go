// Package pagestore implements the paged node file: positional page I/O,
// a recyclable free list, and a bounded write-back page cache sitting in
// front of it.
package pagestore

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// PageIO reads and writes whole, fixed-size pages to a pair of sibling
// files: "<name>.dat" holds the concatenation of pages, "<name>.bin" holds
// the sidecar (high-water mark, free list, root page image).
type PageIO struct {
	pageBytes int
	data      *os.File
	sidecar   *os.File
}

// NewPageIO opens (creating if necessary) the two sibling files for name.
// pageBytes must be a multiple of 4096 covering one encoded node.
func NewPageIO(name string, pageBytes int) (*PageIO, error) {
	data, err := os.OpenFile(name+".dat", os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return nil, fmt.Errorf("pagestore: open data file: %w", err)
	}
	sidecar, err := os.OpenFile(name+".bin", os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		data.Close()
		return nil, fmt.Errorf("pagestore: open sidecar file: %w", err)
	}
	return &PageIO{pageBytes: pageBytes, data: data, sidecar: sidecar}, nil
}

// PageBytes returns ⌈sizeof(node) / 4096⌉ × 4096 for size, the on-disk
// footprint of one page.
func PageBytes(size int) int {
	return ((size-1)/4096 + 1) * 4096
}

func (p *PageIO) ReadPage(index int64, buf []byte) error {
	if len(buf) != p.pageBytes {
		return fmt.Errorf("pagestore: read buffer has size %d, want %d", len(buf), p.pageBytes)
	}
	offset := index * int64(p.pageBytes)
	n, err := p.data.ReadAt(buf, offset)
	if err != nil {
		return fmt.Errorf("pagestore: read page %d: %w", index, err)
	}
	if n != p.pageBytes {
		return fmt.Errorf("pagestore: short read of page %d: got %d want %d", index, n, p.pageBytes)
	}
	return nil
}

func (p *PageIO) WritePage(index int64, buf []byte) error {
	if len(buf) != p.pageBytes {
		return fmt.Errorf("pagestore: write buffer has size %d, want %d", len(buf), p.pageBytes)
	}
	offset := index * int64(p.pageBytes)
	n, err := p.data.WriteAt(buf, offset)
	if err != nil {
		return fmt.Errorf("pagestore: write page %d: %w", index, err)
	}
	if n != p.pageBytes {
		return fmt.Errorf("pagestore: short write of page %d: wrote %d want %d", index, n, p.pageBytes)
	}
	return nil
}

func (p *PageIO) Sync() error {
	if err := p.data.Sync(); err != nil {
		return fmt.Errorf("pagestore: sync data file: %w", err)
	}
	return nil
}

func (p *PageIO) Close() error {
	err1 := p.data.Close()
	err2 := p.sidecar.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Sidecar is the small amount of state that doesn't live in the paged
// data file: the free-list vector, the allocation high-water mark, and
// (on clean shutdown only) the root page image.
type Sidecar struct {
	HighWater int64
	FreeList  []int64
	Root      []byte // len == pageBytes
}

// LoadSidecar reads the sidecar file. The second return value is false if
// the sidecar is empty (fresh store).
func (p *PageIO) LoadSidecar() (*Sidecar, bool, error) {
	if _, err := p.sidecar.Seek(0, io.SeekStart); err != nil {
		return nil, false, fmt.Errorf("pagestore: seek sidecar: %w", err)
	}
	var header [16]byte
	n, err := io.ReadFull(p.sidecar, header[:])
	if err == io.EOF || (err == io.ErrUnexpectedEOF && n == 0) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pagestore: read sidecar header: %w", err)
	}
	highWater := int64(binary.LittleEndian.Uint64(header[0:8]))
	freeLen := int64(binary.LittleEndian.Uint64(header[8:16]))

	free := make([]int64, freeLen)
	for i := range free {
		var b [8]byte
		if _, err := io.ReadFull(p.sidecar, b[:]); err != nil {
			return nil, false, fmt.Errorf("pagestore: read free list entry %d: %w", i, err)
		}
		free[i] = int64(binary.LittleEndian.Uint64(b[:]))
	}

	root := make([]byte, p.pageBytes)
	if _, err := io.ReadFull(p.sidecar, root); err != nil {
		return nil, false, fmt.Errorf("pagestore: read sidecar root page: %w", err)
	}

	return &Sidecar{HighWater: highWater, FreeList: free, Root: root}, true, nil
}

// SaveSidecar rewrites the sidecar file in full.
func (p *PageIO) SaveSidecar(s *Sidecar) error {
	if len(s.Root) != p.pageBytes {
		return fmt.Errorf("pagestore: root page has size %d, want %d", len(s.Root), p.pageBytes)
	}
	if err := p.sidecar.Truncate(0); err != nil {
		return fmt.Errorf("pagestore: truncate sidecar: %w", err)
	}
	if _, err := p.sidecar.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("pagestore: seek sidecar: %w", err)
	}

	var header [16]byte
	binary.LittleEndian.PutUint64(header[0:8], uint64(s.HighWater))
	binary.LittleEndian.PutUint64(header[8:16], uint64(len(s.FreeList)))
	if _, err := p.sidecar.Write(header[:]); err != nil {
		return fmt.Errorf("pagestore: write sidecar header: %w", err)
	}
	for _, idx := range s.FreeList {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(idx))
		if _, err := p.sidecar.Write(b[:]); err != nil {
			return fmt.Errorf("pagestore: write free list entry: %w", err)
		}
	}
	if _, err := p.sidecar.Write(s.Root); err != nil {
		return fmt.Errorf("pagestore: write sidecar root page: %w", err)
	}
	return p.sidecar.Sync()
}
