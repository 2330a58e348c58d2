package core

import (
	"errors"
	"sync"
)

// FlashDevice is the block device the settings store writes to. TinyGo's
// machine.Flash satisfies it directly; offsets are relative to the start of
// the device.
type FlashDevice interface {
	ReadAt(p []byte, off int64) (n int, err error)
	WriteAt(p []byte, off int64) (n int, err error)
	EraseBlockSize() int64
	// EraseBlocks erases length blocks starting at block number start.
	EraseBlocks(start, length int64) error
}

var (
	ErrFlashRange     = errors.New("flash: access out of range")
	ErrFlashPowerLoss = errors.New("flash: simulated power loss")
)

// MemFlash is a NOR-flash model in RAM: erase sets bytes to 0xFF and
// programming can only clear bits. It counts erases and programs per block.
type MemFlash struct {
	mu        sync.Mutex
	data      []byte
	blockSize int64
	erases    []int
	programs  []int

	// tornWrite makes the next WriteAt program only half of its data and
	// fail, as if power was lost mid-program.
	tornWrite bool
}

// NewMemFlash returns an erased device of blocks*blockSize bytes.
func NewMemFlash(blockSize int64, blocks int) *MemFlash {
	f := &MemFlash{
		data:      make([]byte, blockSize*int64(blocks)),
		blockSize: blockSize,
		erases:    make([]int, blocks),
		programs:  make([]int, blocks),
	}
	for i := range f.data {
		f.data[i] = 0xFF
	}
	return f
}

// ReadAt copies device contents into p.
func (f *MemFlash) ReadAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if off < 0 || off+int64(len(p)) > int64(len(f.data)) {
		return 0, ErrFlashRange
	}
	return copy(p, f.data[off:]), nil
}

// WriteAt programs p at off, clearing bits only.
func (f *MemFlash) WriteAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if off < 0 || off+int64(len(p)) > int64(len(f.data)) {
		return 0, ErrFlashRange
	}
	n := len(p)
	torn := f.tornWrite
	if torn {
		f.tornWrite = false
		n /= 2
	}
	for i := 0; i < n; i++ {
		f.data[off+int64(i)] &= p[i]
	}
	for b := off / f.blockSize; b <= (off+int64(len(p))-1)/f.blockSize; b++ {
		f.programs[b]++
	}
	if torn {
		return n, ErrFlashPowerLoss
	}
	return n, nil
}

// EraseBlockSize returns the erase unit in bytes.
func (f *MemFlash) EraseBlockSize() int64 {
	return f.blockSize
}

// EraseBlocks erases whole blocks.
func (f *MemFlash) EraseBlocks(start, length int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if start < 0 || start+length > int64(len(f.erases)) {
		return ErrFlashRange
	}
	for b := start; b < start+length; b++ {
		f.erases[b]++
		blk := f.data[b*f.blockSize : (b+1)*f.blockSize]
		for i := range blk {
			blk[i] = 0xFF
		}
	}
	return nil
}

// TearNextWrite arms a simulated power loss for the next WriteAt.
func (f *MemFlash) TearNextWrite() {
	f.mu.Lock()
	f.tornWrite = true
	f.mu.Unlock()
}

// Erases returns how many times block b was erased.
func (f *MemFlash) Erases(b int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.erases[b]
}

// Programs returns how many times block b was programmed.
func (f *MemFlash) Programs(b int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.programs[b]
}

// TotalPrograms returns the number of program operations on all blocks.
func (f *MemFlash) TotalPrograms() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.programs {
		total += n
	}
	return total
}
