package core

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Wear-leveled settings store.
//
// Each commit writes one PersistedRecord into one of Slots fixed-size slots.
// The slot is (sequence / RotateEvery) mod Slots, so a slot absorbs
// RotateEvery writes before the next one takes over. Only one slot is ever
// being modified; on boot the valid record with the highest sequence wins.
//
// Slot layout (little endian):
//
//	0  magic    uint32
//	4  sequence uint32
//	8  length   uint16  payload bytes
//	10 crc      uint16  CRC16 over bytes 4..9 and the payload
//	12 payload  CBOR-encoded MachineParameters

// SettingsMagic is the validity marker of a fully written record.
const SettingsMagic uint32 = 0xBEEFCAFE

const recordHeaderSize = 12

var (
	ErrRecordTooLarge = errors.New("settings: record does not fit in a slot")
	ErrInvalidRecord  = errors.New("settings: invalid record")
	ErrInvalidLayout  = errors.New("settings: invalid layout")
)

// StoreLayout places the slots on the flash device.
type StoreLayout struct {
	BaseOffset  int64         // byte offset of slot 0
	SlotSize    int64         // bytes per slot, a multiple of the erase block
	Slots       int           // number of rotating slots
	RotateEvery uint32        // writes per slot before moving on
	SaveDelay   time.Duration // quiet period before a scheduled commit
}

// DefaultStoreLayout returns ten 4 KiB slots rotated every 5000 writes.
func DefaultStoreLayout() StoreLayout {
	return StoreLayout{
		BaseOffset:  0,
		SlotSize:    4096,
		Slots:       10,
		RotateEvery: 5000,
		SaveDelay:   5 * time.Second,
	}
}

// SlotFor returns the slot written by the commit with the given sequence.
func (l StoreLayout) SlotFor(seq uint32) int {
	return int((seq / l.RotateEvery) % uint32(l.Slots))
}

func (l StoreLayout) slotOffset(slot int) int64 {
	return l.BaseOffset + int64(slot)*l.SlotSize
}

// PersistedRecord is the content of one slot.
type PersistedRecord struct {
	Marker   uint32
	Params   MachineParameters
	Sequence uint32
}

func encodeRecord(rec PersistedRecord, slotSize int64) ([]byte, error) {
	payload, err := cbor.Marshal(rec.Params)
	if err != nil {
		return nil, fmt.Errorf("settings: encode: %w", err)
	}
	if int64(recordHeaderSize+len(payload)) > slotSize {
		return nil, ErrRecordTooLarge
	}

	buf := make([]byte, slotSize)
	for i := range buf {
		buf[i] = 0xFF
	}
	binary.LittleEndian.PutUint32(buf[0:], rec.Marker)
	binary.LittleEndian.PutUint32(buf[4:], rec.Sequence)
	binary.LittleEndian.PutUint16(buf[8:], uint16(len(payload)))
	copy(buf[recordHeaderSize:], payload)
	crc := crc16Update(CRC16(buf[4:10]), payload)
	binary.LittleEndian.PutUint16(buf[10:], crc)
	return buf, nil
}

// MaxRecordSize is the largest encoded record, header included. A slot must
// be at least this big.
func MaxRecordSize() int64 {
	worst := MachineParameters{OnMicros: math.MaxUint16, OffMicros: math.MaxUint16}
	for i := range worst.Depth {
		worst.Depth[i] = math.MaxUint8
	}
	payload, err := cbor.Marshal(worst)
	if err != nil {
		panic(err)
	}
	return int64(recordHeaderSize + len(payload))
}

// decodeRecord parses a slot. Anything other than a complete record with
// the right marker and checksum is ErrInvalidRecord.
func decodeRecord(buf []byte) (PersistedRecord, error) {
	var rec PersistedRecord
	if len(buf) < recordHeaderSize {
		return rec, ErrInvalidRecord
	}
	rec.Marker = binary.LittleEndian.Uint32(buf[0:])
	if rec.Marker != SettingsMagic {
		return rec, ErrInvalidRecord
	}
	rec.Sequence = binary.LittleEndian.Uint32(buf[4:])
	n := int(binary.LittleEndian.Uint16(buf[8:]))
	if recordHeaderSize+n > len(buf) {
		return rec, ErrInvalidRecord
	}
	payload := buf[recordHeaderSize : recordHeaderSize+n]
	if crc16Update(CRC16(buf[4:10]), payload) != binary.LittleEndian.Uint16(buf[10:]) {
		return rec, ErrInvalidRecord
	}
	if err := cbor.Unmarshal(payload, &rec.Params); err != nil {
		return rec, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return rec, nil
}

// Quiescer stops every other context from executing out of flash between
// Acquire and Release. *Lockout implements it.
type Quiescer interface {
	Acquire()
	Release()
}

// SettingsStore persists MachineParameters with debounced, wear-leveled
// commits. It is owned by the interactive context.
type SettingsStore struct {
	dev     FlashDevice
	layout  StoreLayout
	quiesce Quiescer

	writes      uint32
	initialized bool
	pending     bool
	deadline    time.Duration
}

// NewSettingsStore checks the layout against the device geometry.
func NewSettingsStore(dev FlashDevice, layout StoreLayout, quiesce Quiescer) (*SettingsStore, error) {
	block := dev.EraseBlockSize()
	switch {
	case layout.Slots <= 0:
		return nil, fmt.Errorf("%w: slots must be positive", ErrInvalidLayout)
	case layout.RotateEvery == 0:
		return nil, fmt.Errorf("%w: rotate_every must be positive", ErrInvalidLayout)
	case block <= 0 || layout.SlotSize <= 0 || layout.SlotSize%block != 0:
		return nil, fmt.Errorf("%w: slot size %d is not a multiple of erase block %d",
			ErrInvalidLayout, layout.SlotSize, block)
	case layout.BaseOffset < 0 || layout.BaseOffset%block != 0:
		return nil, fmt.Errorf("%w: base offset %d is not block aligned", ErrInvalidLayout, layout.BaseOffset)
	}
	return &SettingsStore{dev: dev, layout: layout, quiesce: quiesce}, nil
}

// Load returns the parameters of the newest valid record, scanning from the
// last slot backward. A slot that cannot be read is skipped like an invalid
// one and the read error is returned with whatever the other slots held, so
// the next commit still continues the highest sequence found. With no valid
// record it returns DefaultParameters and leaves the store uninitialized;
// nothing is written either way.
func (s *SettingsStore) Load() (MachineParameters, error) {
	var (
		best    PersistedRecord
		found   bool
		readErr error
	)
	buf := make([]byte, s.layout.SlotSize)
	for slot := s.layout.Slots - 1; slot >= 0; slot-- {
		if _, err := s.dev.ReadAt(buf, s.layout.slotOffset(slot)); err != nil {
			readErr = errors.Join(readErr, fmt.Errorf("settings: read slot %d: %w", slot, err))
			continue
		}
		rec, err := decodeRecord(buf)
		if err != nil {
			continue
		}
		if !found || rec.Sequence > best.Sequence {
			best, found = rec, true
		}
	}

	s.initialized = found
	if !found {
		s.writes = 0
		DebugPrintln("[SETTINGS] no valid record, using defaults")
		return DefaultParameters(), readErr
	}
	s.writes = best.Sequence
	DebugPrintln("[SETTINGS] loaded record seq=" + utoa(best.Sequence) +
		" slot=" + itoa(s.layout.SlotFor(best.Sequence)))
	return best.Params, readErr
}

// Initialized reports whether Load found a valid record or a commit succeeded.
func (s *SettingsStore) Initialized() bool {
	return s.initialized
}

// WriteCount returns the sequence number of the last commit.
func (s *SettingsStore) WriteCount() uint32 {
	return s.writes
}

// ScheduleCommit arms or re-arms the debounce deadline. Repeated calls
// within the delay push the deadline out, so a burst of edits produces one
// write.
func (s *SettingsStore) ScheduleCommit(now time.Duration) {
	s.pending = true
	s.deadline = now + s.layout.SaveDelay
}

// Pending reports whether a commit is scheduled.
func (s *SettingsStore) Pending() bool {
	return s.pending
}

// Tick performs the scheduled commit once its deadline has passed. It
// reports whether a write was attempted. The schedule is cleared even if
// the write fails; the next edit schedules a new one.
func (s *SettingsStore) Tick(now time.Duration, p MachineParameters) (bool, error) {
	if !s.pending || now < s.deadline {
		return false, nil
	}
	s.pending = false
	return true, s.Commit(p)
}

// Commit writes p to the next slot in rotation. Every other context is
// parked and local interrupts are masked from before the erase until the
// program completes.
func (s *SettingsStore) Commit(p MachineParameters) error {
	seq := s.writes + 1
	slot := s.layout.SlotFor(seq)
	buf, err := encodeRecord(PersistedRecord{Marker: SettingsMagic, Params: p, Sequence: seq}, s.layout.SlotSize)
	if err != nil {
		return err
	}
	// The sequence is consumed even if the write fails so sequences stay
	// strictly increasing across retries.
	s.writes = seq

	off := s.layout.slotOffset(slot)
	block := s.dev.EraseBlockSize()

	state := disableInterrupts()
	s.quiesce.Acquire()
	err = s.dev.EraseBlocks(off/block, s.layout.SlotSize/block)
	if err == nil {
		_, err = s.dev.WriteAt(unmarked(buf), off)
	}
	if err == nil {
		_, err = s.dev.WriteAt(buf[:4], off)
	}
	s.quiesce.Release()
	restoreInterrupts(state)

	RecordEvent(EvtCommit, seq, uint32(slot), boolWord(err == nil))
	if err != nil {
		return fmt.Errorf("settings: commit seq %d slot %d: %w", seq, slot, err)
	}
	s.initialized = true
	DebugAsync("[SETTINGS] saved seq=" + utoa(seq) + " slot=" + itoa(slot))
	return nil
}

// unmarked returns a copy of an encoded record with the magic left erased.
func unmarked(buf []byte) []byte {
	body := make([]byte, len(buf))
	copy(body, buf)
	for i := 0; i < 4; i++ {
		body[i] = 0xFF
	}
	return body
}

func boolWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
