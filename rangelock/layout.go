// Copyright 2016 Aleksandr Demakin. All rights reserved.

package rangelock

import (
	"encoding/binary"
	"math"
	"time"
	"unsafe"

	"github.com/nxgtw/go-shmlock/internal/common"
	shmsync "github.com/nxgtw/go-shmlock/sync"
)

// Segment layout.
//
// Control section:
//	[0:4)   magic
//	[4:8)   format version
//	[8:64)  control rwlock
//	[64:72) total segment size
//	[72:76) capacity of the lock table
//	[76:80) reserved
//
// Lock table slot:
//	[0:56)    slot rwlock
//	[+0:+8)   start offset
//	[+8:+16)  length
//	[+16:+20) owner pid
//	[+20:+24) owner tid
//	[+24:+25) lock type
//	[+25:+26) active
//	[+26:+34) timestamp, seconds since epoch, float64
//	[+34:+42) owner start time, clock ticks since boot
//	[+42:+46) generation
//	[+46:+48) padding
//
// The data section follows the last slot.
const (
	segmentMagic  = uint32(0x534D424C) // "SMBL"
	formatVersion = uint32(2)

	ctlMagicOff     = 0
	ctlVersionOff   = 4
	ctlLockOff      = 8
	ctlTotalSizeOff = ctlLockOff + shmsync.RWMutexSize
	ctlMaxLocksOff  = ctlTotalSizeOff + 8
	controlSize     = ctlMaxLocksOff + 8

	metaOff           = shmsync.RWMutexSize
	metaStartOff      = metaOff + 0
	metaLengthOff     = metaOff + 8
	metaPidOff        = metaOff + 16
	metaTidOff        = metaOff + 20
	metaTypeOff       = metaOff + 24
	metaActiveOff     = metaOff + 25
	metaTimestampOff  = metaOff + 26
	metaOwnerStartOff = metaOff + 34
	metaGenerationOff = metaOff + 42
	metaEnd           = metaOff + 46

	// every slot rwlock must be 8-byte aligned.
	entrySize = (metaEnd + 7) &^ 7
)

var byteOrder = binary.LittleEndian

// segmentSize returns the total size of a segment with the given capacity and data size.
func segmentSize(maxLocks int, dataSize int64) int64 {
	return headerSize(maxLocks) + dataSize
}

// headerSize returns the offset of the data section.
func headerSize(maxLocks int) int64 {
	return controlSize + int64(maxLocks)*entrySize
}

// LockEntry is a decoded lock table slot.
type LockEntry struct {
	SlotID      int
	StartOffset uint64
	Length      uint64
	OwnerPID    uint32
	OwnerTID    int32
	// OwnerStart is the start time of the owner process in clock ticks since boot.
	// It is 0, if it could not be determined.
	OwnerStart uint64
	Generation uint32
	Type       LockType
	Active     bool
	Timestamp  time.Time
}

// End returns the end of the entry's range.
func (e LockEntry) End() uint64 {
	return e.StartOffset + e.Length
}

// Overlaps returns true, if the entry's range intersects with [offset, offset+length).
func (e LockEntry) Overlaps(offset, length uint64) bool {
	return e.StartOffset < offset+length && offset < e.End()
}

// ConflictsWith returns true, if an active entry prevents a lock of the given type on the range.
func (e LockEntry) ConflictsWith(offset, length uint64, kind LockType) bool {
	if !e.Active || !e.Overlaps(offset, length) {
		return false
	}
	return kind == Exclusive || e.Type == Exclusive
}

// controlSection is a view of the control section.
type controlSection []byte

func (c controlSection) magic() uint32 {
	return byteOrder.Uint32(c[ctlMagicOff:])
}

func (c controlSection) version() uint32 {
	return byteOrder.Uint32(c[ctlVersionOff:])
}

func (c controlSection) totalSize() uint64 {
	return byteOrder.Uint64(c[ctlTotalSizeOff:])
}

func (c controlSection) maxLocks() uint32 {
	return byteOrder.Uint32(c[ctlMaxLocksOff:])
}

func (c controlSection) lock() *shmsync.InplaceRWMutex {
	return shmsync.NewInplaceRWMutex(unsafe.Pointer(&c[ctlLockOff]))
}

// init writes everything except the magic, which must be written last.
func (c controlSection) init(totalSize uint64, maxLocks uint32) {
	byteOrder.PutUint32(c[ctlVersionOff:], formatVersion)
	byteOrder.PutUint64(c[ctlTotalSizeOff:], totalSize)
	byteOrder.PutUint32(c[ctlMaxLocksOff:], maxLocks)
	c.lock().Init()
}

func (c controlSection) seal() {
	byteOrder.PutUint32(c[ctlMagicOff:], segmentMagic)
}

// slot is a view of a lock table slot.
type slot []byte

func (s slot) lock() *shmsync.InplaceRWMutex {
	return shmsync.NewInplaceRWMutex(common.ByteSliceData(s))
}

func (s slot) entry(id int) LockEntry {
	return LockEntry{
		SlotID:      id,
		StartOffset: byteOrder.Uint64(s[metaStartOff:]),
		Length:      byteOrder.Uint64(s[metaLengthOff:]),
		OwnerPID:    byteOrder.Uint32(s[metaPidOff:]),
		OwnerTID:    int32(byteOrder.Uint32(s[metaTidOff:])),
		OwnerStart:  byteOrder.Uint64(s[metaOwnerStartOff:]),
		Generation:  byteOrder.Uint32(s[metaGenerationOff:]),
		Type:        LockType(s[metaTypeOff]),
		Active:      s[metaActiveOff] != 0,
		Timestamp:   secondsToTime(math.Float64frombits(byteOrder.Uint64(s[metaTimestampOff:]))),
	}
}

func (s slot) setEntry(e LockEntry) {
	byteOrder.PutUint64(s[metaStartOff:], e.StartOffset)
	byteOrder.PutUint64(s[metaLengthOff:], e.Length)
	byteOrder.PutUint32(s[metaPidOff:], e.OwnerPID)
	byteOrder.PutUint32(s[metaTidOff:], uint32(e.OwnerTID))
	byteOrder.PutUint64(s[metaOwnerStartOff:], e.OwnerStart)
	byteOrder.PutUint32(s[metaGenerationOff:], e.Generation)
	s[metaTypeOff] = byte(e.Type)
	s.setTimestamp(e.Timestamp)
	s.setActive(e.Active)
}

func (s slot) active() bool {
	return s[metaActiveOff] != 0
}

func (s slot) setActive(active bool) {
	if active {
		s[metaActiveOff] = 1
	} else {
		s[metaActiveOff] = 0
	}
}

func (s slot) generation() uint32 {
	return byteOrder.Uint32(s[metaGenerationOff:])
}

func (s slot) setTimestamp(t time.Time) {
	byteOrder.PutUint64(s[metaTimestampOff:], math.Float64bits(timeToSeconds(t)))
}

// reset clears the metadata. The rwlock is initialized separately.
func (s slot) reset() {
	for i := metaOff; i < entrySize; i++ {
		s[i] = 0
	}
}

func timeToSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / float64(time.Second)
}

func secondsToTime(sec float64) time.Time {
	if sec <= 0 || math.IsNaN(sec) || math.IsInf(sec, 0) {
		return time.Time{}
	}
	return time.Unix(0, int64(sec*float64(time.Second)))
}
