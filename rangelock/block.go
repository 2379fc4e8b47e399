// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build linux

package rangelock

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nxgtw/go-shmlock/mmf"
	"github.com/nxgtw/go-shmlock/shm"
	shmsync "github.com/nxgtw/go-shmlock/sync"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sys/unix"
)

const (
	// retryBackoff is a pause between attempts to register a conflicting lock.
	retryBackoff = 10 * time.Millisecond
	// initPollInterval is a pause between checks of a segment, which is being initialized.
	initPollInterval = 5 * time.Millisecond
)

var (
	plog = logger.GetLogger("rangelock")

	errConflict = errors.New("range is locked")
)

// Block is a shared memory segment with a lock table and a data section.
// It is safe for concurrent use by multiple goroutines.
type Block struct {
	name     string
	segName  string
	cfg      Config
	creator  bool
	dataSize int64
	maxLocks int

	obj     *shm.MemoryObject
	region  *mmf.MemoryRegion
	mem     []byte
	control controlSection
	table   lockTable
	data    *mmf.MemoryRegionSection

	pid      uint32
	pidStart uint64

	// mu protects the mapping: operations hold it for reading, Close for writing.
	mu      sync.RWMutex
	closed  atomic.Bool
	held    *xsync.MapOf[int, *heldLock]
	metrics *blockMetrics
}

// Create creates a new segment for the given logical name with a data section of dataSize bytes.
// The capacity of the lock table is cfg.MaxLocks. It fails with ErrExists, if the segment exists.
func Create(name string, dataSize int64, cfg Config) (*Block, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dataSize <= 0 {
		return nil, errors.Wrapf(ErrInvalidRange, "data size must be positive, got %d", dataSize)
	}
	segName := SegmentName(name)
	total := segmentSize(cfg.MaxLocks, dataSize)
	obj, _, err := shm.NewMemoryObjectSize(segName, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0666, total)
	if err != nil {
		if os.IsExist(err) {
			return nil, errors.Wrapf(ErrExists, "segment %q", segName)
		}
		return nil, errors.Wrapf(err, "failed to create segment %q", segName)
	}
	region, err := mmf.NewMemoryRegion(obj, mmf.MEM_READWRITE, 0, int(total))
	if err != nil {
		obj.Destroy()
		return nil, errors.Wrapf(err, "failed to map segment %q", segName)
	}
	b, err := newBlock(name, segName, cfg, obj, region, cfg.MaxLocks, true)
	if err != nil {
		region.Close()
		obj.Destroy()
		return nil, errors.WithMessagef(err, "segment %q", segName)
	}
	b.control.init(uint64(total), uint32(cfg.MaxLocks))
	b.table.init()
	b.control.seal()
	plog.Infof("created segment %q: %d locks, %d data bytes", segName, cfg.MaxLocks, dataSize)
	return b, nil
}

// Attach opens an existing segment for the given logical name.
// It fails with ErrNotFound, if the segment does not exist, and with
// ErrIncompatibleFormat, if its magic or version do not match.
// If the segment is being initialized by its creator, Attach waits for
// not more, than cfg.LockTimeout.
// The capacity of the table is read from the segment, cfg.MaxLocks is ignored.
func Attach(name string, cfg Config) (*Block, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	segName := SegmentName(name)
	obj, err := shm.NewMemoryObject(segName, os.O_RDWR, 0666)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "segment %q", segName)
		}
		return nil, errors.Wrapf(err, "failed to open segment %q", segName)
	}
	maxLocks, total, err := waitSegmentHeader(obj, cfg.LockTimeout)
	if err != nil {
		obj.Close()
		return nil, errors.WithMessagef(err, "segment %q", segName)
	}
	region, err := mmf.NewMemoryRegion(obj, mmf.MEM_READWRITE, 0, int(total))
	if err != nil {
		obj.Close()
		return nil, errors.Wrapf(err, "failed to map segment %q", segName)
	}
	if maxLocks != cfg.MaxLocks {
		plog.Debugf("segment %q has %d lock slots, config value %d is ignored", segName, maxLocks, cfg.MaxLocks)
	}
	b, err := newBlock(name, segName, cfg, obj, region, maxLocks, false)
	if err != nil {
		region.Close()
		obj.Close()
		return nil, errors.WithMessagef(err, "segment %q", segName)
	}
	return b, nil
}

// Open attaches to the segment for the given logical name, or creates it, if it does not exist.
// dataSize is used only, if the segment is created.
func Open(name string, dataSize int64, cfg Config) (*Block, error) {
	for {
		b, err := Attach(name, cfg)
		if !errors.Is(err, ErrNotFound) {
			return b, err
		}
		b, err = Create(name, dataSize, cfg)
		if !errors.Is(err, ErrExists) {
			return b, err
		}
		// someone else has created it between our attempts.
	}
}

// Remove removes the segment for the given logical name without attaching to it.
// It is not an error, if the segment does not exist.
// Processes, which have the segment attached, can continue using it.
func Remove(name string) error {
	return shm.DestroyMemoryObject(SegmentName(name))
}

// waitSegmentHeader reads and validates the control section of an existing segment.
// A segment with zero size or zero magic is being initialized, so it is polled until timeout.
func waitSegmentHeader(obj *shm.MemoryObject, timeout time.Duration) (maxLocks int, total int64, err error) {
	deadline := time.Now().Add(timeout)
	for {
		maxLocks, total, err = readSegmentHeader(obj)
		if err != errNotInitialized {
			return
		}
		if time.Now().After(deadline) {
			return 0, 0, errors.Wrap(ErrIncompatibleFormat, "segment was not initialized")
		}
		time.Sleep(initPollInterval)
	}
}

var errNotInitialized = errors.New("segment is not initialized")

func readSegmentHeader(obj *shm.MemoryObject) (maxLocks int, total int64, err error) {
	size := obj.Size()
	if size < controlSize {
		return 0, 0, errNotInitialized
	}
	region, err := mmf.NewMemoryRegion(obj, mmf.MEM_READ_ONLY, 0, controlSize)
	if err != nil {
		return 0, 0, errors.Wrap(err, "failed to map control section")
	}
	defer region.Close()
	ctl := controlSection(region.Data())
	switch magic := ctl.magic(); {
	case magic == 0:
		return 0, 0, errNotInitialized
	case magic != segmentMagic:
		return 0, 0, errors.Wrapf(ErrIncompatibleFormat, "invalid magic %#x", magic)
	}
	if version := ctl.version(); version != formatVersion {
		return 0, 0, errors.Wrapf(ErrIncompatibleFormat, "format version %d is not supported, expected %d", version, formatVersion)
	}
	maxLocks = int(ctl.maxLocks())
	total = int64(ctl.totalSize())
	if maxLocks < MinMaxLocks || maxLocks > MaxMaxLocks {
		return 0, 0, errors.Wrapf(ErrIncompatibleFormat, "invalid lock table capacity %d", maxLocks)
	}
	if total != size || total <= headerSize(maxLocks) {
		return 0, 0, errors.Wrapf(ErrIncompatibleFormat, "invalid segment size %d, object size %d", total, size)
	}
	return maxLocks, total, nil
}

func newBlock(name, segName string, cfg Config, obj *shm.MemoryObject, region *mmf.MemoryRegion, maxLocks int, creator bool) (*Block, error) {
	mem := region.Data()
	data, err := mmf.NewMemoryRegionSection(region, headerSize(maxLocks), int64(len(mem))-headerSize(maxLocks))
	if err != nil {
		return nil, err
	}
	b := &Block{
		name:     name,
		segName:  segName,
		cfg:      cfg,
		creator:  creator,
		maxLocks: maxLocks,
		dataSize: data.Size(),
		obj:      obj,
		region:   region,
		mem:      mem,
		control:  controlSection(mem[:controlSize:controlSize]),
		table:    newLockTable(mem, maxLocks),
		data:     data,
		pid:      uint32(os.Getpid()),
		pidStart: processStartTime(os.Getpid()),
		held:     xsync.NewMapOf[int, *heldLock](),
	}
	b.metrics = newBlockMetrics(segName, b.held.Size)
	return b, nil
}

// Name returns the logical name of the block.
func (b *Block) Name() string {
	return b.name
}

// SegmentName returns the name of the underlying shared memory object.
func (b *Block) SegmentName() string {
	return b.segName
}

// DataSize returns the size of the data section.
func (b *Block) DataSize() int64 {
	return b.dataSize
}

// MaxLocks returns the capacity of the lock table.
func (b *Block) MaxLocks() int {
	return b.maxLocks
}

// IsCreator returns true, if the block was created by this process.
func (b *Block) IsCreator() bool {
	return b.creator
}

// Config returns block's config.
func (b *Block) Config() Config {
	return b.cfg
}

// AcquireLock locks [offset, offset+length) of the data section.
// timeout <= 0 means cfg.LockTimeout.
// It fails with ErrTimeout, if the lock was not acquired in time,
// and with ErrNoCapacity, if the lock table is full.
func (b *Block) AcquireLock(offset, length uint64, kind LockType, timeout time.Duration) (*LockHandle, error) {
	return b.AcquireLockContext(context.Background(), offset, length, kind, timeout)
}

// AcquireLockContext is like AcquireLock, but it also stops waiting, when ctx is done.
func (b *Block) AcquireLockContext(ctx context.Context, offset, length uint64, kind LockType, timeout time.Duration) (*LockHandle, error) {
	if !kind.Valid() {
		return nil, errors.Wrapf(ErrInvalidLockType, "%d", kind)
	}
	if err := b.checkRange(offset, length); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = b.cfg.LockTimeout
	}
	start := time.Now()
	deadline := start.Add(timeout)
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed.Load() {
		return nil, ErrClosed
	}
	l, err := b.acquire(ctx, offset, length, kind, deadline)
	if err != nil {
		switch {
		case errors.Is(err, ErrTimeout):
			b.metrics.timeouts.Inc()
		case errors.Is(err, ErrNoCapacity):
			b.metrics.noCapacity.Inc()
		}
		return nil, err
	}
	b.metrics.acquired.Inc()
	b.metrics.wait.UpdateDuration(start)
	return b.newHandle(l, offset, length), nil
}

func (b *Block) acquire(ctx context.Context, offset, length uint64, kind LockType, deadline time.Time) (*heldLock, error) {
	if _, err := b.cleanupDeadLocks(deadline); err != nil {
		return nil, err
	}
	for {
		id, gen, err := b.register(offset, length, kind, deadline)
		if err == nil {
			return &heldLock{slot: id, gen: gen, kind: kind}, nil
		}
		if !errors.Is(err, errConflict) {
			return nil, err
		}
		b.metrics.conflicts.Inc()
		wait := time.Until(deadline)
		if wait <= 0 {
			return nil, errors.Wrapf(ErrTimeout, "%s lock on [%d, %d)", kind, offset, offset+length)
		}
		if wait > retryBackoff {
			wait = retryBackoff
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// register makes one attempt to add an entry to the table and to lock its slot.
// It returns errConflict, if the range is locked by someone else.
func (b *Block) register(offset, length uint64, kind LockType, deadline time.Time) (id int, gen uint32, err error) {
	ctl := b.control.lock()
	if err = lockTimeout(ctl, Exclusive, time.Until(deadline)); err != nil {
		return -1, 0, errors.WithMessage(err, "control lock")
	}
	defer func() {
		if unlockErr := ctl.Unlock(); unlockErr != nil && err == nil {
			err = errors.Wrap(unlockErr, "failed to unlock control lock")
			b.rollback(id, true)
		}
	}()
	id, ok := b.table.findFreeSlot()
	if !ok {
		plog.Debugf("%s: all %d slots are occupied", b.segName, b.maxLocks)
		return -1, 0, errors.Wrapf(ErrNoCapacity, "%d slots", b.maxLocks)
	}
	if e, found := b.table.findConflict(offset, length, kind); found {
		return -1, 0, errors.Wrapf(errConflict, "slot %d, %s lock on [%d, %d) by pid %d",
			e.SlotID, e.Type, e.StartOffset, e.End(), e.OwnerPID)
	}
	s := b.table.slot(id)
	gen = s.generation() + 1
	if gen == 0 {
		gen = 1
	}
	s.setEntry(LockEntry{
		StartOffset: offset,
		Length:      length,
		OwnerPID:    b.pid,
		OwnerTID:    int32(unix.Gettid()),
		OwnerStart:  b.pidStart,
		Generation:  gen,
		Type:        kind,
		Active:      true,
		Timestamp:   time.Now(),
	})
	if err = lockTimeout(s.lock(), kind, time.Until(deadline)); err != nil {
		s.setActive(false)
		return -1, 0, errors.WithMessagef(err, "slot %d lock", id)
	}
	return id, gen, nil
}

// rollback releases a slot, which was registered, but not returned to the caller.
func (b *Block) rollback(id int, takeControl bool) {
	if id < 0 {
		return
	}
	if takeControl {
		if err := lockTimeout(b.control.lock(), Exclusive, b.cfg.LockTimeout); err != nil {
			plog.Errorf("%s: failed to roll back slot %d: %v", b.segName, id, err)
			return
		}
		defer b.control.lock().Unlock()
	}
	s := b.table.slot(id)
	s.lock().Unlock()
	s.setActive(false)
}

// ReleaseLock releases the lock in the given slot. It is a no-op, if the slot is not active.
// If the lock was acquired via this block, its handle is released as well.
func (b *Block) ReleaseLock(slotID int) error {
	if slotID < 0 || slotID >= b.maxLocks {
		return errors.Errorf("invalid slot id %d", slotID)
	}
	if l, ok := b.held.Load(slotID); ok {
		return l.release(b)
	}
	return b.releaseSlot(slotID, 0)
}

// releaseSlot unlocks the slot and marks it inactive. If gen is not 0,
// the slot is released only if it has the same generation.
// It still works, when the block is being closed, but is not unmapped yet,
// as Close does not release locks, which are not in the registry anymore.
func (b *Block) releaseSlot(id int, gen uint32) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.control == nil {
		return ErrClosed
	}
	ctl := b.control.lock()
	if err := lockTimeout(ctl, Exclusive, b.cfg.LockTimeout); err != nil {
		return errors.WithMessage(err, "control lock")
	}
	err := b.releaseSlotLocked(id, gen)
	if unlockErr := ctl.Unlock(); unlockErr != nil && err == nil {
		err = errors.Wrap(unlockErr, "failed to unlock control lock")
	}
	return err
}

// releaseSlotLocked must be called with the control lock held.
func (b *Block) releaseSlotLocked(id int, gen uint32) error {
	s := b.table.slot(id)
	if !s.active() || (gen != 0 && s.generation() != gen) {
		return nil
	}
	s.setActive(false)
	b.metrics.released.Inc()
	if err := s.lock().Unlock(); err != nil && !errors.Is(err, shmsync.ErrNotLocked) {
		return errors.Wrapf(err, "failed to unlock slot %d", id)
	}
	return nil
}

// CleanupDeadLocks reclaims locks, whose owners do not exist anymore, and locks,
// which were not refreshed for longer, than cfg.StaleLockTimeout.
// It returns the number of reclaimed locks.
func (b *Block) CleanupDeadLocks() (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed.Load() {
		return 0, ErrClosed
	}
	return b.cleanupDeadLocks(time.Now().Add(b.cfg.LockTimeout))
}

func (b *Block) cleanupDeadLocks(deadline time.Time) (int, error) {
	ctl := b.control.lock()
	if err := lockTimeout(ctl, Exclusive, time.Until(deadline)); err != nil {
		return 0, errors.WithMessage(err, "control lock")
	}
	defer ctl.Unlock()
	now := time.Now()
	reclaimed := 0
	for id := 0; id < b.maxLocks; id++ {
		s := b.table.slot(id)
		if !s.active() {
			continue
		}
		e := s.entry(id)
		reason := b.deadReason(e, now)
		if reason == "" {
			continue
		}
		// the owner can not unlock it anymore.
		_ = s.lock().Reset()
		s.setActive(false)
		reclaimed++
		b.metrics.reclaimed.Inc()
		plog.Infof("%s: reclaimed %s lock on [%d, %d) in slot %d, owner %d/%d: %s",
			b.segName, e.Type, e.StartOffset, e.End(), id, e.OwnerPID, e.OwnerTID, reason)
	}
	return reclaimed, nil
}

func (b *Block) deadReason(e LockEntry, now time.Time) string {
	if age := now.Sub(e.Timestamp); age > b.cfg.StaleLockTimeout {
		return "heartbeat is " + age.Truncate(time.Millisecond).String() + " old"
	}
	if e.OwnerPID == b.pid && (e.OwnerStart == 0 || b.pidStart == 0 || e.OwnerStart == b.pidStart) {
		return ""
	}
	if !processAlive(e.OwnerPID, e.OwnerStart) {
		return "owner process is gone"
	}
	return ""
}

// refresh updates the timestamp of the slot, if it still has the given generation.
func (b *Block) refresh(id int, gen uint32) error {
	if !b.mu.TryRLock() {
		// the block is being closed.
		return nil
	}
	defer b.mu.RUnlock()
	if b.closed.Load() {
		return nil
	}
	ctl := b.control.lock()
	if err := lockTimeout(ctl, Exclusive, b.cfg.LockTimeout); err != nil {
		return errors.WithMessage(err, "control lock")
	}
	defer ctl.Unlock()
	s := b.table.slot(id)
	if !s.active() || s.generation() != gen {
		return errLockLost
	}
	s.setTimestamp(time.Now())
	return nil
}

// Entries returns active entries of the lock table.
func (b *Block) Entries() ([]LockEntry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed.Load() {
		return nil, ErrClosed
	}
	ctl := b.control.lock()
	if err := lockTimeout(ctl, Shared, b.cfg.LockTimeout); err != nil {
		return nil, errors.WithMessage(err, "control lock")
	}
	defer ctl.Unlock()
	return b.table.activeEntries(), nil
}

// Read returns a copy of [offset, offset+length) of the data section.
// The caller must hold a lock over the range.
func (b *Block) Read(offset, length uint64) ([]byte, error) {
	if err := b.checkRange(offset, length); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed.Load() {
		return nil, ErrClosed
	}
	result := make([]byte, length)
	copy(result, b.data.Bytes()[offset:offset+length])
	return result, nil
}

// Write copies data to the data section at offset.
// The caller must hold an exclusive lock over the range.
func (b *Block) Write(offset uint64, data []byte) error {
	if err := b.checkRange(offset, uint64(len(data))); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed.Load() {
		return ErrClosed
	}
	copy(b.data.Bytes()[offset:], data)
	return nil
}

// ReadAt implements io.ReaderAt over the data section.
func (b *Block) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, errors.Wrapf(ErrInvalidRange, "negative offset %d", off)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed.Load() {
		return 0, ErrClosed
	}
	return b.data.ReadAt(p, off)
}

// WriteAt implements io.WriterAt over the data section.
func (b *Block) WriteAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, errors.Wrapf(ErrInvalidRange, "negative offset %d", off)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed.Load() {
		return 0, ErrClosed
	}
	return b.data.WriteAt(p, off)
}

// WithLock acquires a lock, calls f and releases the lock, even if f panics.
func (b *Block) WithLock(ctx context.Context, offset, length uint64, kind LockType, timeout time.Duration, f func() error) (err error) {
	h, err := b.AcquireLockContext(ctx, offset, length, kind, timeout)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := h.Release(); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}()
	return f()
}

// Update atomically replaces [offset, offset+length) with the result of f.
// f gets a copy of the current contents under an exclusive lock. The returned
// slice is written from offset and must not be longer, than length.
// Update returns the written data.
func (b *Block) Update(ctx context.Context, offset, length uint64, timeout time.Duration, f func(old []byte) ([]byte, error)) ([]byte, error) {
	var result []byte
	err := b.WithLock(ctx, offset, length, Exclusive, timeout, func() error {
		old, err := b.Read(offset, length)
		if err != nil {
			return err
		}
		updated, err := f(old)
		if err != nil {
			return err
		}
		if uint64(len(updated)) > length {
			return errors.Wrapf(ErrInvalidRange, "update returned %d bytes for a range of %d", len(updated), length)
		}
		if len(updated) > 0 {
			if err = b.Write(offset, updated); err != nil {
				return err
			}
		}
		result = updated
		return nil
	})
	return result, err
}

// WritePrometheus writes block's metrics in prometheus text format.
func (b *Block) WritePrometheus(w io.Writer) {
	b.metrics.writePrometheus(w)
}

// Flush synchronizes the data section with the backing object.
func (b *Block) Flush() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed.Load() {
		return ErrClosed
	}
	return b.data.Flush()
}

// Close releases all locks acquired via this block and unmaps the segment.
// The segment itself stays in the system.
func (b *Block) Close() error {
	return b.close(false)
}

// Unlink releases all locks acquired via this block, destroys table locks
// and removes the segment from the system. Only the creator can unlink a block.
// Other processes must not hold locks in the segment.
func (b *Block) Unlink() error {
	if !b.creator {
		return ErrNotCreator
	}
	return b.close(true)
}

func (b *Block) close(destroy bool) error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	// heartbeats do not block on mu, so they can be stopped before and after it is locked.
	b.held.Range(func(_ int, l *heldLock) bool {
		l.stopHeartbeat()
		return true
	})
	b.mu.Lock()
	defer b.mu.Unlock()
	var result error
	if n := b.held.Size(); n > 0 {
		plog.Warningf("%s: releasing %d locks on close", b.segName, n)
		if err := lockTimeout(b.control.lock(), Exclusive, b.cfg.LockTimeout); err != nil {
			result = errors.WithMessage(err, "control lock")
		} else {
			b.held.Range(func(_ int, l *heldLock) bool {
				if err := l.releaseLocked(b); err != nil && result == nil {
					result = err
				}
				return true
			})
			b.control.lock().Unlock()
		}
	}
	if destroy {
		for id := 0; id < b.maxLocks; id++ {
			if err := b.table.slot(id).lock().Destroy(); err != nil {
				plog.Warningf("%s: failed to destroy lock of slot %d: %v", b.segName, id, err)
			}
		}
		if err := b.control.lock().Destroy(); err != nil {
			plog.Warningf("%s: failed to destroy control lock: %v", b.segName, err)
		}
	}
	if err := b.region.Close(); err != nil && result == nil {
		result = errors.Wrap(err, "failed to unmap segment")
	}
	b.mem, b.control = nil, nil
	b.table = lockTable{}
	if destroy {
		if err := b.obj.Destroy(); err != nil && result == nil {
			result = errors.Wrap(err, "failed to remove segment")
		}
		plog.Infof("removed segment %q", b.segName)
	} else if err := b.obj.Close(); err != nil && result == nil {
		result = errors.Wrap(err, "failed to close segment")
	}
	return result
}

func (b *Block) checkRange(offset, length uint64) error {
	if length == 0 {
		return errors.Wrap(ErrInvalidRange, "zero length")
	}
	end := offset + length
	if end < offset || end > uint64(b.dataSize) {
		return errors.Wrapf(ErrInvalidRange, "[%d, %d) is out of data section of %d bytes", offset, end, b.dataSize)
	}
	return nil
}

// lockTimeout locks a shared rwlock in the given mode.
// Negative timeouts are not allowed here, as they mean an unbounded wait.
func lockTimeout(rw *shmsync.InplaceRWMutex, kind LockType, timeout time.Duration) error {
	if timeout < 0 {
		timeout = 0
	}
	var err error
	if kind == Shared {
		err = rw.RLockTimeout(timeout)
	} else {
		err = rw.LockTimeout(timeout)
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, shmsync.ErrTimeout):
		return ErrTimeout
	case errors.Is(err, shmsync.ErrNotInitialized):
		return errors.Wrap(ErrIncompatibleFormat, "lock is not initialized")
	}
	return err
}
