package safe

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"tonal-otsu/internal/debug/memtracker"

	"gocv.io/x/gocv"
)

// Mat owns a gocv.Mat and guarantees it is closed exactly once.
type Mat struct {
	mat     gocv.Mat
	isValid int32
	mu      sync.RWMutex
	id      uint64
	tag     string
}

var (
	nextMatID   uint64
	allocations = memtracker.NewTracker()
)

// Allocations returns the tracker that records every Mat not yet closed.
func Allocations() *memtracker.Tracker {
	return allocations
}

// NewMat allocates a zero-filled Mat.
func NewMat(rows, cols int, matType gocv.MatType) (*Mat, error) {
	if err := ValidateDimensions(cols, rows, "NewMat"); err != nil {
		return nil, err
	}

	mat := gocv.Zeros(rows, cols, matType)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("failed to create Mat with size %dx%d", cols, rows)
	}

	return wrap(mat, ""), nil
}

// NewMatFromBytes copies data into a new Mat. len(data) must equal
// rows*cols*channels of matType.
func NewMatFromBytes(rows, cols int, matType gocv.MatType, data []byte) (*Mat, error) {
	if err := ValidateDimensions(cols, rows, "NewMatFromBytes"); err != nil {
		return nil, err
	}

	want := rows * cols * matTypeSize(matType)
	if len(data) != want {
		return nil, fmt.Errorf("data length %d does not match %dx%d of type %v (want %d)",
			len(data), cols, rows, matType, want)
	}

	mat, err := gocv.NewMatFromBytes(rows, cols, matType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to create Mat from bytes: %w", err)
	}

	// NewMatFromBytes shares the Go slice; clone so the Mat owns its pixels.
	owned := mat.Clone()
	mat.Close()

	return wrap(owned, ""), nil
}

// Take wraps m and transfers ownership. The caller must not close m afterwards.
func Take(m gocv.Mat, tag string) (*Mat, error) {
	if m.Empty() {
		m.Close()
		return nil, fmt.Errorf("source Mat is empty")
	}

	return wrap(m, tag), nil
}

func wrap(m gocv.Mat, tag string) *Mat {
	sm := &Mat{
		mat:     m,
		isValid: 1,
		id:      atomic.AddUint64(&nextMatID, 1),
		tag:     tag,
	}
	allocations.TrackAllocation(sm.id, int64(m.Total()*m.ElemSize()), tag)
	runtime.SetFinalizer(sm, (*Mat).finalize)
	return sm
}

func (sm *Mat) IsValid() bool {
	return atomic.LoadInt32(&sm.isValid) == 1
}

func (sm *Mat) Empty() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return true
	}

	return sm.mat.Empty()
}

func (sm *Mat) Rows() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return 0
	}

	return sm.mat.Rows()
}

func (sm *Mat) Cols() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return 0
	}

	return sm.mat.Cols()
}

func (sm *Mat) Channels() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return 0
	}

	return sm.mat.Channels()
}

func (sm *Mat) Type() gocv.MatType {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return gocv.MatTypeCV8UC1
	}

	return sm.mat.Type()
}

// Tag is the label the Mat was created with, used in log fields.
func (sm *Mat) ID() uint64 {
	return sm.id
}

func (sm *Mat) Clone() (*Mat, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return nil, fmt.Errorf("cannot clone invalid Mat")
	}

	if sm.mat.Empty() {
		return nil, fmt.Errorf("cannot clone empty Mat")
	}

	return wrap(sm.mat.Clone(), sm.tag), nil
}

func (sm *Mat) GetUCharAt(row, col int) (uint8, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return 0, fmt.Errorf("Mat is invalid")
	}

	if err := ValidateCoordinates(row, col, sm.mat.Rows(), sm.mat.Cols(), "GetUCharAt"); err != nil {
		return 0, err
	}

	return sm.mat.GetUCharAt(row, col), nil
}

func (sm *Mat) SetUCharAt(row, col int, value uint8) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.IsValid() {
		return fmt.Errorf("Mat is invalid")
	}

	if err := ValidateCoordinates(row, col, sm.mat.Rows(), sm.mat.Cols(), "SetUCharAt"); err != nil {
		return err
	}

	sm.mat.SetUCharAt(row, col, value)
	return nil
}

// Bytes returns a copy of the pixel buffer in row-major order.
func (sm *Mat) Bytes() ([]byte, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return nil, fmt.Errorf("Mat is invalid")
	}

	if !sm.mat.IsContinuous() {
		c := sm.mat.Clone()
		defer c.Close()
		return c.ToBytes(), nil
	}

	return sm.mat.ToBytes(), nil
}

// GetMat exposes the underlying gocv.Mat for passing to gocv functions.
// The returned value stays owned by sm.
func (sm *Mat) GetMat() gocv.Mat {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.mat
}

// Close releases the native memory. Calling it more than once is a no-op.
// It returns an error so it satisfies io.Closer for multierr.Combine chains.
func (sm *Mat) Close() error {
	if sm == nil {
		return nil
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if atomic.CompareAndSwapInt32(&sm.isValid, 1, 0) {
		runtime.SetFinalizer(sm, nil)
		allocations.TrackDeallocation(sm.id, false)
		return sm.mat.Close()
	}

	return nil
}

func (sm *Mat) finalize() {
	if atomic.LoadInt32(&sm.isValid) == 1 {
		allocations.TrackDeallocation(sm.id, true)
		sm.Close()
	}
}

func matTypeSize(matType gocv.MatType) int {
	switch matType {
	case gocv.MatTypeCV8UC1:
		return 1
	case gocv.MatTypeCV8UC3:
		return 3
	case gocv.MatTypeCV8UC4:
		return 4
	case gocv.MatTypeCV16UC1:
		return 2
	case gocv.MatTypeCV32FC1:
		return 4
	default:
		return 1
	}
}
