//go:build purego || js

package remfits

import "image"

// Mat is a pure Go 2D float32 matrix.
type Mat struct {
	data    []float32
	rows    int
	cols    int
	stride  int // elements per row in backing array (may differ from cols for sub-matrices)
	dataOff int // offset into data for sub-matrices
	owned   bool
}

func NewMatWithSize(rows, cols int) Mat {
	return Mat{
		data:   make([]float32, rows*cols),
		rows:   rows,
		cols:   cols,
		stride: cols,
		owned:  true,
	}
}

func (m Mat) Rows() int   { return m.rows }
func (m Mat) Cols() int   { return m.cols }
func (m Mat) Empty() bool { return m.data == nil || m.rows == 0 || m.cols == 0 }

func (m Mat) Clone() Mat {
	newData := make([]float32, m.rows*m.cols)
	for r := 0; r < m.rows; r++ {
		srcOff := m.dataOff + r*m.stride
		copy(newData[r*m.cols:], m.data[srcOff:srcOff+m.cols])
	}
	return Mat{data: newData, rows: m.rows, cols: m.cols, stride: m.cols, owned: true}
}

func (m *Mat) Close() {
	if m.owned {
		m.data = nil
	}
	m.rows = 0
	m.cols = 0
}

// DataFloat32 returns the backing float32 slice.
// Only valid for contiguous mats (not un-cloned sub-matrices from Region).
func (m Mat) DataFloat32() []float32 {
	return m.data[m.dataOff:]
}

// Region returns a view sharing storage with m. r is in (x=col, y=row) order.
func (m Mat) Region(r image.Rectangle) Mat {
	return Mat{
		data:    m.data,
		rows:    r.Dy(),
		cols:    r.Dx(),
		stride:  m.stride,
		dataOff: m.dataOff + r.Min.Y*m.stride + r.Min.X,
		owned:   false,
	}
}

func (m Mat) At(row, col int) float32 {
	return m.data[m.dataOff+row*m.stride+col]
}

func (m *Mat) SetAt(row, col int, v float32) {
	m.data[m.dataOff+row*m.stride+col] = v
}

func (m *Mat) SetToZero() {
	for r := 0; r < m.rows; r++ {
		off := m.dataOff + r*m.stride
		for c := 0; c < m.cols; c++ {
			m.data[off+c] = 0
		}
	}
}

// MaskedSum returns the sum of src weighted elementwise by mask.
// src and mask must have the same shape.
func MaskedSum(src, mask Mat) float64 {
	var sum float64
	for r := 0; r < src.rows; r++ {
		srcOff := src.dataOff + r*src.stride
		maskOff := mask.dataOff + r*mask.stride
		for c := 0; c < src.cols; c++ {
			sum += float64(src.data[srcOff+c]) * float64(mask.data[maskOff+c])
		}
	}
	return sum
}

// MaskedSquareSum returns the sum of (mask*src)^2.
func MaskedSquareSum(src, mask Mat) float64 {
	var sum float64
	for r := 0; r < src.rows; r++ {
		srcOff := src.dataOff + r*src.stride
		maskOff := mask.dataOff + r*mask.stride
		for c := 0; c < src.cols; c++ {
			v := float64(src.data[srcOff+c]) * float64(mask.data[maskOff+c])
			sum += v * v
		}
	}
	return sum
}
