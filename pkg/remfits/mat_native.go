//go:build !purego && !js

package remfits

import (
	"image"

	"gocv.io/x/gocv"
)

// Mat wraps gocv.Mat for the native OpenCV backend.
type Mat struct {
	m gocv.Mat
}

func NewMatWithSize(rows, cols int) Mat {
	return Mat{m: gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32F)}
}
func (mat Mat) Rows() int                    { return mat.m.Rows() }
func (mat Mat) Cols() int                    { return mat.m.Cols() }
func (mat Mat) Empty() bool                  { return mat.m.Empty() }
func (mat Mat) Clone() Mat                   { return Mat{m: mat.m.Clone()} }
func (mat *Mat) Close()                      { mat.m.Close() }
func (mat Mat) Region(r image.Rectangle) Mat { return Mat{m: mat.m.Region(r)} }
func (mat Mat) At(row, col int) float32      { return mat.m.GetFloatAt(row, col) }
func (mat *Mat) SetAt(row, col int, v float32) {
	mat.m.SetFloatAt(row, col, v)
}

func (mat Mat) DataFloat32() []float32 {
	data, _ := mat.m.DataPtrFloat32()
	return data
}

func (mat *Mat) SetToZero() {
	mat.m.SetTo(gocv.NewScalar(0, 0, 0, 0))
}

// MaskedSum returns the sum of src weighted elementwise by mask.
// src and mask must have the same shape.
func MaskedSum(src, mask Mat) float64 {
	prod := gocv.NewMat()
	defer prod.Close()
	gocv.Multiply(src.m, mask.m, &prod)
	return prod.Sum().Val1
}

// MaskedSquareSum returns the sum of (mask*src)^2.
func MaskedSquareSum(src, mask Mat) float64 {
	prod := gocv.NewMat()
	defer prod.Close()
	gocv.Multiply(src.m, mask.m, &prod)
	sq := gocv.NewMat()
	defer sq.Close()
	gocv.Multiply(prod, prod, &sq)
	return sq.Sum().Val1
}
