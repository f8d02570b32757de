package remfits

// NewMatFromData copies data (row-major, rows*cols values) into a new Mat.
func NewMatFromData(rows, cols int, data []float32) Mat {
	m := NewMatWithSize(rows, cols)
	copy(m.DataFloat32()[:rows*cols], data)
	return m
}

// RowValues returns a copy of row r. Works for views as well as
// contiguous mats.
func RowValues(m Mat, r int) []float32 {
	out := make([]float32, m.Cols())
	for c := range out {
		out[c] = m.At(r, c)
	}
	return out
}
