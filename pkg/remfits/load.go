package remfits

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/astrogo/fitsio"
	"go.uber.org/zap"

	"remphot/internal/logger"
	"remphot/pkg/photerr"
)

var gzipMagic = []byte{0x1f, 0x8b}

// LoadFile reads a FITS file, gzip-compressed or not.
func LoadFile(path string, t ImageType) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading FITS file: %w", err)
	}
	img, err := LoadBytes(data, t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// LoadBytes parses a FITS byte stream. A gzip wrapper is detected by its
// magic number.
func LoadBytes(data []byte, t ImageType) (*Image, error) {
	if bytes.HasPrefix(data, gzipMagic) {
		return LoadBlob(data, t)
	}
	return readFITS(bytes.NewReader(data), t)
}

// LoadBlob parses the gzip-compressed FITS stored in the catalog database.
func LoadBlob(blob []byte, t ImageType) (*Image, error) {
	zr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("decompressing FITS: %w", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompressing FITS: %w", err)
	}
	return readFITS(bytes.NewReader(raw), t)
}

func readFITS(r io.Reader, t ImageType) (*Image, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("%w: opening FITS: %v", photerr.ErrHeader, err)
	}
	defer f.Close()

	hdu, ok := f.HDU(0).(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("%w: primary HDU is not an image", photerr.ErrHeader)
	}
	fh := hdu.Header()
	axes := fh.Axes()
	if len(axes) < 2 || axes[0] == 0 || axes[1] == 0 {
		return nil, fmt.Errorf("%w: invalid NAXIS %v", photerr.ErrHeader, axes)
	}
	naxis1, naxis2 := axes[0], axes[1]
	hdr := headerFromFITS(fh)

	raw, err := readPixels(hdu, fh.Bitpix(), hdr)
	if err != nil {
		return nil, err
	}

	img := &Image{Type: t, Header: hdr}
	if err := img.applyHeader(naxis1, naxis2); err != nil {
		return nil, err
	}

	rows := img.EndY - img.StartY
	cols := img.EndX - img.StartX
	img.SetPixels(fitPixels(raw, naxis2, naxis1, rows, cols))

	if t.NeedsWCS() {
		w, err := wcsFromHeader(hdr)
		if err != nil {
			return nil, err
		}
		img.wcs = w
	}

	logger.L.Debug("loaded FITS image",
		zap.String("name", img.Name),
		zap.Stringer("type", t),
		zap.Stringer("filter", img.filter),
		zap.Int("rows", rows),
		zap.Int("cols", cols),
		zap.Float64("mean", img.mean),
		zap.Float64("std", img.std))
	return img, nil
}

// applyHeader extracts date, filter, sub-window and temperature and checks
// that the filter agrees with the CCD quadrant.
func (img *Image) applyHeader(naxis1, naxis2 int) error {
	h := img.Header
	var dateOK bool
	for _, key := range []string{"DATE-OBS", "DATE", "_ATE"} {
		if t, ok := h.Time(key); ok {
			img.obsDate = t
			dateOK = true
			break
		}
	}
	if !dateOK {
		return fmt.Errorf("%w: no parsable DATE-OBS, DATE or _ATE", photerr.ErrHeader)
	}

	img.Name, _ = h.String("FILENAME")
	if exp, ok := h.Float("EXPTIME"); ok {
		img.ExpTime = exp
	}
	for _, key := range []string{"CCDTEMP", "TEMPCHIP"} {
		if v, ok := h.Float(key); ok {
			img.CCDTemp = v
			img.HasTemp = true
			break
		}
	}

	img.StartX, img.StartY = 0, 0
	img.EndX, img.EndY = naxis1, naxis2
	_, hasWindow := h.Int("startX")
	if hasWindow {
		img.StartX, _ = h.Int("startX")
		img.StartY, _ = h.Int("startY")
		if v, ok := h.Int("endX"); ok {
			img.EndX = v
		} else {
			img.EndX = img.StartX + naxis1
		}
		if v, ok := h.Int("endY"); ok {
			img.EndY = v
		} else {
			img.EndY = img.StartY + naxis2
		}
	}
	if img.EndX <= img.StartX || img.EndY <= img.StartY {
		return fmt.Errorf("%w: empty sub-window x=[%d,%d) y=[%d,%d)",
			photerr.ErrGeometry, img.StartX, img.EndX, img.StartY, img.EndY)
	}

	if s, ok := h.String("FILTER"); ok && s != "" {
		f, err := ParseFilter(s)
		if err != nil {
			return fmt.Errorf("%w: %v", photerr.ErrHeader, err)
		}
		img.filter = f
	} else if q := QuadrantFromFilename(img.Name); q != QuadrantUnknown {
		img.filter = q.Filter()
	} else if hasWindow {
		img.filter = img.Quadrant().Filter()
	}

	if hasWindow && img.filter != FilterUnknown && !img.filter.IsNearIR() {
		q := img.Quadrant()
		if q.Filter() != img.filter {
			return fmt.Errorf("%w: filter %s does not match quadrant %s (startX=%d startY=%d)",
				photerr.ErrGeometry, img.filter, q, img.StartX, img.StartY)
		}
	}
	return nil
}

func readPixels(hdu fitsio.Image, bitpix int, h *Header) ([]float32, error) {
	bscale := 1.0
	if v, ok := h.Float("BSCALE"); ok {
		bscale = v
	}
	bzero, _ := h.Float("BZERO")
	scale := func(v float64) float32 { return float32(v*bscale + bzero) }

	var out []float32
	switch bitpix {
	case 8:
		var raw []byte
		if err := hdu.Read(&raw); err != nil {
			return nil, fmt.Errorf("%w: reading 8-bit pixel data: %v", photerr.ErrHeader, err)
		}
		out = make([]float32, len(raw))
		for i, v := range raw {
			out[i] = scale(float64(v))
		}
	case 16:
		var raw []int16
		if err := hdu.Read(&raw); err != nil {
			return nil, fmt.Errorf("%w: reading 16-bit pixel data: %v", photerr.ErrHeader, err)
		}
		out = make([]float32, len(raw))
		for i, v := range raw {
			out[i] = scale(float64(v))
		}
	case 32:
		var raw []int32
		if err := hdu.Read(&raw); err != nil {
			return nil, fmt.Errorf("%w: reading 32-bit pixel data: %v", photerr.ErrHeader, err)
		}
		out = make([]float32, len(raw))
		for i, v := range raw {
			out[i] = scale(float64(v))
		}
	case -32:
		var raw []float32
		if err := hdu.Read(&raw); err != nil {
			return nil, fmt.Errorf("%w: reading float pixel data: %v", photerr.ErrHeader, err)
		}
		out = raw
		if bscale != 1 || bzero != 0 {
			for i, v := range raw {
				out[i] = scale(float64(v))
			}
		}
	case -64:
		var raw []float64
		if err := hdu.Read(&raw); err != nil {
			return nil, fmt.Errorf("%w: reading double pixel data: %v", photerr.ErrHeader, err)
		}
		out = make([]float32, len(raw))
		for i, v := range raw {
			out[i] = scale(v)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported BITPIX %d", photerr.ErrHeader, bitpix)
	}
	return out, nil
}

// fitPixels truncates or zero-pads a srcRows x srcCols grid to rows x cols.
func fitPixels(src []float32, srcRows, srcCols, rows, cols int) Mat {
	m := NewMatWithSize(rows, cols)
	dst := m.DataFloat32()
	for i := range dst[:rows*cols] {
		dst[i] = 0
	}
	nr := min(rows, srcRows)
	nc := min(cols, srcCols)
	for r := 0; r < nr; r++ {
		if (r+1)*srcCols > len(src) {
			break
		}
		copy(dst[r*cols:r*cols+nc], src[r*srcCols:r*srcCols+nc])
	}
	return m
}
