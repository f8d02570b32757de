// Package photerr defines the error kinds returned by the photometry core.
//
// Operations wrap one of these sentinels with context, so callers
// classify failures with errors.Is.
package photerr

import "errors"

var (
	// ErrBoundary reports an aperture that would extend outside the image.
	ErrBoundary = errors.New("aperture outside image")
	// ErrNotFound reports a catalog lookup with no match.
	ErrNotFound = errors.New("not found")
	// ErrAmbiguous reports a catalog lookup with more than one match.
	ErrAmbiguous = errors.New("ambiguous name")
	// ErrDuplicate reports an attempt to write a name that already exists.
	ErrDuplicate = errors.New("duplicate name")
	// ErrHeader reports missing or unparsable FITS metadata.
	ErrHeader = errors.New("bad FITS header")
	// ErrBadPixels reports NaN or infinite pixels inside an aperture.
	ErrBadPixels = errors.New("non-finite pixels in aperture")
	// ErrGeometry reports FITS metadata that is internally inconsistent.
	ErrGeometry = errors.New("inconsistent image geometry")
	// ErrTargetMiss reports that no find result lies near the vicinity target.
	ErrTargetMiss = errors.New("target not found")
	// ErrSerialisation reports a document parse or write failure.
	ErrSerialisation = errors.New("serialisation error")
	// ErrFetch reports a failed archive fetch.
	ErrFetch = errors.New("fetch error")
	// ErrExists reports a refused overwrite of a persisted document.
	ErrExists = errors.New("document exists")
)
