package catalog

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"remphot/internal/logger"
	"remphot/pkg/photerr"
)

// RecordObservation inserts an observation and returns its index.
func (s *Store) RecordObservation(ctx context.Context, obs Observation) (uint, error) {
	obs.ObsDate = obs.ObsDate.UTC()
	if err := s.db.WithContext(ctx).Create(&obs).Error; err != nil {
		return 0, fmt.Errorf("recording observation: %w", err)
	}
	return obs.ObsInd, nil
}

// GetObservation loads an observation by index.
func (s *Store) GetObservation(ctx context.Context, obsind uint) (Observation, error) {
	var obs Observation
	err := s.db.WithContext(ctx).Where("obsind = ?", obsind).First(&obs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return obs, fmt.Errorf("%w: observation %d", photerr.ErrNotFound, obsind)
	}
	if err != nil {
		return obs, fmt.Errorf("loading observation %d: %w", obsind, err)
	}
	return obs, nil
}

// RecordFound replaces the found-object and ADU history of an observation.
// Any earlier not-found record for it is cleared.
func (s *Store) RecordFound(ctx context.Context, obsind uint, found []Identified, adus []ADUCalc) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&Identified{}, &ADUCalc{}, &NotFound{}} {
			if err := tx.Where("obsind = ?", obsind).Delete(model).Error; err != nil {
				return fmt.Errorf("clearing history of %d: %w", obsind, err)
			}
		}
		for i := range found {
			found[i].ObsInd = obsind
		}
		for i := range adus {
			adus[i].ObsInd = obsind
		}
		if len(found) > 0 {
			if err := tx.Create(&found).Error; err != nil {
				return fmt.Errorf("recording found objects: %w", err)
			}
		}
		if len(adus) > 0 {
			if err := tx.Create(&adus).Error; err != nil {
				return fmt.Errorf("recording ADU sums: %w", err)
			}
		}
		return nil
	})
}

// RecordNotFound notes that the target of an observation was missed.
func (s *Store) RecordNotFound(ctx context.Context, nf NotFound) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&nf).Error
	if err != nil {
		return fmt.Errorf("recording not-found for %d: %w", nf.ObsInd, err)
	}
	logger.L.Info("target not found",
		zap.Uint("obsind", nf.ObsInd),
		zap.String("object", nf.ObjName),
		zap.String("reason", nf.Reason))
	return nil
}

// FoundIn lists the objects identified in an observation.
func (s *Store) FoundIn(ctx context.Context, obsind uint) ([]Identified, error) {
	var rows []Identified
	if err := s.db.WithContext(ctx).Where("obsind = ?", obsind).Order("label").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading found objects of %d: %w", obsind, err)
	}
	return rows, nil
}

// NotFoundFor returns the not-found record of an observation.
func (s *Store) NotFoundFor(ctx context.Context, obsind uint) (NotFound, error) {
	var nf NotFound
	err := s.db.WithContext(ctx).Where("obsind = ?", obsind).First(&nf).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nf, fmt.Errorf("%w: not-found record %d", photerr.ErrNotFound, obsind)
	}
	return nf, err
}

// PutFITS stores the FITS data of an observation, compressing it unless it
// is already gzipped.
func (s *Store) PutFITS(ctx context.Context, obsind uint, raw []byte) error {
	blob, err := compress(raw)
	if err != nil {
		return err
	}
	row := fitsRow{ObsInd: obsind, Data: blob}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("storing FITS for %d: %w", obsind, err)
	}
	return nil
}

// FITSBlob returns the compressed FITS data of an observation.
func (s *Store) FITSBlob(ctx context.Context, obsind uint) ([]byte, error) {
	var row fitsRow
	err := s.db.WithContext(ctx).Where("obsind = ?", obsind).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: FITS for observation %d", photerr.ErrNotFound, obsind)
	}
	if err != nil {
		return nil, fmt.Errorf("loading FITS for %d: %w", obsind, err)
	}
	return row.Data, nil
}

// PutFlatBias stores a daily flat or bias frame.
func (s *Store) PutFlatBias(ctx context.Context, typ, filter string, date time.Time, raw []byte) error {
	blob, err := compress(raw)
	if err != nil {
		return err
	}
	row := FlatBias{Type: typ, Filter: filter, ObsDate: date.UTC(), Data: blob}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("storing %s frame: %w", typ, err)
	}
	return nil
}

// LatestFlatBias returns the most recent frame of the given type and
// filter taken no later than before.
func (s *Store) LatestFlatBias(ctx context.Context, typ, filter string, before time.Time) (FlatBias, error) {
	var row FlatBias
	err := s.db.WithContext(ctx).
		Where("typ = ? AND filter = ? AND obsdate <= ?", typ, filter, before.UTC()).
		Order("obsdate DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return row, fmt.Errorf("%w: %s frame for %s before %s", photerr.ErrNotFound, typ, filter, before.Format(time.RFC3339))
	}
	if err != nil {
		return row, fmt.Errorf("loading %s frame: %w", typ, err)
	}
	return row, nil
}

// Fetcher retrieves raw archival FITS data by relative path. Failures
// should wrap photerr.ErrFetch.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// ImportFITS fetches a FITS file from the archive and stores it against an
// observation.
func (s *Store) ImportFITS(ctx context.Context, f Fetcher, obsind uint, path string) error {
	raw, err := f.Fetch(ctx, path)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", path, err)
	}
	return s.PutFITS(ctx, obsind, raw)
}

func compress(raw []byte) ([]byte, error) {
	if bytes.HasPrefix(raw, []byte{0x1f, 0x8b}) {
		return raw, nil
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compressing FITS: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compressing FITS: %w", err)
	}
	return buf.Bytes(), nil
}
