// Package catalog gives access to the object catalog and the observation
// history kept alongside it.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"remphot/internal/logger"
	"remphot/pkg/photerr"
)

// Store is the relational catalog. Each method runs in its own
// transaction and commits before returning.
type Store struct {
	db *gorm.DB
}

// Open opens or creates the SQLite catalog at path and migrates its schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %w", path, err)
	}
	if err := db.AutoMigrate(allModels()...); err != nil {
		return nil, fmt.Errorf("migrating catalog: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Resolve returns the canonical name for name, which may be a canonical
// name or an alias. Case-insensitive matches that lead to more than one
// object are ambiguous.
func (s *Store) Resolve(ctx context.Context, name string) (string, error) {
	return resolve(s.db.WithContext(ctx), name)
}

func resolve(db *gorm.DB, name string) (string, error) {
	var n int64
	if err := db.Model(&objRow{}).Where("objname = ?", name).Count(&n).Error; err != nil {
		return "", fmt.Errorf("resolving %q: %w", name, err)
	}
	if n > 0 {
		return name, nil
	}

	owners := make(map[string]struct{})
	var canon []string
	if err := db.Model(&objRow{}).Where("LOWER(objname) = LOWER(?)", name).Pluck("objname", &canon).Error; err != nil {
		return "", fmt.Errorf("resolving %q: %w", name, err)
	}
	for _, c := range canon {
		owners[c] = struct{}{}
	}
	var viaAlias []string
	if err := db.Model(&aliasRow{}).Where("LOWER(alias) = LOWER(?)", name).Pluck("objname", &viaAlias).Error; err != nil {
		return "", fmt.Errorf("resolving %q: %w", name, err)
	}
	for _, c := range viaAlias {
		owners[c] = struct{}{}
	}

	switch len(owners) {
	case 0:
		return "", fmt.Errorf("%w: object %q", photerr.ErrNotFound, name)
	case 1:
		for c := range owners {
			return c, nil
		}
	}
	names := make([]string, 0, len(owners))
	for c := range owners {
		names = append(names, c)
	}
	sort.Strings(names)
	return "", fmt.Errorf("%w: %q matches %s", photerr.ErrAmbiguous, name, strings.Join(names, ", "))
}

// Get resolves name and loads the object.
func (s *Store) Get(ctx context.Context, name string) (Object, error) {
	db := s.db.WithContext(ctx)
	canon, err := resolve(db, name)
	if err != nil {
		return Object{}, err
	}
	return getCanonical(db, canon)
}

func getCanonical(db *gorm.DB, canon string) (Object, error) {
	var row objRow
	err := db.Where("objname = ?", canon).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Object{}, fmt.Errorf("%w: object %q", photerr.ErrNotFound, canon)
	}
	if err != nil {
		return Object{}, fmt.Errorf("loading %q: %w", canon, err)
	}
	return row.toObject(), nil
}

// ObjectsInVicinity returns every object grouped with the vicinity that
// name belongs to, the target first and the rest by name. When epoch is
// non-nil positions are carried forward by proper motion.
func (s *Store) ObjectsInVicinity(ctx context.Context, name string, epoch *time.Time) ([]Object, error) {
	db := s.db.WithContext(ctx)
	canon, err := resolve(db, name)
	if err != nil {
		return nil, err
	}
	obj, err := getCanonical(db, canon)
	if err != nil {
		return nil, err
	}
	vicinity := obj.Vicinity
	if vicinity == "" {
		vicinity = obj.Name
	}

	var rows []objRow
	if err := db.Where("vicinity = ?", vicinity).Order("objname").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading vicinity %q: %w", vicinity, err)
	}

	out := make([]Object, 0, len(rows))
	targetAt := -1
	for _, r := range rows {
		o := r.toObject()
		if epoch != nil {
			o = o.At(*epoch)
		}
		if o.IsTarget() {
			targetAt = len(out)
		}
		out = append(out, o)
	}
	if targetAt < 0 {
		return nil, fmt.Errorf("%w: vicinity %q has no target", photerr.ErrNotFound, vicinity)
	}
	if targetAt > 0 {
		target := out[targetAt]
		copy(out[1:targetAt+1], out[:targetAt])
		out[0] = target
	}
	return out, nil
}

// PutObject inserts a new object. Its name must not already be in use as a
// canonical name or alias.
func (s *Store) PutObject(ctx context.Context, o Object) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		used, err := nameInUse(tx, o.Name)
		if err != nil {
			return err
		}
		if used {
			return fmt.Errorf("%w: %q", photerr.ErrDuplicate, o.Name)
		}
		row := rowFromObject(&o)
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("inserting %q: %w", o.Name, err)
		}
		return nil
	})
}

// UpdateObject rewrites every attribute of an existing object.
func (s *Store) UpdateObject(ctx context.Context, o Object) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getCanonical(tx, o.Name); err != nil {
			return err
		}
		row := rowFromObject(&o)
		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("updating %q: %w", o.Name, err)
		}
		return nil
	})
}

// DeleteObject removes an object and all its aliases.
func (s *Store) DeleteObject(ctx context.Context, name string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		canon, err := resolve(tx, name)
		if err != nil {
			return err
		}
		if err := tx.Where("objname = ?", canon).Delete(&aliasRow{}).Error; err != nil {
			return fmt.Errorf("deleting aliases of %q: %w", canon, err)
		}
		if err := tx.Where("objname = ?", canon).Delete(&objRow{}).Error; err != nil {
			return fmt.Errorf("deleting %q: %w", canon, err)
		}
		logger.L.Info("deleted catalog object", zap.String("name", canon))
		return nil
	})
}

// NameInUse reports whether name is taken by a canonical name or an alias.
func (s *Store) NameInUse(ctx context.Context, name string) (bool, error) {
	return nameInUse(s.db.WithContext(ctx), name)
}

func nameInUse(db *gorm.DB, name string) (bool, error) {
	var n int64
	if err := db.Model(&objRow{}).Where("LOWER(objname) = LOWER(?)", name).Count(&n).Error; err != nil {
		return false, fmt.Errorf("checking name %q: %w", name, err)
	}
	if n > 0 {
		return true, nil
	}
	if err := db.Model(&aliasRow{}).Where("LOWER(alias) = LOWER(?)", name).Count(&n).Error; err != nil {
		return false, fmt.Errorf("checking name %q: %w", name, err)
	}
	return n > 0, nil
}
