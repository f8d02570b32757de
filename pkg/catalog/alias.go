package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"remphot/internal/logger"
	"remphot/pkg/photerr"
)

// Alias is an alternative name for a catalog object.
type Alias struct {
	Alias   string
	ObjName string
	Source  string
	// UserEntered distinguishes hand-entered aliases from imported ones.
	UserEntered bool
}

// AddAlias attaches alias to the object name resolves to.
func (s *Store) AddAlias(ctx context.Context, name string, a Alias) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		canon, err := resolve(tx, name)
		if err != nil {
			return err
		}
		used, err := nameInUse(tx, a.Alias)
		if err != nil {
			return err
		}
		if used {
			return fmt.Errorf("%w: alias %q", photerr.ErrDuplicate, a.Alias)
		}
		row := aliasRow{Alias: a.Alias, ObjName: canon, Source: a.Source, SBOK: a.UserEntered}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("inserting alias %q: %w", a.Alias, err)
		}
		logger.L.Info("added alias", zap.String("alias", a.Alias), zap.String("object", canon))
		return nil
	})
}

// DeleteAlias removes a single alias.
func (s *Store) DeleteAlias(ctx context.Context, alias string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("alias = ?", alias).Delete(&aliasRow{})
		if res.Error != nil {
			return fmt.Errorf("deleting alias %q: %w", alias, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: alias %q", photerr.ErrNotFound, alias)
		}
		return nil
	})
}

// RenameAlias replaces alias oldName by newName, keeping its owner.
func (s *Store) RenameAlias(ctx context.Context, oldName, newName string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row aliasRow
		err := tx.Where("alias = ?", oldName).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: alias %q", photerr.ErrNotFound, oldName)
		}
		if err != nil {
			return fmt.Errorf("loading alias %q: %w", oldName, err)
		}
		used, err := nameInUse(tx, newName)
		if err != nil {
			return err
		}
		if used {
			return fmt.Errorf("%w: alias %q", photerr.ErrDuplicate, newName)
		}
		if err := tx.Where("alias = ?", oldName).Delete(&aliasRow{}).Error; err != nil {
			return fmt.Errorf("deleting alias %q: %w", oldName, err)
		}
		row.Alias = newName
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("inserting alias %q: %w", newName, err)
		}
		return nil
	})
}

// Aliases lists the aliases of the object name resolves to.
func (s *Store) Aliases(ctx context.Context, name string) ([]Alias, error) {
	db := s.db.WithContext(ctx)
	canon, err := resolve(db, name)
	if err != nil {
		return nil, err
	}
	var rows []aliasRow
	if err := db.Where("objname = ?", canon).Order("alias").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing aliases of %q: %w", canon, err)
	}
	out := make([]Alias, len(rows))
	for i, r := range rows {
		out[i] = Alias{Alias: r.Alias, ObjName: r.ObjName, Source: r.Source, UserEntered: r.SBOK}
	}
	return out, nil
}
