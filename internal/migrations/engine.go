package migrations

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/db"
	"github.com/Arize-ai/phoenix-sub001/internal/logger"
)

const (
	// Head targets the latest revision in the chain.
	Head = "head"
	// Base means "no migrations applied".
	Base = "base"
)

// Revision is one link of the strictly linear migration chain. Parent is
// the prior revision's id, or "" for the first. Up and Down run inside the
// per-step transaction the engine opens; applying Up and then Down must
// restore the exact prior schema shape.
type Revision struct {
	ID     string
	Parent string
	Name   string
	Up     func(ctx context.Context, tx *gorm.DB, d db.Dialect) error
	Down   func(ctx context.Context, tx *gorm.DB, d db.Dialect) error
}

type Engine struct {
	svc       *db.Service
	log       *logger.Logger
	revisions []Revision
}

func NewEngine(svc *db.Service, baseLog *logger.Logger) *Engine {
	return &Engine{
		svc:       svc,
		log:       baseLog.With("component", "MigrationEngine"),
		revisions: All(),
	}
}

func (e *Engine) Revisions() []Revision { return e.revisions }

func (e *Engine) versionTable() string {
	if e.svc.Dialect() == db.Postgres && e.svc.SchemaName() != "" {
		return fmt.Sprintf("%q.migration_version", e.svc.SchemaName())
	}
	return "migration_version"
}

func (e *Engine) ensureVersionTable(tx *gorm.DB) error {
	return tx.Exec(fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (version_num VARCHAR(32) NOT NULL PRIMARY KEY)`,
		e.versionTable(),
	)).Error
}

// Current returns the recorded revision id, or Base when nothing has been
// applied yet.
func (e *Engine) Current(ctx context.Context) (string, error) {
	conn := e.svc.DB().WithContext(ctx)
	if err := e.ensureVersionTable(conn); err != nil {
		return "", fmt.Errorf("ensure version table: %w", err)
	}
	var version string
	err := conn.Raw(fmt.Sprintf(`SELECT version_num FROM %s`, e.versionTable())).Scan(&version).Error
	if err != nil {
		return "", fmt.Errorf("read version: %w", err)
	}
	if version == "" {
		return Base, nil
	}
	return version, nil
}

func (e *Engine) setVersion(tx *gorm.DB, version string) error {
	if err := tx.Exec(fmt.Sprintf(`DELETE FROM %s`, e.versionTable())).Error; err != nil {
		return err
	}
	if version == Base {
		return nil
	}
	return tx.Exec(fmt.Sprintf(`INSERT INTO %s (version_num) VALUES (?)`, e.versionTable()), version).Error
}

func (e *Engine) index(id string) (int, error) {
	for i, r := range e.revisions {
		if r.ID == id {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown revision %q", id)
}

// Upgrade walks forward from the recorded revision to target, applying each
// intermediate revision's Up inside its own transaction. target may be Head.
func (e *Engine) Upgrade(ctx context.Context, target string) error {
	if target == Head {
		target = e.revisions[len(e.revisions)-1].ID
	}
	current, err := e.Current(ctx)
	if err != nil {
		return err
	}
	from := -1
	if current != Base {
		if from, err = e.index(current); err != nil {
			return err
		}
	}
	to, err := e.index(target)
	if err != nil {
		return err
	}
	if to < from {
		return fmt.Errorf("target %s precedes current revision %s; use Downgrade", target, current)
	}
	for i := from + 1; i <= to; i++ {
		rev := e.revisions[i]
		e.log.Info("Applying migration", "revision", rev.ID, "name", rev.Name)
		if err := e.runStep(ctx, rev, "upgrade", rev.Up, rev.ID); err != nil {
			return err
		}
	}
	return nil
}

// runStep applies one revision's transform plus the version-pointer write in
// a single transaction. On SQLite, foreign keys are disabled around the
// step (table rebuilds drop and recreate referenced tables) and an explicit
// foreign_key_check guards the commit.
func (e *Engine) runStep(
	ctx context.Context,
	rev Revision,
	direction string,
	step func(context.Context, *gorm.DB, db.Dialect) error,
	resultVersion string,
) error {
	conn := e.svc.DB().WithContext(ctx)
	sqlite := e.svc.Dialect() == db.SQLite
	body := func(h *gorm.DB) error {
		return h.Transaction(func(tx *gorm.DB) error {
			if err := step(ctx, tx, e.svc.Dialect()); err != nil {
				return err
			}
			if sqlite {
				var violations []struct {
					Table string
					Rowid int64
				}
				if err := tx.Raw(`PRAGMA foreign_key_check`).Scan(&violations).Error; err != nil {
					return err
				}
				if len(violations) > 0 {
					return fmt.Errorf("foreign key check failed: %d violation(s), first in table %s", len(violations), violations[0].Table)
				}
			}
			return e.setVersion(tx, resultVersion)
		})
	}
	var err error
	if sqlite {
		// PRAGMA foreign_keys is per-connection and a no-op inside a
		// transaction. Pin one connection so the toggle and the
		// transaction are guaranteed to share it.
		err = conn.Connection(func(pinned *gorm.DB) error {
			if err := pinned.Exec(`PRAGMA foreign_keys = OFF`).Error; err != nil {
				return err
			}
			defer pinned.Exec(`PRAGMA foreign_keys = ON`)
			return body(pinned)
		})
	} else {
		err = body(conn)
	}
	if err != nil {
		return &MigrationError{Revision: rev.ID, Direction: direction, Err: err}
	}
	return nil
}

// Downgrade walks backward from the recorded revision, invoking each
// revision's Down in reverse order until target is the recorded revision.
// target may be Base, which removes all tracked schema.
func (e *Engine) Downgrade(ctx context.Context, target string) error {
	current, err := e.Current(ctx)
	if err != nil {
		return err
	}
	if current == Base {
		if target == Base {
			return nil
		}
		if _, err := e.index(target); err != nil {
			return err
		}
		return fmt.Errorf("target %s follows current revision %s; use Upgrade", target, current)
	}
	from, err := e.index(current)
	if err != nil {
		return err
	}
	to := -1
	if target != Base {
		if to, err = e.index(target); err != nil {
			return err
		}
	}
	if to > from {
		return fmt.Errorf("target %s follows current revision %s; use Upgrade", target, current)
	}
	for i := from; i > to; i-- {
		rev := e.revisions[i]
		e.log.Info("Reverting migration", "revision", rev.ID, "name", rev.Name)
		parent := Base
		if rev.Parent != "" {
			parent = rev.Parent
		}
		if err := e.runStep(ctx, rev, "downgrade", rev.Down, parent); err != nil {
			return err
		}
	}
	return nil
}
