package store

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Compactor writes a compacted copy of source to dest. dest must not exist.
type Compactor interface {
	Compact(ctx context.Context, source Target, dest string) error
}

// VacuumCompactor compacts with SQLite's VACUUM INTO on a fresh connection.
type VacuumCompactor struct {
	Opener Opener
}

// Compact implements Compactor.
func (c VacuumCompactor) Compact(ctx context.Context, source Target, dest string) error {
	opener := c.Opener
	if opener == nil {
		opener = SQLiteOpener{}
	}
	conn, err := opener.Open(ctx, source)
	if err != nil {
		return fmt.Errorf("compact: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return fmt.Errorf("compact %s into %s: %w", source.Path, dest, err)
	}
	return nil
}

// CompactRepair compacts the store's database into newPath and then
// replaces the original file with the compacted one. It reports false on any
// failure, including a panic inside the compactor, and the original file is
// left in place. newPath must not exist.
func (s *Store) CompactRepair(ctx context.Context, newPath string) bool {
	return s.Compact(ctx, newPath) == nil
}

// Compact is CompactRepair with the failure cause returned. A panicking
// compactor is reported as an error.
func (s *Store) Compact(ctx context.Context, newPath string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("compaction panicked", "target", s.target.Path, "panic", r)
			err = fmt.Errorf("compaction panicked: %v", r)
		}
	}()

	if err := s.compactRepair(ctx, newPath); err != nil {
		s.logger.Error("compaction failed", "target", s.target.Path, "dest", newPath, "error", err)
		return err
	}
	s.logger.Info("database compacted", "target", s.target.Path)
	return nil
}

func (s *Store) compactRepair(ctx context.Context, newPath string) error {
	if newPath == "" {
		return errors.New("destination path is required")
	}
	if newPath == s.target.Path {
		return errors.New("destination must differ from the database file")
	}
	if _, err := os.Stat(s.target.Path); err != nil {
		return fmt.Errorf("stat database: %w", err)
	}

	if err := s.compactor.Compact(ctx, s.target, newPath); err != nil {
		return err
	}
	if _, err := os.Stat(newPath); err != nil {
		return fmt.Errorf("compacted file missing: %w", err)
	}
	if err := os.Rename(newPath, s.target.Path); err != nil {
		return fmt.Errorf("replace database: %w", err)
	}
	return nil
}
