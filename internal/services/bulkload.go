package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/vvka-141/pgdal/internal/compression"
	"github.com/vvka-141/pgdal/internal/db"
	"github.com/vvka-141/pgdal/internal/files/filesystem"
	"github.com/vvka-141/pgdal/pkg/pgdal"
)

// CopySessionFactory opens a dedicated, unpooled session for one bulk copy.
type CopySessionFactory func(ctx context.Context, cfg *pgdal.ConnectionConfig) (pgdal.CopySession, error)

// DirectCopySessions opens each session with db.StandardConnector.ConnectSingle.
func DirectCopySessions(logger pgdal.Logger) CopySessionFactory {
	return func(ctx context.Context, cfg *pgdal.ConnectionConfig) (pgdal.CopySession, error) {
		connector, err := db.NewConnector(cfg, logger)
		if err != nil {
			return nil, err
		}
		conn, err := connector.ConnectSingle(ctx)
		if err != nil {
			connector.Close()
			return nil, err
		}
		return &directSession{ConnAdapter: db.NewConnAdapter(conn), connector: connector}, nil
	}
}

// directSession also releases the connector that opened it.
type directSession struct {
	*db.ConnAdapter
	connector *db.StandardConnector
}

func (s *directSession) Close(ctx context.Context) error {
	err := s.ConnAdapter.Close(ctx)
	if cerr := s.connector.Close(); err == nil {
		err = cerr
	}
	return err
}

// BulkLoader streams CSV files into existing tables with COPY.
// It never shares a session with QueryExecutor.
type BulkLoader struct {
	fs       filesystem.FileSystemProvider
	sessions CopySessionFactory
	logger   pgdal.Logger
}

// NewBulkLoader creates a BulkLoader.
// Panics if any dependency is nil.
func NewBulkLoader(fsProvider filesystem.FileSystemProvider, sessions CopySessionFactory, logger pgdal.Logger) *BulkLoader {
	if fsProvider == nil {
		panic("fsProvider cannot be nil")
	}
	if sessions == nil {
		panic("sessions cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &BulkLoader{fs: fsProvider, sessions: sessions, logger: logger}
}

// LoadCSV copies the file at path into ref and returns the number of rows
// copied. Files ending in .gz, .bz2, .xz or .zst are decompressed on the fly.
//
// The copy runs in one transaction: on any failure it is rolled back before
// the session closes, so none of the file's rows become visible. The table
// must already exist.
func (l *BulkLoader) LoadCSV(ctx context.Context, path string, ref pgdal.TableRef, cfg *pgdal.ConnectionConfig) (int64, error) {
	if err := ref.Validate(); err != nil {
		return 0, err
	}

	file, err := l.fs.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("csv file %s: %w: %w", path, pgdal.ErrNotFound, err)
		}
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	codec := compression.Detect(path)
	reader, err := compression.NewReader(file, codec)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s as %s: %w: %w", path, codec, pgdal.ErrValidation, err)
	}
	defer reader.Close()

	session, err := l.sessions(ctx, cfg)
	if err != nil {
		if errors.Is(err, pgdal.ErrInvalidConfig) || errors.Is(err, pgdal.ErrConnectionFailed) {
			return 0, fmt.Errorf("bulk load into %s: %w", ref, err)
		}
		return 0, fmt.Errorf("bulk load into %s: %w: %w", ref, pgdal.ErrConnectionFailed, err)
	}
	defer func() {
		if cerr := session.Close(ctx); cerr != nil {
			l.logger.Verbose("Closing copy session: %v", cerr)
		}
	}()

	tx, err := session.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("bulk load into %s: failed to begin transaction: %w: %w", ref, db.Classify(err), err)
	}

	l.logger.Verbose("Copying %s (%s) into %s", path, codec, ref)
	tag, err := tx.CopyFrom(ctx, reader, fmt.Sprintf(queryCopyCSV, ref.Sanitize()))
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			l.logger.Verbose("Rollback after failed copy: %v", rbErr)
		}
		return 0, fmt.Errorf("bulk load %s into %s: %w: %w", path, ref, db.Classify(err), err)
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return 0, fmt.Errorf("bulk load %s into %s: commit failed: %w: %w", path, ref, db.Classify(err), err)
	}

	rows := tag.RowsAffected()
	l.logger.Verbose("Copied %d row(s) into %s", rows, ref)
	return rows, nil
}
