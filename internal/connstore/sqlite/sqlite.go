// Package sqlite implements connstore.Store against SQLite, grounded on the
// teacher's internal/store/sqlite3 package.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rakunlabs/at/internal/connstore"
	atcrypto "github.com/rakunlabs/at/internal/crypto"
	"github.com/rakunlabs/at/internal/dsal/connection"
	"github.com/rakunlabs/at/internal/dsalconfig"

	_ "modernc.org/sqlite"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"
)

var DefaultTablePrefix = "dsal_"

type Store struct {
	db   *sql.DB
	goqu *goqu.Database

	table exp.IdentifierExpression

	encKey   []byte
	encKeyMu sync.RWMutex
}

func New(ctx context.Context, cfg *dsalconfig.StoreSQLite, encKey []byte) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("sqlite configuration is nil")
	}
	if cfg.Datasource == "" {
		return nil, errors.New("sqlite datasource is required")
	}

	tablePrefix := DefaultTablePrefix
	if cfg.TablePrefix != nil {
		tablePrefix = *cfg.TablePrefix
	}

	migrate := cfg.Migrate
	if migrate.Table == "" {
		migrate.Table = "migrations"
	}
	if migrate.Datasource == "" {
		migrate.Datasource = cfg.Datasource
	}
	migrate.Table = tablePrefix + migrate.Table
	if migrate.Values == nil {
		migrate.Values = make(map[string]string)
	}
	migrate.Values["TABLE_PREFIX"] = tablePrefix

	if err := MigrateDB(ctx, &migrate); err != nil {
		return nil, fmt.Errorf("migrate connstore sqlite: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.Datasource)
	if err != nil {
		return nil, fmt.Errorf("open sqlite connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	slog.Info("connected to connstore sqlite")

	return &Store{
		db:     db,
		goqu:   goqu.New("sqlite3", db),
		table:  goqu.T(tablePrefix + "dsal_connections"),
		encKey: encKey,
	}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			slog.Error("close connstore sqlite connection", "error", err)
		}
	}
}

type connectionRow struct {
	ID        string `db:"id"`
	ProjectID string `db:"project_id"`
	Record    string `db:"record"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func (s *Store) ListRecords(ctx context.Context, projectID string) ([]connection.Record, error) {
	ds := s.goqu.From(s.table).Select("id", "project_id", "record", "created_at", "updated_at")
	if projectID != "" {
		ds = ds.Where(goqu.I("project_id").Eq(projectID))
	}
	query, _, err := ds.Order(goqu.I("created_at").Asc()).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list connection records: %w", err)
	}
	defer rows.Close()

	key := s.currentKey()

	var out []connection.Record
	for rows.Next() {
		var row connectionRow
		if err := rows.Scan(&row.ID, &row.ProjectID, &row.Record, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan connection row: %w", err)
		}
		rec, err := rowToRecord(row, key)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *Store) GetRecord(ctx context.Context, id string) (*connection.Record, error) {
	query, _, err := s.goqu.From(s.table).
		Select("id", "project_id", "record", "created_at", "updated_at").
		Where(goqu.I("id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get query: %w", err)
	}

	var row connectionRow
	err = s.db.QueryRowContext(ctx, query).Scan(&row.ID, &row.ProjectID, &row.Record, &row.CreatedAt, &row.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, connstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get connection record %q: %w", id, err)
	}

	return rowToRecord(row, s.currentKey())
}

func (s *Store) CreateRecord(ctx context.Context, projectID string, rec connection.Record) error {
	if rec.ID == "" {
		rec.ID = ulid.Make().String()
	}

	stored, err := encryptRecord(rec, s.currentKey())
	if err != nil {
		return fmt.Errorf("encrypt record: %w", err)
	}

	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)

	query, _, err := s.goqu.Insert(s.table).Rows(goqu.Record{
		"id":            rec.ID,
		"project_id":    projectID,
		"provider_type": rec.ProviderType,
		"access_method": rec.AccessMethod,
		"name":          rec.Name,
		"record":        string(payload),
		"created_at":    now,
		"updated_at":    now,
	}).ToSQL()
	if err != nil {
		return fmt.Errorf("build insert query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create connection record %q: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) UpdateRecord(ctx context.Context, id string, rec connection.Record) error {
	stored, err := encryptRecord(rec, s.currentKey())
	if err != nil {
		return fmt.Errorf("encrypt record: %w", err)
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	query, _, err := s.goqu.Update(s.table).Set(goqu.Record{
		"name":       rec.Name,
		"record":     string(payload),
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}).Where(goqu.I("id").Eq(id)).ToSQL()
	if err != nil {
		return fmt.Errorf("build update query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("update connection record %q: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return connstore.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateAuth(ctx context.Context, id string, auth *connection.AuthRecord) error {
	rec, err := s.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	rec.Auth = auth
	return s.UpdateRecord(ctx, id, *rec)
}

func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	query, _, err := s.goqu.Delete(s.table).Where(goqu.I("id").Eq(id)).ToSQL()
	if err != nil {
		return fmt.Errorf("build delete query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("delete connection record %q: %w", id, err)
	}
	return nil
}

func (s *Store) currentKey() []byte {
	s.encKeyMu.RLock()
	defer s.encKeyMu.RUnlock()
	return s.encKey
}

// SetEncryptionKey updates the in-memory key without re-encrypting existing
// rows, mirroring the teacher's peer key-rotation broadcast handling.
func (s *Store) SetEncryptionKey(key []byte) {
	s.encKeyMu.Lock()
	s.encKey = key
	s.encKeyMu.Unlock()
}

func rowToRecord(row connectionRow, key []byte) (*connection.Record, error) {
	var rec connection.Record
	if err := json.Unmarshal([]byte(row.Record), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal connection record %q: %w", row.ID, err)
	}
	decrypted, err := decryptRecord(rec, key)
	if err != nil {
		return nil, fmt.Errorf("decrypt connection record %q: %w", row.ID, err)
	}
	return &decrypted, nil
}

func encryptRecord(rec connection.Record, key []byte) (connection.Record, error) {
	return atcrypto.EncryptConnectionRecord(rec, key)
}

func decryptRecord(rec connection.Record, key []byte) (connection.Record, error) {
	return atcrypto.DecryptConnectionRecord(rec, key)
}
