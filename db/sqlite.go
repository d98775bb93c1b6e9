package db

import (
	"embed"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

type SqliteStore struct {
	DB *sqlx.DB
}

func NewSqliteStore(dsn string) (*SqliteStore, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &SqliteStore{DB: db}, nil
}

func (s *SqliteStore) ApplyMigrations(migrations embed.FS) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect(string(goose.DialectSQLite3)); err != nil {
		return err
	}

	return goose.Up(s.DB.DB, ".")
}

func (s *SqliteStore) RecordPlay(rec PlayRecord) error {
	_, err := s.DB.NamedExec(`
	  INSERT INTO play_log (id, media_id, src, kind, started_at, ended_at)
	  VALUES (:id, :media_id, :src, :kind, :started_at, :ended_at)`,
		rec)
	return err
}

func (s *SqliteStore) RecentPlays(limit int) ([]PlayRecord, error) {
	records := []PlayRecord{}
	err := s.DB.Select(&records, `
	  SELECT id, media_id, src, kind, started_at, ended_at
	  FROM play_log
	  ORDER BY ended_at DESC
	  LIMIT ?`, limit)
	return records, err
}

func (s *SqliteStore) Close() error {
	return s.DB.Close()
}
