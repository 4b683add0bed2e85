package updatelog

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/didi/gendry/builder"
	_ "github.com/lib/pq"

	"github.com/xxxsen/thoughtspace/internal/pkg/dbutil"
)

type postgresConfig struct {
	DSN string `json:"dsn"`
}

// postgresLog keeps the permission update log in an append-only table,
// base64 payload column, replayed in insertion order.
type postgresLog struct {
	db *sql.DB
}

const createUpdatesTable = `
CREATE TABLE IF NOT EXISTS permission_updates (
	id BIGSERIAL PRIMARY KEY,
	docid TEXT NOT NULL,
	update_b64 TEXT NOT NULL,
	ctime BIGINT NOT NULL
)`

func init() {
	Register("postgres", createPostgresLog)
}

func createPostgresLog(args interface{}) (Log, error) {
	config := &postgresConfig{}
	if err := decodeConfig(args, config); err != nil {
		return nil, err
	}
	if config.DSN == "" {
		return nil, fmt.Errorf("postgres log dsn is required")
	}
	db, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return NewPostgres(db)
}

func NewPostgres(db *sql.DB) (Log, error) {
	if _, err := db.Exec(createUpdatesTable); err != nil {
		return nil, fmt.Errorf("create permission_updates: %w", err)
	}
	return &postgresLog{db: db}, nil
}

func (l *postgresLog) Load(ctx context.Context) ([]Record, error) {
	where := map[string]interface{}{"_orderby": "id asc"}
	sqlStr, args, err := builder.BuildSelect("permission_updates", where, []string{"docid", "update_b64"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := l.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []Record
	for rows.Next() {
		var docID, payload string
		if err := rows.Scan(&docID, &payload); err != nil {
			return nil, err
		}
		update, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("decode log payload: %w", err)
		}
		records = append(records, Record{DocID: docID, Update: update})
	}
	return records, rows.Err()
}

func (l *postgresLog) Append(ctx context.Context, rec Record) error {
	sqlStr, args, err := builder.BuildInsert("permission_updates", []map[string]interface{}{insertData(rec)})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = l.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (l *postgresLog) Replace(ctx context.Context, recs []Record) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "DELETE FROM permission_updates"); err != nil {
		return err
	}
	for _, rec := range recs {
		sqlStr, args, err := builder.BuildInsert("permission_updates", []map[string]interface{}{insertData(rec)})
		if err != nil {
			return err
		}
		sqlStr, args = dbutil.Finalize(sqlStr, args)
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertData(rec Record) map[string]interface{} {
	return map[string]interface{}{
		"docid":      rec.DocID,
		"update_b64": base64.StdEncoding.EncodeToString(rec.Update),
		"ctime":      time.Now().Unix(),
	}
}
