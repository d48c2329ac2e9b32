// Package store persists directory history and small settings in sqlite.
package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/justyntemme/salpanel/internal/debug"
	"github.com/justyntemme/salpanel/internal/logging"
)

type EventType int

const (
	FetchHistory EventType = iota
	SaveHistory
	RemoveHistory
	ClearHistory
	FetchSettings
	SaveSetting
)

// HistoryRecord is one persisted directory history entry.
type HistoryRecord struct {
	Kind      int
	Primary   string
	Secondary string
	TopIndex  int
	FocusName string
	UpdatedAt time.Time
}

type Request struct {
	Op     EventType
	Record HistoryRecord
	Limit  int
	Key    string
	Value  string
}

type Response struct {
	Op       EventType
	History  []HistoryRecord   // most recent first
	Settings map[string]string // Key-value settings
	Err      error
}

// DB serialises writes through RequestChan; Start runs the worker.
type DB struct {
	conn         *sql.DB
	RequestChan  chan Request
	ResponseChan chan Response
	wg           sync.WaitGroup
}

func NewDB() *DB {
	return &DB{
		RequestChan:  make(chan Request, 32),
		ResponseChan: make(chan Response, 10),
	}
}

// Open initializes the database connection and schema
func (d *DB) Open(dbPath string) error {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	// one connection keeps ":memory:" databases alive and writes ordered
	db.SetMaxOpenConns(1)

	// WAL mode allows simultaneous readers and writers
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return err
	}
	// Synchronous NORMAL is safe against app crashes, faster than FULL
	if _, err := db.Exec("PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return err
	}

	historyQuery := `
	CREATE TABLE IF NOT EXISTS history (
		kind INTEGER NOT NULL,
		primary_path TEXT NOT NULL,
		secondary_path TEXT NOT NULL DEFAULT '',
		top_index INTEGER NOT NULL DEFAULT 0,
		focus_name TEXT NOT NULL DEFAULT '',
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (kind, primary_path, secondary_path)
	);
	`
	if _, err := db.Exec(historyQuery); err != nil {
		db.Close()
		return err
	}

	settingsQuery := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := db.Exec(settingsQuery); err != nil {
		db.Close()
		return err
	}

	d.conn = db
	debug.Log(debug.STORE, "Open: %s", dbPath)
	return nil
}

// Start runs the worker, which processes requests until Close.
func (d *DB) Start() {
	d.wg.Add(1)
	go d.loop()
}

func (d *DB) loop() {
	defer d.wg.Done()
	for req := range d.RequestChan {
		switch req.Op {
		case FetchHistory:
			d.ResponseChan <- d.handleFetchHistory(req.Limit)
		case SaveHistory:
			d.report("saving history", d.SaveHistoryRecord(req.Record))
		case RemoveHistory:
			d.report("removing history", d.RemoveHistoryRecord(req.Record))
		case ClearHistory:
			_, err := d.conn.Exec("DELETE FROM history")
			d.report("clearing history", err)
		case FetchSettings:
			d.ResponseChan <- d.handleFetchSettings()
		case SaveSetting:
			d.report("saving setting", d.SaveSettingValue(req.Key, req.Value))
		}
	}
}

func (d *DB) report(what string, err error) {
	if err != nil {
		logging.Named("store").Error("store error", zap.String("op", what), zap.Error(err))
	}
}

// SaveHistoryRecord upserts r, bumping its timestamp.
func (d *DB) SaveHistoryRecord(r HistoryRecord) error {
	_, err := d.conn.Exec(`INSERT INTO history (kind, primary_path, secondary_path, top_index, focus_name, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, primary_path, secondary_path)
		DO UPDATE SET top_index = excluded.top_index, focus_name = excluded.focus_name, updated_at = excluded.updated_at`,
		r.Kind, r.Primary, r.Secondary, r.TopIndex, r.FocusName, time.Now().UTC())
	return err
}

// RemoveHistoryRecord deletes the entry matching r's key.
func (d *DB) RemoveHistoryRecord(r HistoryRecord) error {
	_, err := d.conn.Exec("DELETE FROM history WHERE kind = ? AND primary_path = ? AND secondary_path = ?",
		r.Kind, r.Primary, r.Secondary)
	return err
}

// LoadHistory returns up to limit entries, most recent first.
func (d *DB) LoadHistory(limit int) ([]HistoryRecord, error) {
	resp := d.handleFetchHistory(limit)
	return resp.History, resp.Err
}

func (d *DB) handleFetchHistory(limit int) Response {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.conn.Query(`SELECT kind, primary_path, secondary_path, top_index, focus_name, updated_at
		FROM history ORDER BY updated_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return Response{Op: FetchHistory, Err: err}
	}
	defer rows.Close()

	var out []HistoryRecord
	for rows.Next() {
		var r HistoryRecord
		if err := rows.Scan(&r.Kind, &r.Primary, &r.Secondary, &r.TopIndex, &r.FocusName, &r.UpdatedAt); err == nil {
			out = append(out, r)
		}
	}
	return Response{Op: FetchHistory, History: out, Err: rows.Err()}
}

// Settings returns all stored settings.
func (d *DB) Settings() (map[string]string, error) {
	resp := d.handleFetchSettings()
	return resp.Settings, resp.Err
}

func (d *DB) handleFetchSettings() Response {
	rows, err := d.conn.Query("SELECT key, value FROM settings")
	if err != nil {
		return Response{Op: FetchSettings, Err: err}
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err == nil {
			settings[key] = value
		}
	}
	return Response{Op: FetchSettings, Settings: settings}
}

// SaveSettingValue upserts a setting.
func (d *DB) SaveSettingValue(key, value string) error {
	_, err := d.conn.Exec("INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", key, value)
	return err
}

// Queued is a history persister that hands writes to the worker, so
// callers never wait on the disk. Reads go straight to the database.
type Queued struct {
	DB *DB
}

func (q Queued) SaveHistoryRecord(r HistoryRecord) error {
	q.DB.RequestChan <- Request{Op: SaveHistory, Record: r}
	return nil
}

func (q Queued) RemoveHistoryRecord(r HistoryRecord) error {
	q.DB.RequestChan <- Request{Op: RemoveHistory, Record: r}
	return nil
}

func (q Queued) LoadHistory(limit int) ([]HistoryRecord, error) {
	return q.DB.LoadHistory(limit)
}

// Close stops the worker (if running) and closes the database.
func (d *DB) Close() {
	close(d.RequestChan)
	d.wg.Wait()
	if d.conn != nil {
		d.conn.Close()
	}
}
