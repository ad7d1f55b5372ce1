package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"toolcost/internal"
)

// RequiredFields identify a tool cost record. Together they are unique.
var RequiredFields = []string{
	"tool_type",
	"program_name",
	"part_name",
	"part_version",
	"quotation_date",
	"supplier_name",
}

var ErrDuplicateRecord = errors.New("record already exists")

type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "Missing required fields: " + strings.Join(e.Fields, ", ")
}

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS tool_cost (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  tool_type TEXT NOT NULL,
  program_name TEXT NOT NULL,
  part_name TEXT NOT NULL,
  part_version TEXT NOT NULL,
  quotation_date TEXT NOT NULL,
  supplier_name TEXT NOT NULL,
  data_json TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(tool_type, program_name, part_name, part_version, quotation_date, supplier_name)
);

CREATE TABLE IF NOT EXISTS emails (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS quotations (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  emailId INTEGER NOT NULL,
  source TEXT NOT NULL,
  filename TEXT NOT NULL,
  subject TEXT NOT NULL,
  sender TEXT,
  content TEXT NOT NULL,
  hash TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(emailId, filename, hash),
  FOREIGN KEY(emailId) REFERENCES emails(id)
);
CREATE INDEX IF NOT EXISTS idx_quotations_subject ON quotations(subject);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  emailId INTEGER,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(emailId) REFERENCES emails(id)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// SaveToolCost stores a submitted cost form. data holds the form fields;
// the whole map is kept as JSON next to the identifying columns.
func (d *DB) SaveToolCost(data map[string]any) (int64, error) {
	values := make([]any, 0, len(RequiredFields)+1)
	var missing []string
	for _, field := range RequiredFields {
		v := strings.TrimSpace(fmt.Sprint(valueOrEmpty(data[field])))
		if v == "" {
			missing = append(missing, field)
		}
		values = append(values, v)
	}
	if len(missing) > 0 {
		return 0, &MissingFieldsError{Fields: missing}
	}

	blob, err := json.Marshal(data)
	if err != nil {
		return 0, err
	}
	values = append(values, string(blob))

	result, err := d.conn.Exec(`
INSERT INTO tool_cost (tool_type, program_name, part_name, part_version, quotation_date, supplier_name, data_json)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, values...)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, ErrDuplicateRecord
		}
		return 0, err
	}
	return result.LastInsertId()
}

func valueOrEmpty(v any) any {
	if v == nil {
		return ""
	}
	return v
}

// ToolCostOptions lists the distinct values already used for each
// identifying column, for the lookup dropdowns.
func (d *DB) ToolCostOptions() (map[string][]string, error) {
	out := make(map[string][]string, len(RequiredFields))
	for _, field := range RequiredFields {
		// field comes from RequiredFields only.
		rows, err := d.conn.Query(fmt.Sprintf(
			`SELECT DISTINCT %[1]s FROM tool_cost WHERE %[1]s IS NOT NULL AND %[1]s != '' ORDER BY %[1]s`, field))
		if err != nil {
			return nil, err
		}
		values := []string{}
		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				_ = rows.Close()
				return nil, err
			}
			values = append(values, v)
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, err
		}
		_ = rows.Close()
		out[field] = values
	}
	return out, nil
}

// GetToolCost returns the record matching all six identifying keys, or nil.
func (d *DB) GetToolCost(keys map[string]string) (*internal.ToolCostRecord, error) {
	var missing []string
	args := make([]any, 0, len(RequiredFields))
	for _, field := range RequiredFields {
		v := strings.TrimSpace(keys[field])
		if v == "" {
			missing = append(missing, field)
		}
		args = append(args, v)
	}
	if len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}

	var rec internal.ToolCostRecord
	err := d.conn.QueryRow(`
SELECT id, tool_type, program_name, part_name, part_version, quotation_date, supplier_name, data_json
FROM tool_cost
WHERE tool_type = ? AND program_name = ? AND part_name = ? AND part_version = ? AND quotation_date = ? AND supplier_name = ?
`, args...).Scan(
		&rec.ID, &rec.ToolType, &rec.ProgramName, &rec.PartName, &rec.PartVersion, &rec.QuotationDate, &rec.SupplierName, &rec.DataJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteToolCost reports whether a record with id existed.
func (d *DB) DeleteToolCost(id int) (bool, error) {
	result, err := d.conn.Exec(`DELETE FROM tool_cost WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *DB) UpsertEmail(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.EmailRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO emails (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.EmailRow{}, err
	}

	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, errors.New("failed to upsert email")
	}
	return *row, nil
}

const emailColumns = `id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef`

func scanEmail(scan func(...any) error) (internal.EmailRow, error) {
	var row internal.EmailRow
	var subject, sender, receivedAt sql.NullString
	err := scan(&row.ID, &row.Provider, &row.MessageID, &subject, &sender, &receivedAt, &row.Hash, &row.Status, &row.RawRef)
	row.Subject = subject.String
	row.Sender = sender.String
	row.ReceivedAt = receivedAt.String
	return row, err
}

func (d *DB) GetEmailByProviderMessageID(provider, messageID string) (*internal.EmailRow, error) {
	row, err := scanEmail(d.conn.QueryRow(`SELECT `+emailColumns+` FROM emails WHERE provider = ? AND messageId = ?`, provider, messageID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListEmailsByStatus returns up to limit emails with status, oldest first.
// An empty provider matches every provider.
func (d *DB) ListEmailsByStatus(status, provider string, limit int) ([]internal.EmailRow, error) {
	rows, err := d.conn.Query(`SELECT `+emailColumns+` FROM emails
WHERE status = ? AND (? = '' OR provider = ?)
ORDER BY receivedAt ASC, id ASC LIMIT ?`, status, provider, provider, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.EmailRow
	for rows.Next() {
		row, err := scanEmail(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateEmailStatus(emailID int, status string) error {
	_, err := d.conn.Exec(`UPDATE emails SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, emailID)
	return err
}

func (d *DB) MustEmailByProviderMessageID(provider, messageID string) (internal.EmailRow, error) {
	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, fmt.Errorf("email not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// ReplaceEmailQuotations swaps the stored quotations of an email for quotes
// and sets its status. Either all of it is written or none of it.
func (d *DB) ReplaceEmailQuotations(emailID int, quotes []internal.QuotationRow, status string) (err error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`DELETE FROM quotations WHERE emailId = ?`, emailID); err != nil {
		return err
	}
	for _, q := range quotes {
		q.EmailID = emailID
		if _, err = insertQuotation(tx, q); err != nil {
			return fmt.Errorf("store quotation %s: %w", q.Filename, err)
		}
	}
	if _, err = tx.Exec(`UPDATE emails SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, emailID); err != nil {
		return err
	}
	return tx.Commit()
}

// InsertQuotation stores one quotation document. The same file from the
// same email is stored once.
func (d *DB) InsertQuotation(q internal.QuotationRow) (int64, error) {
	return insertQuotation(d.conn, q)
}

func insertQuotation(exec execer, q internal.QuotationRow) (int64, error) {
	result, err := exec.Exec(`
INSERT INTO quotations (emailId, source, filename, subject, sender, content, hash)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(emailId, filename, hash) DO NOTHING
`, q.EmailID, q.Source, q.Filename, q.Subject, q.Sender, q.Content, q.Hash)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ListQuotationsBySubject returns stored quotations grouped by subject,
// each group oldest first.
func (d *DB) ListQuotationsBySubject() (map[string][]internal.QuotationRow, error) {
	rows, err := d.conn.Query(`
SELECT id, emailId, source, filename, subject, sender, content, hash, createdAt
FROM quotations ORDER BY subject ASC, id ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]internal.QuotationRow{}
	for rows.Next() {
		var q internal.QuotationRow
		var sender sql.NullString
		if err := rows.Scan(&q.ID, &q.EmailID, &q.Source, &q.Filename, &q.Subject, &sender, &q.Content, &q.Hash, &q.CreatedAt); err != nil {
			return nil, err
		}
		q.Sender = sender.String
		out[q.Subject] = append(out[q.Subject], q)
	}
	return out, rows.Err()
}

func (d *DB) InsertRun(traceID string, emailID int, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, emailId, timingsJson, countsJson) VALUES (?, ?, ?, ?)`, traceID, emailID, string(timingsJSON), string(countsJSON))
	return err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
