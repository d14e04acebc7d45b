// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog keeps harvested Records in a SQLite database so repeated
// harvests accumulate into one queryable collection. A Record is keyed by
// its source and URL; saving it again updates the stored row in place.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/econ-harvester/pkg/types"
)

// DefaultPath is the catalog location used when none is configured.
const DefaultPath = "data/catalog.db"

// Catalog is a SQLite-backed Record store.
type Catalog struct {
	db *sql.DB
}

// Open opens or creates the catalog at path, creating parent directories
// and the schema as needed.
func Open(path string) (*Catalog, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	c := &Catalog{db: db}
	if err := c.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return c, nil
}

// Close releases the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			url TEXT NOT NULL,
			native_id TEXT,
			title TEXT NOT NULL,
			authors TEXT,
			abstract TEXT,
			full_abstract TEXT,
			publication_date TEXT,
			pdf_url TEXT,
			keywords TEXT,
			categories TEXT,
			harvested_at TEXT NOT NULL,
			UNIQUE (source, url)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_source ON records(source)`,
	}
	for _, stmt := range statements {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveSummary counts the outcome of Save.
type SaveSummary struct {
	Inserted int
	Updated  int
	Skipped  int
}

// Save upserts records in one transaction. A record with an invalid source
// rejects the whole batch before anything is written. Records without a
// URL have no key and are skipped.
func (c *Catalog) Save(ctx context.Context, records []types.Record) (SaveSummary, error) {
	for i, r := range records {
		if !r.Source.Valid() {
			return SaveSummary{}, fmt.Errorf("record %d: unknown source %q", i, r.Source)
		}
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return SaveSummary{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	var summary SaveSummary
	for _, r := range records {
		if r.URL == "" {
			summary.Skipped++
			continue
		}
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT count(*) FROM records WHERE source = ? AND url = ?`, r.Source, r.URL,
		).Scan(&exists); err != nil {
			return SaveSummary{}, fmt.Errorf("checking %s: %w", r.URL, err)
		}

		_, err := tx.ExecContext(ctx, `INSERT INTO records
			(source, url, native_id, title, authors, abstract, full_abstract,
			 publication_date, pdf_url, keywords, categories, harvested_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(source, url) DO UPDATE SET
				native_id = excluded.native_id,
				title = excluded.title,
				authors = excluded.authors,
				abstract = excluded.abstract,
				full_abstract = excluded.full_abstract,
				publication_date = excluded.publication_date,
				pdf_url = excluded.pdf_url,
				keywords = excluded.keywords,
				categories = excluded.categories,
				harvested_at = excluded.harvested_at`,
			r.Source, r.URL, r.ID, r.Title, marshalList(r.Authors), r.Abstract, r.FullAbstract,
			r.PublicationDate, r.PDFURL, marshalList(r.Keywords), marshalList(r.Categories), now,
		)
		if err != nil {
			return SaveSummary{}, fmt.Errorf("saving %s: %w", r.URL, err)
		}
		if exists > 0 {
			summary.Updated++
		} else {
			summary.Inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return SaveSummary{}, fmt.Errorf("committing: %w", err)
	}
	return summary, nil
}

// Filter narrows List. The zero value matches every record.
type Filter struct {
	Source types.Source

	// Text matches case-insensitively against title and abstracts.
	Text string

	// Limit caps the result count; zero means no limit.
	Limit int
}

// List returns matching records in insertion order.
func (c *Catalog) List(ctx context.Context, f Filter) ([]types.Record, error) {
	var (
		where []string
		args  []any
	)
	if f.Source != "" {
		where = append(where, "source = ?")
		args = append(args, f.Source)
	}
	if f.Text != "" {
		where = append(where, "(title LIKE ? OR abstract LIKE ? OR full_abstract LIKE ?)")
		pattern := "%" + f.Text + "%"
		args = append(args, pattern, pattern, pattern)
	}

	q := `SELECT source, url, native_id, title, authors, abstract, full_abstract,
		publication_date, pdf_url, keywords, categories FROM records`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY rowid"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []types.Record
	for rows.Next() {
		var (
			r                             types.Record
			src                           string
			authors, keywords, categories sql.NullString
			id, abstract, full, date, pdf sql.NullString
		)
		if err := rows.Scan(&src, &r.URL, &id, &r.Title, &authors, &abstract, &full,
			&date, &pdf, &keywords, &categories); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		r.Source = types.Source(src)
		r.ID = id.String
		r.Abstract = abstract.String
		r.FullAbstract = full.String
		r.PublicationDate = date.String
		r.PDFURL = pdf.String
		r.Authors = unmarshalList(authors)
		r.Keywords = unmarshalList(keywords)
		r.Categories = unmarshalList(categories)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Count returns the number of stored records per source.
func (c *Catalog) Count(ctx context.Context) (map[types.Source]int, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT source, count(*) FROM records GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("counting records: %w", err)
	}
	defer rows.Close()

	counts := make(map[types.Source]int)
	for rows.Next() {
		var (
			src string
			n   int
		)
		if err := rows.Scan(&src, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[types.Source(src)] = n
	}
	return counts, rows.Err()
}

// marshalList stores a string slice as JSON text; nil stays NULL.
func marshalList(items []string) any {
	if items == nil {
		return nil
	}
	data, _ := json.Marshal(items)
	return string(data)
}

func unmarshalList(s sql.NullString) []string {
	if !s.Valid || s.String == "" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(s.String), &items); err != nil {
		return nil
	}
	return items
}
