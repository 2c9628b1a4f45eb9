package archive

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"errors"
	"fmt"
	"io"
)

// Reader reads textures from an archive database.
type Reader struct {
	db   *sql.DB
	path string
}

// OpenReader opens an archive database for reading.
func OpenReader(path string) (*Reader, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='textures'").Scan(&count)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify schema: %w", err)
	}
	if count == 0 {
		db.Close()
		return nil, fmt.Errorf("database does not contain textures table")
	}

	return &Reader{db: db, path: path}, nil
}

// Get reads a texture by name and returns it with decompressed data.
func (r *Reader) Get(name string) (Entry, error) {
	e := Entry{Name: name}
	var compressed []byte
	err := r.db.QueryRow(
		`SELECT format, width, height, length_scale, offset_stdev, profile, seed, data
		 FROM textures WHERE name = ?`, name,
	).Scan(&e.Format, &e.Width, &e.Height, &e.LengthScale, &e.OffsetStdDev, &e.Profile, &e.Seed, &compressed)

	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("failed to query texture: %w", err)
	}

	e.Data, err = gzipDecompress(compressed)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to decompress texture %s: %w", name, err)
	}
	return e, nil
}

// List returns every stored texture ordered by name. Data is left empty.
func (r *Reader) List() ([]Entry, error) {
	rows, err := r.db.Query(
		`SELECT name, format, width, height, length_scale, offset_stdev, profile, seed
		 FROM textures ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query textures: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Name, &e.Format, &e.Width, &e.Height, &e.LengthScale, &e.OffsetStdDev, &e.Profile, &e.Seed); err != nil {
			return nil, fmt.Errorf("failed to scan texture row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating textures: %w", err)
	}

	return entries, nil
}

// Metadata reads metadata from the database.
func (r *Reader) Metadata() (Metadata, error) {
	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return Metadata{}, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		values[name] = value
	}
	if err := rows.Err(); err != nil {
		return Metadata{}, fmt.Errorf("error iterating metadata: %w", err)
	}

	return metadataFromMap(values), nil
}

// Close closes the database connection.
func (r *Reader) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func gzipDecompress(data []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gr.Close()

	return io.ReadAll(gr)
}
