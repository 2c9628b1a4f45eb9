// Package archive stores generated textures in a single SQLite database.
package archive

import (
	"errors"
	"strconv"
	"time"
)

// ErrNotFound is returned when a texture name is not in the archive.
var ErrNotFound = errors.New("archive: texture not found")

// Metadata describes an archive as a whole.
type Metadata struct {
	Name        string
	Description string
	Version     string
	Created     time.Time
	Count       int // Number of textures the producer intended to write
}

// ToMap converts Metadata to a map for database insertion.
func (m Metadata) ToMap() map[string]string {
	result := make(map[string]string)

	if m.Name != "" {
		result["name"] = m.Name
	}
	if m.Description != "" {
		result["description"] = m.Description
	}
	if m.Version != "" {
		result["version"] = m.Version
	}
	if !m.Created.IsZero() {
		result["created"] = m.Created.UTC().Format(time.RFC3339)
	}
	if m.Count > 0 {
		result["count"] = strconv.Itoa(m.Count)
	}

	return result
}

func metadataFromMap(values map[string]string) Metadata {
	meta := Metadata{
		Name:        values["name"],
		Description: values["description"],
		Version:     values["version"],
	}
	if v, ok := values["created"]; ok {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			meta.Created = ts
		}
	}
	if v, ok := values["count"]; ok {
		if i, err := strconv.Atoi(v); err == nil {
			meta.Count = i
		}
	}
	return meta
}

// Entry is one stored texture with the parameters it was generated from.
type Entry struct {
	Name         string
	Format       string // png, jpeg, bmp, tiff
	Profile      string
	Data         []byte // Encoded image (gzip-compressed at rest)
	Width        int
	Height       int
	LengthScale  float64
	OffsetStdDev float64
	Seed         int64
}
