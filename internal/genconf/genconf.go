// Package genconf manages the generated configuration artifact consumed by
// the verification suite: an ini-style section/option/value document that
// provisioning populates and teardown blanks again.
package genconf

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/ini.v1"

	"github.com/harrison/cloudbench/internal/filelock"
)

// Document is an in-memory view of the artifact. It is not safe for
// concurrent mutation; setup and teardown are single call paths.
type Document struct {
	file *ini.File
}

// New returns an empty document.
func New() *Document {
	return &Document{file: ini.Empty()}
}

// Load reads the artifact at path. A missing file yields an empty document,
// matching the first setup run against a fresh deployment.
func Load(path string) (*Document, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(), nil
	}
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load generated config %s: %w", path, err)
	}
	return &Document{file: file}, nil
}

// FromMap builds a document from a two-level section/option/value mapping.
func FromMap(values map[string]map[string]string) *Document {
	doc := New()
	for section, options := range values {
		for option, value := range options {
			doc.Set(section, option, value)
		}
	}
	return doc
}

// Get returns the value of section/option, or "" when absent.
func (d *Document) Get(section, option string) string {
	sec := d.file.Section(section)
	if !sec.HasKey(option) {
		return ""
	}
	return sec.Key(option).String()
}

// Has reports whether section/option holds a non-empty value. A manually
// populated option wins over any provisioning helper.
func (d *Document) Has(section, option string) bool {
	return d.Get(section, option) != ""
}

// Set writes a value into section/option, creating the section as needed.
func (d *Document) Set(section, option, value string) {
	d.file.Section(section).Key(option).SetValue(value)
}

// Blank clears the value of section/option while keeping the option present,
// so a later setup run sees it as unconfigured.
func (d *Document) Blank(section, option string) {
	if d.file.Section(section).HasKey(option) {
		d.file.Section(section).Key(option).SetValue("")
	}
}

// Bytes renders the document in ini syntax.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.file.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("render generated config: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the document to path atomically under the path's file lock.
func (d *Document) Save(path string) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	return filelock.LockAndWrite(path, data)
}
