// Package history keeps the list of companies that were already contacted so
// later runs do not write to them twice.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spigell/outreach/internal/textnorm"
)

// Entry is one successful delivery.
type Entry struct {
	CompanyName  string    `json:"company_name"`
	ContactEmail string    `json:"contact_email"`
	ContactedAt  time.Time `json:"contacted_at"`
	RunID        string    `json:"run_id,omitempty"`
}

// Contacted is the on-disk history file.
type Contacted struct {
	Entries []Entry `json:"entries"`
}

// FromFile reads the history file. A missing file yields an empty history.
func FromFile(path string) (*Contacted, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Contacted{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history file %q: %w", path, err)
	}

	contacted := &Contacted{}
	if len(data) == 0 {
		return contacted, nil
	}
	if err := json.Unmarshal(data, contacted); err != nil {
		return nil, fmt.Errorf("decoding history file %q: %w", path, err)
	}
	return contacted, nil
}

// Has reports whether the company was contacted before. Names are compared
// case-insensitively.
func (c *Contacted) Has(company string) bool {
	if c == nil {
		return false
	}
	key := textnorm.Fold(company)
	for _, entry := range c.Entries {
		if textnorm.Fold(entry.CompanyName) == key {
			return true
		}
	}
	return false
}

// Append adds entries, skipping companies already present.
func (c *Contacted) Append(entries ...Entry) int {
	added := 0
	for _, entry := range entries {
		if c.Has(entry.CompanyName) {
			continue
		}
		c.Entries = append(c.Entries, entry)
		added++
	}
	return added
}

// ToFile overwrites path with the current history, creating missing parent
// directories.
func (c *Contacted) ToFile(path string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
