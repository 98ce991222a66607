package relay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Envelope is the verbatim webhook payload pair held for later delivery.
type Envelope struct {
	Data      string `json:"data"`
	Signature string `json:"signature"`
}

type SpoolEntry struct {
	ID         string   `json:"id"`
	Envelope   Envelope `json:"envelope"`
	ReceivedAt string   `json:"received_at"`
}

// Spool is an append-only directory of undelivered envelopes, one JSON file
// each. Deliberately not a second ledger: entries hold the raw envelope so
// the origin performs the only credit commit when it comes back.
type Spool struct {
	dir string
}

func NewSpool(dir string) (*Spool, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	return &Spool{dir: dir}, nil
}

func (s *Spool) Put(env Envelope) error {
	entry := SpoolEntry{
		ID:         uuid.New().String(),
		Envelope:   env,
		ReceivedAt: time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	tmp := filepath.Join(s.dir, entry.ID+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(s.dir, entry.ID+".json"))
}

func (s *Spool) List() ([]SpoolEntry, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []SpoolEntry
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, f.Name()))
		if err != nil {
			continue
		}
		var entry SpoolEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *Spool) Remove(id string) error {
	return os.Remove(filepath.Join(s.dir, id+".json"))
}

func (s *Spool) Len() (int, error) {
	entries, err := s.List()
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}
