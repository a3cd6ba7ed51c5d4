// Package history persists completed exercise attempts in a key-value store.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/diktor/internal/model"
)

// Key is the storage key holding the JSON array of session records.
const Key = "diction_history"

// BackupKey names the key unreadable history is moved to at time t.
func BackupKey(t time.Time) string {
	return Key + ".corrupt." + t.UTC().Format("20060102T150405.000000000")
}

// ErrStorageUnavailable is returned when the backing store cannot be read or written.
var ErrStorageUnavailable = errors.New("history storage unavailable")

var errCorrupt = errors.New("history data is corrupt")

// KV is the key-value capability the history is stored in.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// History loads and appends session records.
type History struct {
	kv  KV
	log zerolog.Logger
}

// New returns a History backed by kv.
func New(kv KV, log zerolog.Logger) *History {
	return &History{kv: kv, log: log}
}

// Records returns the stored records in insertion order.
func (h *History) Records(ctx context.Context) ([]model.SessionRecord, error) {
	_, records, err := h.read(ctx)
	return records, err
}

func (h *History) read(ctx context.Context) (string, []model.SessionRecord, error) {
	raw, ok, err := h.kv.Get(ctx, Key)
	if err != nil {
		return "", nil, fmt.Errorf("%w: read: %v", ErrStorageUnavailable, err)
	}
	if !ok || raw == "" {
		return raw, nil, nil
	}
	records, err := decode([]byte(raw))
	if err != nil {
		return raw, nil, fmt.Errorf("%w: %w: %v", ErrStorageUnavailable, errCorrupt, err)
	}
	return raw, records, nil
}

// storedRecord keeps the date as text so any ISO-8601 form written by older
// clients can be read.
type storedRecord struct {
	ExerciseID string   `json:"exerciseId"`
	Date       string   `json:"date"`
	Accuracy   *float64 `json:"accuracy,omitempty"`
}

// dateLayouts are tried in order. Dates without a zone are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", value)
}

func decode(raw []byte) ([]model.SessionRecord, error) {
	if err := validate(raw); err != nil {
		return nil, err
	}
	var stored []storedRecord
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, err
	}
	records := make([]model.SessionRecord, 0, len(stored))
	for i, sr := range stored {
		date, err := parseDate(sr.Date)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, model.SessionRecord{ExerciseID: sr.ExerciseID, Date: date, Accuracy: sr.Accuracy})
	}
	return records, nil
}

// Load returns the stored records, or an empty history when storage fails.
func (h *History) Load(ctx context.Context) []model.SessionRecord {
	records, err := h.Records(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("treating history as empty")
		return nil
	}
	return records
}

// Count returns the number of stored records, zero when storage fails.
func (h *History) Count(ctx context.Context) int {
	return len(h.Load(ctx))
}

// Append stores rec at the end of the history and returns the new count.
// Stored data that cannot be read is copied to a backup key first and a fresh
// list is started. Nothing is written when the backup fails.
func (h *History) Append(ctx context.Context, rec model.SessionRecord) (int, error) {
	raw, records, err := h.read(ctx)
	if err != nil {
		if !errors.Is(err, errCorrupt) {
			return 0, err
		}
		backup := BackupKey(time.Now())
		if perr := h.kv.Put(ctx, backup, raw); perr != nil {
			return 0, fmt.Errorf("%w: back up unreadable history: %v", ErrStorageUnavailable, perr)
		}
		h.log.Warn().Err(err).Str("backup", backup).Msg("starting a new history")
		records = nil
	}
	records = append(records, rec)
	data, err := json.Marshal(records)
	if err != nil {
		return 0, fmt.Errorf("encode history: %w", err)
	}
	if err := h.kv.Put(ctx, Key, string(data)); err != nil {
		return 0, fmt.Errorf("%w: write: %v", ErrStorageUnavailable, err)
	}
	return len(records), nil
}

// Clear removes every stored record.
func (h *History) Clear(ctx context.Context) error {
	if err := h.kv.Delete(ctx, Key); err != nil {
		return fmt.Errorf("%w: delete: %v", ErrStorageUnavailable, err)
	}
	return nil
}
