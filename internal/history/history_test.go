package history

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/diktor/internal/model"
	"github.com/verte-zerg/diktor/internal/store"
)

type memKV struct {
	values  map[string]string
	getErr  error
	putErr  error
	putCall int
}

func newMemKV() *memKV {
	return &memKV{values: map[string]string{}}
}

func (m *memKV) Get(_ context.Context, key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memKV) Put(_ context.Context, key, value string) error {
	m.putCall++
	if m.putErr != nil {
		return m.putErr
	}
	m.values[key] = value
	return nil
}

func (m *memKV) Delete(_ context.Context, key string) error {
	delete(m.values, key)
	return nil
}

func TestLoadEmpty(t *testing.T) {
	h := New(newMemKV(), zerolog.Nop())
	if got := h.Load(context.Background()); len(got) != 0 {
		t.Fatalf("expected empty history, got %d", len(got))
	}
}

func TestAppendIncrementsCount(t *testing.T) {
	kv := newMemKV()
	h := New(kv, zerolog.Nop())
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"b1", "i1"} {
		n, err := h.Append(ctx, model.SessionRecord{ExerciseID: id, Date: at})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		if n != i+1 {
			t.Fatalf("expected count %d, got %d", i+1, n)
		}
	}
	records := h.Load(ctx)
	if len(records) != 2 || records[1].ExerciseID != "i1" || !records[0].Date.Equal(at) {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestLoadAcceptsBrowserFormat(t *testing.T) {
	kv := newMemKV()
	kv.values[Key] = `[{"exerciseId":"b1","date":"2024-05-01T12:30:00.000Z"},{"exerciseId":"gone","date":"2024-05-02T08:00:00.000Z","accuracy":0.5}]`
	h := New(kv, zerolog.Nop())
	records := h.Load(context.Background())
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[1].Accuracy == nil || *records[1].Accuracy != 0.5 {
		t.Fatalf("expected accuracy to be kept: %+v", records[1])
	}
}

func TestLoadAcceptsDatesWithoutZone(t *testing.T) {
	kv := newMemKV()
	kv.values[Key] = `[{"exerciseId":"b1","date":"2024-05-01T10:00:00"},{"exerciseId":"b2","date":"2024-05-02T10:00:00.000Z"},{"exerciseId":"b3","date":"2024-05-03"}]`
	h := New(kv, zerolog.Nop())
	ctx := context.Background()
	if got := h.Count(ctx); got != 3 {
		t.Fatalf("expected 3 records, got %d", got)
	}
	n, err := h.Append(ctx, model.SessionRecord{ExerciseID: "i1", Date: time.Now()})
	if err != nil || n != 4 {
		t.Fatalf("expected append to keep earlier records, got %d %v", n, err)
	}
	records := h.Load(ctx)
	if records[0].ExerciseID != "b1" || !records[0].Date.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected first record %+v", records[0])
	}
}

func backupKeys(kv *memKV) []string {
	var keys []string
	for k := range kv.values {
		if strings.HasPrefix(k, Key+".corrupt.") {
			keys = append(keys, k)
		}
	}
	return keys
}

func TestCorruptDataIsEmptyAndBackedUpOnAppend(t *testing.T) {
	for _, raw := range []string{
		`{not json`,
		`{"exerciseId":"b1"}`,
		`[{"date":"2024-05-01T12:30:00Z"}]`,
		`[{"exerciseId":"b1","date":"last tuesday"}]`,
	} {
		kv := newMemKV()
		kv.values[Key] = raw
		h := New(kv, zerolog.Nop())
		ctx := context.Background()
		if _, err := h.Records(ctx); !errors.Is(err, ErrStorageUnavailable) {
			t.Fatalf("expected storage error for %q, got %v", raw, err)
		}
		if h.Count(ctx) != 0 {
			t.Fatalf("expected corrupt history %q to count as empty", raw)
		}
		n, err := h.Append(ctx, model.SessionRecord{ExerciseID: "a1", Date: time.Now()})
		if err != nil || n != 1 {
			t.Fatalf("expected fresh history after append, got %d %v", n, err)
		}
		keys := backupKeys(kv)
		if len(keys) != 1 || kv.values[keys[0]] != raw {
			t.Fatalf("expected %q to be kept under a backup key, got %v", raw, keys)
		}
	}
}

func TestCorruptDataIsKeptWhenBackupFails(t *testing.T) {
	kv := newMemKV()
	kv.values[Key] = `{not json`
	kv.putErr = errors.New("quota exceeded")
	h := New(kv, zerolog.Nop())
	if _, err := h.Append(context.Background(), model.SessionRecord{ExerciseID: "a1", Date: time.Now()}); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if kv.values[Key] != `{not json` {
		t.Fatalf("expected stored data to be left alone, got %q", kv.values[Key])
	}
}

func TestAppendReadFailureDoesNotWrite(t *testing.T) {
	kv := newMemKV()
	kv.getErr = errors.New("disk gone")
	h := New(kv, zerolog.Nop())
	if _, err := h.Append(context.Background(), model.SessionRecord{ExerciseID: "b1", Date: time.Now()}); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if kv.putCall != 0 {
		t.Fatalf("expected no write after failed read")
	}
}

func TestAppendWriteFailure(t *testing.T) {
	kv := newMemKV()
	kv.putErr = errors.New("quota exceeded")
	h := New(kv, zerolog.Nop())
	if _, err := h.Append(context.Background(), model.SessionRecord{ExerciseID: "b1", Date: time.Now()}); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestSQLiteBackedHistory(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "diktor.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	h := New(st, zerolog.Nop())
	ctx := context.Background()
	if _, err := h.Append(ctx, model.SessionRecord{ExerciseID: "a3", Date: time.Now()}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if h.Count(ctx) != 1 {
		t.Fatalf("expected one record")
	}
	if err := h.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if h.Count(ctx) != 0 {
		t.Fatalf("expected cleared history")
	}
}
