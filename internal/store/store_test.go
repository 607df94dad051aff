package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tmpDir, _ := os.MkdirTemp("", "store-test-*")
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	s, err := NewSQLiteStore(filepath.Join(tmpDir, "progress.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Empty", func(t *testing.T) {
		first, err := s.Earliest()
		if err != nil {
			t.Fatalf("Earliest failed: %v", err)
		}
		if first != nil {
			t.Errorf("Expected nil earliest on empty store, got %+v", first)
		}
		last, err := s.Latest()
		if err != nil {
			t.Fatalf("Latest failed: %v", err)
		}
		if last != nil {
			t.Errorf("Expected nil latest on empty store, got %+v", last)
		}
		samples, err := s.Range(time.Time{}, time.Time{})
		if err != nil {
			t.Fatalf("Range failed: %v", err)
		}
		if len(samples) != 0 {
			t.Errorf("Expected no samples, got %d", len(samples))
		}
	})

	t.Run("Append", func(t *testing.T) {
		// inserted out of order on purpose: the store must not assume monotonic input
		for _, in := range []Sample{
			{Timestamp: base.Add(time.Hour), Progress: 0.20},
			{Timestamp: base, Progress: 0.10},
			{Timestamp: base.Add(30 * time.Minute), Progress: 0.15},
		} {
			sample := in
			if err := s.Append(&sample); err != nil {
				t.Fatalf("Append failed: %v", err)
			}
			if sample.ID == 0 {
				t.Error("Expected Append to assign an ID")
			}
		}

		n, err := s.Count()
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != 3 {
			t.Errorf("Expected 3 samples, got %d", n)
		}
	})

	t.Run("EarliestLatest", func(t *testing.T) {
		first, err := s.Earliest()
		if err != nil || first == nil {
			t.Fatalf("Earliest failed: %v", err)
		}
		if !first.Timestamp.Equal(base) || first.Progress != 0.10 {
			t.Errorf("Unexpected earliest sample: %+v", first)
		}

		last, err := s.Latest()
		if err != nil || last == nil {
			t.Fatalf("Latest failed: %v", err)
		}
		if !last.Timestamp.Equal(base.Add(time.Hour)) || last.Progress != 0.20 {
			t.Errorf("Unexpected latest sample: %+v", last)
		}

		again, _ := s.Latest()
		if *again != *last {
			t.Errorf("Expected repeated Latest to return the same sample, got %+v and %+v", last, again)
		}
	})

	t.Run("Range", func(t *testing.T) {
		samples, err := s.Range(base.Add(10*time.Minute), base.Add(time.Hour))
		if err != nil {
			t.Fatalf("Range failed: %v", err)
		}
		if len(samples) != 2 {
			t.Fatalf("Expected 2 samples in range, got %d", len(samples))
		}
		if samples[0].Progress != 0.15 || samples[1].Progress != 0.20 {
			t.Errorf("Expected ascending order, got %+v", samples)
		}

		all, _ := s.Range(time.Time{}, time.Time{})
		if len(all) != 3 {
			t.Errorf("Expected open range to return all 3 samples, got %d", len(all))
		}
		for i := 1; i < len(all); i++ {
			if all[i].Timestamp.Before(all[i-1].Timestamp) {
				t.Errorf("Samples out of order at %d: %v before %v", i, all[i].Timestamp, all[i-1].Timestamp)
			}
		}
	})

	t.Run("DuplicateTimestamp", func(t *testing.T) {
		ts := base.Add(2 * time.Hour)
		a := Sample{Timestamp: ts, Progress: 0.30}
		b := Sample{Timestamp: ts, Progress: 0.31}
		if err := s.Append(&a); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if err := s.Append(&b); err != nil {
			t.Fatalf("Append with colliding timestamp failed: %v", err)
		}

		got, _ := s.Range(ts, ts)
		if len(got) != 2 {
			t.Fatalf("Expected both samples to survive, got %d", len(got))
		}
		if got[0].ID != a.ID || got[1].ID != b.ID {
			t.Errorf("Expected insertion order to break the tie, got %+v", got)
		}

		last, _ := s.Latest()
		if last.ID != b.ID {
			t.Errorf("Expected latest to be the last inserted sample, got %+v", last)
		}
	})

	t.Run("AppendOnly", func(t *testing.T) {
		if _, err := s.db.Exec("UPDATE samples SET progress = 0"); err == nil {
			t.Error("Expected update to be rejected")
		}
		if _, err := s.db.Exec("DELETE FROM samples"); err == nil {
			t.Error("Expected delete to be rejected")
		}
		n, _ := s.Count()
		if n != 5 {
			t.Errorf("Expected 5 samples after rejected writes, got %d", n)
		}
	})
}

func TestSQLiteStore_RangeSubset(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	const n = 50
	for i := 0; i < n; i++ {
		sample := Sample{Timestamp: base.Add(time.Duration(i) * time.Minute), Progress: float64(i) / n}
		if err := s.Append(&sample); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	testCases := []struct {
		name     string
		from, to int
		want     int
	}{
		{"whole", 0, n - 1, n},
		{"inner", 10, 19, 10},
		{"single", 7, 7, 1},
		{"before", -10, -1, 0},
		{"after", n, n + 10, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			from := base.Add(time.Duration(tc.from) * time.Minute)
			to := base.Add(time.Duration(tc.to) * time.Minute)
			got, err := s.Range(from, to)
			if err != nil {
				t.Fatalf("Range failed: %v", err)
			}
			if len(got) != tc.want {
				t.Fatalf("Expected %d samples, got %d", tc.want, len(got))
			}
			for _, sample := range got {
				if sample.Timestamp.Before(from) || sample.Timestamp.After(to) {
					t.Errorf("Sample %v outside [%v, %v]", sample.Timestamp, from, to)
				}
			}
		})
	}
}

func TestSQLiteStore_Durable(t *testing.T) {
	tmpDir, _ := os.MkdirTemp("", "store-test-*")
	defer os.RemoveAll(tmpDir)
	dbPath := filepath.Join(tmpDir, "nested", "progress.db")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	ts := time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.UTC)
	if err := s.Append(&Sample{Timestamp: ts, Progress: 0.42}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	s.Close()

	reopened, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer reopened.Close()

	last, err := reopened.Latest()
	if err != nil || last == nil {
		t.Fatalf("Latest after reopen failed: %v", err)
	}
	if !last.Timestamp.Equal(ts) {
		t.Errorf("Expected timestamp %v, got %v", ts, last.Timestamp)
	}
	if last.Progress != 0.42 {
		t.Errorf("Expected progress 0.42, got %v", last.Progress)
	}
}

func TestSQLiteStore_AppendAfterClose(t *testing.T) {
	tmpDir, _ := os.MkdirTemp("", "store-test-*")
	defer os.RemoveAll(tmpDir)

	s, err := NewSQLiteStore(filepath.Join(tmpDir, "progress.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	s.Close()

	if err := s.Append(&Sample{Timestamp: time.Now(), Progress: 0.5}); err == nil {
		t.Error("Expected Append on a closed store to fail")
	}
}

func TestSQLiteStore_SpecialCharacterPaths(t *testing.T) {
	testCases := []struct {
		name string
		dir  string
	}{
		{"Hash", "a#b"},
		{"Question mark", "c?d"},
		{"Percent", "50%"},
		{"Space", "my runs"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tmpDir, _ := os.MkdirTemp("", "store-test-*")
			defer os.RemoveAll(tmpDir)
			dbPath := filepath.Join(tmpDir, tc.dir, "progress.db")

			s, err := NewSQLiteStore(dbPath)
			if err != nil {
				t.Fatalf("Failed to create store: %v", err)
			}
			if err := s.Append(&Sample{Timestamp: time.Now(), Progress: 0.3}); err != nil {
				t.Fatalf("Append failed: %v", err)
			}
			s.Close()

			if _, err := os.Stat(dbPath); err != nil {
				t.Fatalf("Expected database at %s, got %v", dbPath, err)
			}
			entries, _ := os.ReadDir(tmpDir)
			if len(entries) != 1 || entries[0].Name() != tc.dir {
				var names []string
				for _, e := range entries {
					names = append(names, e.Name())
				}
				t.Errorf("Expected only %q under the temp dir, got %v", tc.dir, names)
			}

			reopened, err := NewSQLiteStore(dbPath)
			if err != nil {
				t.Fatalf("Failed to reopen store: %v", err)
			}
			defer reopened.Close()
			if n, _ := reopened.Count(); n != 1 {
				t.Errorf("Expected 1 sample after reopen, got %d", n)
			}
		})
	}
}

func TestSQLiteStore_RelativePath(t *testing.T) {
	tmpDir, _ := os.MkdirTemp("", "store-test-*")
	defer os.RemoveAll(tmpDir)
	t.Chdir(tmpDir)

	s, err := NewSQLiteStore(filepath.Join("data", "progress.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	s.Close()

	if _, err := os.Stat(filepath.Join(tmpDir, "data", "progress.db")); err != nil {
		t.Errorf("Expected database relative to the working directory, got %v", err)
	}
}
