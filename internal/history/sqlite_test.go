package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "chat_history.db"))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendPreservesOrder(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		q := fmt.Sprintf("question %d", i)
		a := fmt.Sprintf("answer %d", i)
		if err := s.Append(ctx, q, a); err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}

	entries := s.ReadAll(ctx)
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.Question != fmt.Sprintf("question %d", i) || e.Answer != fmt.Sprintf("answer %d", i) {
			t.Fatalf("entry %d out of order: %+v", i, e)
		}
	}
}

func TestConcurrentAppends(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.Append(ctx, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent append failed: %v", err)
		}
	}

	entries := s.ReadAll(ctx)
	if len(entries) != writers {
		t.Fatalf("expected %d entries, got %d", writers, len(entries))
	}
	seen := make(map[string]bool, writers)
	for _, e := range entries {
		if seen[e.Question] {
			t.Fatalf("duplicate entry for %s", e.Question)
		}
		seen[e.Question] = true
	}
}

func TestEmptyHistory(t *testing.T) {
	s := openStore(t)
	if entries := s.ReadAll(context.Background()); len(entries) != 0 {
		t.Fatalf("expected empty history, got %d entries", len(entries))
	}
}

func TestCorruptFileDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat_history.db")
	if err := os.WriteFile(path, []byte("this is not a sqlite database, definitely"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open should recover from a corrupt file: %v", err)
	}
	defer s.Close()

	if entries := s.ReadAll(context.Background()); len(entries) != 0 {
		t.Fatalf("expected empty history after recovery, got %d", len(entries))
	}
	if _, err := os.Stat(path + ".corrupt"); err != nil {
		t.Fatalf("corrupt file should be kept aside: %v", err)
	}

	// The recovered store must still accept appends.
	if err := s.Append(context.Background(), "q", "a"); err != nil {
		t.Fatalf("append after recovery failed: %v", err)
	}
}
