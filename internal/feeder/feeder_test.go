package feeder

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestCSVFeeder(t *testing.T) {
	path := writeFile(t, "users.csv", "username,password\nalice,pw1\nbob,pw2\n")

	f, err := NewCSVFeeder(path)
	if err != nil {
		t.Fatalf("NewCSVFeeder: %v", err)
	}
	defer f.Close()

	if f.Len() != 2 {
		t.Errorf("Len = %d, want 2", f.Len())
	}

	first, err := f.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if first["username"] != "alice" || first["password"] != "pw1" {
		t.Errorf("first record = %v", first)
	}
}

func TestCSVFeederWrapsAround(t *testing.T) {
	path := writeFile(t, "users.csv", "user\na\nb\n")

	f, err := NewCSVFeeder(path)
	if err != nil {
		t.Fatalf("NewCSVFeeder: %v", err)
	}
	defer f.Close()

	want := []string{"a", "b", "a", "b", "a"}
	for i, expected := range want {
		record, err := f.Next(context.Background())
		if err != nil {
			t.Fatalf("Next #%d: %v", i, err)
		}
		if record["user"] != expected {
			t.Errorf("Next #%d = %q, want %q", i, record["user"], expected)
		}
	}
}

func TestCSVFeederErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"header only", "username,password\n"},
		{"ragged row", "a,b\n1,2,3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "bad.csv", tt.content)
			if _, err := NewCSVFeeder(path); err == nil {
				t.Error("NewCSVFeeder accepted malformed file")
			}
		})
	}
}

func TestCSVFeederMissingFile(t *testing.T) {
	if _, err := NewCSVFeeder(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Fatal("NewCSVFeeder accepted missing file")
	}
}

func TestJSONFeeder(t *testing.T) {
	path := writeFile(t, "data.json", `[{"user":"alice","retries":3},{"user":"bob","retries":5}]`)

	f, err := NewJSONFeeder(path)
	if err != nil {
		t.Fatalf("NewJSONFeeder: %v", err)
	}
	defer f.Close()

	if f.Len() != 2 {
		t.Errorf("Len = %d", f.Len())
	}

	record, err := f.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if record["user"] != "alice" {
		t.Errorf("record = %v", record)
	}
	// Non-string values are flattened to strings.
	if record["retries"] != "3" {
		t.Errorf("retries = %q, want \"3\"", record["retries"])
	}
}

func TestJSONFeederErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty array", `[]`},
		{"not an array", `{"user":"alice"}`},
		{"empty record", `[{}]`},
		{"invalid JSON", `[{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "bad.json", tt.content)
			if _, err := NewJSONFeeder(path); err == nil {
				t.Error("NewJSONFeeder accepted malformed file")
			}
		})
	}
}

func TestNextHonorsContextCancellation(t *testing.T) {
	path := writeFile(t, "users.csv", "user\na\n")
	f, err := NewCSVFeeder(path)
	if err != nil {
		t.Fatalf("NewCSVFeeder: %v", err)
	}
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Next(ctx); err == nil {
		t.Fatal("Next ignored cancelled context")
	}
}

func TestNextConcurrent(t *testing.T) {
	path := writeFile(t, "users.csv", "user\na\nb\nc\n")
	f, err := NewCSVFeeder(path)
	if err != nil {
		t.Fatalf("NewCSVFeeder: %v", err)
	}
	defer f.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := f.Next(context.Background()); err != nil {
					t.Errorf("Next: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
