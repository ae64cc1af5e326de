package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

// listDir returns the names in dir, sorted.
func listDir(t *testing.T, dir string) string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

func TestStage(t *testing.T) {
	tests := []struct {
		name     string
		closeErr error
		abort    bool
		wantErr  bool
		want     string
	}{
		{name: "commit", want: "new"},
		{name: "abort", abort: true, want: "old"},
		{name: "close error", closeErr: errors.New("disk full"), wantErr: true, want: "old"},
	}

	for i, tt := range tests {
		t.Run(fmt.Sprintf("test #%v: %v", i, tt.name), func(t *testing.T) {
			dir := t.TempDir()
			target := filepath.Join(dir, "layers.svg")
			if err := os.WriteFile(target, []byte("old"), 0644); err != nil {
				t.Fatal(err)
			}

			st := &stage{}
			f := st.create(target)
			if _, err := f.WriteString("new"); err != nil {
				t.Fatal(err)
			}
			var closed bool
			st.add(closeFunc(func() error {
				closed = true
				return tt.closeErr
			}))

			if tt.abort {
				st.abort()
			} else {
				if err := st.commit(); (err != nil) != tt.wantErr {
					t.Fatalf("commit = %v, wantErr %v", err, tt.wantErr)
				}
				if !closed {
					t.Error("writer was not closed")
				}
			}

			if got := listDir(t, dir); got != "layers.svg" {
				t.Errorf("directory = %v, want only layers.svg", got)
			}
			buf, err := os.ReadFile(target)
			if err != nil {
				t.Fatal(err)
			}
			if got := string(buf); got != tt.want {
				t.Errorf("layers.svg = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStageNewTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "model.cbddlp")

	st := &stage{}
	f := st.create(target)
	if _, err := f.WriteString("new"); err != nil {
		t.Fatal(err)
	}
	if got := listDir(t, dir); !strings.HasPrefix(got, ".model.cbddlp.") {
		t.Errorf("staged file not hidden next to its target: %v", got)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Errorf("target exists before commit: %v", err)
	}
	if err := st.commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if got := listDir(t, dir); got != "model.cbddlp" {
		t.Errorf("directory = %v, want model.cbddlp", got)
	}
	fi, err := os.Stat(target)
	if err != nil {
		t.Fatal(err)
	}
	if got := fi.Mode().Perm(); got != 0644 {
		t.Errorf("mode = %v, want 0644", got)
	}
}
