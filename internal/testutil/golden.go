package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// UpdateGoldenEnv rewrites golden files instead of comparing when set.
const UpdateGoldenEnv = "TASKFLOW_UPDATE_GOLDEN"

// Golden compares got against testdata/<name>.golden.
func Golden(t *testing.T, name string, got []byte) {
	t.Helper()
	path := filepath.Join("testdata", name+".golden")

	if os.Getenv(UpdateGoldenEnv) != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir testdata: %v", err)
		}
		if err := os.WriteFile(path, got, 0644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		return
	}

	want, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v (set %s=1 to create it)\ngot:\n%s", path, err, UpdateGoldenEnv, got)
	}
	if bytes.Equal(got, want) {
		return
	}

	gl, wl := bytes.Split(got, []byte("\n")), bytes.Split(want, []byte("\n"))
	for i := 0; i < len(gl) || i < len(wl); i++ {
		var g, w []byte
		if i < len(gl) {
			g = gl[i]
		}
		if i < len(wl) {
			w = wl[i]
		}
		if !bytes.Equal(g, w) {
			t.Errorf("%s: first difference at line %d\nwant: %q\n got: %q", path, i+1, w, g)
			break
		}
	}
	t.Errorf("%s mismatch\nwant:\n%s\ngot:\n%s", path, want, got)
}

// GoldenString is Golden for strings.
func GoldenString(t *testing.T, name string, got string) {
	t.Helper()
	Golden(t, name, []byte(got))
}
