package normalize

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/go-logr/logr"
)

const fakeTool = `#!/bin/sh
mode="$1"
shift
strip=0
target=""
for arg in "$@"; do
	case "$arg" in
		--strip-dangling) strip=1 ;;
		*) target="$arg" ;;
	esac
done
case "$mode" in
	always) printf '%%YAML 1.1\n' > "$target" ;;
	strip) if [ "$strip" = 1 ]; then printf '%%YAML 1.1\n' > "$target"; fi ;;
	fail) echo "corrupt header" >&2; exit 3 ;;
	never) ;;
esac
`

func writeTool(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script tool requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "normalizer.sh")
	if err := os.WriteFile(path, []byte(fakeTool), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIsNormalized(t *testing.T) {
	tests := map[string]struct {
		content []byte
		want    bool
	}{
		"yaml header":   {content: []byte("%YAML 1.1\n%TAG !u! tag:unity3d.com,2011:\n"), want: true},
		"with bom":      {content: append([]byte{0xEF, 0xBB, 0xBF}, []byte("%YAML 1.1")...), want: true},
		"binary":        {content: []byte{0x00, 0x00, 0x00, 0x10, 0x55}, want: false},
		"plain text":    {content: []byte("Shader \"Water\" {}"), want: false},
		"empty":         {content: nil, want: false},
		"leading space": {content: []byte(" %YAML"), want: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := IsNormalized(tc.content); got != tc.want {
				t.Errorf("IsNormalized() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCommandRepair(t *testing.T) {
	tool := writeTool(t)

	tests := map[string]struct {
		mode    string
		strip   bool
		want    bool
		wantErr string
	}{
		"normalizes":                {mode: "always", want: true},
		"needs strip, not asked":    {mode: "strip", strip: false, want: false},
		"needs strip, asked":        {mode: "strip", strip: true, want: true},
		"tool leaves file binary":   {mode: "never", want: false},
		"tool fails reports stderr": {mode: "fail", wantErr: "corrupt header"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			target := filepath.Join(t.TempDir(), "Tree.prefab")
			os.WriteFile(target, []byte{0x00, 0x01}, 0o644)

			c := &Command{Path: tool, Args: []string{tc.mode}, Log: logr.Discard()}
			got, err := c.Repair(context.Background(), target, Options{StripDangling: tc.strip})
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("Repair() error = %v, want it to mention %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Repair() error = %v", err)
			}
			if got != tc.want {
				t.Errorf("Repair() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCommandWithoutPath(t *testing.T) {
	ok, err := (&Command{}).Repair(context.Background(), "/nonexistent", Options{})
	if ok || err != nil {
		t.Errorf("Repair() = %v, %v; want false, nil", ok, err)
	}
	ok, err = None{}.Repair(context.Background(), "/nonexistent", Options{StripDangling: true})
	if ok || err != nil {
		t.Errorf("None.Repair() = %v, %v; want false, nil", ok, err)
	}
}
