// Package normalize turns binary-serialized authored files into the text
// serialization the reference extractor can scan.
package normalize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/go-logr/logr"
)

// Header starts every file in normalized text form.
const Header = "%YAML"

var bom = []byte{0xEF, 0xBB, 0xBF}

// IsNormalized reports whether content is already in text serialization.
func IsNormalized(content []byte) bool {
	return bytes.HasPrefix(bytes.TrimPrefix(content, bom), []byte(Header))
}

type Options struct {
	// StripDangling asks the normalizer to drop references to scripts that
	// no longer exist before reserializing.
	StripDangling bool
}

type Normalizer interface {
	// Repair rewrites the file at path in place and reports whether it is
	// normalized afterwards.
	Repair(ctx context.Context, path string, opts Options) (bool, error)
}

// None never repairs anything.
type None struct{}

func (None) Repair(ctx context.Context, path string, opts Options) (bool, error) {
	return false, nil
}

// DefaultStripFlag is passed to Command when dangling references should be
// stripped.
const DefaultStripFlag = "--strip-dangling"

// Command runs an external tool as `<Path> <Args...> [StripFlag] <file>`.
// The tool rewrites the file in place; success is judged by re-reading it.
type Command struct {
	Path      string
	Args      []string
	StripFlag string
	Log       logr.Logger
}

var _ Normalizer = &Command{}

func (c *Command) Repair(ctx context.Context, path string, opts Options) (bool, error) {
	if c.Path == "" {
		return false, nil
	}

	args := append([]string{}, c.Args...)
	if opts.StripDangling {
		flag := c.StripFlag
		if flag == "" {
			flag = DefaultStripFlag
		}
		args = append(args, flag)
	}
	args = append(args, path)

	c.Log.V(1).Info("normalizing", "path", path, "stripDangling", opts.StripDangling)

	cmd := exec.CommandContext(ctx, c.Path, args...)
	if _, err := cmd.Output(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		return false, fmt.Errorf("running %s: %w", c.Path, execError(err))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("reading normalized %s: %w", path, err)
	}
	return IsNormalized(data), nil
}

func execError(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
	}
	return err
}
