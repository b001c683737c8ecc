package pgdal_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vvka-141/pgdal/pkg/pgdal"
)

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, pgdal.ExitSuccess},
		{"general error", errors.New("something went wrong"), pgdal.ExitGeneralError},
		{"unknown flag", errors.New("unknown flag --foo"), pgdal.ExitUsageError},
		{"accepts args", errors.New("accepts 1 arg(s), received 0"), pgdal.ExitUsageError},
		{"required flag", errors.New("required flag \"table\" not set"), pgdal.ExitUsageError},
		{"invalid config", fmt.Errorf("bad port: %w", pgdal.ErrInvalidConfig), pgdal.ExitConfigError},
		{"connection failed", pgdal.ErrConnectionFailed, pgdal.ExitConnectionError},
		{"raw connection refused", errors.New("dial tcp: connection refused"), pgdal.ExitConnectionError},
		{"template missing", fmt.Errorf("read q.sql: %w", pgdal.ErrNotFound), pgdal.ExitNotFound},
		{"execution failed", fmt.Errorf("exec: %w", pgdal.ErrExecutionFailed), pgdal.ExitExecutionFailed},
		{"validation", fmt.Errorf("ragged row: %w", pgdal.ErrValidation), pgdal.ExitValidationError},
		{"table exists", fmt.Errorf("public.t: %w", pgdal.ErrTableExists), pgdal.ExitValidationError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pgdal.ExitCodeForError(tt.err); got != tt.want {
				t.Errorf("ExitCodeForError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestPreviewSQL(t *testing.T) {
	short := "SELECT 1"
	if got := pgdal.PreviewSQL(short); got != short {
		t.Errorf("PreviewSQL(%q) = %q", short, got)
	}

	long := make([]rune, pgdal.MaxErrorPreviewLength+50)
	for i := range long {
		long[i] = 'x'
	}
	got := pgdal.PreviewSQL(string(long))
	if len([]rune(got)) != pgdal.MaxErrorPreviewLength+3 {
		t.Errorf("PreviewSQL length = %d, want %d", len([]rune(got)), pgdal.MaxErrorPreviewLength+3)
	}
}
