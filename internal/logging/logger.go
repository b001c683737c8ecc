package logging

import (
	"github.com/vvka-141/pgdal/pkg/pgdal"
)

// New returns the logger selected by the --log-format flag.
// "text" (or empty) gives a ConsoleLogger; "json" and "console" give a ZapLogger.
func New(format string, verbose bool, fields map[string]string) (pgdal.Logger, error) {
	switch format {
	case "", "text":
		return NewConsoleLogger(verbose), nil
	default:
		return NewZapLogger(ZapConfig{Verbose: verbose, Encoding: format, Fields: fields})
	}
}

var (
	_ pgdal.Logger = (*ConsoleLogger)(nil)
	_ pgdal.Logger = (*NullLogger)(nil)
	_ pgdal.Logger = (*ZapLogger)(nil)
)
