package log

import (
	"fmt"
	"io"
	"os"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Logger is the shared logger used by components that are not handed one
// explicitly. It defaults to a no-op logger so the library stays silent
// unless the embedding application opts in.
var Logger kitlog.Logger = kitlog.NewNopLogger()

// New returns a logfmt logger writing to w, filtered to the given level.
// Accepted levels are debug, info, warn and error.
func New(w io.Writer, logLevel string) (kitlog.Logger, error) {
	var opt level.Option

	switch logLevel {
	case "debug":
		opt = level.AllowDebug()
	case "info":
		opt = level.AllowInfo()
	case "warn":
		opt = level.AllowWarn()
	case "error":
		opt = level.AllowError()
	default:
		return nil, fmt.Errorf("unknown log level %q", logLevel)
	}

	l := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(w))
	l = level.NewFilter(l, opt)
	l = kitlog.With(l, "ts", kitlog.DefaultTimestampUTC)

	return l, nil
}

// InitLogger replaces the shared Logger, writing to stderr at the given
// level.
func InitLogger(logLevel string) error {
	l, err := New(os.Stderr, logLevel)
	if err != nil {
		return err
	}

	Logger = l
	return nil
}
