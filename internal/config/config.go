// Package config resolves the decoder's environment-variable-driven
// settings (§6's DYNAMICTIME/LOTIME/HITIME) into a TimeWindow the
// projector consults for acceptance, and defines a Config bundle type for
// the path-like settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/metno/gobufr/internal/logbuf"
)

// nowFunc is a var so tests can stub the clock.
var nowFunc = time.Now

// bound is one LOTIME/HITIME threshold, parsed either as an absolute
// RFC3339 Zulu timestamp or as integer seconds (a duration-ago in dynamic
// mode, a Unix timestamp in static mode), per spec.md §6.
type bound struct {
	hasAbs  bool
	abs     time.Time
	seconds int64
}

func parseBound(raw string) (bound, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return bound{hasAbs: true, abs: t}, nil
	}
	secs, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return bound{}, fmt.Errorf("config: %q is neither RFC3339 nor integer seconds", raw)
	}
	return bound{seconds: secs}, nil
}

func (b bound) resolve(now time.Time, dynamic bool) time.Time {
	if b.hasAbs {
		return b.abs
	}
	if dynamic {
		return now.Add(-time.Duration(b.seconds) * time.Second)
	}
	return time.Unix(b.seconds, 0).UTC()
}

// TimeWindow implements spec.md §4.7's acceptance test: static mode
// accepts lotime < t < hitime; dynamic mode accepts now-lotime < t <
// now-hitime.
type TimeWindow struct {
	Dynamic bool
	Lo, Hi  bound
}

// Accept reports whether t falls within the window, evaluated against the
// current time for dynamic mode.
func (w TimeWindow) Accept(t time.Time) bool {
	now := nowFunc()
	lo := w.Lo.resolve(now, w.Dynamic)
	hi := w.Hi.resolve(now, w.Dynamic)
	return t.After(lo) && t.Before(hi)
}

// Config bundles the decoder's runtime settings: the time-window
// acceptance policy plus the path-like settings. LoadEnv returns only a
// TimeWindow and does not fill a Config; cmd/gsf-bufr passes its CLI
// flags through ingest.Options, not through this struct.
type Config struct {
	Window    TimeWindow
	TableDir  string
	OscarFile string
	LogLevel  logbuf.Level
	LogFormat string // "csv" or "json"
}

// LoadEnv loads an optional .env file (ignoring its absence, matching
// godotenv's documented idiom) then reads DYNAMICTIME/LOTIME/HITIME,
// returning a best-effort TimeWindow. Malformed values are logged Warn and
// fall back to an always-accepting window (lo=zero time, hi=far future)
// rather than aborting, per §7's "malformed environment variable:
// best-effort parse, Warn".
func LoadEnv(log *logbuf.Buffer) TimeWindow {
	_ = godotenv.Load()

	w := TimeWindow{
		Lo: bound{hasAbs: true, abs: time.Time{}},
		Hi: bound{hasAbs: true, abs: time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	if raw := os.Getenv("DYNAMICTIME"); raw != "" {
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true":
			w.Dynamic = true
		case "false":
			w.Dynamic = false
		default:
			warnf(log, "DYNAMICTIME=%q is not true/false, defaulting to false", raw)
		}
	}

	if raw := os.Getenv("LOTIME"); raw != "" {
		if b, err := parseBound(raw); err == nil {
			w.Lo = b
		} else {
			warnf(log, "LOTIME=%q: %v", raw, err)
		}
	}
	if raw := os.Getenv("HITIME"); raw != "" {
		if b, err := parseBound(raw); err == nil {
			w.Hi = b
		} else {
			warnf(log, "HITIME=%q: %v", raw, err)
		}
	}

	return w
}

func warnf(log *logbuf.Buffer, format string, args ...any) {
	if log != nil {
		log.Warnf("config", "", format, args...)
	}
}
