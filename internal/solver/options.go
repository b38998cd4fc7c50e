package solver

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Options is the engine-specific option bundle handed to a solve. Options
// are ordered key=value strings in whatever vocabulary the engine expects.
type Options struct {
	pairs []string
}

// Add appends one engine option
func (o *Options) Add(key, value string) {
	o.pairs = append(o.pairs, fmt.Sprintf("%s=%s", key, value))
}

// Get returns the value of the named option
func (o Options) Get(key string) (string, bool) {
	prefix := key + "="
	for _, p := range o.pairs {
		if strings.HasPrefix(p, prefix) {
			return strings.TrimPrefix(p, prefix), true
		}
	}
	return "", false
}

// Empty reports whether no options were set
func (o Options) Empty() bool {
	return len(o.pairs) == 0
}

// Strings returns the option strings in insertion order
func (o Options) Strings() []string {
	return append([]string(nil), o.pairs...)
}

func (o Options) String() string {
	return strings.Join(o.pairs, " ")
}

// Config is the logical solver selection mapped onto engine options
type Config struct {
	Engine    string
	LogFile   string
	TimeLimit time.Duration
	MIPGap    float64
}

// Configure maps a logical solver choice onto engine-specific option
// strings. Recognized engines always get their log redirected to the
// configured file; time limit and optimality gap are appended when set.
// An unrecognized engine yields an empty bundle and a warning on warn; the
// run proceeds with engine defaults.
func Configure(cfg Config, warn io.Writer) Options {
	var opts Options

	switch cfg.Engine {
	case "gurobi":
		// reference with list of option names
		// https://www.gurobi.com/documentation/current/refman/parameters.html
		opts.Add("logfile", cfg.LogFile)
		if cfg.TimeLimit > 0 {
			opts.Add("timelimit", fmt.Sprintf("%d", int(cfg.TimeLimit.Seconds())))
		}
		if cfg.MIPGap > 0 {
			opts.Add("mipgap", fmt.Sprintf("%g", cfg.MIPGap))
		}
	case "glpk":
		// reference with list of options
		// execute 'glpsol --help'
		opts.Add("log", cfg.LogFile)
		if cfg.TimeLimit > 0 {
			opts.Add("tmlim", fmt.Sprintf("%d", int(cfg.TimeLimit.Seconds())))
		}
		if cfg.MIPGap > 0 {
			opts.Add("mipgap", fmt.Sprintf("%g", cfg.MIPGap))
		}
	case "dispatch":
		// bundled reference engine, takes a plain log redirect
		opts.Add("logfile", cfg.LogFile)
	default:
		if warn != nil {
			fmt.Fprintf(warn, "warning: no options set for solver %q\n", cfg.Engine)
		}
	}

	return opts
}
