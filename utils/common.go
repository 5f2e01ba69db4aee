package utils

import (
	"fmt"
	"strings"
)

type options struct {
	noColorize bool
	verbose    bool
}

var opts = options{
	noColorize: true,
}

// Opts exposes the global analyzer options.
func Opts() *options {
	return &opts
}

func (o *options) Verbose() bool {
	return o.verbose
}

func (o *options) SetVerbose(v bool) {
	o.verbose = v
}

// Colorize enables or disables colorized pretty-printing globally.
func (o *options) Colorize(enabled bool) {
	o.noColorize = !enabled
}

// CanColorize gates a color.SprintFunc behind the global colorization flag.
func CanColorize(col func(...interface{}) string) func(...interface{}) string {
	if opts.noColorize {
		return func(is ...interface{}) string {
			return fmt.Sprintf(strings.Repeat("%s", len(is)), is...)
		}
	}
	return col
}

func VerbosePrint(format string, a ...interface{}) (n int, err error) {
	if Opts().Verbose() {
		return fmt.Printf(format, a...)
	}
	return 0, nil
}
