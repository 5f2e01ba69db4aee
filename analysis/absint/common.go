package absint

import (
	"fmt"

	"github.com/Maokami/esmeta/utils"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// log is the analyzer's structured logger. Debug-level events trace
// call edges and worklist progress; warnings flag dubious IR such as
// arity mismatches.
var log = logrus.New()

// Logger exposes the analyzer logger for driver configuration.
func Logger() *logrus.Logger { return log }

var colorize = struct {
	Node func(...interface{}) string
	Expr func(...interface{}) string
	Fail func(...interface{}) string
}{
	Node: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiBlue).SprintFunc())(is...)
	},
	Expr: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgCyan).SprintFunc())(is...)
	},
	Fail: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiRed).SprintFunc())(is...)
	},
}

// ExplodedError signals precision loss the abstract domain cannot
// safely approximate. It aborts the enclosing transfer application and
// names the imprecise site; it is an analysis failure, not a bug in the
// analyzed program.
type ExplodedError struct {
	Tag string
}

func (e ExplodedError) Error() string {
	return "analysis exploded at " + e.Tag
}

// exploded aborts the current transfer application.
func exploded(tag string) {
	panic(ExplodedError{Tag: tag})
}

// irError signals malformed IR, such as an invalid SDO target. These
// should not occur if the CFG is well-formed.
func irError(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
