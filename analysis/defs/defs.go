package defs

import (
	u "github.com/Maokami/esmeta/utils"

	c "github.com/fatih/color"
)

var colorize = struct {
	Point func(...interface{}) string
	View  func(...interface{}) string
	Site  func(...interface{}) string
}{
	Point: func(is ...interface{}) string {
		return u.CanColorize(c.New(c.FgHiBlue).SprintFunc())(is...)
	},
	View: func(is ...interface{}) string {
		return u.CanColorize(c.New(c.FgHiMagenta).SprintFunc())(is...)
	},
	Site: func(is ...interface{}) string {
		return u.CanColorize(c.New(c.FgHiCyan).SprintFunc())(is...)
	},
}
