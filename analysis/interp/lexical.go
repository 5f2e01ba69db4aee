package interp

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/Maokami/esmeta/ir"
)

// Lexical evaluates a syntax-directed operation on a lexical AST node.
// Lexical operations are value computations over the raw source text,
// so no call is registered; the result is produced directly.
func Lexical(lex *ir.Lexical, method string) (ir.SimpleValue, error) {
	str := lex.Str()
	switch method {
	case "StringValue", "SV", "TV", "TRV", "BodyText", "SourceText":
		return ir.Str(str), nil
	case "MV", "NumericValue":
		s := strings.ReplaceAll(str, "_", "")
		if r, ok := parseNumeric(s); ok {
			return ir.MathRat(r), nil
		}
		return nil, fmt.Errorf("invalid numeric literal %q", str)
	case "Contains":
		return ir.Bool(false), nil
	default:
		return nil, fmt.Errorf("unknown lexical operation %s on |%s|", method, lex.Name())
	}
}

func parseNumeric(s string) (*big.Rat, bool) {
	for prefix, base := range map[string]int{
		"0x": 16, "0X": 16, "0o": 8, "0O": 8, "0b": 2, "0B": 2,
	} {
		if strings.HasPrefix(s, prefix) {
			n, ok := new(big.Int).SetString(s[len(prefix):], base)
			if !ok {
				return nil, false
			}
			return new(big.Rat).SetInt(n), true
		}
	}
	return new(big.Rat).SetString(s)
}
