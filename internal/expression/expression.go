// Package expression rewrites user-authored arithmetic and boolean
// expressions into a form safe to embed in generated C source. Identifiers
// are resolved through a layered namespace and substituted on whole-word
// boundaries only; disallowed operators are rejected up front.
package expression

import (
	"fmt"
	"strings"
)

// TranslationError reports an expression that cannot be translated.
type TranslationError struct {
	Expression string
	Detail     string
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("cannot translate expression %q: %s", e.Expression, e.Detail)
}

// Namespace is an ordered identifier mapping. The first binding of a name
// wins: system names (math functions, volume, time) are added before user
// names so user definitions cannot shadow them.
type Namespace struct {
	names map[string]string
}

// NewNamespace creates an empty namespace.
func NewNamespace() *Namespace {
	return &Namespace{names: make(map[string]string)}
}

// Add binds from to to. A name already bound keeps its first binding.
func (n *Namespace) Add(from, to string) {
	if _, exists := n.names[from]; exists {
		return
	}
	n.names[from] = to
}

// Resolve returns the binding for name, if any.
func (n *Namespace) Resolve(name string) (string, bool) {
	to, ok := n.names[name]
	return to, ok
}

// mathNames are C math-library identifiers that pass through untouched.
// Binding them first keeps user parameters from shadowing them.
var mathNames = []string{
	"abs", "fabs", "ceil", "floor", "round", "fmod",
	"exp", "log", "log2", "log10", "pow", "sqrt", "cbrt",
	"sin", "cos", "tan", "asin", "acos", "atan", "atan2",
	"sinh", "cosh", "tanh",
	"pi", "e", "inf", "nan",
}

// SystemNamespace returns a namespace pre-populated with math functions,
// the reserved volume identifier and the time variable.
func SystemNamespace() *Namespace {
	ns := NewNamespace()
	for _, name := range mathNames {
		ns.Add(name, name)
	}
	ns.Add("vol", "V")
	ns.Add("t", "t")
	return ns
}

// Translator substitutes namespace bindings into expressions and rejects
// blacklisted operators.
type Translator struct {
	ns        *Namespace
	blacklist map[string]struct{}
}

// DefaultBlacklist lists operators that are never valid in a propensity or
// rate formula: assignment, and exponentiation spellings that do not exist
// in C.
var DefaultBlacklist = []string{"=", "**"}

// NewTranslator creates a translator over ns. A nil blacklist means
// DefaultBlacklist.
func NewTranslator(ns *Namespace, blacklist []string) *Translator {
	if blacklist == nil {
		blacklist = DefaultBlacklist
	}
	bl := make(map[string]struct{}, len(blacklist))
	for _, op := range blacklist {
		bl[op] = struct{}{}
	}
	return &Translator{ns: ns, blacklist: bl}
}

// Translate rewrites expr, replacing each whole identifier through the
// namespace. Identifiers absent from the namespace are a translation error,
// as are blacklisted operators. Numbers, parentheses and arithmetic
// operators pass through verbatim.
func (t *Translator) Translate(expr string) (string, error) {
	var out strings.Builder
	for _, tok := range tokenize(expr) {
		switch tok.kind {
		case tokenIdent:
			to, ok := t.ns.Resolve(tok.text)
			if !ok {
				return "", &TranslationError{Expression: expr, Detail: fmt.Sprintf("unknown identifier %q", tok.text)}
			}
			out.WriteString(to)
		case tokenOperator:
			if _, banned := t.blacklist[tok.text]; banned {
				return "", &TranslationError{Expression: expr, Detail: fmt.Sprintf("operator %q is not allowed", tok.text)}
			}
			out.WriteString(tok.text)
		default:
			out.WriteString(tok.text)
		}
	}
	return out.String(), nil
}

type tokenKind int

const (
	tokenIdent tokenKind = iota
	tokenNumber
	tokenOperator
	tokenOther
)

type token struct {
	kind tokenKind
	text string
}

// multiCharOps are matched greedily so that "==" is never seen as two "="
// tokens and "**" is never seen as two "*".
var multiCharOps = []string{"**", "==", "!=", "<=", ">=", "&&", "||"}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// tokenize splits expr into identifiers, numbers, operators and verbatim
// runs. Identifier boundaries are exact: "AB" is one token, never "A"+"B".
func tokenize(expr string) []token {
	var toks []token
	for i := 0; i < len(expr); {
		c := expr[i]
		switch {
		case isIdentStart(c):
			j := i + 1
			for j < len(expr) && isIdentPart(expr[j]) {
				j++
			}
			toks = append(toks, token{tokenIdent, expr[i:j]})
			i = j
		case isDigit(c) || (c == '.' && i+1 < len(expr) && isDigit(expr[i+1])):
			j := i + 1
			for j < len(expr) && (isDigit(expr[j]) || expr[j] == '.') {
				j++
			}
			// Exponent suffix, e.g. 1.5e-3.
			if j < len(expr) && (expr[j] == 'e' || expr[j] == 'E') {
				k := j + 1
				if k < len(expr) && (expr[k] == '+' || expr[k] == '-') {
					k++
				}
				if k < len(expr) && isDigit(expr[k]) {
					for k < len(expr) && isDigit(expr[k]) {
						k++
					}
					j = k
				}
			}
			toks = append(toks, token{tokenNumber, expr[i:j]})
			i = j
		case c == ' ' || c == '\t':
			j := i + 1
			for j < len(expr) && (expr[j] == ' ' || expr[j] == '\t') {
				j++
			}
			toks = append(toks, token{tokenOther, expr[i:j]})
			i = j
		default:
			matched := false
			for _, op := range multiCharOps {
				if strings.HasPrefix(expr[i:], op) {
					toks = append(toks, token{tokenOperator, op})
					i += len(op)
					matched = true
					break
				}
			}
			if !matched {
				toks = append(toks, token{tokenOperator, string(c)})
				i++
			}
		}
	}
	return toks
}
