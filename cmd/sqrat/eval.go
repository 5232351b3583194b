package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/scanner"

	"go.uber.org/multierr"

	"github.com/substring/sqrat/internal/vm"
)

// evaluator reads one REPL line at a time:
//
//	line    = "let" ident "=" expr | expr
//	expr    = primary { "." ident [ args ] }
//	primary = number | string | "true" | "false" | "null"
//	        | "[" [ expr { "," expr } ] "]"
//	        | "{" [ field { "," field } ] "}"
//	        | "(" expr ")" | "-" number | ident [ args ]
//	field   = ( ident | string ) ":" expr
//	args    = "(" [ expr { "," expr } ] ")"
type evaluator struct {
	machine *vm.VM
	sc      scanner.Scanner
	tok     rune
	errs    error
	depth   int

	// which, when set, replaces the outermost global call.
	which func(name string, args []vm.Value) (vm.Value, error)
}

func newEvaluator(machine *vm.VM) *evaluator {
	return &evaluator{machine: machine}
}

// Eval evaluates one line against the VM globals.
func (e *evaluator) Eval(src string) (vm.Value, error) {
	e.sc.Init(strings.NewReader(src))
	e.sc.Filename = "repl"
	e.sc.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats |
		scanner.ScanStrings | scanner.ScanComments | scanner.SkipComments
	e.sc.Error = func(s *scanner.Scanner, msg string) {
		e.errs = multierr.Append(e.errs, fmt.Errorf("%s: %s", s.Position, msg))
	}
	e.errs = nil
	e.depth = 0
	e.next()

	var (
		val vm.Value
		err error
	)
	if e.tok == scanner.Ident && e.sc.TokenText() == "let" {
		val, err = e.assignment()
	} else {
		val, err = e.expr()
	}
	if err == nil && e.tok != scanner.EOF {
		err = e.errorf("unexpected %s", e.sc.TokenText())
	}
	if e.errs != nil {
		return vm.NullVal(), e.errs
	}
	return val, err
}

func (e *evaluator) next() { e.tok = e.sc.Scan() }

func (e *evaluator) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %s", e.sc.Position, fmt.Sprintf(format, args...))
}

func (e *evaluator) expect(tok rune) error {
	if e.tok != tok {
		if e.tok == scanner.EOF {
			return e.errorf("expected %s, got end of input", scanner.TokenString(tok))
		}
		return e.errorf("expected %s, got %s", scanner.TokenString(tok), e.sc.TokenText())
	}
	e.next()
	return nil
}

func (e *evaluator) ident() (string, error) {
	if e.tok != scanner.Ident {
		return "", e.errorf("expected identifier, got %s", e.sc.TokenText())
	}
	name := e.sc.TokenText()
	e.next()
	return name, nil
}

func (e *evaluator) assignment() (vm.Value, error) {
	e.next()
	name, err := e.ident()
	if err != nil {
		return vm.NullVal(), err
	}
	if err := e.expect('='); err != nil {
		return vm.NullVal(), err
	}
	val, err := e.expr()
	if err != nil {
		return vm.NullVal(), err
	}
	e.machine.SetGlobal(name, val)
	return val, nil
}

func (e *evaluator) expr() (vm.Value, error) {
	val, err := e.primary()
	for err == nil && e.tok == '.' {
		e.next()
		var name string
		if name, err = e.ident(); err != nil {
			break
		}
		if e.tok != '(' {
			member, ok := vm.Member(val, name)
			if !ok {
				return vm.NullVal(), e.errorf("the index '%s' does not exist", name)
			}
			val = member
			continue
		}
		var args []vm.Value
		if args, err = e.args(); err != nil {
			break
		}
		val, err = e.machine.CallMethod(val, name, args...)
	}
	return val, err
}

func (e *evaluator) primary() (vm.Value, error) {
	switch e.tok {
	case scanner.Int, scanner.Float:
		return e.number(false)
	case '-':
		e.next()
		if e.tok != scanner.Int && e.tok != scanner.Float {
			return vm.NullVal(), e.errorf("expected number after '-'")
		}
		return e.number(true)
	case scanner.String:
		s, err := strconv.Unquote(e.sc.TokenText())
		if err != nil {
			return vm.NullVal(), e.errorf("bad string %s", e.sc.TokenText())
		}
		e.next()
		return vm.StringVal(s), nil
	case '[':
		return e.array()
	case '{':
		return e.table()
	case '(':
		e.next()
		val, err := e.expr()
		if err != nil {
			return val, err
		}
		return val, e.expect(')')
	case scanner.Ident:
		name := e.sc.TokenText()
		e.next()
		switch name {
		case "true":
			return vm.BoolVal(true), nil
		case "false":
			return vm.BoolVal(false), nil
		case "null":
			return vm.NullVal(), nil
		}
		if e.tok == '(' {
			return e.call(name)
		}
		val, ok := e.machine.Global(name)
		if !ok {
			return vm.NullVal(), fmt.Errorf("the index '%s' does not exist", name)
		}
		return val, nil
	case scanner.EOF:
		return vm.NullVal(), e.errorf("unexpected end of input")
	}
	return vm.NullVal(), e.errorf("unexpected %s", e.sc.TokenText())
}

func (e *evaluator) number(negate bool) (vm.Value, error) {
	text := e.sc.TokenText()
	if negate {
		text = "-" + text
	}
	tok := e.tok
	e.next()
	if tok == scanner.Int {
		n, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return vm.NullVal(), e.errorf("bad integer %s", text)
		}
		return vm.IntVal(n), nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return vm.NullVal(), e.errorf("bad float %s", text)
	}
	return vm.FloatVal(f), nil
}

func (e *evaluator) array() (vm.Value, error) {
	e.next()
	var elems []vm.Value
	for e.tok != ']' {
		val, err := e.expr()
		if err != nil {
			return vm.NullVal(), err
		}
		elems = append(elems, val)
		if e.tok != ',' {
			break
		}
		e.next()
	}
	if err := e.expect(']'); err != nil {
		return vm.NullVal(), err
	}
	return vm.ObjVal(&vm.Array{Elements: elems}), nil
}

func (e *evaluator) table() (vm.Value, error) {
	e.next()
	t := vm.NewTable()
	for e.tok != '}' {
		var key string
		switch e.tok {
		case scanner.Ident:
			key = e.sc.TokenText()
		case scanner.String:
			var err error
			if key, err = strconv.Unquote(e.sc.TokenText()); err != nil {
				return vm.NullVal(), e.errorf("bad key %s", e.sc.TokenText())
			}
		default:
			return vm.NullVal(), e.errorf("expected table key, got %s", e.sc.TokenText())
		}
		e.next()
		if err := e.expect(':'); err != nil {
			return vm.NullVal(), err
		}
		val, err := e.expr()
		if err != nil {
			return vm.NullVal(), err
		}
		t.Set(key, val)
		if e.tok != ',' {
			break
		}
		e.next()
	}
	if err := e.expect('}'); err != nil {
		return vm.NullVal(), err
	}
	return vm.ObjVal(t), nil
}

func (e *evaluator) call(name string) (vm.Value, error) {
	outer := e.depth == 0
	args, err := e.args()
	if err != nil {
		return vm.NullVal(), err
	}
	if outer && e.which != nil {
		return e.which(name, args)
	}
	return e.machine.CallGlobal(name, args...)
}

func (e *evaluator) args() ([]vm.Value, error) {
	if err := e.expect('('); err != nil {
		return nil, err
	}
	e.depth++
	defer func() { e.depth-- }()

	var args []vm.Value
	for e.tok != ')' {
		val, err := e.expr()
		if err != nil {
			return nil, err
		}
		args = append(args, val)
		if e.tok != ',' {
			break
		}
		e.next()
	}
	return args, e.expect(')')
}
