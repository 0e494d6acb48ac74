package exprtree

import (
	"maps"
	"strconv"
	"unicode"
)

// ParseOption is an option for parsing.
type ParseOption interface {
	parseOption(parsectx) parsectx
}

type (
	funcopt struct {
		name FuncName
		fn   Func
	}
	funcsopt map[FuncName]Func
	eofopt   struct {
		c, s bool
		ws   string
	}
	implicitopt bool
)

// parsectx holds general data for parsing. It is also a ParseOption.
type parsectx struct {
	// funcs is the set of function names that trigger special parsing for ids.
	funcs map[FuncName]Func
	// resv is a reserved parsed node. parseident sets this when it parses a
	// single parenthesized term after a niladic function so that the parser
	// can back it out to an implicit multiplication.
	resv *Node
	// wseof is a string containing the whitespace characters that trigger an
	// EOF token from the lexer.
	wseof string
	// ceof and seof indicate whether commas and semicolons, respectively, are
	// allowed at the end of an expression.
	ceof, seof bool
	// nodefaults indicates that parse options have set all default functions.
	nodefaults bool
	// explicit disables implicit multiplication.
	explicit bool
}

func (p *parsectx) checkdefaults() {
	if p.nodefaults {
		return
	}
	n := 0
	for k := range p.funcs {
		if _, ok := builtins[k]; ok {
			n++
		}
	}
	if n == len(builtins) {
		p.nodefaults = true
	}
}

// ParseFunc sets a function for parsing. To disable parsing a function, pass
// nil for fn.
//
// Whether a name is a known function only changes how it parses without
// parentheses: a known function of one argument takes the following term as
// its argument, as in "exp x", and a known function of no arguments is a call,
// as in "pi". Any name followed by a parenthesized argument list is a call.
func ParseFunc(name FuncName, fn Func) ParseOption {
	return &funcopt{name, fn}
}

func (o *funcopt) parseOption(p parsectx) parsectx {
	if p.funcs == nil {
		p.funcs = map[FuncName]Func{}
	}
	p.funcs[o.name] = o.fn
	return p
}

// ParseFuncs sets a group of functions for parsing. To disable parsing any
// function, set it to nil.
func ParseFuncs(fns map[FuncName]Func) ParseOption {
	return funcsopt(fns)
}

func (o funcsopt) parseOption(p parsectx) parsectx {
	if p.funcs == nil {
		// Always make a copy.
		p.funcs = make(map[FuncName]Func, len(o))
	}
	maps.Copy(p.funcs, o)
	p.checkdefaults()
	return p
}

// DisableDefaultFuncs disables all default functions during parsing. Their
// names will be parsed as references instead.
func DisableDefaultFuncs() ParseOption {
	return disablefns
}

var disablefns = func() funcsopt {
	o := make(funcsopt, len(builtins))
	for k := range builtins {
		o[k] = nil
	}
	return o
}()

// ParseEnv tells the parser to recognize exactly the functions of env.
func ParseEnv(env *Env) ParseOption {
	o := make(funcsopt, len(builtins)+len(env.funcs))
	maps.Copy(o, disablefns)
	maps.Copy(o, env.funcs)
	return o
}

// ImplicitMul sets whether juxtaposed terms, as in "2 x" or "(a)(b)", are
// multiplied. It is on by default. When it is off, juxtaposition is an error.
func ImplicitMul(on bool) ParseOption {
	return implicitopt(on)
}

func (o implicitopt) parseOption(p parsectx) parsectx {
	p.explicit = !bool(o)
	return p
}

// StopOn tells the parser to treat a list of characters as ending the
// expression. Each rune must be a comma, semicolon, or whitespace codepoint.
// Whitespace does not end an expression where a term is expected, e.g. at the
// beginning of an expression or following an operator or bracket. Commas and
// semicolons do not end expressions inside bracketed argument lists.
//
// StopOn overrides the effect of any previous StopOn in the parsing options,
// including in presets. With no arguments, StopOn produces the default
// termination behavior, which is to parse to EOF.
func StopOn(chars ...rune) ParseOption {
	var o eofopt
	v := make([]rune, 0, len(chars))
	have := func(r rune) bool {
		for _, c := range v {
			if r == c {
				return true
			}
		}
		return false
	}
	for _, r := range chars {
		switch {
		case r == ',':
			o.c = true
		case r == ';':
			o.s = true
		case unicode.IsSpace(r):
			if have(r) {
				continue
			}
			v = append(v, r)
		default:
			panic("exprtree: cannot stop on " + strconv.QuoteRune(r))
		}
	}
	o.ws = string(v)
	return &o
}

func (o *eofopt) parseOption(p parsectx) parsectx {
	p.ceof = o.c
	p.seof = o.s
	p.wseof = o.ws
	return p
}

// ParsingPreset creates a parsing preset that may be more efficient when using
// the same non-default parsing options for many calls to Parse. A preset
// panics when it would change any option from the default, but it is safe to
// apply other options after a preset.
func ParsingPreset(opts ...ParseOption) ParseOption {
	var p parsectx
	for _, opt := range opts {
		p = opt.parseOption(p)
	}
	if p.funcs != nil {
		// If we've set any functions, add unset default ones now.
		for k, v := range builtins {
			if _, ok := p.funcs[k]; !ok {
				p.funcs[k] = v
			}
		}
		p.nodefaults = true
	}
	return &p
}

func (o *parsectx) parseOption(p parsectx) parsectx {
	if p.funcs != nil || p.wseof != "" || p.ceof || p.seof || p.explicit {
		panic("exprtree: preset applied to non-default parse config")
	}
	p.funcs = o.funcs
	p.nodefaults = o.nodefaults
	p.wseof, p.ceof, p.seof = o.wseof, o.ceof, o.seof
	p.explicit = o.explicit
	return p
}
