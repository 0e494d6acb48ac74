package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"

	"github.com/zephyrtronium/exprtree"
	"github.com/zephyrtronium/exprtree/number"
)

type config struct {
	verb       string
	echo, tree bool
	fold       bool
}

func main() {
	log.SetFlags(0)
	var (
		inname, verb string
		with         [][2]string
		nl, echo     bool
		tree, fold   bool
		decimal      bool
		prec         int
	)
	addwith := func(s string) error {
		d := strings.SplitN(s, "=", 2)
		if len(d) != 2 {
			return fmt.Errorf(`formula definitions must be "name=expr", not %q`, s)
		}
		with = append(with, [2]string{strings.TrimSpace(d[0]), strings.TrimSpace(d[1])})
		return nil
	}
	flag.StringVar(&inname, "in", "", "input file (default stdin if no args given)")
	flag.StringVar(&verb, "fmt", "%v", "result formatting string")
	flag.Func("given", "name=expr formula definition (any number of times)", addwith)
	flag.IntVar(&prec, "p", int(number.DefaultPrecision), "significant digits of decimal calculations")
	flag.BoolVar(&decimal, "decimal", false, "calculate with decimals instead of floats")
	flag.BoolVar(&nl, "n", false, "parse separate input lines as separate expressions")
	flag.BoolVar(&echo, "echo", false, "print parsed expressions")
	flag.BoolVar(&tree, "tree", false, "print parse trees")
	flag.BoolVar(&fold, "fold", false, "fold constant subexpressions before evaluating")
	flag.Parse()
	if prec <= 0 {
		log.Fatalf("precision (%d) must be positive", prec)
	}

	forms := exprtree.NewFormulas()
	opts := []exprtree.EnvOption{
		exprtree.Prec(uint32(prec)),
		exprtree.WithResolver(forms),
	}
	if decimal {
		opts = append(opts, exprtree.NumberKind(number.Decimal))
	}
	env := exprtree.NewEnv(opts...)
	cfg := config{
		verb: verb + "\n",
		echo: echo,
		tree: tree,
		fold: fold,
	}
	for _, d := range with {
		if err := define(env, forms, d[0], d[1]); err != nil {
			log.Fatalf("defining %s: %v", d[0], err)
		}
	}
	cycles, err := forms.Cycles()
	if err != nil {
		log.Fatal(err)
	}
	for _, c := range cycles {
		log.Printf("warning: formulas %v depend on each other", c)
	}

	if inname == "" && flag.NArg() == 0 && isatty.IsTerminal(os.Stdin.Fd()) {
		repl(env, forms, cfg)
		return
	}

	var ins []io.RuneScanner
	f, err := infile(inname, flag.NArg() == 0)
	if err != nil {
		log.Fatal(err)
	}
	if f != nil {
		ins = append(ins, f)
	}
	for _, arg := range flag.Args() {
		ins = append(ins, strings.NewReader(arg))
	}

	popts := []exprtree.ParseOption{exprtree.ParseEnv(env)}
	if nl {
		popts = append(popts, exprtree.StopOn('\n'))
	}
	var p []*exprtree.Node
	for _, in := range ins {
		for {
			// First check whether we're done with the input.
			if _, _, err := in.ReadRune(); err != nil {
				if err == io.EOF {
					break
				}
				log.Fatal(err)
			}
			in.UnreadRune()
			a, err := exprtree.Parse(in, popts...)
			if err != nil {
				log.Fatal(err)
			}
			p = append(p, a)
		}
	}

	for _, a := range p {
		if err := show(os.Stdout, env, a, cfg); err != nil {
			fmt.Println(err)
		}
	}
}

// define parses a formula and adds it.
func define(env *exprtree.Env, forms *exprtree.Formulas, name, src string) error {
	n, err := exprtree.ParseString(src, exprtree.ParseEnv(env))
	if err != nil {
		return err
	}
	return forms.Set(exprtree.Reference(name), n)
}

// show evaluates an expression and prints the result with whatever else cfg
// asks for.
func show(w io.Writer, env *exprtree.Env, a *exprtree.Node, cfg config) error {
	if cfg.fold {
		f, err := exprtree.Fold(env, a)
		if err != nil {
			return err
		}
		a = f
	}
	if cfg.tree {
		fmt.Fprint(w, exprtree.Dump(a))
	}
	if cfg.echo {
		fmt.Fprintf(w, "%v : ", a)
	}
	r, err := a.Eval(env)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, cfg.verb, r)
	return nil
}

const historyFile = ".exprtree_history"

// repl reads expressions and formula definitions interactively. A line of the
// form "name := expr" defines a formula.
func repl(env *exprtree.Env, forms *exprtree.Formulas, cfg config) {
	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	if f, err := os.Open(histPath); err == nil {
		ln.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			ln.WriteHistory(f)
			f.Close()
		}
	}()

	for {
		line, err := ln.Prompt("> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Println()
			return
		}
		if err != nil {
			log.Print(err)
			return
		}
		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case ":quit":
			return
		case ":formulas":
			listFormulas(os.Stdout, forms)
			ln.AppendHistory(line)
			continue
		}
		ln.AppendHistory(line)
		if name, src, ok := strings.Cut(line, ":="); ok {
			if err := define(env, forms, strings.TrimSpace(name), src); err != nil {
				fmt.Println(err)
			}
			continue
		}
		a, err := exprtree.ParseString(line, exprtree.ParseEnv(env))
		if err != nil {
			fmt.Println(err)
			continue
		}
		if err := show(os.Stdout, env, a, cfg); err != nil {
			fmt.Println(err)
		}
	}
}

// listFormulas prints the formulas in evaluation order.
func listFormulas(w io.Writer, forms *exprtree.Formulas) {
	order, err := forms.Order()
	if err != nil {
		fmt.Fprintln(w, err)
		order = forms.Names()
	}
	for _, name := range order {
		n, _ := forms.Lookup(name)
		fmt.Fprintf(w, "%s := %v\n", name, n)
	}
}

func infile(inname string, std bool) (io.RuneScanner, error) {
	var f *os.File
	switch {
	case inname != "" && inname != "-":
		in, err := os.Open(inname)
		if err != nil {
			return nil, err
		}
		f = in
	case inname == "-", std:
		f = os.Stdin
	}
	if f == nil {
		return nil, nil
	}
	return bufio.NewReader(f), nil
}
