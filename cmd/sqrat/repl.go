package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"go.uber.org/zap"

	"github.com/substring/sqrat/internal/vm"
)

const (
	promptMain = "sqrat> "
	helpText   = `
Expressions:
  describe(1)              call a global overload family
  let sq = Square(2.5)     bind a global
  sq.area()                call a method
  [1, 2], {a: 1}, "s"      array, table and string literals

Commands:
  :classes                 list bound classes
  :overloads [name]        list global and method overloads
  :which f(args...)        show which overload a call selects
  :nearest f Class         show the overload f picks for an instance of Class
  :export [path]           write the catalog database
  :help                    show this help
  :quit                    exit
`
)

func historyPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, name)
}

func cmdRepl(s *session, _ []string) int {
	fmt.Printf("sqrat %s\nCtrl+C cancels input, Ctrl+D exits. Type :help for commands.\n", Version)

	histPath := historyPath(s.settings.REPL.History)
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	r := &repl{session: s, eval: newEvaluator(s.vm.Machine()), out: os.Stdout}
	for {
		line, err := ln.Prompt(promptMain)
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return 0
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
			return 1
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)
		if quit := r.run(line); quit {
			return 0
		}
	}
}

// repl executes single input lines against a session.
type repl struct {
	session *session
	eval    *evaluator
	out     io.Writer
}

// run executes one line and reports whether the user asked to quit.
func (r *repl) run(line string) bool {
	if strings.HasPrefix(line, ":") {
		cmd, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)
		var err error
		switch cmd {
		case ":quit", ":q":
			return true
		case ":help":
			fmt.Fprint(r.out, helpText)
		case ":classes":
			r.classes()
		case ":overloads":
			r.overloads(rest)
		case ":which":
			err = r.which(rest)
		case ":nearest":
			err = r.nearest(rest)
		case ":export":
			err = r.export(rest)
		default:
			fmt.Fprintf(r.out, "unknown command %s. Type :help for commands.\n", cmd)
		}
		if err != nil {
			fmt.Fprintln(r.out, red(err.Error()))
		}
		return false
	}

	val, err := r.eval.Eval(line)
	if err != nil {
		r.session.logger.Debug("evaluation failed", zap.String("input", line), zap.Error(err))
		fmt.Fprintln(r.out, red(err.Error()))
		return false
	}
	fmt.Fprintln(r.out, green(val.Inspect()))
	return false
}

func (r *repl) classes() {
	for _, c := range r.session.vm.BoundClasses() {
		line := c.Name()
		if base := c.Base(); base != nil {
			line += " : " + base.Name()
		}
		fmt.Fprintln(r.out, line)
	}
}

func (r *repl) overloads(name string) {
	v := r.session.vm
	for _, s := range v.Scopes() {
		for _, fam := range s.Table().Names() {
			if name != "" && fam != name {
				continue
			}
			mode, _ := s.Mode(fam)
			for _, e := range s.Table().Entries(fam) {
				sig := e.Signature(v.Classes())
				if s.Class != nil {
					sig = s.Name() + "." + sig
				}
				fmt.Fprintf(r.out, "%s %s\n", sig, blue(mode.String()))
			}
		}
	}
}

// which resolves a global call without running it.
func (r *repl) which(src string) error {
	if src == "" {
		return errors.New("usage: :which f(args...)")
	}
	v := r.session.vm
	r.eval.which = func(name string, args []vm.Value) (vm.Value, error) {
		entry, err := v.Globals().Which(name, args...)
		if err != nil {
			return vm.NullVal(), err
		}
		return vm.StringVal(entry.Signature(v.Classes())), nil
	}
	defer func() { r.eval.which = nil }()

	val, err := r.eval.Eval(src)
	if err != nil {
		return err
	}
	s, ok := val.AsString()
	if !ok {
		return fmt.Errorf("%s is not a global call", src)
	}
	fmt.Fprintln(r.out, s)
	return nil
}

func (r *repl) nearest(args string) error {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return errors.New("usage: :nearest f Class")
	}
	v := r.session.vm
	id, ok := v.Classes().ByName(fields[1])
	if !ok {
		return fmt.Errorf("no bound class named %s", fields[1])
	}
	entry, ok := v.Table().NearestOverload(fields[0], id)
	if !ok {
		return fmt.Errorf("no overload of %s accepts %s or any of its bases", fields[0], id.Name())
	}
	fmt.Fprintln(r.out, entry.Signature(v.Classes()))
	return nil
}

func (r *repl) export(path string) error {
	if path == "" {
		path = r.session.settings.Catalog.Path
	}
	if err := exportCatalog(context.Background(), r.session, path); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "exported to %s\n", path)
	return nil
}
