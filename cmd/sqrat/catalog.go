package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/substring/sqrat/internal/catalog"
	sqrat "github.com/substring/sqrat/pkg/embed"
)

// catalogScopes lists every overload table of v for export.
func catalogScopes(v *sqrat.VM) []catalog.Scope {
	var out []catalog.Scope
	for _, s := range v.Scopes() {
		s := s
		out = append(out, catalog.Scope{
			Name:  s.Name(),
			Table: s.Table(),
			Mode: func(name string) string {
				if m, ok := s.Mode(name); ok {
					return m.String()
				}
				return ""
			},
		})
	}
	return out
}

func exportCatalog(ctx context.Context, s *session, path string) error {
	c, err := catalog.Open(ctx, path, s.logger)
	if err != nil {
		return err
	}
	defer c.Close()
	return c.Export(ctx, s.vm.Classes(), catalogScopes(s.vm))
}

func cmdCatalog(s *session, args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}
	sub := args[0]
	fs := flag.NewFlagSet("catalog "+sub, flag.ContinueOnError)
	dbPath := fs.String("db", s.settings.Catalog.Path, "catalog database")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	ctx := context.Background()

	if sub == "export" {
		if err := exportCatalog(ctx, s, *dbPath); err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
			return 1
		}
		fmt.Printf("exported %d classes to %s\n", s.vm.Classes().Len(), *dbPath)
		return 0
	}

	c, err := catalog.Open(ctx, *dbPath, s.logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		return 1
	}
	defer c.Close()

	switch sub {
	case "classes":
		classes, err := c.Classes(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
			return 1
		}
		printClasses(os.Stdout, classes)
	case "overloads", "accepting":
		var overloads []catalog.Overload
		if sub == "overloads" {
			overloads, err = c.Overloads(ctx, fs.Arg(0))
		} else if fs.NArg() != 1 {
			fmt.Fprintln(os.Stderr, "catalog accepting needs a type name")
			return 2
		} else {
			overloads, err = c.Accepting(ctx, fs.Arg(0))
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
			return 1
		}
		printOverloads(os.Stdout, overloads)
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown catalog command %q\n", appName, sub)
		return 2
	}
	return 0
}

func printClasses(w io.Writer, classes []catalog.Class) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CLASS\tBASE\tTOKEN")
	for _, c := range classes {
		base := c.Base
		if base == "" {
			base = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, base, c.Token)
	}
	tw.Flush()
}

func printOverloads(w io.Writer, overloads []catalog.Overload) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCOPE\tSIGNATURE\tKEYS\tMODE")
	for _, o := range overloads {
		scope := o.Scope
		if scope == "" {
			scope = "(global)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", scope, o.Signature, o.Keys, o.Mode)
	}
	tw.Flush()
}
