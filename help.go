package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/lexandro/ff/attr"
	"github.com/lexandro/ff/builtin"
	"github.com/lexandro/ff/search"
	"github.com/lexandro/ff/types"
)

// runHelp handles the help commands. done is false when no help command
// was requested and the search should proceed.
func runHelp(c *cli.Context, pluginDirs []string) (int, bool) {
	switch {
	case c.String("help-plugin") != "":
		return helpPlugin(c.String("help-plugin"), pluginDirs), true
	case c.Bool("help-all"), c.Bool("help-full"):
		cli.ShowAppHelp(c)
		return search.ExitOK, true
	case c.Bool("help-attributes"):
		return helpAttributes(pluginDirs), true
	case c.Bool("help-plugins"):
		return helpPlugins(pluginDirs), true
	case c.Bool("help-types"):
		helpTypes()
		return search.ExitOK, true
	}
	return search.ExitOK, false
}

func helpRegistry(pluginDirs []string) (*attr.Registry, error) {
	reg := attr.NewRegistry()
	if err := builtin.Register(reg); err != nil {
		return nil, err
	}
	if err := attr.LoadPlugins(reg, pluginDirs); err != nil {
		return nil, err
	}
	return reg, nil
}

func helpAttributes(pluginDirs []string) int {
	reg, err := helpRegistry(pluginDirs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ff: %v\n", err)
		return search.ExitCode(err)
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ATTRIBUTE\tTYPE\tCACHED\tHELP")
	for _, a := range reg.Attributes() {
		desc, _ := reg.Descriptor(a)
		cached := ""
		if desc.Cacheable {
			cached = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a, desc.Kind, cached, desc.Help)
	}
	w.Flush()
	return search.ExitOK
}

func helpPlugins(pluginDirs []string) int {
	reg, err := helpRegistry(pluginDirs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ff: %v\n", err)
		return search.ExitCode(err)
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PLUGIN\tATTRIBUTES")
	for _, name := range reg.Plugins() {
		p, _ := reg.Provider(name)
		count := len(p.Descriptors())
		fmt.Fprintf(w, "%s\t%d\n", name, count)
	}
	w.Flush()
	return search.ExitOK
}

func helpPlugin(name string, pluginDirs []string) int {
	reg, err := helpRegistry(pluginDirs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ff: %v\n", err)
		return search.ExitCode(err)
	}

	p, ok := reg.Provider(name)
	if !ok {
		fmt.Fprintf(os.Stderr, "ff: no such plugin %q\n", name)
		return search.ExitUsage
	}

	fmt.Printf("Plugin %s\n\n", name)
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ATTRIBUTE\tTYPE\tHELP")
	for _, desc := range p.Descriptors() {
		fmt.Fprintf(w, "%s.%s\t%s\t%s\n", name, desc.Name, desc.Kind, desc.Help)
	}
	w.Flush()
	return search.ExitOK
}

func helpTypes() {
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tOPERATORS\tCOUNT")
	for _, kind := range types.Kinds() {
		t := types.Lookup(kind)
		ops := ""
		for i, op := range t.Operators {
			if i > 0 {
				ops += " "
			}
			ops += string(op)
		}
		count := "tally"
		switch t.Count {
		case types.CountSum:
			count = "sum"
		case types.Uncountable:
			count = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", kind, ops, count)
	}
	w.Flush()
}
