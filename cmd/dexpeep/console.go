package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/dop251/goja"
	"github.com/spf13/cobra"

	"github.com/colorfulnotion/dexopt/dasm"
	"github.com/colorfulnotion/dexopt/ir"
	"github.com/colorfulnotion/dexopt/peephole"
)

// console is a JavaScript session over a loaded scope.
type console struct {
	vm    *goja.Runtime
	out   io.Writer
	scope ir.Scope
	path  string
}

func newConsole(out io.Writer) *console {
	c := &console{vm: goja.New(), out: out}
	c.vm.Set("peep", c.peep)
	c.vm.Set("rules", c.rules)
	c.vm.Set("load", c.load)
	c.vm.Set("run", c.run)
	c.vm.Set("show", c.show)
	c.vm.Set("print", func(args ...goja.Value) {
		for _, arg := range args {
			fmt.Fprintln(c.out, arg.Export())
		}
	})
	return c
}

func (c *console) throw(err error) {
	panic(c.vm.NewGoError(err))
}

func (c *console) eval(src string) (goja.Value, error) {
	return c.vm.RunString(src)
}

// peep optimizes a single body given as assembly lines. Fields of the loaded scope,
// if any, resolve field references.
func (c *console) peep(lines ...string) map[string]interface{} {
	insns := make([]ir.Instruction, 0, len(lines))
	for _, l := range lines {
		in, err := dasm.ParseInsn(l)
		if err != nil {
			c.throw(err)
		}
		insns = append(insns, in)
	}
	opt, err := peephole.NewOptimizer(peephole.DefaultRules(), ir.NewFieldTable(c.scope))
	if err != nil {
		c.throw(err)
	}
	m := &ir.Method{Class: "Lconsole;", Name: "peep", Code: ir.NewCode(insns...)}
	st := opt.RunMethod(m)
	return map[string]interface{}{
		"code":    showLines(m.Code.Instructions()),
		"applied": st.Applied,
	}
}

func (c *console) rules() []string {
	var names []string
	for _, r := range peephole.DefaultRules() {
		names = append(names, r.Name)
	}
	return names
}

func (c *console) load(path string) int {
	f, err := os.Open(path)
	if err != nil {
		c.throw(err)
	}
	defer f.Close()
	scope, err := dasm.Parse(f)
	if err != nil {
		c.throw(err)
	}
	c.scope, c.path = scope, path
	return len(scope.Methods())
}

func (c *console) run() map[string]interface{} {
	if c.scope == nil {
		c.throw(fmt.Errorf("nothing loaded"))
	}
	pass := &peephole.Pass{Rules: peephole.DefaultRules(), Resolver: ir.NewFieldTable(c.scope)}
	st, err := pass.Run(context.Background(), c.scope)
	if err != nil {
		c.throw(err)
	}
	return map[string]interface{}{
		"methods":         st.Methods,
		"scanned":         st.Scanned,
		"removed":         st.Removed,
		"inconsistencies": st.Inconsistencies,
		"applied":         st.Applied,
	}
}

// show returns the body of the method named "LFoo;.name".
func (c *console) show(name string) []string {
	for _, m := range c.scope.Methods() {
		if m.String() != name {
			continue
		}
		if m.Code == nil {
			return nil
		}
		return showLines(m.Code.Instructions())
	}
	c.throw(fmt.Errorf("no method %s in %q", name, c.path))
	return nil
}

func showLines(insns []ir.Instruction) []string {
	out := make([]string, len(insns))
	for i, in := range insns {
		out[i] = in.String()
	}
	return out
}

func newConsoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console [FILE.dasm]",
		Short: "Interactive JavaScript console over the optimizer",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			rl, err := readline.NewEx(&readline.Config{
				Prompt:      "> ",
				HistoryFile: filepath.Join(os.TempDir(), "dexpeep_console_history.txt"),
			})
			if err != nil {
				fatal("Failed to start readline: %v", err)
			}
			defer rl.Close()

			c := newConsole(rl.Stdout())
			if len(args) == 1 {
				if _, err := c.eval(fmt.Sprintf("load(%q)", args[0])); err != nil {
					fatal("Failed to load %s: %v", args[0], err)
				}
			}
			fmt.Fprintln(rl.Stdout(), "dexpeep console. Functions: peep(...lines), rules(), load(path), run(), show(name), print(...)")
			fmt.Fprintln(rl.Stdout(), "Type 'exit' to quit.")
			for {
				line, err := rl.Readline()
				if err != nil {
					break
				}
				line = strings.TrimSpace(line)
				if line == "exit" {
					break
				}
				if line == "" {
					continue
				}
				v, err := c.eval(line)
				if err != nil {
					fmt.Fprintln(rl.Stdout(), "error:", err)
					continue
				}
				fmt.Fprintln(rl.Stdout(), v.Export())
			}
		},
	}
}
