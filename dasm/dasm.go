package dasm

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/colorfulnotion/dexopt/dexerrors"
	"github.com/colorfulnotion/dexopt/ir"
)

// Parse reads classes in the directive form
//
//	.class LFoo;
//	.field field_name:I public volatile
//	.method run
//	  const v0, 22
//	.end method
//
// A method flagged abstract or native has no body and no ".end method". Text after '#' is
// a comment.
func Parse(r io.Reader) (ir.Scope, error) {
	var (
		scope  ir.Scope
		cls    *ir.Class
		method *ir.Method
		lineNo int
	)
	fail := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: line %d: %s", dexerrors.ErrBadAssembly, lineNo, fmt.Sprintf(format, args...))
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, ".") {
			if method == nil {
				return nil, fail("instruction outside method")
			}
			in, err := ParseInsn(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			method.Code.Push(in)
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case ".class":
			if method != nil {
				return nil, fail("unterminated method %s", method)
			}
			if len(fields) != 2 {
				return nil, fail(".class takes one type descriptor")
			}
			cls = &ir.Class{Type: ir.TypeRef(fields[1])}
			scope = append(scope, cls)
		case ".field":
			if cls == nil || method != nil {
				return nil, fail(".field outside class")
			}
			if len(fields) < 2 {
				return nil, fail(".field needs name:type")
			}
			name, typ, ok := strings.Cut(fields[1], ":")
			if !ok || name == "" || typ == "" {
				return nil, fail("malformed field %q", fields[1])
			}
			acc, err := parseAccess(fields[2:])
			if err != nil {
				return nil, fail("%v", err)
			}
			cls.AddField(name, ir.TypeRef(typ), acc)
		case ".method":
			if cls == nil || method != nil {
				return nil, fail(".method outside class")
			}
			if len(fields) < 2 {
				return nil, fail(".method needs a name")
			}
			acc, err := parseAccess(fields[2:])
			if err != nil {
				return nil, fail("%v", err)
			}
			if acc&(ir.AccAbstract|ir.AccNative) != 0 {
				cls.AddMethod(fields[1], acc, nil)
				continue
			}
			method = cls.AddMethod(fields[1], acc, ir.NewCode())
		case ".end":
			if method == nil || len(fields) != 2 || fields[1] != "method" {
				return nil, fail("unexpected %s", line)
			}
			method = nil
		default:
			return nil, fail("unknown directive %s", fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if method != nil {
		return nil, fail("unterminated method %s", method)
	}
	return scope, nil
}

func parseAccess(names []string) (ir.AccessFlags, error) {
	var acc ir.AccessFlags
	for _, n := range names {
		f, ok := ir.ParseAccess(n)
		if !ok {
			return 0, fmt.Errorf("unknown access flag %q", n)
		}
		acc |= f
	}
	return acc, nil
}

// Format writes scope in the form read by Parse.
func Format(w io.Writer, scope ir.Scope) error {
	bw := bufio.NewWriter(w)
	for i, cls := range scope {
		if i > 0 {
			bw.WriteString("\n")
		}
		fmt.Fprintf(bw, ".class %s\n", cls.Type)
		for _, f := range cls.Fields {
			fmt.Fprintf(bw, ".field %s:%s%s\n", f.Ref.Name, f.Ref.Type, flagSuffix(f.Access))
		}
		for _, m := range cls.Methods {
			acc := m.Access
			if m.Code == nil && acc&(ir.AccAbstract|ir.AccNative) == 0 {
				acc |= ir.AccAbstract
			}
			fmt.Fprintf(bw, ".method %s%s\n", m.Name, flagSuffix(acc))
			if m.Code == nil {
				continue
			}
			for _, in := range m.Code.Instructions() {
				fmt.Fprintf(bw, "  %s\n", in)
			}
			bw.WriteString(".end method\n")
		}
	}
	return bw.Flush()
}

func flagSuffix(acc ir.AccessFlags) string {
	if acc == 0 {
		return ""
	}
	return " " + acc.String()
}
