// Package report renders scopes, rewrites and statistics for people.
package report

import (
	"fmt"

	"github.com/xlab/treeprint"

	"github.com/colorfulnotion/dexopt/ir"
)

// ScopeTree lays out scope as class -> method -> instruction. With bodies false only the
// instruction count of each method is shown.
func ScopeTree(scope ir.Scope, bodies bool) treeprint.Tree {
	tree := treeprint.New()
	tree.SetValue(fmt.Sprintf("scope (%d classes)", len(scope)))
	for _, cls := range scope {
		cb := tree.AddBranch(string(cls.Type))
		for _, f := range cls.Fields {
			cb.AddMetaNode("field", fmt.Sprintf("%s:%s %s", f.Ref.Name, f.Ref.Type, f.Access))
		}
		for _, m := range cls.Methods {
			if m.Code == nil {
				cb.AddMetaNode("no body", m.Name)
				continue
			}
			if !bodies {
				cb.AddMetaNode(m.Code.Len(), m.Name)
				continue
			}
			mb := cb.AddBranch(m.Name)
			for _, in := range m.Code.Instructions() {
				mb.AddNode(in.String())
			}
		}
	}
	return tree
}
