// Package ast defines the AST contract consumed from the (out-of-scope)
// parser: a finite set of node kinds, a thin Node struct, and the
// annotations the stack allocator (internal/frame) and CST builder
// (internal/cst) attach to it during their respective passes. Generalized
// from the teacher's ir.NodeType/ir.Node (ir/nodetype.go), which plays the
// identical role for VSLC's AST.
package ast

import "fmt"

// Kind differentiates the nodes of the DSL's AST (spec.md §4, §6).
type Kind int

const (
	// Top-level structure.
	Program Kind = iota
	BeginBlock
	MainBlock
	EndBlock
	FuncDef
	SubrDef
	ParamList
	Param

	// Statement containers.
	StatementBlock // a lexical block: if-arm body, loop body, func/subr body

	// Statements.
	IfStatement
	IfArm // (cond, body) pair; last arm may have nil cond for else
	WhileStatement
	DoWhileStatement
	TripleForStatement
	ForSrecStatement
	ForOosvarKVStatement
	ForOosvarKStatement
	ForLocalKVStatement
	ForLocalKStatement
	BreakStatement
	ContinueStatement
	ReturnStatement
	BareBooleanStatement // filter-mode final bare-boolean statement
	CondBlockStatement   // "expr { body }"
	FilterStatement
	CallStatement // subroutine call-site

	SrecAssign
	SrecIndirectAssign
	FullSrecFromOosvarAssign
	FullOosvarFromSrecAssign
	OosvarAssign
	LocalAssign
	LocalVarDecl
	EnvAssign

	EmitStatement
	EmitFStatement
	EmitPStatement
	TeeStatement
	PrintStatement
	PrintNStatement
	DumpStatement
	UnsetStatement
	UnsetAllStatement

	// Expressions and leaves (opaque to the CST beyond structure; scalar
	// sub-expressions are built by the external rval evaluator).
	Expression
	KeylistElement
	KeylistElements
	NameList
	LashGroup // "emit (@a, @b), ..." target list; Children are the lashed target expr nodes
	Identifier
	StringLiteral
	IntLiteral
	FloatLiteral
	BoolLiteral
	TypeName
)

var kindNames = [...]string{
	"Program", "BeginBlock", "MainBlock", "EndBlock", "FuncDef", "SubrDef",
	"ParamList", "Param", "StatementBlock", "IfStatement", "IfArm",
	"WhileStatement", "DoWhileStatement", "TripleForStatement",
	"ForSrecStatement", "ForOosvarKVStatement", "ForOosvarKStatement",
	"ForLocalKVStatement", "ForLocalKStatement", "BreakStatement",
	"ContinueStatement", "ReturnStatement", "BareBooleanStatement",
	"CondBlockStatement", "FilterStatement", "CallStatement", "SrecAssign",
	"SrecIndirectAssign", "FullSrecFromOosvarAssign", "FullOosvarFromSrecAssign",
	"OosvarAssign", "LocalAssign", "LocalVarDecl", "EnvAssign",
	"EmitStatement", "EmitFStatement", "EmitPStatement", "TeeStatement",
	"PrintStatement", "PrintNStatement", "DumpStatement", "UnsetStatement",
	"UnsetAllStatement", "Expression", "KeylistElement", "KeylistElements",
	"NameList", "LashGroup", "Identifier", "StringLiteral", "IntLiteral",
	"FloatLiteral", "BoolLiteral", "TypeName",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// TypeMask is the declared-type annotation carried by LocalVarDecl/Param
// nodes and enforced on every assignment into that slot (§3).
type TypeMask int

const (
	MaskAny TypeMask = iota
	MaskNumeric
	MaskInt
	MaskFloat
	MaskBoolean
	MaskString
	MaskMap
)

func (m TypeMask) String() string {
	switch m {
	case MaskAny:
		return "var"
	case MaskNumeric:
		return "num"
	case MaskInt:
		return "int"
	case MaskFloat:
		return "float"
	case MaskBoolean:
		return "bool"
	case MaskString:
		return "str"
	case MaskMap:
		return "map"
	default:
		return "?"
	}
}

// Node is one node of the AST. FrameIndex, SubframeVarCount and MaxVarDepth
// are -1/0 respectively until the stack-allocate pass (internal/frame) has
// run; the CST builder (internal/cst) requires them to already be set.
type Node struct {
	Kind     Kind
	Token    string      // source text, e.g. identifier name or literal text
	Line     int
	Col      int
	Data     interface{} // literal value (string/int64/float64/bool) for leaf kinds
	Children []*Node

	// Set by internal/frame's two-pass allocator (§4.1).
	FrameIndex       int      // frame-relative slot index for a declaring/use node; -1 if not applicable
	DeclMask         TypeMask // declared type mask, for LocalVarDecl/Param nodes
	SubframeVarCount int      // for StatementBlock/top-level-block nodes: slots newly allocated within
	MaxVarDepth      int      // for top-level block nodes only: peak slot counter value
}

// NewNode returns a Node with FrameIndex defaulted to -1 (unresolved).
func NewNode(kind Kind, line, col int, children ...*Node) *Node {
	return &Node{Kind: kind, Line: line, Col: col, Children: children, FrameIndex: -1}
}

// IsDeclaring reports whether n introduces a new name into the current
// lexical scope (§4.1): typed var declarations, loop-bound names, and
// function/subroutine parameters.
func (n *Node) IsDeclaring() bool {
	switch n.Kind {
	case LocalVarDecl, Param:
		return true
	default:
		return false
	}
}

// IsBlock reports whether n opens a new lexical scope whose exit should pop
// the declaration-scope chain (§4.1). This includes plain nested blocks and
// every loop-family statement, since a for/while header may itself declare
// loop-bound names (key/value variables, triple-for init) that must go out
// of scope together with the loop body.
func (n *Node) IsBlock() bool {
	switch n.Kind {
	case StatementBlock, IfArm, CondBlockStatement,
		WhileStatement, DoWhileStatement, TripleForStatement,
		ForSrecStatement, ForOosvarKVStatement, ForOosvarKStatement,
		ForLocalKVStatement, ForLocalKStatement:
		return true
	default:
		return false
	}
}

// IsTopLevelBlock reports whether n is a begin/main/end/func/subr body: a
// unit that gets its own frame and its own next-slot counter (§4.1).
func (n *Node) IsTopLevelBlock() bool {
	switch n.Kind {
	case BeginBlock, MainBlock, EndBlock, FuncDef, SubrDef:
		return true
	default:
		return false
	}
}

// String renders n for trace/debug printing, grounded on ir.Node.String's
// "Kind [Data]" shape (ir/nodetype.go).
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	if n.Data != nil {
		return fmt.Sprintf("%s [%v]", n.Kind, n.Data)
	}
	if n.Token != "" {
		return fmt.Sprintf("%s %q", n.Kind, n.Token)
	}
	return n.Kind.String()
}

// Print recursively prints n and its children, indenting per depth — the
// trace-mode pretty-printer named in §4.4, grounded on ir.Node.Print
// (ir/nodetype.go).
func (n *Node) Print(depth int) string {
	if n == nil {
		return ""
	}
	s := fmt.Sprintf("%*c%s\n", depth<<1, ' ', n.String())
	for _, c := range n.Children {
		s += c.Print(depth + 1)
	}
	return s
}
