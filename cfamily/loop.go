package cfamily

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/soypat/polyglot/gast"
)

const notCounted = "for loop that is not a counted loop"

// forStmt lowers a counted for loop to a loop over range(begin, end, step).
// An inclusive bound moves end one step outward. The counter must not be
// assigned in the body.
func (g *generalizer) forStmt(n *sitter.Node) (gast.Stmt, error) {
	initNode := n.ChildByFieldName("initializer")
	condNode := n.ChildByFieldName("condition")
	updateNode := n.ChildByFieldName("update")
	if initNode == nil || condNode == nil || updateNode == nil {
		return nil, g.unsupported(n, notCounted)
	}
	counter, begin, err := g.loopInit(initNode)
	if err != nil {
		return nil, err
	}
	if counter == "" {
		return nil, g.unsupported(n, notCounted)
	}
	if _, ok := g.vars[counter]; !ok {
		g.vars[counter] = gast.Scalar(gast.TypeInt)
	}
	op, limitNode := g.loopCondition(condNode, counter)
	if limitNode == nil {
		return nil, g.unsupported(n, notCounted)
	}
	step, ok, err := g.loopStep(updateNode, counter)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, g.unsupported(n, notCounted)
	}
	limit, err := g.expr(limitNode)
	if err != nil {
		return nil, err
	}
	stepValue, constStep := gast.IntValue(step)
	var end gast.Expr
	switch op {
	case "<", "<=":
		if constStep && stepValue <= 0 {
			return nil, g.unsupported(n, "upward loop with non-positive step")
		}
		end = limit
		if op == "<=" {
			end = gast.AddConst(limit, 1)
		}
	case ">", ">=":
		if !constStep || stepValue >= 0 {
			return nil, g.unsupported(n, "downward loop without a negative constant step")
		}
		end = limit
		if op == ">=" {
			end = gast.AddConst(limit, -1)
		}
	}
	body, err := g.block(n.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}
	if assigns(body, counter) {
		return nil, g.unsupported(n, "loop counter "+counter+" assigned in loop body")
	}
	if constStep && stepValue == 1 {
		step = nil
	}
	return &gast.For{Target: gast.NewName(counter), Iter: gast.Range(begin, end, step), Body: body}, nil
}

// loopInit matches `int i = begin` and `i = begin`.
func (g *generalizer) loopInit(n *sitter.Node) (string, gast.Expr, error) {
	var nameNode, valueNode *sitter.Node
	switch n.Type() {
	case "declaration":
		decls := declarators(n)
		if len(decls) != 1 || decls[0].Type() != "init_declarator" {
			return "", nil, nil
		}
		nameNode, valueNode = decls[0].ChildByFieldName("declarator"), decls[0].ChildByFieldName("value")
	case "assignment_expression":
		if g.text(n.ChildByFieldName("operator")) != "=" {
			return "", nil, nil
		}
		nameNode, valueNode = n.ChildByFieldName("left"), n.ChildByFieldName("right")
	default:
		return "", nil, nil
	}
	if nameNode == nil || nameNode.Type() != "identifier" || valueNode == nil {
		return "", nil, nil
	}
	begin, err := g.expr(valueNode)
	if err != nil {
		return "", nil, err
	}
	return g.text(nameNode), begin, nil
}

var mirrored = map[string]string{"<": ">", "<=": ">=", ">": "<", ">=": "<="}

// loopCondition matches `i op limit` and `limit op i` and returns the
// operator as seen from the counter.
func (g *generalizer) loopCondition(n *sitter.Node, counter string) (string, *sitter.Node) {
	for n.Type() == "parenthesized_expression" {
		n = firstNamed(n)
	}
	if n.Type() != "binary_expression" {
		return "", nil
	}
	op := g.text(n.ChildByFieldName("operator"))
	if _, ok := mirrored[op]; !ok {
		return "", nil
	}
	left, right := n.ChildByFieldName("left"), n.ChildByFieldName("right")
	switch {
	case g.isIdent(left, counter):
		return op, right
	case g.isIdent(right, counter):
		return mirrored[op], left
	}
	return "", nil
}

// loopStep matches i++, ++i, i--, --i, i += s, i -= s, i = i + s and
// i = i - s.
func (g *generalizer) loopStep(n *sitter.Node, counter string) (gast.Expr, bool, error) {
	switch n.Type() {
	case "update_expression":
		if !g.isIdent(n.ChildByFieldName("argument"), counter) {
			return nil, false, nil
		}
		if g.text(n.ChildByFieldName("operator")) == "--" {
			return gast.Int(-1), true, nil
		}
		return gast.Int(1), true, nil
	case "assignment_expression":
		if !g.isIdent(n.ChildByFieldName("left"), counter) {
			return nil, false, nil
		}
		right := n.ChildByFieldName("right")
		switch g.text(n.ChildByFieldName("operator")) {
		case "+=":
			s, err := g.expr(right)
			return s, err == nil, err
		case "-=":
			s, err := g.expr(right)
			return negate(s), err == nil, err
		case "=":
			if right.Type() != "binary_expression" {
				return nil, false, nil
			}
			op := g.text(right.ChildByFieldName("operator"))
			l, r := right.ChildByFieldName("left"), right.ChildByFieldName("right")
			var stepNode *sitter.Node
			switch {
			case g.isIdent(l, counter) && (op == "+" || op == "-"):
				stepNode = r
			case g.isIdent(r, counter) && op == "+":
				stepNode = l
			default:
				return nil, false, nil
			}
			s, err := g.expr(stepNode)
			if err != nil {
				return nil, false, err
			}
			if op == "-" {
				s = negate(s)
			}
			return s, true, nil
		}
	}
	return nil, false, nil
}

func (g *generalizer) isIdent(n *sitter.Node, name string) bool {
	return n != nil && n.Type() == "identifier" && g.text(n) == name
}

func negate(e gast.Expr) gast.Expr {
	if e == nil {
		return nil
	}
	if v, ok := gast.IntValue(e); ok {
		return gast.AddConst(gast.Int(0), -v)
	}
	return &gast.UnaryOp{Op: gast.USub, Operand: e}
}

// assigns reports whether any statement in body assigns to name.
func assigns(body []gast.Stmt, name string) bool {
	return gast.AssignedNames(body)[name]
}
