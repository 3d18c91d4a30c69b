package cfamily

import (
	"strconv"
	"strings"

	"github.com/soypat/polyglot/gast"
)

// importHeaders maps Python modules to the headers that provide their C++
// counterparts.
var importHeaders = map[string]string{
	"numpy": "<cmath>", "math": "<cmath>", "sys": "<cstdlib>", "__future__": "",
}

func (u *unparser) stmt(s gast.Stmt) error {
	switch s := s.(type) {
	case *gast.FunctionDef:
		return u.functionDef(s)
	case *gast.AnnAssign:
		return u.annAssign(s)
	case *gast.Assign:
		return u.assign(s)
	case *gast.AugAssign:
		switch s.Op {
		case gast.Pow, gast.MatMult:
			return u.unsupported(s, "augmented "+s.Op.String())
		}
		if s.Op.Class() != gast.KindBinOp {
			return u.unsupported(s, "operator "+s.Op.String())
		}
		target, err := u.expr(s.Target)
		if err != nil {
			return err
		}
		value, err := u.expr(s.Value)
		if err != nil {
			return err
		}
		if fn, ok := u.flooring(s.Op, gast.Truncating(s)); ok {
			u.line(target + " = " + fn + "(" + target + ", " + value + ");")
			return nil
		}
		sym := s.Op.Symbol()
		if s.Op == gast.FloorDiv {
			sym = "/"
		}
		u.line(target + " " + sym + "= " + value + ";")
	case *gast.If:
		return u.ifStmt(s, "if")
	case *gast.While:
		if len(s.Orelse) > 0 {
			return u.unsupported(s, "while with else")
		}
		test, err := u.expr(s.Test)
		if err != nil {
			return err
		}
		u.line("while (" + test + ") {")
		if err := u.braced(s.Body); err != nil {
			return err
		}
		u.line("}")
	case *gast.For:
		return u.forStmt(s)
	case *gast.Return:
		if s.Value == nil {
			u.line("return;")
			return nil
		}
		v, err := u.expr(s.Value)
		if err != nil {
			return err
		}
		u.line("return " + v + ";")
	case *gast.Break:
		u.line("break;")
	case *gast.Continue:
		u.line("continue;")
	case *gast.Pass:
	case *gast.ExprStmt:
		if call, ok := s.Value.(*gast.Call); ok {
			switch name, _ := gast.CalleeName(call); name {
			case "print":
				return u.print(call)
			case "sys.exit":
				if len(call.Args) > 1 || len(call.Keywords) > 0 {
					return u.unsupported(s, "exit arguments")
				}
				code := "0"
				if len(call.Args) == 1 {
					var err error
					if code, err = u.expr(call.Args[0]); err != nil {
						return err
					}
				}
				u.include("<cstdlib>")
				u.line("std::exit(" + code + ");")
				return nil
			}
		}
		v, err := u.expr(s.Value)
		if err != nil {
			return err
		}
		u.line(v + ";")
	case *gast.Import:
		for _, a := range s.Names {
			header, ok := importHeaders[a.Name]
			if !ok {
				return u.unsupported(s, "module "+a.Name)
			}
			if header != "" {
				u.include(header)
			}
		}
	case *gast.ImportFrom:
		header, ok := importHeaders[s.Module]
		if !ok {
			return u.unsupported(s, "module "+s.Module)
		}
		if header != "" {
			u.include(header)
		}
	case *gast.Comment:
		u.comment(s.Text)
	case *gast.Directive:
		if header, ok := s.GetString(MetaInclude); ok {
			u.include(header)
			return nil
		}
		if strings.HasPrefix(s.Text, "#") || strings.HasPrefix(s.Text, "using ") {
			u.line(s.Text)
			return nil
		}
		u.comment(s.Text)
	default:
		return u.unsupported(s, "")
	}
	return nil
}

func (u *unparser) comment(text string) {
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimRight(l, " \t\r")
		if l == "" {
			u.line("//")
		} else {
			u.line("// " + l)
		}
	}
}

func (u *unparser) functionDef(fn *gast.FunctionDef) error {
	if len(fn.Decorators) > 0 {
		return u.unsupported(fn, "decorators")
	}
	ret := "void"
	switch {
	case fn.Returns != nil:
		var err error
		if ret, err = u.typeName(fn.Returns); err != nil {
			return err
		}
	case fn.Name == "main":
		ret = "int"
	case returnsValue(fn.Body):
		ret = "auto"
	}
	params := make([]string, len(fn.Args))
	for i, a := range fn.Args {
		p, err := u.param(a)
		if err != nil {
			return err
		}
		params[i] = p
	}
	head := declare(ret, fn.Name) + "(" + strings.Join(params, ", ") + ")"
	if u.headers || fn.GetBool(MetaPrototype) {
		u.line(head + ";")
		return nil
	}
	u.line(head + " {")
	u.depth++
	u.push()
	for _, a := range fn.Args {
		u.declare(a.Name, a.Annotation)
	}
	if err := u.block(fn.Body); err != nil {
		return err
	}
	u.pop()
	u.depth--
	u.line("}")
	return nil
}

func (u *unparser) param(a *gast.Arg) (string, error) {
	typ := "auto"
	if a.Annotation != nil {
		var err error
		if typ, err = u.typeName(a.Annotation); err != nil {
			return "", err
		}
		// Arrays and vectors are passed by reference.
		if ti, ok := gast.DecodeType(a.Annotation); (ok && ti.IsArray() && len(ti.Wrappers) == 0) || isList(a.Annotation) {
			typ += " &"
		}
	}
	typ = u.qualify(a, a.Annotation, typ)
	if a.GetBool(gast.MetaByReference) && !strings.HasSuffix(typ, "&") && !strings.HasSuffix(typ, "*") {
		typ += " &"
	}
	decl := declare(typ, a.Name)
	if a.Default != nil {
		def, err := u.expr(a.Default)
		if err != nil {
			return "", err
		}
		decl += " = " + def
	}
	return decl, nil
}

// qualify applies the const and pointer qualifiers recorded in the
// metadata of a declaring node that its annotation does not carry.
func (u *unparser) qualify(n gast.Node, ann gast.Expr, typ string) string {
	ti, _ := gast.DecodeType(ann)
	if n.Metadata().GetBool(MetaPointer) && !ti.IsPointer() && !strings.HasSuffix(typ, "&") {
		typ = pointerTo(typ)
	}
	if n.Metadata().GetBool(MetaConst) && !ti.IsConst() {
		typ = "const " + typ
	}
	return typ
}

// declare joins a type and a declared name.
func declare(typ, name string) string {
	if strings.HasSuffix(typ, "*") || strings.HasSuffix(typ, "&") {
		return typ + name
	}
	return typ + " " + name
}

func returnsValue(body []gast.Stmt) bool {
	found := false
	for _, s := range body {
		gast.Inspect(s, func(n gast.Node) bool {
			if r, ok := n.(*gast.Return); ok && r.Value != nil {
				found = true
			}
			_, nested := n.(*gast.FunctionDef)
			return !found && !nested
		})
	}
	return found
}

func (u *unparser) annAssign(s *gast.AnnAssign) error {
	name, ok := s.Target.(*gast.Name)
	if !ok {
		return u.unsupported(s, "annotated target that is not a name")
	}
	typ, err := u.typeName(s.Annotation)
	if err != nil {
		return err
	}
	typ = u.qualify(s, s.Annotation, typ)
	u.declare(name.ID, s.Annotation)
	decl := declare(typ, name.ID)
	if s.Value == nil {
		u.line(decl + ";")
		return nil
	}
	if size, ok, err := u.allocation(s.Value); err != nil {
		return err
	} else if ok {
		u.line(decl + "(" + size + ");")
		return nil
	}
	v, err := u.expr(s.Value)
	if err != nil {
		return err
	}
	u.line(decl + " = " + v + ";")
	return nil
}

func (u *unparser) assign(s *gast.Assign) error {
	if len(s.Targets) == 0 {
		return u.unsupported(s, "assignment without target")
	}
	if len(s.Targets) == 1 {
		switch t := s.Targets[0].(type) {
		case *gast.Name:
			return u.assignName(s, t)
		case *gast.Tuple:
			return u.unpack(s, t)
		}
	}
	parts := make([]string, 0, len(s.Targets)+1)
	for _, t := range s.Targets {
		if name, ok := t.(*gast.Name); ok {
			if _, declared := u.lookup(name.ID); !declared {
				return u.unsupported(s, "chained assignment declaring "+name.ID)
			}
		}
		target, err := u.expr(t)
		if err != nil {
			return err
		}
		parts = append(parts, target)
	}
	v, err := u.expr(s.Value)
	if err != nil {
		return err
	}
	u.line(strings.Join(append(parts, v), " = ") + ";")
	return nil
}

func (u *unparser) assignName(s *gast.Assign, target *gast.Name) error {
	ann, declared := u.lookup(target.ID)
	size, alloc, err := u.allocation(s.Value)
	if err != nil {
		return err
	}
	if alloc {
		elem := u.allocElem(s.Value, ann)
		if elem == nil {
			return u.unsupported(s, "allocation of unknown element type")
		}
		et, err := u.typeName(elem)
		if err != nil {
			return err
		}
		u.include("<vector>")
		vec := "std::vector<" + et + ">"
		if declared {
			u.line(target.ID + " = " + vec + "(" + size + ");")
		} else {
			u.declare(target.ID, gast.ArrayType(elem))
			u.line(vec + " " + target.ID + "(" + size + ");")
		}
		return nil
	}
	v, err := u.expr(s.Value)
	if err != nil {
		return err
	}
	if declared {
		u.line(target.ID + " = " + v + ";")
		return nil
	}
	u.declare(target.ID, nil)
	u.line("auto " + target.ID + " = " + v + ";")
	return nil
}

// unpack renders tuple assignment as a structured binding or std::tie.
func (u *unparser) unpack(s *gast.Assign, t *gast.Tuple) error {
	names := make([]string, len(t.Elts))
	undeclared := 0
	for i, e := range t.Elts {
		name, ok := e.(*gast.Name)
		if !ok {
			return u.unsupported(s, "unpacking into "+e.Kind().String())
		}
		names[i] = name.ID
		if _, declared := u.lookup(name.ID); !declared {
			undeclared++
		}
	}
	v, err := u.expr(s.Value)
	if err != nil {
		return err
	}
	switch undeclared {
	case len(names):
		for _, n := range names {
			u.declare(n, nil)
		}
		u.line("auto [" + strings.Join(names, ", ") + "] = " + v + ";")
	case 0:
		u.include("<tuple>")
		u.line("std::tie(" + strings.Join(names, ", ") + ") = " + v + ";")
	default:
		return u.unsupported(s, "unpacking into declared and undeclared names")
	}
	return nil
}

// allocation matches np.zeros((n,), ...) and np.empty((n,), ...) and
// returns the rendered size.
func (u *unparser) allocation(e gast.Expr) (string, bool, error) {
	call, ok := e.(*gast.Call)
	if !ok {
		return "", false, nil
	}
	if name, _ := gast.CalleeName(call); name != "np.zeros" && name != "np.empty" || len(call.Args) != 1 {
		return "", false, nil
	}
	dim := call.Args[0]
	if tup, ok := dim.(*gast.Tuple); ok {
		if len(tup.Elts) != 1 {
			return "", false, u.unsupported(call, "multidimensional allocation")
		}
		dim = tup.Elts[0]
	}
	size, err := u.expr(dim)
	return size, err == nil, err
}

// allocElem returns the element type of an allocation: its dtype, else
// the element of the declared array.
func (u *unparser) allocElem(e gast.Expr, declared gast.Expr) gast.Expr {
	for _, k := range e.(*gast.Call).Keywords {
		if k.Arg == "dtype" {
			if c, ok := k.Value.(*gast.Constant); ok && c.Value == nil {
				continue
			}
			return k.Value
		}
	}
	if sub, ok := declared.(*gast.Subscript); ok {
		if ext, ok := sub.Slice.(*gast.ExtSlice); ok {
			if idx, ok := ext.Dims[0].(*gast.Index); ok {
				return idx.Value
			}
		}
	}
	return nil
}

// ifStmt renders an if statement opened by head. An else branch holding
// only another if statement renders as else if.
func (u *unparser) ifStmt(s *gast.If, head string) error {
	test, err := u.expr(s.Test)
	if err != nil {
		return err
	}
	u.line(head + " (" + test + ") {")
	if err := u.braced(s.Body); err != nil {
		return err
	}
	if len(s.Orelse) == 1 {
		if elif, ok := s.Orelse[0].(*gast.If); ok {
			return u.ifStmt(elif, "} else if")
		}
	}
	if len(s.Orelse) > 0 {
		u.line("} else {")
		if err := u.braced(s.Orelse); err != nil {
			return err
		}
	}
	u.line("}")
	return nil
}

// forStmt renders a loop over a range as a counted loop and any other
// loop as a range-based for.
func (u *unparser) forStmt(s *gast.For) error {
	if len(s.Orelse) > 0 {
		return u.unsupported(s, "for with else")
	}
	target, ok := s.Target.(*gast.Name)
	if !ok {
		return u.unsupported(s, "loop target that is not a name")
	}
	i := target.ID
	begin, end, step, isRange := gast.RangeBounds(s.Iter)
	if !isRange {
		iter, err := u.expr(s.Iter)
		if err != nil {
			return err
		}
		u.line("for (auto &" + i + " : " + iter + ") {")
		if err := u.braced(s.Body, i); err != nil {
			return err
		}
		u.line("}")
		return nil
	}
	b, err := u.expr(begin)
	if err != nil {
		return err
	}
	e, err := u.exprPrec(end, precRel+1)
	if err != nil {
		return err
	}
	cmp, update := "<", "++"+i
	if step != nil {
		v, isConst := gast.IntValue(step)
		switch {
		case isConst && v == -1:
			cmp, update = ">", "--"+i
		case isConst && v < 0:
			cmp, update = ">", i+" -= "+strconv.FormatInt(-v, 10)
		case isConst && v == 0:
			return u.unsupported(s, "range with zero step")
		case !(isConst && v == 1):
			st, err := u.expr(step)
			if err != nil {
				return err
			}
			update = i + " += " + st
		}
	}
	init := "int " + i + " = " + b
	if _, declared := u.lookup(i); declared {
		init = i + " = " + b
	}
	u.line("for (" + init + "; " + i + " " + cmp + " " + e + "; " + update + ") {")
	if err := u.braced(s.Body, i); err != nil {
		return err
	}
	u.line("}")
	return nil
}

// print renders a call to print as an output chain.
func (u *unparser) print(call *gast.Call) error {
	sep, end := " ", "\n"
	for _, k := range call.Keywords {
		c, ok := k.Value.(*gast.Constant)
		s, isStr := "", false
		if ok {
			s, isStr = c.Value.(string)
		}
		switch {
		case k.Arg == "sep" && isStr:
			sep = s
		case k.Arg == "end" && isStr:
			end = s
		default:
			return u.unsupported(call, "print keyword "+k.Arg)
		}
	}
	u.include("<iostream>")
	chain := []string{"std::cout"}
	for i, a := range call.Args {
		if i > 0 && sep != "" {
			chain = append(chain, quote(sep))
		}
		v, err := u.exprPrec(a, precShift+1)
		if err != nil {
			return err
		}
		chain = append(chain, v)
	}
	switch end {
	case "\n":
		chain = append(chain, "std::endl")
	case "":
	default:
		chain = append(chain, quote(end))
	}
	u.line(strings.Join(chain, " << ") + ";")
	return nil
}
