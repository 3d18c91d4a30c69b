package fortran

import (
	"strconv"
	"strings"

	"github.com/soypat/polyglot/gast"
)

func (u *unparser) block(stmts []gast.Stmt) error {
	for _, s := range stmts {
		if err := u.downgrade(u.stmt(s)); err != nil {
			return err
		}
	}
	return nil
}

// directive writes a kept Fortran statement as is. Directives of other
// languages become comments.
func (u *unparser) directive(d *gast.Directive) {
	if d.GetBool(MetaStatement) {
		u.out.stmt(d.Text)
		return
	}
	for _, line := range strings.Split(d.Text, "\n") {
		u.out.comment(" " + line)
	}
}

func (u *unparser) stmt(s gast.Stmt) error {
	switch s := s.(type) {
	case *gast.Comment:
		u.out.comment(s.Text)
	case *gast.Directive:
		u.directive(s)
	case *gast.Pass:
		u.out.stmt("CONTINUE")
	case *gast.Break:
		u.out.stmt("EXIT")
	case *gast.Continue:
		u.out.stmt("CYCLE")
	case *gast.Assign:
		return u.assign(s)
	case *gast.AugAssign:
		value := &gast.BinOp{Left: gast.Clone(s.Target), Op: s.Op, Right: s.Value}
		if gast.Truncating(s) {
			value.Set(gast.MetaTruncate, true)
		}
		return u.assignText(s.Target, value, " = ")
	case *gast.AnnAssign:
		if _, declOnly := u.initializer(s, false); declOnly {
			return nil
		}
		return u.assignText(s.Target, s.Value, " = ")
	case *gast.If:
		return u.ifStmt(s)
	case *gast.For:
		return u.doLoop(s)
	case *gast.While:
		return u.whileLoop(s)
	case *gast.Return:
		return u.returnStmt(s)
	case *gast.Delete:
		if !s.GetBool(MetaDeallocate) {
			return u.unsupported(s, "delete of a name")
		}
		list, err := u.exprList(s.Targets)
		if err != nil {
			return err
		}
		u.out.stmt("DEALLOCATE(" + list + ")")
	case *gast.ExprStmt:
		return u.exprStmt(s)
	default:
		return u.unsupported(s, "")
	}
	return nil
}

func (u *unparser) assign(a *gast.Assign) error {
	if len(a.Targets) != 1 {
		return u.unsupported(a, "chained assignment")
	}
	switch {
	case a.GetBool(MetaCall):
		return u.callAssign(a)
	case a.GetBool(MetaAllocate):
		return u.allocate(a)
	}
	if _, ok := a.Targets[0].(*gast.Tuple); ok {
		return u.unsupported(a, "tuple assignment")
	}
	op := " = "
	if a.GetBool(MetaPointer) {
		op = " => "
	}
	return u.assignText(a.Targets[0], a.Value, op)
}

func (u *unparser) assignText(target, value gast.Expr, op string) error {
	t, err := u.expr(target)
	if err != nil {
		return err
	}
	v, err := u.expr(value)
	if err != nil {
		return err
	}
	u.out.stmt(t + op + v)
	return nil
}

// allocate renders an assignment of a zeroed array synthesized from
// ALLOCATE back as ALLOCATE.
func (u *unparser) allocate(a *gast.Assign) error {
	call, ok := a.Value.(*gast.Call)
	if !ok || len(call.Args) == 0 {
		return u.unsupported(a, "allocation value")
	}
	extents := []gast.Expr{call.Args[0]}
	if shape, ok := call.Args[0].(*gast.Tuple); ok {
		extents = shape.Elts
	}
	target, err := u.expr(a.Targets[0])
	if err != nil {
		return err
	}
	list, err := u.exprList(extents)
	if err != nil {
		return err
	}
	u.out.stmt("ALLOCATE(" + target + "(" + list + "))")
	return nil
}

// callAssign renders the assignment of a subroutine's returned outputs as
// a CALL passing inputs and outputs in dummy argument order.
func (u *unparser) callAssign(a *gast.Assign) error {
	call, ok := a.Value.(*gast.Call)
	if !ok {
		return u.unsupported(a, "CALL value")
	}
	name, _ := gast.CalleeName(call)
	proc, ok := u.procs[name]
	if !ok {
		return u.unsupported(a, "CALL to unknown subroutine "+name)
	}
	targets := a.Targets
	if tuple, ok := a.Targets[0].(*gast.Tuple); ok {
		targets = tuple.Elts
	}
	outs := outputs(proc)
	if len(targets) != len(outs) || len(call.Args) != len(proc.Args) || len(call.Keywords) > 0 {
		return u.unsupported(a, "CALL does not match SUBROUTINE "+name)
	}
	var args []gast.Expr
	for _, param := range params(proc) {
		if i := argIndex(proc, param); i >= 0 {
			args = append(args, call.Args[i])
			continue
		}
		for i, out := range outs {
			if out == param {
				args = append(args, targets[i])
			}
		}
	}
	list, err := u.exprList(args)
	if err != nil {
		return err
	}
	u.out.stmt("CALL " + name + "(" + list + ")")
	return nil
}

func argIndex(fn *gast.FunctionDef, name string) int {
	for i, arg := range fn.Args {
		if arg.Name == name {
			return i
		}
	}
	return -1
}

func (u *unparser) exprStmt(s *gast.ExprStmt) error {
	call, ok := s.Value.(*gast.Call)
	if !ok {
		return u.unsupported(s, "expression statement")
	}
	name, ok := gast.CalleeName(call)
	if !ok {
		return u.unsupported(s, "callee is not a name")
	}
	switch name {
	case "print":
		if len(call.Keywords) > 0 {
			return u.unsupported(s, "print keywords")
		}
		items, err := u.exprList(call.Args)
		if err != nil {
			return err
		}
		format := "*"
		if f, ok := s.GetString(MetaFormat); ok {
			format = f
		}
		text := "PRINT " + format
		if unit, ok := s.GetString(MetaWrite); ok {
			text = "WRITE(" + unit + ", " + format + ")"
			if items != "" {
				text += " " + items
			}
		} else if items != "" {
			text += ", " + items
		}
		u.out.stmt(text)
		return nil
	case "sys.exit":
		code, err := u.exprList(call.Args)
		if err != nil {
			return err
		}
		u.out.stmt(strings.TrimSpace("STOP " + code))
		return nil
	}
	if call.Has(MetaIntrinsic) || strings.Contains(name, ".") {
		return u.unsupported(s, "call of "+name+" as a statement")
	}
	if len(call.Args) == 0 && len(call.Keywords) == 0 {
		u.out.stmt("CALL " + name)
		return nil
	}
	text, err := u.callWith(call, name)
	if err != nil {
		return err
	}
	u.out.stmt("CALL " + text)
	return nil
}

func (u *unparser) returnStmt(r *gast.Return) error {
	if u.fn == nil {
		return u.unsupported(r, "return outside a procedure")
	}
	expected := u.expectedReturn()
	switch {
	case r.Value == nil || (expected != nil && gast.Equal(r.Value, expected)):
	case u.result != "" && len(outputs(u.fn)) == 0:
		v, err := u.expr(r.Value)
		if err != nil {
			return err
		}
		u.out.stmt(u.result + " = " + v)
	default:
		return u.unsupported(r, "returned value is not the procedure result")
	}
	u.out.stmt("RETURN")
	return nil
}

type ifClause struct {
	test string
	body []gast.Stmt
}

// ifStmt renders an if/elif chain as one block IF. Every test renders
// before any line is written.
func (u *unparser) ifStmt(s *gast.If) error {
	var clauses []ifClause
	var orelse []gast.Stmt
	for cur := s; cur != nil; {
		test, err := u.expr(cur.Test)
		if err != nil {
			return err
		}
		clauses = append(clauses, ifClause{test: test, body: cur.Body})
		next, ok := singleIf(cur.Orelse)
		if !ok {
			orelse = cur.Orelse
			break
		}
		cur = next
	}
	for i, c := range clauses {
		if i == 0 {
			u.out.stmt("IF (" + c.test + ") THEN")
		} else {
			u.out.stmt("ELSE IF (" + c.test + ") THEN")
		}
		if err := u.indented(c.body); err != nil {
			return err
		}
	}
	if len(orelse) > 0 {
		u.out.stmt("ELSE")
		if err := u.indented(orelse); err != nil {
			return err
		}
	}
	u.out.stmt("END IF")
	return nil
}

func singleIf(stmts []gast.Stmt) (*gast.If, bool) {
	if len(stmts) != 1 {
		return nil, false
	}
	s, ok := stmts[0].(*gast.If)
	return s, ok
}

func (u *unparser) indented(body []gast.Stmt) error {
	u.out.indent()
	defer u.out.dedent()
	return u.block(body)
}

func (u *unparser) doLoop(s *gast.For) error {
	if len(s.Orelse) > 0 {
		return u.unsupported(s, "loop else clause")
	}
	target, ok := s.Target.(*gast.Name)
	if !ok {
		return u.unsupported(s, "loop target is not a name")
	}
	bounds, err := u.rangeBounds(s, s.Iter)
	if err != nil {
		return err
	}
	u.out.stmt("DO " + target.ID + " = " + bounds)
	if err := u.indented(s.Body); err != nil {
		return err
	}
	u.out.stmt("END DO")
	return nil
}

func (u *unparser) whileLoop(s *gast.While) error {
	if len(s.Orelse) > 0 {
		return u.unsupported(s, "loop else clause")
	}
	header := "DO"
	if c, ok := s.Test.(*gast.Constant); !ok || c.Value != true {
		test, err := u.expr(s.Test)
		if err != nil {
			return err
		}
		header = "DO WHILE (" + test + ")"
	}
	u.out.stmt(header)
	if err := u.indented(s.Body); err != nil {
		return err
	}
	u.out.stmt("END DO")
	return nil
}

// declare renders a type declaration statement for name.
func (u *unparser) declare(node gast.Node, name string, ann gast.Expr, meta *gast.Meta, init gast.Expr, isArg bool) error {
	ti, ok := gast.DecodeType(ann)
	if !ok {
		return u.report(node, "type annotation of "+name)
	}
	pointer := meta.GetBool(MetaPointer)
	if ti.IsPointer() && !ti.IsArray() {
		if !isArg {
			return u.report(node, "pointer variable "+name)
		}
		// A pointer argument addresses an array of unknown size.
		ti.Extents = []gast.Expr{nil}
	}
	typ, deferredLen, err := u.typeSpec(node, ti, meta, isArg)
	if err != nil {
		return u.downgrade(err)
	}
	attrs := append([]string(nil), attributes(meta)...)
	if pointer {
		attrs = append(attrs, "POINTER")
	}
	var dims string
	if ti.IsArray() {
		var err error
		dims, err = u.dims(ti.Extents, isArg && !pointer)
		if err != nil {
			return u.downgrade(err)
		}
		if !knownExtentsOf(ti) && !isArg && !pointer {
			attrs = append(attrs, "ALLOCATABLE")
		}
	}
	if deferredLen && !pointer && !hasAttr(attrs, "ALLOCATABLE") {
		attrs = append(attrs, "ALLOCATABLE")
	}
	intent, _ := meta.GetString(MetaIntent)
	if intent == "" && isArg && ti.IsConst() {
		intent = "in"
	}
	if intent != "" {
		attrs = append(attrs, "INTENT("+strings.ToUpper(intent)+")")
	}
	entity := name + dims
	if init != nil {
		v, err := u.expr(init)
		if err != nil {
			return u.downgrade(err)
		}
		entity += " = " + v
	}
	switch {
	case len(attrs) > 0:
		u.out.stmt(typ + ", " + strings.Join(attrs, ", ") + " :: " + entity)
	case u.out.fixed && init == nil:
		u.out.stmt(typ + " " + entity)
	default:
		u.out.stmt(typ + " :: " + entity)
	}
	return nil
}

// dims renders array extents. Unknown extents of dummy arguments are
// assumed size when only the last one is unknown, assumed shape otherwise.
func (u *unparser) dims(extents []gast.Expr, isArg bool) (string, error) {
	unknown := 0
	for _, ext := range extents {
		if ext == nil {
			unknown++
		}
	}
	assumedSize := isArg && unknown == 1 && extents[len(extents)-1] == nil
	parts := make([]string, len(extents))
	for i, ext := range extents {
		switch {
		case ext == nil && assumedSize:
			parts[i] = "*"
		case ext == nil || unknown > 0:
			parts[i] = ":"
		default:
			s, err := u.expr(ext)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
	}
	if unknown > 0 && !assumedSize {
		for i := range parts {
			parts[i] = ":"
		}
	}
	return "(" + strings.Join(parts, ", ") + ")", nil
}

// typeSpec renders the type of a declaration. deferredLen reports a
// character variable of unknown length, which must be allocatable.
func (u *unparser) typeSpec(node gast.Node, ti gast.TypeInfo, meta *gast.Meta, isArg bool) (spec string, deferredLen bool, err error) {
	if ti.Record {
		return "TYPE(" + ti.Scalar + ")", false, nil
	}
	kind, hasKind := meta.GetString(MetaKind)
	sized := func(base string, bytes int) string {
		if u.out.fixed {
			return base + "*" + strconv.Itoa(bytes)
		}
		return base + "(KIND=" + strconv.Itoa(bytes) + ")"
	}
	switch ti.Scalar {
	case gast.TypeInt:
		spec = "INTEGER"
	case gast.TypeInt8:
		spec = sized("INTEGER", 1)
	case gast.TypeInt16:
		spec = sized("INTEGER", 2)
	case gast.TypeInt32:
		spec = sized("INTEGER", 4)
	case gast.TypeInt64:
		spec = sized("INTEGER", 8)
	case gast.TypeFloat:
		// Floats of other languages are double precision.
		spec = "DOUBLE PRECISION"
		if meta.GetBool(MetaDefaultKind) || hasKind {
			spec = "REAL"
		}
	case gast.TypeFloat32:
		spec = sized("REAL", 4)
	case gast.TypeFloat64:
		spec = "DOUBLE PRECISION"
	case gast.TypeComplex:
		spec = "COMPLEX(KIND=8)"
		switch {
		case meta.GetBool(MetaDefaultKind) || hasKind:
			spec = "COMPLEX"
		case u.out.fixed:
			spec = "DOUBLE COMPLEX"
		}
	case gast.TypeComplex64:
		spec = "COMPLEX(KIND=4)"
	case gast.TypeComplex128:
		spec = "COMPLEX(KIND=8)"
		if u.out.fixed {
			spec = "DOUBLE COMPLEX"
		}
	case gast.TypeBool:
		spec = "LOGICAL"
	case gast.TypeStr:
		spec = "CHARACTER"
		length, hasLen := meta.GetString(MetaLen)
		switch {
		case !hasLen && isArg:
			length = "*"
		case !hasLen:
			length, deferredLen = ":", true
		}
		switch {
		case length == "1":
		case u.out.fixed && isDigits(length):
			spec += "*" + length
		case u.out.fixed:
			spec += "*(" + length + ")"
		default:
			spec += "(LEN=" + length + ")"
		}
	default:
		return "", false, u.unsupported(node, "type "+ti.Scalar+" has no Fortran equivalent")
	}
	if hasKind {
		spec += "(KIND=" + kind + ")"
	}
	return spec, deferredLen, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
