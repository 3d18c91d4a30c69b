package cfamily

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/soypat/polyglot/gast"
)

// Scalar types of the C family by spelling. Plain int and double map to
// the Python builtins, fixed width types to their numpy names.
var cScalars = map[string]string{
	"int": gast.TypeInt, "double": gast.TypeFloat, "float": gast.TypeFloat32,
	"char": gast.TypeStr, "bool": gast.TypeBool, "_Bool": gast.TypeBool, "void": gast.TypeNone,
	"size_t": gast.TypeInt, "ssize_t": gast.TypeInt, "ptrdiff_t": gast.TypeInt,
	"int8_t": gast.TypeInt8, "int16_t": gast.TypeInt16, "int32_t": gast.TypeInt32, "int64_t": gast.TypeInt64,
	"uint8_t": gast.TypeUint8, "uint16_t": gast.TypeUint16, "uint32_t": gast.TypeUint32, "uint64_t": gast.TypeUint64,
	"string": gast.TypeStr, "std::string": gast.TypeStr,
}

// declType returns the annotation of the type specifier of a declaration,
// parameter or function definition, const qualified if the declaration
// says so. Auto yields nil.
func (g *generalizer) declType(n *sitter.Node) (gast.Expr, error) {
	typ := n.ChildByFieldName("type")
	if typ == nil {
		return nil, g.structure(n, "declaration without type")
	}
	base, err := g.typeSpec(typ)
	if err != nil || base == nil {
		return base, err
	}
	if hasQualifier(n, "const", g.src) {
		base = gast.ConstType(base)
	}
	return base, nil
}

func (g *generalizer) typeSpec(n *sitter.Node) (gast.Expr, error) {
	text := g.text(n)
	switch n.Type() {
	case "primitive_type", "type_identifier":
		if s, ok := cScalars[text]; ok {
			return gast.Scalar(s), nil
		}
		if n.Type() == "type_identifier" {
			return gast.NewName(text), nil
		}
	case "sized_type_specifier":
		if s, ok := sizedScalar(strings.Fields(text)); ok {
			return gast.Scalar(s), nil
		}
	case "placeholder_type_specifier", "auto":
		return nil, nil
	case "qualified_identifier":
		if s, ok := cScalars[text]; ok {
			return gast.Scalar(s), nil
		}
		if name := n.ChildByFieldName("name"); name != nil && name.Type() == "template_type" {
			return g.typeSpec(name)
		}
	case "template_type":
		return g.templateType(n)
	case "type_descriptor":
		if n.ChildByFieldName("declarator") != nil {
			return nil, g.unsupported(n, "abstract declarator")
		}
		return g.typeSpec(n.ChildByFieldName("type"))
	}
	if text == "auto" {
		return nil, nil
	}
	return nil, g.unsupported(n, "type "+text)
}

// templateType lowers std::vector<T> to list[T] and std::complex<double>
// to complex.
func (g *generalizer) templateType(n *sitter.Node) (gast.Expr, error) {
	name := g.text(n.ChildByFieldName("name"))
	args := n.ChildByFieldName("arguments")
	if args == nil || len(namedChildren(args)) != 1 {
		return nil, g.unsupported(n, "template arity")
	}
	elem, err := g.typeSpec(namedChildren(args)[0])
	if err != nil {
		return nil, err
	}
	switch name {
	case "vector":
		return gast.NewSubscript(gast.NewName("list"), elem), nil
	case "complex":
		if ti, ok := gast.DecodeType(elem); ok && (ti.Scalar == gast.TypeFloat || ti.Scalar == gast.TypeFloat32) {
			return gast.Scalar(gast.TypeComplex), nil
		}
	}
	return nil, g.unsupported(n, "template type "+name)
}

// sizedScalar resolves a multi word integer or floating type such as
// "unsigned long long int".
func sizedScalar(words []string) (string, bool) {
	var unsigned, signed, short, char, double bool
	long := 0
	for _, w := range words {
		switch w {
		case "unsigned":
			unsigned = true
		case "signed":
			signed = true
		case "short":
			short = true
		case "long":
			long++
		case "char":
			char = true
		case "double":
			double = true
		case "int":
		default:
			return "", false
		}
	}
	switch {
	case double:
		return gast.TypeFloat, long > 0 && !unsigned && !signed && !short && !char
	case char && unsigned:
		return gast.TypeUint8, true
	case char:
		return gast.TypeInt8, true
	case short && unsigned:
		return gast.TypeUint16, true
	case short:
		return gast.TypeInt16, true
	case long > 0 && unsigned:
		return gast.TypeUint64, true
	case long > 0:
		return gast.TypeInt64, true
	case unsigned:
		return gast.TypeUint32, true
	}
	return gast.TypeInt, true
}

func hasQualifier(n *sitter.Node, qual string, src []byte) bool {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "type_qualifier" && c.Content(src) == qual {
			return true
		}
	}
	return false
}

// declared is an unwound declarator.
type declared struct {
	name    string
	ann     gast.Expr
	pointer bool
	isConst bool
	// params is the parameter list of a function declarator.
	params *sitter.Node
}

// tag records the declarator qualifiers of d on a declaring node.
func (d declared) tag(n gast.Node) {
	if d.pointer {
		n.Metadata().Set(MetaPointer, true)
	}
	if d.isConst {
		n.Metadata().Set(MetaConst, true)
	}
}

// declarator unwinds a declarator from the outside in. Each pointer,
// reference or array level wraps the annotation built so far, so that
// `int *a[3]` is an array of three pointers to int. Consecutive array
// levels merge into one multidimensional array.
func (g *generalizer) declarator(base gast.Expr, n *sitter.Node) (declared, error) {
	d := declared{ann: base}
	if ti, ok := gast.DecodeType(base); ok && ti.IsConst() {
		d.isConst = true
	}
	var (
		elem    gast.Expr
		extents []gast.Expr
		inArray bool
		sawFunc bool
	)
	flush := func() {
		if inArray {
			d.ann = gast.ArrayType(elem, extents...)
			inArray, extents = false, nil
		}
	}
	for n != nil {
		switch n.Type() {
		case "identifier", "field_identifier":
			flush()
			d.name = g.text(n)
			return d, nil
		case "pointer_declarator", "abstract_pointer_declarator":
			if sawFunc {
				return d, g.unsupported(n, "function pointer")
			}
			flush()
			if d.ann == nil {
				return d, g.unsupported(n, "pointer to auto")
			}
			if !isString(d.ann) {
				d.ann = gast.PointerType(d.ann)
				d.pointer = true
			}
			if hasQualifier(n, "const", g.src) {
				d.ann = gast.ConstType(d.ann)
				d.isConst = true
			}
			n = n.ChildByFieldName("declarator")
		case "reference_declarator", "abstract_reference_declarator":
			flush()
			if d.ann != nil {
				d.ann = gast.ReferenceType(d.ann)
			}
			n = firstNamed(n)
		case "array_declarator", "abstract_array_declarator":
			var ext gast.Expr
			if size := n.ChildByFieldName("size"); size != nil {
				var err error
				if ext, err = g.expr(size); err != nil {
					return d, err
				}
			}
			if !inArray {
				elem, inArray = d.ann, true
			}
			extents = append([]gast.Expr{ext}, extents...)
			n = n.ChildByFieldName("declarator")
		case "parenthesized_declarator":
			n = firstNamed(n)
		case "function_declarator", "abstract_function_declarator":
			flush()
			if sawFunc {
				return d, g.unsupported(n, "function returning a function")
			}
			sawFunc = true
			d.params = n.ChildByFieldName("parameters")
			n = n.ChildByFieldName("declarator")
		default:
			return d, g.unsupported(n, "declarator")
		}
	}
	flush()
	return d, nil
}

// isString reports whether ann is char, possibly const. A pointer to char
// is a string.
func isString(ann gast.Expr) bool {
	ti, ok := gast.DecodeType(ann)
	return ok && ti.Scalar == gast.TypeStr && !ti.IsArray() && !ti.IsPointer() && !ti.IsReference()
}
