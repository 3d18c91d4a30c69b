package gast

// Type annotations are expressions of the generalized tree:
//
//	int, float, bool, str, complex          builtin scalars
//	np.int32, np.float64, np.complex128 ...  sized scalars
//	None                                    no value (void)
//	np.ndarray[np.float64, n, :]            rank-2 array, first extent n, second unknown
//	Pointer[T], Const[T], Ref[T]            declarator wrappers
//	Name                                    user defined record type
//
// Arrays always encode the element type and rank; each extent is an
// expression or an open slice when unknown.

// Canonical scalar type names.
const (
	TypeBool       = "bool"
	TypeInt        = "int"
	TypeFloat      = "float"
	TypeComplex    = "complex"
	TypeStr        = "str"
	TypeNone       = "None"
	TypeInt8       = "int8"
	TypeInt16      = "int16"
	TypeInt32      = "int32"
	TypeInt64      = "int64"
	TypeUint8      = "uint8"
	TypeUint16     = "uint16"
	TypeUint32     = "uint32"
	TypeUint64     = "uint64"
	TypeFloat32    = "float32"
	TypeFloat64    = "float64"
	TypeComplex64  = "complex64"
	TypeComplex128 = "complex128"
)

// Module and alias under which sized scalars and arrays live.
const (
	NumpyModule = "numpy"
	NumpyAlias  = "np"
)

const (
	wrapPointer   = "Pointer"
	wrapConst     = "Const"
	wrapReference = "Ref"
)

var builtinScalars = map[string]bool{
	TypeBool: true, TypeInt: true, TypeFloat: true, TypeComplex: true, TypeStr: true,
}

var sizedScalars = map[string]bool{
	TypeInt8: true, TypeInt16: true, TypeInt32: true, TypeInt64: true,
	TypeUint8: true, TypeUint16: true, TypeUint32: true, TypeUint64: true,
	TypeFloat32: true, TypeFloat64: true, TypeComplex64: true, TypeComplex128: true,
}

// IsIntegerType reports whether name is a canonical signed or unsigned
// integer type name.
func IsIntegerType(name string) bool {
	switch name {
	case TypeInt, TypeInt8, TypeInt16, TypeInt32, TypeInt64, TypeUint8, TypeUint16, TypeUint32, TypeUint64:
		return true
	}
	return false
}

// IsScalarType reports whether name is a canonical scalar type name.
func IsScalarType(name string) bool {
	return name == TypeNone || builtinScalars[name] || sizedScalars[name]
}

// Scalar returns the annotation for a canonical scalar type name.
// Unknown names are treated as user defined types.
func Scalar(name string) Expr {
	switch {
	case name == TypeNone:
		return None()
	case sizedScalars[name]:
		return &Attribute{Value: NewName(NumpyAlias), Attr: name}
	}
	return NewName(name)
}

// ArrayType returns the annotation of an array of elem with one entry per
// dimension in extents. A nil extent is unknown and encoded as an open
// slice. With no extents a rank-1 array of unknown extent is returned.
func ArrayType(elem Expr, extents ...Expr) Expr {
	if len(extents) == 0 {
		extents = []Expr{nil}
	}
	dims := make([]Expr, 0, len(extents)+1)
	dims = append(dims, &Index{Value: elem})
	for _, ext := range extents {
		if ext == nil {
			dims = append(dims, &Slice{})
		} else {
			dims = append(dims, &Index{Value: ext})
		}
	}
	return &Subscript{Value: Dotted(NumpyAlias + ".ndarray"), Slice: &ExtSlice{Dims: dims}}
}

func PointerType(base Expr) Expr { return wrapType(wrapPointer, base) }

func ConstType(base Expr) Expr { return wrapType(wrapConst, base) }

func ReferenceType(base Expr) Expr { return wrapType(wrapReference, base) }

func wrapType(wrapper string, base Expr) Expr {
	return &Subscript{Value: NewName(wrapper), Slice: &Index{Value: base}}
}

// TypeInfo is the decoded form of a type annotation.
type TypeInfo struct {
	// Scalar is the canonical scalar name of the innermost type, or the
	// user type name when Record is true.
	Scalar string
	Record bool
	// Extents has one entry per array dimension, nil for unknown extent.
	// Empty for non-arrays.
	Extents []Expr
	// Wrappers lists declarator wrappers outermost first: "Pointer", "Const", "Ref".
	Wrappers []string
}

// IsArray reports whether the annotation described an array.
func (ti TypeInfo) IsArray() bool { return len(ti.Extents) > 0 }

// Rank returns the number of array dimensions, 0 for scalars.
func (ti TypeInfo) Rank() int { return len(ti.Extents) }

// Has reports whether wrapper appears among the declarator wrappers.
func (ti TypeInfo) Has(wrapper string) bool {
	for _, w := range ti.Wrappers {
		if w == wrapper {
			return true
		}
	}
	return false
}

func (ti TypeInfo) IsPointer() bool   { return ti.Has(wrapPointer) }
func (ti TypeInfo) IsConst() bool     { return ti.Has(wrapConst) }
func (ti TypeInfo) IsReference() bool { return ti.Has(wrapReference) }

// DecodeType decodes a type annotation built from the shapes documented at
// the top of this file. It returns false for expressions that are not
// type annotations.
func DecodeType(e Expr) (TypeInfo, bool) {
	var ti TypeInfo
	for {
		sub, ok := e.(*Subscript)
		if !ok {
			break
		}
		name, _ := DottedPath(sub.Value)
		switch name {
		case wrapPointer, wrapConst, wrapReference:
			idx, ok := sub.Slice.(*Index)
			if !ok {
				return TypeInfo{}, false
			}
			ti.Wrappers = append(ti.Wrappers, name)
			e = idx.Value
			continue
		case NumpyAlias + ".ndarray":
			ext, ok := sub.Slice.(*ExtSlice)
			if !ok || len(ext.Dims) < 2 {
				return TypeInfo{}, false
			}
			elem, ok := ext.Dims[0].(*Index)
			if !ok {
				return TypeInfo{}, false
			}
			for _, d := range ext.Dims[1:] {
				switch d := d.(type) {
				case *Index:
					ti.Extents = append(ti.Extents, d.Value)
				case *Slice:
					ti.Extents = append(ti.Extents, nil)
				default:
					return TypeInfo{}, false
				}
			}
			e = elem.Value
			continue
		}
		return TypeInfo{}, false
	}
	switch n := e.(type) {
	case *Constant:
		if n.Value != nil {
			return TypeInfo{}, false
		}
		ti.Scalar = TypeNone
	case *Name:
		ti.Scalar = n.ID
		ti.Record = !builtinScalars[n.ID]
	case *Attribute:
		path, _ := DottedPath(n)
		if path != NumpyAlias+"."+n.Attr || !sizedScalars[n.Attr] {
			return TypeInfo{}, false
		}
		ti.Scalar = n.Attr
	default:
		return TypeInfo{}, false
	}
	return ti, true
}

// UsesNumpy reports whether the annotation refers to the numpy namespace.
func UsesNumpy(annotation Expr) bool {
	found := false
	Inspect(annotation, func(n Node) bool {
		if name, ok := n.(*Name); ok && name.ID == NumpyAlias {
			found = true
		}
		return !found
	})
	return found
}
