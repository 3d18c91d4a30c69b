package gast

import (
	"errors"
	"strconv"
)

// ErrCompareChain is returned by [Fold] for comparison chains with more
// than two operands.
var ErrCompareChain = errors.New("comparison chains with more than two operands are not supported")

// Fold builds an expression from a flat operand/operator sequence
// `operands[0] ops[0] operands[1] ops[1] ... operands[n]` whose operators
// share one precedence level. Arithmetic chains fold left-associatively into
// nested BinOps. A chain of one boolean operator becomes a single BoolOp
// over all operands, absorbing operands that are already BoolOps of the same
// operator. A comparison folds only with exactly two operands.
func Fold(operands []Expr, ops []OpPair) (Expr, error) {
	if len(operands) != len(ops)+1 {
		return nil, errors.New("fold: got " + strconv.Itoa(len(operands)) + " operands for " + strconv.Itoa(len(ops)) + " operators")
	}
	if len(ops) == 0 {
		return operands[0], nil
	}
	for _, op := range ops {
		if !op.Valid() || op.Kind == KindUnaryOp {
			return nil, errors.New("fold: invalid binary operator " + op.Kind.String() + "/" + op.Op.String())
		}
	}
	switch ops[0].Kind {
	case KindCompare:
		if len(ops) > 1 {
			return nil, ErrCompareChain
		}
		return ops[0].NewOperation(operands...), nil
	case KindBoolOp:
		if allSame(ops) {
			var values []Expr
			for _, v := range operands {
				if b, ok := v.(*BoolOp); ok && b.Op == ops[0].Op {
					values = append(values, b.Values...)
				} else {
					values = append(values, v)
				}
			}
			return &BoolOp{Op: ops[0].Op, Values: values}, nil
		}
	}
	left := operands[0]
	for i, op := range ops {
		switch op.Kind {
		case KindCompare:
			return nil, ErrCompareChain
		case KindBoolOp:
			left = &BoolOp{Op: op.Op, Values: []Expr{left, operands[i+1]}}
		default:
			left = op.NewOperation(left, operands[i+1])
		}
	}
	return left, nil
}

func allSame(ops []OpPair) bool {
	for _, op := range ops[1:] {
		if op != ops[0] {
			return false
		}
	}
	return true
}
