package qb

// Statement is any assemblable SQL statement. Assemble renders the SQL text
// and its bind values, in placeholder order; it either succeeds completely
// or returns the first error recorded during building.
type Statement interface {
	Assemble() (string, []any, error)
}

// builder is the marker-form rendering shared by all statement types.
// Nested statements are spliced in marker form so placeholder renumbering
// happens exactly once, at the outermost Assemble.
type builder interface {
	build() (string, []any, error)
}

// nilStatement reports whether st is nil, including a typed nil builder
// hiding behind the interface.
func nilStatement(st Statement) bool {
	switch v := st.(type) {
	case nil:
		return true
	case *Select:
		return v == nil
	case *Insert:
		return v == nil
	case *Update:
		return v == nil
	case *Delete:
		return v == nil
	case *With:
		return v == nil
	}
	return false
}

func assembleInner(st Statement) (string, []any, error) {
	if b, ok := st.(builder); ok {
		return b.build()
	}
	return st.Assemble()
}

// leafExpr renders one condition leaf according to the value policy:
//
//	nil value, no operator  -> field
//	nil value with operator -> field op        (IS NULL, IS NOT NULL, ...)
//	FieldRef value          -> field op field  (no bind)
//	Raw value               -> field op text   (no bind)
//	*Select value           -> field op (sql)  (subquery binds spliced)
//	anything else           -> field op ?      (one bind)
func leafExpr(d Dialect, field FieldRef, op string, value any) (string, []any, error) {
	expr, err := field.render(d)
	if err != nil {
		return "", nil, err
	}
	if value == nil {
		if op == "" {
			return expr, nil, nil
		}
		return expr + " " + op, nil, nil
	}
	switch v := value.(type) {
	case *Select:
		if v == nil {
			return "", nil, errStatement("where(): nil subquery value")
		}
		if op == "" {
			return "", nil, errStatement("where(): missing operator for subquery value")
		}
		sql, vals, err := v.build()
		if err != nil {
			return "", nil, err
		}
		return expr + " " + op + " (" + sql + ")", vals, nil
	case FieldRef:
		if op == "" {
			return "", nil, errStatement("where(): missing operator for field value")
		}
		rhs, err := v.render(d)
		if err != nil {
			return "", nil, err
		}
		return expr + " " + op + " " + rhs, nil, nil
	case Raw:
		if op == "" {
			return expr + " " + string(v), nil, nil
		}
		return expr + " " + op + " " + string(v), nil, nil
	default:
		if op == "" {
			return expr + " " + bindMarker, []any{value}, nil
		}
		return expr + " " + op + " " + bindMarker, []any{value}, nil
	}
}
