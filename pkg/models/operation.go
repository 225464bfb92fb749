package models

import (
	"fmt"
)

// OperationKind classifies a row change
type OperationKind int

const (
	// OpInsert is a row present only in the compare file
	OpInsert OperationKind = iota + 1
	// OpUpdate is a row present in both files with different values
	OpUpdate
	// OpDelete is a row present only in the base file
	OpDelete
)

// OperationKinds returns every kind in reporting order
func OperationKinds() []OperationKind {
	return []OperationKind{OpInsert, OpUpdate, OpDelete}
}

func (k OperationKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("OperationKind(%d)", int(k))
	}
}

// Valid reports whether k is one of the known kinds
func (k OperationKind) Valid() bool {
	return k == OpInsert || k == OpUpdate || k == OpDelete
}

// ParseOperationKind parses the lower-case wire name of a kind
func ParseOperationKind(s string) (OperationKind, bool) {
	switch s {
	case "insert":
		return OpInsert, true
	case "update":
		return OpUpdate, true
	case "delete":
		return OpDelete, true
	default:
		return 0, false
	}
}

// MarshalText implements encoding.TextMarshaler
func (k OperationKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid operation kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *OperationKind) UnmarshalText(text []byte) error {
	parsed, ok := ParseOperationKind(string(text))
	if !ok {
		return fmt.Errorf("unknown operation type %q", string(text))
	}
	*k = parsed
	return nil
}

// RowOperation is one decoded row change
type RowOperation struct {
	Table string
	Kind  OperationKind
}
