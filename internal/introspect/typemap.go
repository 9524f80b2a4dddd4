package introspect

import (
	"fmt"
	"strings"
)

// ScalarKind is one of the closed set of API scalar types
type ScalarKind int

const (
	// ScalarInvalid is the zero value and never produced by a mapping
	ScalarInvalid ScalarKind = iota
	// ScalarString is a string
	ScalarString
	// ScalarInteger is a 32-bit integer
	ScalarInteger
	// ScalarBigInteger is an arbitrary precision integer
	ScalarBigInteger
	// ScalarDecimal is an arbitrary precision decimal
	ScalarDecimal
	// ScalarFloat is a double precision float
	ScalarFloat
	// ScalarByte is binary data, base64 encoded on the wire
	ScalarByte
	// ScalarIdentifier is an opaque identifier
	ScalarIdentifier
)

// String returns the API-level name of the scalar
func (k ScalarKind) String() string {
	switch k {
	case ScalarString:
		return "String"
	case ScalarInteger:
		return "Int"
	case ScalarBigInteger:
		return "BigInteger"
	case ScalarDecimal:
		return "BigDecimal"
	case ScalarFloat:
		return "Float"
	case ScalarByte:
		return "Byte"
	case ScalarIdentifier:
		return "ID"
	default:
		return "Invalid"
	}
}

// MarshalText implements encoding.TextMarshaler
func (k ScalarKind) MarshalText() ([]byte, error) {
	if k == ScalarInvalid {
		return nil, fmt.Errorf("cannot marshal invalid scalar kind")
	}
	return []byte(k.String()), nil
}

// nativeTypes is the canonical mapping. BOOLEAN maps to String on purpose.
var nativeTypes = map[string]ScalarKind{
	"BOOLEAN":   ScalarString,
	"BIGSERIAL": ScalarBigInteger,
	"CHAR":      ScalarString,
	"TEXT":      ScalarString,
	"VARCHAR":   ScalarString,
	"TIMESTAMP": ScalarString,
	"DOUBLE":    ScalarDecimal,
	"DECIMAL":   ScalarDecimal,
	"REAL":      ScalarDecimal,
	"FLOAT8":    ScalarFloat,
	"FLOAT":     ScalarFloat,
	"INT4":      ScalarInteger,
	"INT8":      ScalarInteger,
	"INTEGER":   ScalarInteger,
	"BYTEA":     ScalarByte,
}

// NativeTypeNames returns the canonical native type names, unordered
func NativeTypeNames() []string {
	names := make([]string, 0, len(nativeTypes))
	for name := range nativeTypes {
		names = append(names, name)
	}
	return names
}

var defaultMapper = NewMapper(nil)

// MapType maps a native column type name to its scalar kind using the
// canonical table only. The lookup is case-insensitive.
func MapType(nativeTypeName string) (ScalarKind, error) {
	return defaultMapper.Map(nativeTypeName)
}

// Mapper maps native type names onto scalar kinds, first resolving dialect
// aliases onto canonical names. A Mapper is immutable and safe for
// concurrent use.
type Mapper struct {
	aliases map[string]string
}

// NewMapper creates a Mapper with the given dialect aliases (alias -> canonical)
func NewMapper(aliases map[string]string) *Mapper {
	normalized := make(map[string]string, len(aliases))
	for alias, canonical := range aliases {
		normalized[strings.ToUpper(alias)] = strings.ToUpper(canonical)
	}
	return &Mapper{aliases: normalized}
}

// Map returns the scalar kind for a native type name, or an
// *UnknownColumnTypeError
func (m *Mapper) Map(nativeTypeName string) (ScalarKind, error) {
	key := strings.ToUpper(nativeTypeName)
	if kind, ok := nativeTypes[key]; ok {
		return kind, nil
	}
	if canonical, ok := m.aliases[key]; ok {
		if kind, ok := nativeTypes[canonical]; ok {
			return kind, nil
		}
	}
	return ScalarInvalid, &UnknownColumnTypeError{TypeName: nativeTypeName}
}
