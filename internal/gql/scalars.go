package gql

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strconv"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

// BigInteger is an arbitrary precision integer serialized as a JSON number
var BigInteger = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "BigInteger",
	Description: "An arbitrary precision integer.",
	Serialize: func(value interface{}) interface{} {
		if n, ok := toBigInt(value); ok {
			return n
		}
		return nil
	},
	ParseValue: func(value interface{}) interface{} {
		if n, ok := toBigInt(value); ok {
			return bigIntArg(n)
		}
		return nil
	},
	ParseLiteral: func(valueAST ast.Value) interface{} {
		var text string
		switch v := valueAST.(type) {
		case *ast.IntValue:
			text = v.Value
		case *ast.StringValue:
			text = v.Value
		default:
			return nil
		}
		if n, ok := new(big.Int).SetString(text, 10); ok {
			return bigIntArg(n)
		}
		return nil
	},
})

// BigDecimal is an arbitrary precision decimal serialized as a JSON number
var BigDecimal = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "BigDecimal",
	Description: "An arbitrary precision decimal number.",
	Serialize: func(value interface{}) interface{} {
		if text, ok := toDecimalText(value); ok {
			return json.Number(text)
		}
		return nil
	},
	ParseValue: func(value interface{}) interface{} {
		if text, ok := toDecimalText(value); ok {
			return text
		}
		return nil
	},
	ParseLiteral: func(valueAST ast.Value) interface{} {
		var text string
		switch v := valueAST.(type) {
		case *ast.FloatValue:
			text = v.Value
		case *ast.IntValue:
			text = v.Value
		case *ast.StringValue:
			text = v.Value
		default:
			return nil
		}
		if parsed, ok := toDecimalText(text); ok {
			return parsed
		}
		return nil
	},
})

// Byte is binary data serialized as standard base64 text
var Byte = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "Byte",
	Description: "Binary data encoded as base64.",
	Serialize: func(value interface{}) interface{} {
		switch v := value.(type) {
		case []byte:
			return base64.StdEncoding.EncodeToString(v)
		case string:
			return base64.StdEncoding.EncodeToString([]byte(v))
		default:
			return nil
		}
	},
	ParseValue: func(value interface{}) interface{} {
		if s, ok := value.(string); ok {
			return decodeBytes(s)
		}
		return nil
	},
	ParseLiteral: func(valueAST ast.Value) interface{} {
		if v, ok := valueAST.(*ast.StringValue); ok {
			return decodeBytes(v.Value)
		}
		return nil
	},
})

func toBigInt(value interface{}) (*big.Int, bool) {
	switch v := value.(type) {
	case int:
		return big.NewInt(int64(v)), true
	case int8:
		return big.NewInt(int64(v)), true
	case int16:
		return big.NewInt(int64(v)), true
	case int32:
		return big.NewInt(int64(v)), true
	case int64:
		return big.NewInt(v), true
	case uint:
		return new(big.Int).SetUint64(uint64(v)), true
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), true
	case uint64:
		return new(big.Int).SetUint64(v), true
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, false
		}
		n, _ := big.NewFloat(v).Int(nil)
		return n, true
	case *big.Int:
		if v == nil {
			return nil, false
		}
		return v, true
	case json.Number:
		return new(big.Int).SetString(v.String(), 10)
	case string:
		return new(big.Int).SetString(v, 10)
	case []byte:
		return new(big.Int).SetString(string(v), 10)
	default:
		return nil, false
	}
}

// bigIntArg returns an int64 when the value fits and decimal text otherwise,
// both of which database drivers accept as parameters
func bigIntArg(n *big.Int) interface{} {
	if n.IsInt64() {
		return n.Int64()
	}
	return n.String()
}

// decimalPattern matches plain decimal notation with an optional exponent.
// Fractions and hexadecimal forms are rejected.
var decimalPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

func toDecimalText(value interface{}) (string, bool) {
	var text string
	switch v := value.(type) {
	case float32:
		text = strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return "", false
		}
		text = strconv.FormatFloat(v, 'f', -1, 64)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		text = fmt.Sprint(v)
	case json.Number:
		text = v.String()
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		return "", false
	}

	if !decimalPattern.MatchString(text) {
		return "", false
	}
	return text, true
}

func decodeBytes(s string) interface{} {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}
