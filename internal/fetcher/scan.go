package fetcher

import (
	"database/sql"

	"github.com/graphiti-lang/graphiti/internal/introspect"
)

// scanRowWithColumns scans a single row with known column order
func scanRowWithColumns(row *sql.Row, columns []string, binary map[string]bool) (map[string]any, error) {
	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	if err := row.Scan(valuePtrs...); err != nil {
		return nil, err
	}

	record := make(map[string]any, len(columns))
	for i, col := range columns {
		record[col] = normalizeValue(values[i], binary[col])
	}
	return record, nil
}

// scanRows scans multiple rows into a slice of maps. The result is never nil.
func scanRows(rows *sql.Rows, binary map[string]bool) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	results := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		record := make(map[string]any, len(columns))
		for i, col := range columns {
			record[col] = normalizeValue(values[i], binary[col])
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// normalizeValue turns driver byte slices (text and numeric columns under
// MySQL) into strings unless the column holds binary data
func normalizeValue(value any, binary bool) any {
	if b, ok := value.([]byte); ok && !binary {
		return string(b)
	}
	return value
}

// binaryColumns returns the byte-kind columns of a call's returned shape
func binaryColumns(fields []introspect.FieldDefinition) map[string]bool {
	binary := make(map[string]bool)
	for _, f := range fields {
		if f.Scalar == introspect.ScalarByte {
			binary[f.Name] = true
		}
	}
	return binary
}
