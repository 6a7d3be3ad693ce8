// Package querysql compiles record filters into parameterized SQLite
// predicates over JSON document columns.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/refgraph/internal/model"
)

// Compile converts a filter into a SQL predicate over the JSON document held
// in column. A nil filter compiles to "1 = 1".
//
// CRITICAL: Values and JSON paths are NEVER interpolated - always bound as ?
// parameters. Only column is spliced into the SQL, so it must be a trusted
// identifier supplied by the store.
func Compile(column string, f *model.Filter) (string, []any, error) {
	if f == nil {
		return "1 = 1", nil, nil
	}
	if err := f.Validate(nil); err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}

	path := "$." + f.Field

	switch f.Op {
	case model.OpEquals:
		v, _ := model.Scalar(f.Value)
		return fmt.Sprintf("json_extract(%s, ?) = ?", column), []any{path, v}, nil

	case model.OpEqualsAnyOf:
		if len(f.Values) == 0 {
			return "1 = 0", nil, nil
		}
		params := []any{path}
		params = appendScalars(params, f.Values)
		sql := fmt.Sprintf("json_extract(%s, ?) IN (%s)", column, placeholders(len(f.Values)))
		return sql, params, nil

	case model.OpInArray:
		v, _ := model.Scalar(f.Value)
		sql := fmt.Sprintf(
			"(json_type(%[1]s, ?) = 'array' AND EXISTS (SELECT 1 FROM json_each(%[1]s, ?) WHERE json_each.value = ?))",
			column)
		return sql, []any{path, path, v}, nil

	case model.OpInArrayAnyOf:
		if len(f.Values) == 0 {
			return "1 = 0", nil, nil
		}
		params := []any{path, path}
		params = appendScalars(params, f.Values)
		sql := fmt.Sprintf(
			"(json_type(%[1]s, ?) = 'array' AND EXISTS (SELECT 1 FROM json_each(%[1]s, ?) WHERE json_each.value IN (%[2]s)))",
			column, placeholders(len(f.Values)))
		return sql, params, nil
	}

	return "", nil, fmt.Errorf("compile filter: unsupported operator %q", f.Op)
}

func appendScalars(params []any, values []any) []any {
	for _, v := range values {
		s, _ := model.Scalar(v)
		params = append(params, s)
	}
	return params
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
