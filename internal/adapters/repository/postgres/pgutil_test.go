package postgres

import (
	"database/sql"
	"fmt"
	"reflect"
)

// valuesRow は Scan 先へ順番に値を書き込む pgx.Row のスタブです。
type valuesRow struct {
	values []any
	err    error
}

func (r valuesRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("unexpected dest length %d, want %d", len(dest), len(r.values))
	}
	for i, d := range dest {
		if scanner, ok := d.(sql.Scanner); ok {
			if err := scanner.Scan(r.values[i]); err != nil {
				return fmt.Errorf("column %d: %w", i, err)
			}
			continue
		}
		if r.values[i] == nil {
			continue
		}
		target := reflect.ValueOf(d).Elem()
		value := reflect.ValueOf(r.values[i])
		if !value.Type().ConvertibleTo(target.Type()) {
			return fmt.Errorf("column %d: cannot assign %T to %s", i, r.values[i], target.Type())
		}
		target.Set(value.Convert(target.Type()))
	}
	return nil
}
