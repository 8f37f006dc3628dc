// Package operation declares the spreadsheet operations offered to the model.
package operation

import (
	"context"
	"encoding/json"
	"fmt"

	"excel-agent/internal/application/port/output"
	"excel-agent/internal/domain/entity"
	"excel-agent/internal/domain/schema"
)

const hexColorPattern = `^#[0-9A-Fa-f]{6}$`

// Catalog returns every operation bound to workbook, in advertisement order.
func Catalog(workbook output.WorkbookPort) []entity.Operation {
	var ops []entity.Operation
	ops = append(ops, cellOperations(workbook)...)
	ops = append(ops, chartOperations(workbook)...)
	ops = append(ops, rangeOperations(workbook)...)
	ops = append(ops, dataOperations(workbook)...)
	ops = append(ops, formatOperations(workbook)...)
	ops = append(ops, worksheetOperations(workbook)...)
	return ops
}

func values2D(name, description string) schema.Property {
	return schema.Array(name, description, schema.Array("", "", schema.Scalar("", "")))
}

func hexColor(name, description string) schema.Property {
	return schema.String(name, description).Match(hexColorPattern)
}

// typed adapts an executor taking a decoded input struct.
func typed[T any](fn func(ctx context.Context, in T) (any, error)) entity.Executor {
	return func(ctx context.Context, args map[string]any) (any, error) {
		var in T
		if err := bind(args, &in); err != nil {
			return nil, err
		}
		return fn(ctx, in)
	}
}

func bind(args map[string]any, dst any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}
