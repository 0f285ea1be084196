package internal

import (
	"fmt"
	"sort"
	"strings"
)

// RegisterBuiltinFilters seeds a filter registry with the standard
// filter set. All of them can be overridden by a later registration
// under the same name.
func RegisterBuiltinFilters(reg *Registry[FilterHandler]) {
	// String filters
	reg.Register("append", FilterFunc(filterAppend))
	reg.Register("capitalize", FilterFunc(filterCapitalize))
	reg.Register("downcase", FilterFunc(filterDowncase))
	reg.Register("prepend", FilterFunc(filterPrepend))
	reg.Register("replace", FilterFunc(filterReplace))
	reg.Register("split", FilterFunc(filterSplit))
	reg.Register("strip", FilterFunc(filterStrip))
	reg.Register("truncate", FilterFunc(filterTruncate))
	reg.Register("upcase", FilterFunc(filterUpcase))

	// Collection filters
	reg.Register("first", FilterFunc(filterFirst))
	reg.Register("join", FilterFunc(filterJoin))
	reg.Register("last", FilterFunc(filterLast))
	reg.Register("size", FilterFunc(filterSize))
	reg.Register("sort", FilterFunc(filterSort))
	reg.Register("uniq", FilterFunc(filterUniq))

	// Numeric filters
	reg.Register("divided_by", FilterFunc(filterDividedBy))
	reg.Register("minus", FilterFunc(filterMinus))
	reg.Register("modulo", FilterFunc(filterModulo))
	reg.Register("plus", FilterFunc(filterPlus))
	reg.Register("times", FilterFunc(filterTimes))

	// Fallback
	reg.Register("default", FilterFunc(filterDefault))
}

func requireArgs(args []any, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s: want %d, got %d", ErrMsgFilterArgCount, n, len(args))
	}
	return nil
}

// ---- string filters ----

func filterUpcase(value any, args []any) (any, error) {
	if err := requireArgs(args, 0); err != nil {
		return nil, err
	}
	return strings.ToUpper(Stringify(value)), nil
}

func filterDowncase(value any, args []any) (any, error) {
	if err := requireArgs(args, 0); err != nil {
		return nil, err
	}
	return strings.ToLower(Stringify(value)), nil
}

func filterCapitalize(value any, args []any) (any, error) {
	if err := requireArgs(args, 0); err != nil {
		return nil, err
	}
	s := Stringify(value)
	if s == "" {
		return s, nil
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:]), nil
}

func filterStrip(value any, args []any) (any, error) {
	if err := requireArgs(args, 0); err != nil {
		return nil, err
	}
	return strings.TrimSpace(Stringify(value)), nil
}

func filterAppend(value any, args []any) (any, error) {
	if err := requireArgs(args, 1); err != nil {
		return nil, err
	}
	return Stringify(value) + Stringify(args[0]), nil
}

func filterPrepend(value any, args []any) (any, error) {
	if err := requireArgs(args, 1); err != nil {
		return nil, err
	}
	return Stringify(args[0]) + Stringify(value), nil
}

func filterReplace(value any, args []any) (any, error) {
	if err := requireArgs(args, 2); err != nil {
		return nil, err
	}
	return strings.ReplaceAll(Stringify(value), Stringify(args[0]), Stringify(args[1])), nil
}

func filterSplit(value any, args []any) (any, error) {
	if err := requireArgs(args, 1); err != nil {
		return nil, err
	}
	s := Stringify(value)
	if s == "" {
		return []any{}, nil
	}
	parts := strings.Split(s, Stringify(args[0]))
	result := make([]any, len(parts))
	for i, p := range parts {
		result[i] = p
	}
	return result, nil
}

// filterTruncate shortens a string to a length, appending an ellipsis
// (or a custom suffix) that counts toward the length.
func filterTruncate(value any, args []any) (any, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, fmt.Errorf("%s: want 1 or 2, got %d", ErrMsgFilterArgCount, len(args))
	}
	length, ok := ToInt(args[0])
	if !ok {
		return nil, fmt.Errorf("%s: %v", ErrMsgFilterNumericArg, args[0])
	}
	suffix := "..."
	if len(args) == 2 {
		suffix = Stringify(args[1])
	}
	// Truncation counts runes, never splitting a multi-byte character.
	runes := []rune(Stringify(value))
	if int64(len(runes)) <= length {
		return string(runes), nil
	}
	cut := length - int64(len([]rune(suffix)))
	if cut < 0 {
		cut = 0
	}
	return string(runes[:cut]) + suffix, nil
}

// ---- collection filters ----

func filterSize(value any, args []any) (any, error) {
	if err := requireArgs(args, 0); err != nil {
		return nil, err
	}
	if n, ok := lengthOf(value); ok {
		return int64(n), nil
	}
	return int64(0), nil
}

func filterFirst(value any, args []any) (any, error) {
	if err := requireArgs(args, 0); err != nil {
		return nil, err
	}
	if items, ok := sliceOf(value); ok && len(items) > 0 {
		return items[0], nil
	}
	return nil, nil
}

func filterLast(value any, args []any) (any, error) {
	if err := requireArgs(args, 0); err != nil {
		return nil, err
	}
	if items, ok := sliceOf(value); ok && len(items) > 0 {
		return items[len(items)-1], nil
	}
	return nil, nil
}

func filterJoin(value any, args []any) (any, error) {
	if len(args) > 1 {
		return nil, fmt.Errorf("%s: want 0 or 1, got %d", ErrMsgFilterArgCount, len(args))
	}
	sep := " "
	if len(args) == 1 {
		sep = Stringify(args[0])
	}
	items, ok := sliceOf(value)
	if !ok {
		return Stringify(value), nil
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = Stringify(item)
	}
	return strings.Join(parts, sep), nil
}

func filterSort(value any, args []any) (any, error) {
	if err := requireArgs(args, 0); err != nil {
		return nil, err
	}
	items, ok := sliceOf(value)
	if !ok {
		return value, nil
	}
	sorted := make([]any, len(items))
	copy(sorted, items)
	var sortErr error
	sort.SliceStable(sorted, func(i, j int) bool {
		cmp, err := Compare(sorted[i], sorted[j])
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return cmp < 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return sorted, nil
}

func filterUniq(value any, args []any) (any, error) {
	if err := requireArgs(args, 0); err != nil {
		return nil, err
	}
	items, ok := sliceOf(value)
	if !ok {
		return value, nil
	}
	var result []any
	for _, item := range items {
		seen := false
		for _, existing := range result {
			if Equals(existing, item) {
				seen = true
				break
			}
		}
		if !seen {
			result = append(result, item)
		}
	}
	return result, nil
}

// ---- numeric filters ----

// numericOperands coerces the filter input and single argument to numbers,
// reporting whether both were integral.
func numericOperands(value any, args []any) (float64, float64, bool, error) {
	if err := requireArgs(args, 1); err != nil {
		return 0, 0, false, err
	}
	a, ok := ToNumber(value)
	if !ok {
		return 0, 0, false, fmt.Errorf("%s: %v", ErrMsgFilterNumericInput, value)
	}
	b, ok := ToNumber(args[0])
	if !ok {
		return 0, 0, false, fmt.Errorf("%s: %v", ErrMsgFilterNumericArg, args[0])
	}
	_, aInt := ToInt(value)
	_, bInt := ToInt(args[0])
	return a, b, aInt && bInt, nil
}

func numericResult(f float64, integral bool) any {
	if integral {
		return int64(f)
	}
	return f
}

func filterPlus(value any, args []any) (any, error) {
	a, b, integral, err := numericOperands(value, args)
	if err != nil {
		return nil, err
	}
	return numericResult(a+b, integral), nil
}

func filterMinus(value any, args []any) (any, error) {
	a, b, integral, err := numericOperands(value, args)
	if err != nil {
		return nil, err
	}
	return numericResult(a-b, integral), nil
}

func filterTimes(value any, args []any) (any, error) {
	a, b, integral, err := numericOperands(value, args)
	if err != nil {
		return nil, err
	}
	return numericResult(a*b, integral), nil
}

func filterDividedBy(value any, args []any) (any, error) {
	a, b, integral, err := numericOperands(value, args)
	if err != nil {
		return nil, err
	}
	if b == 0 {
		return nil, fmt.Errorf("%s: %v / 0", ErrMsgDivisionByZero, value)
	}
	if integral {
		// Integer division truncates, as in the source language.
		return int64(a) / int64(b), nil
	}
	return a / b, nil
}

func filterModulo(value any, args []any) (any, error) {
	a, b, integral, err := numericOperands(value, args)
	if err != nil {
		return nil, err
	}
	if !integral {
		return nil, fmt.Errorf("%s: %v", ErrMsgFilterNumericArg, args[0])
	}
	if int64(b) == 0 {
		return nil, fmt.Errorf("%s: %v %% 0", ErrMsgDivisionByZero, value)
	}
	return int64(a) % int64(b), nil
}

// ---- fallback ----

// filterDefault substitutes its argument for nil, false and empty values.
func filterDefault(value any, args []any) (any, error) {
	if err := requireArgs(args, 1); err != nil {
		return nil, err
	}
	if value == nil || value == false || isEmpty(value) {
		return args[0], nil
	}
	return value, nil
}
