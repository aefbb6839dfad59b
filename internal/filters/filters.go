// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package filters

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/tidwall/gjson"
)

// filterRegex is the pattern used to parse filter expressions into key, operator, and target components.
// Operators are one of = ^ ~ < > @ or /, optionally prefixed with '!'.
// This allows forms like '=', '!=', '^', '!^', etc.
var filterRegex = regexp.MustCompile(`^(.*?)(!?[=^~<>@/])(.*)$`)

// Filter represents a single parsed --filter expression including the key,
// operand, optional negation and target value. Key is a gjson path into a
// row.
type Filter struct {
	Key     string
	Negate  bool
	Operand string
	Target  string
}

func (f Filter) String() string {
	neg := ""
	if f.Negate {
		neg = "!"
	}
	return f.Key + neg + f.Operand + f.Target
}

// BuildFilters parses a filter specification string into a slice of Filter.
// A malformed expression fails the whole spec.
func BuildFilters(spec string) ([]Filter, error) {
	//nolint:prealloc
	var filters []Filter

	// If there are no filters specified, go home early.
	if spec == "" {
		return filters, nil
	}

	// Default delimiter is ",", allow an override.
	delim := ","
	if d, ok := os.LookupEnv("DARTRUN_FILTER_DELIM"); ok && d != "" {
		delim = d
	}

	for _, filterSpec := range strings.Split(spec, delim) {
		parts := filterRegex.FindStringSubmatch(filterSpec)
		if parts == nil || parts[1] == "" {
			return nil, fmt.Errorf("invalid filter: %q", filterSpec)
		}

		// parts[2] is the operand. It may have a leading negation.
		negate := strings.HasPrefix(parts[2], "!")
		if negate {
			parts[2] = strings.TrimPrefix(parts[2], "!")
		}

		if parts[2] == "/" {
			if _, err := regexp.Compile(parts[3]); err != nil {
				return nil, fmt.Errorf("invalid filter regex %q: %w", parts[3], err)
			}
		}

		filters = append(filters, Filter{
			Key:     parts[1],
			Negate:  negate,
			Operand: parts[2],
			Target:  parts[3],
		})
	}

	return filters, nil
}

// FilterDataset returns the rows of candidates, a JSON array, that match
// every filter.
func FilterDataset(candidates gjson.Result, filters []Filter) []gjson.Result {
	//nolint:prealloc // Don't prealloc because we don't know what len will be.
	var filtered []gjson.Result
	for _, candidate := range candidates.Array() {
		if applyFilters(candidate, filters) {
			filtered = append(filtered, candidate)
		}
	}
	return filtered
}

// SortDataset orders rows by the gjson path key. A leading '-' sorts
// descending. Rows missing the key sort first.
func SortDataset(rows []gjson.Result, key string) {
	if key == "" {
		return
	}
	desc := strings.HasPrefix(key, "-")
	key = strings.TrimPrefix(key, "-")

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Get(key), rows[j].Get(key)
		if desc {
			return b.Less(a, true)
		}
		return a.Less(b, true)
	})
}

// applyFilters returns true if the candidate row matches all of the provided
// filters.
func applyFilters(candidate gjson.Result, filters []Filter) bool {
	for _, filter := range filters {
		value := candidate.Get(filter.Key)
		if !value.Exists() {
			log.Debugf("filter key not found: %s", filter.Key)
			return false
		}

		var result bool
		switch value.Type {
		case gjson.Number:
			if filter.Operand == "=" || filter.Operand == "<" || filter.Operand == ">" {
				result = checkNumericOperand(value.Num, filter)
			} else {
				result = checkStringOperand(value.String(), filter)
			}
		case gjson.JSON:
			result = checkContainsOperand(value, filter)
		default:
			result = checkStringOperand(value.String(), filter)
		}

		if !result {
			return false
		}
	}

	return true
}

// checkContainsOperand evaluates a membership style filter (operand '@')
// against array or object values.
func checkContainsOperand(value gjson.Result, filter Filter) bool {
	if filter.Operand != "@" {
		log.Error(fmt.Sprintf("unsupported operand for %s: %s", filter.Key, filter.Operand))
		return false
	}

	found := false
	if value.IsArray() {
		for _, item := range value.Array() {
			if item.String() == filter.Target {
				found = true
				break
			}
		}
	} else {
		found = value.Get(gjson.Escape(filter.Target)).Exists()
	}
	return found == !filter.Negate
}

// checkNumericOperand compares a numeric value against the filter target using
// numeric semantics. Supported operands: =, >, < and the negated form via
// filter.Negate (e.g., != is represented as Negate + "=").
func checkNumericOperand(value float64, filter Filter) bool {
	tgt, err := strconv.ParseFloat(strings.TrimSpace(filter.Target), 64)
	if err != nil {
		log.Error("invalid numeric target: " + filter.Target)
		return false
	}

	switch filter.Operand {
	case "=":
		return (value == tgt) == !filter.Negate
	case ">":
		return (value > tgt) == !filter.Negate
	case "<":
		return (value < tgt) == !filter.Negate
	default:
		log.Error("unsupported numeric operand: " + filter.Operand)
		return false
	}
}

// checkStringOperand evaluates a string comparison style filter against the
// provided value using the operand semantics.
func checkStringOperand(value string, filter Filter) bool {
	switch filter.Operand {
	case "=":
		return value == filter.Target == !filter.Negate
	case "~":
		return strings.EqualFold(value, filter.Target) == !filter.Negate
	case "^":
		return strings.HasPrefix(value, filter.Target) == !filter.Negate
	case ">":
		return value > filter.Target == !filter.Negate
	case "<":
		return value < filter.Target == !filter.Negate
	case "@":
		return strings.Contains(value, filter.Target) == !filter.Negate
	case "/":
		matched, err := regexp.MatchString(filter.Target, value)
		if err != nil {
			log.Error("invalid regex: " + filter.Target)
			return false
		}
		return matched == !filter.Negate
	default:
		log.Error("unsupported filtering operand: " + filter.Operand)
		return false
	}
}
