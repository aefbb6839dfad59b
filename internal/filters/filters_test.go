// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package filters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestBuildFilters(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    []Filter
		wantErr bool
	}{
		{
			name: "empty spec",
			spec: "",
		},
		{
			name: "single exact match filter",
			spec: "kind=package",
			want: []Filter{
				{Key: "kind", Operand: "=", Target: "package"},
			},
		},
		{
			name: "prefix match filter",
			spec: "key^3f2a",
			want: []Filter{
				{Key: "key", Operand: "^", Target: "3f2a"},
			},
		},
		{
			name: "negated exact match",
			spec: "kind!=artifact",
			want: []Filter{
				{Key: "kind", Operand: "=", Target: "artifact", Negate: true},
			},
		},
		{
			name: "multiple filters",
			spec: "kind=package,size>1024",
			want: []Filter{
				{Key: "kind", Operand: "=", Target: "package"},
				{Key: "size", Operand: ">", Target: "1024"},
			},
		},
		{
			name: "target may contain operators",
			spec: "path/^/tmp/.*",
			want: []Filter{
				{Key: "path", Operand: "/", Target: "^/tmp/.*"},
			},
		},
		{
			name:    "no operand",
			spec:    "kind",
			wantErr: true,
		},
		{
			name:    "no key",
			spec:    "=package",
			wantErr: true,
		},
		{
			name:    "bad regex",
			spec:    "key/[",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildFilters(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildFilters_Delimiter(t *testing.T) {
	t.Setenv("DARTRUN_FILTER_DELIM", ";")

	got, err := BuildFilters("kind=package;key@a,b")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a,b", got[1].Target)
}

func TestCheckStringOperand(t *testing.T) {
	tests := []struct {
		value  string
		filter Filter
		want   bool
	}{
		{"package", Filter{Operand: "=", Target: "package"}, true},
		{"package", Filter{Operand: "=", Target: "package", Negate: true}, false},
		{"Package", Filter{Operand: "~", Target: "package"}, true},
		{"3f2a01", Filter{Operand: "^", Target: "3f2a"}, true},
		{"3f2a01", Filter{Operand: "^", Target: "3f2a", Negate: true}, false},
		{"b", Filter{Operand: ">", Target: "a"}, true},
		{"b", Filter{Operand: "<", Target: "a"}, false},
		{"abc_linux-amd64", Filter{Operand: "@", Target: "linux"}, true},
		{"abc_linux-amd64", Filter{Operand: "/", Target: `_linux-(amd|arm)64$`}, true},
		{"abc", Filter{Operand: "/", Target: "["}, false},
		{"abc", Filter{Operand: "?", Target: "a"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.filter.String()+" "+tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, checkStringOperand(tt.value, tt.filter))
		})
	}
}

func TestCheckNumericOperand(t *testing.T) {
	assert.True(t, checkNumericOperand(10, Filter{Operand: "=", Target: "10"}))
	assert.False(t, checkNumericOperand(10, Filter{Operand: "=", Target: "10", Negate: true}))
	assert.True(t, checkNumericOperand(10, Filter{Operand: ">", Target: "9.5"}))
	assert.True(t, checkNumericOperand(10, Filter{Operand: "<", Target: " 11 "}))
	assert.False(t, checkNumericOperand(10, Filter{Operand: "<", Target: "ten"}))
	assert.False(t, checkNumericOperand(10, Filter{Operand: "^", Target: "1"}))
}

func TestCheckContainsOperand(t *testing.T) {
	arr := gjson.Parse(`["a","b"]`)
	obj := gjson.Parse(`{"a":1}`)

	assert.True(t, checkContainsOperand(arr, Filter{Operand: "@", Target: "b"}))
	assert.False(t, checkContainsOperand(arr, Filter{Operand: "@", Target: "b", Negate: true}))
	assert.True(t, checkContainsOperand(obj, Filter{Operand: "@", Target: "a"}))
	assert.False(t, checkContainsOperand(obj, Filter{Operand: "@", Target: "z"}))
	assert.False(t, checkContainsOperand(obj, Filter{Operand: "=", Target: "a"}))
}

const dataset = `[
  {"kind":"package","key":"aaa","size":100,"age_days":1},
  {"kind":"artifact","key":"bbb","size":5000,"age_days":40},
  {"kind":"package","key":"ccc","size":3000,"age_days":12}
]`

func keys(rows []gjson.Result) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Get("key").String())
	}
	return out
}

func TestFilterDataset(t *testing.T) {
	tests := []struct {
		spec string
		want []string
	}{
		{"", []string{"aaa", "bbb", "ccc"}},
		{"kind=package", []string{"aaa", "ccc"}},
		{"kind=package,size>1000", []string{"ccc"}},
		{"age_days>30", []string{"bbb"}},
		{"size!=100", []string{"bbb", "ccc"}},
		{"key^b", []string{"bbb"}},
		{"missing=x", nil},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			filters, err := BuildFilters(tt.spec)
			require.NoError(t, err)
			got := FilterDataset(gjson.Parse(dataset), filters)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, keys(got))
		})
	}
}

func TestSortDataset(t *testing.T) {
	rows := gjson.Parse(dataset).Array()

	SortDataset(rows, "size")
	assert.Equal(t, []string{"aaa", "ccc", "bbb"}, keys(rows))

	SortDataset(rows, "-age_days")
	assert.Equal(t, []string{"bbb", "ccc", "aaa"}, keys(rows))

	SortDataset(rows, "kind")
	assert.Equal(t, []string{"bbb", "ccc", "aaa"}, keys(rows), "stable within equal keys")

	SortDataset(rows, "")
	assert.Equal(t, []string{"bbb", "ccc", "aaa"}, keys(rows))
}
