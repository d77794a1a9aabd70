package parse

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrency(t *testing.T) {
	cases := []struct {
		input string
		want  string
		ok    bool
	}{
		{"$12,345.67", "12345.67", true},
		{"12345.67", "12345.67", true},
		{"$1,200", "1200", true},
		{"0", "0", true},
		{"$0.99", "0.99", true},
		{" $500 ", "500", true},
		{"", "", false},
		{"$", "", false},
		{"$-100", "", false},
		{"-100", "", false},
		{"$12.345", "", false},
		{"abc", "", false},
		{"$1,2,3x", "", false},
	}

	for _, tc := range cases {
		got, err := Currency(tc.input)
		if !tc.ok {
			assert.Error(t, err, "input %q", tc.input)
			continue
		}
		require.NoError(t, err, "input %q", tc.input)
		want, _ := decimal.NewFromString(tc.want)
		assert.True(t, got.Equal(want), "input %q: got %s want %s", tc.input, got, want)
	}
}

func TestPercent(t *testing.T) {
	cases := []struct {
		input string
		want  string
		ok    bool
	}{
		{"12.5%", "12.5", true},
		{"12.5", "12.5", true},
		{"100%", "100", true},
		{"0%", "0", true},
		{" 7 % ", "7", true},
		{"", "", false},
		{"%", "", false},
		{"-5%", "", false},
		{"101", "", false},
		{"12.5%%", "", false},
		{"ten", "", false},
	}

	for _, tc := range cases {
		got, err := Percent(tc.input)
		if !tc.ok {
			assert.Error(t, err, "input %q", tc.input)
			continue
		}
		require.NoError(t, err, "input %q", tc.input)
		want, _ := decimal.NewFromString(tc.want)
		assert.True(t, got.Equal(want), "input %q: got %s want %s", tc.input, got, want)
	}
}

func TestInt(t *testing.T) {
	cases := []struct {
		input string
		want  int
		ok    bool
	}{
		{"3", 3, true},
		{"1,200", 1200, true},
		{"0", 0, true},
		{" 42 ", 42, true},
		{"", 0, false},
		{"-1", 0, false},
		{"3.5", 0, false},
		{"many", 0, false},
	}

	for _, tc := range cases {
		got, err := Int(tc.input)
		if !tc.ok {
			assert.Error(t, err, "input %q", tc.input)
			continue
		}
		require.NoError(t, err, "input %q", tc.input)
		assert.Equal(t, tc.want, got, "input %q", tc.input)
	}
}
