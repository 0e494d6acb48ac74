package number_test

import (
	"math"
	"math/big"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zephyrtronium/exprtree/number"
)

func TestWiden(t *testing.T) {
	huge, _ := new(big.Int).SetString("100000000000000000000", 10)
	cases := []struct {
		name string
		a, b any
		want number.Width
	}{
		{"ints", 2, int64(3), number.WidthInt64},
		{"small-uint", uint8(2), int32(3), number.WidthInt64},
		{"big-fitting", big.NewInt(5), 3, number.WidthInt64},
		{"uint64-overflow", uint64(math.MaxUint64), 1, number.WidthBigInt},
		{"big-int", huge, 3, number.WidthBigInt},
		{"big-integral-float", huge, 2.0, number.WidthBigInt},
		{"big-integral-decimal", apd.New(4, 0), huge, number.WidthBigInt},
		{"big-fractional", huge, 2.5, number.WidthDecimal},
		{"int-float", 2, 3.5, number.WidthFloat64},
		{"float32", float32(1), 3.5, number.WidthFloat64},
		{"wide-int-float", int64(1) << 60, 3.5, number.WidthDecimal},
		{"float-decimal", 1.5, apd.New(15, -1), number.WidthDecimal},
		{"int-decimal", 1, apd.New(15, -1), number.WidthDecimal},
		{"float-value", number.Float64(1), 1, number.WidthFloat64},
		{"decimal-value", number.Int64(number.Decimal, 1), 1, number.WidthDecimal},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w, err := number.Widen(c.a, c.b)
			require.NoError(t, err)
			assert.Equal(t, c.want, w, "got %v", w)
		})
	}
	_, err := number.Widen("1", 2)
	var te *number.TypeError
	assert.ErrorAs(t, err, &te)
}

func TestRaw(t *testing.T) {
	cases := []struct {
		name string
		op   number.Op
		a, b any
		want any
	}{
		{"int-add", number.OpAdd, 2, 3, int64(5)},
		{"int-float-add", number.OpAdd, 2, 3.5, 5.5},
		{"int-quo-exact", number.OpQuo, 12, 4, int64(3)},
		{"int-rem", number.OpRem, -7, 3, int64(-1)},
		{"int-pow", number.OpPow, 2, 10, int64(1024)},
		{"overflow-add", number.OpAdd, int64(math.MaxInt64), 1, bigString("9223372036854775808")},
		{"overflow-mul", number.OpMul, int64(1) << 40, int64(1) << 40, bigString("1208925819614629174706176")},
		{"overflow-neg", number.OpSub, int64(math.MinInt64), 1, bigString("-9223372036854775809")},
		{"big-narrows", number.OpSub, bigString("9223372036854775808"), 1, int64(math.MaxInt64)},
		{"pow-big", number.OpPow, 10, 20, bigString("100000000000000000000")},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r, err := number.Raw(nil, c.op, c.a, c.b)
			require.NoError(t, err)
			assert.Equal(t, c.want, r)
		})
	}
}

func bigString(s string) *big.Int {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad big int " + s)
	}
	return b
}

func TestRawDecimal(t *testing.T) {
	cases := []struct {
		name string
		op   number.Op
		a, b any
		want string
	}{
		{"inexact-quo", number.OpQuo, 1, 4, "0.25"},
		{"negative-pow", number.OpPow, 2, -2, "0.25"},
		{"float-decimal", number.OpAdd, 0.5, apd.New(25, -2), "0.75"},
		{"big-fractional", number.OpAdd, bigString("100000000000000000000"), 0.5, "100000000000000000000.5"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r, err := number.Raw(nil, c.op, c.a, c.b)
			require.NoError(t, err)
			d, ok := r.(*apd.Decimal)
			require.True(t, ok, "want decimal, got %T", r)
			want, _, err := apd.NewFromString(c.want)
			require.NoError(t, err)
			assert.Zero(t, d.Cmp(want), "got %v, want %v", d, want)
		})
	}
}

func TestRawErrors(t *testing.T) {
	cases := []struct {
		name string
		op   number.Op
		a, b any
	}{
		{"int-div-zero", number.OpQuo, 1, 0},
		{"int-rem-zero", number.OpRem, 1, 0},
		{"big-div-zero", number.OpQuo, bigString("100000000000000000000"), 0},
		{"float-div-zero", number.OpQuo, 1.5, 0},
		{"decimal-div-zero", number.OpQuo, apd.New(1, 0), 0},
		{"huge-exponent", number.OpPow, 3, int64(1) << 40},
		{"not-a-number", number.OpAdd, 1, "2"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r, err := number.Raw(nil, c.op, c.a, c.b)
			assert.Error(t, err)
			assert.Nil(t, r)
		})
	}
}

func TestRawCmp(t *testing.T) {
	cases := []struct {
		name string
		a, b any
		want int
	}{
		{"ints", 1, 2, -1},
		{"int-float", 3, 2.5, 1},
		{"equal-kinds", 1, 1.0, 0},
		{"int-decimal", 1, apd.New(10, -1), 0},
		{"big", bigString("100000000000000000000"), int64(math.MaxInt64), 1},
		{"nan", math.NaN(), apd.New(1, 0), -1},
		{"decimal-nan", apd.New(1, 0), math.NaN(), 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r, err := number.RawCmp(c.a, c.b)
			require.NoError(t, err)
			assert.Equal(t, c.want, r)
		})
	}
}
