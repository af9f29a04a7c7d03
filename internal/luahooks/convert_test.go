// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package luahooks

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	lua "github.com/yuin/gopher-lua"
)

func TestFromLua_Numbers(t *testing.T) {
	tests := []struct {
		name string
		in   lua.LNumber
		want any
	}{
		{name: "integral", in: 42, want: 42},
		{name: "negative integral", in: -7, want: -7},
		{name: "fractional", in: 2.5, want: 2.5},
		{name: "largest exact below 2^63", in: lua.LNumber(math.Nextafter(1<<63, 0)), want: int(math.Nextafter(1<<63, 0))},
		{name: "2^63 stays float", in: lua.LNumber(1 << 63), want: float64(1 << 63)},
		{name: "-2^63 fits int", in: lua.LNumber(-(1 << 63)), want: math.MinInt64},
		{name: "beyond range stays float", in: lua.LNumber(1e19), want: 1e19},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fromLua(tt.in))
		})
	}
}

func TestFromLua_NonScalarsPassThrough(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	tbl := L.NewTable()
	fn := L.NewFunction(func(*lua.LState) int { return 0 })

	assert.Same(t, tbl, fromLua(tbl))
	assert.Same(t, fn, fromLua(fn))
	assert.Same(t, tbl, toLua(L, fromLua(tbl)))
}
