// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package luahooks

import (
	"fmt"
	"math"

	lua "github.com/yuin/gopher-lua"
)

// toLua converts a Go call argument into a Lua value.
// Values that came from Lua and have no Go shape (functions, userdata)
// pass through unchanged.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case []any:
		tbl := L.NewTable()
		for _, item := range val {
			tbl.Append(toLua(L, item))
		}
		return tbl
	case map[string]any:
		tbl := L.NewTable()
		for k, item := range val {
			tbl.RawSetString(k, toLua(L, item))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprint(val))
	}
}

// fromLua converts a Lua scalar into a Go call argument; integral numbers
// become int. Tables, functions and userdata stay lua.LValue so every
// handler sees the caller's value, including its identity.
func fromLua(v lua.LValue) any {
	switch val := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(val)
	case lua.LString:
		return string(val)
	case lua.LNumber:
		f := float64(val)
		if f == math.Trunc(f) && f >= -(1<<63) && f < 1<<63 {
			return int(f)
		}
		return f
	default:
		return v
	}
}

// argsFrom collects stack values from index start to the top.
func argsFrom(L *lua.LState, start int) []any {
	top := L.GetTop()
	if top < start {
		return nil
	}
	args := make([]any, 0, top-start+1)
	for i := start; i <= top; i++ {
		args = append(args, fromLua(L.Get(i)))
	}
	return args
}
