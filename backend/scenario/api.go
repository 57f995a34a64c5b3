package scenario

import (
	lua "github.com/yuin/gopher-lua"
)

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerHelpers(L)
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Scenario { title = "...", level = "...", ... }
	L.SetGlobal("Scenario", L.NewFunction(func(L *lua.LState) int {
		coll.scenario = L.CheckTable(1)
		return 0
	}))

	// Fallback { text = "...", options = {...} }
	L.SetGlobal("Fallback", L.NewFunction(func(L *lua.LState) int {
		coll.fallback = L.CheckTable(1)
		return 0
	}))

	// Item "id" { ... }: curried, Item("id") returns a function that takes a table.
	L.SetGlobal("Item", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			coll.items = append(coll.items, rawItem{id: id, table: L.CheckTable(1)})
			return 0
		}))
		return 1
	}))

	// Trigger "id" { keywords = {...}, text = "...", check = Check(...) }
	L.SetGlobal("Trigger", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			coll.triggers = append(coll.triggers, rawTrigger{
				id:    id,
				table: L.CheckTable(1),
				order: coll.nextSourceOrder(),
			})
			return 0
		}))
		return 1
	}))
}

func registerHelpers(L *lua.LState) {
	// Check("Perception", "d20", { Outcome(...), ... })
	L.SetGlobal("Check", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("name", lua.LString(L.CheckString(1)))
		tbl.RawSetString("die", lua.LString(L.CheckString(2)))
		tbl.RawSetString("outcomes", L.CheckTable(3))
		L.Push(tbl)
		return 1
	}))

	// Outcome(low, high, "content", { hp = -2, add = {"7"} })
	// The effect table is optional.
	L.SetGlobal("Outcome", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("low", L.CheckNumber(1))
		tbl.RawSetString("high", L.CheckNumber(2))
		tbl.RawSetString("content", lua.LString(L.CheckString(3)))
		if eff, ok := L.Get(4).(*lua.LTable); ok {
			tbl.RawSetString("effect", eff)
		}
		L.Push(tbl)
		return 1
	}))
}
