package scenario

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

//go:embed scenarios
var embedded embed.FS

// MainFile is executed before every other .lua file of a scenario.
const MainFile = "scenario.lua"

// collector accumulates Lua definitions during file execution.
type collector struct {
	scenario *lua.LTable
	fallback *lua.LTable
	items    []rawItem
	triggers []rawTrigger
	order    int
}

type rawItem struct {
	id    string
	table *lua.LTable
}

type rawTrigger struct {
	id    string
	table *lua.LTable
	order int
}

func (c *collector) nextSourceOrder() int {
	c.order++
	return c.order
}

// Default loads the scenario compiled into the binary.
func Default() (*Scenario, error) {
	sub, err := fs.Sub(embedded, "scenarios/default")
	if err != nil {
		return nil, err
	}
	return LoadFS(sub)
}

// Load reads every .lua file in dir.
func Load(dir string) (*Scenario, error) {
	s, err := LoadFS(os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", dir, err)
	}
	return s, nil
}

// LoadFS executes the .lua files at the root of fsys, compiles them, and
// validates the result.
func LoadFS(fsys fs.FS) (*Scenario, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading scenario directory: %w", err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			luaFiles = append(luaFiles, e.Name())
		}
	}
	if len(luaFiles) == 0 {
		return nil, fmt.Errorf("no .lua files found")
	}
	luaFiles = sortedLuaFiles(luaFiles)

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	openSafeLibs(L)
	sandbox(L)

	coll := &collector{}
	registerAPI(L, coll)

	for _, f := range luaFiles {
		data, err := fs.ReadFile(fsys, f)
		if err != nil {
			return nil, err
		}
		fn, err := L.Load(bytes.NewReader(data), path.Base(f))
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", f, err)
		}
		L.Push(fn)
		if err := L.PCall(0, lua.MultRet, nil); err != nil {
			return nil, fmt.Errorf("executing %s: %w", f, err)
		}
	}

	s, err := compile(coll)
	if err != nil {
		return nil, fmt.Errorf("compiling scenario: %w", err)
	}
	if err := validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

// sortedLuaFiles puts MainFile first, the rest alphabetical.
func sortedLuaFiles(files []string) []string {
	var main string
	var others []string
	for _, f := range files {
		if f == MainFile {
			main = f
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(others)
	if main != "" {
		return append([]string{main}, others...)
	}
	return others
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes globals that reach outside the VM or break determinism.
func sandbox(L *lua.LState) {
	for _, name := range []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage", "print",
	} {
		L.SetGlobal(name, lua.LNil)
	}
	if tbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		tbl.RawSetString("random", lua.LNil)
		tbl.RawSetString("randomseed", lua.LNil)
	}
}
