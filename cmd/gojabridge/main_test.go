package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gojabridge "github.com/joeycumines/goja-bridge"
	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

func TestEval(t *testing.T) {
	stdout, stderr, err := execute(t, "", "eval", "console.log('side effect'); ({sum: 1 + 2, list: ['a']})")
	require.NoError(t, err)
	assert.JSONEq(t, `{"sum": 3, "list": ["a"]}`, stdout)
	assert.Contains(t, stderr, `"msg":"side effect"`)

	stdout, _, err = execute(t, "[1, 2].length", "eval")
	require.NoError(t, err)
	assert.Equal(t, "2\n", stdout)

	_, _, err = execute(t, "", "eval", "throw new Error('boom')")
	assert.ErrorContains(t, err, "boom")

	_, _, err = execute(t, "", "--log-level", "loud", "eval", "1")
	assert.EqualError(t, err, `invalid log level "loud"`)

	_, _, err = execute(t, "", "eval", "-f", "x.js", "1")
	assert.Error(t, err)
}

func TestCall(t *testing.T) {
	dir := t.TempDir()
	module := filepath.Join(dir, "math.js")
	script := filepath.Join(dir, "script.js")
	require.NoError(t, os.WriteFile(module, []byte(`export function add(a, b) { return a + b; }
export async function later(v) { return {v}; }
`), 0o644))
	require.NoError(t, os.WriteFile(script, []byte(`function greet(o) { return 'hi ' + o.name; }`), 0o644))

	stdout, _, err := execute(t, "", "call", module, "add", "2", "40")
	require.NoError(t, err)
	assert.Equal(t, "42\n", stdout)

	stdout, _, err = execute(t, "", "call", "--async", module, "later", `"x"`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v": "x"}`, stdout)

	_, _, err = execute(t, "", "call", module, "later", `"x"`)
	assert.ErrorContains(t, err, "CallAsync")

	stdout, _, err = execute(t, "", "call", "--script", script, "greet", `{"name": "bob"}`)
	require.NoError(t, err)
	assert.Equal(t, "\"hi bob\"\n", stdout)

	_, _, err = execute(t, "", "call", module, "add", "{")
	assert.ErrorContains(t, err, "argument 1")

	_, _, err = execute(t, "", "call", filepath.Join(dir, "missing.js"), "add")
	assert.Error(t, err)
}

func TestRepl_execute(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetErr(&bytes.Buffer{})
	opts := rootOptions{logLevel: "disabled"}
	engine, err := opts.newEngine(cmd)
	require.NoError(t, err)
	defer engine.Close()

	r := &repl{engine: engine, out: &out}
	r.execute("var x = 20")
	r.execute("  ")
	r.execute("x + 22")
	r.execute("nope(")
	assert.Equal(t, 3, r.line)
	assert.True(t, strings.HasPrefix(out.String(), "null\n42\n{\"kind\":\"compile\",\"error\":\"gojabridge: <repl:3>: "), out.String())

	assert.True(t, r.exit(".exit", true))
	assert.False(t, r.exit(".exit", false))
	assert.False(t, r.exit("exit", true))
}

func TestParseLevel(t *testing.T) {
	for level := logiface.LevelDisabled; level <= logiface.LevelTrace; level++ {
		got, err := parseLevel(level.String())
		require.NoError(t, err)
		assert.Equal(t, level, got)
	}
}

func TestAppendError(t *testing.T) {
	b := appendError(nil, &gojabridge.NameNotFoundError{Name: "x"})
	assert.Equal(t, `{"kind":"name not found","error":"gojabridge: \"x\" is not defined"}`+"\n", string(b))
}
