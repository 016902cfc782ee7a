package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// exitWasm calls proc_exit(3) from _start.
var exitWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// types: (i32) -> (), () -> ()
	0x01, 0x08, 0x02, 0x60, 0x01, 0x7f, 0x00, 0x60, 0x00, 0x00,
	// import "wasi_snapshot_preview1" "proc_exit"
	0x02, 0x24, 0x01,
	0x16, 'w', 'a', 's', 'i', '_', 's', 'n', 'a', 'p', 's', 'h', 'o', 't', '_', 'p', 'r', 'e', 'v', 'i', 'e', 'w', '1',
	0x09, 'p', 'r', 'o', 'c', '_', 'e', 'x', 'i', 't', 0x00, 0x00,
	// func _start: type 1
	0x03, 0x02, 0x01, 0x01,
	0x07, 0x0a, 0x01, 0x06, '_', 's', 't', 'a', 'r', 't', 0x00, 0x01,
	// i32.const 3; call proc_exit
	0x0a, 0x08, 0x01, 0x06, 0x00, 0x41, 0x03, 0x10, 0x00, 0x0b,
}

// vfsWasm exits with the result of env.xFileControl(0, 0, 0).
var vfsWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// types: (i32) -> (), () -> (), (i32, i32, i32) -> i32
	0x01, 0x0f, 0x03, 0x60, 0x01, 0x7f, 0x00, 0x60, 0x00, 0x00, 0x60, 0x03, 0x7f, 0x7f, 0x7f, 0x01, 0x7f,
	// imports
	0x02, 0x37, 0x02,
	0x16, 'w', 'a', 's', 'i', '_', 's', 'n', 'a', 'p', 's', 'h', 'o', 't', '_', 'p', 'r', 'e', 'v', 'i', 'e', 'w', '1',
	0x09, 'p', 'r', 'o', 'c', '_', 'e', 'x', 'i', 't', 0x00, 0x00,
	0x03, 'e', 'n', 'v',
	0x0c, 'x', 'F', 'i', 'l', 'e', 'C', 'o', 'n', 't', 'r', 'o', 'l', 0x00, 0x02,
	// func _start: type 1
	0x03, 0x02, 0x01, 0x01,
	0x07, 0x0a, 0x01, 0x06, '_', 's', 't', 'a', 'r', 't', 0x00, 0x02,
	// i32.const 0 (x3); call xFileControl; call proc_exit
	0x0a, 0x0e, 0x01, 0x0c, 0x00, 0x41, 0x00, 0x41, 0x00, 0x41, 0x00, 0x10, 0x01, 0x10, 0x00, 0x0b,
}

func writeFile(t *testing.T, name string, data []byte) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestRun(t *testing.T) {
	exitPath := writeFile(t, "exit.wasm", exitWasm)
	vfsPath := writeFile(t, "vfs.wasm", vfsWasm)
	root := t.TempDir()

	tests := []struct {
		name             string
		args             []string
		expectedExitCode int
	}{
		{name: "guest exit code", args: []string{"run", exitPath}, expectedExitCode: 3},
		{name: "guest arguments", args: []string{"run", exitPath, "--", "-v", "--debug"}, expectedExitCode: 3},
		{name: "interpreter", args: []string{"run", "--interp", exitPath}, expectedExitCode: 3},
		// xFileControl returns SQLITE_NOTFOUND
		{name: "VFS import", args: []string{"run", vfsPath}, expectedExitCode: 12},
		{name: "root", args: []string{"run", "--root", root, "--writable-root", "/", vfsPath}, expectedExitCode: 12},
		{name: "debug", args: []string{"run", "--debug", "--interp", vfsPath}, expectedExitCode: 12},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			exitCode, _, stdErr := runMain(t, tc.args...)
			require.Equal(t, tc.expectedExitCode, exitCode, stdErr)
		})
	}
}

func TestRun_Config(t *testing.T) {
	vfsPath := writeFile(t, "vfs.wasm", vfsWasm)
	configPath := writeFile(t, "config.yaml", []byte("module: sqlite3\ninterp: true\nlog_level: debug\n"))

	// The guest imports "env", not "sqlite3".
	exitCode, _, stdErr := runMain(t, "run", "--config", configPath, vfsPath)
	require.Equal(t, 1, exitCode)
	require.Contains(t, stdErr, "error instantiating wasm binary")

	// Flags override the file.
	exitCode, _, stdErr = runMain(t, "run", "--config", configPath, "--module", "env", vfsPath)
	require.Equal(t, 12, exitCode, stdErr)
}

func TestVersion(t *testing.T) {
	exitCode, stdOut, _ := runMain(t, "version")
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdOut, "hostvfs dev (wazero ")
}

func TestHelp(t *testing.T) {
	exitCode, stdOut, _ := runMain(t)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdOut, "hostvfs <command> [arguments...]")
	require.Contains(t, stdOut, "run")
}

func TestErrors(t *testing.T) {
	notWasmPath := writeFile(t, "bears.wasm", []byte("pooh"))
	badLevelPath := writeFile(t, "config.yaml", []byte("log_level: loud\n"))
	badYAMLPath := writeFile(t, "bad.yaml", []byte("module: [\n"))

	tests := []struct {
		message string
		args    []string
	}{
		{message: "missing path to wasm file", args: []string{"run"}},
		{message: "error reading wasm binary", args: []string{"run", "non-existent.wasm"}},
		{message: "error instantiating wasm binary", args: []string{"run", notWasmPath}},
		{message: "failed to read config file", args: []string{"run", "--config", "non-existent.yaml", notWasmPath}},
		{message: "failed to parse config file", args: []string{"run", "--config", badYAMLPath, notWasmPath}},
		{message: "invalid log_level", args: []string{"run", "--config", badLevelPath, notWasmPath}},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.message, func(t *testing.T) {
			exitCode, _, stdErr := runMain(t, tc.args...)
			require.Equal(t, 1, exitCode)
			require.Contains(t, stdErr, tc.message)
		})
	}
}

func runMain(t *testing.T, args ...string) (int, string, string) {
	t.Helper()

	var exitCode int
	stdOut := &bytes.Buffer{}
	stdErr := &bytes.Buffer{}
	var exited bool
	func() {
		defer func() {
			if r := recover(); r != nil {
				exited = true
			}
		}()
		doMain(append([]string{"hostvfs"}, args...), stdOut, stdErr, func(code int) {
			exitCode = code
			panic(code)
		})
	}()

	require.True(t, exited)

	return exitCode, stdOut.String(), stdErr.String()
}
