package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// captureStdout redirects os.Stdout for the duration of fn and returns
// whatever was written to it.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	w.Close()
	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func writeTempScript(t *testing.T, source string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "script.cin")
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatalf("write temp script: %v", err)
	}
	return path
}

func TestRunFile_Success(t *testing.T) {
	path := writeTempScript(t, `print 1 + 2 * 3;`)
	var code int
	out := captureStdout(t, func() { code = run([]string{path}) })
	if code != exitOK {
		t.Fatalf("exit code = %d, want %d", code, exitOK)
	}
	if out != "7\n" {
		t.Fatalf("stdout = %q, want %q", out, "7\n")
	}
}

func TestRunFile_CompileError(t *testing.T) {
	path := writeTempScript(t, `var x = ;`)
	code := run([]string{path})
	if code != exitCompileErr {
		t.Fatalf("exit code = %d, want %d", code, exitCompileErr)
	}
}

func TestRunFile_RuntimeError(t *testing.T) {
	path := writeTempScript(t, `print a;`)
	code := run([]string{path})
	if code != exitRuntimeErr {
		t.Fatalf("exit code = %d, want %d", code, exitRuntimeErr)
	}
}

func TestRun_BadArgCountExitsUsage(t *testing.T) {
	code := run([]string{"one", "two", "three", "four"})
	if code != exitUsage {
		t.Fatalf("exit code = %d, want %d", code, exitUsage)
	}
}

func TestRun_VersionSubcommand(t *testing.T) {
	var code int
	out := captureStdout(t, func() { code = run([]string{"version"}) })
	if code != exitOK {
		t.Fatalf("exit code = %d, want %d", code, exitOK)
	}
	if out == "" {
		t.Fatal("expected version output")
	}
}

func TestRunCompileThenRunCndFile(t *testing.T) {
	path := writeTempScript(t, `print "from disk";`)
	cndPath := path + ".cnd"

	if code := run([]string{"compile", path, cndPath}); code != exitOK {
		t.Fatalf("compile exit code = %d, want %d", code, exitOK)
	}
	if _, err := os.Stat(cndPath); err != nil {
		t.Fatalf("expected %s to exist: %v", cndPath, err)
	}

	var code int
	out := captureStdout(t, func() { code = run([]string{cndPath}) })
	if code != exitOK {
		t.Fatalf("run .cnd exit code = %d, want %d", code, exitOK)
	}
	if out != "from disk\n" {
		t.Fatalf("stdout = %q, want %q", out, "from disk\n")
	}
}

func TestRunDisasm_PlainOutput(t *testing.T) {
	path := writeTempScript(t, `print 1 + 2;`)
	var code int
	out := captureStdout(t, func() { code = run([]string{"disasm", path}) })
	if code != exitOK {
		t.Fatalf("exit code = %d, want %d", code, exitOK)
	}
	if !bytes.Contains([]byte(out), []byte("OP_ADD")) {
		t.Errorf("expected disassembly to mention OP_ADD, got: %s", out)
	}
}

func TestRunDisasm_TableOutput(t *testing.T) {
	path := writeTempScript(t, `print 1 + 2;`)
	var code int
	out := captureStdout(t, func() { code = run([]string{"disasm", path, "--table"}) })
	if code != exitOK {
		t.Fatalf("exit code = %d, want %d", code, exitOK)
	}
	if !bytes.Contains([]byte(out), []byte("OP_ADD")) {
		t.Errorf("expected table output to mention OP_ADD, got: %s", out)
	}
}
