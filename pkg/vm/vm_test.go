package vm_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinderlang/cinder/pkg/compiler"
	"github.com/cinderlang/cinder/pkg/gc"
	"github.com/cinderlang/cinder/pkg/vm"
)

// run compiles and interprets source against a fresh heap and VM, returning
// whatever OP_PRINT wrote and any error the run produced.
func run(t *testing.T, source string) (string, error) {
	t.Helper()
	heap := gc.New(gc.DefaultConfig())
	fn, err := compiler.Compile(source, heap)
	require.NoError(t, err, "compile error for: %s", source)

	machine := vm.New(heap)
	var out bytes.Buffer
	machine.Out = &out
	err = machine.Interpret(fn)
	return out.String(), err
}

func TestEndToEnd_Arithmetic(t *testing.T) {
	out, err := run(t, `print 1 + 2 * 3;`)
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)
}

func TestEndToEnd_StringConcatenation(t *testing.T) {
	out, err := run(t, `var a = "he"; var b = "llo"; print a + b;`)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
}

func TestEndToEnd_ClosureCapture(t *testing.T) {
	out, err := run(t, `fun make(x){ fun g(){ return x; } return g; } print make(5)();`)
	require.NoError(t, err)
	assert.Equal(t, "5\n", out)
}

func TestEndToEnd_SuperCall(t *testing.T) {
	source := `class A{ foo(){ print "a"; } } class B<A{ foo(){ super.foo(); print "b"; } } B().foo();`
	out, err := run(t, source)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", out)
}

func TestEndToEnd_WhileLoop(t *testing.T) {
	out, err := run(t, `var i=0; while(i<3){ print i; i=i+1; }`)
	require.NoError(t, err)
	assert.Equal(t, "0\n1\n2\n", out)
}

func TestEndToEnd_Fibonacci(t *testing.T) {
	source := `fun fib(n){ if(n<2) return n; return fib(n-1)+fib(n-2); } print fib(10);`
	out, err := run(t, source)
	require.NoError(t, err)
	assert.Equal(t, "55\n", out)
}

func TestEndToEnd_Modulo(t *testing.T) {
	out, err := run(t, `print 7 % 3;`)
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
}

func TestEndToEnd_ForLoop(t *testing.T) {
	out, err := run(t, `for (var i = 0; i < 3; i = i + 1) print i;`)
	require.NoError(t, err)
	assert.Equal(t, "0\n1\n2\n", out)
}

func TestEndToEnd_ClassFieldsAndInit(t *testing.T) {
	source := `
class Point {
  init(x, y) {
    this.x = x;
    this.y = y;
  }
  sum() {
    return this.x + this.y;
  }
}
var p = Point(3, 4);
print p.sum();
`
	out, err := run(t, source)
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)
}

func TestRuntimeError_UndefinedVariable(t *testing.T) {
	_, err := run(t, `print a;`)
	require.Error(t, err)
	var rerr *vm.RuntimeError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, vm.UndefinedVariable, rerr.Kind)
	assert.Contains(t, rerr.Error(), "Undefined variable 'a'")
	assert.Contains(t, rerr.Error(), "in script")
}

func TestRuntimeError_StackOverflow(t *testing.T) {
	source := `fun recurse() { return recurse(); } recurse();`
	_, err := run(t, source)
	require.Error(t, err)
	var rerr *vm.RuntimeError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, vm.StackOverflow, rerr.Kind)
	assert.LessOrEqual(t, len(rerr.Trace), vm.FramesMax)
}

func TestRuntimeError_TypeMismatch(t *testing.T) {
	_, err := run(t, `print 1 + "a";`)
	require.Error(t, err)
	var rerr *vm.RuntimeError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, vm.TypeError, rerr.Kind)
}

func TestNativeClockLenTypeStr(t *testing.T) {
	out, err := run(t, `print len("hello"); print type(1); print type("s"); print str(42); print type(clock());`)
	require.NoError(t, err)
	assert.Equal(t, "5\nnumber\nstring\n42\nnumber\n", out)
}

func TestGlobalsPersistAcrossStatements(t *testing.T) {
	out, err := run(t, `var counter = 0; counter = counter + 1; counter = counter + 1; print counter;`)
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}
