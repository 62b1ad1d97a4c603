package gc_test

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

// stressConfig forces a full mark-sweep collection before every single
// allocation (gc.Config.StressGC), the same discipline a debug build
// compiled with DEBUG_STRESS_GC would use to shake out any root the
// compiler or the VM forgot to report.
func stressConfig() gc.Config {
	return gc.Config{InitialNextGC: 1 << 20, GrowFactor: 2, StressGC: true}
}

// runStressed compiles and interprets source against a heap that collects
// on every allocation, returning whatever OP_PRINT wrote.
func runStressed(t *testing.T, source string) (string, error) {
	t.Helper()
	heap := gc.New(stressConfig())
	fn, err := compiler.Compile(source, heap)
	require.NoError(t, err, "compile error for: %s", source)

	machine := vm.New(heap)
	var out bytes.Buffer
	machine.Out = &out
	err = machine.Interpret(fn)
	return out.String(), err
}

// TestStressGC_EndToEndScenarios runs every §8 scenario with a collection
// forced before each allocation. If the compiler or the VM ever forgets to
// report a live root, one of these runs should crash, print garbage, or
// diverge from the expected output instead of merely running slowly.
func TestStressGC_EndToEndScenarios(t *testing.T) {
	cases := []struct {
		name   string
		source string
		want   string
	}{
		{"Arithmetic", `print 1 + 2 * 3;`, "7\n"},
		{"StringConcatenation", `var a = "he"; var b = "llo"; print a + b;`, "hello\n"},
		{"ClosureCapture", `fun make(x){ fun g(){ return x; } return g; } print make(5)();`, "5\n"},
		{"SuperCall", `class A{ foo(){ print "a"; } } class B<A{ foo(){ super.foo(); print "b"; } } B().foo();`, "a\nb\n"},
		{"WhileLoop", `var i=0; while(i<3){ print i; i=i+1; }`, "0\n1\n2\n"},
		{"Fibonacci", `fun fib(n){ if(n<2) return n; return fib(n-1)+fib(n-2); } print fib(10);`, "55\n"},
		{"Modulo", `print 7 % 3;`, "1\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := runStressed(t, tc.source)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}

// TestStressGC_ManyClosuresAndUpvaluesSurvive hammers upvalue capture and
// closing: two independently-counting closures, each forcing a collection
// on every bump, must keep their own captured local distinct from the
// other's.
func TestStressGC_ManyClosuresAndUpvaluesSurvive(t *testing.T) {
	source := `
		fun counter() {
			var n = 0;
			fun inc() {
				n = n + 1;
				return n;
			}
			return inc;
		}
		var c1 = counter();
		var c2 = counter();
		print c1();
		print c1();
		print c2();
		print c1();
	`
	out, err := runStressed(t, source)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n1\n3\n", out)
}

// TestStressGC_RuntimeErrorStillReportsTrace checks that a genuine runtime
// error still unwinds and reports correctly when a collection runs on every
// allocation along the way, not just on the happy path.
func TestStressGC_RuntimeErrorStillReportsTrace(t *testing.T) {
	out, err := runStressed(t, `print a;`)
	require.Error(t, err)
	assert.Empty(t, out)

	var rerr *vm.RuntimeError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, vm.UndefinedVariable, rerr.Kind)
}

// TestStressGC_PostRunCollectIsStable exercises classes, instances and
// field mutation under stress, then checks that collecting again once the
// program has finished is a fixed point: the VM's globals (Counter, c and
// the natives) and its init string are the only roots left, and a further
// pass frees nothing more.
func TestStressGC_PostRunCollectIsStable(t *testing.T) {
	heap := gc.New(stressConfig())
	source := `
		class Counter {
			init() { this.n = 0; }
			bump() { this.n = this.n + 1; return this.n; }
		}
		var c = Counter();
		print c.bump();
		print c.bump();
	`
	fn, err := compiler.Compile(source, heap)
	require.NoError(t, err)

	machine := vm.New(heap)
	var out bytes.Buffer
	machine.Out = &out
	require.NoError(t, machine.Interpret(fn))
	assert.Equal(t, "1\n2\n", out.String())

	before := heap.BytesAllocated()
	heap.Collect()
	after := heap.BytesAllocated()
	assert.LessOrEqual(t, after, before, "collecting again must never increase live bytes")

	heap.Collect()
	assert.Equal(t, after, heap.BytesAllocated(), "a second back-to-back collection should be a no-op")
}
