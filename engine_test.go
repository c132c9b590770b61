package morph_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/zoobzio/morph"
	"github.com/zoobzio/morph/instance"
	morphtest "github.com/zoobzio/morph/testing"
)

func TestTransform_Erase(t *testing.T) {
	e := morphtest.NewEngine(nil)

	out, err := e.Transform(context.Background(), "123456", morph.TypeOf[string](morphtest.Erase{}))
	if err != nil {
		t.Fatalf("Transform() error: %v", err)
	}
	if out != "******" {
		t.Errorf("Transform() = %v, want ******", out)
	}
}

type codes []string

func TestTransform_EraseList(t *testing.T) {
	e := morphtest.NewEngine(nil)
	elem := morph.TypeOf[string](morphtest.Erase{})

	in := make(codes, 10)
	for i := range in {
		in[i] = "123456"
	}

	out, err := e.Transform(context.Background(), in, morph.SliceOf(reflect.TypeFor[codes](), elem))
	if err != nil {
		t.Fatalf("Transform() error: %v", err)
	}
	got, ok := out.(codes)
	if !ok {
		t.Fatalf("Transform() returned %T, want codes", out)
	}
	if len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}
	for i, v := range got {
		if v != "******" {
			t.Errorf("[%d] = %q, want ******", i, v)
		}
	}
	if in[0] != "123456" {
		t.Error("input list was mutated")
	}
}

func TestTransform_Cascade(t *testing.T) {
	e := morphtest.NewEngine(nil)
	in := morphtest.Person{Name: "Boy", Nested: &morphtest.Person{Name: "Girl"}}

	out, err := morph.TransformWith(context.Background(), e, in, morph.TypeOf[morphtest.Person](morph.Cascade{}))
	if err != nil {
		t.Fatalf("Transform() error: %v", err)
	}
	if out.Name != "******" || out.Nested == nil || out.Nested.Name != "******" {
		t.Errorf("Transform() = %+v / %+v", out, out.Nested)
	}
	if out.Nested.Nested != nil {
		t.Error("nil leaf should stay nil")
	}
	if in.Name != "Boy" || in.Nested.Name != "Girl" {
		t.Error("input was mutated")
	}
	if out.Nested == in.Nested {
		t.Error("nested object should be a fresh instance")
	}
}

func TestTransform_Accumulate(t *testing.T) {
	tests := []struct {
		name      string
		locations []morph.Location
		typ       *morph.Type
		want      int
	}{
		{
			"indirect container", []morph.Location{morph.IndirectlyPresent},
			morph.TypeOf[int](morphtest.Accumulates{{N: 1}, {N: 2}, {N: 3}}), 6,
		},
		{
			"associated container", []morph.Location{morph.Associated},
			morph.TypeOf[int](morphtest.Accumulates{{N: 1}, {N: 2}, {N: 3}}), 6,
		},
		{
			"indirect repeated tags", []morph.Location{morph.IndirectlyPresent},
			morph.TypeOf[int](morphtest.Accumulate{N: 1}, morphtest.Accumulate{N: 2}, morphtest.Accumulate{N: 3}), 6,
		},
		{
			"direct single", nil,
			morph.TypeOf[int](morphtest.Accumulate{N: 4}), 4,
		},
		{
			"direct ignores container contents", []morph.Location{morph.DirectlyPresent},
			morph.TypeOf[int](morphtest.Accumulates{{N: 1}, {N: 2}}), 0,
		},
		{
			"duplicates collapse", []morph.Location{morph.IndirectlyPresent},
			morph.TypeOf[int](morphtest.Accumulates{{N: 1}, {N: 1}, {N: 2}}), 3,
		},
		{
			"repeated locations collapse", []morph.Location{morph.IndirectlyPresent, morph.Associated},
			morph.TypeOf[int](morphtest.Accumulates{{N: 1}, {N: 2}, {N: 3}}), 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := morphtest.NewEngine(tt.locations)
			got, err := morph.TransformWith(context.Background(), e, 0, tt.typ)
			if err != nil {
				t.Fatalf("Transform() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Transform() = %d, want %d", got, tt.want)
			}
		})
	}
}

// parent carries a class-level annotation inherited by child.
type parent struct{}

func (parent) Annotations() []any { return []any{morphtest.Accumulate{N: 2}} }

type child struct {
	parent
	Total int
}

func (c child) Add(n int) any {
	c.Total += n
	return c
}

type registeredBase struct{}

type registeredChild struct {
	registeredBase
	Total int
}

func (c registeredChild) Add(n int) any {
	c.Total += n
	return c
}

func TestTransform_PresentInherited(t *testing.T) {
	ctx := context.Background()

	t.Run("annotated", func(t *testing.T) {
		e := morphtest.NewEngine([]morph.Location{morph.Present})
		got, err := morph.TransformWith(ctx, e, child{}, morph.TypeOf[child](morphtest.Accumulate{N: 1}))
		if err != nil {
			t.Fatalf("Transform() error: %v", err)
		}
		if got.Total != 3 {
			t.Errorf("Total = %d, want 3", got.Total)
		}
	})

	t.Run("schema", func(t *testing.T) {
		e := morphtest.NewEngine([]morph.Location{morph.Present})
		e.Schema().Annotate(reflect.TypeFor[registeredBase](), morphtest.Accumulate{N: 2})
		got, err := morph.TransformWith(ctx, e, registeredChild{}, morph.TypeOf[registeredChild](morphtest.Accumulate{N: 1}))
		if err != nil {
			t.Fatalf("Transform() error: %v", err)
		}
		if got.Total != 3 {
			t.Errorf("Total = %d, want 3", got.Total)
		}
	})

	t.Run("associated", func(t *testing.T) {
		e := morphtest.NewEngine([]morph.Location{morph.Associated})
		got, err := morph.TransformWith(ctx, e, child{}, morph.TypeOf[child](morphtest.Accumulates{{N: 1}}))
		if err != nil {
			t.Fatalf("Transform() error: %v", err)
		}
		if got.Total != 3 {
			t.Errorf("Total = %d, want 3", got.Total)
		}
	})

	t.Run("undeclared position", func(t *testing.T) {
		e := morphtest.NewEngine([]morph.Location{morph.Present})
		got, err := morph.TransformWith(ctx, e, child{}, morph.TypeOf[child]())
		if err != nil {
			t.Fatalf("Transform() error: %v", err)
		}
		if got.Total != 0 {
			t.Errorf("Total = %d, want 0 without a tag at the position", got.Total)
		}
	})
}

func TestTransform_MapCollision(t *testing.T) {
	e := morphtest.NewEngine(nil)
	typ := morph.MapOf(morph.TypeOf[string](morph.Redact{With: "k"}), morph.TypeOf[int]())

	out, err := e.Transform(context.Background(), map[string]int{"b": 2, "a": 1, "c": 3}, typ)
	if err != nil {
		t.Fatalf("Transform() error: %v", err)
	}
	got := out.(map[string]int)
	if len(got) != 1 || got["k"] != 3 {
		t.Errorf("Transform() = %v, want map[k:3]", got)
	}
}

func TestTransform_OrderPreserved(t *testing.T) {
	e := morphtest.NewEngine(nil, morph.WithParallelism(8), morph.WithParallelThreshold(1))
	typ := morph.ListOf(morph.TypeOf[int](morphtest.Accumulate{N: 1000}))

	in := make([]int, 500)
	for i := range in {
		in[i] = i
	}
	out, err := morph.TransformWith(context.Background(), e, in, typ)
	if err != nil {
		t.Fatalf("Transform() error: %v", err)
	}
	for i, v := range out {
		if v != i+1000 {
			t.Fatalf("[%d] = %d, want %d", i, v, i+1000)
		}
	}
}

func TestTransform_Identity(t *testing.T) {
	ctx := context.Background()
	in := map[string][]int{"a": {1, 2}, "b": {3}}

	t.Run("empty registry", func(t *testing.T) {
		e := morph.New(morph.WithoutDefaults())
		out, err := e.Transform(ctx, in, morph.TypeOf[map[string][]int](morphtest.Erase{}))
		if err != nil {
			t.Fatalf("Transform() error: %v", err)
		}
		if !reflect.DeepEqual(out, in) {
			t.Errorf("Transform() = %v, want %v", out, in)
		}
	})

	t.Run("untagged", func(t *testing.T) {
		e := morphtest.NewEngine(nil)
		out, err := e.Transform(ctx, in, morph.TypeOf[map[string][]int]())
		if err != nil {
			t.Fatalf("Transform() error: %v", err)
		}
		if !reflect.DeepEqual(out, in) {
			t.Errorf("Transform() = %v, want %v", out, in)
		}
		if reflect.ValueOf(out).Pointer() == reflect.ValueOf(in).Pointer() {
			t.Error("structural transform should build a fresh map")
		}
	})

	t.Run("nil", func(t *testing.T) {
		e := morphtest.NewEngine(nil)
		out, err := e.Transform(ctx, nil, morph.TypeOf[string](morphtest.Erase{}))
		if err != nil || out != nil {
			t.Errorf("Transform(nil) = %v, %v", out, err)
		}
	})
}

func TestTransform_FoldOrder(t *testing.T) {
	e := morph.New(morph.WithoutDefaults())
	var calls []string

	e.Transformers().Add(morph.NewTransformer(20,
		func(v any, _ *morph.Type) bool { return v == "changed" },
		func(_ context.Context, _ *morph.Engine, v any, _ *morph.Type) (any, error) {
			calls = append(calls, "late")
			return "late", nil
		},
	))
	e.Transformers().Add(morph.NewTransformer(10,
		func(any, *morph.Type) bool { return true },
		func(_ context.Context, _ *morph.Engine, v any, _ *morph.Type) (any, error) {
			calls = append(calls, "first")
			return "changed", nil
		},
	))
	e.Transformers().Add(morph.NewTransformer(30,
		func(any, *morph.Type) bool { return true },
		func(_ context.Context, _ *morph.Engine, v any, _ *morph.Type) (any, error) {
			calls = append(calls, "last")
			return v.(string) + "!", nil
		},
	))

	out, err := e.Transform(context.Background(), "orig", morph.TypeOf[string]())
	if err != nil {
		t.Fatalf("Transform() error: %v", err)
	}
	if out != "changed!" {
		t.Errorf("Transform() = %v, want changed!", out)
	}
	if fmt.Sprint(calls) != "[first last]" {
		t.Errorf("calls = %v, want [first last]", calls)
	}
}

func TestTransform_Errors(t *testing.T) {
	ctx := context.Background()
	e := morphtest.NewEngine(nil)

	if _, err := e.Transform(ctx, "x", nil); !errors.Is(err, morph.ErrNilType) {
		t.Errorf("nil type error = %v, want ErrNilType", err)
	}

	_, err := e.Transform(ctx, 7, morph.TypeOf[int](morphtest.Erase{}))
	var he *morph.HandlerError
	if !errors.As(err, &he) {
		t.Fatalf("handler failure error = %v, want *HandlerError", err)
	}
	if !errors.Is(err, morph.ErrHandler) || he.Handler != reflect.TypeFor[*morphtest.EraseHandler]() {
		t.Errorf("HandlerError = %+v", he)
	}

	if _, err := morph.TransformWith(ctx, e, 1, morph.TypeOf[int](morph.Redact{})); !errors.Is(err, morph.ErrTypeMismatch) {
		t.Errorf("redact on int error = %v, want ErrTypeMismatch", err)
	}
}

func TestTransform_AbortsWithoutPartialResult(t *testing.T) {
	e := morphtest.NewEngine(nil, morph.WithParallelism(4), morph.WithParallelThreshold(1))
	in := []any{"a", "b", 3, "d"}

	out, err := e.Transform(context.Background(), in, morph.ListOf(morph.TypeOf[any](morphtest.Erase{})))
	if err == nil {
		t.Fatal("Transform() should fail on the int element")
	}
	if out != nil {
		t.Errorf("Transform() = %v, want nil on failure", out)
	}
}

type node struct {
	Value string `morph:"erase"`
	Next  *node  `morph:"cascade"`
}

func TestTransform_Cycle(t *testing.T) {
	e := morphtest.NewEngine(nil)
	n := &node{Value: "a"}
	n.Next = &node{Value: "b", Next: n}

	_, err := e.Transform(context.Background(), n, morph.TypeOf[*node](morph.Cascade{}))
	if !errors.Is(err, morph.ErrCycle) {
		t.Errorf("Transform() error = %v, want ErrCycle", err)
	}
}

func TestTransform_SharedNotCycle(t *testing.T) {
	type pair struct {
		Left  *node `morph:"cascade"`
		Right *node `morph:"cascade"`
	}
	e := morphtest.NewEngine(nil)
	shared := &node{Value: "s"}

	out, err := morph.TransformWith(context.Background(), e, pair{Left: shared, Right: shared}, morph.TypeOf[pair](morph.Cascade{}))
	if err != nil {
		t.Fatalf("Transform() error: %v", err)
	}
	if out.Left.Value != "******" || out.Right.Value != "******" {
		t.Errorf("Transform() = %+v, %+v", out.Left, out.Right)
	}
}

func TestTransform_DepthExceeded(t *testing.T) {
	e := morphtest.NewEngine(nil, morph.WithMaxDepth(3))
	in := [][][]int{{{1}}}

	_, err := e.Transform(context.Background(), in, morph.TypeOf[[][][]int]())
	if !errors.Is(err, morph.ErrDepthExceeded) {
		t.Errorf("Transform() error = %v, want ErrDepthExceeded", err)
	}

	shallow := morphtest.NewEngine(nil, morph.WithMaxDepth(4))
	if _, err := shallow.Transform(context.Background(), in, morph.TypeOf[[][][]int]()); err != nil {
		t.Errorf("Transform() at depth limit error: %v", err)
	}
}

func TestTransform_Canceled(t *testing.T) {
	e := morphtest.NewEngine(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Transform(ctx, "x", morph.TypeOf[string]()); !errors.Is(err, context.Canceled) {
		t.Errorf("Transform() error = %v, want context.Canceled", err)
	}
}

// Greeter is a handler type with no construction strategy.
type Greeter interface {
	morph.Handler
	Greet() string
}

type greet struct{}

type greeter struct{}

func (greeter) Greet() string { return "hi" }

func (greeter) Handle(_ context.Context, v any, _ any) (any, error) {
	return fmt.Sprintf("%v!", v), nil
}

func TestTransform_InstantiationRecovery(t *testing.T) {
	s := morph.NewSchema()
	gt := reflect.TypeFor[Greeter]()
	if err := s.Declare(reflect.TypeFor[greet](), morph.Declaration{Handler: gt}); err != nil {
		t.Fatalf("Declare() error: %v", err)
	}
	reg := instance.New()
	e := morph.New(morph.WithSchema(s), morph.WithInstances(reg))
	typ := morph.TypeOf[string](greet{})

	_, err := e.Transform(context.Background(), "hello", typ)
	if !errors.Is(err, morph.ErrInstantiation) {
		t.Fatalf("Transform() error = %v, want ErrInstantiation", err)
	}
	var ie *instance.InstantiationError
	if !errors.As(err, &ie) || ie.Type != gt {
		t.Errorf("InstantiationError = %+v, want type %s", ie, gt)
	}

	reg.Register(gt, func() (any, error) { return greeter{}, nil })
	out, err := e.Transform(context.Background(), "hello", typ)
	if err != nil {
		t.Fatalf("Transform() after Register error: %v", err)
	}
	if out != "hello!" {
		t.Errorf("Transform() = %v, want hello!", out)
	}
}

func TestHandler_SingletonConvergence(t *testing.T) {
	reg := instance.New()
	ht := reflect.TypeFor[*morphtest.EraseHandler]()

	const n = 32
	got := make([]any, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := reg.Create(ht)
			if err != nil {
				t.Errorf("Create() error: %v", err)
				return
			}
			got[i] = v
		}()
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if got[i] != got[0] {
			t.Fatalf("instance %d differs from instance 0", i)
		}
	}
}

func TestHandler_SingletonShared(t *testing.T) {
	e := morphtest.NewEngine(nil, morph.WithParallelism(4), morph.WithParallelThreshold(1))
	in := make([]string, 20)
	for i := range in {
		in[i] = "x"
	}

	if _, err := e.Transform(context.Background(), in, morph.ListOf(morph.TypeOf[string](morphtest.Erase{}))); err != nil {
		t.Fatalf("Transform() error: %v", err)
	}

	h, err := e.Instances().Create(reflect.TypeFor[*morphtest.EraseHandler]())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if calls := h.(*morphtest.EraseHandler).Calls.Load(); calls != 20 {
		t.Errorf("Calls = %d, want 20 on the shared handler", calls)
	}
}

func TestTransformWith_Mismatch(t *testing.T) {
	e := morph.New(morph.WithoutDefaults())
	e.Transformers().Add(morph.NewTransformer(0,
		func(any, *morph.Type) bool { return true },
		func(context.Context, *morph.Engine, any, *morph.Type) (any, error) { return 42, nil },
	))

	if _, err := morph.TransformWith(context.Background(), e, "s", morph.TypeOf[string]()); !errors.Is(err, morph.ErrTypeMismatch) {
		t.Errorf("TransformWith() error = %v, want ErrTypeMismatch", err)
	}
}
