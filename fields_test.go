package morph

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/zoobzio/sentinel"
)

type profile struct {
	Name    string            `morph:"redact"`
	Aliases []string          `morph.elem:"redact(?)"`
	Labels  map[string]string `morph.key:"mask(name)" morph.elem:"redact"`
	Avatar  []byte
	Next    *profile `morph:"cascade"`
	hidden  string
}

type badProfile struct {
	Name string `morph:"unheard_of"`
}

func TestPrepare(t *testing.T) {
	if err := Prepare[profile](); err != nil {
		t.Errorf("Prepare[profile]() error: %v", err)
	}
	if err := Prepare[*profile](); err != nil {
		t.Errorf("Prepare[*profile]() error: %v", err)
	}
	if err := Prepare[int](); err != nil {
		t.Errorf("Prepare[int]() error: %v", err)
	}

	err := Prepare[badProfile]()
	var te *TagError
	if !errors.As(err, &te) || te.Field != "Name" || !errors.Is(err, ErrUnknownTag) {
		t.Errorf("Prepare[badProfile]() error = %v, want TagError on Name", err)
	}
}

type scannedAccount struct {
	Email string   `morph:"mask(email)"`
	Codes []string `morph.elem:"redact"`
}

// TypeRelationship shares its bare name with a sentinel type.
type TypeRelationship struct {
	Note string `morph:"redact"`
}

type lateTagged struct {
	Value string `morph:"late_shout"`
}

func TestTaggedFields(t *testing.T) {
	if err := Prepare[scannedAccount](); err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}
	known := taggedFields(reflect.TypeFor[scannedAccount]())
	if known["Email"].Tags[TagKey] != "mask(email)" || known["Codes"].Tags[TagElemKey] != "redact" {
		t.Fatalf("taggedFields() = %v", known)
	}

	p, err := New().plan(context.Background(), reflect.TypeFor[scannedAccount]())
	if err != nil {
		t.Fatalf("plan() error: %v", err)
	}
	if m, _ := p.fields[0].pos.Tag(reflect.TypeFor[Mask]()); m != (Mask{Type: MaskEmail}) {
		t.Errorf("Email position = %s", p.fields[0].pos)
	}
	if !p.fields[1].pos.Args()[0].HasTag(reflect.TypeFor[Redact]()) {
		t.Errorf("Codes element position = %s", p.fields[1].pos.Args()[0])
	}
}

func TestTaggedFields_OtherPackage(t *testing.T) {
	sentinel.Scan[sentinel.TypeRelationship]()
	if known := taggedFields(reflect.TypeFor[TypeRelationship]()); known != nil {
		t.Errorf("taggedFields() = %v, want nil for a same-named foreign type", known)
	}

	p, err := New().plan(context.Background(), reflect.TypeFor[TypeRelationship]())
	if err != nil {
		t.Fatalf("plan() error: %v", err)
	}
	if !p.fields[0].pos.HasTag(reflect.TypeFor[Redact]()) {
		t.Errorf("Note position = %s", p.fields[0].pos)
	}
}

func TestPlan_FailureNotCached(t *testing.T) {
	s := NewSchema()
	if err := RegisterBuiltins(s); err != nil {
		t.Fatal(err)
	}
	e := New(WithSchema(s))
	rt := reflect.TypeFor[lateTagged]()

	if _, err := e.plan(context.Background(), rt); !errors.Is(err, ErrUnknownTag) {
		t.Fatalf("plan() error = %v, want ErrUnknownTag", err)
	}
	if err := s.Name("late_shout", func(string) (any, error) { return Redact{With: "!"}, nil }); err != nil {
		t.Fatal(err)
	}
	p, err := e.plan(context.Background(), rt)
	if err != nil {
		t.Fatalf("plan() after Name error: %v", err)
	}
	if tag, _ := p.fields[0].pos.Tag(reflect.TypeFor[Redact]()); tag != (Redact{With: "!"}) {
		t.Errorf("Value position = %s", p.fields[0].pos)
	}
}

func TestPlan(t *testing.T) {
	e := New()
	rt := reflect.TypeFor[profile]()

	p, err := e.plan(context.Background(), rt)
	if err != nil {
		t.Fatalf("plan() error: %v", err)
	}
	again, _ := e.plan(context.Background(), rt)
	if p != again {
		t.Error("plan() should be cached per type")
	}
	if len(p.fields) != 6 {
		t.Fatalf("len(fields) = %d, want 6", len(p.fields))
	}

	byName := map[string]fieldPlan{}
	for _, f := range p.fields {
		byName[f.name] = f
	}

	if tag, ok := byName["Name"].pos.Tag(reflect.TypeFor[Redact]()); !ok || tag != (Redact{}) {
		t.Errorf("Name position = %s", byName["Name"].pos)
	}
	if el := byName["Aliases"].pos.Args()[0]; !el.HasTag(reflect.TypeFor[Redact]()) {
		t.Errorf("Aliases element position = %s", el)
	}
	labels := byName["Labels"].pos.Args()
	if m, _ := labels[0].Tag(reflect.TypeFor[Mask]()); m != (Mask{Type: MaskName}) {
		t.Errorf("Labels key position = %s", labels[0])
	}
	if !labels[1].HasTag(reflect.TypeFor[Redact]()) {
		t.Errorf("Labels value position = %s", labels[1])
	}
	if byName["Avatar"].pos.Shape() != ShapePlain {
		t.Errorf("Avatar position = %s, want plain", byName["Avatar"].pos)
	}
	if !byName["Next"].pos.HasTag(cascadeType) {
		t.Errorf("Next position = %s", byName["Next"].pos)
	}
	if byName["hidden"].settable || !byName["Name"].settable {
		t.Error("only exported fields are settable")
	}
}

func TestPosition(t *testing.T) {
	r := []any{Redact{}}

	tests := []struct {
		name    string
		ft      reflect.Type
		top     []any
		elem    []any
		key     []any
		shape   Shape
		wantErr bool
	}{
		{"scalar", reflect.TypeFor[string](), r, nil, nil, ShapePlain, false},
		{"scalar with elem", reflect.TypeFor[string](), nil, r, nil, 0, true},
		{"slice", reflect.TypeFor[[]string](), nil, r, nil, ShapeParameterized, false},
		{"slice with key", reflect.TypeFor[[]string](), nil, nil, r, 0, true},
		{"bytes", reflect.TypeFor[[]byte](), r, nil, nil, ShapePlain, false},
		{"bytes with elem", reflect.TypeFor[[]byte](), nil, r, nil, ShapeParameterized, false},
		{"array", reflect.TypeFor[[2]int](), nil, r, nil, ShapeArray, false},
		{"array with key", reflect.TypeFor[[2]int](), nil, nil, r, 0, true},
		{"map", reflect.TypeFor[map[string]int](), nil, r, r, ShapeParameterized, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, err := position(tt.ft, tt.top, tt.elem, tt.key)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTag) {
					t.Errorf("position() error = %v, want ErrInvalidTag", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("position() error: %v", err)
			}
			if pos.Shape() != tt.shape || pos.Raw() != tt.ft {
				t.Errorf("position() = %s (%s)", pos, pos.Shape())
			}
		})
	}
}

func TestStructTags(t *testing.T) {
	got := structTags(`json:"x" morph:"redact" morph.elem:"mask(ssn)"`)
	if len(got) != 2 || got[TagKey] != "redact" || got[TagElemKey] != "mask(ssn)" {
		t.Errorf("structTags() = %v", got)
	}
}
