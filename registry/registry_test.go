package registry_test

import (
	"reflect"
	"testing"

	"github.com/wippyai/wavedash/errors"
	"github.com/wippyai/wavedash/protocol"
	"github.com/wippyai/wavedash/registry"
	"github.com/wippyai/wavedash/world"
)

func TestNew_RejectsBadKeys(t *testing.T) {
	codec := protocol.JSON()

	_, err := registry.New(
		registry.Typed[uint64]("Counter", codec),
		registry.Typed[string]("Counter", codec),
	)
	if k, _ := errors.KindOf(err); k != errors.KindDuplicateKey {
		t.Errorf("duplicate: kind = %q (err %v)", k, err)
	}

	if _, err := registry.New(registry.Typed[uint64]("", codec)); err == nil {
		t.Error("empty key: expected error")
	}
	if _, err := registry.New(registry.Descriptor{Key: "half"}); err == nil {
		t.Error("missing funcs: expected error")
	}
}

func TestRegistry_LookupAndKeys(t *testing.T) {
	codec := protocol.JSON()
	reg := registry.MustNew(
		registry.Typed[string]("b::Name", codec),
		registry.Typed[uint64]("Counter", codec),
		registry.Typed[bool]("a::Flag", codec),
	)

	if want := []string{"Counter", "a::Flag", "b::Name"}; !reflect.DeepEqual(reg.Keys(), want) {
		t.Errorf("Keys = %v, want %v", reg.Keys(), want)
	}
	if reg.Len() != 3 {
		t.Errorf("Len = %d", reg.Len())
	}
	if !reg.Has("Counter") || reg.Has("counter") {
		t.Error("keys must match case-sensitively")
	}

	if _, err := reg.Lookup("Missing"); !errors.IsLookup(err) {
		t.Errorf("Lookup(Missing) = %v", err)
	}
	var nilReg *registry.Registry
	if _, err := nilReg.Lookup("Counter"); !errors.IsLookup(err) {
		t.Errorf("nil registry Lookup = %v", err)
	}
}

func TestTyped_Roundtrip(t *testing.T) {
	for _, codec := range []protocol.Codec{protocol.JSON(), protocol.Borsh()} {
		t.Run(codec.Name(), func(t *testing.T) {
			w := world.New()
			w.Insert("Counter", uint64(42))

			d := registry.Typed[uint64]("Counter", codec)

			data, err := d.Serialize(w)
			if err != nil {
				t.Fatalf("Serialize: %v", err)
			}
			var got uint64
			if err := codec.Unmarshal(data, &got); err != nil || got != 42 {
				t.Fatalf("Unmarshal = %d, %v; want 42", got, err)
			}

			next, err := codec.Marshal(uint64(43))
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if err := d.Apply(w, next); err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if v, ok := world.Value[uint64](w, "Counter"); !ok || v != 43 {
				t.Errorf("Counter = %d, %v; want 43", v, ok)
			}
		})
	}
}

func TestTyped_Faults(t *testing.T) {
	codec := protocol.JSON()
	w := world.New()
	w.Insert("Counter", "not a number")

	d := registry.Typed[uint64]("Counter", codec)

	if _, err := d.Serialize(w); !errors.IsTypeMismatch(err) {
		t.Errorf("Serialize wrong type = %v", err)
	}
	if err := d.Apply(w, []byte(`"still not a number"`)); !errors.IsTypeMismatch(err) {
		t.Errorf("Apply bad payload = %v", err)
	}

	missing := registry.Typed[uint64]("Missing", codec)
	if _, err := missing.Serialize(w); !errors.IsLookup(err) {
		t.Errorf("Serialize missing = %v", err)
	}
	if err := missing.Apply(w, []byte("1")); !errors.IsLookup(err) {
		t.Errorf("Apply missing = %v", err)
	}

	_, err := d.Serialize(nil)
	if k, _ := errors.KindOf(err); k != errors.KindNotInitialized {
		t.Errorf("nil state kind = %q", k)
	}
}
