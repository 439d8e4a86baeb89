package object

import (
	"fmt"

	"github.com/pklgo/pklcore/value"
)

// ToDynamic flattens ov's amendment chain into a single Dynamic object
// exposing every member ov's own ForEachMember order reaches (spec §4.5
// "spread/for over a typed value requires explicit toDynamic()"). Member
// bodies are carried over unevaluated — conversion only restructures
// which object a key's defining Member is found on, so laziness and
// per-(receiver,key) memoization through the new Read boundary are
// unaffected.
func ToDynamic(ov value.ObjectValue) (*Object, error) {
	d := New(nil, value.VariantDynamic, "", 0)
	err := ov.ForEachMember(func(key value.MemberKey) error {
		_, m, ok := lookup(ov, key)
		if !ok {
			return nil
		}
		if err := d.PutMember(key, m); err != nil {
			return err
		}
		if key.Kind == value.KeyIndex && key.Index+1 > d.length {
			d.length = key.Index + 1
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ToList materializes a Listing or Dynamic object's elements into a
// value.List, in index order, evaluating each element eagerly.
func ToList(ev value.Evaluator, ov value.ObjectValue) (value.List, error) {
	if ov.Variant() != value.VariantListing && ov.Variant() != value.VariantDynamic {
		return value.List{}, fmt.Errorf("toList(): %s is not a Listing or Dynamic object", ov.Variant())
	}
	n := ov.Length()
	elems := make([]value.Value, 0, n)
	for i := int64(0); i < n; i++ {
		v, err := ov.Read(ev, ov, value.IndexKey(i))
		if err != nil {
			return value.List{}, err
		}
		elems = append(elems, v)
	}
	return value.NewList(elems...), nil
}

// ToMap materializes a Mapping or Dynamic object's entries into a
// value.Map, evaluating each entry's value eagerly.
func ToMap(ev value.Evaluator, ov value.ObjectValue) (*value.Map, error) {
	if ov.Variant() != value.VariantMapping && ov.Variant() != value.VariantDynamic {
		return nil, fmt.Errorf("toMap(): %s is not a Mapping or Dynamic object", ov.Variant())
	}
	m := value.NewMap()
	err := ov.ForEachMember(func(key value.MemberKey) error {
		if key.Kind != value.KeyAny {
			return nil
		}
		v, err := ov.Read(ev, ov, key)
		if err != nil {
			return err
		}
		m.Put(key.Any, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}
