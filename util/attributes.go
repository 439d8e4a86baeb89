// Package util carries small, domain-agnostic helpers shared by more
// than one package; AttributeList is grounded on the teacher's
// util/attributes.go (an ordered key/value batch used while an XML
// encoder defers a tag's attributes until its opening `>`), generalized
// here from the teacher's string keys to value.MemberKey so the XML
// renderer (package render) can batch a Name/Index/Any member key
// directly instead of pre-rendering it to a string before it is known
// whether the key even survives as an attribute.
package util

import "github.com/pklgo/pklcore/value"

// Attribute is one key/value pair an AttributeList batches.
type Attribute struct {
	Key   value.MemberKey
	Value string
}

// AttributeList is an ordered batch of attributes, keyed by
// value.MemberKey so Name/Index/Any member keys can be compared with
// MemberKey.Equal instead of a pre-rendered string.
type AttributeList struct {
	attributes []Attribute
}

// NewAttributeList creates an empty AttributeList.
func NewAttributeList() AttributeList {
	return AttributeList{}
}

// Len returns the number of attributes in the list
func (l *AttributeList) Len() int {
	return len(l.attributes)
}

// Add the attribute to the list.
func (l *AttributeList) Add(key value.MemberKey, val string) {
	l.attributes = append(l.attributes, Attribute{
		Key:   key,
		Value: val,
	})
}

// Pop returns the *first* attribute and removes it from the list.
// Returns nil if the list is empty.
func (l *AttributeList) Pop() *Attribute {
	if l.Len() == 0 {
		return nil
	}

	a := l.attributes[0]
	l.attributes = l.attributes[1:]

	return &a
}

// indexOf returns the index of the attribute keyed by key, or -1.
func (l *AttributeList) indexOf(key value.MemberKey) int {
	for i := range l.attributes {
		if l.attributes[i].Key.Equal(key) {
			return i
		}
	}
	return -1
}

// Set the given attribute if it already exists or create a new one
// otherwise. Returns true if an existing attribute got overwritten.
// Mutates the slice element in place through its index rather than a
// pointer to a range variable, so the overwrite is never silently lost.
func (l *AttributeList) Set(key value.MemberKey, val string) bool {
	if i := l.indexOf(key); i >= 0 {
		l.attributes[i].Value = val
		return true
	}
	l.Add(key, val)
	return false
}

// Merge the current list with another list.
// Attributes in "other" will be prioritized.
func (l AttributeList) Merge(other AttributeList) AttributeList {
	result := NewAttributeList()

	for _, a := range l.attributes {
		result.Set(a.Key, a.Value)
	}

	for _, a := range other.attributes {
		result.Set(a.Key, a.Value)
	}

	return result
}

// Get returns the attribute for a given key, or nil if it does not
// exist. The returned pointer aliases the list's own backing array, so
// mutating it through Get (rather than through Set) is visible to
// subsequent Get/Set calls on the same list.
func (l *AttributeList) Get(key value.MemberKey) *Attribute {
	if i := l.indexOf(key); i >= 0 {
		return &l.attributes[i]
	}
	return nil
}
