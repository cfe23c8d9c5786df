package binding

import (
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"
	"unsafe"
	"weak"
)

// ErrNotBindable is returned by Bindable for objects that are neither
// pointers nor comparable, such as maps, slices and funcs.
var ErrNotBindable = errors.New("binding: object can be neither weakly referenced nor compared")

// weakKey identifies a pointer object without keeping it alive. Weak
// pointers made from the same pointer compare equal, even after collection.
type weakKey struct {
	typ reflect.Type
	ptr weak.Pointer[byte]
}

// Binding is a handle to one bound object. It never keeps a pointer object
// alive; Value reports nil once the object was collected or released.
type Binding struct {
	id       uint64
	key      any
	typ      reflect.Type
	ptr      weak.Pointer[byte]
	strong   any
	immortal bool
	released atomic.Bool
	swept    bool
}

// ID returns a number unique among bindings of one store.
func (b *Binding) ID() uint64 { return b.id }

// Value returns the bound object, or nil if it is gone. The result must not
// be cached: the object may be collected at any time.
func (b *Binding) Value() any {
	if b.released.Load() {
		return nil
	}
	if b.immortal {
		return b.strong
	}
	p := b.ptr.Value()
	if p == nil {
		return nil
	}
	return reflect.NewAt(b.typ.Elem(), unsafe.Pointer(p)).Interface()
}

// Alive reports whether the bound object is still reachable.
func (b *Binding) Alive() bool {
	if b.released.Load() {
		return false
	}
	return b.immortal || b.ptr.Value() != nil
}

// Released reports whether the binding was swept or explicitly released.
func (b *Binding) Released() bool { return b.released.Load() }

func (b *Binding) String() string {
	switch v := b.Value(); {
	case v == nil:
		return fmt.Sprintf("#%d<gone>", b.id)
	case b.immortal:
		return fmt.Sprintf("#%d(%v)", b.id, v)
	default:
		return fmt.Sprintf("#%d(%s@%p)", b.id, b.typ.Elem(), v)
	}
}

// refersTo reports whether b is the binding for obj without a table lookup.
func (b *Binding) refersTo(obj any) bool {
	if b.released.Load() {
		return false
	}
	if b.immortal {
		return b.strong == obj
	}
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Pointer || rv.Type() != b.typ || rv.IsNil() {
		return false
	}
	return unsafe.Pointer(b.ptr.Value()) == rv.UnsafePointer()
}

// keyFor returns the table key for obj and, for weakly held objects, the
// pointer the cleanup is attached to.
func keyFor(obj any) (any, *byte) {
	rv := reflect.ValueOf(obj)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Type().Elem().Size() > 0 {
		p := (*byte)(rv.UnsafePointer())
		return weakKey{typ: rv.Type(), ptr: weak.Make(p)}, p
	}
	if err := Bindable(obj); err != nil {
		panic(err.Error())
	}
	return obj, nil
}

// Bindable reports whether obj can be bound. Pointers are held weakly and
// any other comparable value strongly.
func Bindable(obj any) error {
	if !reflect.ValueOf(obj).Comparable() {
		return fmt.Errorf("%w: %T", ErrNotBindable, obj)
	}
	return nil
}
