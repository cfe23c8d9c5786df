package testutil

// Object is a heap-allocated bound object. The string field keeps it out of
// the runtime's tiny allocator, so collection of one Object is observable on
// its own.
type Object struct {
	Name string
}

// NewObject allocates a fresh Object.
func NewObject(name string) *Object {
	return &Object{Name: name}
}

func (o *Object) String() string { return o.Name }

// Objects allocates one Object per name.
func Objects(names ...string) map[string]*Object {
	objs := make(map[string]*Object, len(names))
	for _, n := range names {
		objs[n] = NewObject(n)
	}
	return objs
}
