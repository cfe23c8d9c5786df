package testutil

import (
	"github.com/roach88/paramtrace/internal/alphabet"
	"github.com/roach88/paramtrace/internal/fsm"
)

// Property bundles a hand-built alphabet and automaton with name lookups.
//
// Properties are built fresh on every call, so tests may mutate handlers or
// validate them independently.
type Property struct {
	Name     string
	Alphabet *alphabet.Alphabet
	FSM      *fsm.FSM
	Params   map[string]*alphabet.Parameter
	Events   map[string]*alphabet.BaseEvent
	States   map[string]*fsm.State
}

// Event builds a runtime event for the named symbol. Objects are given in the
// order of the symbol's parameters.
func (p *Property) Event(name string, objects ...any) alphabet.Event {
	base, ok := p.Events[name]
	if !ok {
		panic("testutil: unknown event " + name)
	}
	return p.Alphabet.NewEvent(base, objects...)
}

type builder struct {
	p *Property
}

func newBuilder(name string, params ...string) *builder {
	a := alphabet.New()
	p := &Property{
		Name:     name,
		Alphabet: a,
		FSM:      fsm.New(a),
		Params:   make(map[string]*alphabet.Parameter),
		Events:   make(map[string]*alphabet.BaseEvent),
		States:   make(map[string]*fsm.State),
	}
	for _, n := range params {
		p.Params[n] = a.CreateParameter(n)
	}
	return &builder{p: p}
}

func (b *builder) event(name string, params ...string) {
	ps := make([]*alphabet.Parameter, len(params))
	for i, n := range params {
		ps[i] = b.p.Params[n]
	}
	b.p.Events[name] = b.p.Alphabet.CreateEvent(name, ps...)
}

func (b *builder) initial(name string) {
	b.p.States[name] = b.p.FSM.CreateInitialState(name)
}

func (b *builder) state(name string) {
	b.p.States[name] = b.p.FSM.CreateState(name)
}

func (b *builder) accepting(name string) {
	b.p.States[name] = b.p.FSM.CreateAcceptingState(name, nil)
}

func (b *builder) on(from, event, to string) {
	b.p.States[from].On(b.p.Events[event], b.p.States[to])
}

func (b *builder) build() *Property {
	if err := b.p.FSM.Validate(); err != nil {
		panic(err)
	}
	return b.p
}

// UnsafeIterator flags use of an iterator after its collection was modified.
//
//	createColl(c) updateColl(c) createIter(c,i) useIter(i)
func UnsafeIterator() *Property {
	b := newBuilder("UnsafeIterator", "c", "i")
	b.event("createColl", "c")
	b.event("createIter", "c", "i")
	b.event("useIter", "i")
	b.event("updateColl", "c")
	b.initial("start")
	b.state("s1")
	b.state("s2")
	b.state("s3")
	b.accepting("error")
	b.on("start", "createColl", "s1")
	b.on("s1", "updateColl", "s1")
	b.on("s1", "createIter", "s2")
	b.on("s2", "useIter", "s2")
	b.on("s2", "updateColl", "s3")
	b.on("s3", "updateColl", "s3")
	b.on("s3", "useIter", "error")
	return b.build()
}

// Chain is a -> b -> c over p1 and p2 where a creates instances of p1 alone.
//
//	a(p1) b(p1,p2) c(p2)
func Chain() *Property {
	b := newBuilder("Chain", "p1", "p2")
	b.event("a", "p1")
	b.event("b", "p1", "p2")
	b.event("c", "p2")
	b.initial("start")
	b.state("s1")
	b.state("s2")
	b.accepting("done")
	b.on("start", "a", "s1")
	b.on("s1", "b", "s2")
	b.on("s2", "c", "done")
	return b.build()
}

// Join needs e_ab then e_bc. Full instances over a, b and c only arise by
// joining the two partial ones.
//
//	e_ab(a,b) e_bc(b,c)
func Join() *Property {
	b := newBuilder("Join", "a", "b", "c")
	b.event("e_ab", "a", "b")
	b.event("e_bc", "b", "c")
	b.initial("start")
	b.state("s1")
	b.accepting("match")
	b.on("start", "e_ab", "s1")
	b.on("s1", "e_bc", "match")
	return b.build()
}

// Triangle matches e1 then e2. An e3 in between sends the instance to a
// sink, so a join over (a,b,c) must see the e3 stamped at (a,c).
//
//	e1(a,b) e2(b,c) e3(a,c)
func Triangle() *Property {
	b := newBuilder("Triangle", "a", "b", "c")
	b.event("e1", "a", "b")
	b.event("e2", "b", "c")
	b.event("e3", "a", "c")
	b.initial("start")
	b.state("s1")
	b.state("sink")
	b.accepting("match")
	b.on("start", "e1", "s1")
	b.on("s1", "e2", "match")
	b.on("s1", "e3", "sink")
	return b.build()
}

// Guarded matches open(a) then bind(a,b). A close(a,b) seen first disables
// the instance for good.
//
//	open(a) bind(a,b) close(a,b)
func Guarded() *Property {
	b := newBuilder("Guarded", "a", "b")
	b.event("open", "a")
	b.event("bind", "a", "b")
	b.event("close", "a", "b")
	b.initial("start")
	b.state("opened")
	b.state("closed")
	b.accepting("bound")
	b.on("start", "open", "opened")
	b.on("start", "close", "closed")
	b.on("opened", "bind", "bound")
	return b.build()
}

// Lock matches a lock acquired twice without release in between. The
// accepting state is not final, so a monitor keeps matching.
//
//	acquire(l) release(l)
func Lock() *Property {
	b := newBuilder("Lock", "l")
	b.event("acquire", "l")
	b.event("release", "l")
	b.initial("start")
	b.state("held")
	b.accepting("twice")
	b.on("start", "acquire", "held")
	b.on("held", "release", "start")
	b.on("held", "acquire", "twice")
	b.on("twice", "release", "held")
	return b.build()
}
