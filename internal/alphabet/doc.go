// Package alphabet defines the vocabulary of a parametric property.
//
// A property is declared over Parameters (object-identity slots) and
// BaseEvents (symbols that bind a subset of those parameters). At runtime the
// host application reports Events: a BaseEvent plus the objects bound to its
// parameters.
//
// # Indices
//
// Every Parameter and BaseEvent carries a dense zero-based index. Indices are
// assigned by the owning Alphabet when the element is created and are used as
// keys into the static tables computed by package staticdata. Reading the
// index of a Parameter that was never added to an Alphabet is a configuration
// error and panics at the call site.
//
// # Parameter Masks
//
// A BaseEvent's parameter mask is the ascending array of the indices of the
// parameters it binds. The mask selects argument positions from an Event's
// bound objects and identifies the event's instance node in the parameter
// tree.
package alphabet
