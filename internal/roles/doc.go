// Package roles provides the dynamic role registry of the list model.
//
// A role is one viewable field of every item: a name plus a getter and an
// optional setter. Roles are addressed by dense integer ids 0..Len()-1 and
// by name; removing a role compacts the ids of every role after it.
//
// A fresh registry holds a single default role, "string", whose getter
// renders the whole item. The first custom role added clears the default
// role set. Removing every custom role afterwards leaves the registry empty;
// the default role is not restored.
//
// The registry owns a pin on every callable it references and notifies its
// Listener of schema changes. It never touches items.
package roles
