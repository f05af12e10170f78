// Package backing adapts an externally owned sequence of items to the
// bounds-checked primitives the list model mutates it through.
//
// # Purpose
//
// The sequence belongs to the host: it is created, grown and possibly read by
// code outside the model. The adapter only guarantees that every index the
// model touches is valid and that every structural primitive either completes
// or leaves the sequence untouched.
//
// # Notifications
//
// Nothing in this package notifies observers. A single logical change, such
// as a move, is made of several primitive calls; the list model brackets the
// whole group with exactly one begin/end pair.
//
// # Handles
//
// Setters receive the store for the duration of one write. Scope wraps a store
// in a handle that stops working once released, so no mutable view of the
// sequence outlives the operation that handed it out.
package backing
