// Package listmodel adapts a host-owned sequence of items into the row/role
// list-model protocol a declarative UI consumes.
//
// The model never copies or owns items. It reads them through role getters,
// writes them through role setters, and builds new ones through the
// registered constructor. Every mutation is bracketed by begin/end
// notifications delivered synchronously to subscribed observers; the update
// hook, when set, runs after the store has changed and before the end
// notification.
//
// A Model is single-writer: it is not safe for concurrent use, and an
// observer or callable that tries to mutate the model from inside a mutation
// gets modelerr.ErrReentrant.
package listmodel
