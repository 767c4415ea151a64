// Package workflow drives task time tracking, task status changes, the
// document approval flow and appointment approval against the portal
// server.
//
// The server owns every piece of mutable state. Commands send a request,
// then refetch, and hand back the fresh snapshot; nothing here predicts or
// patches server state locally. The one derived value computed on the
// client is the live elapsed time of an active session (LiveElapsedSeconds),
// and it is always recomputed from the last snapshot.
//
// Commands against one entity are serialized by an Inflight guard: a second
// command issued while the first is outstanding fails fast with ErrBusy.
package workflow
