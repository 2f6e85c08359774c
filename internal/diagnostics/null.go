package diagnostics

// NullEmitter discards every event. It is the default sink so that
// diagnostics have zero overhead unless a caller opts in.
type NullEmitter struct{}

// NewNullEmitter returns an Emitter that discards all events.
func NewNullEmitter() *NullEmitter { return &NullEmitter{} }

// Emit implements Emitter.
func (NullEmitter) Emit(Event) {}
