package bridge

// ValidateFunc is the pre-mutation veto hook. A nil return accepts the
// mutation; a non-nil error rejects it and the error text is surfaced
// verbatim as the rejection reason. old and new carry the property's
// current and proposed values; for collection elements they carry the
// current and proposed full array.
type ValidateFunc func(recv any, property string, old, new any) error

// NotifyFunc is the post-mutation observation hook. It runs after a
// committed mutation and never for a vetoed one.
type NotifyFunc func(recv any, property string, old, new any)

// Validator is optionally implemented by host objects to veto
// script-originated mutations. A type-level ValidateFunc takes
// precedence when both are present.
type Validator interface {
	WillChange(property string, old, new any) error
}

// Observer is optionally implemented by host objects to observe
// committed script-originated mutations.
type Observer interface {
	DidChange(property string, old, new any)
}

// willChange resolves the effective veto hook for one mutation.
// Both hooks are synchronous and run on the script's own call stack.
func (t *boundType) willChange(recv any, property string, old, new any) error {
	if t.validate != nil {
		return t.validate(recv, property, old, new)
	}
	if v, ok := recv.(Validator); ok {
		return v.WillChange(property, old, new)
	}
	return nil
}

func (t *boundType) didChange(recv any, property string, old, new any) {
	if t.notify != nil {
		t.notify(recv, property, old, new)
		return
	}
	if o, ok := recv.(Observer); ok {
		o.DidChange(property, old, new)
	}
}
