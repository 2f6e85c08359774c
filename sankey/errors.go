package sankey

import "fmt"

// UnknownReferenceError reports a bundle, waypoint list, or ordering entry
// that names a node which does not exist, or which exists but is the wrong
// kind (a bundle endpoint naming a waypoint, or a waypoint list containing a
// process group).
type UnknownReferenceError struct {
	Kind     string // "source", "target", "waypoint", "ordering node"
	ID       string
	BundleID string // empty when Kind == "ordering node"
}

func (e *UnknownReferenceError) Error() string {
	if e.BundleID == "" {
		return fmt.Sprintf("sankey: unknown node %q referenced in ordering", e.ID)
	}
	return fmt.Sprintf("sankey: bundle %q: unknown %s %q", e.BundleID, e.Kind, e.ID)
}

// WrongNodeKindError reports a bundle endpoint naming a waypoint, or a
// waypoint slot naming a process group.
type WrongNodeKindError struct {
	BundleID string
	ID       string
	Want     string // "process group" or "waypoint"
}

func (e *WrongNodeKindError) Error() string {
	return fmt.Sprintf("sankey: bundle %q: node %q is not a %s", e.BundleID, e.ID, e.Want)
}
