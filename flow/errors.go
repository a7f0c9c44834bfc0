package flow

import "errors"

var (
	// ErrInvalidOption is returned when an option index or value lies outside
	// the node's declared options.
	ErrInvalidOption = errors.New("invalid option")
	// ErrUnboundPort is returned when a wiring references a port the node does
	// not declare.
	ErrUnboundPort = errors.New("unbound port")
	// ErrCycle is returned when wiring would make a node depend on itself.
	ErrCycle = errors.New("graph contains cycle")
	// ErrStructure is returned when voices are not structurally identical or a
	// node has the wrong kind for the requested operation.
	ErrStructure = errors.New("structural mismatch")
	// ErrNodeNotFound is returned for registry indices that do not exist.
	ErrNodeNotFound = errors.New("node not found")
	// ErrUnknownType is returned for node type names or versions this build
	// does not know.
	ErrUnknownType = errors.New("unknown node type")
	// ErrEditorClosed is returned when an Editor is used after its Edit call
	// has returned.
	ErrEditorClosed = errors.New("editor used outside its edit scope")
)
