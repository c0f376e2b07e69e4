package graph

import "strings"

// NodeID is the opaque, stable identifier of a contact node.
// The server owns the value; the client never interprets it.
type NodeID string

// String returns the string representation of the NodeID.
func (id NodeID) String() string {
	return string(id)
}

// IsZero reports whether the NodeID is the zero value.
func (id NodeID) IsZero() bool {
	return id == ""
}

// Position is a point in viewport coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GraphNode is a contact as the server presents it. The client holds a
// read-through copy per fetch cycle; all fields are server-owned.
type GraphNode struct {
	ID        NodeID    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	PhotoRef  string    `json:"photo_ref,omitempty"`
	Position  *Position `json:"position,omitempty"`
}

// DisplayName returns the contact's name for rendering.
func (n GraphNode) DisplayName() string {
	name := strings.TrimSpace(n.FirstName + " " + n.LastName)
	if name == "" {
		return n.ID.String()
	}
	return name
}
