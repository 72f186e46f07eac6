/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package docstore

// Operations a client may request over a room connection.
const (
	OpGet         = "get"
	OpCreate      = "create"
	OpMerge       = "merge"
	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"
)

// Frame types sent by the server.
const (
	FrameResult   = "result"
	FrameSnapshot = "snapshot"
)

// Request is sent by clients. The document key is the connection's room.
type Request struct {
	ID     uint64 `json:"id"`
	Op     string `json:"op"`
	Fields Fields `json:"fields,omitempty"`
}

// Frame is sent by the server, either in reply to a Request (result) or
// pushed to a subscribed connection (snapshot).
type Frame struct {
	Type   string `json:"type"`
	ID     uint64 `json:"id,omitempty"`
	Exists bool   `json:"exists,omitempty"`
	Fields Fields `json:"fields,omitempty"`
	Error  string `json:"error,omitempty"`
}
