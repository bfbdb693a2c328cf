// Package render defines the interface for rendering chat sessions into
// output formats.
package render

import (
	"io"

	"github.com/sonnes/qachat/core"
)

// Renderer writes a session to the given writer in a specific format.
type Renderer interface {
	Render(w io.Writer, s *core.Session) error
}
