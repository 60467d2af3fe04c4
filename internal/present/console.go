package present

import (
	"fmt"
	"io"

	"vecna/internal/loop"
)

// Console prints the chat transcript and status changes, one line each.
type Console struct {
	w    io.Writer
	name string
}

func NewConsole(w io.Writer, assistant string) *Console {
	if assistant == "" {
		assistant = "Vecna"
	}
	return &Console{w: w, name: assistant}
}

func (c *Console) Apply(ev loop.Event) {
	switch e := ev.(type) {
	case loop.StatusChanged:
		if e.Detail != "" {
			fmt.Fprintf(c.w, "Status: %s (%s)\n", e.Status, e.Detail)
			return
		}
		fmt.Fprintf(c.w, "Status: %s\n", e.Status)

	case loop.TranscriptLine:
		fmt.Fprintf(c.w, "%s: %s\n", c.sender(e.Role), e.Text)
	}
}

func (c *Console) sender(r loop.Role) string {
	switch r {
	case loop.RoleUser:
		return "User"
	case loop.RoleAssistant:
		return c.name
	case loop.RoleTool:
		return "Tool"
	case loop.RoleError:
		return "Error"
	default:
		return "System"
	}
}
