package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/boatlog/internal/client/models"
)

// pusher sends a changed record to the server as soon as it is written.
// When the server is unreachable the change simply stays queued.
type pusher struct {
	ctx context.Context
	app *App
	out io.Writer
}

func (p *pusher) Request(t models.DataType, id string) bool {
	if !p.app.Network.Check(p.ctx) {
		fmt.Fprintln(p.out, "offline; change queued")
		return false
	}
	res := p.app.Orch.SyncEntity(p.ctx, t, id)
	if !res.Success {
		fmt.Fprintf(p.out, "push failed: %s\n", strings.Join(res.Errors, "; "))
		return false
	}
	fmt.Fprintf(p.out, "pushed %s %s\n", t, id)
	return true
}
