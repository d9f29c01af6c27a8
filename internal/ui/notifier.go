package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/desertthunder/copyurl/internal/models"
)

// Notifier prints search outcomes. A cue rings the terminal bell when enabled.
type Notifier struct {
	mu   sync.Mutex
	out  io.Writer
	bell bool
}

func NewNotifier(out io.Writer, bell bool) *Notifier {
	return &Notifier{out: out, bell: bell}
}

// Notify writes the message on its own line, styled by cue.
func (n *Notifier) Notify(notice models.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.bell && notice.Cue != models.CueNone {
		fmt.Fprint(n.out, "\a")
	}
	fmt.Fprintln(n.out, styles.notice(notice.Cue).Render(notice.Message))
}
