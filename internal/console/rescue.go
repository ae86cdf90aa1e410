package console

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/zeusync/scenekit/internal/app"
	"github.com/zeusync/scenekit/internal/core/observability/log"
)

var rescueRoot atomic.Pointer[app.Root]

// SetRescueRoot records the root the rescue console works on. Only the first
// call takes effect; it reports whether this call did.
func SetRescueRoot(root *app.Root) bool {
	return rescueRoot.CompareAndSwap(nil, root)
}

// Rescue reports a recovered panic and, when a root was recorded and rescue is
// enabled, runs a restricted console so the user can save the loaded scenes
// before the process ends.
func Rescue(recovered any, in io.Reader, out io.Writer) {
	rescue(rescueRoot.Load(), recovered, in, out)
}

func rescue(root *app.Root, recovered any, in io.Reader, out io.Writer) {
	c := newConsole(root, in, out)
	c.prompter.Printf("panic: %v\n", recovered)
	if root == nil || root.Scenes == nil {
		return
	}
	if root.Config != nil {
		if !root.Config.Console.Rescue {
			return
		}
		c.prompter.abort = root.Config.Console.AbortWord
		if c.prompter.abort == "" {
			c.prompter.abort = DefaultAbortWord
		}
	}

	c.logger.Error("entering rescue console", log.Any("panic", recovered))
	c.prompt = "rescue> "
	c.guard = true
	c.register(
		Command{Name: "help", Description: "list the commands", Handler: c.help},
		Command{Name: "listscenes", Description: "list the loaded scenes (* marks the target)", Handler: listScenes},
		Command{Name: "changescene", Description: "pick the target scene", Handler: changeScene},
		Command{Name: "savescene", Description: "save the target scene", Handler: saveScene},
	)
	c.prompter.Println("the program crashed; save what you need, then exit")
	_ = c.Run(context.Background())
}
