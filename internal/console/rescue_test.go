package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/scenekit/internal/app"
)

func TestRescueWithoutRoot(t *testing.T) {
	var out bytes.Buffer
	rescue(nil, "boom", strings.NewReader("listscenes\n"), &out)

	assert.Equal(t, "panic: boom\n", out.String())
}

func TestRescueDisabled(t *testing.T) {
	root := newTestRoot(t)
	root.Config.Console.Rescue = false

	var out bytes.Buffer
	rescue(root, "boom", strings.NewReader("listscenes\n"), &out)

	assert.Equal(t, "panic: boom\n", out.String())
}

func TestRescueSavesTarget(t *testing.T) {
	root := newTestRoot(t)
	_, err := root.Scenes.NewScene("Test")
	require.NoError(t, err)

	var out bytes.Buffer
	rescue(root, "boom", strings.NewReader("newscene\nhelp\nsavescene\n\nexit\n"), &out)

	text := out.String()
	assert.Contains(t, text, "rescue> ")
	assert.Contains(t, text, `unknown command "newscene"`)
	assert.NotContains(t, text, "addcomponent")
	assert.Contains(t, text, `saved "Test" to Test.scene.yaml`)

	ok, err := root.Storage.Exists(context.Background(), "Test.scene.yaml")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRescueGuardsHandlers(t *testing.T) {
	var out bytes.Buffer
	c := newConsole(nil, strings.NewReader(""), &out)
	c.guard = true

	c.dispatch(context.Background(), Command{Name: "bad", Handler: func(context.Context, *app.Root, *Prompter) error {
		panic(errors.New("nil scene"))
	}})

	assert.Contains(t, out.String(), "error: bad panicked: nil scene")
}

func TestSetRescueRootOnce(t *testing.T) {
	first := &app.Root{}
	assert.True(t, SetRescueRoot(first))
	assert.False(t, SetRescueRoot(&app.Root{}))
	assert.Same(t, first, rescueRoot.Load())
}
