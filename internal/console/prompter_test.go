package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/scenekit/internal/core/dynamic"
)

func newTestPrompter(script string) (*Prompter, *bytes.Buffer) {
	var out bytes.Buffer
	return NewPrompter(strings.NewReader(script), &out, ""), &out
}

func TestPrompterText(t *testing.T) {
	p, out := newTestPrompter("  Hero  \n")

	got, err := p.Text("entity name")
	require.NoError(t, err)
	assert.Equal(t, "Hero", got)
	assert.Equal(t, "entity name: ", out.String())

	_, err = p.Text("again")
	assert.ErrorIs(t, err, ErrInputClosed)
}

func TestPrompterAbort(t *testing.T) {
	p, _ := newTestPrompter("ABORT\n")
	assert.Equal(t, DefaultAbortWord, p.AbortWord())

	_, err := p.Text("name")
	assert.ErrorIs(t, err, ErrAborted)
}

func TestPrompterChoice(t *testing.T) {
	options := []string{"Test", "Level"}

	p, out := newTestPrompter("3\nnope\n2\n")
	i, err := p.Choice("scene", options)
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	assert.Equal(t, 2, strings.Count(out.String(), "is not one of the choices"))

	p, _ = newTestPrompter("test\n")
	i, err = p.Choice("scene", options)
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	_, err = p.Choice("scene", nil)
	assert.Error(t, err)
}

func TestPrompterConfirm(t *testing.T) {
	tests := []struct {
		script string
		want   bool
	}{
		{script: "y\n", want: true},
		{script: "YES\n", want: true},
		{script: "\n", want: false},
		{script: "maybe\nn\n", want: false},
	}
	for _, tt := range tests {
		p, _ := newTestPrompter(tt.script)
		got, err := p.Confirm("sure?")
		require.NoError(t, err, tt.script)
		assert.Equal(t, tt.want, got, tt.script)
	}
}

func TestPrompterValue(t *testing.T) {
	p, _ := newTestPrompter("{x: 1.5}\n\n[1, 2\n")

	v, ok, err := p.Value("position")
	require.NoError(t, err)
	require.True(t, ok)
	x, found := v.AsMap().Get("x")
	require.True(t, found)
	assert.True(t, dynamic.Equal(dynamic.Float(1.5), x))

	_, ok, err = p.Value("position")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = p.Value("position")
	assert.Error(t, err)
}

func TestPrompterEcho(t *testing.T) {
	p, out := newTestPrompter("Hero\n")
	p.SetEcho(true)

	_, err := p.Text("name")
	require.NoError(t, err)
	assert.Equal(t, "name: Hero\n", out.String())
}
