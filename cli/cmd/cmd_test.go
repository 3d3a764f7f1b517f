package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/dynconn/config"
	"github.com/wkalt/dynconn/connector"
	"github.com/wkalt/dynconn/memengine"
)

func TestShapesConfig(t *testing.T) {
	cfg, err := config.Parse([]byte(shapesConfig), "")
	require.NoError(t, err)
	p, ok := cfg.Participant(shapesParticipant)
	require.True(t, ok)
	_, ok = p.Writer(shapesWriter)
	assert.True(t, ok)
	_, ok = p.Reader(shapesReader)
	assert.True(t, ok)
}

func shapes(t *testing.T) (*connector.Output, *connector.Input) {
	t.Helper()
	cfg, err := config.Parse([]byte(shapesConfig), "")
	require.NoError(t, err)
	c, err := connector.New(memengine.New(context.Background(), cfg), shapesParticipant)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, c.Close()) })
	out, err := c.Output(shapesWriter)
	require.NoError(t, err)
	in, err := c.Input(shapesReader)
	require.NoError(t, err)
	return out, in
}

func TestPublishAndDescribe(t *testing.T) {
	out, in := shapes(t)

	require.NoError(t, publishShapes(out, 1, 2, 0))
	require.NoError(t, in.Take())
	require.Equal(t, 2, in.Samples().Len())

	s, err := in.Samples().At(1)
	require.NoError(t, err)
	line, key, err := describeSample(s)
	require.NoError(t, err)
	assert.Equal(t, "RED", key)
	assert.Contains(t, line, "alive")
	assert.Contains(t, line, `"x":20`)
	assert.Contains(t, line, `"shapesize":30`)
}

func TestShell(t *testing.T) {
	out, in := shapes(t)
	buf := &bytes.Buffer{}
	sh := &shell{out: out, in: in, w: buf}
	run := func(t *testing.T, line string) string {
		t.Helper()
		buf.Reset()
		require.NoError(t, sh.execute(line))
		return buf.String()
	}

	t.Run("stage and show", func(t *testing.T) {
		run(t, `merge {"color": "BLUE", "x": 3}`)
		run(t, "set y 4")
		assert.Equal(t, `{"color":"BLUE","shapesize":0,"x":3,"y":4}`+"\n", run(t, "show"))
	})
	t.Run("write and take", func(t *testing.T) {
		run(t, "write")
		run(t, "write dispose")
		output := run(t, "take")
		assert.Contains(t, output, "[0]")
		assert.Contains(t, output, "[1]")
		assert.Contains(t, output, "not_alive_disposed")
	})
	t.Run("get and info", func(t *testing.T) {
		assert.Equal(t, "3\n", run(t, "get 0 x"))
		assert.Equal(t, "true\n", run(t, "info 0 valid_data"))
	})
	t.Run("clear", func(t *testing.T) {
		run(t, "clear x")
		assert.Contains(t, run(t, "show"), `"x":0`)
		run(t, "clear")
		assert.Contains(t, run(t, "show"), `"color":""`)
	})
	t.Run("path", func(t *testing.T) {
		assert.Equal(t, "0 member(a)\n1 index(2)\n2 length\n", run(t, "path a[2]#"))
	})
	t.Run("errors", func(t *testing.T) {
		for _, line := range []string{"bogus", "set x", "get x", "get 5", "set x \"text\"", "path a[", "write explode"} {
			require.Error(t, sh.execute(line), line)
		}
	})
}
