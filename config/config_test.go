package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/dynconn/config"
	"github.com/wkalt/dynconn/dyndata"
	"github.com/wkalt/dynconn/util/testutils"
)

func TestParseFixture(t *testing.T) {
	c, err := config.Parse([]byte(testutils.TestConfig()), "")
	require.NoError(t, err)

	p, ok := c.Participant("MyParticipantLibrary::Zero")
	require.True(t, ok)
	assert.Equal(t, 0, p.Domain)

	w, ok := p.Writer("MyPublisher::MySquareWriter")
	require.True(t, ok)
	require.NotNil(t, w.EndpointName)
	assert.Equal(t, "MyWriter", *w.EndpointName)

	limited, ok := p.Writer("MyPublisher::LimitedSquareWriter")
	require.True(t, ok)
	assert.Equal(t, 3, limited.MaxInstances)
	assert.Nil(t, limited.EndpointName)

	_, ok = p.Reader("MyPublisher::MySquareWriter")
	assert.False(t, ok)

	other, ok := c.Participant("MyParticipantLibrary::ReaderOnly")
	require.True(t, ok)
	r, ok := other.Reader("MySubscriber::OtherSquareReader")
	require.True(t, ok)
	assert.Equal(t, 1, r.HistoryDepth)

	typ, err := c.TopicType("Square")
	require.NoError(t, err)
	assert.Equal(t, "ShapeType", typ.Name)
	assert.Equal(t, dyndata.KindStruct, typ.Kind)

	_, err = c.TopicType("Circle")
	require.ErrorIs(t, err, &config.ValidationError{})

	_, ok = c.Type("DataAccessTest")
	assert.True(t, ok)
	assert.Contains(t, c.TypeNames(), "RootUnion")
}

func TestLoadTypesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shapes.idl"), []byte(testutils.TestIDL), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
typesFile: shapes.idl
topics:
  - name: Square
    type: ShapeType
participants:
  - name: P
    writers:
      - name: W
        topic: Square
`), 0600))

	c, err := config.Load(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	_, err = c.TopicType("Square")
	require.NoError(t, err)

	_, err = config.Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestParseErrors(t *testing.T) {
	const types = "types: |\n  struct S { long x; };\n  enum E { A };\n"
	cases := []struct {
		assertion string
		input     string
		invalid   bool
	}{
		{
			"unknown field",
			types + "topicz: []\n",
			false,
		},
		{
			"bad idl",
			"types: |\n  struct S { long x }\n",
			false,
		},
		{
			"unknown topic type",
			types + "topics:\n  - name: T\n    type: Missing\n",
			true,
		},
		{
			"topic of enum type",
			types + "topics:\n  - name: T\n    type: E\n",
			true,
		},
		{
			"duplicate topic",
			types + "topics:\n  - name: T\n    type: S\n  - name: T\n    type: S\n",
			true,
		},
		{
			"unknown endpoint topic",
			types + "topics:\n  - name: T\n    type: S\nparticipants:\n  - name: P\n    readers:\n      - name: R\n        topic: U\n",
			true,
		},
		{
			"duplicate participant",
			types + "participants:\n  - name: P\n  - name: P\n",
			true,
		},
		{
			"duplicate endpoint",
			types + "topics:\n  - name: T\n    type: S\nparticipants:\n  - name: P\n    writers:\n      - name: W\n        topic: T\n      - name: W\n        topic: T\n",
			true,
		},
		{
			"negative max instances",
			types + "topics:\n  - name: T\n    type: S\nparticipants:\n  - name: P\n    writers:\n      - name: W\n        topic: T\n        maxInstances: -1\n",
			true,
		},
		{
			"types and types file",
			types + "typesFile: x.idl\n",
			true,
		},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			_, err := config.Parse([]byte(c.input), "")
			require.Error(t, err)
			if c.invalid {
				require.ErrorIs(t, err, &config.ValidationError{})
			}
		})
	}
}
