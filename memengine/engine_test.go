package memengine_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/dynconn/config"
	"github.com/wkalt/dynconn/engine"
	"github.com/wkalt/dynconn/fieldpath"
	"github.com/wkalt/dynconn/memengine"
	"github.com/wkalt/dynconn/util/testutils"
	"github.com/wkalt/dynconn/wire"
)

var p = fieldpath.MustParse

var fixedTime = time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)

func newEngine(t *testing.T, opts ...memengine.Option) *memengine.Engine {
	t.Helper()
	cfg, err := config.Parse([]byte(testutils.TestConfig()), "")
	require.NoError(t, err)
	opts = append([]memengine.Option{memengine.WithClock(testutils.FixedClock(fixedTime))}, opts...)
	return memengine.New(context.Background(), cfg, opts...)
}

type endpoints struct {
	participant engine.Participant
	writer      engine.Writer
	reader      engine.Reader
}

func openSquares(t *testing.T, e *memengine.Engine) endpoints {
	t.Helper()
	participant, err := e.Open("MyParticipantLibrary::Zero")
	require.NoError(t, err)
	t.Cleanup(func() { _ = participant.Close() })
	w, err := participant.Writer("MyPublisher::MySquareWriter")
	require.NoError(t, err)
	r, err := participant.Reader("MySubscriber::MySquareReader")
	require.NoError(t, err)
	return endpoints{participant, w, r}
}

func writeShape(t *testing.T, w engine.Writer, color string, x float64, params string) {
	t.Helper()
	require.NoError(t, w.SetString(p("color"), color))
	require.NoError(t, w.SetNumber(p("x"), x))
	require.NoError(t, w.Write([]byte(params)))
}

func info(t *testing.T, r engine.Reader, index int, key string) wire.Value {
	t.Helper()
	v, err := r.Info(index, key)
	require.NoError(t, err)
	return v
}

func TestOpen(t *testing.T) {
	e := newEngine(t)
	_, err := e.Open("MyParticipantLibrary::Missing")
	require.ErrorIs(t, err, &engine.Error{})

	ep := openSquares(t, e)
	_, err = ep.participant.Writer("MyPublisher::Missing")
	require.ErrorIs(t, err, &engine.Error{})
	_, err = ep.participant.Reader("MyPublisher::MySquareWriter")
	require.ErrorIs(t, err, &engine.Error{})
}

func TestWriteAndTake(t *testing.T) {
	ep := openSquares(t, newEngine(t))
	writeShape(t, ep.writer, "BLUE", 10, "")

	n, err := ep.reader.Take()
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, 1, ep.reader.Count())

	v, err := ep.reader.Value(1, p("color"))
	require.NoError(t, err)
	assert.Equal(t, wire.TextValue("BLUE"), v)
	v, err = ep.reader.Value(1, p("x"))
	require.NoError(t, err)
	assert.Equal(t, wire.NumberValue(10), v)

	data, err := ep.reader.JSON(1, p(""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"color":"BLUE","x":10,"y":0,"shapesize":0,"z":false}`, string(data))

	assert.Equal(t, wire.BooleanValue(true), info(t, ep.reader, 1, engine.InfoValidData))
	assert.Equal(t, wire.TextValue(engine.SampleStateNotRead), info(t, ep.reader, 1, engine.InfoSampleState))
	assert.Equal(t, wire.TextValue(engine.ViewStateNew), info(t, ep.reader, 1, engine.InfoViewState))
	assert.Equal(t, wire.TextValue(engine.InstanceStateAlive), info(t, ep.reader, 1, engine.InfoInstanceState))
	ts := strconv.FormatInt(fixedTime.UnixNano(), 10)
	assert.Equal(t, wire.TextValue(ts), info(t, ep.reader, 1, engine.InfoSourceTimestamp))
	assert.Equal(t, wire.TextValue(ts), info(t, ep.reader, 1, engine.InfoReceptionTimestamp))

	_, err = ep.reader.Value(2, p("x"))
	require.ErrorIs(t, err, &engine.Error{})
	_, err = ep.reader.Value(0, p("x"))
	require.ErrorIs(t, err, &engine.Error{})
	_, err = ep.reader.Info(1, "bogus")
	require.ErrorIs(t, err, &engine.UnknownMemberError{})
	assert.Contains(t, err.Error(), "bogus")

	n, err = ep.reader.Take()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReadStates(t *testing.T) {
	ep := openSquares(t, newEngine(t))
	writeShape(t, ep.writer, "RED", 1, "")

	n, err := ep.reader.Read()
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, wire.TextValue(engine.SampleStateNotRead), info(t, ep.reader, 1, engine.InfoSampleState))

	writeShape(t, ep.writer, "RED", 2, "")
	writeShape(t, ep.writer, "GREEN", 3, "")
	n, err = ep.reader.Read()
	require.NoError(t, err)
	require.Equal(t, 3, n)
	cases := []struct {
		index       int
		sampleState string
		viewState   string
	}{
		{1, engine.SampleStateRead, engine.ViewStateNotNew},
		{2, engine.SampleStateNotRead, engine.ViewStateNotNew},
		{3, engine.SampleStateNotRead, engine.ViewStateNew},
	}
	for _, c := range cases {
		t.Run(strconv.Itoa(c.index), func(t *testing.T) {
			assert.Equal(t, wire.TextValue(c.sampleState), info(t, ep.reader, c.index, engine.InfoSampleState))
			assert.Equal(t, wire.TextValue(c.viewState), info(t, ep.reader, c.index, engine.InfoViewState))
		})
	}

	n, err = ep.reader.Take()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = ep.reader.Read()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDisposeAndUnregister(t *testing.T) {
	ep := openSquares(t, newEngine(t))
	writeShape(t, ep.writer, "BLUE", 10, "")
	writeShape(t, ep.writer, "BLUE", 11, `{"action":"dispose"}`)
	n, err := ep.reader.Take()
	require.NoError(t, err)
	require.Equal(t, 2, n)

	assert.Equal(t, wire.BooleanValue(false), info(t, ep.reader, 2, engine.InfoValidData))
	assert.Equal(t, wire.TextValue(engine.InstanceStateNotAliveDisposed), info(t, ep.reader, 2, engine.InfoInstanceState))
	v, err := ep.reader.Value(2, p("color"))
	require.NoError(t, err)
	assert.Equal(t, wire.TextValue("BLUE"), v)
	v, err = ep.reader.Value(2, p("x"))
	require.NoError(t, err)
	assert.Equal(t, wire.NumberValue(0), v)

	require.NoError(t, ep.writer.Write([]byte(`{"action":"unregister"}`)))
	n, err = ep.reader.Take()
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, wire.TextValue(engine.InstanceStateNotAliveNoWriters), info(t, ep.reader, 1, engine.InfoInstanceState))

	err = ep.writer.Write([]byte(`{"action":"unregister"}`))
	require.ErrorIs(t, err, &engine.Error{})

	writeShape(t, ep.writer, "BLUE", 12, "")
	n, err = ep.reader.Take()
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, wire.TextValue(engine.InstanceStateAlive), info(t, ep.reader, 1, engine.InfoInstanceState))
	assert.Equal(t, wire.TextValue(engine.ViewStateNew), info(t, ep.reader, 1, engine.InfoViewState))
}

func TestMaxInstances(t *testing.T) {
	ep := openSquares(t, newEngine(t))
	w, err := ep.participant.Writer("MyPublisher::LimitedSquareWriter")
	require.NoError(t, err)
	for _, color := range []string{"RED", "GREEN", "BLUE"} {
		writeShape(t, w, color, 1, "")
	}
	writeShape(t, w, "RED", 2, "")

	require.NoError(t, w.SetString(p("color"), "YELLOW"))
	err = w.Write(nil)
	require.ErrorIs(t, err, &engine.Error{})
	assert.Contains(t, err.Error(), "max_instances")

	require.NoError(t, w.SetString(p("color"), "RED"))
	require.NoError(t, w.Write([]byte(`{"action":"unregister"}`)))
	writeShape(t, w, "YELLOW", 1, "")
}

func TestWriteParams(t *testing.T) {
	ep := openSquares(t, newEngine(t))
	writeShape(t, ep.writer, "BLUE", 1, `{
		"source_timestamp": 2147483647999999999,
		"identity": {"writer_guid": [1,2,3,4,5,6,7,8,9,10,11,12,13,14,15,16], "sequence_number": 42},
		"related_sample_identity": {"writer_guid": {"value": [16,15,14,13,12,11,10,9,8,7,6,5,4,3,2,1]}, "sequence_number": {"high": 1, "low": 2}}
	}`)
	n, err := ep.reader.Take()
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, wire.TextValue("2147483647999999999"), info(t, ep.reader, 1, engine.InfoSourceTimestamp))
	assert.Equal(t,
		wire.TextValue(`{"writer_guid":[1,2,3,4,5,6,7,8,9,10,11,12,13,14,15,16],"sequence_number":42}`),
		info(t, ep.reader, 1, engine.InfoSampleIdentity),
	)
	assert.Equal(t, info(t, ep.reader, 1, engine.InfoSampleIdentity), info(t, ep.reader, 1, engine.InfoIdentity))
	assert.Equal(t,
		wire.TextValue(`{"writer_guid":[16,15,14,13,12,11,10,9,8,7,6,5,4,3,2,1],"sequence_number":4294967298}`),
		info(t, ep.reader, 1, engine.InfoRelatedSampleIdentity),
	)

	cases := []struct {
		assertion string
		params    string
		message   string
	}{
		{"not an object", `"foo"`, "failed to parse write params"},
		{"timestamp too large", `{"source_timestamp": 2147483648000000000}`, "timestamp is larger than DDS_TIME_MAX"},
		{"bad action", `{"action": "explode"}`, "invalid action"},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			err := ep.writer.Write([]byte(c.params))
			require.ErrorIs(t, err, &engine.Error{})
			assert.Contains(t, err.Error(), c.message)
		})
	}
}

func TestDefaultIdentity(t *testing.T) {
	ep := openSquares(t, newEngine(t))
	writeShape(t, ep.writer, "BLUE", 1, "")
	writeShape(t, ep.writer, "BLUE", 2, "")
	_, err := ep.reader.Take()
	require.NoError(t, err)
	first := info(t, ep.reader, 1, engine.InfoSampleIdentity)
	second := info(t, ep.reader, 2, engine.InfoSampleIdentity)
	assert.NotEqual(t, first, second)
	text, _ := second.Text()
	assert.Contains(t, text, `"sequence_number":2`)
}

func TestHistoryDepth(t *testing.T) {
	e := newEngine(t)
	ep := openSquares(t, e)
	other, err := e.Open("MyParticipantLibrary::ReaderOnly")
	require.NoError(t, err)
	defer other.Close()
	r, err := other.Reader("MySubscriber::OtherSquareReader")
	require.NoError(t, err)

	writeShape(t, ep.writer, "BLUE", 1, "")
	writeShape(t, ep.writer, "BLUE", 2, "")
	writeShape(t, ep.writer, "RED", 3, "")

	n, err := r.Take()
	require.NoError(t, err)
	require.Equal(t, 2, n)
	v, err := r.Value(1, p("x"))
	require.NoError(t, err)
	assert.Equal(t, wire.NumberValue(2), v)

	n, err = ep.reader.Take()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMaxSamples(t *testing.T) {
	ep := openSquares(t, newEngine(t, memengine.WithMaxSamples(2)))
	for i := 0; i < 4; i++ {
		writeShape(t, ep.writer, "BLUE", float64(i), "")
	}
	n, err := ep.reader.Take()
	require.NoError(t, err)
	require.Equal(t, 2, n)
	v, err := ep.reader.Value(1, p("x"))
	require.NoError(t, err)
	assert.Equal(t, wire.NumberValue(2), v)
}

func TestDomains(t *testing.T) {
	e := newEngine(t)
	ep := openSquares(t, e)
	other, err := e.Open("MyParticipantLibrary::OtherDomain")
	require.NoError(t, err)
	defer other.Close()
	w, err := other.Writer("MyPublisher::MySquareWriter")
	require.NoError(t, err)

	writeShape(t, w, "BLUE", 1, "")
	require.ErrorIs(t, ep.reader.WaitForData(0), engine.ErrTimeout)
	matched, err := w.Matched()
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(matched))
}

func TestMatching(t *testing.T) {
	e := newEngine(t)
	ep := openSquares(t, e)

	delta, err := ep.writer.WaitForMatch(0)
	require.NoError(t, err)
	assert.Equal(t, 1, delta)
	_, err = ep.writer.WaitForMatch(0)
	require.ErrorIs(t, err, engine.ErrTimeout)

	matched, err := ep.writer.Matched()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"MyReader"}]`, string(matched))

	delta, err = ep.reader.WaitForMatch(0)
	require.NoError(t, err)
	assert.Equal(t, 2, delta)
	matched, err = ep.reader.Matched()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"MyWriter"},{"name":null}]`, string(matched))

	other, err := e.Open("MyParticipantLibrary::ReaderOnly")
	require.NoError(t, err)
	delta, err = ep.writer.WaitForMatch(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, delta)

	require.NoError(t, other.Close())
	delta, err = ep.writer.WaitForMatch(time.Second)
	require.NoError(t, err)
	assert.Equal(t, -1, delta)
	require.NoError(t, other.Close())
}

func TestWaitForData(t *testing.T) {
	ep := openSquares(t, newEngine(t))
	require.ErrorIs(t, ep.reader.WaitForData(0), engine.ErrTimeout)
	require.ErrorIs(t, ep.participant.WaitForData(10*time.Millisecond), engine.ErrTimeout)

	// staged data belongs to the writing goroutine
	require.NoError(t, ep.writer.SetString(p("color"), "BLUE"))
	done := make(chan error)
	go func() {
		time.Sleep(10 * time.Millisecond)
		done <- ep.writer.Write(nil)
	}()
	require.NoError(t, ep.reader.WaitForData(engine.Infinite))
	require.NoError(t, <-done)
	require.NoError(t, ep.participant.WaitForData(0))

	_, err := ep.reader.Read()
	require.NoError(t, err)
	require.ErrorIs(t, ep.reader.WaitForData(0), engine.ErrTimeout)
}

func TestWriterStaging(t *testing.T) {
	ep := openSquares(t, newEngine(t))
	require.NoError(t, ep.writer.SetJSON(p(""), []byte(`{"color":"RED","x":3,"z":true}`)))
	require.NoError(t, ep.writer.SetBoolean(p("z"), false))
	data, err := ep.writer.JSON(p(""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"color":"RED","x":3,"y":0,"shapesize":0,"z":false}`, string(data))

	require.NoError(t, ep.writer.ClearMember(p("x")))
	data, err = ep.writer.JSON(p("x"))
	require.NoError(t, err)
	assert.Equal(t, "0", string(data))

	require.NoError(t, ep.writer.Clear())
	data, err = ep.writer.JSON(p("color"))
	require.NoError(t, err)
	assert.Equal(t, `""`, string(data))
	require.NoError(t, ep.writer.WaitForAcknowledgments(time.Second))
}

func TestClosedParticipant(t *testing.T) {
	ep := openSquares(t, newEngine(t))
	require.NoError(t, ep.participant.Close())
	require.ErrorIs(t, ep.writer.Write(nil), &engine.Error{})
	_, err := ep.reader.Take()
	require.ErrorIs(t, err, &engine.Error{})
	require.ErrorIs(t, ep.participant.WaitForData(engine.Infinite), &engine.Error{})
}

func TestCloseWakesReaderWait(t *testing.T) {
	ep := openSquares(t, newEngine(t))
	done := make(chan error)
	go func() {
		done <- ep.reader.WaitForData(engine.Infinite)
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, ep.participant.Close())
	select {
	case err := <-done:
		require.ErrorIs(t, err, &engine.Error{})
	case <-time.After(time.Second):
		t.Fatal("reader wait did not return after close")
	}
	require.ErrorIs(t, ep.reader.WaitForData(0), &engine.Error{})
}
