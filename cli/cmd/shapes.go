package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/wkalt/dynconn/cli/util"
	"github.com/wkalt/dynconn/connector"
	"github.com/wkalt/dynconn/wire"
)

const (
	shapesParticipant = "ShapeParticipantLibrary::Shapes"
	shapesWriter      = "ShapePublisher::SquareWriter"
	shapesReader      = "ShapeSubscriber::SquareReader"
)

const shapesConfig = `
types: |
  struct ShapeType {
      @key string<128> color;
      long x;
      long y;
      long shapesize;
  };
topics:
  - name: Square
    type: ShapeType
participants:
  - name: ShapeParticipantLibrary::Shapes
    domain: 0
    writers:
      - name: ShapePublisher::SquareWriter
        topic: Square
    readers:
      - name: ShapeSubscriber::SquareReader
        topic: Square
`

var shapeColors = []string{"PURPLE", "BLUE", "RED", "GREEN", "YELLOW", "CYAN", "MAGENTA", "ORANGE"}

// publishShapes writes count shapes moving along a diagonal, cycling through
// colors. start is the position of the first shape.
func publishShapes(out *connector.Output, start, count int, interval time.Duration) error {
	for i := start; i < start+count; i++ {
		err := out.Instance().SetDictionary(map[string]any{
			"color":     shapeColors[i%len(shapeColors)],
			"x":         10 * i,
			"y":         20 * i,
			"shapesize": 30,
		})
		if err != nil {
			return err
		}
		if err := out.Write(); err != nil {
			return err
		}
		if interval > 0 && i < start+count-1 {
			time.Sleep(interval)
		}
	}
	return nil
}

// printSamples takes the available samples of in and prints one line per
// sample, colored by its key.
func printSamples(in *connector.Input) (int, error) {
	if err := in.Take(); err != nil {
		return 0, err
	}
	it := in.Samples().Iter()
	for it.Next() {
		line, key, err := describeSample(it.Sample())
		if err != nil {
			return 0, err
		}
		util.ColorFor(key).Println(line)
	}
	if err := it.Err(); err != nil {
		return 0, err
	}
	return in.Samples().Len(), nil
}

func describeSample(s *connector.Sample) (string, string, error) {
	info := s.Info()
	state, err := info.InstanceState()
	if err != nil {
		return "", "", err
	}
	ts, err := info.SourceTimestamp()
	if err != nil {
		return "", "", err
	}
	c, _, err := s.Complex("")
	if err != nil {
		return "", "", err
	}
	data, err := wire.Marshal(c)
	if err != nil {
		return "", "", err
	}
	key := ""
	if obj, ok := c.(wire.Object); ok {
		if color, ok := obj["color"].(wire.String); ok {
			key = string(color)
		}
	}
	stamp := time.Unix(0, ts).UTC().Format(time.RFC3339Nano)
	return fmt.Sprintf("%s %s %s", stamp, strings.ToLower(state), data), key, nil
}
