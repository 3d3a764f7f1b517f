package testutils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/dynconn/dyndata"
	"github.com/wkalt/dynconn/idl"
)

// TestIDL declares the types used across package tests: the shapes demo type
// and a data access type exercising every kind of member.
const TestIDL = `
struct ShapeType {
    @key string<128> color;
    long x;
    long y;
    long shapesize;
    boolean z;
};

struct Point {
    long x;
    long y;
};

typedef Point PointAlias;

enum Color {
    GREEN = 2,
    RED = 1,
    BLUE = 3
};

union MyUnion switch (long) {
    case 1: Point point;
    case 2: sequence<long, 10> my_int_sequence;
    case 3: long my_long;
};

union MyIntUnion switch (long) {
    case 100: short my_short;
    case 200: long my_long;
    default: string<20> my_string;
};

/* Root union used for the "#" selector. */
union RootUnion switch (Color) {
    case GREEN: long a;
    case RED: string b;
};

struct DataAccessTest {
    long my_long;
    double my_double;
    @optional boolean my_optional_bool;
    Color my_enum;
    string<512> my_string;
    Point my_point;
    @optional PointAlias my_point_alias;
    @optional Point my_optional_point;
    @optional long my_optional_long;
    MyUnion my_union;
    MyIntUnion my_int_union;
    sequence<Point, 10> my_point_sequence;
    sequence<long, 10> my_int_sequence;
    Point my_array[5];
    long long my_int64;
    unsigned long long my_uint64;
    float my_float;
    char my_char;
    octet my_octet;
    @default(42) short my_default_short;
    @default(RED) Color my_default_enum;
    sequence<long long> my_int64_sequence;
};
`

// TestConfig returns an engine topology over TestIDL. The first participant
// holds writers and readers for every topic, including a writer limited to
// three instances; the others add a reader-only participant on the same
// domain and a writer on another domain.
func TestConfig() string {
	lines := strings.Split(strings.TrimSpace(TestIDL), "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return "types: |\n" + strings.Join(lines, "\n") + "\n" + testTopology
}

const testTopology = `
topics:
  - name: Square
    type: ShapeType
  - name: DataAccess
    type: DataAccessTest
  - name: Root
    type: RootUnion
participants:
  - name: MyParticipantLibrary::Zero
    domain: 0
    writers:
      - name: MyPublisher::MySquareWriter
        topic: Square
        endpointName: MyWriter
      - name: MyPublisher::LimitedSquareWriter
        topic: Square
        maxInstances: 3
      - name: TestPublisher::TestWriter
        topic: DataAccess
        endpointName: TestWriter
      - name: TestPublisher::RootWriter
        topic: Root
    readers:
      - name: MySubscriber::MySquareReader
        topic: Square
        endpointName: MyReader
      - name: TestSubscriber::TestReader
        topic: DataAccess
        endpointName: TestReader
      - name: TestSubscriber::RootReader
        topic: Root
  - name: MyParticipantLibrary::ReaderOnly
    domain: 0
    readers:
      - name: MySubscriber::OtherSquareReader
        topic: Square
        endpointName: OtherReader
        historyDepth: 1
  - name: MyParticipantLibrary::OtherDomain
    domain: 1
    writers:
      - name: MyPublisher::MySquareWriter
        topic: Square
`

// Types parses TestIDL.
func Types(t testing.TB) map[string]*dyndata.Type {
	t.Helper()
	types, err := idl.Parse(TestIDL)
	require.NoError(t, err)
	return types
}

// Type returns one type of TestIDL.
func Type(t testing.TB, name string) *dyndata.Type {
	t.Helper()
	typ, ok := Types(t)[name]
	require.True(t, ok, "unknown type %s", name)
	return typ
}
