package recorder

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/wkalt/dynconn/engine"
	"github.com/wkalt/dynconn/wire"
)

const archiveSuffix = ".jsonl.zst"

// Record is one archived sample.
type Record struct {
	Info RecordInfo      `json:"info"`
	Data json.RawMessage `json:"data"`
}

// RecordInfo is the metadata archived with a sample.
type RecordInfo struct {
	SourceTimestamp       int64                 `json:"source_timestamp"`
	ReceptionTimestamp    int64                 `json:"reception_timestamp"`
	Identity              engine.SampleIdentity `json:"identity"`
	RelatedSampleIdentity engine.SampleIdentity `json:"related_sample_identity"`
}

// Object decodes the record's data, keeping 64-bit integers exact.
func (r Record) Object() (wire.Object, error) {
	c, err := wire.Unmarshal(r.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode record data: %w", err)
	}
	obj, ok := c.(wire.Object)
	if !ok {
		return nil, fmt.Errorf("record data is a %s, not an object", c.Kind())
	}
	return obj, nil
}

// EncodeArchive renders records as JSON lines and compresses them.
func EncodeArchive(enc *zstd.Encoder, records []Record) ([]byte, error) {
	buf := &bytes.Buffer{}
	for _, rec := range records {
		line, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("failed to encode record: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return enc.EncodeAll(buf.Bytes(), nil), nil
}

// DecodeArchive decompresses an archive and parses its records.
func DecodeArchive(dec *zstd.Decoder, data []byte) ([]Record, error) {
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress archive: %w", err)
	}
	records := []Record{}
	for i, line := range bytes.Split(raw, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("failed to parse record on line %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func archiveKey(prefix string, seq int) string {
	return fmt.Sprintf("%s/%010d%s", prefix, seq, archiveSuffix)
}

// archiveSeq parses the sequence number out of an archive key. ok is false
// for keys that are not archives under prefix.
func archiveSeq(prefix, key string) (int, bool) {
	name, found := strings.CutPrefix(key, prefix+"/")
	if !found {
		return 0, false
	}
	name, found = strings.CutSuffix(name, archiveSuffix)
	if !found {
		return 0, false
	}
	seq, err := strconv.Atoi(name)
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}
