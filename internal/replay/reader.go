package replay

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/banshee-data/tfgraph/internal/ingest"
	"github.com/banshee-data/tfgraph/internal/tf"
)

const maxLineBytes = 64 * 1024 * 1024

type loadedBatch struct {
	reset bool
	batch ingest.FrameBatch
	stamp tf.Time
}

// Reader holds a decoded recording and a playback cursor.
type Reader struct {
	batches   []loadedBatch
	topics    []ingest.Topic
	pos       int
	resetNext bool
}

// Open loads the recording at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r, err := NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// NewReader decodes every batch from src. Blank lines are skipped.
func NewReader(src io.Reader) (*Reader, error) {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	r := &Reader{}
	datatypes := map[string]string{}
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var b Batch
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		fb, stamp, err := decodeBatch(b)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		for _, m := range b.Messages {
			if prev, ok := datatypes[m.Topic]; ok && prev != m.Datatype {
				return nil, fmt.Errorf("line %d: topic %s changes datatype from %s to %s", line, m.Topic, prev, m.Datatype)
			}
			datatypes[m.Topic] = m.Datatype
		}
		r.batches = append(r.batches, loadedBatch{reset: b.Reset, batch: fb, stamp: stamp})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for name, dt := range datatypes {
		r.topics = append(r.topics, ingest.Topic{Name: name, Datatype: dt})
	}
	sort.Slice(r.topics, func(i, j int) bool { return r.topics[i].Name < r.topics[j].Name })
	return r, nil
}

// Topics returns every topic in the recording with its datatype.
func (r *Reader) Topics() []ingest.Topic {
	return append([]ingest.Topic(nil), r.topics...)
}

// ReadBatch returns the batch at the cursor and advances. reset is true when
// the recording asks for one or a backward Seek preceded this read. It
// returns io.EOF after the last batch.
func (r *Reader) ReadBatch() (batch ingest.FrameBatch, reset bool, err error) {
	if r.pos >= len(r.batches) {
		return nil, false, io.EOF
	}
	b := r.batches[r.pos]
	reset = b.reset || r.resetNext
	r.resetNext = false
	r.pos++
	return b.batch, reset, nil
}

// Seek moves the cursor to batch idx. Seeking backwards makes the next
// ReadBatch report a reset, since transforms already ingested lie in the
// future of the new position.
func (r *Reader) Seek(idx int) error {
	if idx < 0 || idx > len(r.batches) {
		return fmt.Errorf("seek %d out of range [0, %d]", idx, len(r.batches))
	}
	if idx < r.pos {
		r.resetNext = true
	}
	r.pos = idx
	return nil
}

// SeekToTime moves the cursor to the first batch whose newest receive time
// is at or after t. Batch times are assumed non-decreasing.
func (r *Reader) SeekToTime(t tf.Time) error {
	idx := sort.Search(len(r.batches), func(i int) bool {
		return !r.batches[i].stamp.Before(t)
	})
	return r.Seek(idx)
}

// CurrentBatch returns the index of the next batch ReadBatch will return.
func (r *Reader) CurrentBatch() int { return r.pos }

// TotalBatches returns the number of batches in the recording.
func (r *Reader) TotalBatches() int { return len(r.batches) }

// BatchTime returns the newest receive time in batch idx.
func (r *Reader) BatchTime(idx int) tf.Time {
	if idx < 0 || idx >= len(r.batches) {
		return tf.Time{}
	}
	return r.batches[idx].stamp
}
