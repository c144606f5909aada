package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ReadSegments decodes a stream of JSON segment objects, one after another
// as written by WriteSegments. Invalid segments are rejected.
func ReadSegments(r io.Reader) ([]Segment, error) {
	dec := json.NewDecoder(r)
	var segs []Segment
	for {
		var seg Segment
		err := dec.Decode(&seg)
		if errors.Is(err, io.EOF) {
			return segs, nil
		}
		if err != nil {
			return segs, fmt.Errorf("segment %d: %w", len(segs)+1, err)
		}
		if err := seg.Validate(); err != nil {
			return segs, fmt.Errorf("segment %d: %w", len(segs)+1, err)
		}
		segs = append(segs, seg)
	}
}

// WriteSegments encodes segs as JSON lines.
func WriteSegments(w io.Writer, segs []Segment) error {
	enc := json.NewEncoder(w)
	for _, seg := range segs {
		if err := enc.Encode(seg); err != nil {
			return err
		}
	}
	return nil
}
