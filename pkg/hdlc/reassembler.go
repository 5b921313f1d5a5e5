/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package hdlc

import (
	"bytes"

	"github.com/QiangWu769/ltediag/pkg/log"
)

// Reassembler turns a byte stream arriving in arbitrary-sized chunks into a
// sequence of decoded HDLC frame payloads. The buffer persists across reads:
// a frame split across two socket reads is completed by the next Feed call
// instead of being thrown away.
type Reassembler struct {
	buf []byte
	// Drops counts segments that failed to decode. Noise at connection
	// start is expected, so drops are not an error condition.
	Drops uint64
}

func NewReassembler() *Reassembler {
	return &Reassembler{}
}

// Feed appends a chunk to the internal buffer.
func (r *Reassembler) Feed(chunk []byte) {
	r.buf = append(r.buf, chunk...)
}

// Pending reports whether an incomplete trailing segment is buffered.
func (r *Reassembler) Pending() bool {
	return len(r.buf) > 0
}

// Frames extracts every complete frame currently in the buffer, in stream
// order. Segments that fail HDLC decode are dropped and logged. The
// trailing segment with no terminating flag byte stays buffered for the
// next call.
func (r *Reassembler) Frames() [][]byte {
	last := bytes.LastIndexByte(r.buf, FlagByte)
	if last < 0 {
		return nil
	}

	complete := r.buf[:last]
	tail := r.buf[last+1:]

	var frames [][]byte
	for _, segment := range bytes.Split(complete, []byte{FlagByte}) {
		if len(segment) == 0 {
			continue
		}
		payload, err := Decode(segment)
		if err != nil {
			r.Drops++
			log.Debug("Dropping undecodable segment: %d bytes: %s", len(segment), err)
			continue
		}
		frames = append(frames, payload)
	}

	// Trim consumed bytes from the front, keep the partial tail.
	r.buf = append(r.buf[:0], tail...)
	return frames
}
