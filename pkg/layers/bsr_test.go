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

package layers

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bsrSample builds one 14-byte sample header plus its MAC element list.
func bsrSample(sysfn uint16, subfn uint8, grantBytes, padding uint16, elements []byte) []byte {
	sample := make([]byte, bsrSampleHeaderSize)
	binary.LittleEndian.PutUint16(sample[4:6], sysfn<<4|uint16(subfn))
	binary.LittleEndian.PutUint16(sample[6:8], grantBytes)
	binary.LittleEndian.PutUint16(sample[9:11], padding)
	sample[11] = 0x02 // bsr_event: high-data-arrival
	sample[12] = 0x03 // bsr_trig: s-bsr
	sample[13] = byte(len(elements))
	return append(sample, elements...)
}

func bsrPayload(samples ...[]byte) []byte {
	payload := []byte{1, 0, 0, 0}
	payload = append(payload, 0, 0, 0, 0, byte(len(samples)))
	for _, sample := range samples {
		payload = append(payload, sample...)
	}
	return payload
}

func TestDecodeBsrShort(t *testing.T) {
	// Short-BSR sub-header (LCID 29), then data byte: LCG 2, size 5.
	payload := bsrPayload(bsrSample(298, 7, 100, 2, []byte{0x1D, 0x85}))

	records := DecodeBsr(payload)
	require.Len(t, records, 1)

	rec := records[0].(*BsrRecord)
	assert.Equal(t, uint16(298), rec.SysFN)
	assert.Equal(t, uint8(7), rec.SubFN)
	assert.Equal(t, uint16(2987), rec.FrameIdentity())
	assert.Equal(t, uint16(100), rec.GrantBytes)
	assert.Equal(t, uint16(2), rec.Padding)
	assert.Equal(t, uint8(2), rec.BsrEvent)
	assert.Equal(t, uint8(3), rec.BsrTrig)
	assert.Equal(t, [4]uint8{0, 0, 5, 0}, rec.BufferSize)
}

func TestDecodeBsrLong(t *testing.T) {
	// Long-BSR sub-header (LCID 30), then 3 bytes packing four 6-bit
	// sizes: 10<<18 | 20<<12 | 30<<6 | 40 = 0x2947A8.
	elements := []byte{0x1E, 0x29, 0x47, 0xA8}
	payload := bsrPayload(bsrSample(5, 0, 0, 0, elements))

	records := DecodeBsr(payload)
	require.Len(t, records, 1)

	rec := records[0].(*BsrRecord)
	assert.Equal(t, [4]uint8{10, 20, 30, 40}, rec.BufferSize)
}

func TestDecodeBsrPaddingOnlySkipped(t *testing.T) {
	// Padding sub-header only, no BSR control element.
	payload := bsrPayload(bsrSample(10, 1, 0, 50, []byte{0x1F, 0x00}))
	assert.Empty(t, DecodeBsr(payload))
}

func TestDecodeBsrMultipleSamples(t *testing.T) {
	payload := bsrPayload(
		bsrSample(100, 0, 0, 0, []byte{0x1D, 0x41}), // short, LCG 1 size 1
		bsrSample(100, 1, 0, 0, []byte{0x1F, 0x00}), // padding only
		bsrSample(100, 2, 0, 0, []byte{0x1D, 0xC2}), // short, LCG 3 size 2
	)

	records := DecodeBsr(payload)
	require.Len(t, records, 2)
	assert.Equal(t, uint16(1000), records[0].FrameIdentity())
	assert.Equal(t, uint16(1002), records[1].FrameIdentity())
}

func TestDecodeBsrTruncated(t *testing.T) {
	assert.Empty(t, DecodeBsr(nil))
	assert.Empty(t, DecodeBsr([]byte{5, 0, 0, 0}))

	// Sample header count larger than available bytes.
	payload := bsrPayload(bsrSample(1, 1, 0, 0, []byte{0x1D, 0x41}))
	payload[8] = 10
	assert.Len(t, DecodeBsr(payload), 1)
}
