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
)

// LogcodeBsr is the LTE MAC UL buffer status / transmission report.
const LogcodeBsr = 0xB064

// MAC sub-header LCIDs that matter for BSR extraction.
const (
	lcidShortBsr = 29
	lcidLongBsr  = 30
	lcidPadding  = 31
)

// BSR kinds as found while walking the MAC element list.
const (
	bsrNone = iota
	bsrShort
	bsrLong
	bsrPaddingOnly
)

const (
	bsrSubHeaderSize    = 4
	bsrSubpktHeaderSize = 5
	bsrSampleHeaderSize = 14
)

// BsrRecord is one decoded buffer status sample.
type BsrRecord struct {
	SysFN      uint16
	SubFN      uint8
	GrantBytes uint16
	Padding    uint16
	BsrEvent   uint8
	BsrTrig    uint8
	// BufferSize holds the 6-bit buffer size index per logical channel
	// group, from either one Short-BSR or one Long-BSR control element.
	BufferSize [4]uint8
}

func (r *BsrRecord) FrameIdentity() uint16 {
	return r.SysFN*10 + uint16(r.SubFN)
}

// DecodeBsr walks the 0xB064 sub-packet structure. A sample yields a
// record only when a Short or Long BSR control element was present;
// padding-only samples carry no buffer state and are skipped.
func DecodeBsr(payload []byte) []Record {
	var records []Record
	if len(payload) < bsrSubHeaderSize {
		return records
	}

	numSubpkt := int(payload[0])
	cursor := bsrSubHeaderSize

	for i := 0; i < numSubpkt; i++ {
		if cursor+bsrSubpktHeaderSize > len(payload) {
			break
		}
		numSamples := int(payload[cursor+4])
		cursor += bsrSubpktHeaderSize

		for j := 0; j < numSamples; j++ {
			if cursor+bsrSampleHeaderSize > len(payload) {
				return records
			}
			sample := payload[cursor : cursor+bsrSampleHeaderSize]
			sfnWord := binary.LittleEndian.Uint16(sample[4:6])

			rec := &BsrRecord{
				SysFN:      sfnWord >> 4,
				SubFN:      uint8(sfnWord & 0x0F),
				GrantBytes: binary.LittleEndian.Uint16(sample[6:8]),
				Padding:    binary.LittleEndian.Uint16(sample[9:11]),
				BsrEvent:   sample[11] & 0x03,
				BsrTrig:    sample[12] & 0x07,
			}
			hdrlen := int(sample[13])
			cursor += bsrSampleHeaderSize

			bsrType := walkMacElements(payload, cursor, hdrlen, &rec.BufferSize)
			cursor += hdrlen

			if bsrType == bsrShort || bsrType == bsrLong {
				records = append(records, rec)
			}
		}
	}
	return records
}

// walkMacElements walks the variable-length MAC sub-header element list of
// one sample and fills bufferSize from the first BSR control element found.
// Returns the kind of BSR seen.
func walkMacElements(payload []byte, start, hdrlen int, bufferSize *[4]uint8) int {
	bsrType := bsrNone
	step := 0

	for step < hdrlen {
		if start+step >= len(payload) {
			break
		}
		b := payload[start+step]
		ext := (b >> 5) & 1
		lcid := b & 31

		switch {
		case lcid == lcidShortBsr:
			bsrType = bsrShort
		case lcid == lcidLongBsr:
			bsrType = bsrLong
		case lcid == lcidPadding && bsrType == bsrNone:
			bsrType = bsrPaddingOnly
		}

		if ext == 1 && lcid <= 11 {
			// Sub-header with a length field for a data channel element.
			step++
			if start+step >= len(payload) {
				break
			}
			if payload[start+step]>>7 != 0 {
				step++ // 15-bit length, skip the second length byte
			}
		} else if ext == 0 {
			// Last sub-header; the control element bytes follow.
			step++
			if start+step >= len(payload) {
				break
			}
			switch bsrType {
			case bsrShort:
				data := payload[start+step]
				lcg := (data >> 6) & 3
				bufferSize[lcg] = data & 63
			case bsrLong:
				if start+step+2 >= len(payload) {
					return bsrType
				}
				b0 := payload[start+step]
				b1 := payload[start+step+1]
				b2 := payload[start+step+2]
				bufferSize[0] = (b0 & 0xFC) >> 2
				bufferSize[1] = ((b0 & 0x03) << 4) | ((b1 & 0xF0) >> 4)
				bufferSize[2] = ((b1 & 0x0F) << 2) | ((b2 & 0xC0) >> 6)
				bufferSize[3] = b2 & 0x3F
			}
			return bsrType
		}

		step++
	}
	return bsrType
}
