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
	"fmt"
)

// LogcodeUlGrant is the LTE PHY UL grant report. Two payload layouts are
// in the wild, selected by the version byte: v48 uses a flat little-endian
// record, v49 interleaves big-endian sub-fields.
const LogcodeUlGrant = 0xB16C

const (
	UlGrantVersion48 = 48
	UlGrantVersion49 = 49
)

const (
	ulGrantHeaderSize = 4

	v48RecordHeaderSize = 2
	v48GrantBlockSize   = 126

	v49RecordHeaderSize = 4
	v49UlBlockSize      = 16
	v49DlBlockSize      = 8
)

// UlGrantRecord is one decoded grant occasion.
type UlGrantRecord struct {
	Version   uint8
	SysFN     uint16
	SubFN     uint8
	Mcs       uint8
	RedundVer uint8
	TbsIndex  uint8
	NumRb     uint8
}

func (r *UlGrantRecord) FrameIdentity() uint16 {
	return r.SysFN*10 + uint16(r.SubFN)
}

// TbsString maps the transport block size index to its 3GPP table name.
// Indexes 26A and 32A shift the names above them by one.
func (r *UlGrantRecord) TbsString() string {
	switch {
	case r.TbsIndex <= 26:
		return fmt.Sprintf("TBS_Index_%d", r.TbsIndex)
	case r.TbsIndex == 27:
		return "TBS_Index_26A"
	case r.TbsIndex <= 33:
		return fmt.Sprintf("TBS_Index_%d", r.TbsIndex-1)
	case r.TbsIndex == 34:
		return "TBS_Index_32A"
	case r.TbsIndex == 35:
		return "TBS_Index_33"
	default:
		return "invalid"
	}
}

// DecodeUlGrantV48 parses the v48 layout: a 2-byte record header followed
// by a fixed 126-byte grant block. The block is consumed whether or not
// the record carries an UL grant.
func DecodeUlGrantV48(payload []byte) []Record {
	var records []Record
	if len(payload) < ulGrantHeaderSize {
		return records
	}

	numRecords := int(payload[1]&0xFC) >> 2
	cursor := ulGrantHeaderSize

	for i := 0; i < numRecords; i++ {
		if cursor+v48RecordHeaderSize+v48GrantBlockSize > len(payload) {
			break
		}
		h1, h2 := payload[cursor], payload[cursor+1]
		numUlGrant := (h2 & 0xC0) >> 6
		cursor += v48RecordHeaderSize

		if numUlGrant != 0 {
			block := payload[cursor : cursor+v48GrantBlockSize]
			records = append(records, &UlGrantRecord{
				Version:   UlGrantVersion48,
				SysFN:     (uint16(h2&0x03) << 8) | uint16(h1),
				SubFN:     (h2 & 0x3C) >> 2,
				Mcs:       (block[5] & 0xF8) >> 3,
				RedundVer: (block[5] & 0x06) >> 1,
				TbsIndex:  block[6] & 0x3F,
				NumRb:     block[8] & 0x7F,
			})
		}
		cursor += v48GrantBlockSize
	}
	return records
}

// DecodeUlGrantV49 parses the v49 layout. The 4-byte record header is
// stored byte-reversed; the 16-byte UL grant block is little-endian with
// three big-endian u16 sub-fields at offsets 2, 4 and 6. A record holds
// either an UL grant block or an 8-byte DL grant block, never both.
func DecodeUlGrantV49(payload []byte) []Record {
	var records []Record
	if len(payload) < ulGrantHeaderSize {
		return records
	}

	numRecords := int((payload[1]&0x07)<<2) | int((payload[2]&0xC0)>>6)
	cursor := ulGrantHeaderSize

	for i := 0; i < numRecords; i++ {
		if cursor+v49RecordHeaderSize > len(payload) {
			break
		}
		var hdr [v49RecordHeaderSize]byte
		copy(hdr[:], payload[cursor:cursor+v49RecordHeaderSize])
		reverse4(hdr[:], 0)
		numUlGrant := ((hdr[1] & 0x01) << 2) | ((hdr[2] & 0xC0) >> 6)
		subfn := (hdr[2] & 0x3C) >> 2
		sysfn := (uint16(hdr[2]&0x03) << 8) | uint16(hdr[3])
		cursor += v49RecordHeaderSize

		if numUlGrant != 0 {
			if cursor+v49UlBlockSize > len(payload) {
				return records
			}
			var block [v49UlBlockSize]byte
			copy(block[:], payload[cursor:cursor+v49UlBlockSize])

			// NumRb lives in stream order; read it before the swaps.
			numRb := (block[6] & 0xFC) >> 2
			swap2(block[:], 2)
			swap2(block[:], 4)
			swap2(block[:], 6)

			records = append(records, &UlGrantRecord{
				Version:  UlGrantVersion49,
				SysFN:    sysfn,
				SubFN:    subfn,
				Mcs:      ((block[2] & 0x03) << 3) | ((block[3] & 0xE0) >> 5),
				TbsIndex: (block[2] & 0xFC) >> 2,
				NumRb:    numRb,
			})
			cursor += v49UlBlockSize
		} else {
			// DL-only record, fixed 8-byte block.
			if cursor+v49DlBlockSize > len(payload) {
				return records
			}
			cursor += v49DlBlockSize
		}
	}
	return records
}
