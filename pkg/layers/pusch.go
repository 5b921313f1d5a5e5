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

// LogcodePusch is the LTE LL1 PUSCH transmission report.
const LogcodePusch = 0xB139

const PuschVersion161 = 161

const (
	puschHeaderSize = 8
	puschRecordSize = 100
)

// PuschRecord is one decoded PUSCH transmission.
type PuschRecord struct {
	DispatchSfnSf  uint16
	CurrentSfnSf   uint16
	RedundVer      uint8
	ReTxIndex      uint8
	UlCarrierIndex uint8
	DlCarrierIndex uint8
	PuschTbSize    uint16
	NumOfRb        uint8
}

func (r *PuschRecord) FrameIdentity() uint16 {
	return r.CurrentSfnSf
}

// DecodePusch parses the 0xB139 v161 layout: an 8-byte standard header
// followed by fixed 100-byte records. NumOfRb is a direct byte at record
// offset 11; older cross-byte readings of that field were wrong.
func DecodePusch(payload []byte) []Record {
	var records []Record
	if len(payload) < puschHeaderSize {
		return records
	}

	numRecords := int(payload[2]>>1) & 0x7F
	dispatchSfnSf := binary.LittleEndian.Uint16(payload[4:6])
	cursor := puschHeaderSize

	for i := 0; i < numRecords; i++ {
		if cursor+puschRecordSize > len(payload) {
			break
		}
		rec := payload[cursor : cursor+puschRecordSize]
		records = append(records, &PuschRecord{
			DispatchSfnSf:  dispatchSfnSf,
			CurrentSfnSf:   binary.LittleEndian.Uint16(rec[0:2]),
			RedundVer:      (rec[2] >> 4) & 0x03,
			ReTxIndex:      ((rec[2] >> 6) & 0x03) | (((rec[3] >> 2) & 0x03) << 2),
			UlCarrierIndex: rec[3] & 0x03,
			DlCarrierIndex: (rec[7] >> 1) & 0x03,
			PuschTbSize:    binary.LittleEndian.Uint16(rec[8:10]),
			NumOfRb:        rec[11],
		})
		cursor += puschRecordSize
	}
	return records
}
