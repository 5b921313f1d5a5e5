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

func puschPayload(records ...[]byte) []byte {
	payload := make([]byte, puschHeaderSize)
	payload[0] = PuschVersion161
	payload[2] = byte(len(records)) << 1
	binary.LittleEndian.PutUint16(payload[4:6], 0x1234)
	for _, rec := range records {
		payload = append(payload, rec...)
	}
	return payload
}

func puschRecord(currentSfnSf uint16, tbSize uint16) []byte {
	rec := make([]byte, puschRecordSize)
	binary.LittleEndian.PutUint16(rec[0:2], currentSfnSf)
	rec[2] = 0x90 // redund_ver 1, low re_tx bits 2
	rec[3] = 0x05 // high re_tx bits 1, ul_carrier_index 1
	rec[7] = 0x04 // dl_carrier_index 2
	binary.LittleEndian.PutUint16(rec[8:10], tbSize)
	rec[11] = 25 // num_of_rb, direct byte
	return rec
}

func TestDecodePusch(t *testing.T) {
	payload := puschPayload(puschRecord(0x12A5, 500))

	records := DecodePusch(payload)
	require.Len(t, records, 1)

	rec := records[0].(*PuschRecord)
	assert.Equal(t, uint16(0x1234), rec.DispatchSfnSf)
	assert.Equal(t, uint16(0x12A5), rec.CurrentSfnSf)
	assert.Equal(t, uint16(0x12A5), rec.FrameIdentity())
	assert.Equal(t, uint8(1), rec.RedundVer)
	assert.Equal(t, uint8(6), rec.ReTxIndex)
	assert.Equal(t, uint8(1), rec.UlCarrierIndex)
	assert.Equal(t, uint8(2), rec.DlCarrierIndex)
	assert.Equal(t, uint16(500), rec.PuschTbSize)
	assert.Equal(t, uint8(25), rec.NumOfRb)
}

func TestDecodePuschMultipleRecords(t *testing.T) {
	payload := puschPayload(
		puschRecord(0x1000, 100),
		puschRecord(0x1001, 200),
		puschRecord(0x1002, 300),
	)

	records := DecodePusch(payload)
	require.Len(t, records, 3)
	for i, rec := range records {
		assert.Equal(t, uint16(0x1000+i), rec.FrameIdentity())
	}
}

func TestDecodePuschTruncated(t *testing.T) {
	assert.Empty(t, DecodePusch([]byte{161, 0, 0}))

	// Header promises more records than the payload carries.
	payload := puschPayload(puschRecord(0x1000, 100))
	payload[2] = 3 << 1
	assert.Len(t, DecodePusch(payload), 1)
}
