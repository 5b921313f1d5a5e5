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
	"bytes"
	"encoding/binary"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	// DiagLayerNum identifies the layer
	DiagLayerNum = 2001

	// PreambleSize + HeaderSize is the minimum length of a DIAG frame.
	PreambleSize = 8
	HeaderSize   = 12
)

// DiagPreamble opens every DIAG log frame produced by the modem.
var DiagPreamble = []byte{0x98, 0x01, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00}

// DiagLayer is the fixed DIAG envelope around one log message:
// an 8-byte preamble, then msg_len, logcode and the hardware timestamp
// (all little-endian), then msg_len payload bytes.
type DiagLayer struct {
	layers.BaseLayer
	MsgLen      uint16
	Logcode     uint16
	HwTimestamp uint64
	MsgPayload  []byte
}

var DiagLayerType = gopacket.RegisterLayerType(DiagLayerNum,
	gopacket.LayerTypeMetadata{Name: "DiagLayerType", Decoder: gopacket.DecodeFunc(DecodeDiagLayer)})

// LayerType returns the type of the DIAG layer in the layer catalog
func (d *DiagLayer) LayerType() gopacket.LayerType {
	return DiagLayerType
}

func (d *DiagLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < PreambleSize+HeaderSize {
		df.SetTruncated()
		return ErrNotDiag{Length: len(data)}
	}
	if !bytes.Equal(data[:PreambleSize], DiagPreamble) {
		return ErrNotDiag{Length: len(data)}
	}

	d.MsgLen = binary.LittleEndian.Uint16(data[8:10])
	d.Logcode = binary.LittleEndian.Uint16(data[10:12])
	d.HwTimestamp = binary.LittleEndian.Uint64(data[12:20])

	end := PreambleSize + HeaderSize + int(d.MsgLen)
	if len(data) < end {
		df.SetTruncated()
		return ErrTruncated{Logcode: d.Logcode, Want: int(d.MsgLen), Got: len(data) - PreambleSize - HeaderSize}
	}
	d.MsgPayload = data[PreambleSize+HeaderSize : end]
	d.BaseLayer = layers.BaseLayer{
		Contents: data[:PreambleSize+HeaderSize],
		Payload:  d.MsgPayload,
	}
	return nil
}

// SerializeTo writes the envelope into a SerializeBuffer. Used to build
// frames for loopback tests and command responses.
func (d *DiagLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	buf, err := b.AppendBytes(PreambleSize + HeaderSize + len(d.MsgPayload))
	if err != nil {
		return err
	}
	copy(buf[:PreambleSize], DiagPreamble)
	binary.LittleEndian.PutUint16(buf[8:10], uint16(len(d.MsgPayload)))
	binary.LittleEndian.PutUint16(buf[10:12], d.Logcode)
	binary.LittleEndian.PutUint64(buf[12:20], d.HwTimestamp)
	copy(buf[PreambleSize+HeaderSize:], d.MsgPayload)
	return nil
}

func DecodeDiagLayer(data []byte, p gopacket.PacketBuilder) error {
	d := &DiagLayer{}
	if err := d.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(d)
	return nil
}
