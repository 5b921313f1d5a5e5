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
	"encoding/binary"
)

const (
	// FlagByte delimits HDLC frames on the wire.
	FlagByte = 0x7E
	// EscapeByte marks a stuffed byte; the following byte is XORed with EscapeXor.
	EscapeByte = 0x7D
	EscapeXor  = 0x20
)

// Decode strips the frame delimiters, reverses byte stuffing, verifies the
// trailing little-endian CRC16 and returns the frame payload.
func Decode(frame []byte) ([]byte, error) {
	// Tolerate frames handed over with or without their delimiters; the
	// reassembler splits on FlagByte so it usually passes bare segments.
	for len(frame) > 0 && frame[0] == FlagByte {
		frame = frame[1:]
	}
	for len(frame) > 0 && frame[len(frame)-1] == FlagByte {
		frame = frame[:len(frame)-1]
	}

	unstuffed := make([]byte, 0, len(frame))
	escaped := false
	for _, b := range frame {
		if escaped {
			unstuffed = append(unstuffed, b^EscapeXor)
			escaped = false
			continue
		}
		if b == EscapeByte {
			escaped = true
			continue
		}
		unstuffed = append(unstuffed, b)
	}
	if escaped {
		// Frame ended in the middle of an escape sequence.
		return nil, ErrMalformed{Length: len(unstuffed)}
	}

	if len(unstuffed) < 3 {
		return nil, ErrMalformed{Length: len(unstuffed)}
	}

	payload := unstuffed[:len(unstuffed)-2]
	want := binary.LittleEndian.Uint16(unstuffed[len(unstuffed)-2:])
	got := Checksum(payload)
	if want != got {
		return nil, ErrChecksumMismatch{Want: want, Got: got}
	}
	return payload, nil
}

// Encode computes the CRC16 over payload, appends it little-endian, escapes
// every flag and escape byte and wraps the result with flag delimiters.
func Encode(payload []byte) []byte {
	crc := Checksum(payload)
	raw := make([]byte, 0, len(payload)+2)
	raw = append(raw, payload...)
	raw = append(raw, byte(crc&0xFF), byte(crc>>8))

	encoded := make([]byte, 0, len(raw)+4)
	encoded = append(encoded, FlagByte)
	for _, b := range raw {
		if b == FlagByte || b == EscapeByte {
			encoded = append(encoded, EscapeByte, b^EscapeXor)
			continue
		}
		encoded = append(encoded, b)
	}
	encoded = append(encoded, FlagByte)
	return encoded
}
