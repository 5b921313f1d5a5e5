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
	"fmt"
)

// ErrMalformed returned when a frame is too short to carry a payload and
// a two byte checksum
type ErrMalformed struct {
	Length int
}

func (e ErrMalformed) Error() string {
	return fmt.Sprintf("Malformed HDLC frame: %d bytes after unescaping, need at least 3", e.Length)
}

// ErrChecksumMismatch returned when the trailing CRC16 does not match the
// checksum computed over the frame payload
type ErrChecksumMismatch struct {
	Want uint16
	Got  uint16
}

func (e ErrChecksumMismatch) Error() string {
	return fmt.Sprintf("HDLC checksum mismatch: frame carries 0x%04x, computed 0x%04x", e.Want, e.Got)
}
