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

// ErrNotDiag returned for frames that do not carry the DIAG preamble.
// Such frames are diagnostic noise, not a protocol failure.
type ErrNotDiag struct {
	Length int
}

func (e ErrNotDiag) Error() string {
	return fmt.Sprintf("Frame is not a DIAG log frame: %d bytes", e.Length)
}

// ErrTruncated returned when a frame advertises more payload bytes than
// it carries
type ErrTruncated struct {
	Logcode uint16
	Want    int
	Got     int
}

func (e ErrTruncated) Error() string {
	return fmt.Sprintf("Truncated DIAG message: logcode: 0x%04X want: %d bytes got: %d", e.Logcode, e.Want, e.Got)
}

// ErrUnsupportedVersion returned when a known logcode arrives with a
// version byte no decoder is registered for
type ErrUnsupportedVersion struct {
	Logcode uint16
	Version uint8
}

func (e ErrUnsupportedVersion) Error() string {
	return fmt.Sprintf("Unsupported message version: logcode: 0x%04X version: %d", e.Logcode, e.Version)
}
