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

package session

import (
	"fmt"
)

// ErrConnectionLost is fatal to the session: the bridge socket failed in
// a way reading cannot recover from. Shutdown must still flush.
type ErrConnectionLost struct {
	Err error
}

func (e ErrConnectionLost) Error() string {
	return fmt.Sprintf("Connection to bridge lost: %s", e.Err)
}

func (e ErrConnectionLost) Unwrap() error {
	return e.Err
}

// ErrBucketNotFound returned when session state is read before the
// session bucket was created
type ErrBucketNotFound struct {
	Bucket string
}

func (e ErrBucketNotFound) Error() string {
	return fmt.Sprintf("Bucket not found: %s", e.Bucket)
}

// ErrBrokenPipe returned by the command channel when the bridge closed
// its end; it marks the session fatal without crashing the reader.
type ErrBrokenPipe struct {
	Err error
}

func (e ErrBrokenPipe) Error() string {
	return fmt.Sprintf("Command write on closed bridge socket: %s", e.Err)
}

func (e ErrBrokenPipe) Unwrap() error {
	return e.Err
}
