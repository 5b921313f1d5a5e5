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

// Byte-order helpers shared by the per-version decoders. The v49 UL grant
// layout interleaves big-endian sub-fields into an otherwise little-endian
// record, so decoders work on swapped copies where needed.

// swap2 exchanges the two bytes at offset i.
func swap2(b []byte, i int) {
	b[i], b[i+1] = b[i+1], b[i]
}

// reverse4 reverses the four bytes at offset i.
func reverse4(b []byte, i int) {
	b[i], b[i+1], b[i+2], b[i+3] = b[i+3], b[i+2], b[i+1], b[i]
}
