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
	"github.com/QiangWu769/ltediag/pkg/log"
	"github.com/QiangWu769/ltediag/pkg/metrics"
)

// Record is one decoded protocol event. FrameIdentity gives the radio
// frame ordering key: sysfn*10+subfn for MAC records, the raw SFN/SF word
// for PHY records.
type Record interface {
	FrameIdentity() uint16
}

type versionKey struct {
	logcode uint16
	version uint8
}

type decodeFunc func(payload []byte) []Record

// Registry dispatches message payloads to per-(logcode, version) decoders.
// Logcodes whose payload carries no version byte register an unversioned
// decoder instead. Not safe for concurrent use; each decoding session
// owns one.
type Registry struct {
	versioned   map[versionKey]decodeFunc
	unversioned map[uint16]decodeFunc
	// warned tracks (logcode, version) pairs already reported, so an
	// unsupported version floods the log only once.
	warned map[versionKey]bool
}

func NewRegistry() *Registry {
	return &Registry{
		versioned: map[versionKey]decodeFunc{
			{LogcodeUlGrant, UlGrantVersion48}: DecodeUlGrantV48,
			{LogcodeUlGrant, UlGrantVersion49}: DecodeUlGrantV49,
			{LogcodePusch, PuschVersion161}:    DecodePusch,
		},
		unversioned: map[uint16]decodeFunc{
			LogcodeBsr: DecodeBsr,
		},
		warned: map[versionKey]bool{},
	}
}

// Known reports whether the registry handles a logcode at all.
func (r *Registry) Known(logcode uint16) bool {
	if _, ok := r.unversioned[logcode]; ok {
		return true
	}
	for key := range r.versioned {
		if key.logcode == logcode {
			return true
		}
	}
	return false
}

// Decode runs the decoder registered for (logcode, payload[0]). A known
// logcode with an unregistered version byte yields no records and a
// one-time warning; decoding must keep going.
func (r *Registry) Decode(logcode uint16, payload []byte) []Record {
	if len(payload) == 0 {
		return nil
	}
	if decode, ok := r.unversioned[logcode]; ok {
		return decode(payload)
	}

	version := payload[0]
	if decode, ok := r.versioned[versionKey{logcode, version}]; ok {
		return decode(payload)
	}
	if !r.Known(logcode) {
		return nil
	}

	metrics.Default.UnsupportedVersions.Inc()
	key := versionKey{logcode, version}
	if !r.warned[key] {
		r.warned[key] = true
		log.Warning("%s", ErrUnsupportedVersion{Logcode: logcode, Version: version})
	}
	return nil
}
