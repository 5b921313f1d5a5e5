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

// Package clock reconciles the three clock domains of a decoding session:
// the modem hardware tick counter, the bridge host Unix clock, and the
// radio frame counters (SysFN/SubFN).
package clock

import (
	"time"
)

const (
	// TicksPerSecond is the modem hardware clock rate.
	TicksPerSecond = 52428800.0

	// epochUnix is 1980-01-06T00:00:00Z, the zero point of the hardware
	// tick counter, as Unix seconds.
	epochUnix = 315964800

	// wrapMs is one full SysFN cycle: 1024 frames of 10ms each.
	wrapMs = 10240
)

// HwToUnix converts a hardware tick counter to Unix seconds. A tick value
// of 0 is the "unknown" sentinel and maps to 0.0, never to the epoch.
func HwToUnix(ticks uint64) float64 {
	if ticks == 0 {
		return 0.0
	}
	return epochUnix + float64(ticks)/TicksPerSecond
}

// HwToReadable renders a hardware tick counter as a wall-clock string with
// microsecond precision.
func HwToReadable(ticks uint64) string {
	if ticks == 0 {
		return "N/A"
	}
	seconds := float64(ticks) / TicksPerSecond
	ns := int64(seconds * 1e9)
	t := time.Unix(epochUnix, 0).UTC().Add(time.Duration(ns))
	return t.Format("2006-01-02 15:04:05.000000")
}

// Correlator derives sub-millisecond event timestamps from radio frame
// counters. The first correlated record anchors the baseline; later
// records are placed relative to it by their SysFN/SubFN distance.
type Correlator struct {
	baselineSet bool
	baselineTs  float64
	baselineFn  int
}

func NewCorrelator() *Correlator {
	return &Correlator{}
}

// Baseline returns the anchor of the session, or ok=false before the
// first CellularPrecise call.
func (c *Correlator) Baseline() (ts float64, fn int, ok bool) {
	return c.baselineTs, c.baselineFn, c.baselineSet
}

// Restore re-anchors the correlator from persisted session state.
func (c *Correlator) Restore(ts float64, fn int) {
	c.baselineTs = ts
	c.baselineFn = fn
	c.baselineSet = true
}

// CellularPrecise returns a timestamp for the (sysfn, subfn) event. The
// first call anchors the baseline at localRecvTs and returns it unchanged;
// later calls offset the baseline by the frame-counter distance in
// milliseconds, compensating one SysFN wraparound when the counter has
// cycled past 1023.
func (c *Correlator) CellularPrecise(sysfn uint16, subfn uint8, localRecvTs float64) float64 {
	fn := int(sysfn)*10 + int(subfn)
	if !c.baselineSet {
		c.baselineSet = true
		c.baselineTs = localRecvTs
		c.baselineFn = fn
		return localRecvTs
	}

	diffMs := fn - c.baselineFn
	if diffMs < 0 {
		diffMs += wrapMs
	}
	return c.baselineTs + float64(diffMs)/1000.0
}
