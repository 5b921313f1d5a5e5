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

package clock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHwToUnix(t *testing.T) {
	// Zero ticks means "unknown", never the 1980 epoch.
	assert.Equal(t, 0.0, HwToUnix(0))

	// One second worth of ticks past the epoch.
	assert.InDelta(t, 315964801.0, HwToUnix(52428800), 1e-9)

	// One hour.
	assert.InDelta(t, 315964800.0+3600.0, HwToUnix(52428800*3600), 1e-6)
}

func TestHwToReadable(t *testing.T) {
	assert.Equal(t, "N/A", HwToReadable(0))
	assert.Equal(t, "1980-01-06 00:00:01.000000", HwToReadable(52428800))
	// Half a second is exactly 26214400 ticks.
	assert.Equal(t, "1980-01-06 00:00:00.500000", HwToReadable(26214400))
}

func TestCellularPreciseBaseline(t *testing.T) {
	c := NewCorrelator()

	_, _, ok := c.Baseline()
	assert.False(t, ok)

	// First call anchors the baseline and returns the receive time.
	got := c.CellularPrecise(100, 5, 1000.0)
	assert.Equal(t, 1000.0, got)

	ts, fn, ok := c.Baseline()
	assert.True(t, ok)
	assert.Equal(t, 1000.0, ts)
	assert.Equal(t, 1005, fn)

	// 10ms later in frame time.
	got = c.CellularPrecise(101, 5, 2000.0)
	assert.InDelta(t, 1000.010, got, 1e-9)
}

func TestCellularPreciseWraparound(t *testing.T) {
	c := NewCorrelator()
	base := c.CellularPrecise(1020, 9, 5000.0)
	assert.Equal(t, 5000.0, base)

	// SysFN wrapped 1020/9 -> 5/0: 81ms forward (10240-10209+50),
	// not a negative jump.
	got := c.CellularPrecise(5, 0, 5002.0)
	assert.InDelta(t, 5000.081, got, 1e-9)
	assert.Greater(t, got, base)
}

func TestCellularPreciseRestore(t *testing.T) {
	c := NewCorrelator()
	c.Restore(1234.5, 2980)

	got := c.CellularPrecise(298, 1, 9999.0)
	assert.InDelta(t, 1234.501, got, 1e-9)
}
