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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QiangWu769/ltediag/pkg/clock"
	"github.com/QiangWu769/ltediag/pkg/layers"
)

func testMeta(readable string, unixTs float64) Meta {
	return Meta{
		UnixTs:   unixTs,
		Readable: readable,
		BridgeTs: unixTs + 0.005,
		RecvTs:   unixTs + 0.007,
	}
}

func TestAggregatorMergesSharedKey(t *testing.T) {
	collector := NewCollector()
	agg := NewAggregator(collector, clock.NewCorrelator(), 100)

	bsr := &layers.BsrRecord{
		SysFN:      298,
		SubFN:      3,
		BufferSize: [4]uint8{0, 12, 0, 5},
	}
	grant := &layers.UlGrantRecord{
		Version:  layers.UlGrantVersion49,
		SysFN:    298,
		SubFN:    3,
		TbsIndex: 26,
		NumRb:    40,
	}
	meta := testMeta("2026-08-24 10:00:00.000000", 1787911200.0)

	pusch := &layers.PuschRecord{
		CurrentSfnSf: 2983,
		PuschTbSize:  500,
		NumOfRb:      25,
	}

	require.NoError(t, agg.Ingest(bsr, meta))
	require.NoError(t, agg.Ingest(grant, meta))
	require.NoError(t, agg.Ingest(pusch, meta))
	assert.Equal(t, 1, agg.Pending())

	require.NoError(t, agg.Flush())
	require.Len(t, collector.Rows, 1)

	row := collector.Rows[0]
	assert.Equal(t, uint16(2983), row.Identity)
	// Every field set survives the merge: each later record fills only
	// its own columns and never resets another logcode's to absent.
	assert.Equal(t, [4]string{"0", "12", "0", "5"}, row.Lcg)
	assert.Equal(t, "40", row.NumRb)
	assert.Equal(t, "TBS_Index_26", row.TbsIndex)
	assert.Equal(t, "500", row.PuschTbSize)
	assert.Equal(t, "25", row.PuschNumRb)
	assert.InDelta(t, 5.0, row.LatencyMs, 1e-3)
}

func TestAggregatorSeparatesKeys(t *testing.T) {
	collector := NewCollector()
	agg := NewAggregator(collector, clock.NewCorrelator(), 100)

	meta := testMeta("2026-08-24 10:00:00.000000", 1787911200.0)
	require.NoError(t, agg.Ingest(&layers.BsrRecord{SysFN: 10, SubFN: 1}, meta))
	require.NoError(t, agg.Ingest(&layers.BsrRecord{SysFN: 10, SubFN: 2}, meta))
	// Same identity, different coarse timestamp.
	later := testMeta("2026-08-24 10:00:00.250000", 1787911200.25)
	require.NoError(t, agg.Ingest(&layers.BsrRecord{SysFN: 10, SubFN: 1}, later))

	assert.Equal(t, 3, agg.Pending())
}

func TestAggregatorFlushOrder(t *testing.T) {
	collector := NewCollector()
	agg := NewAggregator(collector, clock.NewCorrelator(), 100)

	early := testMeta("2026-08-24 10:00:00.000000", 1787911200.0)
	late := testMeta("2026-08-24 10:00:00.500000", 1787911200.5)

	require.NoError(t, agg.Ingest(&layers.BsrRecord{SysFN: 20, SubFN: 0}, late))
	require.NoError(t, agg.Ingest(&layers.BsrRecord{SysFN: 30, SubFN: 0}, early))
	require.NoError(t, agg.Ingest(&layers.BsrRecord{SysFN: 10, SubFN: 0}, early))
	require.NoError(t, agg.Flush())

	require.Len(t, collector.Rows, 3)
	assert.Equal(t, uint16(100), collector.Rows[0].Identity)
	assert.Equal(t, uint16(300), collector.Rows[1].Identity)
	assert.Equal(t, uint16(200), collector.Rows[2].Identity)
}

func TestAggregatorThresholdFlush(t *testing.T) {
	collector := NewCollector()
	agg := NewAggregator(collector, clock.NewCorrelator(), 2)

	meta := testMeta("2026-08-24 10:00:00.000000", 1787911200.0)
	require.NoError(t, agg.Ingest(&layers.BsrRecord{SysFN: 1, SubFN: 0}, meta))
	require.NoError(t, agg.Ingest(&layers.BsrRecord{SysFN: 2, SubFN: 0}, meta))
	assert.Empty(t, collector.Rows)

	// Third distinct key pushes the buffer over the threshold.
	require.NoError(t, agg.Ingest(&layers.BsrRecord{SysFN: 3, SubFN: 0}, meta))
	assert.Len(t, collector.Rows, 3)
	assert.Equal(t, 0, agg.Pending())
	assert.Equal(t, uint64(3), agg.Flushed())
}

func TestAggregatorPuschRow(t *testing.T) {
	collector := NewCollector()
	agg := NewAggregator(collector, clock.NewCorrelator(), 100)

	pusch := &layers.PuschRecord{
		CurrentSfnSf: 0x12A5,
		RedundVer:    2,
		PuschTbSize:  500,
		NumOfRb:      25,
	}
	meta := testMeta("2026-08-24 10:00:01.000000", 1787911201.0)
	require.NoError(t, agg.Ingest(pusch, meta))
	require.NoError(t, agg.Flush())

	require.Len(t, collector.Rows, 1)
	row := collector.Rows[0]
	assert.Equal(t, uint16(0x12A5), row.Identity)
	assert.Equal(t, "500", row.PuschTbSize)
	assert.Equal(t, "25", row.PuschNumRb)
	assert.Equal(t, "2", row.PuschRedund)
	// MAC columns stay absent for a PHY-only event.
	assert.Equal(t, [4]string{Absent, Absent, Absent, Absent}, row.Lcg)
	assert.Equal(t, Absent, row.NumRb)
}
