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
	"encoding/binary"
	"math"
	"testing"

	"github.com/google/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QiangWu769/ltediag/pkg/clock"
	"github.com/QiangWu769/ltediag/pkg/hdlc"
	"github.com/QiangWu769/ltediag/pkg/layers"
)

// pipeline mirrors the session's per-chunk path without the socket:
// bridge timestamp strip, reassembly, envelope decode, registry dispatch
// and aggregation.
type pipeline struct {
	reassembler *hdlc.Reassembler
	registry    *layers.Registry
	aggregator  *Aggregator
	bridgeTs    float64
}

func newPipeline(sink Sink) *pipeline {
	return &pipeline{
		reassembler: hdlc.NewReassembler(),
		registry:    layers.NewRegistry(),
		aggregator:  NewAggregator(sink, clock.NewCorrelator(), 100),
	}
}

func (p *pipeline) process(t *testing.T, chunk []byte, recvTs float64) {
	if !p.reassembler.Pending() && len(chunk) >= 8 {
		ts := math.Float64frombits(binary.LittleEndian.Uint64(chunk[:8]))
		if ts > minBridgeTs && ts < maxBridgeTs {
			p.bridgeTs = ts
			chunk = chunk[8:]
		}
	}
	p.reassembler.Feed(chunk)
	for _, frame := range p.reassembler.Frames() {
		packet := gopacket.NewPacket(frame, layers.DiagLayerType, gopacket.Default)
		layer := packet.Layer(layers.DiagLayerType)
		require.NotNil(t, layer)
		diag := layer.(*layers.DiagLayer)

		meta := Meta{
			UnixTs:   clock.HwToUnix(diag.HwTimestamp),
			Readable: clock.HwToReadable(diag.HwTimestamp),
			BridgeTs: p.bridgeTs,
			RecvTs:   recvTs,
		}
		for _, rec := range p.registry.Decode(diag.Logcode, diag.MsgPayload) {
			require.NoError(t, p.aggregator.Ingest(rec, meta))
		}
	}
}

func frameEnvelope(t *testing.T, logcode uint16, hwTimestamp uint64, payload []byte) []byte {
	diag := &layers.DiagLayer{
		Logcode:     logcode,
		HwTimestamp: hwTimestamp,
		MsgPayload:  payload,
	}
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, diag.SerializeTo(buf, gopacket.SerializeOptions{}))
	return hdlc.Encode(buf.Bytes())
}

func bsrTestPayload() []byte {
	payload := []byte{1, 0, 0, 0, 0, 0, 0, 0, 1}
	sample := make([]byte, 14)
	binary.LittleEndian.PutUint16(sample[4:6], 298<<4) // sysfn 298, subfn 0
	binary.LittleEndian.PutUint16(sample[6:8], 100)
	sample[13] = 2
	payload = append(payload, sample...)
	return append(payload, 0x1D, 0x85) // short BSR, LCG 2 size 5
}

func ulGrantV49TestPayload() []byte {
	payload := []byte{49, 0x00, 0x40, 0x00}
	payload = append(payload, 0x2A, 0x41, 0x00, 0x00) // sysfn 298, subfn 0
	return append(payload,
		0xE8, 0x80, 0x80, 0x6B, 0x03, 0x18, 0xA0, 0x20,
		0x4B, 0x25, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00)
}

func puschTestPayload() []byte {
	payload := make([]byte, 8)
	payload[0] = 161
	payload[2] = 1 << 1
	rec := make([]byte, 100)
	binary.LittleEndian.PutUint16(rec[0:2], 0x12A5) // sysfn 298, subfn 5
	binary.LittleEndian.PutUint16(rec[8:10], 500)
	rec[11] = 25
	return append(payload, rec...)
}

func TestPipelineEndToEnd(t *testing.T) {
	// The modem hardware clock at some instant in 2026.
	const hwTicks = uint64(1470000000 * 52428800)

	var stream []byte
	bridgeTs := 1787911200.125
	header := make([]byte, 8)
	binary.LittleEndian.PutUint64(header, math.Float64bits(bridgeTs))
	stream = append(stream, header...)
	stream = append(stream, frameEnvelope(t, layers.LogcodeBsr, hwTicks, bsrTestPayload())...)
	stream = append(stream, frameEnvelope(t, layers.LogcodeUlGrant, hwTicks, ulGrantV49TestPayload())...)
	stream = append(stream, frameEnvelope(t, layers.LogcodePusch, hwTicks, puschTestPayload())...)

	// Split at an arbitrary byte boundary inside the second frame.
	split := len(stream)/2 + 3
	collector := NewCollector()
	p := newPipeline(collector)
	p.process(t, stream[:split], 1787911200.130)
	p.process(t, stream[split:], 1787911200.131)

	require.NoError(t, p.aggregator.Flush())
	require.Len(t, collector.Rows, 2)

	// BSR and UL grant share sysfn 298 subfn 0 and merge into one row.
	merged := collector.Rows[0]
	assert.Equal(t, uint16(2980), merged.Identity)
	assert.Equal(t, "5", merged.Lcg[2])
	assert.Equal(t, "40", merged.NumRb)
	assert.Equal(t, "TBS_Index_26", merged.TbsIndex)
	assert.Equal(t, bridgeTs, merged.BridgeTs)

	pusch := collector.Rows[1]
	assert.Equal(t, uint16(0x12A5), pusch.Identity)
	assert.Equal(t, "500", pusch.PuschTbSize)
	assert.Equal(t, "25", pusch.PuschNumRb)

	// Cellular-precise timestamps never run backwards.
	assert.GreaterOrEqual(t, pusch.CellularTs, merged.CellularTs)
	assert.InDelta(t, merged.CellularTs+0.005, pusch.CellularTs, 1e-9)
}

func testSession(sink Sink) *Session {
	correlator := clock.NewCorrelator()
	return &Session{
		Id:          "bridge_test",
		reassembler: hdlc.NewReassembler(),
		registry:    layers.NewRegistry(),
		correlator:  correlator,
		aggregator:  NewAggregator(sink, correlator, 100),
	}
}

// The API server snapshots the counters from its own goroutines while the
// reader keeps decoding; run with -race.
func TestSessionStatsConcurrentSnapshot(t *testing.T) {
	const hwTicks = uint64(1470000000 * 52428800)
	frame := frameEnvelope(t, layers.LogcodeBsr, hwTicks, bsrTestPayload())

	s := testSession(NewCollector())
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			s.Stats()
		}
	}()
	for i := 0; i < 200; i++ {
		s.process(frame, 1787911200.130)
	}
	<-done

	stats := s.Stats()
	assert.Equal(t, uint64(200), stats.FramesDecoded)
	assert.Equal(t, uint64(200), stats.Envelopes)
	assert.Equal(t, uint64(200), stats.RecordsDecoded)
}
