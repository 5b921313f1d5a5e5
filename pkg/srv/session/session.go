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

// Package session runs one bridge decoding session: a single reader
// goroutine owns the socket-read, reassemble, decode, correlate,
// aggregate pipeline while the command channel shares the socket for
// writes.
package session

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"net"
	"sync"
	"time"

	"github.com/google/gopacket"

	"github.com/QiangWu769/ltediag/pkg/clock"
	"github.com/QiangWu769/ltediag/pkg/config"
	"github.com/QiangWu769/ltediag/pkg/hdlc"
	"github.com/QiangWu769/ltediag/pkg/layers"
	"github.com/QiangWu769/ltediag/pkg/log"
	"github.com/QiangWu769/ltediag/pkg/metrics"
)

const (
	readBufferSize = 65536

	// Plausible range for the bridge read timestamp, a Unix-seconds
	// double. Values outside it are frame data, not a batch header.
	minBridgeTs = 1.0e9
	maxBridgeTs = 4.0e9

	deviceTsResponseCode = 0x1D
)

// socketModeInit is the extra handshake the bridge expects when its
// welcome banner announces socket mode.
var socketModeInit = [][]byte{
	{0x28, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x40, 0x78, 0x7d, 0x01},
	{0x29, 0x00, 0x00, 0x00, 0xff, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00},
	{0x07, 0x00, 0x00, 0x00, 0x05, 0x00, 0x00, 0x00, 0xff, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0xb6, 0x78, 0x00, 0x00},
	{0x23, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
}

// Session decodes one bridge connection end to end.
type Session struct {
	context.Context
	*config.Config

	Id string

	conn        net.Conn
	reassembler *hdlc.Reassembler
	registry    *layers.Registry
	correlator  *clock.Correlator
	aggregator  *Aggregator
	commands    *CommandChannel
	state       *State
	report      *ReportWriter

	// statsMu guards stats, lastBridgeTs and the reassembler counters:
	// the reader goroutine mutates them while the API server snapshots.
	statsMu      sync.Mutex
	stats        Stats
	lastBridgeTs float64
	deviceTsSeen bool
}

func NewSession(ctx context.Context, cfg *config.Config) (*Session, error) {
	report := NewReportWriter(cfg.ReportPath)

	var sink Sink = report
	if cfg.Kafka != nil {
		sink = MultiSink{report, NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)}
	}

	state, err := NewState(ctx, cfg)
	if err != nil {
		return nil, err
	}

	correlator := clock.NewCorrelator()
	s := &Session{
		Context:     ctx,
		Config:      cfg,
		Id:          fmt.Sprintf("%s_%d", cfg.BridgeAddress, cfg.BridgePort),
		reassembler: hdlc.NewReassembler(),
		registry:    layers.NewRegistry(),
		correlator:  correlator,
		aggregator:  NewAggregator(sink, correlator, cfg.FlushThreshold),
		state:       state,
		report:      report,
	}

	if err := state.CreateBucket(s.Id); err != nil {
		state.Close()
		return nil, err
	}
	if baseline, err := state.GetBaseline(s.Id); err == nil && baseline != nil {
		correlator.Restore(baseline.Ts, baseline.Fn)
		log.Info("Restored clock baseline: ts: %f fn: %d", baseline.Ts, baseline.Fn)
	}
	return s, nil
}

// Aggregator exposes the row buffer for the API server.
func (s *Session) Aggregator() *Aggregator {
	return s.aggregator
}

// Report exposes the report writer for the API server.
func (s *Session) Report() *ReportWriter {
	return s.report
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	s.statsMu.Lock()
	stats := s.stats
	stats.FrameDrops = s.reassembler.Drops
	s.statsMu.Unlock()
	stats.RowsWritten = s.aggregator.Flushed()
	return stats
}

// Run connects to the bridge, performs the handshake and decodes until
// the context ends or the connection is lost. The final flush always
// happens, whatever ended the session.
func (s *Session) Run() error {
	addr := fmt.Sprintf("%s:%d", s.BridgeAddress, s.BridgePort)
	log.Info("Connecting to bridge: %s", addr)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return ErrConnectionLost{Err: err}
	}
	s.conn = conn
	defer conn.Close()

	s.commands = NewCommandChannel(conn)
	s.statsMu.Lock()
	s.stats.StartedAt = time.Now().Format(time.RFC3339)
	s.statsMu.Unlock()

	if err := s.handshake(); err != nil {
		return err
	}

	drainCtx, cancelDrain := context.WithCancel(s.Context)
	defer cancelDrain()
	go s.commands.RunDrain(drainCtx, time.Duration(s.DrainIntervalMs)*time.Millisecond)

	defer s.shutdown()
	return s.readLoop()
}

// handshake consumes the welcome banner and runs the init sequence.
func (s *Session) handshake() error {
	banner := make([]byte, 1024)
	s.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := s.conn.Read(banner)
	if err == nil && n > 0 {
		log.Debug("Bridge banner: %d bytes", n)
		if bytes.Contains(banner[:n], []byte("Socket mode")) {
			log.Info("Bridge is in socket mode")
			for _, msg := range socketModeInit {
				if sendErr := s.commands.Send(msg); sendErr != nil {
					return sendErr
				}
				time.Sleep(100 * time.Millisecond)
			}
		}
	}
	return s.commands.Initialize(s.Logcodes)
}

func (s *Session) readLoop() error {
	buf := make([]byte, readBufferSize)
	timeout := time.Duration(s.ReadTimeoutMs) * time.Millisecond

	for {
		select {
		case <-s.Context.Done():
			return nil
		default:
		}
		if s.commands.Fatal() {
			return ErrConnectionLost{Err: fmt.Errorf("command channel reported broken pipe")}
		}

		s.conn.SetReadDeadline(time.Now().Add(timeout))
		n, err := s.conn.Read(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			return ErrConnectionLost{Err: err}
		}
		if n == 0 {
			continue
		}

		recvTs := float64(time.Now().UnixNano()) / 1e9
		s.process(buf[:n], recvTs)
	}
}

// process runs the pipeline for one socket read. The 8-byte bridge
// timestamp opens each logical send; it is only stripped when no partial
// frame is pending, so a timestamp-looking byte run inside a split frame
// is never eaten.
func (s *Session) process(chunk []byte, recvTs float64) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	if !s.reassembler.Pending() && len(chunk) >= 8 {
		ts := math.Float64frombits(binary.LittleEndian.Uint64(chunk[:8]))
		if ts > minBridgeTs && ts < maxBridgeTs {
			s.lastBridgeTs = ts
			s.stats.LastBridgeTs = ts
			chunk = chunk[8:]
		}
	}

	drops := s.reassembler.Drops
	s.reassembler.Feed(chunk)
	for _, frame := range s.reassembler.Frames() {
		s.stats.FramesDecoded++
		metrics.Default.FramesDecoded.Inc()
		s.handleFrame(frame, recvTs)
	}
	if d := s.reassembler.Drops - drops; d > 0 {
		metrics.Default.FrameDrops.Add(float64(d))
	}
}

func (s *Session) handleFrame(frame []byte, recvTs float64) {
	if !s.deviceTsSeen && len(frame) >= 9 && frame[0] == deviceTsResponseCode {
		deviceTs := binary.LittleEndian.Uint64(frame[1:9])
		s.deviceTsSeen = true
		s.stats.DeviceTs = deviceTs
		log.Info("Device timestamp: %d (%s)", deviceTs, clock.HwToReadable(deviceTs))
		if err := s.report.WriteDeviceTimestamp(deviceTs, clock.HwToReadable(deviceTs)); err != nil {
			log.Error("Failed to record device timestamp: %s", err)
		}
		return
	}

	packet := gopacket.NewPacket(frame, layers.DiagLayerType, gopacket.Default)
	diagLayer := packet.Layer(layers.DiagLayerType)
	if diagLayer == nil {
		// Non-DIAG frames are handshake responses and noise.
		log.Debug("Skipping non-DIAG frame: %d bytes", len(frame))
		return
	}
	diag := diagLayer.(*layers.DiagLayer)

	s.stats.Envelopes++
	metrics.Default.Envelopes.Inc()

	records := s.registry.Decode(diag.Logcode, diag.MsgPayload)
	if len(records) == 0 {
		return
	}

	meta := Meta{
		UnixTs:   clock.HwToUnix(diag.HwTimestamp),
		Readable: clock.HwToReadable(diag.HwTimestamp),
		BridgeTs: s.lastBridgeTs,
		RecvTs:   recvTs,
	}
	logcodeLabel := fmt.Sprintf("0x%04X", diag.Logcode)
	for _, rec := range records {
		s.stats.RecordsDecoded++
		metrics.Default.Records.WithLabelValues(logcodeLabel).Inc()
		if err := s.aggregator.Ingest(rec, meta); err != nil {
			log.Error("Failed to flush aggregated rows: %s", err)
		}
	}
}

// shutdown flushes buffered rows and persists the session snapshot.
// Buffered data must survive every exit path.
func (s *Session) shutdown() {
	if err := s.aggregator.Flush(); err != nil {
		log.Error("Final flush failed: %s", err)
	}

	if ts, fn, ok := s.correlator.Baseline(); ok {
		if err := s.state.SetBaseline(s.Id, &Baseline{Ts: ts, Fn: fn}); err != nil {
			log.Error("Failed to persist clock baseline: %s", err)
		}
	}
	stats := s.Stats()
	if err := s.state.SetStats(s.Id, &stats); err != nil {
		log.Error("Failed to persist session stats: %s", err)
	}
	s.state.Close()
	log.Info("Session finished: frames: %d envelopes: %d records: %d drops: %d",
		s.stats.FramesDecoded, s.stats.Envelopes, s.stats.RecordsDecoded, s.reassembler.Drops)
}
