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
	"sort"
	"strconv"
	"sync"

	"github.com/QiangWu769/ltediag/pkg/clock"
	"github.com/QiangWu769/ltediag/pkg/layers"
	"github.com/QiangWu769/ltediag/pkg/log"
	"github.com/QiangWu769/ltediag/pkg/metrics"
)

// Absent marks an output field no decoded record supplied. Distinct from
// "0" so a missing grant is never confused with a zero-block grant.
const Absent = "-"

// Key identifies one output row: the coarse hardware timestamp plus the
// radio frame identity of the event.
type Key struct {
	Readable string
	Identity uint16
}

// Row is the accumulator for one logical event. Records from different
// logcodes that share a Key each fill their own columns.
type Row struct {
	UnixTs     float64
	BridgeTs   float64
	RecvTs     float64
	CellularTs float64
	Readable   string
	SysFN      uint16
	SubFN      uint8
	Identity   uint16

	Lcg         [4]string
	NumRb       string
	TbsIndex    string
	PuschTbSize string
	PuschNumRb  string
	PuschRedund string

	LatencyMs float64
}

// Meta carries the envelope-level context shared by every record decoded
// from one DIAG message.
type Meta struct {
	UnixTs   float64
	Readable string
	BridgeTs float64
	RecvTs   float64
}

// Sink accepts ordered, flushed rows.
type Sink interface {
	WriteRows(rows []*Row) error
}

// Aggregator merges decoded records into per-event rows and flushes them
// in batches. Ingest runs on the reader goroutine; Flush may also be
// called from the API server, so the row buffer is guarded.
type Aggregator struct {
	mu         sync.Mutex
	rows       map[Key]*Row
	sink       Sink
	correlator *clock.Correlator
	threshold  int
	flushed    uint64
}

func NewAggregator(sink Sink, correlator *clock.Correlator, threshold int) *Aggregator {
	return &Aggregator{
		rows:       make(map[Key]*Row),
		sink:       sink,
		correlator: correlator,
		threshold:  threshold,
	}
}

// Pending returns the number of buffered rows.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.rows)
}

// Flushed returns the total number of rows written to the sink.
func (a *Aggregator) Flushed() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.flushed
}

// Ingest merges one decoded record into its row, creating the row on
// first sight. The buffer is flushed once it grows past the threshold.
func (a *Aggregator) Ingest(rec layers.Record, meta Meta) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	sysfn, subfn := frameCounters(rec)
	key := Key{Readable: meta.Readable, Identity: rec.FrameIdentity()}

	row, ok := a.rows[key]
	if !ok {
		row = &Row{
			Readable:    meta.Readable,
			SysFN:       sysfn,
			SubFN:       subfn,
			Identity:    key.Identity,
			NumRb:       Absent,
			TbsIndex:    Absent,
			PuschTbSize: Absent,
			PuschNumRb:  Absent,
			PuschRedund: Absent,
		}
		for i := range row.Lcg {
			row.Lcg[i] = Absent
		}
		row.CellularTs = a.correlator.CellularPrecise(sysfn, subfn, meta.RecvTs)
		a.rows[key] = row
	}

	row.UnixTs = meta.UnixTs
	row.BridgeTs = meta.BridgeTs
	row.RecvTs = meta.RecvTs
	if meta.UnixTs > 0 {
		row.LatencyMs = (meta.BridgeTs - meta.UnixTs) * 1000
	}

	switch r := rec.(type) {
	case *layers.BsrRecord:
		for i, size := range r.BufferSize {
			row.Lcg[i] = strconv.Itoa(int(size))
		}
	case *layers.UlGrantRecord:
		row.NumRb = strconv.Itoa(int(r.NumRb))
		row.TbsIndex = r.TbsString()
	case *layers.PuschRecord:
		row.PuschTbSize = strconv.Itoa(int(r.PuschTbSize))
		row.PuschNumRb = strconv.Itoa(int(r.NumOfRb))
		row.PuschRedund = strconv.Itoa(int(r.RedundVer))
	}

	metrics.Default.PendingRows.Set(float64(len(a.rows)))
	if len(a.rows) > a.threshold {
		return a.flushLocked()
	}
	return nil
}

// Flush writes every buffered row to the sink in timestamp-then-identity
// order and clears the buffer. Called automatically at the threshold and
// always on shutdown.
func (a *Aggregator) Flush() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.flushLocked()
}

func (a *Aggregator) flushLocked() error {
	if len(a.rows) == 0 {
		return nil
	}

	rows := make([]*Row, 0, len(a.rows))
	for _, row := range a.rows {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Readable != rows[j].Readable {
			return rows[i].Readable < rows[j].Readable
		}
		return rows[i].Identity < rows[j].Identity
	})

	if err := a.sink.WriteRows(rows); err != nil {
		return err
	}
	log.Debug("Flushed rows: %d", len(rows))
	a.flushed += uint64(len(rows))
	metrics.Default.RowsFlushed.Add(float64(len(rows)))

	a.rows = make(map[Key]*Row)
	metrics.Default.PendingRows.Set(0)
	return nil
}

// frameCounters recovers SysFN/SubFN for the cellular-precise clock. PHY
// records carry them packed into one SFN/SF word.
func frameCounters(rec layers.Record) (uint16, uint8) {
	switch r := rec.(type) {
	case *layers.BsrRecord:
		return r.SysFN, r.SubFN
	case *layers.UlGrantRecord:
		return r.SysFN, r.SubFN
	case *layers.PuschRecord:
		return r.CurrentSfnSf >> 4, uint8(r.CurrentSfnSf & 0x0F)
	default:
		return 0, 0
	}
}
