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
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/QiangWu769/ltediag/pkg/log"
)

var reportHeader = []string{
	"RAN_Event_Unix_Timestamp", "Bridge_Read_Timestamp", "Local_Recv_Timestamp",
	"Cellular_Precise_Timestamp", "SubFN", "SysFN",
	"LCG_0", "LCG_1", "LCG_2", "LCG_3", "Num_RBs", "TBS_Index",
	"PUSCH_TB_Size", "PUSCH_Num_RBs", "PUSCH_Redund_Ver",
	"Pipeline_Latency_ms",
}

// ReportWriter appends flushed rows to a tab-separated report file. The
// header is written once per file.
type ReportWriter struct {
	mu            sync.Mutex
	path          string
	headerWritten bool
}

func NewReportWriter(path string) *ReportWriter {
	return &ReportWriter{path: path}
}

func (w *ReportWriter) WriteRows(rows []*Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if !w.headerWritten {
		info, err := f.Stat()
		if err != nil {
			return err
		}
		if info.Size() == 0 {
			if _, err := f.WriteString(strings.Join(reportHeader, "\t") + "\n"); err != nil {
				return err
			}
		}
		w.headerWritten = true
	}

	for _, row := range rows {
		line := fmt.Sprintf("%.6f\t%.6f\t%.6f\t%.6f\t%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%.3f\n",
			row.UnixTs, row.BridgeTs, row.RecvTs, row.CellularTs,
			row.SubFN, row.SysFN,
			row.Lcg[0], row.Lcg[1], row.Lcg[2], row.Lcg[3],
			row.NumRb, row.TbsIndex,
			row.PuschTbSize, row.PuschNumRb, row.PuschRedund,
			row.LatencyMs)
		if _, err := f.WriteString(line); err != nil {
			return err
		}
	}
	return nil
}

// WriteDeviceTimestamp prepends a device timestamp comment line to the
// report file, keeping existing content.
func (w *ReportWriter) WriteDeviceTimestamp(deviceTs uint64, readable string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	existing, err := os.ReadFile(w.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	comment := fmt.Sprintf("# Device timestamp: %d (%s)\n", deviceTs, readable)
	return os.WriteFile(w.path, append([]byte(comment), existing...), 0644)
}

// Persist rotates the current report into dir under prefix, leaving a
// fresh empty report behind.
func (w *ReportWriter) Persist(dir, prefix string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := os.Stat(w.path); err != nil {
		return "", err
	}
	if dir == "" {
		dir = filepath.Dir(w.path)
	}
	if prefix == "" {
		prefix = "diag"
	}
	target := filepath.Join(dir, fmt.Sprintf("%s_%s.tsv", prefix, time.Now().Format("20060102_150405")))
	if err := os.Rename(w.path, target); err != nil {
		return "", err
	}
	w.headerWritten = false
	log.Info("Persisted report: %s", target)
	return target, nil
}

// Collector buffers rows in memory. Used by tests and as a tee target.
type Collector struct {
	mu   sync.Mutex
	Rows []*Row
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) WriteRows(rows []*Row) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Rows = append(c.Rows, rows...)
	return nil
}

// MultiSink fans rows out to several sinks; the first error wins but all
// sinks still see the batch.
type MultiSink []Sink

func (m MultiSink) WriteRows(rows []*Row) error {
	var first error
	for _, sink := range m {
		if err := sink.WriteRows(rows); err != nil && first == nil {
			first = err
		}
	}
	return first
}
