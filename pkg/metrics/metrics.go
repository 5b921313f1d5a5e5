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

// Package metrics exposes pipeline counters on the default Prometheus
// registry, served by the session API under /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	FramesDecoded       prometheus.Counter
	FrameDrops          prometheus.Counter
	Envelopes           prometheus.Counter
	Records             *prometheus.CounterVec
	UnsupportedVersions prometheus.Counter
	RowsFlushed         prometheus.Counter
	CommandErrors       prometheus.Counter
	PendingRows         prometheus.Gauge
}

// Default is the process-wide instance. promauto registers on the default
// registry, so New must run exactly once.
var Default = New()

func New() *Metrics {
	return &Metrics{
		FramesDecoded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ltediag_frames_decoded_total",
			Help: "HDLC frames decoded from the bridge stream",
		}),
		FrameDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ltediag_frame_drops_total",
			Help: "Stream segments dropped for checksum or framing errors",
		}),
		Envelopes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ltediag_envelopes_total",
			Help: "DIAG envelopes parsed",
		}),
		Records: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ltediag_records_total",
			Help: "Decoded records by logcode",
		}, []string{"logcode"}),
		UnsupportedVersions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ltediag_unsupported_versions_total",
			Help: "Messages skipped for an unregistered version byte",
		}),
		RowsFlushed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ltediag_rows_flushed_total",
			Help: "Aggregated rows written to the sink",
		}),
		CommandErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ltediag_command_errors_total",
			Help: "Failed command writes on the bridge socket",
		}),
		PendingRows: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ltediag_pending_rows",
			Help: "Rows currently buffered in the aggregator",
		}),
	}
}
