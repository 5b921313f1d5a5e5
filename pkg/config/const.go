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

package config

const (
	ConfigDir  = ".ltediag"
	ConfigFile = "config"
	SessionDB  = "session.db"

	DefaultBridgeAddress   = "127.0.0.1"
	DefaultBridgePort      = 43555
	DefaultReportPath      = "diag_report.tsv"
	DefaultFlushThreshold  = 100
	DefaultDrainIntervalMs = 100
	DefaultReadTimeoutMs   = 1000
	DefaultLogLevel        = "info"
)

// DefaultLogcodes are the LTE MAC logcodes the decoder asks the bridge
// to enable: BSR, UL grant and PUSCH transmission reports.
var DefaultLogcodes = []uint16{0xB064, 0xB16C, 0xB139}
