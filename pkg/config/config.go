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

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// KafkaConfig enables the optional Kafka row sink when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type Config struct {
	BridgeAddress string `yaml:"bridge_address"`
	BridgePort    int    `yaml:"bridge_port"`

	// Logcodes the bridge is asked to enable on connect.
	Logcodes []uint16 `yaml:"logcodes"`

	ReportPath     string `yaml:"report_path"`
	FlushThreshold int    `yaml:"flush_threshold"`

	DrainIntervalMs int `yaml:"drain_interval_ms"`
	ReadTimeoutMs   int `yaml:"read_timeout_ms"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file,omitempty"`

	Kafka *KafkaConfig `yaml:"kafka,omitempty"`

	filepath string
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(&c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filepath)
	if err = os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(c.filepath, data, 0644)
}

// WithFile points the config at an alternate file location.
func (c *Config) WithFile(path string) *Config {
	c.filepath = path
	return c
}

// Load reads the config file if it exists; a missing file leaves the
// defaults in place.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func configHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir)
}

func DefaultConfigPath() string {
	return filepath.Join(configHome(), ConfigFile)
}

// SessionDBPath is the location of the bbolt session statistics store.
func (c *Config) SessionDBPath() string {
	return filepath.Join(configHome(), SessionDB)
}

func NewDefaultConfig() *Config {
	return &Config{
		BridgeAddress:   DefaultBridgeAddress,
		BridgePort:      DefaultBridgePort,
		Logcodes:        append([]uint16{}, DefaultLogcodes...),
		ReportPath:      DefaultReportPath,
		FlushThreshold:  DefaultFlushThreshold,
		DrainIntervalMs: DefaultDrainIntervalMs,
		ReadTimeoutMs:   DefaultReadTimeoutMs,
		LogLevel:        DefaultLogLevel,
		filepath:        DefaultConfigPath(),
	}
}
