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
	"context"
	"fmt"

	"go.etcd.io/bbolt"
	"sigs.k8s.io/yaml"

	"github.com/QiangWu769/ltediag/pkg/config"
	"github.com/QiangWu769/ltediag/pkg/log"
)

const (
	BucketPrefix = "session_"
	StatsKey     = "stats"
	BaselineKey  = "clock_baseline"
)

// Stats is the persisted snapshot of one decoding session.
type Stats struct {
	StartedAt      string  `json:"startedAt"`
	DeviceTs       uint64  `json:"deviceTs"`
	FramesDecoded  uint64  `json:"framesDecoded"`
	FrameDrops     uint64  `json:"frameDrops"`
	Envelopes      uint64  `json:"envelopes"`
	RecordsDecoded uint64  `json:"recordsDecoded"`
	RowsWritten    uint64  `json:"rowsWritten"`
	LastBridgeTs   float64 `json:"lastBridgeTs"`
}

// Baseline is the persisted clock anchor, so a restarted session keeps
// emitting a consistent cellular-precise timeline.
type Baseline struct {
	Ts float64 `json:"ts"`
	Fn int     `json:"fn"`
}

// State keeps per-session data in a bolt database.
type State struct {
	context.Context
	DB *bbolt.DB
}

func NewState(ctx context.Context, cfg *config.Config) (*State, error) {
	db, err := bbolt.Open(cfg.SessionDBPath(), 0600, nil)
	if err != nil {
		return nil, err
	}
	return &State{
		Context: ctx,
		DB:      db,
	}, nil
}

func (s *State) Close() {
	s.DB.Close()
}

func BucketName(sessionId string) string {
	return fmt.Sprintf("%s%s", BucketPrefix, sessionId)
}

// CreateBucket ...
func (s *State) CreateBucket(sessionId string) error {
	return s.DB.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketName(sessionId)))
		return err
	})
}

func (s *State) put(sessionId, key string, value interface{}) error {
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketName(sessionId)))
		if b == nil {
			return ErrBucketNotFound{Bucket: BucketName(sessionId)}
		}
		data, err := yaml.Marshal(value)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
}

func (s *State) get(sessionId, key string, value interface{}) (bool, error) {
	found := false
	err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketName(sessionId)))
		if b == nil {
			return ErrBucketNotFound{Bucket: BucketName(sessionId)}
		}
		data := b.Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return yaml.Unmarshal(data, value)
	})
	return found, err
}

// SetStats ...
func (s *State) SetStats(sessionId string, stats *Stats) error {
	log.Debug("Persisting session stats: session: %s rows: %d", sessionId, stats.RowsWritten)
	return s.put(sessionId, StatsKey, stats)
}

// GetStats ...
func (s *State) GetStats(sessionId string) (*Stats, error) {
	stats := &Stats{}
	found, err := s.get(sessionId, StatsKey, stats)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return stats, nil
}

// SetBaseline ...
func (s *State) SetBaseline(sessionId string, baseline *Baseline) error {
	return s.put(sessionId, BaselineKey, baseline)
}

// GetBaseline ...
func (s *State) GetBaseline(sessionId string) (*Baseline, error) {
	baseline := &Baseline{}
	found, err := s.get(sessionId, BaselineKey, baseline)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return baseline, nil
}
