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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func testState(t *testing.T) *State {
	db, err := bbolt.Open(filepath.Join(t.TempDir(), "session.db"), 0600, nil)
	require.NoError(t, err)
	s := &State{Context: context.Background(), DB: db}
	t.Cleanup(s.Close)
	return s
}

func TestStateStatsRoundTrip(t *testing.T) {
	s := testState(t)
	require.NoError(t, s.CreateBucket("bridge_1"))

	stats := &Stats{
		StartedAt:      "2026-08-24T10:00:00Z",
		FramesDecoded:  42,
		Envelopes:      40,
		RecordsDecoded: 38,
		RowsWritten:    20,
	}
	require.NoError(t, s.SetStats("bridge_1", stats))

	got, err := s.GetStats("bridge_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, stats, got)
}

func TestStateBaselineRoundTrip(t *testing.T) {
	s := testState(t)
	require.NoError(t, s.CreateBucket("bridge_1"))

	// Nothing persisted yet.
	got, err := s.GetBaseline("bridge_1")
	require.NoError(t, err)
	assert.Nil(t, got)

	baseline := &Baseline{Ts: 1787911200.007, Fn: 2980}
	require.NoError(t, s.SetBaseline("bridge_1", baseline))

	got, err = s.GetBaseline("bridge_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, baseline, got)
}

func TestStateMissingBucket(t *testing.T) {
	s := testState(t)
	_, err := s.GetStats("unknown")
	assert.ErrorIs(t, err, ErrBucketNotFound{Bucket: BucketName("unknown")})
}
