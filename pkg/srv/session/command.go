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
	"encoding/binary"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/QiangWu769/ltediag/pkg/hdlc"
	"github.com/QiangWu769/ltediag/pkg/log"
	"github.com/QiangWu769/ltediag/pkg/metrics"
)

// DrainCommand asks the bridge to push its buffered log data immediately.
var DrainCommand = []byte{0x24, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

// FinalMessage closes the logcode configuration exchange.
var FinalMessage = []byte{0x60, 0x00, 0x12, 0x6a, 0x7e}

// initMessages is the modem handshake sequence, pre-framed.
var initMessages = [][]byte{
	{0x1d, 0x1c, 0x3b, 0x7e},
	{0x00, 0x78, 0xf0, 0x7e},
	{0x7c, 0x93, 0x49, 0x7e},
	{0x1c, 0x95, 0x2a, 0x7e},
	{0x0c, 0x14, 0x3a, 0x7e},
	{0x63, 0xe5, 0xa1, 0x7e},
	{0x4b, 0x0f, 0x00, 0x00, 0xbb, 0x60, 0x7e},
	{0x4b, 0x09, 0x00, 0x00, 0x62, 0xb6, 0x7e},
	{0x4b, 0x08, 0x00, 0x00, 0xbe, 0xec, 0x7e},
	{0x4b, 0x08, 0x01, 0x00, 0x66, 0xf5, 0x7e},
	{0x4b, 0x04, 0x00, 0x00, 0x1d, 0x49, 0x7e},
	{0x4b, 0x04, 0x0f, 0x00, 0xd5, 0xca, 0x7e},
	{0x73, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xda, 0x81, 0x7e},
}

// LogcodeCommand builds the HDLC-framed command enabling the given
// logcodes: a 16-byte header followed by a bitmask with one bit per
// enabled item id.
func LogcodeCommand(logcodes []uint16) []byte {
	if len(logcodes) == 0 {
		return nil
	}

	maxId := 0
	for _, code := range logcodes {
		if id := int(code & 0x0FFF); id > maxId {
			maxId = id
		}
	}

	mask := make([]byte, (maxId+8)/8)
	for _, code := range logcodes {
		id := int(code & 0x0FFF)
		mask[id/8] |= 1 << (id % 8)
	}

	cmd := make([]byte, 16, 16+len(mask))
	binary.LittleEndian.PutUint32(cmd[0:4], 0x73)
	binary.LittleEndian.PutUint32(cmd[4:8], 3)
	binary.LittleEndian.PutUint32(cmd[8:12], 0x0B)
	binary.LittleEndian.PutUint32(cmd[12:16], uint32(maxId+1))
	cmd = append(cmd, mask...)
	return hdlc.Encode(cmd)
}

// CommandChannel owns all writes on the bridge socket. The reader loop
// shares the same net.Conn; sends are serialized under a mutex held only
// for the write syscall. A broken pipe sets the fatal flag so the session
// shuts down instead of reading a half-closed socket.
type CommandChannel struct {
	conn  net.Conn
	mu    sync.Mutex
	fatal atomic.Bool
}

func NewCommandChannel(conn net.Conn) *CommandChannel {
	return &CommandChannel{conn: conn}
}

// Fatal reports whether a send hit a broken pipe.
func (c *CommandChannel) Fatal() bool {
	return c.fatal.Load()
}

// Send writes one command to the bridge.
func (c *CommandChannel) Send(cmd []byte) error {
	c.mu.Lock()
	_, err := c.conn.Write(cmd)
	c.mu.Unlock()

	if err != nil {
		metrics.Default.CommandErrors.Inc()
		if errors.Is(err, syscall.EPIPE) || errors.Is(err, net.ErrClosed) {
			c.fatal.Store(true)
			return ErrBrokenPipe{Err: err}
		}
	}
	return err
}

// Initialize runs the modem handshake and enables the configured
// logcodes. A short pause between messages matches the pace the bridge
// expects.
func (c *CommandChannel) Initialize(logcodes []uint16) error {
	log.Info("Initializing bridge session: logcodes: %d", len(logcodes))
	for _, msg := range initMessages {
		if err := c.Send(msg); err != nil {
			return err
		}
		time.Sleep(100 * time.Millisecond)
	}

	if cmd := LogcodeCommand(logcodes); cmd != nil {
		if err := c.Send(cmd); err != nil {
			return err
		}
		if err := c.Send(FinalMessage); err != nil {
			return err
		}
	}
	return nil
}

// RunDrain periodically sends the drain command until the context ends
// or a send turns fatal.
func (c *CommandChannel) RunDrain(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Send(DrainCommand); err != nil {
				log.Error("Drain command failed: %s", err)
				if c.Fatal() {
					return
				}
			}
		}
	}
}
