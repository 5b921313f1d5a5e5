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
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/QiangWu769/ltediag/pkg/log"
)

const kafkaWriteTimeout = 10 * time.Second

// KafkaSink publishes flushed rows as JSON messages, one per row, keyed
// by the frame identity so rows of one event land in one partition.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
	}
}

func (s *KafkaSink) WriteRows(rows []*Row) error {
	msgs := make([]kafka.Message, 0, len(rows))
	for _, row := range rows {
		value, err := json.Marshal(row)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(fmt.Sprintf("%d", row.Identity)),
			Value: value,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), kafkaWriteTimeout)
	defer cancel()
	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		log.Error("Kafka write failed: %s", err)
		return err
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
