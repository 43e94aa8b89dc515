package relay

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/IBM/sarama"
)

// Dispatcher：本地有界队列 + worker 异步发送 + 有限重试。
// 中继是尽力而为的展示通道：
// - Publish 只入队，绝不阻塞广播主链路，队列满直接丢弃并打日志
// - Kafka 短暂抖动靠队列吸收，后台退避补发
// - 重试耗尽就丢事件——对端观看者错过的状态会在重连时整体拉平
type Dispatcher struct {
	producer sarama.SyncProducer
	topic    string

	queue chan DraftEvent
	sem   *Semaphore

	workers     int
	maxRetry    int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

type DispatcherOptions struct {
	QueueSize   int
	Workers     int
	MaxRetry    int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func NewDispatcher(producer sarama.SyncProducer, topic string, sem *Semaphore, opt DispatcherOptions) *Dispatcher {
	if opt.QueueSize <= 0 {
		opt.QueueSize = 10_000
	}
	if opt.Workers <= 0 {
		opt.Workers = 4
	}
	d := &Dispatcher{
		producer:    producer,
		topic:       topic,
		queue:       make(chan DraftEvent, opt.QueueSize),
		sem:         sem,
		workers:     opt.Workers,
		maxRetry:    opt.MaxRetry,
		baseBackoff: opt.BaseBackoff,
		maxBackoff:  opt.MaxBackoff,
	}
	d.start()
	return d
}

// Publish 把事件投入本地队列，立即返回。
// 失败只打日志，广播方的成功不依赖中继。
func (d *Dispatcher) Publish(draftID, eventType string, payload any) {
	evt := DraftEvent{
		EventType: eventType,
		DraftID:   draftID,
		Payload:   payload,
		EmittedAt: time.Now(),
	}
	select {
	case d.queue <- evt:
	default:
		log.Printf("relay queue full, drop event draft=%s type=%s", draftID, eventType)
	}
}

func (d *Dispatcher) start() {
	for i := 0; i < d.workers; i++ {
		go d.workerLoop(i)
	}
}

// Close 停止接收并让 worker 把队列清空后退出。
func (d *Dispatcher) Close() {
	close(d.queue)
}

func (d *Dispatcher) workerLoop(workerID int) {
	for evt := range d.queue {
		d.sendWithRetry(workerID, evt)
	}
}

func (d *Dispatcher) sendWithRetry(workerID int, evt DraftEvent) {
	for attempt := 0; attempt <= d.maxRetry; attempt++ {
		if d.sem != nil {
			// worker 可以一直等，不在主链路上
			_ = d.sem.Acquire(context.Background())
		}

		err := d.sendOnce(evt)

		if d.sem != nil {
			_ = d.sem.Release()
		}

		if err == nil {
			return
		}
		if attempt == d.maxRetry {
			log.Printf("relay send failed, drop event draft=%s type=%s worker=%d err=%v",
				evt.DraftID, evt.EventType, workerID, err)
			return
		}

		backoff := d.baseBackoff * time.Duration(1<<attempt)
		if backoff > d.maxBackoff {
			backoff = d.maxBackoff
		}
		time.Sleep(backoff)
	}
}

func (d *Dispatcher) sendOnce(evt DraftEvent) error {
	if d.producer == nil || d.topic == "" {
		return nil
	}
	b, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: d.topic,
		Key:   sarama.StringEncoder(evt.DraftID),
		Value: sarama.ByteEncoder(b),
	}
	_, _, err = d.producer.SendMessage(msg)
	return err
}
