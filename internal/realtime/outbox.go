package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RetryOutbox parks messages whose fan-out hit a storage failure on a redis
// stream so they are not permanently lost. A background worker drains the
// stream and re-attempts dispatch once membership storage recovers.
type RetryOutbox struct {
	rdb      *redis.Client
	stream   string
	group    string
	consumer string
	delay    time.Duration
	log      *slog.Logger
}

func NewRetryOutbox(log *slog.Logger, rdb *redis.Client, stream, group string, delay time.Duration) *RetryOutbox {
	if delay <= 0 {
		delay = 5 * time.Second
	}
	return &RetryOutbox{
		rdb:      rdb,
		stream:   stream,
		group:    group,
		consumer: group + "-0",
		delay:    delay,
		log:      log,
	}
}

func (o *RetryOutbox) Enqueue(ctx context.Context, msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return o.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: o.stream,
		Values: map[string]any{"message": raw},
	}).Err()
}

// Run consumes the stream until ctx is cancelled. Entries whose redelivery
// fails again stay pending and are claimed back on the next pass, with a
// delay between attempts so a down database is not hammered.
func (o *RetryOutbox) Run(ctx context.Context, redeliver func(context.Context, Message) error) error {
	if err := o.ensureGroup(ctx); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		streams, err := o.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    o.group,
			Consumer: o.consumer,
			Streams:  []string{o.stream, ">"},
			Count:    16,
			Block:    o.delay,
		}).Result()
		if err != nil {
			if err == redis.Nil {
				o.reclaim(ctx, redeliver)
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.log.ErrorContext(ctx, "outbox read failed", "stream", o.stream, "error", err)
			time.Sleep(o.delay)
			continue
		}

		for _, stream := range streams {
			for _, entry := range stream.Messages {
				o.process(ctx, entry, redeliver)
			}
		}
	}
}

func (o *RetryOutbox) ensureGroup(ctx context.Context) error {
	err := o.rdb.XGroupCreateMkStream(ctx, o.stream, o.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (o *RetryOutbox) process(ctx context.Context, entry redis.XMessage, redeliver func(context.Context, Message) error) {
	raw, ok := entry.Values["message"].(string)
	if !ok {
		// Malformed entry: ack it away, nothing can ever redeliver it.
		o.ack(ctx, entry.ID)
		return
	}

	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		o.log.ErrorContext(ctx, "outbox entry unreadable", "entry_id", entry.ID, "error", err)
		o.ack(ctx, entry.ID)
		return
	}

	if err := redeliver(ctx, msg); err != nil {
		// Leave the entry pending; reclaim picks it up after the delay.
		o.log.WarnContext(ctx, "redelivery failed, will retry",
			"message_id", msg.ID, "entry_id", entry.ID, "error", err)
		time.Sleep(o.delay)
		return
	}

	o.log.InfoContext(ctx, "redelivery succeeded", "message_id", msg.ID, "entry_id", entry.ID)
	o.ack(ctx, entry.ID)
}

// reclaim retries entries that were read but never acknowledged.
func (o *RetryOutbox) reclaim(ctx context.Context, redeliver func(context.Context, Message) error) {
	entries, _, err := o.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   o.stream,
		Group:    o.group,
		Consumer: o.consumer,
		MinIdle:  o.delay,
		Start:    "0",
		Count:    16,
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			o.log.ErrorContext(ctx, "outbox reclaim failed", "stream", o.stream, "error", err)
		}
		return
	}
	for _, entry := range entries {
		o.process(ctx, entry, redeliver)
	}
}

func (o *RetryOutbox) ack(ctx context.Context, entryID string) {
	if err := o.rdb.XAck(ctx, o.stream, o.group, entryID).Err(); err != nil {
		o.log.ErrorContext(ctx, "outbox ack failed", "entry_id", entryID, "error", err)
		return
	}
	o.rdb.XDel(ctx, o.stream, entryID)
}
