// Package bridge connects the voice tools to the local assistant bot through
// shared files: a JSONL log of inbound Telegram messages and an outbound
// queue file the bot drains.
package bridge

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TelegramMessage is one line of the bot's inbound message log.
type TelegramMessage struct {
	Timestamp time.Time `json:"timestamp"`
	From      string    `json:"from"`
	Text      string    `json:"text"`
}

type Bridge struct {
	telegramLog string
	queuePath   string
	now         func() time.Time
}

func New(telegramLog, queuePath string) *Bridge {
	return &Bridge{telegramLog: telegramLog, queuePath: queuePath, now: time.Now}
}

// RecentMessages returns messages from the last `since` window, oldest first,
// capped at limit. Malformed log lines are skipped.
func (b *Bridge) RecentMessages(since time.Duration, limit int) ([]TelegramMessage, error) {
	if b.telegramLog == "" {
		return nil, fmt.Errorf("telegram log path is not configured")
	}
	if limit <= 0 {
		limit = 20
	}
	f, err := os.Open(b.telegramLog)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open telegram log: %w", err)
	}
	defer f.Close()

	cutoff := b.now().Add(-since)
	var messages []TelegramMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var msg TelegramMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			continue
		}
		if msg.Timestamp.Before(cutoff) {
			continue
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return messages, fmt.Errorf("scan telegram log: %w", err)
	}
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

// Enqueue appends one message to the bot's outbound queue.
func (b *Bridge) Enqueue(message string) error {
	if b.queuePath == "" {
		return fmt.Errorf("bot queue path is not configured")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return fmt.Errorf("empty message")
	}
	if err := os.MkdirAll(filepath.Dir(b.queuePath), 0o755); err != nil {
		return fmt.Errorf("create queue dir: %w", err)
	}
	entry, err := json.Marshal(map[string]any{
		"timestamp": b.now().UTC().Format(time.RFC3339),
		"source":    "voice",
		"message":   message,
	})
	if err != nil {
		return fmt.Errorf("encode queue entry: %w", err)
	}
	f, err := os.OpenFile(b.queuePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open queue: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(entry, '\n')); err != nil {
		return fmt.Errorf("append queue: %w", err)
	}
	return nil
}
