package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"storyreel/internal/video"
)

// Notifier delivers finished clips to one chat, compressing them first when
// they exceed the upload limit.
type Notifier struct {
	client     *Client
	compressor video.Compressor
	chatID     int64
	limit      int64
}

func NewNotifier(client *Client, compressor video.Compressor, chatID int64, limitMB int) *Notifier {
	limit := MaxUploadBytes
	if limitMB > 0 {
		limit = int64(limitMB) * 1024 * 1024
	}
	return &Notifier{
		client:     client,
		compressor: compressor,
		chatID:     chatID,
		limit:      limit,
	}
}

func (n *Notifier) SendClip(ctx context.Context, videoPath, caption string) error {
	if n.chatID == 0 {
		return fmt.Errorf("telegram chat id not configured")
	}

	path, err := video.ShrinkToLimit(ctx, n.compressor, videoPath, n.limit)
	if err != nil {
		return fmt.Errorf("fit telegram limit: %w", err)
	}
	if path != videoPath {
		defer func() { _ = os.Remove(path) }()
	}

	msg, err := n.client.SendVideo(ctx, n.chatID, path, caption)
	if err != nil {
		return err
	}

	slog.Info("Clip sent to Telegram", "chat_id", n.chatID, "message_id", msg.MessageID)
	return nil
}
