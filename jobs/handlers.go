package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goCred/internal/logging"
)

// NotificationHandler logs delivery of a user notification. delay simulates
// the downstream call.
func NotificationHandler(logger logging.Logger, delay time.Duration) Handler {
	return func(ctx context.Context, job Job) error {
		userID := job.Payload["userId"]
		if userID == "" {
			return errors.New("notification without userId")
		}
		logger.Info(ctx, "sending notification", "user_id", userID)
		if err := sleep(ctx, delay); err != nil {
			return err
		}
		logger.Info(ctx, "notification sent", "user_id", userID)
		return nil
	}
}

// ImageHandler logs processing of an uploaded image.
func ImageHandler(logger logging.Logger, delay time.Duration) Handler {
	return func(ctx context.Context, job Job) error {
		name := job.Payload["fileName"]
		if name == "" {
			return errors.New("image job without fileName")
		}
		logger.Info(ctx, "processing image", "file", name, "user_id", job.Payload["userId"])
		if err := sleep(ctx, delay); err != nil {
			return err
		}
		logger.Info(ctx, "image processed", "file", name)
		return nil
	}
}

// RegisterDefaults installs the notification and image handlers.
func RegisterDefaults(w *Worker, logger logging.Logger, delay time.Duration) {
	if logger == nil {
		logger = logging.Nop{}
	}
	w.Handle(JobSendNotification, NotificationHandler(logger, delay))
	w.Handle(JobProcessImage, ImageHandler(logger, delay))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
