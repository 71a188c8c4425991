package jobs

import (
	"context"
	"log"
	"time"
)

// NotificationCleaner удаляет старые уведомления
type NotificationCleaner interface {
	CleanupOldNotifications(olderThan time.Duration) error
}

// StartNotificationCleanupJob раз в interval удаляет уведомления старше retention
func StartNotificationCleanupJob(ctx context.Context, interval, retention time.Duration, cleaner NotificationCleaner) {
	if retention <= 0 || cleaner == nil {
		return
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := cleaner.CleanupOldNotifications(retention); err != nil {
					log.Printf("notification cleanup job error: %v", err)
				}
			}
		}
	}()
}
