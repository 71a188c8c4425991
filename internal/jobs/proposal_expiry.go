package jobs

import (
	"context"
	"log"
	"time"
)

// ProposalExpirer снимает неподтвержденные предложения старше отметки
type ProposalExpirer interface {
	ExpireStaleProposals(olderThan time.Time) (int, error)
}

// StartProposalExpiryJob периодически возвращает в пул пары, застрявшие в confirming.
// timeout <= 0 отключает задачу
func StartProposalExpiryJob(ctx context.Context, timeout, interval time.Duration, expirer ProposalExpirer) {
	if timeout <= 0 {
		return
	}
	if expirer == nil {
		log.Printf("proposal expiry job disabled: match service not configured")
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				expired, err := expirer.ExpireStaleProposals(time.Now().UTC().Add(-timeout))
				if err != nil {
					log.Printf("proposal expiry job error: %v", err)
					continue
				}
				if expired > 0 {
					log.Printf("proposal expiry job expired %d proposals", expired)
				}
			}
		}
	}()
}
