package scheduler

import (
	"context"
	"log"
	"time"
)

// Sweeper cukup SweepExpired dari EnrollmentService.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

const defaultInterval = 15 * time.Minute

// StartExpirySweep menjalankan sweep sekali di awal lalu tiap interval,
// sampai ctx dibatalkan. Channel done ditutup saat goroutine selesai.
func StartExpirySweep(ctx context.Context, s Sweeper, interval time.Duration) <-chan struct{} {
	if interval <= 0 {
		interval = defaultInterval
	}
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			runSweep(ctx, s)
			select {
			case <-ctx.Done():
				log.Println("[SWEEP] berhenti")
				return
			case <-ticker.C:
			}
		}
	}()
	return done
}

func runSweep(ctx context.Context, s Sweeper) {
	n, err := s.SweepExpired(ctx)
	switch {
	case err != nil:
		if ctx.Err() == nil {
			log.Printf("[SWEEP ERROR] Gagal expire enrollment: %v", err)
		}
	case n > 0:
		log.Printf("[SWEEP] %d enrollment lapsed -> EXPIRED", n)
	}
}
