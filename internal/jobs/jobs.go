package jobs

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// StartJobs starts the background scheduler for maintenance jobs. The
// returned scheduler can be stopped at shutdown.
func StartJobs(app JobContext) *gocron.Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	startCleanupJob(s, app)
	startInboxSweepJob(s, app)

	log.Println("Starting background job scheduler...")
	s.StartAsync()
	return s
}

func startCleanupJob(s *gocron.Scheduler, app JobContext) {
	interval := app.Config().CleanupInterval
	if interval == 0 {
		log.Println("Cleanup interval is 0, scheduled output cleanup is disabled.")
		return
	}

	jobId := "output-cleanup"
	log.Printf("Scheduling job: '%s' to run every %d minutes.", jobId, interval)

	_, err := s.Every(interval).Minutes().Do(func() {
		log.Println("Scheduler is triggering job:", jobId)
		// Submit through the manager so it cannot collide with a manually
		// triggered maintenance job.
		err := app.JobManager().RunJob(jobId, app)
		if err != nil {
			log.Printf("Scheduled job '%s' could not start: %v", jobId, err)
		}
	})
	if err != nil {
		log.Printf("Error scheduling '%s' job: %v", jobId, err)
	}
}

func startInboxSweepJob(s *gocron.Scheduler, app JobContext) {
	if app.Config().Storage.InboxDir == "" {
		return
	}

	jobId := "inbox-sweep"
	log.Printf("Scheduling job: '%s' to run every 5 minutes.", jobId)

	_, err := s.Every(5).Minutes().Do(func() {
		err := app.JobManager().RunJob(jobId, app)
		if err != nil {
			log.Printf("Scheduled job '%s' could not start: %v", jobId, err)
		}
	})
	if err != nil {
		log.Printf("Error scheduling '%s' job: %v", jobId, err)
	}
}
