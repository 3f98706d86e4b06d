package cron

import (
	"context"
	"encoding/json"
	"time"

	"courtside/config"
	"courtside/services/notification"
	"courtside/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// InitNotifyWorker runs the asynq worker consuming queued booking
// notifications in the background. The sink is what actually delivers them;
// the worker only adds retries and backoff around it.
func InitNotifyWorker(sink notification.Sink) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(notification.TypeBookingNotify, handleNotifyTask(sink))

	go func() {
		logger := utils.GetLogger()
		logger.Info("starting notification worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := srv.Run(mux)
			if err == nil {
				return
			}
			logger.Error("notification worker failed to start",
				zap.Int("attempt", attempts),
				zap.Int("maxAttempts", maxAttempts),
				zap.Error(err))
			if attempts == maxAttempts {
				logger.Fatal("notification worker exhausted start attempts")
			}
			time.Sleep(time.Duration(attempts*2) * time.Second)
		}
	}()
}

func handleNotifyTask(sink notification.Sink) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		logger := utils.GetLogger()

		var p notification.BookingNotifyPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("invalid notification payload", zap.Error(err))
			return err
		}

		if err := sink.Notify(ctx, p.UserID, p.Event); err != nil {
			logger.Warn("failed to deliver booking notification",
				zap.String("userId", p.UserID),
				zap.String("bookingId", p.Event.BookingID),
				zap.Error(err))
			return err
		}
		return nil
	}
}
