package application

import (
	"time"

	"github.com/go-redis/redis"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// CircuitBreaker guards the cache so a redis outage degrades browsing to
// direct store reads instead of failing requests. A cache miss is not a
// failure.
func CircuitBreaker(name string, logger *logrus.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(
		gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     10 * time.Second,
			Interval:    0,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 2
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Infof("Circuit Breaker '%s' changed from '%s' to '%s'", name, from, to)
			},
			IsSuccessful: func(err error) bool {
				return err == nil || err == redis.Nil
			},
		},
	)
}
