package middleware

import (
	"net/http"

	"github.com/benvon/smart-planner/internal/request"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

// DefaultRateLimit applies when no rate is configured.
const DefaultRateLimit = "5-S"

const rateLimitPrefix = "planner:ratelimit"

// RateLimit limits requests per client IP using the ulule/limiter formatted rate (e.g. "5-S",
// "100-M"). Counters live in Redis when client is non-nil so every server instance shares them;
// otherwise they are process-local. Store errors fail open.
func RateLimit(client *redis.Client, rate string, log *zap.Logger) (func(http.Handler) http.Handler, error) {
	if rate == "" {
		rate = DefaultRateLimit
	}
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}

	opts := limiter.StoreOptions{
		Prefix:          rateLimitPrefix,
		MaxRetry:        limiter.DefaultMaxRetry,
		CleanUpInterval: limiter.DefaultCleanUpInterval,
	}
	var store limiter.Store
	if client != nil {
		store, err = redisstore.NewStoreWithOptions(client, opts)
		if err != nil {
			return nil, err
		}
	} else {
		store = memorystore.NewStoreWithOptions(opts)
	}

	instance := limiter.New(store, parsed)
	return func(next http.Handler) http.Handler {
		mw := stdlibmw.NewMiddleware(instance,
			stdlibmw.WithKeyGetter(request.ClientIP),
			stdlibmw.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
				respondErrorJSON(w, r, http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded, slow down", log)
			}),
			stdlibmw.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
				if log != nil {
					log.Warn("rate_limit_store_error", zap.Error(err))
				}
				next.ServeHTTP(w, r)
			}),
		)
		return mw.Handler(next)
	}, nil
}
