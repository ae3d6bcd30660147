package middleware

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

var logger = loggo.GetLogger("middleware.ratelimit")

// RateLimit limits requests per client IP. The rate uses the limiter
// format "<limit>-<period>", e.g. "10-M".
func RateLimit(formatted string) (fiber.Handler, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, errors.NotValidf("rate %q", formatted)
	}
	instance := limiter.New(memory.NewStore(), rate)

	return func(c *fiber.Ctx) error {
		lctx, err := instance.Get(c.UserContext(), c.IP())
		if err != nil {
			// Fail open; a broken limiter must not lock users out.
			logger.Errorf("rate limiter: %v", err)
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			logger.Warningf("rate limit reached for %s %s", c.IP(), c.Path())
			return fiber.NewError(fiber.StatusTooManyRequests, "too many requests, try again later")
		}
		return c.Next()
	}, nil
}
