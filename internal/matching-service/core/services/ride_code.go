package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"tujane/internal/matching-service/core/ports"
	"tujane/internal/mylogger"
)

const maxCodeAttempts = 10

// CodeGenerator produces ride codes of the form PREFIX + 4 digits. Codes are
// reserved in the registry for the claim window, so an open ride never shares
// its code with another one.
type CodeGenerator struct {
	mylog    mylogger.Logger
	prefix   string
	ttl      time.Duration
	registry ports.ICodeRegistry
	digits   func() int
}

func NewCodeGenerator(mylog mylogger.Logger, prefix string, ttl time.Duration, registry ports.ICodeRegistry) *CodeGenerator {
	return &CodeGenerator{
		mylog:    mylog,
		prefix:   prefix,
		ttl:      ttl,
		registry: registry,
		digits:   func() int { return 1000 + rand.IntN(9000) },
	}
}

func (g *CodeGenerator) format(n int) string {
	return fmt.Sprintf("%s%04d", g.prefix, n)
}

// Next returns a fresh code. When the registry is unreachable the last
// candidate is used without reservation.
func (g *CodeGenerator) Next(ctx context.Context) string {
	log := g.mylog.Action("NextRideCode")

	code := g.format(g.digits())
	if g.registry == nil {
		return code
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		ok, err := g.registry.Reserve(ctx, code, g.ttl)
		if err != nil {
			log.Warn("code registry unavailable, using unreserved code", "code", code, "error", err.Error())
			return code
		}
		if ok {
			return code
		}
		log.Debug("ride code taken", "code", code, "attempt", attempt)
		code = g.format(g.digits())
	}

	log.Warn("no free ride code after retries", "code", code)
	return code
}
