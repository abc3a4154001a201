package service

import (
	"strconv"
	"sync"
	"time"
)

const orderCodePrefix = "ORD"

// codeGenerator issues order codes of the form "ORD<unix-millis>". Codes from
// one generator are strictly increasing: when the clock has not advanced past
// the last issued value the next millisecond is used instead.
type codeGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func newCodeGenerator(now func() time.Time) *codeGenerator {
	return &codeGenerator{now: now}
}

// Next returns the next order code.
func (g *codeGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms

	return orderCodePrefix + strconv.FormatInt(ms, 10)
}
