package ids

import (
	"strconv"
	"sync"
	"time"
)

// Clock genera ids decimales a partir de milisegundos epoch.
// Dos llamadas en el mismo milisegundo no repiten: se toma last+1.
type Clock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

func (c *Clock) Next() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ms := c.now().UnixMilli()
	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms
	return strconv.FormatInt(ms, 10)
}

var std = NewClock(nil)

// TimeBased usa el reloj compartido del proceso.
func TimeBased() string { return std.Next() }
