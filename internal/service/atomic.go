package service

import (
	"sync/atomic"
	"time"
)

type atomicDuration struct {
	v atomic.Int64
}

func (d *atomicDuration) Load() time.Duration {
	return time.Duration(d.v.Load())
}

func (d *atomicDuration) Store(v time.Duration) {
	d.v.Store(int64(v))
}
