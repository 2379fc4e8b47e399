// Copyright 2016 Aleksandr Demakin. All rights reserved.

package rangelock

import (
	"fmt"
	"io"
	"strings"

	"github.com/VictoriaMetrics/metrics"
)

type blockMetrics struct {
	set        *metrics.Set
	acquired   *metrics.Counter
	timeouts   *metrics.Counter
	noCapacity *metrics.Counter
	released   *metrics.Counter
	reclaimed  *metrics.Counter
	conflicts  *metrics.Counter
	wait       *metrics.Histogram
}

func newBlockMetrics(segment string, held func() int) *blockMetrics {
	set := metrics.NewSet()
	label := fmt.Sprintf(`{segment=%q}`, metricLabelValue(segment))
	m := &blockMetrics{
		set:        set,
		acquired:   set.NewCounter("shmlock_acquired_total" + label),
		timeouts:   set.NewCounter("shmlock_acquire_timeouts_total" + label),
		noCapacity: set.NewCounter("shmlock_acquire_no_capacity_total" + label),
		released:   set.NewCounter("shmlock_released_total" + label),
		reclaimed:  set.NewCounter("shmlock_reclaimed_total" + label),
		conflicts:  set.NewCounter("shmlock_acquire_conflicts_total" + label),
		wait:       set.NewHistogram("shmlock_acquire_wait_seconds" + label),
	}
	set.NewGauge("shmlock_held_locks"+label, func() float64 {
		return float64(held())
	})
	return m
}

func (m *blockMetrics) writePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}

// metricLabelValue replaces symbols, which are not allowed in a label value.
func metricLabelValue(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
