package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu         sync.Mutex
	collectors []prometheus.Collector
	registered bool
)

// register queues collectors from each file's init for the process registry.
func register(cs ...prometheus.Collector) {
	mu.Lock()
	collectors = append(collectors, cs...)
	mu.Unlock()
}

// Register adds every entitlement collector to reg. Collectors reg already
// holds are skipped, so a second call is harmless.
func Register(reg prometheus.Registerer) error {
	mu.Lock()
	cs := append([]prometheus.Collector(nil), collectors...)
	mu.Unlock()

	var errs []error
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MustRegister installs the collectors on the default registry once and
// panics if any of them conflicts with one registered elsewhere.
func MustRegister() {
	mu.Lock()
	done := registered
	registered = true
	mu.Unlock()
	if done {
		return
	}
	if err := Register(prometheus.DefaultRegisterer); err != nil {
		panic(err)
	}
}
