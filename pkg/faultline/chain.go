// chain.go runs the user-supplied BeforeSend transforms over a notice.

package faultline

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// BeforeSendFunc transforms a notice before delivery. It receives a private copy of the
// event and returns the event to continue with, or nil to drop the notice. A returned
// error (or a panic) is logged and the transform is skipped.
type BeforeSendFunc func(ev *Event) (*Event, error)

// Chain applies the configured BeforeSend transforms in order.
type Chain struct {
	store *Store
}

// NewChain creates a chain reading transforms from store.
func NewChain(store *Store) *Chain {
	return &Chain{store: store}
}

// Apply folds the transforms over ev left to right. The result is nil when any transform
// dropped the notice; later transforms are then not invoked. The only error returned is
// ErrNotInitialized, failing transforms never abort the chain.
func (c *Chain) Apply(ev *Event) (*Event, error) {
	cfg, err := c.store.Config()
	if err != nil {
		return nil, err
	}
	if len(cfg.BeforeSend) == 0 {
		return ev, nil
	}

	current := ev
	for i, fn := range cfg.BeforeSend {
		if current == nil {
			break
		}
		next, err := invokeBeforeSend(fn, current.Clone())
		if err != nil {
			c.store.Logger().Error("beforeSend callback failed",
				zap.Int("index", i),
				zap.String("error_class", current.Class),
				zap.Error(err),
			)
			continue
		}
		current = next
	}
	return current, nil
}

func invokeBeforeSend(fn BeforeSendFunc, ev *Event) (out *Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("beforeSend panicked: %v", r)
		}
	}()
	return fn(ev)
}
