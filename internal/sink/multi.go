package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/deliverynotes/internal/common"
	"github.com/joseph-ayodele/deliverynotes/internal/entity"
)

// Multi fans a batch out to several sinks. A batch is durable only when every sink accepted it.
type Multi struct {
	sinks  []Sink
	opened []Sink
}

func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Name() string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name()
	}
	return strings.Join(names, ",")
}

// Open opens every sink; on the first failure the ones already open are closed.
func (m *Multi) Open(ctx context.Context) error {
	if len(m.sinks) == 0 {
		return common.SinkUnavailable("no output configured", nil)
	}
	for _, s := range m.sinks {
		if err := s.Open(ctx); err != nil {
			_ = m.Close()
			return fmt.Errorf("%s: %w", s.Name(), err)
		}
		m.opened = append(m.opened, s)
	}
	return nil
}

func (m *Multi) Write(ctx context.Context, recs []entity.DeliveryRecord) error {
	var errs []error
	for _, s := range m.opened {
		if err := s.Write(ctx, recs); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.opened {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	m.opened = nil
	return errors.Join(errs...)
}
