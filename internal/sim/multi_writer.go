package sim

import (
	"context"
	"errors"
)

// MultiWriter fans messages out to several publishers. Every publisher is
// tried; failures are joined.
type MultiWriter struct {
	pubs []Publisher
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(pubs ...Publisher) *MultiWriter {
	return &MultiWriter{pubs: pubs}
}

// Publish sends a message to all publishers.
func (mw *MultiWriter) Publish(ctx context.Context, msg Message) error {
	var errs []error
	for _, p := range mw.pubs {
		if err := p.Publish(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishBatch sends multiple messages to all publishers, using batch mode
// where supported.
func (mw *MultiWriter) PublishBatch(ctx context.Context, msgs []Message) error {
	var errs []error
	for _, p := range mw.pubs {
		if err := PublishAll(ctx, p, msgs); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every publisher that holds resources.
func (mw *MultiWriter) Close() error {
	var errs []error
	for _, p := range mw.pubs {
		if c, ok := p.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// SetAdminStatus forwards the admin server status to publishers that show it.
func (mw *MultiWriter) SetAdminStatus(listening bool) {
	for _, p := range mw.pubs {
		if aw, ok := p.(AdminStatusWriter); ok {
			aw.SetAdminStatus(listening)
		}
	}
}
