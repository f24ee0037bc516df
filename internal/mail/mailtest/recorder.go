// Package mailtest provides a Mailer that records messages instead of
// sending them.
package mailtest

import (
	"context"
	"sync"

	"todoapp/internal/mail"
)

type Recorder struct {
	mu   sync.Mutex
	sent []*mail.Email
	Err  error
}

func (r *Recorder) SendMail(_ context.Context, e *mail.Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, e)
	return nil
}

func (r *Recorder) Sent() []*mail.Email {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*mail.Email(nil), r.sent...)
}

func (r *Recorder) Last() *mail.Email {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return nil
	}
	return r.sent[len(r.sent)-1]
}
