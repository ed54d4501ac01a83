package campaign

import (
	"context"

	"github.com/telekom/bulkmail/pkg/contacts"
	"github.com/telekom/bulkmail/pkg/render"
)

// Preview is one rendered contact. Error is set instead of Message when the
// contact could not be rendered.
type Preview struct {
	Index     int            `json:"index" yaml:"index"`
	Recipient string         `json:"recipient" yaml:"recipient"`
	Message   render.Message `json:"message" yaml:"message"`
	Error     string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// Preview renders the first n contacts without talking to the SMTP server.
// The run's own cap still applies.
func (r *Runner) Preview(ctx context.Context, n int) ([]Preview, error) {
	if n <= 0 {
		n = 1
	}
	if r.opts.Limit > 0 && r.opts.Limit < n {
		n = r.opts.Limit
	}

	it, err := r.source.Open(ctx)
	if err != nil {
		return nil, err
	}
	it = contacts.Limit(it, n)
	defer it.Close()

	var out []Preview
	for index := 0; it.Next(); index++ {
		c := it.Contact()
		p := Preview{Index: index, Recipient: c.Email(r.opts.EmailField)}
		msg, err := r.renderer.Render(c)
		if err != nil {
			p.Error = err.Error()
		} else {
			p.Message = msg
		}
		out = append(out, p)
	}
	if err := iteratorErr(it); err != nil {
		return out, err
	}
	return out, nil
}
