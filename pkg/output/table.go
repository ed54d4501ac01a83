package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/telekom/bulkmail/pkg/campaign"
)

// WriteReport prints one line per outcome followed by a summary line.
func WriteReport(w io.Writer, r *campaign.Report) {
	if r == nil {
		return
	}
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tRECIPIENT\tSTATUS\tREASON")
	for _, o := range r.Outcomes {
		reason := "-"
		if o.Reason != "" {
			reason = oneLine(o.Reason)
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", o.Index+1, orDash(o.Recipient), o.Status, reason)
	}
	_ = tw.Flush()

	mode := ""
	if r.TestMode {
		mode = " (test mode)"
	}
	_, _ = fmt.Fprintf(w, "\nRun %s%s started %s: %d sent, %d failed in %s\n",
		r.RunID, mode, formatTime(r.Started), r.Sent, r.Failed, orDash(r.Duration))
}

// WritePreviews prints each rendered message as a header block and body.
func WritePreviews(w io.Writer, previews []campaign.Preview) {
	for i, p := range previews {
		if i > 0 {
			_, _ = fmt.Fprintln(w, strings.Repeat("-", 72))
		}
		_, _ = fmt.Fprintf(w, "To: %s\n", orDash(p.Recipient))
		if p.Error != "" {
			_, _ = fmt.Fprintf(w, "Error: %s\n", oneLine(p.Error))
			continue
		}
		_, _ = fmt.Fprintf(w, "Subject: %s\n\n%s\n", p.Message.Subject, p.Message.HTMLBody)
		if p.Message.TextBody != "" {
			_, _ = fmt.Fprintf(w, "\n[text]\n%s\n", p.Message.TextBody)
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}
