// Package mail delivers personalised messages over a single SMTP session,
// pacing consecutive sends with a fixed delay.
package mail
