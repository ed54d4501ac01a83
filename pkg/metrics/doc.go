// Package metrics defines Prometheus metrics for bulkmail runs, covering SMTP
// connections, mail delivery and skipped contacts. A run is a batch job, so
// metrics are exported by writing a textfile rather than serving HTTP.
package metrics
