// Package apperrors defines the error kinds a bulkmail run can fail with and
// maps them to process exit codes. Fatal kinds abort the run; Render and Send
// errors are usually recorded per contact and the run continues.
package apperrors
