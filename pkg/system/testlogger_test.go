package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTestLogger(t *testing.T) {
	logger, logs := NewTestLogger(t)
	require.NotNil(t, logger)

	logger.Named("mail").Infow("Mail sent", "recipient", "a@x.com")
	logger.Debugw("debug entries are kept")

	entries := logs.FilterMessage("Mail sent").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "mail", entries[0].LoggerName)
	assert.Equal(t, "a@x.com", entries[0].ContextMap()["recipient"])
	assert.Equal(t, 2, logs.Len())
}
