package azure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordTTLs(t *testing.T) {
	t.Parallel()

	assert.EqualValues(t, 300, defaultRecordTTL, "public records follow redeploys quickly")
	assert.EqualValues(t, 3600, privateRecordTTL, "private records are long-lived internal names")
}
