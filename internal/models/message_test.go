package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitAddrs(t *testing.T) {
	assert.Nil(t, SplitAddrs(""))
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, SplitAddrs("a@x.com, b@x.com,,"))
}

func TestJoinAddrs_RoundTripsThroughSplit(t *testing.T) {
	addrs := []string{"a@x.com", "b@x.com"}
	assert.Equal(t, addrs, SplitAddrs(JoinAddrs(addrs)))
	assert.Equal(t, "", JoinAddrs(nil))
}
