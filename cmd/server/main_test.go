package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRequestTimeout(t *testing.T) {
	assert.Equal(t, time.Duration(0), requestTimeout(0))
	assert.Equal(t, 30*time.Second+requestTimeoutGrace, requestTimeout(30*time.Second))
	assert.Greater(t, requestTimeout(time.Millisecond), time.Millisecond)
}
