package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBootDB_RejectsInvalidConfig(t *testing.T) {
	t.Setenv("SHIPPING_FLAT_CENTS", "-1")

	db, err := bootDB(context.Background())
	assert.Nil(t, db)
	assert.ErrorContains(t, err, "shipping amounts must not be negative")
}
