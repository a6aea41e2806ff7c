// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHashKey = "test-secret-key"

func TestInitHasherPoolAndHash(t *testing.T) {
	InitHasherPool(testHashKey)

	data := []byte(`{"user_id":"member-1","transactions":[]}`)

	sum1 := Hash(data)
	sum2 := Hash(data)
	require.NotEmpty(t, sum1)
	assert.Equal(t, sum1, sum2, "hash must be deterministic")

	mac := hmac.New(sha256.New, []byte(testHashKey))
	mac.Write(data)
	assert.Equal(t, mac.Sum(nil), sum1)
}

func TestHash_DifferentKeys(t *testing.T) {
	data := []byte("batch")

	InitHasherPool("key-one")
	hash1 := hex.EncodeToString(Hash(data))

	InitHasherPool("key-two")
	hash2 := hex.EncodeToString(Hash(data))

	assert.NotEqual(t, hash1, hash2)
}

func TestHashString_MatchesPool(t *testing.T) {
	InitHasherPool(testHashKey)
	assert.Equal(t, hex.EncodeToString(Hash([]byte("abc"))), HashString("abc", testHashKey))
}

func TestChecksum(t *testing.T) {
	a := Checksum([]byte(`{"id":"poi-1"}`))
	b := Checksum([]byte(`{"id":"poi-1"}`))
	c := Checksum([]byte(`{"id":"poi-2"}`))

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	// BLAKE2b-256 of the empty input.
	assert.Equal(t, "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8", Checksum(nil))
}
