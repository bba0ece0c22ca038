// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package merkle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/assetflow/fault"
	"github.com/bitmark-inc/assetflow/merkle"
)

func TestDigestText(t *testing.T) {
	d := merkle.NewDigest([]byte("hello world"))
	assert.False(t, d.IsZero(), "digest of data must not be zero")

	text, err := d.MarshalText()
	assert.Nil(t, err, "marshal error")
	assert.Equal(t, d.String(), string(text), "text and string forms differ")

	var back merkle.Digest
	err = back.UnmarshalText(text)
	assert.Nil(t, err, "unmarshal error")
	assert.Equal(t, d, back, "digest changed through text")
}

func TestDigestDeterministic(t *testing.T) {
	assert.Equal(t, merkle.NewDigest([]byte{1, 2, 3}), merkle.NewDigest([]byte{1, 2, 3}), "same data gave different digests")
	assert.NotEqual(t, merkle.NewDigest([]byte{1, 2, 3}), merkle.NewDigest([]byte{3, 2, 1}), "different data gave same digest")
}

func TestDigestFromBytes(t *testing.T) {
	var d merkle.Digest
	err := merkle.DigestFromBytes(&d, []byte{1, 2, 3})
	assert.Equal(t, fault.ErrNotLink, err, "short buffer accepted")

	buffer := make([]byte, merkle.DigestLength)
	buffer[0] = 0x42
	err = merkle.DigestFromBytes(&d, buffer)
	assert.Nil(t, err, "valid buffer rejected")
	assert.Equal(t, byte(0x42), d[0], "wrong first byte")

	err = d.UnmarshalText([]byte("abcd"))
	assert.Equal(t, fault.ErrNotLink, err, "short text accepted")
}
