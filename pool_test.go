// Copyright 2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package netdecode_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buf.build/go/netdecode"
)

func TestDecoderPoolReusesDecoders(t *testing.T) {
	db := buildDemoDB()
	pool := netdecode.NewDecoderPool(db, netdecode.WithDetailFull(true))

	d1, put1 := pool.Get()
	put1()
	d2, put2 := pool.Get()
	defer put2()

	assert.Same(t, d1, d2)
}

func TestDecoderPoolDecodesUnderConcurrentUse(t *testing.T) {
	db := buildDemoDB()
	pool := netdecode.NewDecoderPool(db, netdecode.WithDetailFull(true))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, put := pool.Get()
			defer put()

			res := d.DecodePacket(1, 0, 0, 0, []byte{0xCA, 0xFE, 0x00, 0x04})
			require.Equal(t, netdecode.StatusOK, res.Status)
		}()
	}
	wg.Wait()
}
