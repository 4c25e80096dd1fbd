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

package netdecode

import "buf.build/go/netdecode/internal/sync2"

// DecoderPool lends out [Decoder] instances built against one shared
// [ProtocolDB], for hosts that process packets across a worker pool
// rather than one goroutine per session: a Decoder must not be called
// from more than one goroutine at a time, but building one allocates
// its own variable store, lookup-table store, and detail tree, which is
// worth amortizing across many short-lived worker tasks.
type DecoderPool struct {
	db   *ProtocolDB
	opts []DecodeOption
	pool sync2.Pool[Decoder]
}

// NewDecoderPool returns a DecoderPool that builds new [Decoder]s over
// db with opts applied, the first time a Get outruns the pool's cache.
func NewDecoderPool(db *ProtocolDB, opts ...DecodeOption) *DecoderPool {
	p := &DecoderPool{db: db, opts: opts}
	p.pool.New = func() *Decoder {
		// NewDecoder only fails on a corrupt db, which Get has no way to
		// report; such a db would have already failed every other
		// Decoder constructed over it, so panicking here matches the
		// "caught at DB-build time, not at decode time" contract the
		// rest of this package relies on.
		d, err := NewDecoder(p.db, p.opts...)
		if err != nil {
			panic(err)
		}
		return d
	}
	p.pool.Reset = func(d *Decoder) { d.Release() }
	return p
}

// Get returns a Decoder for exclusive use by the calling goroutine, and
// a function to return it to the pool once that use is complete.
// DecodePacket resets all per-packet state itself before the next
// decode, so correctness never depends on the put callback running; it
// exists so a Decoder sitting idle between jobs releases the last
// packet it decoded instead of pinning it for the pool's lifetime.
func (p *DecoderPool) Get() (d *Decoder, put func()) {
	return p.pool.Get()
}
