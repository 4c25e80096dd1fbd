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

package decoder

import "buf.build/go/netdecode/internal/detail"

// checkpoint is a snapshot taken before a speculative `set`/`choice`
// iteration: the DetailTree arenas' high-water marks plus
// $currentoffset/$currentprotooffset. After a rollback, the DetailTree
// and both offsets equal their pre-iteration state. Other variables and
// lookup-table entries are not part of the snapshot: writes made to them
// during a failed iteration remain.
type checkpoint struct {
	tree          detail.Checkpoint
	currentOffset uint32
	protoOffset   uint32
}

func (d *Decoder) mark() checkpoint {
	off, _ := d.Vars.Number(d.VarIDs.CurrentOffset)
	poff, _ := d.Vars.Number(d.VarIDs.CurrentProtoOffset)
	return checkpoint{
		tree:          d.Tree.Mark(),
		currentOffset: off,
		protoOffset:   poff,
	}
}

func (d *Decoder) rollback(cp checkpoint) {
	d.Tree.Rollback(cp.tree)
	_ = d.Vars.SetNumber(d.VarIDs.CurrentOffset, cp.currentOffset)
	_ = d.Vars.SetNumber(d.VarIDs.CurrentProtoOffset, cp.protoOffset)
}
