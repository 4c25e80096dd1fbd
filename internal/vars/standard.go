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

package vars

// ProtoVerifyResult is the closed set of $protoverifyresult values a
// nextproto-candidate's execute-verify section can leave behind.
type ProtoVerifyResult uint32

const (
	VerifyNotFound ProtoVerifyResult = iota
	VerifyFound
	VerifyCandidate
	VerifyDeferred
)

// Standard names every well-known standard variable.
const (
	NameLinkType           = "linktype"
	NameFrameLen           = "framelen"
	NamePacketLen          = "packetlen"
	NameTimestampS         = "timestamp_s"
	NameTimestampUS        = "timestamp_us"
	NameCurrentOffset      = "currentoffset"
	NameCurrentProtoOffset = "currentprotooffset"
	NamePacketBuffer       = "packetbuffer"
	NamePrevProto          = "prevproto"
	NameNextProto          = "nextproto"
	NameShowNetNames       = "shownetnames"
	NameProtoVerifyResult  = "protoverifyresult"
	NameTokenBeginLen      = "token_begin_len"
	NameTokenFieldLen      = "token_field_len"
	NameTokenEndLen        = "token_end_len"
)

// StandardIDs caches the IDs of the standard variables, avoiding a name
// lookup on every packet's hot path.
type StandardIDs struct {
	LinkType           ID
	FrameLen           ID
	PacketLen          ID
	TimestampS         ID
	TimestampUS        ID
	CurrentOffset      ID
	CurrentProtoOffset ID
	PacketBuffer       ID
	PrevProto          ID
	NextProto          ID
	ShowNetNames       ID
	ProtoVerifyResult  ID
	TokenBeginLen      ID
	TokenFieldLen      ID
	TokenEndLen        ID
}

// maxPacketBufferLen bounds the packetbuffer ref-buffer view; the actual
// slice installed per packet is re-sliced by [Store.SetRefBuffer], so
// this only needs to be large enough that Declare's bookkeeping (which is
// unused for RefBuffer kind) never rejects it.
const maxPacketBufferLen = 0

// DeclareStandard declares every standard variable on an otherwise
// empty Store, returning their IDs. Must be called once per Store before
// decoding the first packet.
func DeclareStandard(s *Store) (StandardIDs, *StandardsError) {
	var ids StandardIDs
	var errs []error

	declare := func(dst *ID, name string, kind Kind, validity Validity, maxSize int) {
		id, err := s.Declare(name, kind, validity, maxSize, Initial{})
		if err != nil {
			errs = append(errs, err)
			return
		}
		*dst = id
	}

	declare(&ids.LinkType, NameLinkType, Number, ThisPacket, 0)
	declare(&ids.FrameLen, NameFrameLen, Number, ThisPacket, 0)
	declare(&ids.PacketLen, NamePacketLen, Number, ThisPacket, 0)
	declare(&ids.TimestampS, NameTimestampS, Number, ThisPacket, 0)
	declare(&ids.TimestampUS, NameTimestampUS, Number, ThisPacket, 0)
	declare(&ids.CurrentOffset, NameCurrentOffset, Number, ThisPacket, 0)
	declare(&ids.CurrentProtoOffset, NameCurrentProtoOffset, Number, ThisPacket, 0)
	declare(&ids.PacketBuffer, NamePacketBuffer, RefBuffer, ThisPacket, maxPacketBufferLen)
	declare(&ids.PrevProto, NamePrevProto, Protocol, ThisPacket, 0)
	declare(&ids.NextProto, NameNextProto, Protocol, ThisPacket, 0)
	declare(&ids.ShowNetNames, NameShowNetNames, Number, Static, 0)
	declare(&ids.ProtoVerifyResult, NameProtoVerifyResult, Number, ThisPacket, 0)
	declare(&ids.TokenBeginLen, NameTokenBeginLen, Number, ThisPacket, 0)
	declare(&ids.TokenFieldLen, NameTokenFieldLen, Number, ThisPacket, 0)
	declare(&ids.TokenEndLen, NameTokenEndLen, Number, ThisPacket, 0)

	if len(errs) > 0 {
		return ids, &StandardsError{Errs: errs}
	}
	return ids, nil
}

// StandardsError aggregates failures from [DeclareStandard]; under normal
// operation (an empty, sufficiently large Store) this never occurs.
type StandardsError struct {
	Errs []error
}

func (e *StandardsError) Error() string {
	return "vars: failed to declare standard variables: " + e.Errs[0].Error()
}
