// Package proto holds the wire constants every protocol-facing package
// needs in common: command codes, the invalid index/tag sentinel, and the
// subscription mask/event encoding. It exists so internal/pulse/command,
// internal/pulse/stream, internal/pulse/extension, and
// internal/pulse/introspect can share one command-code table without
// importing each other (internal/pulse/stream and internal/pulse/extension
// both push server-initiated frames carrying these codes directly through
// internal/pulse/session, one layer below internal/pulse/command).
//
// Values follow the published PulseAudio native protocol's PA_COMMAND_*
// enumeration (see DESIGN.md for the grounding note on numbering: the
// retrieved original_source tree's module-protocol-pulse sources reference
// this enum but the header defining it fell outside the retrieval's
// per-file size cap, so the ordering here is reconstructed from the public
// protocol documentation referenced by gophertribe-pulseaudio and
// achrafsoltani-Glow's client implementations rather than copied from a
// kept file).
package proto

// Command codes, matching the published wire enumeration.
const (
	CmdError uint32 = iota
	CmdTimeout
	CmdReply

	CmdCreatePlaybackStream
	CmdDeletePlaybackStream
	CmdCreateRecordStream
	CmdDeleteRecordStream
	CmdExit
	CmdAuth
	CmdSetClientName
	CmdLookupSink
	CmdLookupSource
	CmdDrainPlaybackStream
	CmdStat
	CmdGetPlaybackLatency
	CmdCreateUploadStream
	CmdDeleteUploadStream
	CmdFinishUploadStream
	CmdPlaySample
	CmdRemoveSample

	CmdGetServerInfo
	CmdGetSinkInfo
	CmdGetSinkInfoList
	CmdGetSourceInfo
	CmdGetSourceInfoList
	CmdGetModuleInfo
	CmdGetModuleInfoList
	CmdGetClientInfo
	CmdGetClientInfoList
	CmdGetSinkInputInfo
	CmdGetSinkInputInfoList
	CmdGetSourceOutputInfo
	CmdGetSourceOutputInfoList
	CmdGetSampleInfo
	CmdGetSampleInfoList
	CmdSubscribe

	CmdSetSinkVolume
	CmdSetSinkInputVolume
	CmdSetSourceVolume
	CmdSetSinkMute
	CmdSetSourceMute
	CmdSetSinkInputMute
	CmdSuspendSink
	CmdSuspendSource

	CmdSetPlaybackStreamBufferAttr
	CmdSetRecordStreamBufferAttr
	CmdUpdatePlaybackStreamSampleRate
	CmdUpdateRecordStreamSampleRate

	CmdPlaybackStreamSuspended
	CmdRecordStreamSuspended
	CmdPlaybackStreamMoved
	CmdRecordStreamMoved

	CmdUpdateRecordStreamProplist
	CmdUpdatePlaybackStreamProplist
	CmdUpdateClientProplist
	CmdRemoveRecordStreamProplist
	CmdRemovePlaybackStreamProplist
	CmdRemoveClientProplist

	CmdStarted

	CmdExtension

	CmdGetCardInfo
	CmdGetCardInfoList
	CmdSetCardProfile

	CmdClientEvent
	CmdPlaybackStreamEvent
	CmdRecordStreamEvent

	CmdSetSinkPort
	CmdSetSourcePort

	CmdSetSourceOutputVolume
	CmdSetSourceOutputMute

	CmdSetPortLatencyOffset

	CmdEnableSrbChannel
	CmdDisableSrbChannel

	CmdRegisterMemfdShmid

	// Data-path and event frames carried on the control channel.
	CmdRequest
	CmdOverflow
	CmdUnderflow
	CmdPlaybackStreamKilled
	CmdRecordStreamKilled
	CmdSubscribeEvent

	CmdMoveSinkInput
	CmdMoveSourceOutput

	CmdKillClient
	CmdKillSinkInput
	CmdKillSourceOutput

	CmdLoadModule
	CmdUnloadModule

	CmdGetClientInfoByName

	CmdCork
	CmdFlush
	CmdTrigger

	CmdSetDefaultSink
	CmdSetDefaultSource

	CmdSetSinkInputName
)

// InvalidIndex is PA_INVALID_INDEX, the sentinel used both as "no such
// object" in by-index lookups and as the correlation tag on every
// server-initiated control message.
const InvalidIndex uint32 = 0xffffffff

// Subscription facility bits (the low byte of a SUBSCRIBE mask / EVENT
// type), matching the published PA_SUBSCRIPTION_MASK_*/PA_SUBSCRIPTION_
// EVENT_* values.
const (
	MaskSink Facility = 1 << iota
	MaskSource
	MaskSinkInput
	MaskSourceOutput
	MaskModule
	MaskClient
	MaskSampleCache
	MaskServer
	_ // PA_SUBSCRIPTION_MASK_AUTOLOAD, removed upstream; kept as a gap so
	// the remaining bits still line up with the published enum.
	MaskCard

	MaskAll = MaskSink | MaskSource | MaskSinkInput | MaskSourceOutput |
		MaskModule | MaskClient | MaskSampleCache | MaskServer | MaskCard
)

// Facility is the object-class bit of a subscription mask or event type.
type Facility uint32

// EventKind is the NEW/CHANGE/REMOVE suffix folded into the low 4 bits of
// an EVENT notification's type field, beneath the facility bits.
type EventKind uint32

const (
	EventNew EventKind = iota
	EventChange
	EventRemove

	eventKindMask   uint32 = 0x0f
	eventFacilityShift     = 4
)

// EncodeSubscriptionEvent packs a facility and event kind into the single
// u32 "type" field an EVENT notification carries.
func EncodeSubscriptionEvent(fac Facility, kind EventKind) uint32 {
	return uint32(fac)<<eventFacilityShift | uint32(kind)&eventKindMask
}

// DecodeSubscriptionEvent is the inverse of EncodeSubscriptionEvent.
func DecodeSubscriptionEvent(v uint32) (Facility, EventKind) {
	return Facility(v >> eventFacilityShift), EventKind(v & eventKindMask)
}
