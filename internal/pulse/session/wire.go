package session

import "github.com/pulsenative/pulsed/internal/pulse/frame"

// replyCommandReply and replyCommandError are the two command codes the
// session layer frames every dispatcher result under: a successful
// command's reply body, or a wire error code when dispatch fails. These
// match the real protocol's fixed PA_COMMAND_REPLY/PA_COMMAND_ERROR values
// and are exported so internal/pulse/command can reuse them without this
// package importing back into command.
const (
	ReplyCommandReply = 2
	ReplyCommandError = 0

	replyCommandReply = ReplyCommandReply
	replyCommandError = ReplyCommandError
)

// frameDescriptorFor builds the control-channel descriptor for an outbound
// reply/error/event payload of the given length.
func frameDescriptorFor(payload []byte) frame.Descriptor {
	return frame.Descriptor{
		Length:  uint32(len(payload)),
		Channel: frame.ControlChannel,
	}
}
