package command

import (
	"context"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
	"github.com/pulsenative/pulsed/internal/pulse/session"
	"github.com/pulsenative/pulsed/internal/pulse/tag"
)

// handleExtension backs COMMAND_EXTENSION: a module index-or-name
// followed by a sub-protocol-specific body, handed straight to the
// extension registry the same way a top-level command is handed to its
// own handler.
func handleExtension(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	index, name, err := byIndexOrName(r)
	if err != nil {
		return nil, err
	}
	if d.ext == nil {
		return nil, pulseerrors.NewNotSupportedError("command.extension.registry", nil)
	}
	return d.ext.Dispatch(ctx, index, name, r)
}
