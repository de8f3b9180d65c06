package listener

import (
	"fmt"
	"net"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
)

// peerAppArmorLabel retrieves the connecting UNIX-socket peer's PID via
// SO_PEERCRED and reads its current AppArmor confinement label out of
// /proc/<pid>/attr/current, the same two-step lookup the real server's
// socket-client module performs before calling into the snap-policy
// gate.
func peerAppArmorLabel(conn *net.UnixConn) (string, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return "", pulseerrors.NewIOError("listener.peercred.syscallconn", err)
	}
	var ucred *unix.Ucred
	var ctrlErr error
	err = raw.Control(func(fd uintptr) {
		ucred, ctrlErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil {
		return "", pulseerrors.NewIOError("listener.peercred.control", err)
	}
	if ctrlErr != nil {
		return "", pulseerrors.NewIOError("listener.peercred.getsockopt", ctrlErr)
	}
	return readAppArmorLabel(int(ucred.Pid))
}

// readAppArmorLabel reads a process's current LSM label, stripping the
// trailing NUL/newline the kernel pads the file with.
func readAppArmorLabel(pid int) (string, error) {
	path := fmt.Sprintf("/proc/%d/attr/current", pid)
	raw, err := os.ReadFile(path)
	if err != nil {
		// No AppArmor (LSM disabled, or /proc unavailable): treat as
		// unconfined rather than failing the connection outright.
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", pulseerrors.NewIOError("listener.peercred.label.read", err)
	}
	return strings.TrimRight(string(raw), "\x00\n"), nil
}
