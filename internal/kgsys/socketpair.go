package kgsys

import (
	"net"
	"os"

	"github.com/keg-project/keg/internal/kgerr"
	"golang.org/x/sys/unix"
)

// SocketPair creates a SOCK_STREAM/AF_UNIX pair for communication with
// a child (§4.1). The parent keeps one end as a *net.UnixConn, always
// close-on-exec; the other end is returned as a bare fd that is NOT
// close-on-exec yet, so that it survives into a spawned child process
// when passed as a numeric argument. The caller is responsible for
// setting close-on-exec on that fd and closing it once the child has
// been spawned — CloseLastPassedFD does both for an fd donated with
// PassFD (§4.1, §5 "File descriptors").
func SocketPair() (*net.UnixConn, int, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, -1, kgerr.New("socket_pair", kgerr.TransportFailed, err)
	}
	parentFD, childFD := fds[0], fds[1]

	if err := SetCloseOnExec(parentFD); err != nil {
		unix.Close(parentFD)
		unix.Close(childFD)
		return nil, -1, kgerr.New("socket_pair", kgerr.TransportFailed, err)
	}

	f := os.NewFile(uintptr(parentFD), "keg-stage-socket")
	conn, err := net.FileConn(f)
	f.Close() // net.FileConn dup's the fd; close our copy.
	if err != nil {
		unix.Close(childFD)
		return nil, -1, kgerr.New("socket_pair", kgerr.TransportFailed, err)
	}
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		conn.Close()
		unix.Close(childFD)
		return nil, -1, kgerr.New("socket_pair", kgerr.TransportFailed, nil)
	}
	return unixConn, childFD, nil
}

// SetCloseOnExec sets FD_CLOEXEC on fd.
func SetCloseOnExec(fd int) error {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	if err != nil {
		return err
	}
	_, err = unix.FcntlInt(uintptr(fd), unix.F_SETFD, flags|unix.FD_CLOEXEC)
	return err
}
