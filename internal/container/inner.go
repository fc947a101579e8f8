package container

import (
	"net"
	"os"
	"strconv"

	"github.com/keg-project/keg/internal/kglog"
	"github.com/keg-project/keg/internal/kgsys"
	"github.com/keg-project/keg/internal/transport"
)

// RunInner is the body of the `--inner <fd>` self-invocation (§4.5,
// §6 self-invocation contract): decode one RunnerMessage from the
// donated socket fd, report our pid, block on the go-ahead byte, then
// dispatch to the named stage. Returns the process exit code.
func RunInner(fdArg string) int {
	fd, err := strconv.Atoi(fdArg)
	if err != nil {
		kglog.Errorf("inner: invalid socket fd argument %q", fdArg)
		return 1
	}

	if err := kgsys.SetCloseOnExec(fd); err != nil {
		kglog.Errorf("inner: cannot cloexec socket fd: %v", err)
		return 1
	}

	f := os.NewFile(uintptr(fd), "keg-inner-socket")
	conn, err := net.FileConn(f)
	f.Close()
	if err != nil {
		kglog.Errorf("inner: cannot wrap socket fd: %v", err)
		return 1
	}
	defer conn.Close()

	code, err := serve(conn)
	if err != nil {
		kglog.Errorf("inner: %v", err)
	}
	return code
}

func serve(conn net.Conn) (int, error) {
	msg, err := transport.ReadMessage(conn)
	if err != nil {
		return 1, err
	}

	resp := &RunnerResponse{Pid: int32(os.Getpid())}
	if err := transport.WriteResponse(conn, resp); err != nil {
		return 1, err
	}

	if err := transport.ReadGoAhead(conn); err != nil {
		return 1, err
	}

	// We can manage our own cgroup from this point on, which
	// Dispatch's stage handlers require.
	req := msg.Request
	return Dispatch(msg.Stage, &req, msg.Env)
}
