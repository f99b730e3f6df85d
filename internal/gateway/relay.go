package gateway

import (
	"io"
	"log"
	"net"
)

// halfCloser is satisfied by *net.TCPConn and by peekConn; relay teardown
// uses it to shut the backend down for both read and write before closing.
type halfCloser interface {
	CloseRead() error
	CloseWrite() error
}

// Relay streams bytes bidirectionally between the client transport and the
// backend connection until either side closes. Whatever ends the relay, the
// backend socket is shut down for both directions, closed, and a termination
// entry naming the backend address is logged; the returned error (nil on a
// clean close) is propagated so the caller tears down the client side too.
// The backend socket is never leaked on any exit path.
func Relay(client net.Conn, backend net.Conn, backendAddr string) error {
	errc := make(chan error, 2)

	go pump(backend, client, errc)
	go pump(client, backend, errc)

	err := <-errc

	if hc, ok := backend.(halfCloser); ok {
		hc.CloseRead()
		hc.CloseWrite()
	}
	backend.Close()
	client.Close()
	log.Printf("🔌 %s: Target closed", backendAddr)

	// The closes above unblock the other direction.
	<-errc

	if err == io.EOF {
		return nil
	}
	return err
}

func pump(dst io.Writer, src io.Reader, errc chan<- error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	_, err := io.CopyBuffer(dst, src, buf)
	errc <- err
}
