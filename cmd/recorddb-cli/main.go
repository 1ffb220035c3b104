package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/marmos91/recorddb/internal/protocol"
)

// client wraps a server connection with frame-level send and receive.
type client struct {
	conn net.Conn
}

// readFrame reads one response frame: header first, then the payload it
// announces.
func (c *client) readFrame() (protocol.MsgType, []byte, error) {
	hdr := make([]byte, protocol.HeaderSize)
	if _, err := io.ReadFull(c.conn, hdr); err != nil {
		return 0, nil, fmt.Errorf("read response header: %w", err)
	}

	typ, length, err := protocol.DecodeHeader(hdr)
	if err != nil {
		return 0, nil, fmt.Errorf("decode response header: %w", err)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(c.conn, payload); err != nil {
		return 0, nil, fmt.Errorf("read response payload: %w", err)
	}
	return typ, payload, nil
}

// hello negotiates the protocol version. The server disconnects after an
// error frame, so a mismatch is fatal for the whole session.
func (c *client) hello() error {
	if _, err := c.conn.Write(protocol.EncodeHello(protocol.MsgHelloReq, protocol.Version)); err != nil {
		return fmt.Errorf("send hello: %w", err)
	}

	typ, payload, err := c.readFrame()
	if err != nil {
		return err
	}
	switch typ {
	case protocol.MsgError:
		return fmt.Errorf("server rejected handshake (protocol v%d)", protocol.Version)
	case protocol.MsgHelloResp:
		version, err := protocol.DecodeHelloPayload(payload)
		if err != nil {
			return fmt.Errorf("decode hello response: %w", err)
		}
		if version != protocol.Version {
			return fmt.Errorf("%w: server v%d, client v%d", protocol.ErrVersionMismatch, version, protocol.Version)
		}
		fmt.Printf("Server connected, protocol v%d.\n", protocol.Version)
		return nil
	default:
		return fmt.Errorf("unexpected handshake response: %s", typ)
	}
}

// expectStatus reads a status response of the given type and converts a
// failure status into an error.
func (c *client) expectStatus(want protocol.MsgType) error {
	typ, payload, err := c.readFrame()
	if err != nil {
		return err
	}
	switch typ {
	case protocol.MsgError:
		return fmt.Errorf("server returned an error")
	case want:
		status, err := protocol.DecodeStatusPayload(payload)
		if err != nil {
			return fmt.Errorf("decode status: %w", err)
		}
		if status != protocol.StatusSuccess {
			return fmt.Errorf("operation failed on server (status %d)", status)
		}
		return nil
	default:
		return fmt.Errorf("unexpected response type: %s", typ)
	}
}

func (c *client) addEmployee(addString string) error {
	frame, err := protocol.EncodeAddReq(addString)
	if err != nil {
		return fmt.Errorf("encode add request: %w", err)
	}
	if _, err := c.conn.Write(frame); err != nil {
		return fmt.Errorf("send add request: %w", err)
	}

	if err := c.expectStatus(protocol.MsgEmployeeAddResp); err != nil {
		return err
	}
	fmt.Println("Employee added successfully.")
	return nil
}

func (c *client) listEmployees() error {
	if _, err := c.conn.Write(protocol.EncodeHeader(protocol.MsgEmployeeListReq, 0)); err != nil {
		return fmt.Errorf("send list request: %w", err)
	}

	typ, payload, err := c.readFrame()
	if err != nil {
		return err
	}
	switch typ {
	case protocol.MsgError:
		return fmt.Errorf("server returned an error")
	case protocol.MsgEmployeeListResp:
	default:
		return fmt.Errorf("unexpected response type: %s", typ)
	}

	count, err := protocol.DecodeListCountPayload(payload)
	if err != nil {
		return fmt.Errorf("decode list response: %w", err)
	}

	fmt.Printf("--- Employee List (%d records) ---\n", count)
	buf := make([]byte, protocol.RecordSize)
	for i := uint16(0); i < count; i++ {
		if _, err := io.ReadFull(c.conn, buf); err != nil {
			return fmt.Errorf("read record %d: %w", i, err)
		}
		rec, err := protocol.DecodeRecord(buf)
		if err != nil {
			return fmt.Errorf("decode record %d: %w", i, err)
		}

		fmt.Printf("Employee #%d:\n", i+1)
		fmt.Printf("\tName: %s\n", rec.Name)
		fmt.Printf("\tAddress: %s\n", rec.Address)
		fmt.Printf("\tHours: %d\n", rec.Hours)
	}
	return nil
}

func (c *client) removeEmployee() error {
	if _, err := c.conn.Write(protocol.EncodeHeader(protocol.MsgEmployeeDelReq, 0)); err != nil {
		return fmt.Errorf("send remove request: %w", err)
	}

	if err := c.expectStatus(protocol.MsgEmployeeDelResp); err != nil {
		return err
	}
	fmt.Println("Employee removed successfully.")
	return nil
}

func main() {
	host := flag.String("h", "", "Server host address")
	port := flag.Int("p", 0, "Server port")
	addString := flag.String("a", "", "Add a record (\"name-address-hours\")")
	list := flag.Bool("l", false, "List all records")
	remove := flag.Bool("r", false, "Remove the last record")
	flag.Parse()

	actions := 0
	if *addString != "" {
		actions++
	}
	if *list {
		actions++
	}
	if *remove {
		actions++
	}
	if actions != 1 {
		fmt.Fprintln(os.Stderr, "Error: specify exactly one action (-a, -l, or -r)")
		flag.Usage()
		os.Exit(1)
	}
	if *host == "" || *port == 0 {
		fmt.Fprintln(os.Stderr, "Error: -h and -p are required")
		flag.Usage()
		os.Exit(1)
	}

	addr := net.JoinHostPort(*host, fmt.Sprintf("%d", *port))
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to %s: %v\n", addr, err)
		os.Exit(1)
	}
	defer conn.Close()
	fmt.Printf("Successfully connected to %s\n", addr)

	c := &client{conn: conn}
	if err := c.hello(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	switch {
	case *addString != "":
		err = c.addEmployee(*addString)
	case *list:
		err = c.listEmployees()
	case *remove:
		err = c.removeEmployee()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
