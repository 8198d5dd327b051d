package control

import (
	"encoding/json"
	"net"
	"time"
)

// RGB is a minimal client for a local OpenRGB server. It only pushes named
// presets; device enumeration stays with the server.
type RGB struct {
	Address string
	Timeout time.Duration
	dial    func(network, address string, timeout time.Duration) (net.Conn, error)
}

func NewRGB(address string) *RGB {
	return &RGB{
		Address: address,
		Timeout: time.Second,
		dial:    net.DialTimeout,
	}
}

// Available probes whether the OpenRGB server accepts connections.
func (r *RGB) Available() bool {
	conn, err := r.dial("tcp", r.Address, r.Timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// SetPreset sends a named lighting preset to the server.
func (r *RGB) SetPreset(preset string) Result {
	if preset == "" {
		return failure("no preset specified")
	}

	conn, err := r.dial("tcp", r.Address, r.Timeout)
	if err != nil {
		return failure("OpenRGB not available at %s", r.Address)
	}
	defer conn.Close()

	payload, err := json.Marshal(map[string]string{
		"command": "set_color",
		"preset":  preset,
	})
	if err != nil {
		return failure("could not encode preset: %v", err)
	}

	conn.SetWriteDeadline(time.Now().Add(r.Timeout))
	if _, err := conn.Write(payload); err != nil {
		return failure("could not apply preset: %v", err)
	}

	return success("RGB preset %q sent", preset)
}
