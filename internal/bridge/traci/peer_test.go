package traci

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/danmuck/simbridge/internal/bridge"
	"github.com/danmuck/simbridge/internal/config"
	"github.com/danmuck/simbridge/internal/protocol"
	"github.com/danmuck/simbridge/internal/protocol/frame"
	"github.com/danmuck/simbridge/internal/protocol/tlv"
)

// peer is a scripted engine on the far side of a net.Pipe.
type peer struct {
	t    *testing.T
	conn net.Conn
}

// expect reads one request message and returns the content of its single command.
func (p *peer) expect(cmd uint8) []byte {
	p.t.Helper()
	body, err := frame.ReadMessage(p.conn, frame.DefaultLimits())
	if err != nil {
		p.t.Errorf("peer read: %v", err)
		return nil
	}
	length, consumed, err := frame.ReadCommandLength(bytes.NewReader(body), len(body))
	if err != nil {
		p.t.Errorf("peer command length: %v", err)
		return nil
	}
	if length != len(body) {
		p.t.Errorf("peer got %d bytes after the command block", len(body)-length)
	}
	content := body[consumed:length]
	if len(content) == 0 || content[0] != cmd {
		p.t.Errorf("peer expected command 0x%02x, got % x", cmd, content)
	}
	return content
}

// reply sends a status block for cmd followed by raw result chunks.
func (p *peer) reply(cmd, result uint8, description string, chunks ...[]byte) {
	p.t.Helper()
	status := frame.EncodeCommand(tlv.NewCommand(cmd).UByte(result).String(description).Bytes())
	if err := frame.WriteMessage(p.conn, append([][]byte{status}, chunks...)...); err != nil {
		p.t.Errorf("peer write: %v", err)
	}
}

func (p *peer) ok(cmd uint8, chunks ...[]byte) {
	p.t.Helper()
	p.reply(cmd, protocol.StatusOK, "", chunks...)
}

func (p *peer) version(api int32, release string) {
	p.t.Helper()
	p.expect(protocol.CmdGetVersion)
	p.ok(protocol.CmdGetVersion, frame.EncodeCommand(tlv.NewCommand(protocol.CmdGetVersion).Int(api).String(release).Bytes()))
}

// serve runs script against the engine side of a pipe and returns the
// client side. The returned channel closes when the script is done.
func serve(t *testing.T, script func(p *peer)) (net.Conn, <-chan struct{}) {
	t.Helper()
	client, engine := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer engine.Close()
		script(&peer{t: t, conn: engine})
	}()
	t.Cleanup(func() {
		client.Close()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Errorf("peer script did not finish")
		}
	})
	return client, done
}

func testCatalog(t *testing.T) *bridge.Catalog {
	t.Helper()
	catalog := bridge.NewCatalog()
	if err := Register(catalog); err != nil {
		t.Fatalf("register: %v", err)
	}
	return catalog
}

func testConfig() config.Bridge {
	cfg := config.Default()
	cfg.Connect.MaxAttempts = 1
	return cfg
}

func connect(t *testing.T, cfg config.Bridge, script func(p *peer), opts ...Option) (*Client, <-chan struct{}) {
	t.Helper()
	conn, done := serve(t, script)
	c, err := NewClient(cfg, conn, testCatalog(t), opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c, done
}

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("peer script did not finish")
	}
}
