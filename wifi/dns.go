package wifi

import (
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/dns/dnsmessage"
)

// DNSResponder is the captive-portal resolver. It answers every A query
// with the portal address so that any hostname a client tries leads to
// the provisioning page. Non-A queries get an empty NOERROR answer.
type DNSResponder struct {
	conn   net.PacketConn
	portal [4]byte
	log    zerolog.Logger
	done   chan struct{}
}

// StartDNSResponder binds addr (typically ":53", or ":0" in tests) and
// serves until Stop is called. portalIP must be an IPv4 address.
func StartDNSResponder(addr, portalIP string, log zerolog.Logger) (*DNSResponder, error) {
	ip := net.ParseIP(portalIP).To4()
	if ip == nil {
		return nil, fmt.Errorf("portal address %q is not IPv4", portalIP)
	}

	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("binding dns responder: %w", err)
	}

	r := &DNSResponder{
		conn: conn,
		log:  log.With().Str("component", "captive_dns").Logger(),
		done: make(chan struct{}),
	}
	copy(r.portal[:], ip)

	go r.serve()
	r.log.Info().Str("addr", conn.LocalAddr().String()).Str("portal", portalIP).Msg("captive dns up")
	return r, nil
}

// Addr returns the bound address.
func (r *DNSResponder) Addr() net.Addr {
	return r.conn.LocalAddr()
}

// Stop closes the socket and waits for the serve loop to exit.
func (r *DNSResponder) Stop() {
	r.conn.Close()
	<-r.done
}

func (r *DNSResponder) serve() {
	defer close(r.done)
	buf := make([]byte, 512)
	for {
		n, addr, err := r.conn.ReadFrom(buf)
		if err != nil {
			return
		}
		reply, ok := r.answer(buf[:n])
		if !ok {
			continue
		}
		r.conn.SetWriteDeadline(time.Now().Add(time.Second))
		if _, err := r.conn.WriteTo(reply, addr); err != nil {
			r.log.Debug().Err(err).Msg("dns reply failed")
		}
	}
}

// answer builds the wire reply for one query. Malformed packets are
// dropped silently.
func (r *DNSResponder) answer(query []byte) ([]byte, bool) {
	var parser dnsmessage.Parser
	header, err := parser.Start(query)
	if err != nil || header.Response {
		return nil, false
	}
	question, err := parser.Question()
	if err != nil {
		return nil, false
	}

	builder := dnsmessage.NewBuilder(nil, dnsmessage.Header{
		ID:            header.ID,
		Response:      true,
		Authoritative: true,
		RCode:         dnsmessage.RCodeSuccess,
	})
	builder.EnableCompression()
	if err := builder.StartQuestions(); err != nil {
		return nil, false
	}
	if err := builder.Question(question); err != nil {
		return nil, false
	}

	if question.Type == dnsmessage.TypeA && question.Class == dnsmessage.ClassINET {
		if err := builder.StartAnswers(); err != nil {
			return nil, false
		}
		err = builder.AResource(dnsmessage.ResourceHeader{
			Name:  question.Name,
			Type:  dnsmessage.TypeA,
			Class: dnsmessage.ClassINET,
			TTL:   60,
		}, dnsmessage.AResource{A: r.portal})
		if err != nil {
			return nil, false
		}
	}

	reply, err := builder.Finish()
	if err != nil {
		return nil, false
	}
	return reply, true
}
