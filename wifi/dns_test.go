package wifi

import (
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/dns/dnsmessage"
)

func startTestResponder(t *testing.T) *DNSResponder {
	t.Helper()
	r, err := StartDNSResponder("127.0.0.1:0", "192.168.4.1", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(r.Stop)
	return r
}

func buildQuery(t *testing.T, id uint16, name string, qtype dnsmessage.Type) []byte {
	t.Helper()
	builder := dnsmessage.NewBuilder(nil, dnsmessage.Header{ID: id})
	require.NoError(t, builder.StartQuestions())
	require.NoError(t, builder.Question(dnsmessage.Question{
		Name:  dnsmessage.MustNewName(name),
		Type:  qtype,
		Class: dnsmessage.ClassINET,
	}))
	query, err := builder.Finish()
	require.NoError(t, err)
	return query
}

func exchange(t *testing.T, r *DNSResponder, query []byte) []byte {
	t.Helper()
	conn, err := net.Dial("udp", r.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(query)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 512)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	return buf[:n]
}

func TestAnswersEveryAQueryWithPortalIP(t *testing.T) {
	r := startTestResponder(t)

	for _, name := range []string{
		"example.com.",
		"connectivitycheck.gstatic.com.",
		"captive.apple.com.",
		"anything.at.all.",
	} {
		reply := exchange(t, r, buildQuery(t, 7, name, dnsmessage.TypeA))

		var msg dnsmessage.Message
		require.NoError(t, msg.Unpack(reply))
		assert.True(t, msg.Header.Response)
		assert.Equal(t, uint16(7), msg.Header.ID)
		assert.Equal(t, dnsmessage.RCodeSuccess, msg.Header.RCode)
		require.Len(t, msg.Answers, 1, "name=%s", name)

		a, ok := msg.Answers[0].Body.(*dnsmessage.AResource)
		require.True(t, ok)
		assert.Equal(t, [4]byte{192, 168, 4, 1}, a.A)
	}
}

func TestNonAQueryGetsEmptyAnswer(t *testing.T) {
	r := startTestResponder(t)

	reply := exchange(t, r, buildQuery(t, 9, "example.com.", dnsmessage.TypeAAAA))

	var msg dnsmessage.Message
	require.NoError(t, msg.Unpack(reply))
	assert.True(t, msg.Header.Response)
	assert.Empty(t, msg.Answers)
}

func TestMalformedPacketIgnored(t *testing.T) {
	r := startTestResponder(t)

	conn, err := net.Dial("udp", r.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte{0x01, 0x02})
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	buf := make([]byte, 64)
	_, err = conn.Read(buf)
	assert.Error(t, err, "no reply expected for garbage")

	// Responder still serves well-formed queries afterwards.
	reply := exchange(t, r, buildQuery(t, 3, "example.com.", dnsmessage.TypeA))
	var msg dnsmessage.Message
	require.NoError(t, msg.Unpack(reply))
	assert.Len(t, msg.Answers, 1)
}

func TestRejectsNonIPv4Portal(t *testing.T) {
	_, err := StartDNSResponder("127.0.0.1:0", "fe80::1", zerolog.Nop())
	assert.Error(t, err)
}
