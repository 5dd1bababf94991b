package portal

import (
	"fmt"
	"net"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/logging"
)

// Response is a complete HTTP/1.1 response. Every response closes the
// connection.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Bytes serializes the response exactly as it goes on the wire.
//
//	HTTP/1.1 200 OK\r\n
//	Content-Type: text/html; charset=UTF-8\r\n
//	Connection: close\r\n
//	Content-Length: 1234\r\n
//	\r\n
//	<body>
func (r Response) Bytes() []byte {
	out := fmt.Appendf(nil, "HTTP/1.1 %d %s\r\n", r.Status, http.StatusText(r.Status))
	if r.Status == http.StatusNoContent {
		return append(out, "Connection: close\r\n\r\n"...)
	}
	if r.ContentType != "" {
		out = fmt.Appendf(out, "Content-Type: %s\r\n", r.ContentType)
	}
	out = append(out, "Connection: close\r\n"...)
	out = fmt.Appendf(out, "Content-Length: %d\r\n\r\n", len(r.Body))
	return append(out, r.Body...)
}

func (r Response) headers() map[string]string {
	h := map[string]string{"Connection": "close"}
	if r.Status != http.StatusNoContent {
		if r.ContentType != "" {
			h["Content-Type"] = r.ContentType
		}
		h["Content-Length"] = strconv.Itoa(len(r.Body))
	}
	return h
}

// WriteResponse sends resp on conn in a single write.
func WriteResponse(conn net.Conn, remoteAddr string, resp Response) error {
	wire := resp.Bytes()
	n, err := conn.Write(wire)
	if err != nil {
		return fmt.Errorf("failed to write %d response: %w", resp.Status, err)
	}

	logging.Debug("Sent portal response",
		zap.String("remote_addr", remoteAddr),
		zap.Int("status", resp.Status),
		zap.Int("bytes_written", n),
	)
	logging.LogHTTPResponse(remoteAddr, resp.Status, resp.headers())
	return nil
}

func noContent() Response {
	return Response{Status: http.StatusNoContent}
}

func missingHeaders() Response {
	return Response{
		Status:      http.StatusBadRequest,
		ContentType: "text/plain",
		Body:        []byte("Missing Content-Type or Content-Length for POST.\r\n"),
	}
}
