package grpcweb

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"

	"clinic-scheduler/internal/middleware"
)

const (
	contentType  = "application/grpc-web+proto"
	frameData    = 0x00
	frameTrailer = 0x80
	maxBody      = 4 << 20
)

// Bridge translates gRPC-Web (browser HTTP/1.1) to native gRPC. Payloads
// are forwarded as opaque bytes, so any registered method works.
type Bridge struct {
	conn *grpc.ClientConn
	log  zerolog.Logger
}

// New dials the gRPC server at target (e.g. "localhost:50051").
func New(target string, log zerolog.Logger, opts ...grpc.DialOption) (*Bridge, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpcweb dial: %w", err)
	}
	return &Bridge{conn: conn, log: log.With().Str("component", "grpcweb").Logger()}, nil
}

func (b *Bridge) Close() error { return b.conn.Close() }

// Handler serves gRPC-Web with CORS for the given origins.
func (b *Bridge) Handler(origins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Grpc-Web", "X-User-Agent", "Authorization"},
		ExposedHeaders: []string{"Grpc-Status", "Grpc-Message", "Grpc-Status-Details-Bin"},
		MaxAge:         86400,
	})
	return c.Handler(http.HandlerFunc(b.serve))
}

func (b *Bridge) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ct := r.Header.Get("Content-Type")
	if ct != "application/grpc-web" && !strings.HasPrefix(ct, contentType) {
		http.Error(w, "not grpc-web", http.StatusUnsupportedMediaType)
		return
	}
	b.forward(w, r)
}

func (b *Bridge) forward(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody+5))
	if err != nil {
		writeStatus(w, status.New(codes.Internal, "read body failed"))
		return
	}
	// grpc-web frame: 1-byte flag + 4-byte big-endian length + message
	if len(body) < 5 {
		writeStatus(w, status.New(codes.InvalidArgument, "body too short"))
		return
	}
	msgLen := binary.BigEndian.Uint32(body[1:5])
	if msgLen > maxBody || int(msgLen)+5 > len(body) {
		writeStatus(w, status.New(codes.InvalidArgument, "incomplete frame"))
		return
	}
	payload := body[5 : 5+msgLen]

	md := metadata.MD{}
	if vals := r.Header.Values("Authorization"); len(vals) > 0 {
		md.Set("authorization", vals...)
	}
	md.Set("x-forwarded-for", middleware.ClientFromHTTP(r).IP)
	ctx := metadata.NewOutgoingContext(r.Context(), md)

	resp := &rawMsg{}
	err = b.conn.Invoke(ctx, r.URL.Path, &rawMsg{data: payload}, resp, grpc.ForceCodec(rawCodec{}))
	st := status.Convert(err)
	b.log.Info().Str("method", r.URL.Path).Str("code", st.Code().String()).Msg("grpc-web")
	if err != nil {
		writeStatus(w, st)
		return
	}
	writeSuccess(w, resp.data)
}

// rawMsg wraps already encoded message bytes.
type rawMsg struct{ data []byte }

// rawCodec passes bytes through. It shares the "proto" content-subtype so
// the server decodes with its registered codec.
type rawCodec struct{}

func (rawCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(*rawMsg)
	if !ok {
		return nil, fmt.Errorf("grpcweb: unexpected %T", v)
	}
	return m.data, nil
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(*rawMsg)
	if !ok {
		return fmt.Errorf("grpcweb: unexpected %T", v)
	}
	m.data = append([]byte(nil), data...)
	return nil
}

func (rawCodec) Name() string { return "proto" }

func frame(flag byte, data []byte) []byte {
	f := make([]byte, 5+len(data))
	f[0] = flag
	binary.BigEndian.PutUint32(f[1:5], uint32(len(data)))
	copy(f[5:], data)
	return f
}

func trailer(st *status.Status) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "grpc-status:%d\r\n", st.Code())
	if msg := st.Message(); msg != "" {
		fmt.Fprintf(&sb, "grpc-message:%s\r\n", encodeMessage(msg))
	}
	if len(st.Details()) > 0 {
		if bin, err := proto.Marshal(st.Proto()); err == nil {
			fmt.Fprintf(&sb, "grpc-status-details-bin:%s\r\n", base64.RawStdEncoding.EncodeToString(bin))
		}
	}
	return frame(frameTrailer, []byte(sb.String()))
}

// encodeMessage percent-encodes bytes outside printable ASCII, and '%'.
func encodeMessage(msg string) string {
	var sb strings.Builder
	for i := 0; i < len(msg); i++ {
		c := msg[i]
		if c < 0x20 || c > 0x7e || c == '%' {
			fmt.Fprintf(&sb, "%%%02X", c)
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

func writeStatus(w http.ResponseWriter, st *status.Status) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(trailer(st))
}

func writeSuccess(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(frame(frameData, data))
	_, _ = w.Write(trailer(status.New(codes.OK, "")))
}
