package renderer

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"sync"
	"time"

	"github.com/BouncingElf10/raytracer/log"
	"github.com/BouncingElf10/raytracer/scene"
	"github.com/golang/snappy"
	"github.com/gorilla/websocket"
)

const (
	// Size of the frame message header: width, height and sample count.
	FrameHeaderSize = 12

	// Default camera movement step in world units.
	DefaultMoveStep float32 = 0.1

	clientQueueSize = 16
	pingInterval    = 30 * time.Second
)

var ErrBadFrame = errors.New("renderer: malformed preview frame")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// The CameraController interface is implemented by renderers whose camera
// can be moved while rendering.
type CameraController interface {
	UpdateCamera(fn func(cam *scene.Camera))
}

// The FrameResizer interface is implemented by renderers whose frame size can
// change while rendering.
type FrameResizer interface {
	Resize(frameW, frameH uint32) error
}

// A camera command sent by a preview client.
type PreviewCommand struct {
	Move  string   `json:"move,omitempty"`
	Yaw   *float32 `json:"yaw,omitempty"`
	Pitch *float32 `json:"pitch,omitempty"`

	// New frame width and height.
	Resize []uint32 `json:"resize,omitempty"`
}

type previewClient struct {
	conn *websocket.Conn
	send chan []byte
	id   string
}

// PreviewServer streams accumulated frames to websocket clients and forwards
// their camera commands to the renderer.
type PreviewServer struct {
	logger   log.Logger
	camera   CameraController
	MoveStep float32

	mu        sync.Mutex
	clients   map[*previewClient]struct{}
	lastFrame []byte
}

// Create a preview server that moves the camera of ctrl. ctrl may be nil for
// a view-only server.
func NewPreviewServer(ctrl CameraController) *PreviewServer {
	return &PreviewServer{
		logger:   log.New("preview"),
		camera:   ctrl,
		MoveStep: DefaultMoveStep,
		clients:  make(map[*previewClient]struct{}),
	}
}

// Get an http handler serving the /ws endpoint.
func (s *PreviewServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	return mux
}

// Broadcast a frame to all connected clients. It can be used directly as the
// renderer's OnFrame callback.
func (s *PreviewServer) Publish(img *image.RGBA, samples uint32) {
	msg := EncodeFrame(img, samples)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastFrame = msg
	for client := range s.clients {
		select {
		case client.send <- msg:
		default:
			s.logger.Warningf("dropping slow client %s", client.id)
			s.removeLocked(client)
		}
	}
}

// Get the number of connected clients.
func (s *PreviewServer) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Disconnect all clients.
func (s *PreviewServer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for client := range s.clients {
		s.removeLocked(client)
	}
}

// Remove client and stop its writer. Must be called with s.mu held.
func (s *PreviewServer) removeLocked(client *previewClient) {
	if _, ok := s.clients[client]; !ok {
		return
	}
	delete(s.clients, client)
	close(client.send)
}

func (s *PreviewServer) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warningf("upgrade: %s", err.Error())
		return
	}

	client := &previewClient{conn: conn, send: make(chan []byte, clientQueueSize), id: r.RemoteAddr}
	s.mu.Lock()
	s.clients[client] = struct{}{}
	if s.lastFrame != nil {
		client.send <- s.lastFrame
	}
	s.mu.Unlock()
	s.logger.Infof("client %s connected", client.id)

	go s.readCommands(client)
	go s.writeFrames(client)
}

func (s *PreviewServer) readCommands(client *previewClient) {
	defer func() {
		s.mu.Lock()
		s.removeLocked(client)
		s.mu.Unlock()
		client.conn.Close()
		s.logger.Infof("client %s disconnected", client.id)
	}()

	for {
		msgType, msg, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var cmd PreviewCommand
		if err = json.Unmarshal(msg, &cmd); err != nil {
			s.logger.Warningf("client %s: malformed command: %s", client.id, err.Error())
			continue
		}
		if err = s.Apply(cmd); err != nil {
			s.logger.Warningf("client %s: %s", client.id, err.Error())
		}
	}
}

func (s *PreviewServer) writeFrames(client *previewClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := client.conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
}

// Apply a client command. Any camera or frame size change resets
// accumulation.
func (s *PreviewServer) Apply(cmd PreviewCommand) error {
	if s.camera == nil {
		return nil
	}

	if cmd.Resize != nil {
		if err := s.resize(cmd.Resize); err != nil {
			return err
		}
	}

	var (
		dir     scene.CameraDirection
		hasMove = cmd.Move != ""
		err     error
	)
	if hasMove {
		if dir, err = scene.ParseCameraDirection(cmd.Move); err != nil {
			return err
		}
	}

	var yaw, pitch float32
	if cmd.Yaw != nil {
		yaw = *cmd.Yaw
	}
	if cmd.Pitch != nil {
		pitch = *cmd.Pitch
	}
	if !hasMove && yaw == 0 && pitch == 0 {
		return nil
	}
	step := s.MoveStep

	s.camera.UpdateCamera(func(cam *scene.Camera) {
		if hasMove {
			cam.Move(dir, step)
		}
		if yaw != 0 || pitch != 0 {
			cam.Rotate(yaw, pitch)
		}
	})
	return nil
}

func (s *PreviewServer) resize(dims []uint32) error {
	if len(dims) != 2 {
		return fmt.Errorf("preview: resize expects [width, height]; got %v", dims)
	}
	resizer, ok := s.camera.(FrameResizer)
	if !ok {
		return errors.New("preview: renderer does not support resizing")
	}
	return resizer.Resize(dims[0], dims[1])
}

// Encode a frame as a header followed by the snappy-compressed RGBA pixels.
func EncodeFrame(img *image.RGBA, samples uint32) []byte {
	bounds := img.Bounds()
	header := make([]byte, FrameHeaderSize)
	binary.LittleEndian.PutUint32(header[0:], uint32(bounds.Dx()))
	binary.LittleEndian.PutUint32(header[4:], uint32(bounds.Dy()))
	binary.LittleEndian.PutUint32(header[8:], samples)

	return append(header, snappy.Encode(nil, img.Pix)...)
}

// Decode a frame produced by EncodeFrame.
func DecodeFrame(data []byte) (*image.RGBA, uint32, error) {
	if len(data) < FrameHeaderSize {
		return nil, 0, ErrBadFrame
	}

	width := binary.LittleEndian.Uint32(data[0:])
	height := binary.LittleEndian.Uint32(data[4:])
	samples := binary.LittleEndian.Uint32(data[8:])

	pix, err := snappy.Decode(nil, data[FrameHeaderSize:])
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrBadFrame, err.Error())
	}
	if uint64(len(pix)) != uint64(width)*uint64(height)*4 {
		return nil, 0, fmt.Errorf("%w: expected %d bytes of pixel data for a %dx%d frame; got %d", ErrBadFrame, width*height*4, width, height, len(pix))
	}

	img := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	copy(img.Pix, pix)
	return img, samples, nil
}
