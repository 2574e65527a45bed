package renderer

import (
	"image"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BouncingElf10/raytracer/scene"
	"github.com/golang/snappy"
	"github.com/gorilla/websocket"
)

type recordingController struct {
	cam     *scene.Camera
	updated chan struct{}
}

func (c *recordingController) UpdateCamera(fn func(cam *scene.Camera)) {
	fn(c.cam)
	c.updated <- struct{}{}
}

func testFrame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	for index := range img.Pix {
		img.Pix[index] = uint8(index * 7)
	}
	return img
}

func TestFrameEncoding(t *testing.T) {
	img := testFrame()

	decoded, samples, err := DecodeFrame(EncodeFrame(img, 42))
	if err != nil {
		t.Fatal(err)
	}
	if samples != 42 {
		t.Fatalf("expected 42 samples; got %d", samples)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Fatalf("expected bounds %v; got %v", img.Bounds(), decoded.Bounds())
	}
	for index := range img.Pix {
		if decoded.Pix[index] != img.Pix[index] {
			t.Fatalf("[byte %d] expected %d; got %d", index, img.Pix[index], decoded.Pix[index])
		}
	}
}

func TestDecodeMalformedFrame(t *testing.T) {
	bad := EncodeFrame(testFrame(), 1)
	// Claim a larger frame than the payload holds
	bad[0] = 4

	specs := [][]byte{
		nil,
		make([]byte, FrameHeaderSize-1),
		append(make([]byte, FrameHeaderSize), 0xff, 0xff, 0xff),
		bad,
		append(make([]byte, FrameHeaderSize), snappy.Encode(nil, []byte{1, 2, 3})...),
	}

	for specIndex, data := range specs {
		if _, _, err := DecodeFrame(data); err == nil {
			t.Fatalf("[spec %d] expected an error", specIndex)
		}
	}
}

func TestApplyCommand(t *testing.T) {
	ctrl := &recordingController{cam: scene.NewCamera(4, 4), updated: make(chan struct{}, 4)}
	srv := NewPreviewServer(ctrl)
	srv.MoveStep = 1

	if err := srv.Apply(PreviewCommand{Move: "forward"}); err != nil {
		t.Fatal(err)
	}
	if pos := ctrl.cam.Position; pos[2] != 4 {
		t.Fatalf("expected camera to move to z=4; got %v", pos)
	}

	pitch := float32(120)
	if err := srv.Apply(PreviewCommand{Pitch: &pitch}); err != nil {
		t.Fatal(err)
	}
	if ctrl.cam.Pitch != 89 {
		t.Fatalf("expected pitch to be clamped to 89; got %f", ctrl.cam.Pitch)
	}

	if err := srv.Apply(PreviewCommand{Move: "sideways"}); err == nil {
		t.Fatal("expected an error for an unknown direction")
	}

	// Empty commands and zero deltas do not touch the camera
	zero := float32(0)
	for _, cmd := range []PreviewCommand{{}, {Yaw: &zero}, {Yaw: &zero, Pitch: &zero}} {
		if err := srv.Apply(cmd); err != nil {
			t.Fatal(err)
		}
	}
	if len(ctrl.updated) != 2 {
		t.Fatalf("expected 2 camera updates; got %d", len(ctrl.updated))
	}

	// The controller cannot resize frames
	if err := srv.Apply(PreviewCommand{Resize: []uint32{8, 8}}); err == nil {
		t.Fatal("expected an error when resizing without a FrameResizer")
	}
}

func TestPreviewServer(t *testing.T) {
	ctrl := &recordingController{cam: scene.NewCamera(4, 4), updated: make(chan struct{}, 1)}
	srv := NewPreviewServer(ctrl)
	defer srv.Close()

	httpSrv := httptest.NewServer(srv.Handler())
	defer httpSrv.Close()

	// New clients receive the last published frame
	srv.Publish(testFrame(), 3)

	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	msgType, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if msgType != websocket.BinaryMessage {
		t.Fatalf("expected a binary message; got type %d", msgType)
	}
	img, samples, err := DecodeFrame(msg)
	if err != nil {
		t.Fatal(err)
	}
	if samples != 3 || img.Bounds().Dx() != 3 {
		t.Fatalf("expected 3x2 frame with 3 samples; got %v with %d samples", img.Bounds(), samples)
	}

	if err = conn.WriteMessage(websocket.TextMessage, []byte(`{"move":"up"}`)); err != nil {
		t.Fatal(err)
	}
	select {
	case <-ctrl.updated:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for camera update")
	}
	if pos := ctrl.cam.Position; pos[1] != DefaultMoveStep {
		t.Fatalf("expected camera to move up by %f; got %v", DefaultMoveStep, pos)
	}
}
