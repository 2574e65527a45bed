package device

import (
	"bytes"
	"sync/atomic"
	"testing"
)

func TestDispatchCoversEveryWorkItem(t *testing.T) {
	dev := New("test", 3)
	defer dev.Close()

	type spec struct {
		originY, width, height uint32
	}

	specs := []spec{
		{0, 8, 8},
		{0, 17, 5},
		{4, 3, 19},
		{10, 1, 1},
		{0, 0, 4},
	}

	for specIndex, s := range specs {
		frameH := s.originY + s.height
		counts := make([]int32, s.width*frameH)
		err := dev.Dispatch(s.originY, s.width, s.height, func(x, y uint32) {
			atomic.AddInt32(&counts[y*s.width+x], 1)
		})
		if err != nil {
			t.Fatalf("[spec %d] dispatch failed: %v", specIndex, err)
		}

		for y := uint32(0); y < frameH; y++ {
			for x := uint32(0); x < s.width; x++ {
				expCount := int32(0)
				if y >= s.originY {
					expCount = 1
				}
				if got := counts[y*s.width+x]; got != expCount {
					t.Fatalf("[spec %d] expected work item (%d, %d) to run %d times; got %d", specIndex, x, y, expCount, got)
				}
			}
		}
	}
}

func TestDispatchAfterClose(t *testing.T) {
	dev := New("test", 1)
	dev.Close()

	// Closing twice is a no-op
	dev.Close()

	err := dev.Dispatch(0, 1, 1, func(x, y uint32) {})
	if err != ErrDeviceClosed {
		t.Fatalf("expected to get ErrDeviceClosed; got %v", err)
	}
}

func TestDefaultWorkerCount(t *testing.T) {
	dev := New("test", 0)
	defer dev.Close()

	if dev.Workers <= 0 {
		t.Fatalf("expected a positive worker count; got %d", dev.Workers)
	}
	if dev.Speed != uint32(dev.Workers) {
		t.Fatalf("expected speed to equal the worker count %d; got %d", dev.Workers, dev.Speed)
	}
}

func TestProbe(t *testing.T) {
	dev := Probe(2)
	defer dev.Close()

	if dev.Workers != 2 {
		t.Fatalf("expected 2 workers; got %d", dev.Workers)
	}
	if dev.Name == "" {
		t.Fatal("expected device name to be set")
	}
}

func TestBufferAllocate(t *testing.T) {
	dev := New("test", 1)
	defer dev.Close()

	buf := dev.Buffer("test")
	defer buf.Release()

	err := buf.Allocate(128)
	if err != nil {
		t.Fatal(err)
	}

	expSize := 128
	if buf.Size() != expSize {
		t.Fatalf("expected buffer size to be %d; got %d", expSize, buf.Size())
	}

	err = buf.Allocate(0)
	if err == nil {
		t.Fatal("expected an error when allocating an empty buffer")
	}
	if buf.Size() != 0 {
		t.Fatalf("expected failed allocation to release the previous buffer; got size %d", buf.Size())
	}
}

func TestBufferWriteAndRead(t *testing.T) {
	dev := New("test", 1)
	defer dev.Close()

	buf := dev.Buffer("test")
	defer buf.Release()

	err := buf.AllocateAndWriteData([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	if err != nil {
		t.Fatal(err)
	}

	err = buf.WriteData([]byte{9, 9}, 4)
	if err != nil {
		t.Fatal(err)
	}

	out := make([]byte, 10)
	err = buf.ReadData(2, 1, 6, out)
	if err != nil {
		t.Fatal(err)
	}

	expOut := []byte{0, 3, 4, 9, 9, 7, 8, 0, 0, 0}
	if !bytes.Equal(out, expOut) {
		t.Fatalf("expected read data to be %v; got %v", expOut, out)
	}

	all := make([]byte, 8)
	err = buf.ReadData(0, 0, 0, all)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(all, buf.Bytes()) {
		t.Fatalf("expected full read to return %v; got %v", buf.Bytes(), all)
	}
}

func TestBufferBounds(t *testing.T) {
	dev := New("test", 1)
	defer dev.Close()

	buf := dev.Buffer("test")
	err := buf.Allocate(4)
	if err != nil {
		t.Fatal(err)
	}

	if err = buf.WriteData([]byte{1, 2}, 3); err == nil {
		t.Fatal("expected an error when writing past the buffer end")
	}
	if err = buf.WriteData([]byte{1}, -1); err == nil {
		t.Fatal("expected an error when writing at a negative offset")
	}
	if err = buf.ReadData(2, 0, 4, make([]byte, 4)); err == nil {
		t.Fatal("expected an error when reading past the buffer end")
	}
	if err = buf.ReadData(0, 2, 4, make([]byte, 4)); err == nil {
		t.Fatal("expected an error when the host buffer is too small")
	}
}
