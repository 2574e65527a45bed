package device

import "fmt"

// A named device buffer.
type Buffer struct {
	// Associated Device.
	device *Device

	// A name for identifying the buffer.
	name string

	// Buffer contents.
	data []byte
}

// Get buffer name.
func (b *Buffer) Name() string {
	return b.name
}

// Get buffer size.
func (b *Buffer) Size() int {
	return len(b.data)
}

// Allocate a zero-filled buffer with the given size. Any previously
// allocated storage is released.
func (b *Buffer) Allocate(size int) error {
	b.Release()

	if size <= 0 {
		return fmt.Errorf("device (%s): could not allocate buffer %s of size %d", b.device.Name, b.name, size)
	}

	b.data = make([]byte, size)
	return nil
}

// Allocate a buffer that is large enough to hold the given data and copy the
// data into it.
func (b *Buffer) AllocateAndWriteData(data []byte) error {
	err := b.Allocate(len(data))
	if err != nil {
		return err
	}

	copy(b.data, data)
	return nil
}

// Copy data into the buffer starting at the given byte offset.
func (b *Buffer) WriteData(data []byte, offset int) error {
	if offset < 0 || offset+len(data) > len(b.data) {
		return fmt.Errorf("device (%s): insufficient buffer space (%d) in %s for copying data of length %d at offset %d", b.device.Name, len(b.data), b.name, len(data), offset)
	}

	copy(b.data[offset:], data)
	return nil
}

// Read size bytes starting at srcOffset into the host buffer starting at
// dstOffset. If size is <= 0 then ReadData will read the entire buffer.
func (b *Buffer) ReadData(srcOffset, dstOffset, size int, hostBuffer []byte) error {
	if size <= 0 {
		size = len(b.data)
	}

	if srcOffset < 0 || srcOffset+size > len(b.data) {
		return fmt.Errorf("device (%s): read of %d bytes at offset %d exceeds the size (%d) of buffer %s", b.device.Name, size, srcOffset, len(b.data), b.name)
	}
	if dstOffset < 0 || dstOffset+size > len(hostBuffer) {
		return fmt.Errorf("device (%s): host buffer too small for copying %d bytes from %s", b.device.Name, size, b.name)
	}

	copy(hostBuffer[dstOffset:dstOffset+size], b.data[srcOffset:srcOffset+size])
	return nil
}

// Direct access to the buffer contents. Kernels use this to read their
// inputs and write their outputs while a dispatch is in progress.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Release buffer.
func (b *Buffer) Release() {
	b.data = nil
}
