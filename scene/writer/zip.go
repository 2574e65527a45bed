package writer

import (
	"encoding/gob"
	"io"
	"os"
	"time"

	"github.com/BouncingElf10/raytracer/log"
	"github.com/BouncingElf10/raytracer/scene"
	"github.com/BouncingElf10/raytracer/scene/reader"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

type zipSceneWriter struct {
	logger log.Logger
}

// Create a new zip scene writer
func newZipSceneWriter() *zipSceneWriter {
	return &zipSceneWriter{
		logger: log.New("zip writer"),
	}
}

// Write scene definition to a zip stream. The scene is gob-encoded and
// stored as a single zstd-compressed entry.
func (w *zipSceneWriter) Write(sc *scene.OptimizedScene, out io.Writer) error {
	start := time.Now()

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())

	cw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     reader.DataFile,
		Method:   zstd.ZipMethodWinZip,
		Modified: time.Now(),
	})
	if err != nil {
		zw.Close()
		return err
	}

	err = gob.NewEncoder(cw).Encode(sc)
	if err != nil {
		zw.Close()
		return err
	}

	err = zw.Close()
	if err != nil {
		return err
	}

	w.logger.Noticef("compressed scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return nil
}

// Write scene definition to a zip file.
func (w *zipSceneWriter) WriteFile(sc *scene.OptimizedScene, sceneFile string) error {
	w.logger.Noticef("writing compressed scene to %s", sceneFile)

	zipFile, err := os.Create(sceneFile)
	if err != nil {
		return err
	}

	err = w.Write(sc, zipFile)
	if closeErr := zipFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(sceneFile)
	}
	return err
}
