package platform

import (
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafeUID is returned when a uid cannot be used as a file name.
var ErrUnsafeUID = errors.New("uid not usable as avatar file name")

// DirAvatarSink stores avatars as PNG files in one directory, named
// `<uid>.png`.
type DirAvatarSink struct {
	dir string
}

// NewDirAvatarSink creates an avatar sink rooted at dir.
func NewDirAvatarSink(dir string) *DirAvatarSink {
	return &DirAvatarSink{dir: dir}
}

// SetAvatar encodes the image as PNG and writes it atomically.
func (s *DirAvatarSink) SetAvatar(uid string, img image.Image) error {
	if !safeFileName(uid) {
		return ErrUnsafeUID
	}

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return err
	}

	target := filepath.Join(s.dir, uid+".png")

	tmp, err := os.CreateTemp(s.dir, ".avatar-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), target)
}

// safeFileName rejects uids that could escape the avatar directory or
// collide with hidden files.
func safeFileName(uid string) bool {
	if uid == "" || strings.HasPrefix(uid, ".") {
		return false
	}

	return !strings.ContainsAny(uid, `/\`+string(os.PathSeparator))
}
